package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

var _ domain.FeedStore = (*FeedStore)(nil)

// FeedStore implements domain.FeedStore using PostgreSQL.
type FeedStore struct {
	pool *pgxpool.Pool
}

// NewFeedStore creates a new FeedStore backed by the given connection pool.
func NewFeedStore(pool *pgxpool.Pool) *FeedStore {
	return &FeedStore{pool: pool}
}

// Feeds returns the whole catalog ordered by id, so graph construction sees
// a stable input order across calls.
func (s *FeedStore) Feeds(ctx context.Context) ([]domain.Feed, error) {
	const query = `SELECT id, from_asset, to_asset, address, decimals FROM feeds ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []domain.Feed
	for rows.Next() {
		var (
			f        domain.Feed
			from, to string
			address  string
			decimals int16
		)
		if err := rows.Scan(&f.ID, &from, &to, &address, &decimals); err != nil {
			return nil, fmt.Errorf("postgres: scan feed: %w", err)
		}
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("postgres: feed %d: %w: bad address %q", f.ID, domain.ErrInvalidFeed, address)
		}
		f.From = domain.AssetCode(from)
		f.To = domain.AssetCode(to)
		f.Address = common.HexToAddress(address)
		f.Decimals = uint8(decimals)
		feeds = append(feeds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list feeds rows: %w", err)
	}
	return feeds, nil
}

// Upsert inserts a feed or replaces the row with the same id.
func (s *FeedStore) Upsert(ctx context.Context, feed domain.Feed) error {
	if err := feed.Validate(); err != nil {
		return fmt.Errorf("postgres: upsert feed %d: %w", feed.ID, err)
	}

	const query = `
		INSERT INTO feeds (id, from_asset, to_asset, address, decimals, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			from_asset = EXCLUDED.from_asset,
			to_asset   = EXCLUDED.to_asset,
			address    = EXCLUDED.address,
			decimals   = EXCLUDED.decimals,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		feed.ID, string(feed.From), string(feed.To), feed.Address.Hex(), int16(feed.Decimals),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert feed %d: %w", feed.ID, err)
	}
	return nil
}

// Delete removes a feed by id. Deleting a missing feed returns
// domain.ErrNotFound.
func (s *FeedStore) Delete(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete feed %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete feed %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
