package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

var _ domain.ConversionStore = (*ConversionStore)(nil)

// ConversionStore implements domain.ConversionStore using PostgreSQL.
type ConversionStore struct {
	pool *pgxpool.Pool
}

// NewConversionStore creates a new ConversionStore backed by the given pool.
func NewConversionStore(pool *pgxpool.Pool) *ConversionStore {
	return &ConversionStore{pool: pool}
}

const conversionColumns = `id, amount, from_asset, to_asset, result, route, status, error, duration_ns, created_at`

// Insert appends a conversion record.
func (s *ConversionStore) Insert(ctx context.Context, c domain.Conversion) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const query = `INSERT INTO conversions (` + conversionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		c.ID, c.Amount, string(c.From), string(c.To),
		nullString(c.Result), routeStrings(c.Route), string(c.Status),
		nullString(c.Error), c.Duration.Nanoseconds(), createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert conversion %s: %w", c.ID, err)
	}
	return nil
}

// GetByID returns one conversion, or domain.ErrNotFound.
func (s *ConversionStore) GetByID(ctx context.Context, id string) (domain.Conversion, error) {
	const query = `SELECT ` + conversionColumns + ` FROM conversions WHERE id = $1`

	c, err := scanConversion(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversion{}, fmt.Errorf("postgres: get conversion %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Conversion{}, fmt.Errorf("postgres: get conversion %s: %w", id, err)
	}
	return c, nil
}

// ListRecent returns conversions newest first with pagination and optional
// time filtering.
func (s *ConversionStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Conversion, error) {
	query, args := listConversionsQuery(opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list conversions: %w", err)
	}
	defer rows.Close()

	var out []domain.Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan conversion: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list conversions rows: %w", err)
	}
	return out, nil
}

// listConversionsQuery builds the ListRecent statement, numbering
// placeholders in the order filters are appended.
func listConversionsQuery(opts domain.ListOpts) (string, []any) {
	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}
	return query, args
}

func scanConversion(row pgx.Row) (domain.Conversion, error) {
	var (
		c             domain.Conversion
		from, to      string
		result, cause *string
		route         []string
		status        string
		durationNS    int64
	)
	err := row.Scan(&c.ID, &c.Amount, &from, &to, &result, &route, &status, &cause, &durationNS, &c.CreatedAt)
	if err != nil {
		return domain.Conversion{}, err
	}
	c.From = domain.AssetCode(from)
	c.To = domain.AssetCode(to)
	c.Status = domain.ConversionStatus(status)
	c.Duration = time.Duration(durationNS)
	if result != nil {
		c.Result = *result
	}
	if cause != nil {
		c.Error = *cause
	}
	if len(route) > 0 {
		c.Route = make([]domain.AssetCode, len(route))
		for i, a := range route {
			c.Route[i] = domain.AssetCode(a)
		}
	}
	return c, nil
}

func routeStrings(route []domain.AssetCode) []string {
	out := make([]string, len(route))
	for i, a := range route {
		out[i] = string(a)
	}
	return out
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
