package converter

import (
	"context"
	"fmt"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

// Resolver reads the current rate of each hop from its oracle. It does not
// apply edge direction; inversion happens when the rates are folded.
type Resolver struct {
	oracle domain.OracleReader
}

// NewResolver creates a Resolver reading through oracle.
func NewResolver(oracle domain.OracleReader) *Resolver {
	return &Resolver{oracle: oracle}
}

// Resolve fetches the latest answer for edge's feed and normalises it with
// the feed's decimals.
func (r *Resolver) Resolve(ctx context.Context, edge domain.Edge) (domain.Rate, error) {
	feed := edge.Feed
	answer, err := r.oracle.LatestAnswer(ctx, feed.Address)
	if err != nil {
		return domain.Rate{}, fmt.Errorf("%w: feed %d %s/%s at %s: %w",
			domain.ErrOracleUnavailable, feed.ID, feed.From, feed.To, feed.Address.Hex(), err)
	}
	if answer == nil || answer.Sign() <= 0 {
		return domain.Rate{}, fmt.Errorf("%w: feed %d %s/%s at %s returned %s",
			domain.ErrInvalidAnswer, feed.ID, feed.From, feed.To, feed.Address.Hex(), answerString(answer))
	}
	return domain.Rate{
		Mantissa: new(big.Int).Set(answer),
		Scale:    feed.Decimals,
	}, nil
}

// ResolvePath reads every hop concurrently and returns the rates in path
// order. The first failure cancels the remaining reads and fails the call.
func (r *Resolver) ResolvePath(ctx context.Context, path domain.Path) ([]domain.Rate, error) {
	rates := make([]domain.Rate, len(path))

	g, gctx := errgroup.WithContext(ctx)
	for i, edge := range path {
		g.Go(func() error {
			rate, err := r.Resolve(gctx, edge)
			if err != nil {
				return err
			}
			rates[i] = rate
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rates, nil
}

func answerString(v *big.Int) string {
	if v == nil {
		return "nil"
	}
	return v.String()
}
