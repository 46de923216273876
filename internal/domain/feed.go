package domain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetCode identifies a tradable asset, e.g. "BTC" or "USD".
type AssetCode string

// Feed describes one price oracle. It reports the price of one unit of From
// in units of To, as an integer scaled by 10^Decimals.
type Feed struct {
	ID       int            `json:"id"`
	From     AssetCode      `json:"from"`
	To       AssetCode      `json:"to"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
}

// Validate reports whether the feed can take part in a conversion.
func (f Feed) Validate() error {
	if f.From == "" || f.To == "" {
		return fmt.Errorf("%w: feed %d: empty asset code", ErrInvalidFeed, f.ID)
	}
	if f.From == f.To {
		return fmt.Errorf("%w: feed %d: from and to are both %s", ErrInvalidFeed, f.ID, f.From)
	}
	if f.Address == (common.Address{}) {
		return fmt.Errorf("%w: feed %d: zero address", ErrInvalidFeed, f.ID)
	}
	return nil
}

// Edge is one traversable direction over a Feed. A forward edge goes
// From→To and multiplies by the rate; a reverse edge goes To→From and divides.
type Edge struct {
	Feed    Feed
	Forward bool
}

// Source returns the asset the edge leaves from.
func (e Edge) Source() AssetCode {
	if e.Forward {
		return e.Feed.From
	}
	return e.Feed.To
}

// Target returns the asset the edge arrives at.
func (e Edge) Target() AssetCode {
	if e.Forward {
		return e.Feed.To
	}
	return e.Feed.From
}

func (e Edge) String() string {
	return fmt.Sprintf("%s->%s", e.Source(), e.Target())
}

// Path is an ordered, simple sequence of edges from source to destination.
type Path []Edge

// Assets returns the asset codes visited by the path, source first.
func (p Path) Assets() []AssetCode {
	if len(p) == 0 {
		return nil
	}
	out := make([]AssetCode, 0, len(p)+1)
	out = append(out, p[0].Source())
	for _, e := range p {
		out = append(out, e.Target())
	}
	return out
}

// Rate is the exact value Mantissa / 10^Scale.
type Rate struct {
	Mantissa *big.Int
	Scale    uint8
}

// FeedSource yields the feed list handed to the converter on each request.
type FeedSource interface {
	Feeds(ctx context.Context) ([]Feed, error)
}

// StaticFeeds is a FeedSource over a fixed in-memory list.
type StaticFeeds []Feed

// Feeds returns a copy of the list.
func (s StaticFeeds) Feeds(_ context.Context) ([]Feed, error) {
	out := make([]Feed, len(s))
	copy(out, s)
	return out, nil
}
