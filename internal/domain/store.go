package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// FeedStore persists the feed catalog.
type FeedStore interface {
	FeedSource
	Upsert(ctx context.Context, feed Feed) error
	Delete(ctx context.Context, id int) error
}

// ConversionStore persists the conversion audit log.
type ConversionStore interface {
	Insert(ctx context.Context, c Conversion) error
	GetByID(ctx context.Context, id string) (Conversion, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]Conversion, error)
}
