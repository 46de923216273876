package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

const feedDocumentContentType = "application/json"

// FeedDocument is the JSON object a feed catalog is published as.
type FeedDocument struct {
	PublishedAt time.Time     `json:"published_at"`
	Feeds       []domain.Feed `json:"feeds"`
}

// FeedSource reads the feed catalog from a JSON document in object storage.
// The document is fetched on every call, so a republished catalog takes
// effect on the next conversion.
type FeedSource struct {
	reader domain.BlobReader
	key    string
}

// NewFeedSource creates a FeedSource reading the document at key.
func NewFeedSource(reader domain.BlobReader, key string) *FeedSource {
	return &FeedSource{reader: reader, key: key}
}

// Feeds downloads and decodes the catalog. Every feed is validated.
func (s *FeedSource) Feeds(ctx context.Context) ([]domain.Feed, error) {
	body, err := s.reader.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("s3blob: feeds: %w", err)
	}
	defer body.Close()

	var doc FeedDocument
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("s3blob: decode feed document %s: %w", s.key, err)
	}
	for _, f := range doc.Feeds {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("s3blob: feed document %s: %w", s.key, err)
		}
	}
	return doc.Feeds, nil
}

// PublishFeeds writes feeds to key as a FeedDocument.
func PublishFeeds(ctx context.Context, w domain.BlobWriter, key string, feeds []domain.Feed, now time.Time) error {
	for _, f := range feeds {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("s3blob: publish feeds: %w", err)
		}
	}

	data, err := json.MarshalIndent(FeedDocument{PublishedAt: now.UTC(), Feeds: feeds}, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal feed document: %w", err)
	}
	if err := w.Put(ctx, key, bytes.NewReader(data), feedDocumentContentType); err != nil {
		return fmt.Errorf("s3blob: publish feeds: %w", err)
	}
	return nil
}

var _ domain.FeedSource = (*FeedSource)(nil)
