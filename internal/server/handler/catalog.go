package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/feedconv/internal/assets"
	"github.com/alanyoungcy/feedconv/internal/domain"
)

// FeedLister is the part of the service layer the catalog handler needs.
type FeedLister interface {
	Feeds(ctx context.Context) ([]domain.Feed, error)
}

// FeedEditor changes a persisted feed catalog.
type FeedEditor interface {
	Upsert(ctx context.Context, feed domain.Feed) error
	Delete(ctx context.Context, id int) error
}

// CatalogHandler serves the asset registry and the feed catalog.
type CatalogHandler struct {
	feeds  FeedLister
	editor FeedEditor
	logger *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler. editor may be nil when the
// catalog is read-only.
func NewCatalogHandler(feeds FeedLister, editor FeedEditor, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{feeds: feeds, editor: editor, logger: logger}
}

// Editable reports whether PutFeed and DeleteFeed can be served.
func (h *CatalogHandler) Editable() bool {
	return h.editor != nil
}

type putFeedRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
}

type listAssetsResponse struct {
	Assets []domain.AssetCode `json:"assets"`
}

type listFeedsResponse struct {
	Feeds []domain.Feed `json:"feeds"`
}

// ListAssets returns the supported asset codes.
// GET /api/assets
func (h *CatalogHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listAssetsResponse{Assets: assets.List()})
}

// ListFeeds returns the feed catalog conversions currently route over.
// GET /api/feeds
func (h *CatalogHandler) ListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.feeds.Feeds(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list feeds failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load feeds")
		return
	}
	if feeds == nil {
		feeds = []domain.Feed{}
	}
	writeJSON(w, http.StatusOK, listFeedsResponse{Feeds: feeds})
}

// PutFeed creates or replaces the feed with the id in the path.
// PUT /api/feeds/{id}
func (h *CatalogHandler) PutFeed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid feed id")
		return
	}

	var req putFeedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Address) {
		writeError(w, http.StatusBadRequest, "invalid feed address")
		return
	}

	feed := domain.Feed{
		ID:       id,
		From:     domain.AssetCode(req.From),
		To:       domain.AssetCode(req.To),
		Address:  common.HexToAddress(req.Address),
		Decimals: req.Decimals,
	}
	if err := feed.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.editor.Upsert(r.Context(), feed); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: upsert feed failed",
			slog.Int("feed_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to save feed")
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// DeleteFeed removes the feed with the id in the path.
// DELETE /api/feeds/{id}
func (h *CatalogHandler) DeleteFeed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid feed id")
		return
	}

	if err := h.editor.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "feed not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: delete feed failed",
			slog.Int("feed_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to delete feed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
