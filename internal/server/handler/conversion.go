package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/feedconv/internal/domain"
	"github.com/alanyoungcy/feedconv/internal/service"
)

// ConversionService defines the methods the conversion handler requires
// from the service layer.
type ConversionService interface {
	Convert(ctx context.Context, in service.ConvertInput) (domain.Conversion, error)
	Get(ctx context.Context, id string) (domain.Conversion, error)
	Recent(ctx context.Context, opts domain.ListOpts) ([]domain.Conversion, error)
}

// ConversionHandler serves conversion requests and the conversion log.
type ConversionHandler struct {
	conversions ConversionService
	logger      *slog.Logger
}

// NewConversionHandler creates a ConversionHandler.
func NewConversionHandler(conversions ConversionService, logger *slog.Logger) *ConversionHandler {
	return &ConversionHandler{conversions: conversions, logger: logger}
}

type convertRequest struct {
	Amount string `json:"amount"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type convertResponse struct {
	ID     string             `json:"id"`
	Result string             `json:"result"`
	Route  []domain.AssetCode `json:"route,omitempty"`
}

type errorResponse struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

type listConversionsResponse struct {
	Conversions []domain.Conversion `json:"conversions"`
}

// Convert runs one conversion.
// POST /api/convert {"amount":"5","from":"ETH","to":"USD"}
func (h *ConversionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.conversions.Convert(r.Context(), service.ConvertInput{
		Amount: req.Amount,
		From:   req.From,
		To:     req.To,
	})
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: convert failed",
				slog.String("id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
		writeJSON(w, code, errorResponse{ID: rec.ID, Error: publicMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, convertResponse{ID: rec.ID, Result: rec.Result, Route: rec.Route})
}

// GetConversion returns one recorded conversion.
// GET /api/conversions/{id}
func (h *ConversionHandler) GetConversion(w http.ResponseWriter, r *http.Request) {
	rec, err := h.conversions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversion not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get conversion failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get conversion")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListConversions returns recorded conversions, newest first.
// GET /api/conversions?limit=50&offset=0&since=RFC3339&until=RFC3339
func (h *ConversionHandler) ListConversions(w http.ResponseWriter, r *http.Request) {
	list, err := h.conversions.Recent(r.Context(), parseListOpts(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversion log is not enabled")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: list conversions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list conversions")
		return
	}
	if list == nil {
		list = []domain.Conversion{}
	}
	writeJSON(w, http.StatusOK, listConversionsResponse{Conversions: list})
}

// publicMessage picks the client-facing text for err. Configuration and
// unexpected errors are not echoed back.
func publicMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrInvalidAmount,
		domain.ErrInvalidAsset,
		domain.ErrNoRouteFound,
		domain.ErrNonTerminating,
		domain.ErrOracleUnavailable,
		domain.ErrInvalidAnswer,
		domain.ErrTransportConfig,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}
