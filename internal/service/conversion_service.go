package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/feedconv/internal/converter"
	"github.com/alanyoungcy/feedconv/internal/domain"
)

// ConversionsChannel is the bus channel completed conversions are published on.
const ConversionsChannel = "conversions"

// Amounts longer than maxAmountLength characters or with a decimal exponent
// beyond maxAmountExponent are rejected before any arithmetic.
const (
	maxAmountLength   = 256
	maxAmountExponent = 1000
)

// ConvertInput is an unparsed conversion request as it arrives from the CLI
// or the HTTP API.
type ConvertInput struct {
	Amount string
	From   string
	To     string
}

// Observer receives the outcome of every conversion that got past input
// parsing.
type Observer interface {
	ObserveConversion(status domain.ConversionStatus, hops int, d time.Duration)
}

// ConversionService runs conversions against the configured feed source and
// transport, then records and announces the outcome.
type ConversionService struct {
	conv        *converter.Converter
	feeds       domain.FeedSource
	transport   converter.Transport
	audit       domain.ConversionStore
	bus         domain.SignalBus
	observer    Observer
	callTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewConversionService creates a ConversionService. audit and bus may be
// nil, in which case recording and publishing are skipped.
func NewConversionService(
	conv *converter.Converter,
	feeds domain.FeedSource,
	transport converter.Transport,
	audit domain.ConversionStore,
	bus domain.SignalBus,
	callTimeout time.Duration,
	logger *slog.Logger,
) *ConversionService {
	return &ConversionService{
		conv:        conv,
		feeds:       feeds,
		transport:   transport,
		audit:       audit,
		bus:         bus,
		callTimeout: callTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// WithObserver attaches an Observer and returns s.
func (s *ConversionService) WithObserver(o Observer) *ConversionService {
	s.observer = o
	return s
}

// Convert parses in, runs the conversion and returns its record. Input
// errors are returned before anything is recorded. A conversion that fails
// after parsing is still recorded with status failed, and the error is
// returned alongside the record.
func (s *ConversionService) Convert(ctx context.Context, in ConvertInput) (domain.Conversion, error) {
	amount, from, to, err := parseInput(in)
	if err != nil {
		return domain.Conversion{}, err
	}

	rec := domain.Conversion{
		ID:        uuid.NewString(),
		Amount:    amount.String(),
		From:      from,
		To:        to,
		CreatedAt: s.now().UTC(),
	}

	start := time.Now()
	res, err := s.run(ctx, amount, from, to)
	rec.Duration = time.Since(start)

	if err != nil {
		rec.Status = domain.ConversionFailed
		rec.Error = err.Error()
		s.logger.WarnContext(ctx, "conversion_service: conversion failed",
			slog.String("id", rec.ID),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("error", err.Error()),
		)
	} else {
		rec.Status = domain.ConversionOK
		rec.Result = res.Value
		rec.Route = res.Route
		s.logger.InfoContext(ctx, "conversion_service: converted",
			slog.String("id", rec.ID),
			slog.String("amount", rec.Amount),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("result", rec.Result),
			slog.Int("hops", max(len(rec.Route)-1, 0)),
			slog.Duration("duration", rec.Duration),
		)
	}

	if s.observer != nil {
		s.observer.ObserveConversion(rec.Status, max(len(rec.Route)-1, 0), rec.Duration)
	}
	s.record(ctx, rec)
	s.publish(ctx, rec)

	if err != nil {
		return rec, fmt.Errorf("conversion_service: convert %s to %s: %w", from, to, err)
	}
	return rec, nil
}

func (s *ConversionService) run(ctx context.Context, amount decimal.Decimal, from, to domain.AssetCode) (converter.Result, error) {
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	feeds, err := s.feeds.Feeds(ctx)
	if err != nil {
		return converter.Result{}, fmt.Errorf("load feeds: %w", err)
	}

	return s.conv.Run(ctx, converter.Request{
		Amount:    amount,
		From:      from,
		To:        to,
		Transport: s.transport,
		Feeds:     feeds,
	})
}

// Feeds returns the current feed catalog.
func (s *ConversionService) Feeds(ctx context.Context) ([]domain.Feed, error) {
	feeds, err := s.feeds.Feeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("conversion_service: feeds: %w", err)
	}
	return feeds, nil
}

// Get returns a recorded conversion by id.
func (s *ConversionService) Get(ctx context.Context, id string) (domain.Conversion, error) {
	if s.audit == nil {
		return domain.Conversion{}, fmt.Errorf("conversion_service: audit log disabled: %w", domain.ErrNotFound)
	}
	c, err := s.audit.GetByID(ctx, id)
	if err != nil {
		return domain.Conversion{}, fmt.Errorf("conversion_service: get %s: %w", id, err)
	}
	return c, nil
}

// Recent lists recorded conversions, newest first.
func (s *ConversionService) Recent(ctx context.Context, opts domain.ListOpts) ([]domain.Conversion, error) {
	if s.audit == nil {
		return nil, fmt.Errorf("conversion_service: audit log disabled: %w", domain.ErrNotFound)
	}
	list, err := s.audit.ListRecent(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("conversion_service: list recent: %w", err)
	}
	return list, nil
}

func (s *ConversionService) record(ctx context.Context, rec domain.Conversion) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Insert(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.WarnContext(ctx, "conversion_service: audit insert failed",
			slog.String("id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ConversionService) publish(ctx context.Context, rec domain.Conversion) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		s.logger.WarnContext(ctx, "conversion_service: marshal event failed",
			slog.String("id", rec.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(context.WithoutCancel(ctx), ConversionsChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "conversion_service: publish failed",
			slog.String("id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

func parseInput(in ConvertInput) (decimal.Decimal, domain.AssetCode, domain.AssetCode, error) {
	raw := strings.TrimSpace(in.Amount)
	if raw == "" {
		return decimal.Decimal{}, "", "", fmt.Errorf("conversion_service: %w: empty", domain.ErrInvalidAmount)
	}
	if len(raw) > maxAmountLength {
		return decimal.Decimal{}, "", "", fmt.Errorf("conversion_service: %w: longer than %d characters", domain.ErrInvalidAmount, maxAmountLength)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, "", "", fmt.Errorf("conversion_service: %w: %q", domain.ErrInvalidAmount, raw)
	}
	if exp := amount.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Decimal{}, "", "", fmt.Errorf("conversion_service: %w: exponent %d out of range", domain.ErrInvalidAmount, exp)
	}

	from, err := parseAsset(in.From)
	if err != nil {
		return decimal.Decimal{}, "", "", err
	}
	to, err := parseAsset(in.To)
	if err != nil {
		return decimal.Decimal{}, "", "", err
	}
	return amount, from, to, nil
}

func parseAsset(s string) (domain.AssetCode, error) {
	code := strings.TrimSpace(s)
	if code == "" {
		return "", fmt.Errorf("conversion_service: %w: empty", domain.ErrInvalidAsset)
	}
	if strings.ContainsAny(code, " \t\r\n") {
		return "", fmt.Errorf("conversion_service: %w: %q", domain.ErrInvalidAsset, code)
	}
	return domain.AssetCode(code), nil
}

// IsClientError reports whether err was caused by the request rather than
// by configuration or an upstream oracle.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInvalidAsset) ||
		errors.Is(err, domain.ErrNoRouteFound) ||
		errors.Is(err, domain.ErrNonTerminating)
}
