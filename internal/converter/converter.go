// Package converter converts an amount of one asset into another by routing
// through a graph of price feeds and composing their rates exactly.
package converter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/feedconv/internal/domain"
)

// Request is a single conversion. Feeds are supplied per request and are not
// retained after the call.
type Request struct {
	Amount    decimal.Decimal
	From      domain.AssetCode
	To        domain.AssetCode
	Transport Transport
	Feeds     []domain.Feed
}

// Result is the rendered amount together with the route that produced it.
// Route is empty when a shortcut applied.
type Result struct {
	Value string
	Route []domain.AssetCode
}

// Converter runs the conversion pipeline. It holds no per-request state and
// is safe for concurrent use.
type Converter struct {
	dial   Dialer
	logger *slog.Logger
}

// New creates a Converter. dial is used for Remote transports and may be nil
// when only Direct transports are expected.
func New(dial Dialer, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		dial:   dial,
		logger: logger.With(slog.String("component", "converter")),
	}
}

// Convert returns req.Amount expressed in req.To as a canonical decimal
// string.
func (c *Converter) Convert(ctx context.Context, req Request) (string, error) {
	res, err := c.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

// Run executes the pipeline: transport check, zero and identity shortcuts,
// route search, concurrent rate reads, exact composition, rendering.
func (c *Converter) Run(ctx context.Context, req Request) (Result, error) {
	transport, err := validateTransport(req.Transport)
	if err != nil {
		return Result{}, err
	}

	if req.Amount.IsZero() {
		return Result{Value: "0"}, nil
	}

	amount := RatioFromDecimal(req.Amount)
	if req.From == req.To {
		value, err := FormatRatio(amount)
		if err != nil {
			return Result{}, fmt.Errorf("converter: %w", err)
		}
		return Result{Value: value}, nil
	}

	path, err := FindPath(NewGraph(req.Feeds), req.From, req.To)
	if err != nil {
		return Result{}, fmt.Errorf("converter: %w", err)
	}

	oracle, release, err := c.oracleFor(ctx, transport)
	if err != nil {
		return Result{}, err
	}
	defer release()

	rates, err := NewResolver(oracle).ResolvePath(ctx, path)
	if err != nil {
		return Result{}, fmt.Errorf("converter: %w", err)
	}

	value, err := FormatRatio(Fold(amount, HopsFor(path, rates)))
	if err != nil {
		return Result{}, fmt.Errorf("converter: %w", err)
	}

	route := path.Assets()
	c.logger.DebugContext(ctx, "conversion resolved",
		slog.String("amount", req.Amount.String()),
		slog.String("from", string(req.From)),
		slog.String("to", string(req.To)),
		slog.Int("hops", len(path)),
		slog.String("route", joinRoute(route)),
		slog.String("result", value),
	)

	return Result{Value: value, Route: route}, nil
}

func (c *Converter) oracleFor(ctx context.Context, t Transport) (domain.OracleReader, func(), error) {
	switch v := t.(type) {
	case Direct:
		return v.Oracle, func() {}, nil
	case Remote:
		if c.dial == nil {
			return nil, nil, fmt.Errorf("converter: no dialer for endpoint %s", v.Endpoint)
		}
		oracle, release, err := c.dial(ctx, v.Endpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("converter: dial %s: %w: %w", v.Endpoint, domain.ErrOracleUnavailable, err)
		}
		if release == nil {
			release = func() {}
		}
		return oracle, release, nil
	default:
		return nil, nil, domain.ErrTransportConfig
	}
}

func joinRoute(route []domain.AssetCode) string {
	parts := make([]string, len(route))
	for i, a := range route {
		parts[i] = string(a)
	}
	return strings.Join(parts, "->")
}
