package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidFeed       = errors.New("invalid feed")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidAsset      = errors.New("invalid asset code")
	ErrTransportConfig   = errors.New("Either 'provider' or 'endpoint' must be defined")
	ErrNoRouteFound      = errors.New("no route found")
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrInvalidAnswer     = errors.New("invalid oracle answer")
	ErrNonTerminating    = errors.New("result is not a terminating decimal")
)
