package domain

import "time"

// ConversionStatus records how a conversion ended.
type ConversionStatus string

const (
	ConversionOK     ConversionStatus = "ok"
	ConversionFailed ConversionStatus = "failed"
)

// Conversion is the audit record of one conversion request.
type Conversion struct {
	ID        string           `json:"id"`
	Amount    string           `json:"amount"`
	From      AssetCode        `json:"from"`
	To        AssetCode        `json:"to"`
	Result    string           `json:"result,omitempty"`
	Route     []AssetCode      `json:"route,omitempty"`
	Status    ConversionStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
	Duration  time.Duration    `json:"duration_ns"`
	CreatedAt time.Time        `json:"created_at"`
}
