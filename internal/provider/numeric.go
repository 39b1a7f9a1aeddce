package provider

import (
	"github.com/shopspring/decimal"

	"github.com/atmx/options-engine/internal/contract"
)

// parseNumeric converts a nullable NUMERIC rendered as text. NULL and
// malformed values read as 0, which callers treat as "unknown".
func parseNumeric(s *string) float64 {
	if s == nil {
		return 0
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// nullableValue keeps NULL distinct from zero: NULL becomes a blank field
// so defaults and live data can fill it.
func nullableValue(s *string) contract.Value {
	if s == nil {
		return ""
	}
	return contract.Value(*s)
}
