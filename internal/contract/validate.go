// Package contract validates raw option contract input and normalizes it
// into model.ContractParameters.
package contract

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/options-engine/internal/model"
)

// DaysPerYear converts calendar days to years for time-to-expiry.
const DaysPerYear = 365.25

// ErrInvalidContract is matched by every *ValidationError.
var ErrInvalidContract = errors.New("contract: invalid parameters")

// Field names used in ValidationError.
const (
	FieldTicker     = "ticker"
	FieldSymbol     = "symbol"
	FieldStrike     = "strike"
	FieldSpot       = "stock_price"
	FieldIV         = "iv"
	FieldRate       = "r"
	FieldExpiration = "expiration"
	FieldDTE        = "dte"
	FieldOptionType = "option_type"
	FieldPremium    = "premium_paid"
	FieldDaysHeld   = "days_held"
	FieldRangePct   = "price_range_pct"
	FieldPointCount = "point_count"
	FieldDecayDays  = "decay_days"
)

// ValidationError names the offending input field and why it was rejected.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("contract: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidContract }

// Invalid builds a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Raw is contract input as typed by a user or delivered by a broker feed.
// Either Expiration or DTE must be set. Symbol, when present, fills in the
// ticker, strike, expiration and type that are left blank.
type Raw struct {
	Ticker            string `json:"ticker"`
	Symbol            string `json:"symbol,omitempty"`
	Strike            Value  `json:"strike"`
	Spot              Value  `json:"stock_price"`
	ImpliedVolatility Value  `json:"iv"`
	RiskFreeRate      Value  `json:"r"`
	Expiration        string `json:"expiration,omitempty"`
	DTE               Value  `json:"dte,omitempty"`
	OptionType        string `json:"option_type"`
	PremiumPaid       Value  `json:"premium_paid,omitempty"`
}

// maxDTE bounds the dte field at a century.
const maxDTE = 36500

var expirationLayouts = []string{"2006-01-02", "20060102", "01/02/2006"}

// Validate checks raw and returns the canonical parameter record, with time
// to expiry measured from the calendar date of asOf. Expired contracts are
// accepted with TimeToExpiry 0.
func Validate(raw Raw, asOf time.Time) (model.ContractParameters, error) {
	var p model.ContractParameters

	if raw.Symbol != "" {
		merged, err := raw.withSymbol()
		if err != nil {
			return p, err
		}
		raw = merged
	}

	p.Ticker = strings.ToUpper(strings.TrimSpace(raw.Ticker))

	var err error
	if p.Strike, err = positive(FieldStrike, raw.Strike); err != nil {
		return p, err
	}
	if p.Spot, err = positive(FieldSpot, raw.Spot); err != nil {
		return p, err
	}
	if p.ImpliedVolatility, err = nonNegative(FieldIV, raw.ImpliedVolatility); err != nil {
		return p, err
	}
	if p.RiskFreeRate, err = nonNegative(FieldRate, raw.RiskFreeRate); err != nil {
		return p, err
	}
	if !raw.PremiumPaid.IsZero() {
		if p.PremiumPaid, err = nonNegative(FieldPremium, raw.PremiumPaid); err != nil {
			return p, err
		}
	}
	if p.OptionType, err = ParseOptionType(raw.OptionType); err != nil {
		return p, err
	}

	days, err := daysToExpiry(raw, asOf)
	if err != nil {
		return p, err
	}
	p.DaysToExpiry = int(days)
	if days > 0 {
		p.TimeToExpiry = days / DaysPerYear
	}
	return p, nil
}

// ParseOptionType accepts CALL/PUT or C/P in any case.
func ParseOptionType(s string) (model.OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "C":
		return model.Call, nil
	case "PUT", "P":
		return model.Put, nil
	case "":
		return "", Invalid(FieldOptionType, "required")
	default:
		return "", Invalid(FieldOptionType, fmt.Sprintf("%q is not CALL or PUT", s))
	}
}

func daysToExpiry(raw Raw, asOf time.Time) (float64, error) {
	if exp := strings.TrimSpace(raw.Expiration); exp != "" {
		expDate, err := parseDate(exp)
		if err != nil {
			return 0, Invalid(FieldExpiration, fmt.Sprintf("cannot parse %q", exp))
		}
		today := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
		return expDate.Sub(today).Hours() / 24, nil
	}
	if raw.DTE.IsZero() {
		return 0, Invalid(FieldExpiration, "expiration date or dte required")
	}
	days, err := nonNegative(FieldDTE, raw.DTE)
	if err != nil {
		return 0, err
	}
	if days > maxDTE {
		return 0, Invalid(FieldDTE, fmt.Sprintf("must be at most %d", maxDTE))
	}
	return days, nil
}

// ParseExpiration parses an expiration date in any accepted layout.
func ParseExpiration(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, Invalid(FieldExpiration, "required")
	}
	t, err := parseDate(s)
	if err != nil {
		return time.Time{}, Invalid(FieldExpiration, fmt.Sprintf("cannot parse %q", s))
	}
	return t, nil
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range expirationLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func number(field string, v Value) (decimal.Decimal, error) {
	if v.IsZero() {
		return decimal.Zero, Invalid(field, "required")
	}
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, Invalid(field, fmt.Sprintf("%q is not a number", v.String()))
	}
	return d, nil
}

func positive(field string, v Value) (float64, error) {
	d, err := number(field, v)
	if err != nil {
		return 0, err
	}
	if !d.IsPositive() {
		return 0, Invalid(field, "must be greater than zero")
	}
	return finite(field, d)
}

func nonNegative(field string, v Value) (float64, error) {
	d, err := number(field, v)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, Invalid(field, "must not be negative")
	}
	return finite(field, d)
}

// finite converts d, rejecting values too large for a float64.
func finite(field string, d decimal.Decimal) (float64, error) {
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, Invalid(field, "out of range")
	}
	return f, nil
}
