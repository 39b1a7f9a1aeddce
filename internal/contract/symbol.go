package contract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/atmx/options-engine/internal/model"
)

// symbolRegex matches OCC option symbols: {root}{YYMMDD}{C|P}{strike*1000, 8 digits}
// with an optional "O:" vendor prefix.
// Example: AAPL250815C00150000
var symbolRegex = regexp.MustCompile(`^(?:O:)?([A-Z]{1,6})(\d{6})([CP])(\d{8})$`)

var ErrInvalidSymbol = errors.New("contract: invalid option symbol")

// Symbol is a parsed OCC option symbol.
type Symbol struct {
	Raw        string           `json:"symbol"`
	Ticker     string           `json:"ticker"`
	Expiration time.Time        `json:"expiration"`
	OptionType model.OptionType `json:"option_type"`
	Strike     float64          `json:"strike"`
}

// ParseOptionSymbol parses and validates an OCC option symbol.
func ParseOptionSymbol(sym string) (*Symbol, error) {
	matches := symbolRegex.FindStringSubmatch(sym)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected ROOT{YYMMDD}{C|P}{strike x1000})", ErrInvalidSymbol, sym)
	}

	expiry, err := time.Parse("060102", matches[2])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %s", ErrInvalidSymbol, matches[2])
	}

	optType := model.Call
	if matches[3] == "P" {
		optType = model.Put
	}

	milli, err := strconv.ParseInt(matches[4], 10, 64)
	if err != nil || milli == 0 {
		return nil, fmt.Errorf("%w: invalid strike %s", ErrInvalidSymbol, matches[4])
	}

	return &Symbol{
		Raw:        sym,
		Ticker:     matches[1],
		Expiration: expiry,
		OptionType: optType,
		Strike:     float64(milli) / 1000,
	}, nil
}

// withSymbol fills blank contract fields from raw.Symbol. Fields the caller
// did supply take precedence.
func (raw Raw) withSymbol() (Raw, error) {
	s, err := ParseOptionSymbol(raw.Symbol)
	if err != nil {
		return raw, Invalid(FieldSymbol, err.Error())
	}
	if raw.Ticker == "" {
		raw.Ticker = s.Ticker
	}
	if raw.Strike.IsZero() {
		raw.Strike = Number(s.Strike)
	}
	if raw.Expiration == "" && raw.DTE.IsZero() {
		raw.Expiration = s.Expiration.Format("2006-01-02")
	}
	if raw.OptionType == "" {
		raw.OptionType = string(s.OptionType)
	}
	return raw, nil
}
