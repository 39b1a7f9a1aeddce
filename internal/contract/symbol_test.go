package contract

import (
	"testing"
	"time"

	"github.com/atmx/options-engine/internal/model"
)

func TestParseOptionSymbol_Valid(t *testing.T) {
	s, err := ParseOptionSymbol("AAPL250815C00150000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Ticker != "AAPL" {
		t.Errorf("expected ticker=AAPL, got %s", s.Ticker)
	}
	if s.OptionType != model.Call {
		t.Errorf("expected CALL, got %s", s.OptionType)
	}
	if s.Strike != 150 {
		t.Errorf("expected strike=150, got %v", s.Strike)
	}
	expected := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	if !s.Expiration.Equal(expected) {
		t.Errorf("expected expiry=%v, got %v", expected, s.Expiration)
	}
}

func TestParseOptionSymbol_PrefixedPut(t *testing.T) {
	s, err := ParseOptionSymbol("O:SPY251219P00432500")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.OptionType != model.Put || s.Strike != 432.5 || s.Ticker != "SPY" {
		t.Errorf("unexpected parse: %+v", s)
	}
}

func TestParseOptionSymbol_InvalidFormat(t *testing.T) {
	tests := []string{
		"",
		"AAPL",
		"AAPL250815",
		"AAPL250815X00150000",
		"AAPL251315C00150000", // month 13
		"AAPL250815C00000000", // zero strike
		"aapl250815C00150000",
	}
	for _, sym := range tests {
		if _, err := ParseOptionSymbol(sym); err == nil {
			t.Errorf("expected error for symbol %q", sym)
		}
	}
}

func TestValidate_SymbolFillsBlankFields(t *testing.T) {
	raw := Raw{
		Symbol:            "AAPL250815P00150000",
		Spot:              "140",
		ImpliedVolatility: "0.25",
		RiskFreeRate:      "0.04",
	}
	p, err := Validate(raw, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Ticker != "AAPL" || p.Strike != 150 || p.OptionType != model.Put {
		t.Errorf("symbol fields not applied: %+v", p)
	}
	if p.DaysToExpiry != 14 {
		t.Errorf("expected 14 days to expiry, got %d", p.DaysToExpiry)
	}
}

func TestValidate_BadSymbol(t *testing.T) {
	raw := validRaw()
	raw.Symbol = "NOT-A-SYMBOL"
	_, err := Validate(raw, asOf)
	if got := fieldOf(t, err); got != FieldSymbol {
		t.Errorf("expected field %s, got %s", FieldSymbol, got)
	}
}
