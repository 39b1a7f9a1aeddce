package scenario

import (
	"errors"
	"math"
	"testing"

	"github.com/atmx/options-engine/internal/blackscholes"
	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/model"
)

func params(typ model.OptionType, days float64) model.ContractParameters {
	p := model.ContractParameters{
		Ticker:            "TEST",
		Strike:            100,
		Spot:              100,
		TimeToExpiry:      days / 365,
		DaysToExpiry:      int(days),
		ImpliedVolatility: 0.30,
		RiskFreeRate:      0.045,
		OptionType:        typ,
	}
	p.PremiumPaid = blackscholes.Price(p).TheoreticalPrice
	return p
}

// --- Linear estimate ---

func TestLinearEstimate_Formula(t *testing.T) {
	p := params(model.Call, 30)
	g := blackscholes.Price(p)

	got := LinearEstimate(p, 5, 2.5)
	want := (g.Delta*2.5 - math.Abs(g.Theta/100)*5) * 100
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLinearEstimate_NoMoveOnlyDecay(t *testing.T) {
	p := params(model.Put, 30)
	if got := LinearEstimate(p, 10, 0); got >= 0 {
		t.Errorf("time decay alone should lose money, got %v", got)
	}
	if got := LinearEstimate(p, 0, 0); got != 0 {
		t.Errorf("no move and no time should be zero, got %v", got)
	}
}

func TestLinearAndRepriceDivergeWithMove(t *testing.T) {
	p := params(model.Call, 45)

	gap := func(move float64) float64 {
		shifted := p.WithSpot(p.Spot + move)
		repriced := (blackscholes.Price(shifted).TheoreticalPrice - p.PremiumPaid) * 100
		return math.Abs(repriced - LinearEstimate(p, 0, move))
	}

	prev := 0.0
	for _, move := range []float64{1, 5, 10, 20, 30} {
		up, down := gap(move), gap(-move)
		if up <= prev || down <= prev {
			t.Errorf("gap should grow with |move|: move=%v up=%v down=%v prev=%v", move, up, down, prev)
		}
		prev = math.Min(up, down)
	}
}

// --- Repriced curve ---

func TestRepriceCurve_AscendingWithExactCount(t *testing.T) {
	p := params(model.Call, 30)
	for _, n := range []int{2, 7, DefaultPointCount, 201} {
		c, err := RepriceCurve(p, 5, DefaultPriceRangePct, n)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if len(c.Points) != n {
			t.Fatalf("expected %d points, got %d", n, len(c.Points))
		}
		for i := 1; i < len(c.Points); i++ {
			if c.Points[i].StockPrice <= c.Points[i-1].StockPrice {
				t.Fatalf("n=%d: prices not strictly ascending at %d", n, i)
			}
		}
		if math.Abs(c.Points[0].StockPrice-70) > 1e-9 || math.Abs(c.Points[n-1].StockPrice-130) > 1e-9 {
			t.Errorf("n=%d: grid should span [70,130], got [%v,%v]", n, c.Points[0].StockPrice, c.Points[n-1].StockPrice)
		}
	}
}

func TestRepriceCurve_PnLAgainstPremium(t *testing.T) {
	p := params(model.Put, 60)
	c, err := RepriceCurve(p, 10, 0.2, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	held := p.WithTimeToExpiry(p.TimeToExpiry - 10.0/365)
	for _, pt := range c.Points {
		want := (blackscholes.Price(held.WithSpot(pt.StockPrice)).TheoreticalPrice - p.PremiumPaid) * 100
		if math.Abs(pt.PnLDollars-want) > 1e-9 {
			t.Errorf("S=%v: expected pnl %v, got %v", pt.StockPrice, want, pt.PnLDollars)
		}
	}
	if c.DaysHeld != 10 {
		t.Errorf("expected days held 10, got %d", c.DaysHeld)
	}
}

func TestRepriceCurve_PastExpirationUsesPayoff(t *testing.T) {
	p := params(model.Call, 7)
	c, err := RepriceCurve(p, 30, 0.3, 13)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, pt := range c.Points {
		want := math.Max(pt.StockPrice-p.Strike, 0)
		if math.Abs(pt.OptionPrice-want) > 1e-12 {
			t.Errorf("S=%v: expected payoff %v, got %v", pt.StockPrice, want, pt.OptionPrice)
		}
	}
}

func TestRepriceCurve_InvalidConfig(t *testing.T) {
	p := params(model.Call, 30)
	tests := []struct {
		name  string
		days  int
		pct   float64
		n     int
		field string
	}{
		{"one point", 0, 0.3, 1, contract.FieldPointCount},
		{"oversized grid", 0, 0.3, 2_000_000_000, contract.FieldPointCount},
		{"zero range", 0, 0, 50, contract.FieldRangePct},
		{"full range", 0, 1, 50, contract.FieldRangePct},
		{"negative days", -1, 0.3, 50, contract.FieldDaysHeld},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RepriceCurve(p, tt.days, tt.pct, tt.n)
			var ve *contract.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ve.Field)
			}
		})
	}
}

func TestRemainingTime_Clamped(t *testing.T) {
	p := params(model.Call, 10)
	if got := RemainingTime(p, 10); got != 0 {
		t.Errorf("holding to expiry should leave 0, got %v", got)
	}
	if got := RemainingTime(p, 25); got != 0 {
		t.Errorf("holding past expiry should clamp to 0, got %v", got)
	}
	if got := RemainingTime(p, 4); math.Abs(got-6.0/365) > 1e-12 {
		t.Errorf("expected 6 days remaining, got %v", got)
	}
}
