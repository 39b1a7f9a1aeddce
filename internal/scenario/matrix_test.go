package scenario

import (
	"errors"
	"testing"

	"github.com/atmx/options-engine/internal/blackscholes"
	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/model"
)

func TestBuildDecayMatrix_DefaultDays(t *testing.T) {
	m, err := BuildDecayMatrix(params(model.Call, 30), nil, DefaultPriceRangePct, DefaultPointCount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Days) != 5 || len(m.Curves) != 5 {
		t.Fatalf("expected 5 curves, got days=%v curves=%d", m.Days, len(m.Curves))
	}
	for i, d := range DefaultDecayDays {
		if m.Days[i] != d {
			t.Errorf("day order changed: %v", m.Days)
		}
		c, ok := m.Curve(d)
		if !ok {
			t.Fatalf("missing curve for %d days", d)
		}
		if c.DaysHeld != d {
			t.Errorf("curve keyed %d reports %d days held", d, c.DaysHeld)
		}
	}
}

func TestBuildDecayMatrix_SharedGrid(t *testing.T) {
	m, err := BuildDecayMatrix(params(model.Put, 30), nil, 0.25, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base := m.Curves[0].Points
	for _, d := range m.Days {
		pts := m.Curves[d].Points
		if len(pts) != len(base) {
			t.Fatalf("day %d: %d points, want %d", d, len(pts), len(base))
		}
		for i := range pts {
			if pts[i].StockPrice != base[i].StockPrice {
				t.Fatalf("day %d: grid differs at %d", d, i)
			}
		}
	}
}

func TestBuildDecayMatrix_ExtrinsicNonIncreasing(t *testing.T) {
	tests := []struct {
		name string
		p    model.ContractParameters
	}{
		{"call", params(model.Call, 30)},
		{"call short dated", params(model.Call, 12)},
		{"put zero rate", func() model.ContractParameters {
			p := params(model.Put, 30)
			p.RiskFreeRate = 0
			return p
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := BuildDecayMatrix(tt.p, nil, 0.3, 25)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i := range m.Curves[0].Points {
				prev := 0.0
				for j, d := range m.Days {
					pt := m.Curves[d].Points[i]
					ext := blackscholes.ExtrinsicValue(pt.OptionPrice, pt.StockPrice, tt.p.Strike, tt.p.OptionType)
					if j > 0 && ext > prev+1e-9 {
						t.Fatalf("S=%v: extrinsic rose from %v to %v at %d days", pt.StockPrice, prev, ext, d)
					}
					prev = ext
				}
			}
		})
	}
}

func TestBuildDecayMatrix_PastExpiryIsPayoff(t *testing.T) {
	p := params(model.Call, 12)
	m, err := BuildDecayMatrix(p, nil, 0.3, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, d := range []int{15, 20} {
		for _, pt := range m.Curves[d].Points {
			if ext := blackscholes.ExtrinsicValue(pt.OptionPrice, pt.StockPrice, p.Strike, p.OptionType); ext != 0 {
				t.Errorf("%d days: expected zero extrinsic past expiry, got %v", d, ext)
			}
		}
	}
}

func TestBuildDecayMatrix_CustomDaysMatchRepriceCurve(t *testing.T) {
	p := params(model.Call, 60)
	m, err := BuildDecayMatrix(p, []int{30, 3}, 0.3, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Days[0] != 30 || m.Days[1] != 3 {
		t.Errorf("expected caller order preserved, got %v", m.Days)
	}
	want, _ := RepriceCurve(p, 30, 0.3, 10)
	got := m.Curves[30]
	for i := range want.Points {
		if got.Points[i] != want.Points[i] {
			t.Fatalf("matrix curve differs from RepriceCurve at %d: %+v vs %+v", i, got.Points[i], want.Points[i])
		}
	}
}

func TestBuildDecayMatrix_InvalidDays(t *testing.T) {
	tooMany := make([]int, MaxDecayDays+1)
	for i := range tooMany {
		tooMany[i] = i
	}
	for _, days := range [][]int{{0, -5}, {5, 5}, tooMany} {
		_, err := BuildDecayMatrix(params(model.Call, 30), days, 0.3, 10)
		var ve *contract.ValidationError
		if !errors.As(err, &ve) || ve.Field != contract.FieldDecayDays {
			t.Errorf("days %v: expected decay_days validation error, got %v", days, err)
		}
	}
}
