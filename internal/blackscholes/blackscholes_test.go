package blackscholes

import (
	"math"
	"testing"

	"github.com/atmx/options-engine/internal/model"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// --- Reference values ---

func TestCompute_ClassicCall(t *testing.T) {
	g := Compute(100, 100, 0.05, 0.20, 1, model.Call)

	tests := []struct {
		name      string
		got, want float64
	}{
		{"price", g.TheoreticalPrice, 10.45},
		{"delta", g.Delta, 0.6368},
		{"gamma", g.Gamma, 0.0188},
		{"theta", g.Theta, -1.757},
		{"vega", g.Vega, 0.3752},
		{"rho", g.Rho, 0.5323},
	}
	for _, tt := range tests {
		if !almostEqual(tt.got, tt.want, 1e-2) {
			t.Errorf("%s: expected ≈ %v, got %v", tt.name, tt.want, tt.got)
		}
	}
}

func TestCompute_ClassicPut(t *testing.T) {
	g := Compute(100, 100, 0.05, 0.20, 1, model.Put)
	if !almostEqual(g.TheoreticalPrice, 5.5735, 1e-4) {
		t.Errorf("expected put ≈ 5.5735, got %v", g.TheoreticalPrice)
	}
	if !almostEqual(g.Delta, -0.3632, 1e-4) {
		t.Errorf("expected put delta ≈ -0.3632, got %v", g.Delta)
	}
	if !almostEqual(g.Rho, -0.4189, 1e-4) {
		t.Errorf("expected put rho ≈ -0.4189, got %v", g.Rho)
	}
}

func TestPrice_UsesContractParameters(t *testing.T) {
	p := model.ContractParameters{
		Strike: 100, Spot: 100, TimeToExpiry: 1,
		ImpliedVolatility: 0.2, RiskFreeRate: 0.05,
		OptionType: model.Call, PremiumPaid: 999,
	}
	want := Compute(100, 100, 0.05, 0.2, 1, model.Call)
	if got := Price(p); got != want {
		t.Errorf("premium must not affect pricing: got %+v want %+v", got, want)
	}
}

// --- Properties ---

type scenario struct {
	s, k, r, sigma, t float64
}

var scenarios = []scenario{
	{100, 100, 0.05, 0.20, 1},
	{50, 100, 0.03, 0.45, 0.25},
	{150, 100, 0.01, 0.15, 2},
	{100, 120, 0, 0.80, 0.05},
	{432.5, 430, 0.045, 0.18, 10.0 / 365.25},
	{20, 5, 0.10, 1.5, 3},
	{100, 100, 0.045, 0.01, 1.0 / 365.25},
}

func TestPutCallParity(t *testing.T) {
	for _, sc := range scenarios {
		call := Compute(sc.s, sc.k, sc.r, sc.sigma, sc.t, model.Call)
		put := Compute(sc.s, sc.k, sc.r, sc.sigma, sc.t, model.Put)
		left := call.TheoreticalPrice - put.TheoreticalPrice
		right := sc.s - sc.k*math.Exp(-sc.r*sc.t)
		if !almostEqual(left, right, 1e-6) {
			t.Errorf("parity mismatch %+v: C-P=%v S-Ke^-rT=%v", sc, left, right)
		}
	}
}

func TestDeltaRanges(t *testing.T) {
	for _, sc := range scenarios {
		call := Compute(sc.s, sc.k, sc.r, sc.sigma, sc.t, model.Call)
		put := Compute(sc.s, sc.k, sc.r, sc.sigma, sc.t, model.Put)
		if call.Delta < 0 || call.Delta > 1 {
			t.Errorf("call delta out of [0,1] for %+v: %v", sc, call.Delta)
		}
		if put.Delta < -1 || put.Delta > 0 {
			t.Errorf("put delta out of [-1,0] for %+v: %v", sc, put.Delta)
		}
	}
}

func TestGammaNonNegativeAndTypeIndependent(t *testing.T) {
	for _, sc := range scenarios {
		call := Compute(sc.s, sc.k, sc.r, sc.sigma, sc.t, model.Call)
		put := Compute(sc.s, sc.k, sc.r, sc.sigma, sc.t, model.Put)
		if call.Gamma < 0 {
			t.Errorf("negative gamma for %+v: %v", sc, call.Gamma)
		}
		if call.Gamma != put.Gamma {
			t.Errorf("gamma differs by type for %+v: call=%v put=%v", sc, call.Gamma, put.Gamma)
		}
		if call.Vega != put.Vega {
			t.Errorf("vega differs by type for %+v: call=%v put=%v", sc, call.Vega, put.Vega)
		}
	}
}

func TestDeltaConvergesToStepAsExpiryApproaches(t *testing.T) {
	tests := []struct {
		s    float64
		typ  model.OptionType
		want float64
	}{
		{110, model.Call, 1},
		{90, model.Call, 0},
		{90, model.Put, -1},
		{110, model.Put, 0},
	}
	for _, tt := range tests {
		near := Compute(tt.s, 100, 0.05, 0.3, 1e-8, tt.typ)
		if !almostEqual(near.Delta, tt.want, 1e-6) {
			t.Errorf("S=%v %s: delta near expiry %v, want %v", tt.s, tt.typ, near.Delta, tt.want)
		}
		at := Compute(tt.s, 100, 0.05, 0.3, 0, tt.typ)
		if at.Delta != tt.want {
			t.Errorf("S=%v %s: expired delta %v, want %v", tt.s, tt.typ, at.Delta, tt.want)
		}
	}
}

// --- Edge cases ---

func TestCompute_Expired(t *testing.T) {
	tests := []struct {
		name       string
		s          float64
		typ        model.OptionType
		price, dlt float64
	}{
		{"call ITM", 110, model.Call, 10, 1},
		{"call OTM", 90, model.Call, 0, 0},
		{"call ATM", 100, model.Call, 0, 0},
		{"put ITM", 90, model.Put, 10, -1},
		{"put OTM", 110, model.Put, 0, 0},
		{"put ATM", 100, model.Put, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, T := range []float64{0, -0.5} {
				g := Compute(tt.s, 100, 0.05, 0.2, T, tt.typ)
				if g.TheoreticalPrice != tt.price {
					t.Errorf("T=%v: expected price %v, got %v", T, tt.price, g.TheoreticalPrice)
				}
				if g.Delta != tt.dlt {
					t.Errorf("T=%v: expected delta %v, got %v", T, tt.dlt, g.Delta)
				}
				if g.Gamma != 0 || g.Theta != 0 || g.Vega != 0 || g.Rho != 0 {
					t.Errorf("T=%v: expected zero gamma/theta/vega/rho, got %+v", T, g)
				}
			}
		})
	}
}

func TestCompute_ZeroVolatility(t *testing.T) {
	s, k, r, T := 100.0, 120.0, 0.05, 1.0
	fwd := k * math.Exp(-r*T)

	call := Compute(s, k, r, 0, T, model.Call)
	if !almostEqual(call.TheoreticalPrice, math.Max(s-fwd, 0), 1e-12) {
		t.Errorf("zero-vol call price: got %v", call.TheoreticalPrice)
	}
	if call.Delta != 0 {
		t.Errorf("zero-vol OTM call delta should be 0, got %v", call.Delta)
	}

	put := Compute(s, k, r, 0, T, model.Put)
	if !almostEqual(put.TheoreticalPrice, fwd-s, 1e-12) {
		t.Errorf("zero-vol put price: expected %v, got %v", fwd-s, put.TheoreticalPrice)
	}
	if put.Delta != -1 {
		t.Errorf("zero-vol ITM put delta should be -1, got %v", put.Delta)
	}
	if put.Gamma != 0 || put.Vega != 0 {
		t.Errorf("zero-vol gamma/vega should be 0, got %+v", put)
	}

	// Parity holds in the limit too.
	if !almostEqual(call.TheoreticalPrice-put.TheoreticalPrice, s-fwd, 1e-9) {
		t.Errorf("zero-vol parity mismatch")
	}
}

func TestCompute_ZeroVolatilityDeltaStepsAtDiscountedStrike(t *testing.T) {
	// K·e^{-rT} ≈ 95.12, so S=98 is in the money for a call though below K.
	call := Compute(98, 100, 0.05, 0, 1, model.Call)
	if call.Delta != 1 {
		t.Errorf("expected call delta 1 above the discounted strike, got %v", call.Delta)
	}
	put := Compute(98, 100, 0.05, 0, 1, model.Put)
	if put.Delta != 0 {
		t.Errorf("expected put delta 0 above the discounted strike, got %v", put.Delta)
	}
	// With r=0 the step sits at K.
	if d := Compute(98, 100, 0, 0, 1, model.Call).Delta; d != 0 {
		t.Errorf("expected call delta 0 below K at r=0, got %v", d)
	}
}

func TestCompute_ZeroVolatilityLimitMatchesSmallVol(t *testing.T) {
	zero := Compute(130, 100, 0.05, 0, 0.5, model.Call)
	small := Compute(130, 100, 0.05, 1e-6, 0.5, model.Call)
	if !almostEqual(zero.TheoreticalPrice, small.TheoreticalPrice, 1e-6) {
		t.Errorf("price limit mismatch: %v vs %v", zero.TheoreticalPrice, small.TheoreticalPrice)
	}
	if !almostEqual(zero.Theta, small.Theta, 1e-6) {
		t.Errorf("theta limit mismatch: %v vs %v", zero.Theta, small.Theta)
	}
	if !almostEqual(zero.Rho, small.Rho, 1e-6) {
		t.Errorf("rho limit mismatch: %v vs %v", zero.Rho, small.Rho)
	}
}

func TestCompute_ExtremeInputs_NoNaN(t *testing.T) {
	tests := []scenario{
		{1e-6, 100, 0.05, 0.2, 1},
		{1e6, 1, 0.05, 0.2, 1},
		{100, 100, 0.05, 10, 30},
		{100, 100, 0, 1e-13, 1},
		{100, 100, 0.05, 0.2, 1e-15},
	}
	for _, sc := range tests {
		for _, typ := range []model.OptionType{model.Call, model.Put} {
			g := Compute(sc.s, sc.k, sc.r, sc.sigma, sc.t, typ)
			for _, v := range []float64{g.TheoreticalPrice, g.Delta, g.Gamma, g.Theta, g.Vega, g.Rho} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("non-finite result for %+v %s: %+v", sc, typ, g)
				}
			}
			if g.TheoreticalPrice < 0 {
				t.Errorf("negative price for %+v %s: %v", sc, typ, g.TheoreticalPrice)
			}
		}
	}
}

func TestExtrinsicValue(t *testing.T) {
	g := Compute(110, 100, 0.05, 0.2, 0.5, model.Call)
	ext := ExtrinsicValue(g.TheoreticalPrice, 110, 100, model.Call)
	if !almostEqual(ext, g.TheoreticalPrice-10, 1e-12) {
		t.Errorf("unexpected extrinsic value %v", ext)
	}
	if ext <= 0 {
		t.Errorf("call extrinsic value should be positive before expiry, got %v", ext)
	}
}

func TestThetaPerShare(t *testing.T) {
	g := Compute(100, 100, 0.05, 0.20, 1, model.Call)
	if !almostEqual(g.ThetaPerShare(), -0.01757, 1e-4) {
		t.Errorf("expected per-share theta ≈ -0.01757, got %v", g.ThetaPerShare())
	}
}
