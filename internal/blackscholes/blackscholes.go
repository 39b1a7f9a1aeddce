// Package blackscholes prices European options and their Greeks with the
// Black-Scholes closed form.
//
// Greeks are reported in the units a retail trader reads off a chain:
//   - Theta: dollars per calendar day for one contract (x100 shares)
//   - Vega: price change per 1 point of implied volatility
//   - Rho: price change per 1 point of the risk-free rate
//
// Degenerate inputs never produce NaN. An expired contract is worth its
// intrinsic value; a contract with no volatility is worth its discounted
// intrinsic value. In both cases the Greeks take their limiting values.
package blackscholes

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/atmx/options-engine/internal/model"
)

// DaysPerYear is the day count used to express theta per calendar day.
const DaysPerYear = 365.0

// minVolTime is the smallest σ·√T treated as a diffusion. Below it the
// zero-volatility limits apply.
const minVolTime = 1e-12

// normal is N(0,1). Its CDF is erfc based.
var normal = distuv.UnitNormal

// Price values the contract described by p.
func Price(p model.ContractParameters) model.GreeksResult {
	return Compute(p.Spot, p.Strike, p.RiskFreeRate, p.ImpliedVolatility, p.TimeToExpiry, p.OptionType)
}

// Compute returns the price and Greeks of a European option.
//
//	d1 = (ln(S/K) + (r + σ²/2)·T) / (σ·√T)
//	d2 = d1 − σ·√T
func Compute(s, k, r, sigma, t float64, typ model.OptionType) model.GreeksResult {
	if t <= 0 {
		return expired(s, k, typ)
	}

	sqrtT := math.Sqrt(t)
	volTime := sigma * sqrtT
	if volTime < minVolTime {
		return zeroVol(s, k, r, t, typ)
	}

	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / volTime
	d2 := d1 - volTime
	discount := math.Exp(-r * t)
	pdf1 := normal.Prob(d1)

	g := model.GreeksResult{
		Gamma: pdf1 / (s * volTime),
		Vega:  s * pdf1 * sqrtT / 100,
	}

	decay := -(s * pdf1 * sigma) / (2 * sqrtT)
	var theta float64
	if typ == model.Put {
		g.TheoreticalPrice = k*discount*normal.CDF(-d2) - s*normal.CDF(-d1)
		g.Delta = normal.CDF(d1) - 1
		theta = decay + r*k*discount*normal.CDF(-d2)
		g.Rho = -k * t * discount * normal.CDF(-d2) / 100
	} else {
		g.TheoreticalPrice = s*normal.CDF(d1) - k*discount*normal.CDF(d2)
		g.Delta = normal.CDF(d1)
		theta = decay - r*k*discount*normal.CDF(d2)
		g.Rho = k * t * discount * normal.CDF(d2) / 100
	}
	g.Theta = theta / DaysPerYear * model.ContractMultiplier

	// Deep out of the money the closed form can round a hair below zero.
	if g.TheoreticalPrice < 0 {
		g.TheoreticalPrice = 0
	}
	return g
}

// IntrinsicValue is the immediate exercise payoff.
func IntrinsicValue(s, k float64, typ model.OptionType) float64 {
	if typ == model.Put {
		return math.Max(k-s, 0)
	}
	return math.Max(s-k, 0)
}

// ExtrinsicValue is price minus intrinsic value.
func ExtrinsicValue(price, s, k float64, typ model.OptionType) float64 {
	return price - IntrinsicValue(s, k, typ)
}

// expired: intrinsic value, delta is the moneyness step with 0 at the strike.
func expired(s, k float64, typ model.OptionType) model.GreeksResult {
	return model.GreeksResult{
		TheoreticalPrice: IntrinsicValue(s, k, typ),
		Delta:            stepDelta(s, k, typ),
	}
}

// zeroVol is the σ→0 limit: the option is a forward struck at the
// discounted strike when in the money and worthless otherwise. Delta steps
// at S = K·e^{-rT}, not at S = K; the two coincide only when r = 0.
func zeroVol(s, k, r, t float64, typ model.OptionType) model.GreeksResult {
	discount := math.Exp(-r * t)
	fwdStrike := k * discount

	g := model.GreeksResult{
		TheoreticalPrice: IntrinsicValue(s, fwdStrike, typ),
		Delta:            stepDelta(s, fwdStrike, typ),
	}
	switch {
	case typ == model.Call && s > fwdStrike:
		g.Theta = -r * fwdStrike / DaysPerYear * model.ContractMultiplier
		g.Rho = k * t * discount / 100
	case typ == model.Put && s < fwdStrike:
		g.Theta = r * fwdStrike / DaysPerYear * model.ContractMultiplier
		g.Rho = -k * t * discount / 100
	}
	return g
}

func stepDelta(s, k float64, typ model.OptionType) float64 {
	switch {
	case typ == model.Put && s < k:
		return -1
	case typ == model.Call && s > k:
		return 1
	default:
		return 0
	}
}
