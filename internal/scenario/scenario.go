// Package scenario projects option P&L across underlying prices and holding
// periods.
//
// RepriceCurve is the authoritative projection: every grid point is priced
// with the full Black-Scholes model. LinearEstimate is a first-order
// shortcut for interactive feedback and ignores gamma; callers must not
// present one in place of the other.
package scenario

import (
	"fmt"
	"math"

	"github.com/atmx/options-engine/internal/blackscholes"
	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/model"
)

const (
	// DefaultPointCount is the number of grid points on a repriced curve.
	DefaultPointCount = 50

	// DefaultPriceRangePct is the half-width of the grid around spot.
	DefaultPriceRangePct = 0.30

	// HoldingDaysPerYear converts days held into years of decay.
	HoldingDaysPerYear = 365.0

	// MaxPointCount bounds the grid a single request may ask for.
	MaxPointCount = 1000
)

// LinearEstimate approximates the dollar P&L of one contract after the
// underlying moves by stockMove and daysHeld days pass:
//
//	(delta·move − |theta per share|·days) × 100
func LinearEstimate(p model.ContractParameters, daysHeld int, stockMove float64) float64 {
	g := blackscholes.Price(p)
	return linear(g, daysHeld, stockMove)
}

func linear(g model.GreeksResult, daysHeld int, stockMove float64) float64 {
	return (g.Delta*stockMove - math.Abs(g.ThetaPerShare())*float64(daysHeld)) * model.ContractMultiplier
}

// RemainingTime returns T after daysHeld days, clamped at expiration.
func RemainingTime(p model.ContractParameters, daysHeld int) float64 {
	held := float64(daysHeld) / HoldingDaysPerYear
	if held >= p.TimeToExpiry {
		return 0
	}
	return p.TimeToExpiry - held
}

// PriceGrid returns pointCount evenly spaced, strictly ascending prices over
// [S·(1−pct), S·(1+pct)].
func PriceGrid(spot, priceRangePct float64, pointCount int) ([]float64, error) {
	if err := checkGrid(priceRangePct, pointCount); err != nil {
		return nil, err
	}
	lo := spot * (1 - priceRangePct)
	hi := spot * (1 + priceRangePct)
	step := (hi - lo) / float64(pointCount-1)

	grid := make([]float64, pointCount)
	for i := range grid {
		grid[i] = lo + float64(i)*step
	}
	grid[pointCount-1] = hi
	return grid, nil
}

// RepriceCurve prices the contract at every grid point after daysHeld days,
// holding volatility and rate fixed. P&L is per contract against the premium
// paid. Holding periods past expiration price at the expiration payoff.
func RepriceCurve(p model.ContractParameters, daysHeld int, priceRangePct float64, pointCount int) (model.PnLCurve, error) {
	if daysHeld < 0 {
		return model.PnLCurve{}, contract.Invalid(contract.FieldDaysHeld, "must not be negative")
	}
	grid, err := PriceGrid(p.Spot, priceRangePct, pointCount)
	if err != nil {
		return model.PnLCurve{}, err
	}
	return curveOnGrid(p, daysHeld, grid), nil
}

func curveOnGrid(p model.ContractParameters, daysHeld int, grid []float64) model.PnLCurve {
	held := p.WithTimeToExpiry(RemainingTime(p, daysHeld))

	points := make([]model.PnLPoint, len(grid))
	for i, s := range grid {
		g := blackscholes.Price(held.WithSpot(s))
		points[i] = model.PnLPoint{
			StockPrice:  s,
			OptionPrice: g.TheoreticalPrice,
			PnLDollars:  (g.TheoreticalPrice - p.PremiumPaid) * model.ContractMultiplier,
		}
	}
	return model.PnLCurve{DaysHeld: daysHeld, Points: points}
}

func checkGrid(priceRangePct float64, pointCount int) error {
	if pointCount < 2 {
		return contract.Invalid(contract.FieldPointCount, "must be at least 2")
	}
	if pointCount > MaxPointCount {
		return contract.Invalid(contract.FieldPointCount, fmt.Sprintf("must be at most %d", MaxPointCount))
	}
	if !(priceRangePct > 0 && priceRangePct < 1) {
		return contract.Invalid(contract.FieldRangePct, "must be between 0 and 1 exclusive")
	}
	return nil
}
