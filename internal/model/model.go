// Package model defines the value types shared across the options engine.
// Every record is recomputed from scratch on each request; nothing here holds
// state between calls.
package model

import "time"

// ContractMultiplier converts per-share values into per-contract dollars.
const ContractMultiplier = 100.0

// OptionType is the right carried by a contract.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// ContractParameters is the canonical, validated input to every engine
// operation. It is passed by value; callers cannot mutate a computation in
// flight.
type ContractParameters struct {
	Ticker            string     `json:"ticker"` // informational only
	Strike            float64    `json:"strike"`
	Spot              float64    `json:"spot"`
	TimeToExpiry      float64    `json:"time_to_expiry"` // years, 0 when expired
	DaysToExpiry      int        `json:"days_to_expiry"` // calendar days, may be negative
	ImpliedVolatility float64    `json:"implied_volatility"`
	RiskFreeRate      float64    `json:"risk_free_rate"`
	OptionType        OptionType `json:"option_type"`
	PremiumPaid       float64    `json:"premium_paid"` // P&L only, never used in pricing
}

// Expired reports whether pricing must fall back to intrinsic value.
func (p ContractParameters) Expired() bool {
	return p.TimeToExpiry <= 0
}

// WithSpot returns a copy of p repriced at a different underlying price.
func (p ContractParameters) WithSpot(spot float64) ContractParameters {
	p.Spot = spot
	return p
}

// WithTimeToExpiry returns a copy of p with T replaced, clamped at zero.
func (p ContractParameters) WithTimeToExpiry(t float64) ContractParameters {
	if t < 0 {
		t = 0
	}
	p.TimeToExpiry = t
	return p
}

// GreeksResult holds a Black-Scholes valuation.
type GreeksResult struct {
	Delta            float64 `json:"delta"`
	Gamma            float64 `json:"gamma"`
	Theta            float64 `json:"theta"` // dollars per day per contract
	Vega             float64 `json:"vega"`  // per 1 point of IV
	Rho              float64 `json:"rho"`   // per 1 point of rate
	TheoreticalPrice float64 `json:"theoretical_price"`
}

// ThetaPerShare returns the daily theta of a single share.
func (g GreeksResult) ThetaPerShare() float64 {
	return g.Theta / ContractMultiplier
}

// PnLPoint is one sample of a P&L curve.
type PnLPoint struct {
	StockPrice  float64 `json:"stock_price"`
	PnLDollars  float64 `json:"pnl"`
	OptionPrice float64 `json:"option_price"`
}

// PnLCurve is a P&L projection over a price grid, ascending by StockPrice.
type PnLCurve struct {
	DaysHeld int        `json:"days_held"`
	Points   []PnLPoint `json:"points"`
}

// TimeDecayMatrix maps holding periods to curves built on one shared grid.
type TimeDecayMatrix struct {
	Days   []int            `json:"days"`
	Curves map[int]PnLCurve `json:"curves"`
}

// Curve returns the curve for d days held.
func (m TimeDecayMatrix) Curve(d int) (PnLCurve, bool) {
	c, ok := m.Curves[d]
	return c, ok
}

// WatchdogState is the outcome of one theta threshold evaluation.
type WatchdogState struct {
	ThresholdDollars    float64 `json:"threshold_dollars"`
	CurrentThetaDollars float64 `json:"current_theta_dollars"`
	Triggered           bool    `json:"triggered"`
}

// Quote is a market snapshot supplied by a data provider.
type Quote struct {
	Ticker            string    `json:"ticker"`
	SpotPrice         float64   `json:"spot_price"`
	ImpliedVolatility float64   `json:"implied_volatility,omitempty"` // 0 when unknown
	Mark              float64   `json:"mark,omitempty"`               // option mark, 0 when unknown
	Source            string    `json:"source"`
	AsOf              time.Time `json:"as_of"`
}
