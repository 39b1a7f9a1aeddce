// Package watchdog flags contracts whose daily time decay exceeds a dollar
// threshold chosen by the trader.
//
// Evaluation is stateless: each call compares one theta figure against one
// threshold. There is no hysteresis, so a theta hovering at the threshold
// can flip between calls.
package watchdog

import (
	"math"

	"github.com/atmx/options-engine/internal/model"
)

// DefaultThresholdDollars is the alert level used when the caller sets none.
const DefaultThresholdDollars = 50.0

// Evaluate compares the magnitude of daily dollar theta with the threshold.
// Equality does not trigger.
func Evaluate(dailyThetaDollars, thresholdDollars float64) model.WatchdogState {
	return model.WatchdogState{
		ThresholdDollars:    thresholdDollars,
		CurrentThetaDollars: dailyThetaDollars,
		Triggered:           math.Abs(dailyThetaDollars) > thresholdDollars,
	}
}

// EvaluateGreeks runs Evaluate on the theta of a priced contract.
func EvaluateGreeks(g model.GreeksResult, thresholdDollars float64) model.WatchdogState {
	return Evaluate(g.Theta, thresholdDollars)
}
