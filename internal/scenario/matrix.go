package scenario

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/model"
)

// DefaultDecayDays are the holding periods shown in a time-decay matrix.
var DefaultDecayDays = []int{0, 5, 10, 15, 20}

// MaxDecayDays bounds the number of curves in one matrix.
const MaxDecayDays = 30

// BuildDecayMatrix reprices the contract for each holding period in days.
// Every curve shares one price grid so they compare point for point. Curves
// are built concurrently; the result preserves the order of days.
func BuildDecayMatrix(p model.ContractParameters, days []int, priceRangePct float64, pointCount int) (model.TimeDecayMatrix, error) {
	if len(days) == 0 {
		days = DefaultDecayDays
	}
	if len(days) > MaxDecayDays {
		return model.TimeDecayMatrix{}, contract.Invalid(contract.FieldDecayDays, fmt.Sprintf("at most %d holding periods", MaxDecayDays))
	}
	seen := make(map[int]bool, len(days))
	for _, d := range days {
		if d < 0 {
			return model.TimeDecayMatrix{}, contract.Invalid(contract.FieldDecayDays, fmt.Sprintf("%d is negative", d))
		}
		if seen[d] {
			return model.TimeDecayMatrix{}, contract.Invalid(contract.FieldDecayDays, fmt.Sprintf("%d listed twice", d))
		}
		seen[d] = true
	}

	grid, err := PriceGrid(p.Spot, priceRangePct, pointCount)
	if err != nil {
		return model.TimeDecayMatrix{}, err
	}

	curves := make([]model.PnLCurve, len(days))
	var g errgroup.Group
	for i, d := range days {
		g.Go(func() error {
			curves[i] = curveOnGrid(p, d, grid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.TimeDecayMatrix{}, err
	}

	m := model.TimeDecayMatrix{
		Days:   append([]int(nil), days...),
		Curves: make(map[int]model.PnLCurve, len(days)),
	}
	for i, d := range days {
		m.Curves[d] = curves[i]
	}
	return m, nil
}
