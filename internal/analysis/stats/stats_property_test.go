package stats

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: for any P&L sequence the aggregate is internally consistent.
// Counts add up and win rate stays within [0, 100]. Drawdown is measured
// against the running peak, so it passes 100% once equity falls below zero;
// it is bounded by the deepest fall after any peak instead.
func TestProperty_AnalyticsConsistency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	pnlGen := gen.SliceOf(gen.Float64Range(-1000, 1000))

	properties.Property("counts, win rate and drawdown are consistent", prop.ForAll(
		func(pnls []float64) bool {
			a := Compute(closedTrades(pnls...))

			if a.TotalTrades != len(pnls) {
				return false
			}
			if a.WinningTrades+a.LosingTrades+a.BreakevenTrades != a.TotalTrades {
				return false
			}
			if a.WinRate < 0 || a.WinRate > 100 {
				return false
			}
			if a.MaxDrawdown < 0 || a.MaxDrawdownAmount < 0 {
				return false
			}
			if (a.MaxDrawdown == 0) != (a.MaxDrawdownAmount == 0) {
				return false
			}

			var peak, sum, deepest float64
			for _, p := range pnls {
				sum += p
				peak = math.Max(peak, sum)
				deepest = math.Max(deepest, peak-sum)
			}
			if a.MaxDrawdownAmount > deepest+1e-9 {
				return false
			}
			// the percentage is taken against a peak no higher than the overall one
			if peak > 0 && a.MaxDrawdown < a.MaxDrawdownAmount/peak*100-1e-6 {
				return false
			}
			return math.Abs(a.TotalPnL-sum) < 1e-6
		},
		pnlGen,
	))

	properties.Property("profit factor below one iff losses exceed gains", prop.ForAll(
		func(pnls []float64) bool {
			a := Compute(closedTrades(pnls...))
			if a.GrossLoss == 0 {
				return a.ProfitFactor == 0
			}
			return (a.ProfitFactor < 1) == (a.GrossProfit < a.GrossLoss)
		},
		pnlGen,
	))

	properties.TestingRun(t)
}
