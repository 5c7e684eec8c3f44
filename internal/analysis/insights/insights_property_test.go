package insights

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trade-journal/internal/analysis/stats"
	"trade-journal/internal/models"
)

func genHistory() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOf(gen.Float64Range(-500, 500)),
		gen.IntRange(1, 240),
	).Map(func(v []interface{}) []models.Trade {
		pnls := v[0].([]float64)
		hold := time.Duration(v[1].(int)) * time.Minute
		return history(hold, pnls...)
	})
}

func genEmotionLogs() gopter.Gen {
	sentiments := []models.Sentiment{models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral}
	return gen.SliceOf(gopter.CombineGens(
		gen.IntRange(0, 2),
		gen.IntRange(1, 10),
		gen.IntRange(0, 5),
	).Map(func(v []interface{}) models.EmotionLog {
		s := sentiments[v[0].(int)]
		return models.EmotionLog{
			EmotionName: string(s) + "-feeling",
			Sentiment:   s,
			Intensity:   v[1].(int),
			TradeID:     string(rune('a' + v[2].(int))),
		}
	}))
}

// Property: both lists are ordered by ascending priority and, within equal
// priority, by descending confidence.
func TestProperty_InsightOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	ordered := func(list []Insight) bool {
		for i := 1; i < len(list); i++ {
			a, b := list[i-1], list[i]
			if a.Priority > b.Priority {
				return false
			}
			if a.Priority == b.Priority && a.Confidence < b.Confidence {
				return false
			}
		}
		return true
	}

	properties.Property("errors and advice are ranked", prop.ForAll(
		func(trades []models.Trade, logs []models.EmotionLog) bool {
			r := analyze(trades, logs)
			return ordered(r.Errors) && ordered(r.Advice)
		},
		genHistory(),
		genEmotionLogs(),
	))

	properties.Property("errors hold only error insights", prop.ForAll(
		func(trades []models.Trade, logs []models.EmotionLog) bool {
			r := analyze(trades, logs)
			for _, ins := range r.Errors {
				if ins.Type != TypeError {
					return false
				}
			}
			for _, ins := range r.Advice {
				if ins.Type == TypeError {
					return false
				}
			}
			return true
		},
		genHistory(),
		genEmotionLogs(),
	))

	properties.TestingRun(t)
}

// Property: analysis is deterministic for identical input.
func TestProperty_AnalyzeIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("same input gives same report", prop.ForAll(
		func(trades []models.Trade, logs []models.EmotionLog) bool {
			return reflect.DeepEqual(analyze(trades, logs), analyze(trades, logs))
		},
		genHistory(),
		genEmotionLogs(),
	))

	properties.TestingRun(t)
}

// Property: drawdown above the critical threshold always reports the critical
// insight and never the warning-level one. A losing profit factor always
// reports losing money and never an outstanding profit factor.
func TestProperty_ThresholdContracts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("drawdown and profit factor contracts hold", prop.ForAll(
		func(trades []models.Trade) bool {
			a := stats.Compute(trades)
			r := Analyze(trades, a, nil, stats.SummarizeEmotions(nil, trades))

			crit, hasCrit := find(r, "risk.critical-drawdown")
			_, hasHigh := find(r, "risk.high-drawdown")
			if a.MaxDrawdown > CriticalDrawdownPct {
				if !hasCrit || crit.Confidence != 95 || hasHigh {
					return false
				}
			} else if hasCrit {
				return false
			}

			_, losing := find(r, "profit-factor.losing-money")
			_, outstanding := find(r, "profit-factor.outstanding")
			if losing && outstanding {
				return false
			}
			if a.GrossLoss > 0 && a.GrossProfit < a.GrossLoss {
				return losing
			}
			if a.GrossLoss > 0 && a.GrossProfit >= 2*a.GrossLoss {
				return outstanding
			}
			return true
		},
		genHistory(),
	))

	properties.TestingRun(t)
}
