package insights

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"trade-journal/internal/models"
)

// Generator evaluates a rule catalog against a trading history.
type Generator struct {
	rules  []Rule
	logger zerolog.Logger
}

// NewGenerator creates a generator over the built-in catalog. Skipped rules
// are reported to logger at debug level.
func NewGenerator(logger zerolog.Logger) *Generator {
	return newGeneratorWithRules(Catalog(), logger)
}

func newGeneratorWithRules(rules []Rule, logger zerolog.Logger) *Generator {
	return &Generator{
		rules:  rules,
		logger: logger.With().Str("component", "insights").Logger(),
	}
}

// Analyze runs the built-in catalog without logging.
func Analyze(trades []models.Trade, stats models.TradeAnalytics, logs []models.EmotionLog, emotions models.EmotionStats) Report {
	return NewGenerator(zerolog.Nop()).Analyze(trades, stats, logs, emotions)
}

// Rules returns the IDs of the rules this generator evaluates, in order.
func (g *Generator) Rules() []string {
	ids := make([]string, len(g.rules))
	for i, r := range g.rules {
		ids[i] = r.ID
	}
	return ids
}

// Analyze evaluates every rule and returns the matches split into errors and
// advice, each ordered by ascending priority then descending confidence.
// A rule that fails or panics is skipped. Analyze never fails.
func (g *Generator) Analyze(trades []models.Trade, stats models.TradeAnalytics, logs []models.EmotionLog, emotions models.EmotionStats) Report {
	in := &Input{
		Trades:      trades,
		Stats:       stats,
		EmotionLogs: logs,
		Emotions:    emotions,
	}

	report := Report{
		Errors: []Insight{},
		Advice: []Insight{},
	}

	for _, rule := range g.rules {
		ins, ok, err := evaluate(rule, in)
		if err != nil {
			g.logger.Debug().Str("rule_id", rule.ID).Err(err).Msg("Rule skipped")
			continue
		}
		if !ok {
			continue
		}
		if ins.Type == TypeError {
			report.Errors = append(report.Errors, ins)
		} else {
			report.Advice = append(report.Advice, ins)
		}
	}

	rank(report.Errors)
	rank(report.Advice)

	g.logger.Debug().
		Int("trades", stats.TotalTrades).
		Int("errors", len(report.Errors)).
		Int("advice", len(report.Advice)).
		Msg("Analysis complete")

	return report
}

// evaluate runs a single rule, converting a panic into an error.
func evaluate(rule Rule, in *Input) (ins Insight, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ins, ok, err = Insight{}, false, fmt.Errorf("rule panicked: %v", r)
		}
	}()

	if rule.Match == nil || rule.Message == nil {
		return Insight{}, false, fmt.Errorf("rule %s is incomplete", rule.ID)
	}

	matched, err := rule.Match(in)
	if err != nil || !matched {
		return Insight{}, false, err
	}
	return rule.insight(rule.Message(in)), true, nil
}

// rank orders insights by ascending priority, then descending confidence.
// Ties keep catalog order.
func rank(list []Insight) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Priority != list[j].Priority {
			return list[i].Priority < list[j].Priority
		}
		return list[i].Confidence > list[j].Confidence
	})
}
