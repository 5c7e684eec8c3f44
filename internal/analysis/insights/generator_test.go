package insights

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/analysis/stats"
	"trade-journal/internal/models"
)

var baseTime = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

// history builds closed trades one hour apart, each held for hold.
func history(hold time.Duration, pnls ...float64) []models.Trade {
	trades := make([]models.Trade, len(pnls))
	for i, p := range pnls {
		entry := baseTime.Add(time.Duration(i) * time.Hour)
		exit := entry.Add(hold)
		stop := 95.0
		trades[i] = models.Trade{
			ID:         string(rune('a' + i)),
			Status:     models.TradeClosed,
			Direction:  models.DirectionLong,
			EntryPrice: 100,
			StopLoss:   &stop,
			EntryTime:  entry,
			ExitTime:   &exit,
			PnL:        p,
		}
	}
	return trades
}

func analyze(trades []models.Trade, logs []models.EmotionLog) Report {
	return Analyze(trades, stats.Compute(trades), logs, stats.SummarizeEmotions(logs, trades))
}

func ids(list []Insight) []string {
	out := make([]string, len(list))
	for i, ins := range list {
		out[i] = ins.ID
	}
	return out
}

func find(r Report, id string) (Insight, bool) {
	for _, ins := range append(append([]Insight{}, r.Errors...), r.Advice...) {
		if ins.ID == id {
			return ins, true
		}
	}
	return Insight{}, false
}

func TestAnalyzeEmpty(t *testing.T) {
	r := analyze(nil, nil)

	require.NotNil(t, r.Errors)
	require.NotNil(t, r.Advice)
	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Advice)
}

func TestAnalyzeReferenceHistory(t *testing.T) {
	r := analyze(history(30*time.Minute, 100, 100, -50), nil)

	assert.Equal(t, []string{"risk.high-drawdown"}, ids(r.Errors))
	assert.Equal(t, []string{
		"profit-factor.outstanding", // P3 C85
		"win-rate.strong",           // P3 C80
		"risk-reward.strong",        // P3 C80, after win-rate in catalog order
		"sample.small",              // P5
	}, ids(r.Advice))

	dd, ok := find(r, "risk.high-drawdown")
	require.True(t, ok)
	assert.Contains(t, dd.Message, "25.0%")
	assert.Equal(t, CategoryWarning, dd.Category)
	assert.Equal(t, []string{"max_drawdown"}, dd.BasedOn)
}

func TestAnalyzeCriticalDrawdown(t *testing.T) {
	// curve 100, 60, 160, 40: 75% drawdown
	r := analyze(history(30*time.Minute, 100, -40, 100, -120), nil)

	ins, ok := find(r, "risk.critical-drawdown")
	require.True(t, ok)
	assert.Equal(t, 95, ins.Confidence)
	assert.Equal(t, CategoryCritical, ins.Category)
	assert.Equal(t, 1, ins.Priority)

	_, dup := find(r, "risk.high-drawdown")
	assert.False(t, dup, "drawdown reported twice")
}

func TestAnalyzeProfitFactorExclusive(t *testing.T) {
	losing := analyze(history(30*time.Minute, 10, -40, 10), nil)
	_, ok := find(losing, "profit-factor.losing-money")
	assert.True(t, ok)
	_, ok = find(losing, "profit-factor.outstanding")
	assert.False(t, ok)

	winning := analyze(history(30*time.Minute, 100, -10, 50), nil)
	_, ok = find(winning, "profit-factor.outstanding")
	assert.True(t, ok)
	_, ok = find(winning, "profit-factor.losing-money")
	assert.False(t, ok)
}

func TestAnalyzeNoLossesSkipsProfitFactor(t *testing.T) {
	r := analyze(history(30*time.Minute, 10, 20, 30), nil)
	for _, id := range []string{"profit-factor.losing-money", "profit-factor.thin-edge", "profit-factor.outstanding"} {
		_, ok := find(r, id)
		assert.False(t, ok, id)
	}
}

func TestAnalyzeLosingStreakAndRevenge(t *testing.T) {
	// entries one hour apart, held 50 minutes: every re-entry is 10 minutes after the last exit
	trades := history(50*time.Minute, 20, -10, -10, -10, -10, -10)
	r := analyze(trades, nil)

	_, ok := find(r, "streak.losing-run")
	assert.True(t, ok)
	_, ok = find(r, "streak.loss-cluster")
	assert.False(t, ok)
	revenge, ok := find(r, "overtrading.revenge")
	require.True(t, ok)
	assert.Equal(t, TypePattern, revenge.Type)
	assert.Contains(t, revenge.Message, "4 times")
}

func TestAnalyzeMissingStopLoss(t *testing.T) {
	trades := history(30*time.Minute, 10, -5, 10, -5, 10, -5)
	for i := 0; i < 4; i++ {
		trades[i].StopLoss = nil
	}
	r := analyze(trades, nil)
	ins, ok := find(r, "risk.missing-stop-loss")
	require.True(t, ok)
	assert.Contains(t, ins.Message, "4 of 6")
}

func TestAnalyzeEmotionRules(t *testing.T) {
	trades := history(30*time.Minute, 80, -40, -60, 50)
	logs := []models.EmotionLog{
		{EmotionName: "fearful", Sentiment: models.SentimentNegative, Intensity: 9, TradeID: "b"},
		{EmotionName: "frustrated", Sentiment: models.SentimentNegative, Intensity: 8, TradeID: "c"},
		{EmotionName: "anxious", Sentiment: models.SentimentNegative, Intensity: 8, TradeID: "c"},
		{EmotionName: "confident", Sentiment: models.SentimentPositive, Intensity: 7, TradeID: "a"},
	}

	r := analyze(trades, logs)

	for _, id := range []string{"emotion.negative-dominant", "emotion.loss-correlation", "emotion.high-intensity"} {
		_, ok := find(r, id)
		assert.True(t, ok, id)
	}
	_, ok := find(r, "emotion.positive-mindset")
	assert.False(t, ok)
}

func TestAnalyzeEmotionsWithoutTrades(t *testing.T) {
	logs := []models.EmotionLog{
		{EmotionName: "calm", Sentiment: models.SentimentPositive, Intensity: 4},
		{EmotionName: "focused", Sentiment: models.SentimentPositive, Intensity: 5},
	}
	r := analyze(nil, logs)

	assert.Empty(t, r.Errors)
	assert.Equal(t, []string{"emotion.positive-mindset"}, ids(r.Advice))
}

func TestAnalyzeScalping(t *testing.T) {
	pnls := []float64{-5, -5, 3, -5, -5, 3, -5, -5, 3, -5}
	r := analyze(history(2*time.Minute, pnls...), nil)

	_, ok := find(r, "time.scalping-losses")
	assert.True(t, ok)
	_, ok = find(r, "time.scalping-pattern")
	assert.False(t, ok)
}

func TestAnalyzeHoldingLosers(t *testing.T) {
	trades := history(10*time.Minute, 10, 10, 10, -5, -5, -5)
	for i := 3; i < 6; i++ {
		exit := trades[i].EntryTime.Add(45 * time.Minute)
		trades[i].ExitTime = &exit
	}
	r := analyze(trades, nil)

	ins, ok := find(r, "time.holding-losers")
	require.True(t, ok)
	assert.Contains(t, ins.Message, "4.5x")
}

func TestAnalyzeWorstHour(t *testing.T) {
	var trades []models.Trade
	day := baseTime
	for i := 0; i < 4; i++ {
		// a morning winner and an afternoon loser each day
		morning := history(10*time.Minute, 30)[0]
		morning.ID = string(rune('m' + i))
		morning.EntryTime = day.AddDate(0, 0, i)
		exit := morning.EntryTime.Add(10 * time.Minute)
		morning.ExitTime = &exit

		afternoon := morning
		afternoon.ID = string(rune('A' + i))
		afternoon.EntryTime = morning.EntryTime.Add(5 * time.Hour)
		exit2 := afternoon.EntryTime.Add(10 * time.Minute)
		afternoon.ExitTime = &exit2
		afternoon.PnL = -20

		trades = append(trades, morning, afternoon)
	}
	trades = append(trades, history(10*time.Minute, 5, 5)...)

	r := analyze(trades, nil)
	ins, ok := find(r, "time.worst-hour")
	require.True(t, ok)
	assert.Contains(t, ins.Message, "14:00")
}

func TestAnalyzeIgnoresOpenTrades(t *testing.T) {
	open := models.Trade{ID: "open", Status: models.TradeOpen, EntryTime: baseTime}
	r := analyze([]models.Trade{open}, nil)
	assert.Zero(t, r.Len())
}

func TestAnalyzeSortsErrorsAndAdvice(t *testing.T) {
	trades := history(50*time.Minute, 20, -10, -10, -10, -10, -10, -30, 5)
	r := analyze(trades, nil)

	require.NotEmpty(t, r.Errors)
	for _, list := range [][]Insight{r.Errors, r.Advice} {
		for i := 1; i < len(list); i++ {
			a, b := list[i-1], list[i]
			ordered := a.Priority < b.Priority || (a.Priority == b.Priority && a.Confidence >= b.Confidence)
			assert.True(t, ordered, "%s before %s", a.ID, b.ID)
		}
	}
	for _, ins := range r.Errors {
		assert.Equal(t, TypeError, ins.Type)
	}
	for _, ins := range r.Advice {
		assert.NotEqual(t, TypeError, ins.Type)
	}
}

func TestGeneratorSkipsFailingRules(t *testing.T) {
	always := func(*Input) (bool, error) { return true, nil }
	msg := func(string) func(*Input) string {
		return func(*Input) string { return "ok" }
	}

	rules := []Rule{
		{ID: "panics", Type: TypeError, Priority: 1, Confidence: 50, Match: func(in *Input) (bool, error) {
			_ = in.Trades[10]
			return true, nil
		}, Message: msg("panics")},
		{ID: "fails", Type: TypeError, Priority: 1, Confidence: 50, Match: func(*Input) (bool, error) {
			return false, errors.New("boom")
		}, Message: msg("fails")},
		{ID: "bad-message", Type: TypeAdvice, Priority: 1, Confidence: 50, Match: always, Message: func(*Input) string {
			panic("template")
		}},
		{ID: "incomplete", Type: TypeAdvice, Priority: 1, Confidence: 50},
		{ID: "low", Type: TypeError, Priority: 3, Confidence: 90, Match: always, Message: msg("low")},
		{ID: "high", Type: TypeError, Priority: 1, Confidence: 60, Match: always, Message: msg("high")},
		{ID: "high-conf", Type: TypeError, Priority: 1, Confidence: 80, Match: always, Message: msg("high-conf")},
		{ID: "strength", Type: TypeStrength, Priority: 2, Confidence: 70, Match: always, Message: msg("strength")},
	}

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	g := newGeneratorWithRules(rules, logger)

	var r Report
	require.NotPanics(t, func() { r = g.Analyze(nil, models.TradeAnalytics{}, nil, models.EmotionStats{}) })

	assert.Equal(t, []string{"high-conf", "high", "low"}, ids(r.Errors))
	assert.Equal(t, []string{"strength"}, ids(r.Advice))

	out := buf.String()
	for _, id := range []string{"panics", "fails", "bad-message", "incomplete"} {
		assert.True(t, strings.Contains(out, `"rule_id":"`+id+`"`), "missing skip log for %s", id)
	}
}

func TestGeneratorRules(t *testing.T) {
	g := NewGenerator(zerolog.Nop())
	got := g.Rules()
	require.Len(t, got, len(Catalog()))

	seen := make(map[string]bool)
	for _, id := range got {
		assert.False(t, seen[id], "duplicate rule id %s", id)
		seen[id] = true
	}
}

func TestCatalogIsCopy(t *testing.T) {
	c := Catalog()
	c[0].ID = "mutated"
	assert.NotEqual(t, "mutated", Catalog()[0].ID)
}

func TestCatalogMetadata(t *testing.T) {
	for _, r := range Catalog() {
		assert.NotNil(t, r.Match, r.ID)
		assert.NotNil(t, r.Message, r.ID)
		assert.NotEmpty(t, r.BasedOn, r.ID)
		assert.True(t, r.Priority >= 1 && r.Priority <= 5, r.ID)
		assert.True(t, r.Confidence > 0 && r.Confidence <= 100, r.ID)
		if r.Category == CategoryCritical {
			assert.Equal(t, TypeError, r.Type, r.ID)
		}
	}
}
