package insights

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/analysis/stats"
	"trade-journal/internal/models"
)

// generateTestHistory generates a closed trade history with emotion logs.
func generateTestHistory(count int) ([]models.Trade, []models.EmotionLog) {
	rng := rand.New(rand.NewSource(42))
	sentiments := []models.Sentiment{models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral}

	trades := make([]models.Trade, count)
	logs := make([]models.EmotionLog, 0, count/2)
	for i := range trades {
		entry := baseTime.Add(time.Duration(i) * 37 * time.Minute)
		exit := entry.Add(time.Duration(1+rng.Intn(240)) * time.Minute)
		price := 100 + rng.Float64()*10
		trades[i] = models.Trade{
			ID:         fmt.Sprintf("t%d", i),
			Status:     models.TradeClosed,
			Direction:  models.DirectionLong,
			EntryPrice: price,
			ExitPrice:  &price,
			EntryTime:  entry,
			ExitTime:   &exit,
			PnL:        rng.NormFloat64() * 100,
		}
		if i%2 == 0 {
			logs = append(logs, models.EmotionLog{
				ID:          fmt.Sprintf("e%d", i),
				TradeID:     trades[i].ID,
				EmotionName: fmt.Sprintf("emotion-%d", i%5),
				Sentiment:   sentiments[i%3],
				Intensity:   1 + rng.Intn(10),
				CreatedAt:   entry,
			})
		}
	}
	return trades, logs
}

// BenchmarkStatsCompute benchmarks the metrics aggregation.
func BenchmarkStatsCompute(b *testing.B) {
	trades, _ := generateTestHistory(1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stats.Compute(trades)
	}
}

// BenchmarkAnalyze benchmarks a full analysis over a prepared history.
func BenchmarkAnalyze(b *testing.B) {
	trades, logs := generateTestHistory(1000)
	analytics := stats.Compute(trades)
	emotions := stats.SummarizeEmotions(logs, trades)
	g := NewGenerator(zerolog.Nop())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Analyze(trades, analytics, logs, emotions)
	}
}

// BenchmarkConcurrentReports benchmarks several users' reports built at once
// on one shared generator.
func BenchmarkConcurrentReports(b *testing.B) {
	const users = 10
	histories := make([][]models.Trade, users)
	for u := range histories {
		histories[u], _ = generateTestHistory(500)
	}
	g := NewGenerator(zerolog.Nop())

	b.Run("Sequential", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			for _, trades := range histories {
				g.Analyze(trades, stats.Compute(trades), nil, models.EmotionStats{})
			}
		}
	})

	b.Run("Parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var wg sync.WaitGroup
			for _, trades := range histories {
				wg.Add(1)
				go func(t []models.Trade) {
					defer wg.Done()
					g.Analyze(t, stats.Compute(t), nil, models.EmotionStats{})
				}(trades)
			}
			wg.Wait()
		}
	})
}

func TestGeneratorConcurrentUse(t *testing.T) {
	trades, logs := generateTestHistory(200)
	analytics := stats.Compute(trades)
	emotions := stats.SummarizeEmotions(logs, trades)
	g := NewGenerator(zerolog.Nop())
	want := g.Analyze(trades, analytics, logs, emotions)

	var wg sync.WaitGroup
	results := make([]Report, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Analyze(trades, analytics, logs, emotions)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if fmt.Sprint(ids(got.Errors), ids(got.Advice)) != fmt.Sprint(ids(want.Errors), ids(want.Advice)) {
			t.Errorf("report %d differs from the sequential result", i)
		}
	}
}
