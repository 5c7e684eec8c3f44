package stats

import (
	"sort"

	"trade-journal/internal/models"
)

// SummarizeEmotions builds the emotion summary for a set of emotion logs.
// Trade P&L is attributed to an emotion or sentiment once per closed trade the
// emotion was logged against.
func SummarizeEmotions(logs []models.EmotionLog, trades []models.Trade) models.EmotionStats {
	s := models.EmotionStats{ByEmotion: []models.EmotionBreakdown{}}
	if len(logs) == 0 {
		return s
	}

	closedPnL := make(map[string]float64, len(trades))
	for _, t := range trades {
		if t.Status == models.TradeClosed {
			closedPnL[t.ID] = t.PnL
		}
	}

	type bucket struct {
		breakdown    models.EmotionBreakdown
		intensitySum int
		pnlSum       float64
		trades       map[string]bool
	}
	buckets := make(map[string]*bucket)
	sentimentTrades := map[models.Sentiment]map[string]bool{
		models.SentimentPositive: {},
		models.SentimentNegative: {},
	}

	var intensitySum int
	for _, l := range logs {
		s.TotalLogs++
		intensitySum += l.Intensity

		switch l.Sentiment {
		case models.SentimentPositive:
			s.PositiveCount++
		case models.SentimentNegative:
			s.NegativeCount++
		default:
			s.NeutralCount++
		}

		b, ok := buckets[l.EmotionName]
		if !ok {
			b = &bucket{
				breakdown: models.EmotionBreakdown{Name: l.EmotionName, Sentiment: l.Sentiment},
				trades:    make(map[string]bool),
			}
			buckets[l.EmotionName] = b
		}
		b.breakdown.Count++
		b.intensitySum += l.Intensity

		if l.TradeID == "" {
			continue
		}
		pnl, closed := closedPnL[l.TradeID]
		if !closed {
			continue
		}
		if !b.trades[l.TradeID] {
			b.trades[l.TradeID] = true
			b.pnlSum += pnl
		}
		if set, tracked := sentimentTrades[l.Sentiment]; tracked {
			set[l.TradeID] = true
		}
	}

	total := float64(s.TotalLogs)
	s.PositiveRatio = float64(s.PositiveCount) / total
	s.NegativeRatio = float64(s.NegativeCount) / total
	s.AverageIntensity = float64(intensitySum) / total

	s.PositiveTrades, s.PositiveAvgPnL = averagePnL(sentimentTrades[models.SentimentPositive], trades)
	s.NegativeTrades, s.NegativeAvgPnL = averagePnL(sentimentTrades[models.SentimentNegative], trades)

	for _, b := range buckets {
		b.breakdown.AvgIntensity = float64(b.intensitySum) / float64(b.breakdown.Count)
		b.breakdown.TradeCount = len(b.trades)
		if b.breakdown.TradeCount > 0 {
			b.breakdown.AvgTradePnL = b.pnlSum / float64(b.breakdown.TradeCount)
		}
		s.ByEmotion = append(s.ByEmotion, b.breakdown)
	}
	sort.Slice(s.ByEmotion, func(i, j int) bool {
		if s.ByEmotion[i].Count != s.ByEmotion[j].Count {
			return s.ByEmotion[i].Count > s.ByEmotion[j].Count
		}
		return s.ByEmotion[i].Name < s.ByEmotion[j].Name
	})
	s.MostFrequent = s.ByEmotion[0].Name

	return s
}

// averagePnL averages the P&L of the trades in tradeIDs. The sum runs in
// trades order so repeated calls give bit-identical results.
func averagePnL(tradeIDs map[string]bool, trades []models.Trade) (int, float64) {
	if len(tradeIDs) == 0 {
		return 0, 0
	}
	var sum float64
	seen := make(map[string]bool, len(tradeIDs))
	for _, t := range trades {
		if tradeIDs[t.ID] && !seen[t.ID] {
			seen[t.ID] = true
			sum += t.PnL
		}
	}
	return len(tradeIDs), sum / float64(len(tradeIDs))
}
