package journal

import (
	"context"
	"time"

	"trade-journal/internal/analysis/insights"
	"trade-journal/internal/analysis/stats"
	"trade-journal/internal/billing"
	"trade-journal/internal/models"
)

// Report is the performance report: statistics, emotion summary and ranked
// insights.
type Report struct {
	Stats       models.TradeAnalytics `json:"stats"`
	Emotions    models.EmotionStats   `json:"emotions"`
	Insights    insights.Report       `json:"insights"`
	Truncated   bool                  `json:"truncated"`
	Plan        models.PlanTier       `json:"plan"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// Stats computes trade statistics over the user's trades matching filter.
func (s *Service) Stats(ctx context.Context, userID string, filter models.TradeFilter) (models.TradeAnalytics, error) {
	trades, err := s.Trades(ctx, userID, filter)
	if err != nil {
		return models.TradeAnalytics{}, err
	}
	return stats.Compute(trades), nil
}

// EmotionStats summarizes the user's emotion logs in the filter's date range.
func (s *Service) EmotionStats(ctx context.Context, userID string, filter models.TradeFilter) (models.EmotionStats, error) {
	trades, logs, err := s.history(ctx, userID, filter)
	if err != nil {
		return models.EmotionStats{}, err
	}
	return stats.SummarizeEmotions(logs, trades), nil
}

// Report builds the performance report. Each insight list is capped at the
// plan's insight allowance.
func (s *Service) Report(ctx context.Context, userID string, filter models.TradeFilter) (*Report, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	trades, logs, err := s.history(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	analytics := stats.Compute(trades)
	emotions := stats.SummarizeEmotions(logs, trades)
	found := s.insights.Analyze(trades, analytics, logs, emotions)

	plan := billing.GetPlan(user.Plan)
	limited := insights.Report{
		Errors: capInsights(found.Errors, plan.MaxInsights),
		Advice: capInsights(found.Advice, plan.MaxInsights),
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int("trades", len(trades)).
		Int("insights", found.Len()).
		Msg("Report generated")

	return &Report{
		Stats:       analytics,
		Emotions:    emotions,
		Insights:    limited,
		Truncated:   limited.Len() < found.Len(),
		Plan:        plan.Tier,
		GeneratedAt: s.now(),
	}, nil
}

func (s *Service) history(ctx context.Context, userID string, filter models.TradeFilter) ([]models.Trade, []models.EmotionLog, error) {
	trades, err := s.Trades(ctx, userID, filter)
	if err != nil {
		return nil, nil, err
	}
	logs, err := s.EmotionLogs(ctx, userID, models.EmotionLogFilter{
		StartDate: filter.StartDate,
		EndDate:   filter.EndDate,
	})
	if err != nil {
		return nil, nil, err
	}
	return trades, logs, nil
}

func capInsights(list []insights.Insight, max int) []insights.Insight {
	if max == billing.Unlimited || len(list) <= max {
		return list
	}
	return list[:max]
}
