package insights

import (
	"errors"
	"fmt"
	"math"

	"trade-journal/internal/models"
)

var (
	errNoTrades          = errors.New("no closed trades")
	errNoEmotions        = errors.New("no emotion logs")
	errUndefinedPF       = errors.New("profit factor undefined without losing trades")
	errUndefinedRR       = errors.New("risk-reward undefined without both wins and losses")
	errInsufficientTrade = errors.New("not enough closed trades")
)

// Thresholds shared by rules and their tests.
const (
	CriticalDrawdownPct = 30.0
	HighDrawdownPct     = 15.0
	MinSampleSize       = 10
	ScalpingMinutes     = 5.0
	RevengeWindow       = 15 // minutes
)

// Catalog returns the rule catalog in evaluation order.
func Catalog() []Rule {
	rules := make([]Rule, len(catalog))
	copy(rules, catalog)
	return rules
}

var catalog = []Rule{
	// Risk
	{
		ID: "risk.critical-drawdown", Category: CategoryCritical, Type: TypeError,
		Priority: 1, Confidence: 95, BasedOn: []string{"max_drawdown"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 1); err != nil {
				return false, err
			}
			return in.Stats.MaxDrawdown > CriticalDrawdownPct, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Maximum drawdown reached %.1f%% of peak equity. Cut position size and stop trading until your risk rules are reviewed.", in.Stats.MaxDrawdown)
		},
	},
	{
		ID: "risk.high-drawdown", Category: CategoryWarning, Type: TypeError,
		Priority: 2, Confidence: 85, BasedOn: []string{"max_drawdown"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 1); err != nil {
				return false, err
			}
			dd := in.Stats.MaxDrawdown
			return dd > HighDrawdownPct && dd <= CriticalDrawdownPct, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Drawdown of %.1f%% from peak equity. Consider reducing risk per trade until the equity curve recovers.", in.Stats.MaxDrawdown)
		},
	},
	{
		ID: "risk.missing-stop-loss", Category: CategoryWarning, Type: TypeError,
		Priority: 2, Confidence: 80, BasedOn: []string{"stop_loss"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 5); err != nil {
				return false, err
			}
			missing, total := tradesWithoutStop(in.Trades)
			return total > 0 && float64(missing)/float64(total) > 0.5, nil
		},
		Message: func(in *Input) string {
			missing, total := tradesWithoutStop(in.Trades)
			return fmt.Sprintf("%d of %d closed trades (%.0f%%) had no stop-loss. Define your exit before you enter.", missing, total, float64(missing)/float64(total)*100)
		},
	},
	{
		ID: "risk.outsized-loss", Category: CategoryWarning, Type: TypeError,
		Priority: 2, Confidence: 75, BasedOn: []string{"worst_trade", "average_loss"},
		Match: func(in *Input) (bool, error) {
			if in.Stats.LosingTrades < 3 {
				return false, errInsufficientTrade
			}
			return -in.Stats.WorstTrade > 2*in.Stats.AverageLoss, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Your worst trade lost %.2f, more than twice your average loss of %.2f. A single trade should never dominate your results.", -in.Stats.WorstTrade, in.Stats.AverageLoss)
		},
	},

	// Win rate
	{
		ID: "win-rate.critical", Category: CategoryCritical, Type: TypeError,
		Priority: 1, Confidence: 85, BasedOn: []string{"win_rate"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 1); err != nil {
				return false, err
			}
			return in.Stats.WinRate < 30, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Win rate is only %.1f%%. Review your entry criteria before taking more trades.", in.Stats.WinRate)
		},
	},
	{
		ID: "win-rate.low", Category: CategoryWarning, Type: TypeError,
		Priority: 2, Confidence: 75, BasedOn: []string{"win_rate"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 1); err != nil {
				return false, err
			}
			return in.Stats.WinRate >= 30 && in.Stats.WinRate < 40, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Win rate of %.1f%% is below 40%%. Make sure your winners are large enough to carry the losses.", in.Stats.WinRate)
		},
	},
	{
		ID: "win-rate.strong", Category: CategoryPositive, Type: TypeStrength,
		Priority: 3, Confidence: 80, BasedOn: []string{"win_rate"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 1); err != nil {
				return false, err
			}
			return in.Stats.WinRate >= 60, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Strong win rate of %.1f%%. Your trade selection is working.", in.Stats.WinRate)
		},
	},

	// Profit factor
	{
		ID: "profit-factor.losing-money", Category: CategoryCritical, Type: TypeError,
		Priority: 1, Confidence: 90, BasedOn: []string{"profit_factor", "gross_profit", "gross_loss"},
		Match: func(in *Input) (bool, error) {
			pf, err := profitFactor(in)
			if err != nil {
				return false, err
			}
			return pf < 1, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Profit factor is %.2f: gross losses (%.2f) exceed gross profits (%.2f). The strategy is losing money.", in.Stats.ProfitFactor, in.Stats.GrossLoss, in.Stats.GrossProfit)
		},
	},
	{
		ID: "profit-factor.thin-edge", Category: CategoryInfo, Type: TypeAdvice,
		Priority: 3, Confidence: 70, BasedOn: []string{"profit_factor"},
		Match: func(in *Input) (bool, error) {
			pf, err := profitFactor(in)
			if err != nil {
				return false, err
			}
			return pf >= 1 && pf < 1.5, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Profit factor of %.2f leaves a thin edge. Fees or a few bad trades can erase it.", in.Stats.ProfitFactor)
		},
	},
	{
		ID: "profit-factor.outstanding", Category: CategoryPositive, Type: TypeStrength,
		Priority: 3, Confidence: 85, BasedOn: []string{"profit_factor"},
		Match: func(in *Input) (bool, error) {
			pf, err := profitFactor(in)
			if err != nil {
				return false, err
			}
			return pf >= 2, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Outstanding profit factor of %.2f. You make %.2f for every 1.00 you lose.", in.Stats.ProfitFactor, in.Stats.ProfitFactor)
		},
	},

	// Streaks
	{
		ID: "streak.losing-run", Category: CategoryWarning, Type: TypeError,
		Priority: 2, Confidence: 80, BasedOn: []string{"max_consecutive_losses"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 1); err != nil {
				return false, err
			}
			return in.Stats.MaxConsecutiveLosses >= 5, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("You lost %d trades in a row. Set a daily stop after three consecutive losses.", in.Stats.MaxConsecutiveLosses)
		},
	},
	{
		ID: "streak.loss-cluster", Category: CategoryInfo, Type: TypeAdvice,
		Priority: 3, Confidence: 65, BasedOn: []string{"max_consecutive_losses"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 1); err != nil {
				return false, err
			}
			n := in.Stats.MaxConsecutiveLosses
			return n >= 3 && n < 5, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Losses cluster in runs of up to %d. Take a break after a losing run to reset.", in.Stats.MaxConsecutiveLosses)
		},
	},
	{
		ID: "streak.winning-run", Category: CategoryPositive, Type: TypeStrength,
		Priority: 4, Confidence: 70, BasedOn: []string{"max_consecutive_wins"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 1); err != nil {
				return false, err
			}
			return in.Stats.MaxConsecutiveWins >= 5, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Winning streak of %d trades. Note what you did right and repeat it.", in.Stats.MaxConsecutiveWins)
		},
	},

	// Risk-reward
	{
		ID: "risk-reward.inverted", Category: CategoryWarning, Type: TypeError,
		Priority: 2, Confidence: 85, BasedOn: []string{"risk_reward_ratio", "win_rate"},
		Match: func(in *Input) (bool, error) {
			rr, err := riskReward(in)
			if err != nil {
				return false, err
			}
			return rr < 1 && in.Stats.WinRate < 50, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Average loss (%.2f) is larger than average win (%.2f) and you win less than half your trades. Tighten stops or let winners run.", in.Stats.AverageLoss, in.Stats.AverageWin)
		},
	},
	{
		ID: "risk-reward.cutting-winners", Category: CategoryInfo, Type: TypeAdvice,
		Priority: 3, Confidence: 70, BasedOn: []string{"risk_reward_ratio", "win_rate"},
		Match: func(in *Input) (bool, error) {
			rr, err := riskReward(in)
			if err != nil {
				return false, err
			}
			return rr < 1 && in.Stats.WinRate >= 50, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Risk-reward ratio of %.2f: you may be cutting winners short. Try scaling out instead of closing early.", in.Stats.RiskRewardRatio)
		},
	},
	{
		ID: "risk-reward.strong", Category: CategoryPositive, Type: TypeStrength,
		Priority: 3, Confidence: 80, BasedOn: []string{"risk_reward_ratio"},
		Match: func(in *Input) (bool, error) {
			rr, err := riskReward(in)
			if err != nil {
				return false, err
			}
			return rr >= 2, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Average win is %.2fx your average loss. Your exits are well managed.", in.Stats.RiskRewardRatio)
		},
	},

	// Overtrading
	{
		ID: "overtrading.daily-volume", Category: CategoryWarning, Type: TypeError,
		Priority: 2, Confidence: 75, BasedOn: []string{"avg_trades_per_day"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 1); err != nil {
				return false, err
			}
			return in.Stats.AvgTradesPerDay > 10, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("You average %.1f trades per trading day (max %d). Overtrading erodes your edge through fees and fatigue.", in.Stats.AvgTradesPerDay, in.Stats.MaxTradesPerDay)
		},
	},
	{
		ID: "overtrading.elevated", Category: CategoryInfo, Type: TypeAdvice,
		Priority: 4, Confidence: 60, BasedOn: []string{"avg_trades_per_day"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 1); err != nil {
				return false, err
			}
			avg := in.Stats.AvgTradesPerDay
			return avg > 5 && avg <= 10, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("%.1f trades per day on average. Check that every trade meets your plan.", in.Stats.AvgTradesPerDay)
		},
	},
	{
		ID: "overtrading.revenge", Category: CategoryWarning, Type: TypePattern,
		Priority: 2, Confidence: 70, BasedOn: []string{"trade_timing", "pnl"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 2); err != nil {
				return false, err
			}
			return revengeTrades(in.Trades) >= 3, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("%d times you re-entered within %d minutes of a loss and lost again. This looks like revenge trading.", revengeTrades(in.Trades), RevengeWindow)
		},
	},

	// Emotion
	{
		ID: "emotion.negative-dominant", Category: CategoryWarning, Type: TypeError,
		Priority: 2, Confidence: 75, BasedOn: []string{"negative_emotion_ratio"},
		Match: func(in *Input) (bool, error) {
			if err := requireEmotions(in, 1); err != nil {
				return false, err
			}
			return in.Emotions.NegativeRatio > 0.6, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("%.0f%% of your logged emotions are negative (most frequent: %s). Trading in this state leads to impulsive decisions.", in.Emotions.NegativeRatio*100, in.Emotions.MostFrequent)
		},
	},
	{
		ID: "emotion.negative-elevated", Category: CategoryInfo, Type: TypeAdvice,
		Priority: 3, Confidence: 65, BasedOn: []string{"negative_emotion_ratio"},
		Match: func(in *Input) (bool, error) {
			if err := requireEmotions(in, 1); err != nil {
				return false, err
			}
			r := in.Emotions.NegativeRatio
			return r > 0.4 && r <= 0.6, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("%.0f%% of your logged emotions are negative. A short pre-session routine can help you start calm.", in.Emotions.NegativeRatio*100)
		},
	},
	{
		ID: "emotion.positive-mindset", Category: CategoryPositive, Type: TypeStrength,
		Priority: 4, Confidence: 65, BasedOn: []string{"positive_emotion_ratio"},
		Match: func(in *Input) (bool, error) {
			if err := requireEmotions(in, 1); err != nil {
				return false, err
			}
			return in.Emotions.PositiveRatio >= 0.6, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("%.0f%% of your logged emotions are positive. You trade from a balanced mindset.", in.Emotions.PositiveRatio*100)
		},
	},
	{
		ID: "emotion.loss-correlation", Category: CategoryWarning, Type: TypePattern,
		Priority: 2, Confidence: 80, BasedOn: []string{"negative_emotion_pnl", "positive_emotion_pnl"},
		Match: func(in *Input) (bool, error) {
			if err := requireEmotions(in, 2); err != nil {
				return false, err
			}
			e := in.Emotions
			if e.NegativeTrades < 2 {
				return false, nil
			}
			return e.NegativeAvgPnL < 0 && (e.PositiveTrades == 0 || e.PositiveAvgPnL > e.NegativeAvgPnL), nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Trades tagged with negative emotions average %.2f across %d trades, versus %.2f for positive ones. Your emotional state is costing you money.", in.Emotions.NegativeAvgPnL, in.Emotions.NegativeTrades, in.Emotions.PositiveAvgPnL)
		},
	},
	{
		ID: "emotion.high-intensity", Category: CategoryInfo, Type: TypeAdvice,
		Priority: 3, Confidence: 60, BasedOn: []string{"emotion_intensity"},
		Match: func(in *Input) (bool, error) {
			if err := requireEmotions(in, 3); err != nil {
				return false, err
			}
			return in.Emotions.AverageIntensity >= 7.5, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Average emotional intensity is %.1f out of 10. Step away from the screen when feelings run this high.", in.Emotions.AverageIntensity)
		},
	},

	// Time and duration
	{
		ID: "time.scalping-losses", Category: CategoryWarning, Type: TypeError,
		Priority: 2, Confidence: 75, BasedOn: []string{"average_hold_minutes", "win_rate"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, MinSampleSize); err != nil {
				return false, err
			}
			return in.Stats.AverageHoldMinutes < ScalpingMinutes && in.Stats.WinRate < 50, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Trades last %.1f minutes on average and win only %.1f%% of the time. Fast scalping is not working for you.", in.Stats.AverageHoldMinutes, in.Stats.WinRate)
		},
	},
	{
		ID: "time.scalping-pattern", Category: CategoryInfo, Type: TypePattern,
		Priority: 3, Confidence: 70, BasedOn: []string{"average_hold_minutes"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, MinSampleSize); err != nil {
				return false, err
			}
			return in.Stats.AverageHoldMinutes < ScalpingMinutes && in.Stats.WinRate >= 50, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("You trade as a scalper with an average hold of %.1f minutes. Keep fees in check, they weigh heavily at this pace.", in.Stats.AverageHoldMinutes)
		},
	},
	{
		ID: "time.worst-hour", Category: CategoryInfo, Type: TypeAdvice,
		Priority: 3, Confidence: 60, BasedOn: []string{"entry_hour", "pnl"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, MinSampleSize); err != nil {
				return false, err
			}
			_, ok := worstHour(in.Trades)
			return ok, nil
		},
		Message: func(in *Input) string {
			h, _ := worstHour(in.Trades)
			return fmt.Sprintf("Trades entered around %02d:00 lost %.2f across %d trades. Consider avoiding that hour.", h.hour, -h.pnl, h.count)
		},
	},
	{
		ID: "time.holding-losers", Category: CategoryInfo, Type: TypeAdvice,
		Priority: 3, Confidence: 65, BasedOn: []string{"hold_duration"},
		Match: func(in *Input) (bool, error) {
			winHold, lossHold, err := holdByOutcome(in.Trades)
			if err != nil {
				return false, err
			}
			return winHold > 0 && lossHold > 2*winHold, nil
		},
		Message: func(in *Input) string {
			winHold, lossHold, _ := holdByOutcome(in.Trades)
			return fmt.Sprintf("You hold losing trades %.1fx longer than winners (%.0f vs %.0f minutes). Cut losers as decisively as you take profits.", lossHold/winHold, lossHold, winHold)
		},
	},

	// Sample quality
	{
		ID: "sample.small", Category: CategoryInfo, Type: TypeAdvice,
		Priority: 5, Confidence: 90, BasedOn: []string{"total_trades"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, 1); err != nil {
				return false, err
			}
			return in.Stats.TotalTrades < MinSampleSize, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Only %d closed trades so far. Insights become reliable after at least %d trades.", in.Stats.TotalTrades, MinSampleSize)
		},
	},
	{
		ID: "sharpe.consistent", Category: CategoryPositive, Type: TypeStrength,
		Priority: 4, Confidence: 70, BasedOn: []string{"sharpe_ratio"},
		Match: func(in *Input) (bool, error) {
			if err := requireTrades(in, MinSampleSize); err != nil {
				return false, err
			}
			return in.Stats.SharpeRatio >= 0.5, nil
		},
		Message: func(in *Input) string {
			return fmt.Sprintf("Per-trade Sharpe ratio of %.2f shows consistent returns relative to their variability.", in.Stats.SharpeRatio)
		},
	},
}

func requireTrades(in *Input, min int) error {
	if in.Stats.TotalTrades == 0 {
		return errNoTrades
	}
	if in.Stats.TotalTrades < min {
		return errInsufficientTrade
	}
	return nil
}

func requireEmotions(in *Input, min int) error {
	if in.Emotions.TotalLogs == 0 {
		return errNoEmotions
	}
	if in.Emotions.TotalLogs < min {
		return fmt.Errorf("need %d emotion logs, have %d", min, in.Emotions.TotalLogs)
	}
	return nil
}

func profitFactor(in *Input) (float64, error) {
	if err := requireTrades(in, 1); err != nil {
		return 0, err
	}
	if in.Stats.GrossLoss <= 0 {
		return 0, errUndefinedPF
	}
	return in.Stats.GrossProfit / in.Stats.GrossLoss, nil
}

func riskReward(in *Input) (float64, error) {
	if err := requireTrades(in, 1); err != nil {
		return 0, err
	}
	if in.Stats.AverageLoss <= 0 || in.Stats.WinningTrades == 0 {
		return 0, errUndefinedRR
	}
	return in.Stats.RiskRewardRatio, nil
}

func closedTrades(trades []models.Trade) []models.Trade {
	closed := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status == models.TradeClosed {
			closed = append(closed, t)
		}
	}
	return closed
}

func tradesWithoutStop(trades []models.Trade) (missing, total int) {
	for _, t := range closedTrades(trades) {
		total++
		if t.StopLoss == nil {
			missing++
		}
	}
	return missing, total
}

// revengeTrades counts losing trades entered within RevengeWindow minutes of
// the exit of a previous losing trade.
func revengeTrades(trades []models.Trade) int {
	closed := closedTrades(trades)
	count := 0
	for i, t := range closed {
		if t.PnL >= 0 {
			continue
		}
		for j, prev := range closed {
			if i == j || prev.PnL >= 0 || prev.ExitTime == nil {
				continue
			}
			gap := t.EntryTime.Sub(*prev.ExitTime)
			if gap >= 0 && gap.Minutes() <= RevengeWindow {
				count++
				break
			}
		}
	}
	return count
}

type hourBucket struct {
	hour  int
	count int
	pnl   float64
}

// worstHour finds the entry hour with the largest net loss among hours with
// at least three trades. Requires trades in at least two distinct hours.
func worstHour(trades []models.Trade) (hourBucket, bool) {
	var buckets [24]hourBucket
	hours := 0
	for _, t := range closedTrades(trades) {
		h := t.EntryTime.Hour()
		if buckets[h].count == 0 {
			hours++
		}
		buckets[h].hour = h
		buckets[h].count++
		buckets[h].pnl += t.PnL
	}
	if hours < 2 {
		return hourBucket{}, false
	}

	worst := hourBucket{pnl: math.Inf(1)}
	for _, b := range buckets {
		if b.count >= 3 && b.pnl < worst.pnl {
			worst = b
		}
	}
	if worst.count == 0 || worst.pnl >= 0 {
		return hourBucket{}, false
	}
	return worst, true
}

// holdByOutcome returns the average holding time in minutes of winning and
// losing trades. Both sides need at least three trades.
func holdByOutcome(trades []models.Trade) (win, loss float64, err error) {
	var winSum, lossSum float64
	var wins, losses int
	for _, t := range closedTrades(trades) {
		if t.ExitTime == nil {
			continue
		}
		m := t.HoldDuration().Minutes()
		switch {
		case t.PnL > 0:
			winSum += m
			wins++
		case t.PnL < 0:
			lossSum += m
			losses++
		}
	}
	if wins < 3 || losses < 3 {
		return 0, 0, errInsufficientTrade
	}
	return winSum / float64(wins), lossSum / float64(losses), nil
}
