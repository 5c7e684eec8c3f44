package stats

import (
	"math"
	"reflect"
	"testing"
	"time"

	"trade-journal/internal/models"
)

var baseTime = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

// closedTrades builds closed trades one hour apart with the given P&L values.
func closedTrades(pnls ...float64) []models.Trade {
	trades := make([]models.Trade, len(pnls))
	for i, p := range pnls {
		entry := baseTime.Add(time.Duration(i) * time.Hour)
		exit := entry.Add(30 * time.Minute)
		price := 100.0
		trades[i] = models.Trade{
			ID:         string(rune('a' + i)),
			Status:     models.TradeClosed,
			Direction:  models.DirectionLong,
			EntryPrice: price,
			ExitPrice:  &price,
			EntryTime:  entry,
			ExitTime:   &exit,
			PnL:        p,
		}
	}
	return trades
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestComputeEmpty(t *testing.T) {
	got := Compute(nil)
	if !reflect.DeepEqual(got, models.TradeAnalytics{}) {
		t.Errorf("expected zeroed analytics, got %+v", got)
	}
}

func TestComputeReferenceHistory(t *testing.T) {
	a := Compute(closedTrades(100, 100, -50))

	if a.TotalTrades != 3 || a.WinningTrades != 2 || a.LosingTrades != 1 {
		t.Fatalf("unexpected counts: %+v", a)
	}
	if !approx(a.WinRate, 200.0/3.0) {
		t.Errorf("WinRate = %v, want 66.67", a.WinRate)
	}
	if !approx(a.MaxDrawdown, 25) {
		t.Errorf("MaxDrawdown = %v, want 25", a.MaxDrawdown)
	}
	if !approx(a.MaxDrawdownAmount, 50) {
		t.Errorf("MaxDrawdownAmount = %v, want 50", a.MaxDrawdownAmount)
	}
	if !approx(a.ProfitFactor, 4) {
		t.Errorf("ProfitFactor = %v, want 4", a.ProfitFactor)
	}
	if !approx(a.TotalPnL, 150) || !approx(a.Expectancy, 50) {
		t.Errorf("TotalPnL = %v, Expectancy = %v", a.TotalPnL, a.Expectancy)
	}
	if !approx(a.AverageWin, 100) || !approx(a.AverageLoss, 50) || !approx(a.RiskRewardRatio, 2) {
		t.Errorf("AverageWin = %v, AverageLoss = %v, RR = %v", a.AverageWin, a.AverageLoss, a.RiskRewardRatio)
	}
	if a.BestTrade != 100 || a.WorstTrade != -50 {
		t.Errorf("Best/Worst = %v/%v", a.BestTrade, a.WorstTrade)
	}
	if a.MaxConsecutiveWins != 2 || a.MaxConsecutiveLosses != 1 || a.CurrentStreak != -1 {
		t.Errorf("streaks = %d/%d current %d", a.MaxConsecutiveWins, a.MaxConsecutiveLosses, a.CurrentStreak)
	}
	if a.TradingDays != 1 || a.MaxTradesPerDay != 3 || !approx(a.AvgTradesPerDay, 3) {
		t.Errorf("per-day = %d days, max %d, avg %v", a.TradingDays, a.MaxTradesPerDay, a.AvgTradesPerDay)
	}
	if !approx(a.AverageHoldMinutes, 30) {
		t.Errorf("AverageHoldMinutes = %v, want 30", a.AverageHoldMinutes)
	}
}

func TestComputeEquityCurve(t *testing.T) {
	curve := EquityCurve(closedTrades(100, 100, -50))
	want := []float64{100, 200, 150}
	if !reflect.DeepEqual(curve, want) {
		t.Errorf("EquityCurve = %v, want %v", curve, want)
	}
}

func TestComputeNoLosses(t *testing.T) {
	a := Compute(closedTrades(10, 20))
	if a.ProfitFactor != 0 {
		t.Errorf("ProfitFactor = %v, want 0 when undefined", a.ProfitFactor)
	}
	if a.RiskRewardRatio != 0 {
		t.Errorf("RiskRewardRatio = %v, want 0 when undefined", a.RiskRewardRatio)
	}
	if a.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0", a.MaxDrawdown)
	}
}

func TestComputeIgnoresOpenTrades(t *testing.T) {
	trades := closedTrades(50, -20)
	trades = append(trades, models.Trade{ID: "open", Status: models.TradeOpen, EntryTime: baseTime, PnL: 999})

	a := Compute(trades)
	if a.TotalTrades != 2 || a.TotalPnL != 30 {
		t.Errorf("open trade leaked into stats: %+v", a)
	}
}

func TestComputeDoesNotMutateInput(t *testing.T) {
	trades := closedTrades(10, -5, 30)
	// present out of order
	trades[0], trades[2] = trades[2], trades[0]
	snapshot := make([]models.Trade, len(trades))
	copy(snapshot, trades)

	Compute(trades)

	if !reflect.DeepEqual(trades, snapshot) {
		t.Error("Compute mutated its input")
	}
}

func TestComputeOrdersChronologically(t *testing.T) {
	trades := closedTrades(100, 100, -50)
	reversed := []models.Trade{trades[2], trades[1], trades[0]}

	if Compute(reversed).MaxDrawdown != Compute(trades).MaxDrawdown {
		t.Error("drawdown should not depend on input order")
	}
}

func TestStreaks(t *testing.T) {
	wins, losses, current := streaks([]float64{1, 1, -1, -1, -1, 0, 2, 3})
	if wins != 2 || losses != 3 || current != 2 {
		t.Errorf("streaks = %d, %d, %d; want 2, 3, 2", wins, losses, current)
	}
}

func TestMaxDrawdownNeverPositivePeak(t *testing.T) {
	pct, amount := maxDrawdown([]float64{-10, -20, 5})
	if pct != 0 || amount != 0 {
		t.Errorf("maxDrawdown = %v, %v; want zero without a positive peak", pct, amount)
	}
}

func TestMaxDrawdownDeepest(t *testing.T) {
	// curve: 100, 60, 160, 40
	pct, amount := maxDrawdown([]float64{100, -40, 100, -120})
	if !approx(pct, 75) || !approx(amount, 120) {
		t.Errorf("maxDrawdown = %v%%, %v; want 75%%, 120", pct, amount)
	}
}

func TestMaxDrawdownBelowZero(t *testing.T) {
	// curve: 176.6, -183.6, -87.3; the decline exceeds the peak
	pct, amount := maxDrawdown([]float64{176.6, -360.2, 96.3})
	if !approx(amount, 360.2) || math.Abs(pct-203.96376) > 1e-4 {
		t.Errorf("maxDrawdown = %v%%, %v; want about 203.96%%, 360.2", pct, amount)
	}
	if a := Compute(closedTrades(176.6, -360.2, 96.3)); !approx(a.MaxDrawdown, pct) {
		t.Errorf("Compute MaxDrawdown = %v, want %v", a.MaxDrawdown, pct)
	}
}

func TestSharpe(t *testing.T) {
	if sharpe([]float64{5}) != 0 {
		t.Error("single trade sharpe should be 0")
	}
	if sharpe([]float64{5, 5, 5}) != 0 {
		t.Error("zero variance sharpe should be 0")
	}
	// mean 2, sample variance 16/3
	if got := sharpe([]float64{0, 4, 0, 4}); !approx(got, 2/math.Sqrt(16.0/3.0)) {
		t.Errorf("sharpe = %v", got)
	}
}

func TestTradesPerDay(t *testing.T) {
	trades := closedTrades(1, 1, 1)
	next := baseTime.AddDate(0, 0, 1)
	exit := next.Add(time.Minute)
	trades = append(trades, models.Trade{ID: "d2", Status: models.TradeClosed, EntryTime: next, ExitTime: &exit, PnL: 1})

	a := Compute(trades)
	if a.TradingDays != 2 || a.MaxTradesPerDay != 3 || !approx(a.AvgTradesPerDay, 2) {
		t.Errorf("days %d, max %d, avg %v", a.TradingDays, a.MaxTradesPerDay, a.AvgTradesPerDay)
	}
}
