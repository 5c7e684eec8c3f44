// Package stats reduces a trade history into summary statistics.
package stats

import (
	"math"
	"sort"

	"trade-journal/internal/models"
)

// Compute aggregates the closed trades in trades into a TradeAnalytics record.
//
// The input is never mutated; trades are evaluated in chronological order of
// exit (then entry) time. An empty history yields zeroed statistics. Profit
// factor is reported as 0 when there are no losing trades.
func Compute(trades []models.Trade) models.TradeAnalytics {
	closed := chronological(trades)

	var a models.TradeAnalytics
	a.TotalTrades = len(closed)
	if a.TotalTrades == 0 {
		return a
	}

	pnls := make([]float64, 0, len(closed))
	var holdMinutes float64
	perDay := make(map[string]int)

	a.BestTrade = closed[0].PnL
	a.WorstTrade = closed[0].PnL

	for _, t := range closed {
		pnls = append(pnls, t.PnL)
		a.TotalPnL += t.PnL

		switch {
		case t.PnL > 0:
			a.WinningTrades++
			a.GrossProfit += t.PnL
		case t.PnL < 0:
			a.LosingTrades++
			a.GrossLoss += -t.PnL
		default:
			a.BreakevenTrades++
		}

		if t.PnL > a.BestTrade {
			a.BestTrade = t.PnL
		}
		if t.PnL < a.WorstTrade {
			a.WorstTrade = t.PnL
		}

		holdMinutes += t.HoldDuration().Minutes()
		perDay[t.EntryTime.Format("2006-01-02")]++
	}

	n := float64(a.TotalTrades)
	a.WinRate = float64(a.WinningTrades) / n * 100
	a.Expectancy = a.TotalPnL / n
	a.AverageHoldMinutes = holdMinutes / n

	if a.WinningTrades > 0 {
		a.AverageWin = a.GrossProfit / float64(a.WinningTrades)
	}
	if a.LosingTrades > 0 {
		a.AverageLoss = a.GrossLoss / float64(a.LosingTrades)
	}
	if a.GrossLoss > 0 {
		a.ProfitFactor = a.GrossProfit / a.GrossLoss
	}
	if a.AverageLoss > 0 {
		a.RiskRewardRatio = a.AverageWin / a.AverageLoss
	}

	a.SharpeRatio = sharpe(pnls)
	a.MaxDrawdown, a.MaxDrawdownAmount = maxDrawdown(pnls)
	a.MaxConsecutiveWins, a.MaxConsecutiveLosses, a.CurrentStreak = streaks(pnls)

	a.TradingDays = len(perDay)
	for _, count := range perDay {
		if count > a.MaxTradesPerDay {
			a.MaxTradesPerDay = count
		}
	}
	a.AvgTradesPerDay = n / float64(a.TradingDays)

	return a
}

// EquityCurve returns the cumulative P&L after each closed trade.
func EquityCurve(trades []models.Trade) []float64 {
	closed := chronological(trades)
	curve := make([]float64, len(closed))
	var sum float64
	for i, t := range closed {
		sum += t.PnL
		curve[i] = sum
	}
	return curve
}

// chronological returns a sorted copy of the closed trades.
func chronological(trades []models.Trade) []models.Trade {
	closed := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status == models.TradeClosed {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		ci, cj := closed[i].ClosedAt(), closed[j].ClosedAt()
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return closed[i].EntryTime.Before(closed[j].EntryTime)
	})
	return closed
}

// maxDrawdown walks the running sum of pnls and returns the largest decline
// from a running peak, as a percentage of that peak and as an amount.
// Declines are only measured once the curve has made a positive peak.
func maxDrawdown(pnls []float64) (pct, amount float64) {
	var equity, peak float64
	for _, p := range pnls {
		equity += p
		if equity > peak {
			peak = equity
			continue
		}
		if peak <= 0 {
			continue
		}
		decline := peak - equity
		if decline > amount {
			amount = decline
		}
		if d := decline / peak * 100; d > pct {
			pct = d
		}
	}
	return pct, amount
}

// streaks returns the longest winning and losing runs and the current run
// (positive for wins, negative for losses). Breakeven trades end a run.
func streaks(pnls []float64) (maxWins, maxLosses, current int) {
	for _, p := range pnls {
		switch {
		case p > 0:
			if current > 0 {
				current++
			} else {
				current = 1
			}
			if current > maxWins {
				maxWins = current
			}
		case p < 0:
			if current < 0 {
				current--
			} else {
				current = -1
			}
			if -current > maxLosses {
				maxLosses = -current
			}
		default:
			current = 0
		}
	}
	return maxWins, maxLosses, current
}

// sharpe is the per-trade Sharpe ratio: mean / sample standard deviation.
func sharpe(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	var sum float64
	for _, p := range pnls {
		sum += p
	}
	mean := sum / float64(len(pnls))

	var sq float64
	for _, p := range pnls {
		sq += (p - mean) * (p - mean)
	}
	std := math.Sqrt(sq / float64(len(pnls)-1))
	if std == 0 {
		return 0
	}
	return mean / std
}
