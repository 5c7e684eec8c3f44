package models

import "time"

// Trade represents a journaled trade.
type Trade struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	AccountID    string      `json:"account_id"`
	Symbol       string      `json:"symbol"`
	Direction    Direction   `json:"direction"`
	LotSize      float64     `json:"lot_size"`
	ContractSize float64     `json:"contract_size"`
	EntryPrice   float64     `json:"entry_price"`
	ExitPrice    *float64    `json:"exit_price,omitempty"`
	StopLoss     *float64    `json:"stop_loss,omitempty"`
	TakeProfit   *float64    `json:"take_profit,omitempty"`
	Fees         float64     `json:"fees"`
	PnL          float64     `json:"pnl"`
	PnLPercent   float64     `json:"pnl_percent"`
	Status       TradeStatus `json:"status"`
	EntryTime    time.Time   `json:"entry_time"`
	ExitTime     *time.Time  `json:"exit_time,omitempty"`
	Setup        string      `json:"setup,omitempty"`
	Notes        string      `json:"notes,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsClosed reports whether the trade has been closed with an exit price.
func (t *Trade) IsClosed() bool {
	return t.Status == TradeClosed && t.ExitPrice != nil
}

// HoldDuration returns how long a closed trade was held, or zero.
func (t *Trade) HoldDuration() time.Duration {
	if t.ExitTime == nil || t.ExitTime.Before(t.EntryTime) {
		return 0
	}
	return t.ExitTime.Sub(t.EntryTime)
}

// ClosedAt returns the exit time, falling back to the entry time.
func (t *Trade) ClosedAt() time.Time {
	if t.ExitTime != nil {
		return *t.ExitTime
	}
	return t.EntryTime
}

// TradeAnalytics is the aggregate statistics record derived from a trade history.
// It is recomputed on every request and never stored.
type TradeAnalytics struct {
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	BreakevenTrades      int     `json:"breakeven_trades"`
	WinRate              float64 `json:"win_rate"` // percent
	TotalPnL             float64 `json:"total_pnl"`
	GrossProfit          float64 `json:"gross_profit"`
	GrossLoss            float64 `json:"gross_loss"` // magnitude
	AverageWin           float64 `json:"average_win"`
	AverageLoss          float64 `json:"average_loss"` // magnitude
	ProfitFactor         float64 `json:"profit_factor"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	MaxDrawdown          float64 `json:"max_drawdown"` // percent of peak
	MaxDrawdownAmount    float64 `json:"max_drawdown_amount"`
	MaxConsecutiveWins   int     `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	CurrentStreak        int     `json:"current_streak"` // positive wins, negative losses
	BestTrade            float64 `json:"best_trade"`
	WorstTrade           float64 `json:"worst_trade"`
	RiskRewardRatio      float64 `json:"risk_reward_ratio"`
	Expectancy           float64 `json:"expectancy"`
	AverageHoldMinutes   float64 `json:"average_hold_minutes"`
	TradingDays          int     `json:"trading_days"`
	AvgTradesPerDay      float64 `json:"avg_trades_per_day"`
	MaxTradesPerDay      int     `json:"max_trades_per_day"`
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	UserID    string
	AccountID string
	Symbol    string
	Status    TradeStatus
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
