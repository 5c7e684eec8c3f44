// Package pnl computes realized profit and loss for journaled trades.
package pnl

import (
	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// Result is the realized outcome of a closed trade.
type Result struct {
	PnL        float64
	PnLPercent float64
}

// Calculate returns the realized P&L of a trade closed at exitPrice.
//
// Long:  (exit - entry) * lot * contract - fees
// Short: (entry - exit) * lot * contract - fees
//
// PnLPercent is relative to the notional at entry. Both values are rounded to
// two decimal places.
func Calculate(direction models.Direction, entryPrice, exitPrice, lotSize, contractSize, fees float64) Result {
	if contractSize <= 0 {
		contractSize = 1
	}

	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	units := decimal.NewFromFloat(lotSize).Mul(decimal.NewFromFloat(contractSize))

	move := exit.Sub(entry)
	if direction == models.DirectionShort {
		move = move.Neg()
	}

	gross := move.Mul(units)
	net := gross.Sub(decimal.NewFromFloat(fees))

	var pct decimal.Decimal
	notional := entry.Mul(units)
	if !notional.IsZero() {
		pct = net.Div(notional).Mul(decimal.NewFromInt(100))
	}

	return Result{
		PnL:        net.Round(2).InexactFloat64(),
		PnLPercent: pct.Round(2).InexactFloat64(),
	}
}

// Apply recomputes P&L on a closed trade in place. Open trades are reset to zero.
func Apply(t *models.Trade) {
	if t.ExitPrice == nil {
		t.PnL = 0
		t.PnLPercent = 0
		return
	}
	r := Calculate(t.Direction, t.EntryPrice, *t.ExitPrice, t.LotSize, t.ContractSize, t.Fees)
	t.PnL = r.PnL
	t.PnLPercent = r.PnLPercent
}
