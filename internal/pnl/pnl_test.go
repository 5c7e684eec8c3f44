package pnl

import (
	"testing"

	"trade-journal/internal/models"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		direction models.Direction
		entry     float64
		exit      float64
		lot       float64
		contract  float64
		fees      float64
		wantPnL   float64
		wantPct   float64
	}{
		{"long win", models.DirectionLong, 100, 110, 2, 1, 0, 20, 10},
		{"long loss with fees", models.DirectionLong, 100, 95, 1, 1, 1.5, -6.5, -6.5},
		{"short win", models.DirectionShort, 50, 40, 3, 1, 0, 30, 20},
		{"short loss", models.DirectionShort, 50, 55, 1, 10, 0, -50, -10},
		{"forex lot", models.DirectionLong, 1.1000, 1.1050, 1, 100000, 7, 493, 0.45},
		{"zero contract defaults to one", models.DirectionLong, 10, 12, 1, 0, 0, 2, 20},
		{"decimal precision", models.DirectionLong, 0.1, 0.3, 1, 1, 0, 0.2, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.direction, tt.entry, tt.exit, tt.lot, tt.contract, tt.fees)
			if got.PnL != tt.wantPnL {
				t.Errorf("PnL = %v, want %v", got.PnL, tt.wantPnL)
			}
			if got.PnLPercent != tt.wantPct {
				t.Errorf("PnLPercent = %v, want %v", got.PnLPercent, tt.wantPct)
			}
		})
	}
}

func TestCalculateZeroEntry(t *testing.T) {
	got := Calculate(models.DirectionLong, 0, 5, 1, 1, 0)
	if got.PnL != 5 || got.PnLPercent != 0 {
		t.Errorf("got %+v, want PnL 5 and PnLPercent 0", got)
	}
}

func TestApply(t *testing.T) {
	exit := 105.0
	trade := &models.Trade{
		Direction:    models.DirectionLong,
		EntryPrice:   100,
		ExitPrice:    &exit,
		LotSize:      1,
		ContractSize: 1,
	}
	Apply(trade)
	if trade.PnL != 5 {
		t.Errorf("PnL = %v, want 5", trade.PnL)
	}

	trade.ExitPrice = nil
	Apply(trade)
	if trade.PnL != 0 || trade.PnLPercent != 0 {
		t.Errorf("open trade should have zero P&L, got %+v", trade)
	}
}
