package store

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trade-journal/internal/models"
)

// Property: for any valid trade, saving it and reading it back produces an
// equivalent trade (round-trip consistency).
func TestProperty_TradeRoundTripConsistency(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trades_property.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateUser(ctx, &models.User{ID: "u1", Email: "p@example.com", Name: "p", PasswordHash: "h", CreatedAt: epoch, UpdatedAt: epoch}); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if err := store.CreateAccount(ctx, &models.Account{ID: "acc1", UserID: "u1", Name: "main", Currency: "USD", CreatedAt: epoch}); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"EURUSD", "GBPUSD", "XAUUSD", "BTCUSD", "ES", "NQ", "AAPL", "TSLA"}
	counter := 0

	properties.Property("Trade round-trip: save then retrieve produces equivalent data", prop.ForAll(
		func(symbolIdx int, short bool, entryPrice, lots float64, closed bool, exitPrice float64, holdMinutes int) bool {
			counter++
			tr := sampleTrade(fmt.Sprintf("prop-%d", counter), "u1", "acc1", epoch.Add(time.Duration(counter)*time.Minute))
			tr.Symbol = symbols[symbolIdx%len(symbols)]
			tr.EntryPrice = entryPrice
			tr.LotSize = lots
			if short {
				tr.Direction = models.DirectionShort
			}
			if closed {
				exit := tr.EntryTime.Add(time.Duration(holdMinutes) * time.Minute)
				tr.ExitPrice = &exitPrice
				tr.ExitTime = &exit
				tr.Status = models.TradeClosed
				tr.PnL = (exitPrice - entryPrice) * lots
			}

			if err := store.CreateTrade(ctx, tr); err != nil {
				t.Logf("Failed to save trade: %v", err)
				return false
			}

			got, err := store.GetTrade(ctx, "u1", tr.ID)
			if err != nil {
				t.Logf("Failed to get trade: %v", err)
				return false
			}

			if !tradesEqual(*tr, *got) {
				t.Logf("Trade mismatch: original=%+v, retrieved=%+v", tr, got)
				return false
			}
			return true
		},
		gen.IntRange(0, 100),
		gen.Bool(),
		gen.Float64Range(0.5, 5000.0),
		gen.Float64Range(0.01, 100.0),
		gen.Bool(),
		gen.Float64Range(0.5, 5000.0),
		gen.IntRange(1, 10000),
	))

	properties.TestingRun(t)
}

func tradesEqual(a, b models.Trade) bool {
	const tolerance = 1e-9
	floatEq := func(x, y float64) bool { return math.Abs(x-y) < tolerance }

	if a.ID != b.ID || a.Symbol != b.Symbol || a.Direction != b.Direction || a.Status != b.Status {
		return false
	}
	if !floatEq(a.EntryPrice, b.EntryPrice) || !floatEq(a.LotSize, b.LotSize) || !floatEq(a.PnL, b.PnL) {
		return false
	}
	if !a.EntryTime.Equal(b.EntryTime) {
		return false
	}
	if (a.ExitPrice == nil) != (b.ExitPrice == nil) || (a.ExitTime == nil) != (b.ExitTime == nil) {
		return false
	}
	if a.ExitPrice != nil && !floatEq(*a.ExitPrice, *b.ExitPrice) {
		return false
	}
	if a.ExitTime != nil && !a.ExitTime.Equal(*b.ExitTime) {
		return false
	}
	return len(a.Tags) == len(b.Tags)
}
