package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

var epoch = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *SQLiteStore, id, email string) *models.User {
	t.Helper()
	u := &models.User{ID: id, Email: email, Name: id, PasswordHash: "hash", CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedAccount(t *testing.T, s *SQLiteStore, userID, id string) *models.Account {
	t.Helper()
	a := &models.Account{ID: id, UserID: userID, Name: "main-" + id, Currency: "USD", InitialBalance: 10000, CreatedAt: epoch}
	require.NoError(t, s.CreateAccount(context.Background(), a))
	return a
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := seedUser(t, s, "u1", "  Trader@Example.com ")
	assert.Equal(t, "trader@example.com", u.Email)
	assert.Equal(t, models.PlanFree, u.Plan)

	got, err := s.GetUserByEmail(ctx, "TRADER@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	dup := &models.User{ID: "u2", Email: "trader@example.com", Name: "x", PasswordHash: "h", CreatedAt: epoch, UpdatedAt: epoch}
	err = s.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, s.UpdateUserPlan(ctx, "u1", models.PlanPro))
	got, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, got.Plan)

	assert.ErrorIs(t, s.UpdateUserPlan(ctx, "missing", models.PlanPro), apperrors.ErrNotFound)
	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "u1", "a@example.com")
	seedUser(t, s, "u2", "b@example.com")

	seedAccount(t, s, "u1", "acc1")
	err := s.CreateAccount(ctx, &models.Account{ID: "acc2", UserID: "u1", Name: "main-acc1", Currency: "USD", CreatedAt: epoch})
	assert.ErrorIs(t, err, apperrors.ErrConflict, "account names are unique per user")

	err = s.CreateAccount(ctx, &models.Account{ID: "acc3", UserID: "ghost", Name: "x", Currency: "USD", CreatedAt: epoch})
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "unknown user must be rejected")

	_, err = s.GetAccount(ctx, "u2", "acc1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "accounts are scoped to their owner")

	list, err := s.ListAccounts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 10000.0, list[0].InitialBalance)

	require.NoError(t, s.DeleteAccount(ctx, "u1", "acc1"))
	assert.ErrorIs(t, s.DeleteAccount(ctx, "u1", "acc1"), apperrors.ErrNotFound)
}

func sampleTrade(id, userID, accountID string, entry time.Time) *models.Trade {
	stop := 1.0950
	return &models.Trade{
		ID:           id,
		UserID:       userID,
		AccountID:    accountID,
		Symbol:       "EURUSD",
		Direction:    models.DirectionLong,
		LotSize:      1,
		ContractSize: 100000,
		EntryPrice:   1.1000,
		StopLoss:     &stop,
		Fees:         7,
		Status:       models.TradeOpen,
		EntryTime:    entry,
		Setup:        "breakout",
		Tags:         []string{"london", "trend"},
		CreatedAt:    entry,
		UpdatedAt:    entry,
	}
}

func TestTradesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "u1", "a@example.com")
	seedAccount(t, s, "u1", "acc1")

	tr := sampleTrade("t1", "u1", "acc1", epoch)
	require.NoError(t, s.CreateTrade(ctx, tr))

	got, err := s.GetTrade(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Nil(t, got.ExitPrice)
	assert.Nil(t, got.ExitTime)
	assert.Nil(t, got.TakeProfit)
	require.NotNil(t, got.StopLoss)
	assert.Equal(t, 1.0950, *got.StopLoss)
	assert.Equal(t, []string{"london", "trend"}, got.Tags)
	assert.True(t, got.EntryTime.Equal(epoch))

	exit := 1.1050
	exitTime := epoch.Add(2 * time.Hour)
	got.ExitPrice = &exit
	got.ExitTime = &exitTime
	got.Status = models.TradeClosed
	got.PnL = 493
	got.UpdatedAt = exitTime
	require.NoError(t, s.UpdateTrade(ctx, got))

	closed, err := s.GetTrade(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TradeClosed, closed.Status)
	assert.Equal(t, 493.0, closed.PnL)
	require.NotNil(t, closed.ExitTime)
	assert.True(t, closed.ExitTime.Equal(exitTime))

	_, err = s.GetTrade(ctx, "u2", "t1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTradesRejectOrphans(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "u1", "a@example.com")

	err := s.CreateTrade(ctx, sampleTrade("t1", "u1", "no-such-account", epoch))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListTradesFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "u1", "a@example.com")
	seedUser(t, s, "u2", "b@example.com")
	seedAccount(t, s, "u1", "acc1")
	seedAccount(t, s, "u1", "acc2")
	seedAccount(t, s, "u2", "acc3")

	for i, spec := range []struct{ id, user, account, symbol string }{
		{"t1", "u1", "acc1", "EURUSD"},
		{"t2", "u1", "acc2", "GBPUSD"},
		{"t3", "u1", "acc1", "EURUSD"},
		{"t4", "u2", "acc3", "EURUSD"},
	} {
		tr := sampleTrade(spec.id, spec.user, spec.account, epoch.Add(time.Duration(i)*24*time.Hour))
		tr.Symbol = spec.symbol
		require.NoError(t, s.CreateTrade(ctx, tr))
	}

	all, err := s.ListTrades(ctx, models.TradeFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "t1", all[0].ID, "oldest first")

	byAccount, err := s.ListTrades(ctx, models.TradeFilter{UserID: "u1", AccountID: "acc1"})
	require.NoError(t, err)
	assert.Len(t, byAccount, 2)

	bySymbol, err := s.ListTrades(ctx, models.TradeFilter{UserID: "u1", Symbol: "GBPUSD"})
	require.NoError(t, err)
	assert.Len(t, bySymbol, 1)

	ranged, err := s.ListTrades(ctx, models.TradeFilter{UserID: "u1", StartDate: epoch.Add(12 * time.Hour), EndDate: epoch.Add(36 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "t2", ranged[0].ID)

	open, err := s.ListTrades(ctx, models.TradeFilter{UserID: "u1", Status: models.TradeClosed})
	require.NoError(t, err)
	assert.Empty(t, open)
	assert.NotNil(t, open)

	limited, err := s.ListTrades(ctx, models.TradeFilter{UserID: "u1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	n, err := s.CountTradesSince(ctx, "u1", epoch.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteAccountCascadesTrades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "u1", "a@example.com")
	seedAccount(t, s, "u1", "acc1")
	require.NoError(t, s.CreateTrade(ctx, sampleTrade("t1", "u1", "acc1", epoch)))

	require.NoError(t, s.DeleteAccount(ctx, "u1", "acc1"))
	trades, err := s.ListTrades(ctx, models.TradeFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestEmotions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "u1", "a@example.com")
	seedUser(t, s, "u2", "b@example.com")

	list, err := s.ListEmotions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, len(PredefinedEmotions))

	custom := &models.Emotion{ID: "e1", UserID: "u1", Name: "Euphoric", Sentiment: models.SentimentPositive}
	require.NoError(t, s.CreateEmotion(ctx, custom))

	list, err = s.ListEmotions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, len(PredefinedEmotions)+1)
	assert.False(t, list[len(list)-1].Predefined)

	_, err = s.GetEmotion(ctx, "u2", "e1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "custom emotions are private")

	fear, err := s.GetEmotion(ctx, "u2", "fearful")
	require.NoError(t, err)
	assert.True(t, fear.Predefined)
	assert.Equal(t, models.SentimentNegative, fear.Sentiment)

	assert.ErrorIs(t, s.DeleteEmotion(ctx, "u1", "fearful"), apperrors.ErrNotFound)
	require.NoError(t, s.DeleteEmotion(ctx, "u1", "e1"))
}

func TestEmotionLogs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "u1", "a@example.com")
	seedAccount(t, s, "u1", "acc1")
	require.NoError(t, s.CreateTrade(ctx, sampleTrade("t1", "u1", "acc1", epoch)))

	logs := []*models.EmotionLog{
		{ID: "l1", UserID: "u1", TradeID: "t1", EmotionID: "fearful", Intensity: 7, CreatedAt: epoch},
		{ID: "l2", UserID: "u1", EmotionID: "calm", Intensity: 3, Note: "pre-market", CreatedAt: epoch.Add(time.Hour)},
	}
	for _, l := range logs {
		require.NoError(t, s.CreateEmotionLog(ctx, l))
	}

	err := s.CreateEmotionLog(ctx, &models.EmotionLog{ID: "l3", UserID: "u1", EmotionID: "no-such", Intensity: 1, CreatedAt: epoch})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := s.ListEmotionLogs(ctx, models.EmotionLogFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Fearful", got[0].EmotionName)
	assert.Equal(t, models.SentimentNegative, got[0].Sentiment)
	assert.Equal(t, "pre-market", got[1].Note)

	byTrade, err := s.ListEmotionLogs(ctx, models.EmotionLogFilter{UserID: "u1", TradeID: "t1"})
	require.NoError(t, err)
	assert.Len(t, byTrade, 1)

	// deleting the trade keeps the log but detaches it
	require.NoError(t, s.DeleteTrade(ctx, "u1", "t1"))
	got, err = s.ListEmotionLogs(ctx, models.EmotionLogFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].TradeID)

	require.NoError(t, s.DeleteEmotionLog(ctx, "u1", "l2"))
	assert.ErrorIs(t, s.DeleteEmotionLog(ctx, "u1", "l2"), apperrors.ErrNotFound)
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "u1", "a@example.com")

	_, err := s.GetActiveSubscription(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	sub := &models.Subscription{
		ID: "s1", UserID: "u1", Plan: models.PlanPro, Period: models.BillingMonthly,
		Status: models.SubscriptionActive, PaymentRef: "pay_123",
		StartedAt: epoch, ExpiresAt: epoch.AddDate(0, 1, 0),
	}
	require.NoError(t, s.SaveSubscription(ctx, sub))

	got, err := s.GetActiveSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "pay_123", got.PaymentRef)
	assert.Nil(t, got.CancelledAt)

	expired, err := s.ListExpiredSubscriptions(ctx, epoch.AddDate(0, 0, 15))
	require.NoError(t, err)
	assert.Empty(t, expired)

	expired, err = s.ListExpiredSubscriptions(ctx, epoch.AddDate(0, 2, 0))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "s1", expired[0].ID)

	got.Status = models.SubscriptionExpired
	require.NoError(t, s.SaveSubscription(ctx, got))
	_, err = s.GetActiveSubscription(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLastRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	last, err := s.GetLastRun(ctx, "sweep")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	require.NoError(t, s.SetLastRun(ctx, "sweep", epoch))
	last, err = s.GetLastRun(ctx, "sweep")
	require.NoError(t, err)
	assert.True(t, last.Equal(epoch))
}
