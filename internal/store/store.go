// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"trade-journal/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserPlan(ctx context.Context, id string, plan models.PlanTier) error

	// Accounts
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, userID, id string) (*models.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	DeleteAccount(ctx context.Context, userID, id string) error

	// Trades
	CreateTrade(ctx context.Context, trade *models.Trade) error
	UpdateTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, userID, id string) (*models.Trade, error)
	ListTrades(ctx context.Context, filter models.TradeFilter) ([]models.Trade, error)
	CountTradesSince(ctx context.Context, userID string, since time.Time) (int, error)
	DeleteTrade(ctx context.Context, userID, id string) error

	// Emotions
	ListEmotions(ctx context.Context, userID string) ([]models.Emotion, error)
	GetEmotion(ctx context.Context, userID, id string) (*models.Emotion, error)
	CreateEmotion(ctx context.Context, emotion *models.Emotion) error
	DeleteEmotion(ctx context.Context, userID, id string) error

	// Emotion logs
	CreateEmotionLog(ctx context.Context, log *models.EmotionLog) error
	ListEmotionLogs(ctx context.Context, filter models.EmotionLogFilter) ([]models.EmotionLog, error)
	DeleteEmotionLog(ctx context.Context, userID, id string) error

	// Subscriptions
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
	GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	ListExpiredSubscriptions(ctx context.Context, asOf time.Time) ([]models.Subscription, error)

	// Job bookkeeping
	GetLastRun(ctx context.Context, job string) (time.Time, error)
	SetLastRun(ctx context.Context, job string, t time.Time) error

	// Lifecycle
	Close() error
}
