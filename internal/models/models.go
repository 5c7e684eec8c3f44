// Package models provides domain models for the trading journal.
package models

import (
	"time"
)

// Direction represents the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// PlanTier represents a subscription plan.
type PlanTier string

const (
	PlanFree  PlanTier = "free"
	PlanPro   PlanTier = "pro"
	PlanElite PlanTier = "elite"
)

// Valid reports whether p is a known plan tier.
func (p PlanTier) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanElite:
		return true
	}
	return false
}

// User represents a journal user.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Plan         PlanTier  `json:"plan"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Account represents a trading account a user records trades against.
type Account struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Broker         string    `json:"broker,omitempty"`
	Currency       string    `json:"currency"`
	InitialBalance float64   `json:"initial_balance"`
	CreatedAt      time.Time `json:"created_at"`
}

// BillingPeriod is the renewal interval of a subscription.
type BillingPeriod string

const (
	BillingMonthly BillingPeriod = "monthly"
	BillingYearly  BillingPeriod = "yearly"
)

// SubscriptionStatus represents the state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription represents a paid plan held by a user.
type Subscription struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	Plan        PlanTier           `json:"plan"`
	Period      BillingPeriod      `json:"period"`
	Status      SubscriptionStatus `json:"status"`
	PaymentRef  string             `json:"payment_ref,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	ExpiresAt   time.Time          `json:"expires_at"`
	CancelledAt *time.Time         `json:"cancelled_at,omitempty"`
}
