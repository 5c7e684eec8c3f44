package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

const subscriptionColumns = "id, user_id, plan, period, status, payment_ref, started_at, expires_at, cancelled_at"

// SaveSubscription inserts or replaces a subscription.
func (s *SQLiteStore) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.UserID, sub.Plan, sub.Period, sub.Status, nullString(sub.PaymentRef),
		sub.StartedAt.UTC(), sub.ExpiresAt.UTC(), nullTime(sub.CancelledAt))
	return translate(err, "subscription", sub.ID)
}

func scanSubscription(row interface{ Scan(...interface{}) error }) (*models.Subscription, error) {
	var sub models.Subscription
	var ref sql.NullString
	var cancelled sql.NullTime
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.Plan, &sub.Period, &sub.Status, &ref,
		&sub.StartedAt, &sub.ExpiresAt, &cancelled); err != nil {
		return nil, err
	}
	sub.PaymentRef = ref.String
	sub.CancelledAt = timePtr(cancelled)
	return &sub, nil
}

// GetActiveSubscription returns the user's most recent subscription that has
// not expired. Cancelled subscriptions stay in effect until they expire.
func (s *SQLiteStore) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := scanSubscription(s.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = ? AND status IN (?, ?)
		ORDER BY started_at DESC LIMIT 1
	`, userID, models.SubscriptionActive, models.SubscriptionCancelled))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("subscription", userID)
	}
	if err != nil {
		return nil, translate(err, "subscription", userID)
	}
	return sub, nil
}

// ListExpiredSubscriptions returns subscriptions still marked active or
// cancelled whose expiry is at or before asOf.
func (s *SQLiteStore) ListExpiredSubscriptions(ctx context.Context, asOf time.Time) ([]models.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE status IN (?, ?) AND expires_at <= ?
		ORDER BY expires_at ASC
	`, models.SubscriptionActive, models.SubscriptionCancelled, asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []models.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}
