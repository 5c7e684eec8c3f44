package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// SweepJob is the job name the expiry sweep records its runs under.
const SweepJob = "subscription-expiry"

// Service manages subscriptions and enforces plan limits.
type Service struct {
	store  store.DataStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a billing service.
func NewService(ds store.DataStore, logger zerolog.Logger) *Service {
	return &Service{
		store:  ds,
		logger: logging.WithComponent(logger, "billing"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe starts a paid subscription for a user. An existing subscription
// is replaced and the user's plan changes immediately.
func (s *Service) Subscribe(ctx context.Context, userID string, tier models.PlanTier, period models.BillingPeriod, paymentRef string) (*models.Subscription, error) {
	if !tier.Valid() || !GetPlan(tier).Paid() {
		return nil, apperrors.NewValidationError("plan", tier, "must be a paid plan")
	}
	if period != models.BillingMonthly && period != models.BillingYearly {
		return nil, apperrors.NewValidationError("period", period, "must be monthly or yearly")
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	if current, err := s.store.GetActiveSubscription(ctx, userID); err == nil {
		if current.Plan == tier && current.Period == period && current.Status == models.SubscriptionActive {
			return nil, apperrors.NewDataError("subscription", current.ID, "already subscribed to "+string(tier), apperrors.ErrConflict)
		}
		current.Status = models.SubscriptionExpired
		current.ExpiresAt = now
		if err := s.store.SaveSubscription(ctx, current); err != nil {
			return nil, apperrors.Wrap(err, "failed to replace subscription")
		}
	} else if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	sub := &models.Subscription{
		ID:         uuid.New().String(),
		UserID:     userID,
		Plan:       tier,
		Period:     period,
		Status:     models.SubscriptionActive,
		PaymentRef: paymentRef,
		StartedAt:  now,
		ExpiresAt:  expiry(now, period),
	}
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return nil, apperrors.Wrap(err, "failed to save subscription")
	}
	if err := s.store.UpdateUserPlan(ctx, userID, tier); err != nil {
		return nil, apperrors.Wrap(err, "failed to update user plan")
	}

	logging.LogSubscription(s.logger, userID, "subscribe", string(tier))
	return sub, nil
}

func expiry(start time.Time, period models.BillingPeriod) time.Time {
	if period == models.BillingYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// Current returns the user's subscription in effect.
func (s *Service) Current(ctx context.Context, userID string) (*models.Subscription, error) {
	return s.store.GetActiveSubscription(ctx, userID)
}

// Cancel stops renewal of the user's subscription. The plan stays in effect
// until the subscription expires.
func (s *Service) Cancel(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.store.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.SubscriptionCancelled {
		return nil, apperrors.NewDataError("subscription", sub.ID, "already cancelled", apperrors.ErrInvalidState)
	}

	now := s.now()
	sub.Status = models.SubscriptionCancelled
	sub.CancelledAt = &now
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return nil, apperrors.Wrap(err, "failed to cancel subscription")
	}

	logging.LogSubscription(s.logger, userID, "cancel", string(sub.Plan))
	return sub, nil
}

// SweepExpired marks lapsed subscriptions expired and downgrades their users
// to the free plan. It returns the number of subscriptions expired.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()
	subs, err := s.store.ListExpiredSubscriptions(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range subs {
		sub := &subs[i]
		sub.Status = models.SubscriptionExpired
		if err := s.store.SaveSubscription(ctx, sub); err != nil {
			s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to expire subscription")
			continue
		}
		if err := s.store.UpdateUserPlan(ctx, sub.UserID, models.PlanFree); err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
			s.logger.Error().Err(err).Str("user_id", sub.UserID).Msg("Failed to downgrade user")
			continue
		}
		logging.LogSubscription(s.logger, sub.UserID, "expire", string(sub.Plan))
		expired++
	}

	if err := s.store.SetLastRun(ctx, SweepJob, now); err != nil {
		return expired, err
	}
	if expired > 0 {
		s.logger.Info().Int("expired", expired).Msg("Subscription sweep complete")
	}
	return expired, nil
}

// CheckTradeLimit returns a LimitError when the user has used up the trades
// their plan allows this calendar month.
func (s *Service) CheckTradeLimit(ctx context.Context, user *models.User) error {
	plan := GetPlan(user.Plan)
	if plan.MaxTradesPerMonth == Unlimited {
		return nil
	}
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	n, err := s.store.CountTradesSince(ctx, user.ID, monthStart)
	if err != nil {
		return err
	}
	if n >= plan.MaxTradesPerMonth {
		return apperrors.NewLimitError(string(plan.Tier), "trades_per_month", n, plan.MaxTradesPerMonth)
	}
	return nil
}

// CheckAccountLimit returns a LimitError when the user cannot open another
// trading account.
func (s *Service) CheckAccountLimit(ctx context.Context, user *models.User) error {
	plan := GetPlan(user.Plan)
	if plan.MaxAccounts == Unlimited {
		return nil
	}
	accounts, err := s.store.ListAccounts(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(accounts) >= plan.MaxAccounts {
		return apperrors.NewLimitError(string(plan.Tier), "accounts", len(accounts), plan.MaxAccounts)
	}
	return nil
}

// CheckFeature returns a LimitError when the user's plan lacks a feature.
func (s *Service) CheckFeature(user *models.User, feature string) error {
	plan := GetPlan(user.Plan)
	var allowed bool
	switch feature {
	case FeatureCustomEmotions:
		allowed = plan.CustomEmotions
	case FeatureCSVExport:
		allowed = plan.CSVExport
	default:
		allowed = true
	}
	if !allowed {
		return apperrors.NewLimitError(string(plan.Tier), feature, 0, 0)
	}
	return nil
}

// Features gated by plan.
const (
	FeatureCustomEmotions = "custom_emotions"
	FeatureCSVExport      = "csv_export"
)
