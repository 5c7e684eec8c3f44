// Package journal implements the trading journal: users, accounts, trades,
// emotion tracking and the performance report.
package journal

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-journal/internal/analysis/insights"
	"trade-journal/internal/auth"
	"trade-journal/internal/billing"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/security"
	"trade-journal/internal/store"
)

// Config wires the journal service to its collaborators.
type Config struct {
	Store            store.DataStore
	Billing          *billing.Service
	Passwords        *auth.PasswordManager
	Audit            *security.AuditLogger // optional
	Logger           zerolog.Logger
	StrictValidation bool
}

// Service is the journal's application layer.
type Service struct {
	store     store.DataStore
	billing   *billing.Service
	passwords *auth.PasswordManager
	audit     *security.AuditLogger
	validator *security.InputValidator
	insights  *insights.Generator
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates a journal service.
func NewService(cfg Config) *Service {
	logger := logging.WithComponent(cfg.Logger, "journal")
	passwords := cfg.Passwords
	if passwords == nil {
		passwords = auth.NewPasswordManager(0)
	}
	bill := cfg.Billing
	if bill == nil {
		bill = billing.NewService(cfg.Store, cfg.Logger)
	}
	return &Service{
		store:     cfg.Store,
		billing:   bill,
		passwords: passwords,
		audit:     cfg.Audit,
		validator: security.NewInputValidator(cfg.StrictValidation),
		insights:  insights.NewGenerator(cfg.Logger),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Billing returns the billing service the journal enforces limits with.
func (s *Service) Billing() *billing.Service {
	return s.billing
}

func newID() string {
	return uuid.New().String()
}

// ============================================================================
// Users
// ============================================================================

// RegisterInput is the data needed to create a user.
type RegisterInput struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required"`
}

// Register creates a user on the free plan.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := s.validator.ValidateEmail(in.Email); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(in.Email, "@", 2)[0]
	}
	if err := s.validator.ValidateText("name", name, 100); err != nil {
		return nil, err
	}
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		ID:           newID(),
		Email:        in.Email,
		Name:         security.SanitizeText(name),
		PasswordHash: hash,
		Plan:         models.PlanFree,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User registered")
	return user, nil
}

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.passwords.Verify(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	return user, nil
}

// User returns a user by ID.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

// UserByEmail returns a user by email.
func (s *Service) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.store.GetUserByEmail(ctx, email)
}

// Users lists every user.
func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// ============================================================================
// Accounts
// ============================================================================

// AccountInput is the data needed to open a trading account.
type AccountInput struct {
	Name           string  `json:"name" binding:"required"`
	Broker         string  `json:"broker"`
	Currency       string  `json:"currency"`
	InitialBalance float64 `json:"initial_balance"`
}

// CreateAccount opens a trading account within the user's plan limit.
func (s *Service) CreateAccount(ctx context.Context, userID string, in AccountInput) (*models.Account, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateName("name", in.Name); err != nil {
		return nil, err
	}
	if in.Broker != "" {
		if err := s.validator.ValidateName("broker", in.Broker); err != nil {
			return nil, err
		}
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, apperrors.NewValidationError("currency", in.Currency, "must be a 3-letter code")
	}
	if in.InitialBalance < 0 {
		return nil, apperrors.NewValidationError("initial_balance", in.InitialBalance, "cannot be negative")
	}
	if err := s.billing.CheckAccountLimit(ctx, user); err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:             newID(),
		UserID:         userID,
		Name:           strings.TrimSpace(in.Name),
		Broker:         strings.TrimSpace(in.Broker),
		Currency:       currency,
		InitialBalance: in.InitialBalance,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Accounts lists the user's trading accounts.
func (s *Service) Accounts(ctx context.Context, userID string) ([]models.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}

// DeleteAccount removes an account and all of its trades.
func (s *Service) DeleteAccount(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteAccount(ctx, userID, id); err != nil {
		return err
	}
	s.audit.LogDeletion(ctx, security.AuditAccountDeleted, userID, id)
	return nil
}
