package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := store.seedEmotions(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed emotions: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		plan TEXT NOT NULL DEFAULT 'free',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		broker TEXT,
		currency TEXT NOT NULL DEFAULT 'USD',
		initial_balance REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		UNIQUE(user_id, name),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		lot_size REAL NOT NULL,
		contract_size REAL NOT NULL DEFAULT 1,
		entry_price REAL NOT NULL,
		exit_price REAL,
		stop_loss REAL,
		take_profit REAL,
		fees REAL NOT NULL DEFAULT 0,
		pnl REAL NOT NULL DEFAULT 0,
		pnl_percent REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'open',
		entry_time DATETIME NOT NULL,
		exit_time DATETIME,
		setup TEXT,
		notes TEXT,
		tags TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS emotions (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		name TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		predefined INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS emotion_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		trade_id TEXT,
		emotion_id TEXT NOT NULL,
		intensity INTEGER NOT NULL,
		note TEXT,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (trade_id) REFERENCES trades(id) ON DELETE SET NULL,
		FOREIGN KEY (emotion_id) REFERENCES emotions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		plan TEXT NOT NULL,
		period TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_ref TEXT,
		started_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		cancelled_at DATETIME,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	-- Job bookkeeping
	CREATE TABLE IF NOT EXISTS job_runs (
		job TEXT PRIMARY KEY,
		last_run DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);
	CREATE INDEX IF NOT EXISTS idx_trades_user_entry ON trades(user_id, entry_time);
	CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(account_id);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_emotions_user ON emotions(user_id);
	CREATE INDEX IF NOT EXISTS idx_emotion_logs_user ON emotion_logs(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_emotion_logs_trade ON emotion_logs(trade_id);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(user_id);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_expiry ON subscriptions(status, expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// PredefinedEmotions are available to every user.
var PredefinedEmotions = []models.Emotion{
	{ID: "confident", Name: "Confident", Sentiment: models.SentimentPositive},
	{ID: "calm", Name: "Calm", Sentiment: models.SentimentPositive},
	{ID: "focused", Name: "Focused", Sentiment: models.SentimentPositive},
	{ID: "disciplined", Name: "Disciplined", Sentiment: models.SentimentPositive},
	{ID: "patient", Name: "Patient", Sentiment: models.SentimentPositive},
	{ID: "fearful", Name: "Fearful", Sentiment: models.SentimentNegative},
	{ID: "anxious", Name: "Anxious", Sentiment: models.SentimentNegative},
	{ID: "greedy", Name: "Greedy", Sentiment: models.SentimentNegative},
	{ID: "frustrated", Name: "Frustrated", Sentiment: models.SentimentNegative},
	{ID: "impatient", Name: "Impatient", Sentiment: models.SentimentNegative},
	{ID: "revengeful", Name: "Revengeful", Sentiment: models.SentimentNegative},
	{ID: "overconfident", Name: "Overconfident", Sentiment: models.SentimentNegative},
	{ID: "bored", Name: "Bored", Sentiment: models.SentimentNeutral},
	{ID: "uncertain", Name: "Uncertain", Sentiment: models.SentimentNeutral},
}

func (s *SQLiteStore) seedEmotions() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO emotions (id, user_id, name, sentiment, predefined)
		VALUES (?, NULL, ?, ?, 1)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range PredefinedEmotions {
		if _, err := stmt.Exec(e.ID, e.Name, e.Sentiment); err != nil {
			return fmt.Errorf("failed to insert emotion %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// translate maps driver constraint failures onto domain errors.
func translate(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	var sqlErr sqlite3.Error
	if apperrors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint {
		switch sqlErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return apperrors.NewDataError(entity, id, "already exists", apperrors.ErrConflict)
		case sqlite3.ErrConstraintForeignKey:
			return apperrors.NewDataError(entity, id, "references a missing record", apperrors.ErrNotFound)
		}
	}
	return apperrors.NewDataError(entity, id, "query failed", fmt.Errorf("%w: %v", apperrors.ErrDatabaseError, err))
}

// expectOne returns a not-found error when a write touched no rows.
func expectOne(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, entity, id)
	}
	if n == 0 {
		return apperrors.NotFound(entity, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ============================================================================
// Users
// ============================================================================

// CreateUser inserts a new user. The email is stored lower-cased.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if user.Plan == "" {
		user.Plan = models.PlanFree
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, plan, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.Name, user.PasswordHash, user.Plan, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	return translate(err, "user", user.Email)
}

const userColumns = "id, email, name, password_hash, plan, created_at, updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Plan, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("user", id)
	}
	if err != nil {
		return nil, translate(err, "user", id)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("user", email)
	}
	if err != nil {
		return nil, translate(err, "user", email)
	}
	return u, nil
}

// ListUsers returns all users ordered by creation time.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserPlan changes a user's plan tier.
func (s *SQLiteStore) UpdateUserPlan(ctx context.Context, id string, plan models.PlanTier) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET plan = ?, updated_at = ? WHERE id = ?
	`, plan, time.Now().UTC(), id)
	if err != nil {
		return translate(err, "user", id)
	}
	return expectOne(res, "user", id)
}

// ============================================================================
// Accounts
// ============================================================================

// CreateAccount inserts a trading account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, a *models.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, broker, currency, initial_balance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, a.Name, nullString(a.Broker), a.Currency, a.InitialBalance, a.CreatedAt.UTC())
	return translate(err, "account", a.Name)
}

const accountColumns = "id, user_id, name, broker, currency, initial_balance, created_at"

func scanAccount(row interface{ Scan(...interface{}) error }) (*models.Account, error) {
	var a models.Account
	var broker sql.NullString
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &broker, &a.Currency, &a.InitialBalance, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Broker = broker.String
	return &a, nil
}

// GetAccount retrieves an account owned by userID.
func (s *SQLiteStore) GetAccount(ctx context.Context, userID, id string) (*models.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ? AND user_id = ?", id, userID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("account", id)
	}
	if err != nil {
		return nil, translate(err, "account", id)
	}
	return a, nil
}

// ListAccounts returns the accounts owned by userID.
func (s *SQLiteStore) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = ? ORDER BY created_at ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account and, by cascade, its trades.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return translate(err, "account", id)
	}
	return expectOne(res, "account", id)
}

// ============================================================================
// Job bookkeeping
// ============================================================================

// GetLastRun returns when a background job last completed, or the zero time.
func (s *SQLiteStore) GetLastRun(ctx context.Context, job string) (time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, "SELECT last_run FROM job_runs WHERE job = ?", job).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("failed to get last run: %w", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}

// SetLastRun records when a background job completed.
func (s *SQLiteStore) SetLastRun(ctx context.Context, job string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO job_runs (job, last_run) VALUES (?, ?)
	`, job, t.UTC())
	if err != nil {
		return fmt.Errorf("failed to set last run: %w", err)
	}
	return nil
}
