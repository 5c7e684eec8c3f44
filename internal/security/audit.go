package security

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"trade-journal/internal/logging"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// Authentication events
	AuditRegister   AuditEventType = "REGISTER"
	AuditLogin      AuditEventType = "LOGIN"
	AuditAuthFailed AuditEventType = "AUTH_FAILED"

	// Journal events
	AuditTradeDeleted   AuditEventType = "TRADE_DELETED"
	AuditAccountDeleted AuditEventType = "ACCOUNT_DELETED"
	AuditTradesImported AuditEventType = "TRADES_IMPORTED"

	// Billing events
	AuditSubscriptionChanged AuditEventType = "SUBSCRIPTION_CHANGED"

	// Security events
	AuditInputValidation AuditEventType = "INPUT_VALIDATION"
	AuditRateLimited     AuditEventType = "RATE_LIMITED"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType AuditEventType         `json:"event_type"`
	UserID    string                 `json:"user_id,omitempty"`
	Email     string                 `json:"email,omitempty"`
	Resource  string                 `json:"resource,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorMsg  string                 `json:"error,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// AuditLogger appends JSON audit events to a rotating file. A nil
// *AuditLogger discards events.
type AuditLogger struct {
	writer    io.WriteCloser
	mu        sync.Mutex
	sessionID string
	now       func() time.Time
}

// AuditConfig holds audit logger configuration.
type AuditConfig struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultAuditConfig returns the default audit configuration.
func DefaultAuditConfig() AuditConfig {
	home, _ := os.UserHomeDir()
	return AuditConfig{
		LogDir:     filepath.Join(home, ".config", "trade-journal", "audit"),
		MaxSize:    50,
		MaxBackups: 30,
		MaxAge:     365,
		Compress:   true,
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(cfg AuditConfig) (*AuditLogger, error) {
	// Audit directory is private to the running user
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	return newAuditLogger(writer), nil
}

func newAuditLogger(w io.WriteCloser) *AuditLogger {
	return &AuditLogger{
		writer:    w,
		sessionID: generateSessionID(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Log writes an audit event.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if al == nil {
		return nil
	}
	al.mu.Lock()
	defer al.mu.Unlock()

	event.Timestamp = al.now()
	event.SessionID = al.sessionID
	if reqID, ok := ctx.Value(logging.RequestIDKey).(string); ok {
		event.RequestID = reqID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}

	if _, err := al.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}

	return nil
}

// LogRegister logs a new account registration.
func (al *AuditLogger) LogRegister(ctx context.Context, userID, email, ip string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditRegister,
		UserID:    userID,
		Email:     MaskEmail(email),
		IPAddress: ip,
		Success:   true,
	})
}

// LogLogin logs a login attempt.
func (al *AuditLogger) LogLogin(ctx context.Context, userID, email, ip string, success bool, errorMsg string) error {
	eventType := AuditLogin
	if !success {
		eventType = AuditAuthFailed
	}
	return al.Log(ctx, AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Email:     MaskEmail(email),
		IPAddress: ip,
		Success:   success,
		ErrorMsg:  errorMsg,
	})
}

// LogDeletion logs the deletion of a trade or account.
func (al *AuditLogger) LogDeletion(ctx context.Context, eventType AuditEventType, userID, resourceID string) error {
	return al.Log(ctx, AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Resource:  resourceID,
		Action:    "delete",
		Success:   true,
	})
}

// LogImport logs a bulk trade import.
func (al *AuditLogger) LogImport(ctx context.Context, userID, accountID string, imported, skipped int) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditTradesImported,
		UserID:    userID,
		Resource:  accountID,
		Action:    "import",
		Success:   true,
		Details: map[string]interface{}{
			"imported": imported,
			"skipped":  skipped,
		},
	})
}

// LogSubscription logs a subscription change.
func (al *AuditLogger) LogSubscription(ctx context.Context, userID, action, plan, paymentRef string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditSubscriptionChanged,
		UserID:    userID,
		Action:    action,
		Success:   true,
		Details: map[string]interface{}{
			"plan":        plan,
			"payment_ref": MaskCredential(paymentRef),
		},
	})
}

// LogInputValidation logs an input validation failure.
func (al *AuditLogger) LogInputValidation(ctx context.Context, userID, field, reason string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditInputValidation,
		UserID:    userID,
		Success:   false,
		ErrorMsg:  reason,
		Details: map[string]interface{}{
			"field": field,
		},
	})
}

// LogRateLimited logs a request rejected by the rate limiter.
func (al *AuditLogger) LogRateLimited(ctx context.Context, ip, path string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditRateLimited,
		IPAddress: ip,
		Resource:  path,
		Success:   false,
	})
}

// Close closes the audit logger.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	return al.writer.Close()
}

// generateSessionID generates a unique session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
