// Package security provides input validation and audit logging.
package security

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// Validation patterns
var (
	// Symbol pattern: uppercase letters, numbers and the separators brokers use
	symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9./_&-]{0,19}$`)

	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

	// Account and emotion names: letters, digits, spaces and simple punctuation
	namePattern = regexp.MustCompile(`^[\p{L}0-9 _.'()-]{1,50}$`)

	// SQL injection patterns
	sqlInjectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(union\s+select|drop\s+table|insert\s+into|delete\s+from|update\s+\w+\s+set)`),
		regexp.MustCompile(`(?i)('\s*or\s+'?1'?\s*=\s*'?1|\bor\s+1\s*=\s*1)`),
	}

	// Script injection patterns
	scriptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<\s*script`),
		regexp.MustCompile(`(?i)javascript:`),
	}
)

// Limits for free-form input.
const (
	MaxNotesLength = 5000
	MaxSetupLength = 100
	MaxTagLength   = 30
	MaxTags        = 20
	MaxLotSize     = 1e7
	MaxPrice       = 1e9
)

// InputValidator provides input validation functionality.
type InputValidator struct {
	strictMode bool
}

// NewInputValidator creates a new input validator. In strict mode free-form
// text is also checked for injection attempts.
func NewInputValidator(strictMode bool) *InputValidator {
	return &InputValidator{strictMode: strictMode}
}

// ValidateSymbol validates a trading symbol.
func (v *InputValidator) ValidateSymbol(symbol string) error {
	symbol = SanitizeSymbol(symbol)

	if symbol == "" {
		return apperrors.NewValidationError("symbol", symbol, "symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return apperrors.NewValidationError("symbol", symbol, "symbol too long (max 20 characters)")
	}
	if !symbolPattern.MatchString(symbol) {
		return apperrors.NewValidationError("symbol", symbol, "invalid symbol format")
	}
	return nil
}

// ValidateEmail validates an email address.
func (v *InputValidator) ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperrors.NewValidationError("email", email, "email cannot be empty")
	}
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return apperrors.NewValidationError("email", MaskEmail(email), "invalid email address")
	}
	return nil
}

// ValidateName validates a short display name such as an account or emotion.
func (v *InputValidator) ValidateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.NewValidationError(field, name, "cannot be empty")
	}
	if !namePattern.MatchString(name) {
		return apperrors.NewValidationError(field, name, "invalid characters (max 50)")
	}
	return nil
}

// ValidateLotSize validates a position size.
func (v *InputValidator) ValidateLotSize(size float64) error {
	if math.IsNaN(size) || size <= 0 {
		return apperrors.NewValidationError("lot_size", size, "lot size must be positive")
	}
	if size > MaxLotSize {
		return apperrors.NewValidationError("lot_size", size, "lot size exceeds maximum allowed")
	}
	return nil
}

// ValidatePrice validates a price value.
func (v *InputValidator) ValidatePrice(field string, price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return apperrors.NewValidationError(field, price, "price must be positive")
	}
	if price > MaxPrice {
		return apperrors.NewValidationError(field, price, "price exceeds maximum allowed")
	}
	return nil
}

// ValidateIntensity validates an emotion intensity.
func (v *InputValidator) ValidateIntensity(intensity int) error {
	if intensity < 1 || intensity > 10 {
		return apperrors.NewValidationError("intensity", intensity, "intensity must be between 1 and 10")
	}
	return nil
}

// ValidateText validates free-form text input.
func (v *InputValidator) ValidateText(field, text string, maxLen int) error {
	if len(text) > maxLen {
		return apperrors.NewValidationError(field, truncate(text, 50), fmt.Sprintf("text too long (max %d characters)", maxLen))
	}

	if v.strictMode && v.containsInjection(text) {
		return apperrors.NewValidationError(field, truncate(text, 50), "potentially dangerous content detected")
	}

	return nil
}

// ValidateTrade checks every user-supplied field of a trade.
func (v *InputValidator) ValidateTrade(t *models.Trade) error {
	if err := v.ValidateSymbol(t.Symbol); err != nil {
		return err
	}
	if !t.Direction.Valid() {
		return apperrors.NewValidationError("direction", t.Direction, "must be long or short")
	}
	if err := v.ValidateLotSize(t.LotSize); err != nil {
		return err
	}
	if t.ContractSize < 0 {
		return apperrors.NewValidationError("contract_size", t.ContractSize, "cannot be negative")
	}
	if err := v.ValidatePrice("entry_price", t.EntryPrice); err != nil {
		return err
	}
	optional := []struct {
		field string
		price *float64
	}{
		{"exit_price", t.ExitPrice},
		{"stop_loss", t.StopLoss},
		{"take_profit", t.TakeProfit},
	}
	for _, o := range optional {
		if o.price == nil {
			continue
		}
		if err := v.ValidatePrice(o.field, *o.price); err != nil {
			return err
		}
	}
	if t.Fees < 0 {
		return apperrors.NewValidationError("fees", t.Fees, "cannot be negative")
	}
	if t.EntryTime.IsZero() {
		return apperrors.NewValidationError("entry_time", "", "is required")
	}
	if t.ExitTime != nil && t.ExitTime.Before(t.EntryTime) {
		return apperrors.NewValidationError("exit_time", t.ExitTime, "cannot be before entry time")
	}
	if err := v.ValidateText("setup", t.Setup, MaxSetupLength); err != nil {
		return err
	}
	if err := v.ValidateText("notes", t.Notes, MaxNotesLength); err != nil {
		return err
	}
	if len(t.Tags) > MaxTags {
		return apperrors.NewValidationError("tags", len(t.Tags), fmt.Sprintf("at most %d tags", MaxTags))
	}
	for _, tag := range t.Tags {
		if tag == "" || len(tag) > MaxTagLength {
			return apperrors.NewValidationError("tags", tag, fmt.Sprintf("tags must be 1-%d characters", MaxTagLength))
		}
	}
	return nil
}

// containsInjection checks for SQL or script injection patterns.
func (v *InputValidator) containsInjection(input string) bool {
	for _, pattern := range sqlInjectionPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	for _, pattern := range scriptPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// SanitizeSymbol upper-cases and trims a symbol.
func SanitizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}

// SanitizeText removes control characters other than newlines and tabs.
func SanitizeText(text string) string {
	var result strings.Builder
	for _, r := range text {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// SanitizeTags trims tags, drops empties and duplicates, and lower-cases them.
func SanitizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// MaskEmail hides most of the local part of an email address.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return MaskCredential(email)
	}
	local := email[:at]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + email[at:]
	}
	return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + email[at:]
}

// MaskCredential masks a credential value for logging.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}
