package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/config"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/models"
)

const testConfig = `
[auth]
bcrypt_cost = 4

[logging]
level = "error"
file = false
`

// newConfigDir returns a config directory with a fast, quiet configuration.
func newConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(dir), []byte(testConfig), 0600))
	return dir
}

// run executes the CLI against dir and returns what it printed.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config", dir}, args...))
	err := root.Execute()
	return out.String(), err
}

// runJSON executes the CLI in JSON mode and decodes its output into v.
func runJSON(t *testing.T, dir string, v interface{}, args ...string) {
	t.Helper()
	out, err := run(t, dir, append(args, "--json")...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestVersionAndConfig(t *testing.T) {
	dir := newConfigDir(t)

	var version map[string]string
	runJSON(t, dir, &version, "version")
	assert.Equal(t, Version, version["version"])

	out, err := run(t, dir, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, config.FileName), strings.TrimSpace(out))

	var valid map[string]bool
	runJSON(t, dir, &valid, "config", "validate")
	assert.True(t, valid["valid"])
	assert.False(t, valid["serve_ready"])

	t.Setenv("JOURNAL_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	out, err = run(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Database:")
	assert.NotContains(t, out, "0123456789abcdef0123456789abcdef")
}

func TestServeRequiresSecret(t *testing.T) {
	dir := newConfigDir(t)
	t.Setenv("JOURNAL_JWT_SECRET", "")
	_, err := run(t, dir, "serve")
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

func TestJournalWorkflow(t *testing.T) {
	dir := newConfigDir(t)

	var created struct {
		User    models.User    `json:"user"`
		Account models.Account `json:"account"`
	}
	runJSON(t, dir, &created, "user", "add", "trader@example.com", "--password", "s3cretpass")
	assert.Equal(t, models.PlanFree, created.User.Plan)
	assert.Equal(t, "Main", created.Account.Name)

	// closed on entry
	var won models.Trade
	runJSON(t, dir, &won, "trade", "add", "ES", "long", "2", "100", "--exit", "110", "--fees", "1", "--sl", "95", "--tags", "breakout,a+")
	assert.Equal(t, models.TradeClosed, won.Status)
	assert.InDelta(t, 19, won.PnL, 1e-9)
	assert.Equal(t, []string{"breakout", "a+"}, won.Tags)

	// open, then closed
	var open models.Trade
	runJSON(t, dir, &open, "trade", "add", "NQ", "short", "1", "200", "--account", "main")
	assert.Equal(t, models.TradeOpen, open.Status)
	assert.Nil(t, open.ExitPrice)

	var closed models.Trade
	runJSON(t, dir, &closed, "trade", "close", open.ID, "190")
	assert.InDelta(t, 10, closed.PnL, 1e-9)

	_, err := run(t, dir, "trade", "close", open.ID, "180")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	var trades []models.Trade
	runJSON(t, dir, &trades, "trade", "list")
	assert.Len(t, trades, 2)
	runJSON(t, dir, &trades, "trade", "list", "--symbol", "es")
	require.Len(t, trades, 1)
	assert.Equal(t, won.ID, trades[0].ID)

	var logged models.EmotionLog
	runJSON(t, dir, &logged, "emotion", "log", "fearful", "7", "--trade", closed.ID, "--note", "chased the move")
	assert.Equal(t, "Fearful", logged.EmotionName)
	assert.Equal(t, models.SentimentNegative, logged.Sentiment)

	_, err = run(t, dir, "emotion", "log", "fearful", "11")
	assert.ErrorIs(t, err, apperrors.ErrInputValidation)

	var report journal.Report
	runJSON(t, dir, &report, "analyze")
	assert.Equal(t, 2, report.Stats.TotalTrades)
	assert.InDelta(t, 29, report.Stats.TotalPnL, 1e-9)
	assert.Equal(t, 1, report.Emotions.TotalLogs)
	assert.Equal(t, models.PlanFree, report.Plan)

	out, err := run(t, dir, "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "Performance")
	assert.Contains(t, out, "+29.00")

	// CSV export is a paid feature
	_, err = run(t, dir, "trade", "export")
	assert.ErrorIs(t, err, apperrors.ErrPlanLimit)

	out, err = run(t, dir, "trade", "delete", won.ID)
	require.NoError(t, err)
	assert.Contains(t, out, won.ID)
	runJSON(t, dir, &trades, "trade", "list")
	assert.Len(t, trades, 1)
}

func TestTradeImport(t *testing.T) {
	dir := newConfigDir(t)
	_, err := run(t, dir, "user", "add", "trader@example.com", "--password", "s3cretpass")
	require.NoError(t, err)

	csvPath := filepath.Join(t.TempDir(), "trades.csv")
	csv := "symbol,direction,lot_size,entry_price,exit_price,entry_time\n" +
		"EURUSD,long,1,1.1,1.2,2024-03-04 09:30\n" +
		"EURUSD,sideways,1,1.1,1.2,2024-03-04 10:30\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0600))

	var result journal.ImportResult
	runJSON(t, dir, &result, "trade", "import", csvPath)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "line 3:"), result.Errors[0])
}

func TestUserSelection(t *testing.T) {
	dir := newConfigDir(t)

	// nobody to act as yet
	_, err := run(t, dir, "trade", "list")
	assert.Error(t, err)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := run(t, dir, "user", "add", email, "--password", "s3cretpass")
		require.NoError(t, err)
	}

	_, err = run(t, dir, "trade", "list")
	assert.ErrorContains(t, err, "--user is required")

	var users []models.User
	runJSON(t, dir, &users, "user", "list")
	assert.Len(t, users, 2)

	var trades []models.Trade
	runJSON(t, dir, &trades, "trade", "list", "--user", "B@example.com")
	assert.Empty(t, trades)

	_, err = run(t, dir, "trade", "list", "--user", "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserAddRequiresPassword(t *testing.T) {
	dir := newConfigDir(t)
	t.Setenv("JOURNAL_PASSWORD", "")
	_, err := run(t, dir, "user", "add", "trader@example.com")
	assert.ErrorContains(t, err, "password is required")
}
