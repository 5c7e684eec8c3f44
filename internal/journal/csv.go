package journal

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"trade-journal/internal/billing"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// csvTrade is one row of the trade CSV format. Fields are strings so that a
// bad cell fails only its own row.
type csvTrade struct {
	Symbol       string `csv:"symbol"`
	Direction    string `csv:"direction"`
	LotSize      string `csv:"lot_size"`
	ContractSize string `csv:"contract_size"`
	EntryPrice   string `csv:"entry_price"`
	ExitPrice    string `csv:"exit_price"`
	StopLoss     string `csv:"stop_loss"`
	TakeProfit   string `csv:"take_profit"`
	Fees         string `csv:"fees"`
	EntryTime    string `csv:"entry_time"`
	ExitTime     string `csv:"exit_time"`
	Setup        string `csv:"setup"`
	Notes        string `csv:"notes"`
	Tags         string `csv:"tags"`
	PnL          string `csv:"pnl"`
}

// ImportResult reports the outcome of a CSV import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// ImportCSV records every valid row of r as a trade in the given account.
// Invalid rows are skipped and reported. Reaching the plan's trade limit
// stops the import.
func (s *Service) ImportCSV(ctx context.Context, userID, accountID string, r io.Reader) (*ImportResult, error) {
	if _, err := s.store.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}

	var rows []*csvTrade
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, apperrors.NewValidationError("file", "", fmt.Sprintf("unreadable CSV: %v", err))
	}

	result := &ImportResult{Errors: []string{}}
	for i, row := range rows {
		line := i + 2 // header is line 1
		in, err := row.input(accountID)
		if err == nil {
			_, err = s.CreateTrade(ctx, userID, in)
		}
		if err != nil {
			if apperrors.Is(err, apperrors.ErrPlanLimit) {
				s.audit.LogImport(ctx, userID, accountID, result.Imported, result.Skipped)
				return result, err
			}
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		result.Imported++
	}

	s.audit.LogImport(ctx, userID, accountID, result.Imported, result.Skipped)
	s.logger.Info().
		Str("user_id", userID).
		Str("account_id", accountID).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Msg("Trades imported")
	return result, nil
}

// ExportCSV writes the user's trades matching filter to w.
func (s *Service) ExportCSV(ctx context.Context, userID string, filter models.TradeFilter, w io.Writer) (int, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.billing.CheckFeature(user, billing.FeatureCSVExport); err != nil {
		return 0, err
	}
	trades, err := s.Trades(ctx, userID, filter)
	if err != nil {
		return 0, err
	}

	rows := make([]*csvTrade, len(trades))
	for i := range trades {
		rows[i] = toCSV(&trades[i])
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return 0, fmt.Errorf("writing CSV: %w", err)
	}
	return len(rows), nil
}

func (row *csvTrade) input(accountID string) (TradeInput, error) {
	in := TradeInput{
		AccountID: accountID,
		Symbol:    row.Symbol,
		Direction: models.Direction(strings.ToLower(strings.TrimSpace(row.Direction))),
		Setup:     row.Setup,
		Notes:     row.Notes,
	}
	var err error
	if in.LotSize, err = parseFloat("lot_size", row.LotSize); err != nil {
		return in, err
	}
	if in.EntryPrice, err = parseFloat("entry_price", row.EntryPrice); err != nil {
		return in, err
	}
	if row.ContractSize != "" {
		if in.ContractSize, err = parseFloat("contract_size", row.ContractSize); err != nil {
			return in, err
		}
	}
	if row.Fees != "" {
		if in.Fees, err = parseFloat("fees", row.Fees); err != nil {
			return in, err
		}
	}
	if in.ExitPrice, err = parseOptionalFloat("exit_price", row.ExitPrice); err != nil {
		return in, err
	}
	if in.StopLoss, err = parseOptionalFloat("stop_loss", row.StopLoss); err != nil {
		return in, err
	}
	if in.TakeProfit, err = parseOptionalFloat("take_profit", row.TakeProfit); err != nil {
		return in, err
	}
	if in.EntryTime, err = parseTime("entry_time", row.EntryTime); err != nil {
		return in, err
	}
	if row.ExitTime != "" {
		exit, err := parseTime("exit_time", row.ExitTime)
		if err != nil {
			return in, err
		}
		in.ExitTime = &exit
	}
	if row.Tags != "" {
		in.Tags = strings.Split(row.Tags, ";")
	}
	return in, nil
}

func toCSV(t *models.Trade) *csvTrade {
	row := &csvTrade{
		Symbol:       t.Symbol,
		Direction:    string(t.Direction),
		LotSize:      formatFloat(t.LotSize),
		ContractSize: formatFloat(t.ContractSize),
		EntryPrice:   formatFloat(t.EntryPrice),
		Fees:         formatFloat(t.Fees),
		EntryTime:    t.EntryTime.UTC().Format(time.RFC3339),
		Setup:        t.Setup,
		Notes:        t.Notes,
		Tags:         strings.Join(t.Tags, ";"),
		PnL:          formatFloat(t.PnL),
	}
	if t.ExitPrice != nil {
		row.ExitPrice = formatFloat(*t.ExitPrice)
	}
	if t.StopLoss != nil {
		row.StopLoss = formatFloat(*t.StopLoss)
	}
	if t.TakeProfit != nil {
		row.TakeProfit = formatFloat(*t.TakeProfit)
	}
	if t.ExitTime != nil {
		row.ExitTime = t.ExitTime.UTC().Format(time.RFC3339)
	}
	return row
}

func parseFloat(field, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, apperrors.NewValidationError(field, value, "not a number")
	}
	return f, nil
}

func parseOptionalFloat(field, value string) (*float64, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	f, err := parseFloat(field, value)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

var csvTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"}

func parseTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperrors.NewValidationError(field, value, "unrecognized time format")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
