package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

const tradeColumns = `id, user_id, account_id, symbol, direction, lot_size, contract_size,
	entry_price, exit_price, stop_loss, take_profit, fees, pnl, pnl_percent, status,
	entry_time, exit_time, setup, notes, tags, created_at, updated_at`

// CreateTrade inserts a trade. The account must exist and belong to the user.
func (s *SQLiteStore) CreateTrade(ctx context.Context, t *models.Trade) error {
	if _, err := s.GetAccount(ctx, t.UserID, t.AccountID); err != nil {
		return err
	}

	tags, _ := json.Marshal(t.Tags)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.UserID, t.AccountID, t.Symbol, t.Direction, t.LotSize, t.ContractSize,
		t.EntryPrice, nullFloat(t.ExitPrice), nullFloat(t.StopLoss), nullFloat(t.TakeProfit),
		t.Fees, t.PnL, t.PnLPercent, t.Status, t.EntryTime.UTC(), nullTime(t.ExitTime),
		nullString(t.Setup), nullString(t.Notes), string(tags), t.CreatedAt.UTC(), t.UpdatedAt.UTC())
	return translate(err, "trade", t.ID)
}

// UpdateTrade overwrites every mutable field of an existing trade.
func (s *SQLiteStore) UpdateTrade(ctx context.Context, t *models.Trade) error {
	tags, _ := json.Marshal(t.Tags)
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades SET account_id = ?, symbol = ?, direction = ?, lot_size = ?, contract_size = ?,
			entry_price = ?, exit_price = ?, stop_loss = ?, take_profit = ?, fees = ?, pnl = ?,
			pnl_percent = ?, status = ?, entry_time = ?, exit_time = ?, setup = ?, notes = ?,
			tags = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, t.AccountID, t.Symbol, t.Direction, t.LotSize, t.ContractSize,
		t.EntryPrice, nullFloat(t.ExitPrice), nullFloat(t.StopLoss), nullFloat(t.TakeProfit), t.Fees, t.PnL,
		t.PnLPercent, t.Status, t.EntryTime.UTC(), nullTime(t.ExitTime), nullString(t.Setup), nullString(t.Notes),
		string(tags), t.UpdatedAt.UTC(), t.ID, t.UserID)
	if err != nil {
		return translate(err, "trade", t.ID)
	}
	return expectOne(res, "trade", t.ID)
}

func scanTrade(row interface{ Scan(...interface{}) error }) (*models.Trade, error) {
	var (
		t                           models.Trade
		exitPrice, stop, takeProfit sql.NullFloat64
		exitTime                    sql.NullTime
		setup, notes, tags          sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Symbol, &t.Direction, &t.LotSize, &t.ContractSize,
		&t.EntryPrice, &exitPrice, &stop, &takeProfit, &t.Fees, &t.PnL, &t.PnLPercent, &t.Status,
		&t.EntryTime, &exitTime, &setup, &notes, &tags, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.ExitPrice = floatPtr(exitPrice)
	t.StopLoss = floatPtr(stop)
	t.TakeProfit = floatPtr(takeProfit)
	t.ExitTime = timePtr(exitTime)
	t.Setup = setup.String
	t.Notes = notes.String
	if tags.Valid && tags.String != "" {
		json.Unmarshal([]byte(tags.String), &t.Tags)
	}
	return &t, nil
}

// GetTrade retrieves a trade owned by userID.
func (s *SQLiteStore) GetTrade(ctx context.Context, userID, id string) (*models.Trade, error) {
	t, err := scanTrade(s.db.QueryRowContext(ctx,
		"SELECT "+tradeColumns+" FROM trades WHERE id = ? AND user_id = ?", id, userID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("trade", id)
	}
	if err != nil {
		return nil, translate(err, "trade", id)
	}
	return t, nil
}

// ListTrades retrieves trades matching filter, oldest entry first.
func (s *SQLiteStore) ListTrades(ctx context.Context, filter models.TradeFilter) ([]models.Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}
	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if !filter.StartDate.IsZero() {
		query += " AND entry_time >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND entry_time <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY entry_time ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *t)
	}

	return trades, rows.Err()
}

// CountTradesSince counts the trades a user created at or after since.
func (s *SQLiteStore) CountTradesSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trades WHERE user_id = ? AND created_at >= ?
	`, userID, since.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return n, nil
}

// DeleteTrade removes a trade. Emotion logs tied to it are kept and detached.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM trades WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return translate(err, "trade", id)
	}
	return expectOne(res, "trade", id)
}
