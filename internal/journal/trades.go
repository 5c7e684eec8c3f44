package journal

import (
	"context"
	"time"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/pnl"
	"trade-journal/internal/security"
)

// TradeInput is the user-supplied part of a trade. P&L is always computed.
type TradeInput struct {
	AccountID    string           `json:"account_id" binding:"required"`
	Symbol       string           `json:"symbol" binding:"required"`
	Direction    models.Direction `json:"direction" binding:"required"`
	LotSize      float64          `json:"lot_size" binding:"required"`
	ContractSize float64          `json:"contract_size"`
	EntryPrice   float64          `json:"entry_price" binding:"required"`
	ExitPrice    *float64         `json:"exit_price"`
	StopLoss     *float64         `json:"stop_loss"`
	TakeProfit   *float64         `json:"take_profit"`
	Fees         float64          `json:"fees"`
	EntryTime    time.Time        `json:"entry_time"`
	ExitTime     *time.Time       `json:"exit_time"`
	Setup        string           `json:"setup"`
	Notes        string           `json:"notes"`
	Tags         []string         `json:"tags"`
}

// CloseInput closes an open trade.
type CloseInput struct {
	ExitPrice float64    `json:"exit_price" binding:"required"`
	ExitTime  *time.Time `json:"exit_time"`
	Fees      *float64   `json:"fees"`
}

// apply copies input onto a trade, normalizes it and recomputes P&L.
func (s *Service) apply(t *models.Trade, in TradeInput) error {
	t.AccountID = in.AccountID
	t.Symbol = security.SanitizeSymbol(in.Symbol)
	t.Direction = in.Direction
	t.LotSize = in.LotSize
	t.ContractSize = in.ContractSize
	if t.ContractSize == 0 {
		t.ContractSize = 1
	}
	t.EntryPrice = in.EntryPrice
	t.ExitPrice = in.ExitPrice
	t.StopLoss = in.StopLoss
	t.TakeProfit = in.TakeProfit
	t.Fees = in.Fees
	t.EntryTime = in.EntryTime.UTC()
	if in.EntryTime.IsZero() {
		t.EntryTime = s.now()
	}
	t.ExitTime = in.ExitTime
	t.Setup = security.SanitizeText(in.Setup)
	t.Notes = security.SanitizeText(in.Notes)
	t.Tags = security.SanitizeTags(in.Tags)

	t.Status = models.TradeOpen
	if t.ExitPrice != nil {
		t.Status = models.TradeClosed
		if t.ExitTime == nil {
			exit := s.now()
			t.ExitTime = &exit
		}
	} else {
		t.ExitTime = nil
	}
	if t.ExitTime != nil {
		exit := t.ExitTime.UTC()
		t.ExitTime = &exit
	}

	if err := s.validator.ValidateTrade(t); err != nil {
		return err
	}
	pnl.Apply(t)
	return nil
}

// CreateTrade records a trade. A trade with an exit price is recorded closed.
func (s *Service) CreateTrade(ctx context.Context, userID string, in TradeInput) (*models.Trade, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &models.Trade{
		ID:        newID(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(t, in); err != nil {
		s.audit.LogInputValidation(ctx, userID, fieldOf(err), err.Error())
		return nil, err
	}
	if err := s.billing.CheckTradeLimit(ctx, user); err != nil {
		return nil, err
	}
	if err := s.store.CreateTrade(ctx, t); err != nil {
		return nil, err
	}

	logging.LogTrade(s.logger, "created", t.ID, t.Symbol, t.PnL)
	return t, nil
}

func fieldOf(err error) string {
	var ve *apperrors.ValidationError
	if apperrors.As(err, &ve) {
		return ve.Field
	}
	return ""
}

// UpdateTrade replaces the user-supplied fields of a trade and recomputes P&L.
func (s *Service) UpdateTrade(ctx context.Context, userID, id string, in TradeInput) (*models.Trade, error) {
	t, err := s.store.GetTrade(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.AccountID != t.AccountID {
		if _, err := s.store.GetAccount(ctx, userID, in.AccountID); err != nil {
			return nil, err
		}
	}
	if err := s.apply(t, in); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.now()
	if err := s.store.UpdateTrade(ctx, t); err != nil {
		return nil, err
	}

	logging.LogTrade(s.logger, "updated", t.ID, t.Symbol, t.PnL)
	return t, nil
}

// CloseTrade closes an open trade at an exit price.
func (s *Service) CloseTrade(ctx context.Context, userID, id string, in CloseInput) (*models.Trade, error) {
	t, err := s.store.GetTrade(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.Status == models.TradeClosed {
		return nil, apperrors.NewDataError("trade", id, "already closed", apperrors.ErrInvalidState)
	}

	exit := in.ExitPrice
	t.ExitPrice = &exit
	t.ExitTime = in.ExitTime
	if in.Fees != nil {
		t.Fees = *in.Fees
	}

	update := TradeInput{
		AccountID: t.AccountID, Symbol: t.Symbol, Direction: t.Direction,
		LotSize: t.LotSize, ContractSize: t.ContractSize, EntryPrice: t.EntryPrice,
		ExitPrice: t.ExitPrice, StopLoss: t.StopLoss, TakeProfit: t.TakeProfit,
		Fees: t.Fees, EntryTime: t.EntryTime, ExitTime: t.ExitTime,
		Setup: t.Setup, Notes: t.Notes, Tags: t.Tags,
	}
	if err := s.apply(t, update); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.now()
	if err := s.store.UpdateTrade(ctx, t); err != nil {
		return nil, err
	}

	logging.LogTrade(s.logger, "closed", t.ID, t.Symbol, t.PnL)
	return t, nil
}

// Trade returns one of the user's trades.
func (s *Service) Trade(ctx context.Context, userID, id string) (*models.Trade, error) {
	return s.store.GetTrade(ctx, userID, id)
}

// Trades lists the user's trades matching filter, oldest first.
func (s *Service) Trades(ctx context.Context, userID string, filter models.TradeFilter) ([]models.Trade, error) {
	filter.UserID = userID
	if filter.Symbol != "" {
		filter.Symbol = security.SanitizeSymbol(filter.Symbol)
	}
	return s.store.ListTrades(ctx, filter)
}

// DeleteTrade removes a trade.
func (s *Service) DeleteTrade(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTrade(ctx, userID, id); err != nil {
		return err
	}
	s.audit.LogDeletion(ctx, security.AuditTradeDeleted, userID, id)
	logging.LogTrade(s.logger, "deleted", id, "", 0)
	return nil
}
