package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/auth"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/models"
)

// ============================================================================
// Accounts
// ============================================================================

func (s *Server) handleListAccounts(c *gin.Context) {
	accounts, err := s.journal.Accounts(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (s *Server) handleCreateAccount(c *gin.Context) {
	var req journal.AccountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	account, err := s.journal.CreateAccount(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (s *Server) handleDeleteAccount(c *gin.Context) {
	if err := s.journal.DeleteAccount(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// Trades
// ============================================================================

func (s *Server) handleListTrades(c *gin.Context) {
	filter, err := tradeFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	trades, err := s.journal.Trades(c.Request.Context(), auth.UserID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades, "count": len(trades)})
}

func (s *Server) handleCreateTrade(c *gin.Context) {
	var req journal.TradeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	trade, err := s.journal.CreateTrade(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trade)
}

func (s *Server) handleGetTrade(c *gin.Context) {
	trade, err := s.journal.Trade(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleUpdateTrade(c *gin.Context) {
	var req journal.TradeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	trade, err := s.journal.UpdateTrade(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleCloseTrade(c *gin.Context) {
	var req journal.CloseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	trade, err := s.journal.CloseTrade(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleDeleteTrade(c *gin.Context) {
	if err := s.journal.DeleteTrade(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// Emotions
// ============================================================================

func (s *Server) handleListEmotions(c *gin.Context) {
	emotions, err := s.journal.Emotions(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"emotions": emotions})
}

func (s *Server) handleCreateEmotion(c *gin.Context) {
	var req journal.EmotionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	emotion, err := s.journal.CreateEmotion(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, emotion)
}

func (s *Server) handleDeleteEmotion(c *gin.Context) {
	if err := s.journal.DeleteEmotion(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListEmotionLogs(c *gin.Context) {
	from, to, limit, err := rangeQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	logs, err := s.journal.EmotionLogs(c.Request.Context(), auth.UserID(c), models.EmotionLogFilter{
		TradeID:   c.Query("trade_id"),
		StartDate: from,
		EndDate:   to,
		Limit:     limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (s *Server) handleCreateEmotionLog(c *gin.Context) {
	var req journal.EmotionLogInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	log, err := s.journal.LogEmotion(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, log)
}

func (s *Server) handleDeleteEmotionLog(c *gin.Context) {
	if err := s.journal.DeleteEmotionLog(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// Analytics
// ============================================================================

func (s *Server) handleStats(c *gin.Context) {
	filter, err := analyticsFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := s.journal.Stats(c.Request.Context(), auth.UserID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleEmotionStats(c *gin.Context) {
	filter, err := analyticsFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	stats, err := s.journal.EmotionStats(c.Request.Context(), auth.UserID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleReport(c *gin.Context) {
	filter, err := analyticsFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := s.journal.Report(c.Request.Context(), auth.UserID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ============================================================================
// Query parsing
// ============================================================================

// tradeFilter reads account_id, status, symbol, from, to and limit.
func tradeFilter(c *gin.Context) (models.TradeFilter, error) {
	from, to, limit, err := rangeQuery(c)
	if err != nil {
		return models.TradeFilter{}, err
	}
	status := models.TradeStatus(c.Query("status"))
	if status != "" && status != models.TradeOpen && status != models.TradeClosed {
		return models.TradeFilter{}, apperrors.NewValidationError("status", status, "must be open or closed")
	}
	return models.TradeFilter{
		AccountID: c.Query("account_id"),
		Symbol:    c.Query("symbol"),
		Status:    status,
		StartDate: from,
		EndDate:   to,
		Limit:     limit,
	}, nil
}

// analyticsFilter is tradeFilter without limit. Trades are listed oldest
// first, so a limit would analyze only the earliest trades.
func analyticsFilter(c *gin.Context) (models.TradeFilter, error) {
	filter, err := tradeFilter(c)
	filter.Limit = 0
	return filter, err
}

func rangeQuery(c *gin.Context) (from, to time.Time, limit int, err error) {
	if from, err = queryTime(c, "from"); err != nil {
		return
	}
	if to, err = queryTime(c, "to"); err != nil {
		return
	}
	if v := c.Query("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			err = apperrors.NewValidationError("limit", v, "must be a non-negative integer")
			return
		}
	}
	return
}

// queryTime accepts RFC 3339 or a plain date.
func queryTime(c *gin.Context, key string) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.NewValidationError(key, v, "expected RFC 3339 time or YYYY-MM-DD")
}
