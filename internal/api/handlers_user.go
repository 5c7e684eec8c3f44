package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trade-journal/internal/auth"
	"trade-journal/internal/billing"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/models"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token *auth.Token  `json:"token"`
}

type subscribeRequest struct {
	Plan       models.PlanTier      `json:"plan" binding:"required"`
	Period     models.BillingPeriod `json:"period" binding:"required"`
	PaymentRef string               `json:"payment_ref"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req journal.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	user, err := s.journal.Register(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	s.audit.LogRegister(ctx, user.ID, user.Email, c.ClientIP())

	token, err := s.jwt.Issue(user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse{User: user, Token: token})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	user, err := s.journal.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		s.audit.LogLogin(ctx, "", req.Email, c.ClientIP(), false, err.Error())
		respondError(c, err)
		return
	}
	s.audit.LogLogin(ctx, user.ID, user.Email, c.ClientIP(), true, "")

	token, err := s.jwt.Issue(user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse{User: user, Token: token})
}

func (s *Server) handleMe(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := s.journal.User(ctx, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	sub, err := s.journal.Billing().Current(ctx, user.ID)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"plan":         billing.GetPlan(user.Plan),
		"subscription": sub,
	})
}

func (s *Server) handlePlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plans": billing.Plans()})
}

func (s *Server) handleGetSubscription(c *gin.Context) {
	sub, err := s.journal.Billing().Current(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (s *Server) handleSubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	userID := auth.UserID(c)

	sub, err := s.journal.Billing().Subscribe(ctx, userID, req.Plan, req.Period, req.PaymentRef)
	if err != nil {
		respondError(c, err)
		return
	}
	s.audit.LogSubscription(ctx, userID, "subscribe", string(sub.Plan), req.PaymentRef)
	c.JSON(http.StatusCreated, sub)
}

func (s *Server) handleCancelSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)

	sub, err := s.journal.Billing().Cancel(ctx, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	s.audit.LogSubscription(ctx, userID, "cancel", string(sub.Plan), "")
	c.JSON(http.StatusOK, sub)
}
