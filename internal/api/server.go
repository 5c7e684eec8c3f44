// Package api exposes the journal over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trade-journal/internal/auth"
	"trade-journal/internal/journal"
	"trade-journal/internal/logging"
	"trade-journal/internal/security"
)

// Config holds HTTP server settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       float64 // auth requests per second per client
	RateBurst       int
}

// Server is the journal HTTP API.
type Server struct {
	cfg        Config
	journal    *journal.Service
	jwt        *auth.JWTManager
	audit      *security.AuditLogger
	limiter    *RateLimiter
	logger     zerolog.Logger
	router     *gin.Engine
	httpServer *http.Server
	started    time.Time
}

// NewServer creates the API server and registers its routes.
func NewServer(cfg Config, svc *journal.Service, jwt *auth.JWTManager, audit *security.AuditLogger, logger zerolog.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst < 1 {
		cfg.RateBurst = 10
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		cfg:     cfg,
		journal: svc,
		jwt:     jwt,
		audit:   audit,
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:  logging.WithComponent(logger, "api"),
		started: time.Now(),
	}

	router := gin.New()
	router.Use(requestLogger(s.logger))
	router.Use(recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", requestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", requestIDHeader}
	router.Use(cors.New(corsConfig))

	s.router = router
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	authGroup := s.router.Group("/api/auth")
	authGroup.Use(s.limiter.Middleware(s.audit))
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
	}

	s.router.GET("/api/plans", s.handlePlans)

	api := s.router.Group("/api")
	api.Use(auth.Middleware(s.jwt))
	{
		api.GET("/me", s.handleMe)

		api.GET("/accounts", s.handleListAccounts)
		api.POST("/accounts", s.handleCreateAccount)
		api.DELETE("/accounts/:id", s.handleDeleteAccount)

		api.GET("/trades", s.handleListTrades)
		api.POST("/trades", s.handleCreateTrade)
		api.GET("/trades/:id", s.handleGetTrade)
		api.PUT("/trades/:id", s.handleUpdateTrade)
		api.DELETE("/trades/:id", s.handleDeleteTrade)
		api.POST("/trades/:id/close", s.handleCloseTrade)

		api.GET("/emotions", s.handleListEmotions)
		api.POST("/emotions", s.handleCreateEmotion)
		api.DELETE("/emotions/:id", s.handleDeleteEmotion)

		api.GET("/emotion-logs", s.handleListEmotionLogs)
		api.POST("/emotion-logs", s.handleCreateEmotionLog)
		api.DELETE("/emotion-logs/:id", s.handleDeleteEmotionLog)

		api.GET("/analytics/stats", s.handleStats)
		api.GET("/analytics/emotions", s.handleEmotionStats)
		api.GET("/analytics/report", s.handleReport)

		api.GET("/subscription", s.handleGetSubscription)
		api.POST("/subscription", s.handleSubscribe)
		api.DELETE("/subscription", s.handleCancelSubscription)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("Starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errCh)
	}()

	prune := time.NewTicker(time.Minute)
	defer prune.Stop()

	for {
		select {
		case err, ok := <-errCh:
			if ok {
				return err
			}
			return nil
		case <-prune.C:
			s.limiter.Prune()
		case <-ctx.Done():
			return s.Shutdown()
		}
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info().Msg("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}
