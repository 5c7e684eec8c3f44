package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trade-journal/internal/api"
	"trade-journal/internal/auth"
	"trade-journal/internal/billing"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the journal HTTP API and the subscription expiry sweep.

The server runs until interrupted and then shuts down gracefully.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				cfg.Server.Port = port
			}
			if err := cfg.RequireSecret(); err != nil {
				return err
			}
			if err := app.open(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scheduler := billing.NewScheduler(ctx, app.Logger)
			if _, err := scheduler.AddSweep(cfg.Billing.SweepSchedule, app.Journal.Billing()); err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()

			// catch up on anything that expired while the server was down
			if n, err := app.Journal.Billing().SweepExpired(ctx); err != nil {
				app.Logger.Warn().Err(err).Msg("Initial subscription sweep failed")
			} else if n > 0 {
				app.Logger.Info().Int("expired", n).Msg("Expired subscriptions downgraded")
			}

			server := api.NewServer(api.Config{
				Addr:            cfg.Addr(),
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				CORSOrigins:     cfg.Server.CORSOrigins,
				RateLimit:       cfg.Server.RateLimit,
				RateBurst:       cfg.Server.RateBurst,
			}, app.Journal, auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), app.Audit, app.Logger)

			NewOutput(cmd).Info("Listening on %s", cfg.Addr())
			return server.Run(ctx)
		},
	}

	cmd.Flags().Int("port", 0, "override the configured port")
	return cmd
}
