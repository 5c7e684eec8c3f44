package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-journal/internal/auth"
	"trade-journal/internal/config"
	"trade-journal/internal/journal"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/security"
	"trade-journal/internal/store"
)

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// App holds the application dependencies. The store and services are opened
// on first use so that config commands work without a database.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Store   store.DataStore
	Journal *journal.Service
	Audit   *security.AuditLogger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade Journal - record trades, track emotions, review performance",
		Long: `Trade Journal records your trades and emotions and turns them into
statistics and a ranked list of insights about your trading.

Run 'journal serve' to start the HTTP API, or use the commands below to work
on the local database directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			app.Config = cfg
			app.Logger = logging.NewLoggerWithConfig(cfg.LogConfig())

			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			switch {
			case debug:
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			case cmd.Name() != "serve":
				// keep command output readable
				app.Logger = app.Logger.Level(zerolog.WarnLevel)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	addUserCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addEmotionCommands(rootCmd, app)
	rootCmd.AddCommand(newAnalyzeCmd(app))

	return rootCmd
}

// open connects the store and builds the journal service.
func (a *App) open() error {
	if a.Journal != nil {
		return nil
	}

	ds, err := store.NewSQLiteStore(a.Config.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.Store = ds
	a.Logger.Debug().Str("path", a.Config.Database.Path).Msg("SQLite store initialized")

	if a.Config.Audit.Enabled {
		audit, err := security.NewAuditLogger(a.Config.AuditLogConfig())
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Audit log unavailable")
		} else {
			a.Audit = audit
		}
	}

	a.Journal = journal.NewService(journal.Config{
		Store:            ds,
		Passwords:        auth.NewPasswordManager(a.Config.Auth.BcryptCost),
		Audit:            a.Audit,
		Logger:           a.Logger,
		StrictValidation: a.Config.Security.StrictValidation,
	})
	return nil
}

// Close releases the store and audit log.
func (a *App) Close() error {
	var err error
	if a.Store != nil {
		err = a.Store.Close()
		a.Store = nil
	}
	if a.Audit != nil {
		a.Audit.Close()
		a.Audit = nil
	}
	a.Journal = nil
	return err
}

// user opens the journal and resolves the --user flag to a user.
func (a *App) user(ctx context.Context, cmd *cobra.Command) (*models.User, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	email, _ := cmd.Flags().GetString("user")
	if email == "" {
		users, err := a.Journal.Users(ctx)
		if err != nil {
			return nil, err
		}
		// a single-user journal needs no flag
		if len(users) == 1 {
			return &users[0], nil
		}
		return nil, fmt.Errorf("--user is required (%d users in journal)", len(users))
	}
	return a.Journal.UserByEmail(ctx, email)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Trade Journal v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			shown := app.Config.Redacted()
			if output.IsJSON() {
				return output.JSON(shown)
			}
			showConfig(output, &shown)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := config.Path(app.Config.Dir)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			secretErr := app.Config.RequireSecret()
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true, "serve_ready": secretErr == nil})
			}
			output.Success("✓ Configuration is valid")
			if secretErr != nil {
				output.Warning("! %v", secretErr)
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Addr())
	output.Printf("  CORS Origins:    %v\n", cfg.Server.CORSOrigins)
	output.Printf("  Auth Rate Limit: %.1f/s (burst %d)\n", cfg.Server.RateLimit, cfg.Server.RateBurst)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database:        %s\n", cfg.Database.Path)
	output.Printf("  Audit Log:       %v (%s)\n", cfg.Audit.Enabled, cfg.Audit.Dir)
	output.Println()

	output.Bold("Auth")
	output.Printf("  JWT Secret:      %s\n", cfg.Auth.JWTSecret)
	output.Printf("  Token TTL:       %s\n", cfg.Auth.TokenTTL)
	output.Println()

	output.Bold("Billing")
	output.Printf("  Expiry Sweep:    %s\n", cfg.Billing.SweepSchedule)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %s\n", cfg.Logging.FilePath)
}
