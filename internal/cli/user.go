package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/journal"
	"trade-journal/internal/models"
)

// addUserCommands adds user management commands.
func addUserCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management",
		Long:  "Create and list journal users on the local database.",
	}

	cmd.AddCommand(newUserAddCmd(app))
	cmd.AddCommand(newUserListCmd(app))

	rootCmd.AddCommand(cmd)
}

func newUserAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create a user",
		Long: `Create a user on the free plan together with a default trading account.

The password is read from --password or the JOURNAL_PASSWORD environment variable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")
			accountName, _ := cmd.Flags().GetString("account")
			currency, _ := cmd.Flags().GetString("currency")
			balance, _ := cmd.Flags().GetFloat64("balance")
			if password == "" {
				password = os.Getenv("JOURNAL_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("a password is required (--password or JOURNAL_PASSWORD)")
			}

			if err := app.open(); err != nil {
				return err
			}
			user, err := app.Journal.Register(ctx, journal.RegisterInput{
				Email:    args[0],
				Name:     name,
				Password: password,
			})
			if err != nil {
				return err
			}
			account, err := app.Journal.CreateAccount(ctx, user.ID, journal.AccountInput{
				Name:           accountName,
				Currency:       currency,
				InitialBalance: balance,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"user":    user,
					"account": account,
				})
			}
			output.Success("✓ Created user %s (%s)", user.Email, user.ID)
			output.Printf("  Plan:    %s\n", user.Plan)
			output.Printf("  Account: %s (%s)\n", account.Name, account.ID)
			return nil
		},
	}

	cmd.Flags().String("name", "", "display name (default: part of the email before @)")
	cmd.Flags().String("password", "", "account password")
	cmd.Flags().String("account", "Main", "name of the default trading account")
	cmd.Flags().String("currency", "USD", "account currency")
	cmd.Flags().Float64("balance", 0, "account starting balance")
	return cmd
}

func newUserListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := app.open(); err != nil {
				return err
			}
			users, err := app.Journal.Users(ctx)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if users == nil {
					users = []models.User{}
				}
				return output.JSON(users)
			}
			if len(users) == 0 {
				output.Info("No users yet. Create one with 'journal user add <email>'.")
				return nil
			}

			table := NewTable(output, "Email", "Name", "Plan", "Created")
			for _, u := range users {
				table.AddRow(u.Email, TruncateString(u.Name, 24), string(u.Plan), FormatDate(u.CreatedAt))
			}
			table.Render()
			return nil
		},
	}
}
