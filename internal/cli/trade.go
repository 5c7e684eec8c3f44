package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/models"
)

// addTradeCommands adds trade journaling commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Record and review trades",
		Long:  "Record, close, list, import and export journaled trades.",
	}
	cmd.PersistentFlags().String("user", "", "email of the journal user (optional with a single user)")

	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeCloseCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))
	cmd.AddCommand(newTradeImportCmd(app))
	cmd.AddCommand(newTradeExportCmd(app))

	rootCmd.AddCommand(cmd)
}

func newTradeAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <symbol> <long|short> <lot-size> <entry-price>",
		Short: "Record a trade",
		Long: `Record a trade. Pass --exit to record it closed; otherwise it stays open
until 'journal trade close'. P&L is computed from the prices.`,
		Example: `  journal trade add EURUSD long 1 1.0850 --exit 1.0900 --contract 100000
  journal trade add ES short 2 5200 --sl 5210 --tp 5180 --setup breakout`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			user, err := app.user(ctx, cmd)
			if err != nil {
				return err
			}
			accountRef, _ := cmd.Flags().GetString("account")
			account, err := app.account(ctx, user.ID, accountRef)
			if err != nil {
				return err
			}

			in := journal.TradeInput{
				AccountID: account.ID,
				Symbol:    args[0],
				Direction: models.Direction(strings.ToLower(args[1])),
			}
			if in.LotSize, err = parseFloatArg("lot-size", args[2]); err != nil {
				return err
			}
			if in.EntryPrice, err = parseFloatArg("entry-price", args[3]); err != nil {
				return err
			}
			in.ContractSize, _ = cmd.Flags().GetFloat64("contract")
			in.Fees, _ = cmd.Flags().GetFloat64("fees")
			in.Setup, _ = cmd.Flags().GetString("setup")
			in.Notes, _ = cmd.Flags().GetString("notes")
			in.Tags, _ = cmd.Flags().GetStringSlice("tags")
			in.ExitPrice = optionalFloat(cmd, "exit")
			in.StopLoss = optionalFloat(cmd, "sl")
			in.TakeProfit = optionalFloat(cmd, "tp")
			if in.EntryTime, err = timeFlag(cmd, "entry-time"); err != nil {
				return err
			}
			exitTime, err := timeFlag(cmd, "exit-time")
			if err != nil {
				return err
			}
			if !exitTime.IsZero() {
				in.ExitTime = &exitTime
			}

			trade, err := app.Journal.CreateTrade(ctx, user.ID, in)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("✓ Recorded %s %s %s (%s)", strings.ToUpper(string(trade.Direction)), trade.Symbol, trade.Status, trade.ID)
			if trade.IsClosed() {
				output.Printf("  P&L: %s (%s)\n", output.FormatPnL(trade.PnL), FormatPercent(trade.PnLPercent))
			}
			return nil
		},
	}

	cmd.Flags().String("account", "", "account name or ID (default: the only account)")
	cmd.Flags().Float64("contract", 1, "contract size per lot")
	cmd.Flags().Float64("exit", 0, "exit price; records the trade closed")
	cmd.Flags().Float64("sl", 0, "stop loss")
	cmd.Flags().Float64("tp", 0, "take profit")
	cmd.Flags().Float64("fees", 0, "total fees")
	cmd.Flags().String("entry-time", "", "entry time (RFC3339 or YYYY-MM-DD HH:MM, default: now)")
	cmd.Flags().String("exit-time", "", "exit time (default: now when --exit is set)")
	cmd.Flags().String("setup", "", "setup or strategy name")
	cmd.Flags().String("notes", "", "free-form notes")
	cmd.Flags().StringSlice("tags", nil, "comma-separated tags")
	return cmd
}

func newTradeCloseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <trade-id> <exit-price>",
		Short: "Close an open trade",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			user, err := app.user(ctx, cmd)
			if err != nil {
				return err
			}
			in := journal.CloseInput{Fees: optionalFloat(cmd, "fees")}
			if in.ExitPrice, err = parseFloatArg("exit-price", args[1]); err != nil {
				return err
			}
			exitTime, err := timeFlag(cmd, "exit-time")
			if err != nil {
				return err
			}
			if !exitTime.IsZero() {
				in.ExitTime = &exitTime
			}

			trade, err := app.Journal.CloseTrade(ctx, user.ID, args[0], in)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("✓ Closed %s %s", trade.Symbol, trade.ID)
			output.Printf("  P&L: %s (%s)\n", output.FormatPnL(trade.PnL), FormatPercent(trade.PnLPercent))
			output.Printf("  Held: %s\n", FormatDuration(trade.HoldDuration()))
			return nil
		},
	}

	cmd.Flags().Float64("fees", 0, "total fees (replaces the recorded fees)")
	cmd.Flags().String("exit-time", "", "exit time (default: now)")
	return cmd
}

func newTradeListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			user, err := app.user(ctx, cmd)
			if err != nil {
				return err
			}
			filter, err := app.tradeFilter(ctx, cmd, user.ID)
			if err != nil {
				return err
			}
			trades, err := app.Journal.Trades(ctx, user.ID, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if trades == nil {
					trades = []models.Trade{}
				}
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No trades found.")
				return nil
			}

			var total float64
			table := NewTable(output, "ID", "Entry", "Symbol", "Side", "Lots", "Entry Px", "Exit Px", "P&L", "Setup")
			for _, t := range trades {
				pnlCell := output.DimText("open")
				if t.IsClosed() {
					pnlCell = output.FormatPnL(t.PnL)
					total += t.PnL
				}
				table.AddRow(
					t.ID,
					FormatDateTime(t.EntryTime),
					t.Symbol,
					string(t.Direction),
					fmt.Sprintf("%g", t.LotSize),
					FormatPrice(t.EntryPrice),
					FormatOptionalPrice(t.ExitPrice),
					pnlCell,
					TruncateString(t.Setup, 15),
				)
			}
			table.Render()
			output.Println()
			output.Printf("  %d trades, realized P&L %s\n", len(trades), output.FormatPnL(total))
			return nil
		},
	}

	addTradeFilterFlags(cmd)
	cmd.Flags().String("status", "", "open or closed")
	cmd.Flags().Int("limit", 50, "maximum trades to show (0 for all)")
	return cmd
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trade-id>",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			user, err := app.user(ctx, cmd)
			if err != nil {
				return err
			}
			if err := app.Journal.DeleteTrade(ctx, user.ID, args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Deleted trade %s", args[0])
			return nil
		},
	}
}

func newTradeImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import trades from CSV",
		Long: `Import trades from a CSV file with a header row. Recognized columns:
symbol, direction, lot_size, contract_size, entry_price, exit_price, stop_loss,
take_profit, fees, entry_time, exit_time, setup, notes, tags (separated by ';').

Invalid rows are skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			user, err := app.user(ctx, cmd)
			if err != nil {
				return err
			}
			accountRef, _ := cmd.Flags().GetString("account")
			account, err := app.account(ctx, user.ID, accountRef)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, importErr := app.Journal.ImportCSV(ctx, user.ID, account.ID, f)
			if result == nil {
				return importErr
			}
			if output.IsJSON() {
				if err := output.JSON(result); err != nil {
					return err
				}
				return importErr
			}

			output.Success("✓ Imported %d trades into %s", result.Imported, account.Name)
			if result.Skipped > 0 {
				output.Warning("Skipped %d rows:", result.Skipped)
				for _, e := range result.Errors {
					output.Printf("  %s\n", e)
				}
			}
			if importErr != nil {
				output.Error("Import stopped: %v", importErr)
			}
			return importErr
		},
	}

	cmd.Flags().String("account", "", "account name or ID (default: the only account)")
	return cmd
}

func newTradeExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file.csv]",
		Short: "Export trades to CSV",
		Long:  "Export trades to a CSV file, or to standard output when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			user, err := app.user(ctx, cmd)
			if err != nil {
				return err
			}
			filter, err := app.tradeFilter(ctx, cmd, user.ID)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				_, err := app.Journal.ExportCSV(ctx, user.ID, filter, cmd.OutOrStdout())
				return err
			}

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			n, err := app.Journal.ExportCSV(ctx, user.ID, filter, f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}
			NewOutput(cmd).Success("✓ Exported %d trades to %s", n, args[0])
			return nil
		},
	}

	addTradeFilterFlags(cmd)
	return cmd
}

func addTradeFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("account", "", "account name or ID")
	cmd.Flags().String("symbol", "", "symbol")
	cmd.Flags().String("from", "", "earliest entry date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "latest entry date (YYYY-MM-DD)")
}

// tradeFilter builds a trade filter from the filter flags present on cmd.
func (a *App) tradeFilter(ctx context.Context, cmd *cobra.Command, userID string) (models.TradeFilter, error) {
	var filter models.TradeFilter
	var err error

	if ref, _ := cmd.Flags().GetString("account"); ref != "" {
		account, err := a.account(ctx, userID, ref)
		if err != nil {
			return filter, err
		}
		filter.AccountID = account.ID
	}
	filter.Symbol, _ = cmd.Flags().GetString("symbol")
	if status, _ := cmd.Flags().GetString("status"); status != "" {
		filter.Status = models.TradeStatus(strings.ToLower(status))
		if filter.Status != models.TradeOpen && filter.Status != models.TradeClosed {
			return filter, apperrors.NewValidationError("status", status, "must be open or closed")
		}
	}
	if cmd.Flags().Lookup("limit") != nil {
		filter.Limit, _ = cmd.Flags().GetInt("limit")
	}
	if filter.StartDate, err = timeFlag(cmd, "from"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = timeFlag(cmd, "to"); err != nil {
		return filter, err
	}
	// a bare date includes the whole day
	if to, _ := cmd.Flags().GetString("to"); len(to) == len("2006-01-02") {
		filter.EndDate = filter.EndDate.Add(24*time.Hour - time.Nanosecond)
	}
	return filter, nil
}

// account resolves an account by ID or case-insensitive name. An empty ref
// selects the user's only account.
func (a *App) account(ctx context.Context, userID, ref string) (*models.Account, error) {
	accounts, err := a.Journal.Accounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ref == "" {
		if len(accounts) == 1 {
			return &accounts[0], nil
		}
		return nil, fmt.Errorf("--account is required (%d accounts)", len(accounts))
	}
	for i := range accounts {
		if accounts[i].ID == ref || strings.EqualFold(accounts[i].Name, ref) {
			return &accounts[i], nil
		}
	}
	return nil, apperrors.NewDataError("account", ref, "not found", apperrors.ErrNotFound)
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"}

// timeFlag parses a time flag. An unset flag yields the zero time.
func timeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperrors.NewValidationError(name, value, "expected RFC3339 or YYYY-MM-DD [HH:MM]")
}

func optionalFloat(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}

func parseFloatArg(name, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, apperrors.NewValidationError(name, value, "must be a number")
	}
	return f, nil
}
