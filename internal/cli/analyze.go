package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/analysis/insights"
	"trade-journal/internal/journal"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze trading performance",
		Long: `Compute performance statistics and an emotion summary over the journal,
then list the ranked errors and advice the insight rules found.`,
		Example: `  journal analyze --user trader@example.com
  journal analyze --from 2026-01-01 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			user, err := app.user(ctx, cmd)
			if err != nil {
				return err
			}
			filter, err := app.tradeFilter(ctx, cmd, user.ID)
			if err != nil {
				return err
			}
			report, err := app.Journal.Report(ctx, user.ID, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			renderReport(output, report)
			return nil
		},
	}

	cmd.Flags().String("user", "", "email of the journal user (optional with a single user)")
	addTradeFilterFlags(cmd)
	return cmd
}

func renderReport(output *Output, report *journal.Report) {
	s := report.Stats
	output.Bold("Performance")
	if s.TotalTrades == 0 {
		output.Info("No closed trades yet. Record some trades to see statistics.")
	} else {
		output.Printf("  Trades:          %d (%d W / %d L / %d BE)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades, s.BreakevenTrades)
		output.Printf("  Win Rate:        %.1f%%\n", s.WinRate)
		output.Printf("  Total P&L:       %s\n", output.FormatPnL(s.TotalPnL))
		output.Printf("  Avg Win / Loss:  %s / %s\n", FormatMoney(s.AverageWin), FormatMoney(s.AverageLoss))
		output.Printf("  Profit Factor:   %s\n", formatRatio(s.ProfitFactor))
		output.Printf("  Risk/Reward:     %s\n", FormatRiskReward(s.RiskRewardRatio))
		output.Printf("  Expectancy:      %s\n", output.FormatPnL(s.Expectancy))
		output.Printf("  Sharpe:          %.2f\n", s.SharpeRatio)
		output.Printf("  Max Drawdown:    %s (%.1f%%)\n", FormatMoney(s.MaxDrawdownAmount), s.MaxDrawdown)
		output.Printf("  Best / Worst:    %s / %s\n", output.FormatPnL(s.BestTrade), output.FormatPnL(s.WorstTrade))
		output.Printf("  Streaks:         %d wins, %d losses (current %+d)\n", s.MaxConsecutiveWins, s.MaxConsecutiveLosses, s.CurrentStreak)
		output.Printf("  Avg Hold:        %s\n", FormatDuration(time.Duration(s.AverageHoldMinutes*float64(time.Minute))))
		output.Printf("  Trades per Day:  %.1f avg, %d max over %d days\n", s.AvgTradesPerDay, s.MaxTradesPerDay, s.TradingDays)
	}
	output.Println()

	e := report.Emotions
	if e.TotalLogs > 0 {
		output.Bold("Emotions")
		output.Printf("  Logs:            %d (%.0f%% positive, %.0f%% negative)\n", e.TotalLogs, e.PositiveRatio*100, e.NegativeRatio*100)
		output.Printf("  Avg Intensity:   %.1f\n", e.AverageIntensity)
		if e.MostFrequent != "" {
			output.Printf("  Most Frequent:   %s\n", e.MostFrequent)
		}
		if len(e.ByEmotion) > 0 {
			output.Println()
			table := NewTable(output, "Emotion", "Sentiment", "Logs", "Avg Intensity", "Trades", "Avg P&L")
			for _, b := range e.ByEmotion {
				table.AddRow(
					b.Name,
					output.sentiment(b.Sentiment),
					fmt.Sprintf("%d", b.Count),
					fmt.Sprintf("%.1f", b.AvgIntensity),
					fmt.Sprintf("%d", b.TradeCount),
					output.FormatPnL(b.AvgTradePnL),
				)
			}
			table.Render()
		}
		output.Println()
	}

	renderInsights(output, "Errors", report.Insights.Errors)
	renderInsights(output, "Advice", report.Insights.Advice)

	if report.Truncated {
		output.Warning("Some insights are hidden on the %s plan. Upgrade to see them all.", report.Plan)
	}
	if report.Insights.Len() == 0 && s.TotalTrades > 0 {
		output.Success("No issues found.")
	}
}

func renderInsights(output *Output, title string, list []insights.Insight) {
	if len(list) == 0 {
		return
	}
	output.Bold("%s", title)
	for i, in := range list {
		output.Printf("  %d. %s %s %s\n", i+1, output.CategoryBadge(in.Category), in.Message, output.DimText(fmt.Sprintf("(%d%%)", in.Confidence)))
	}
	output.Println()
}

// formatRatio formats a ratio that is undefined when its denominator is zero.
func formatRatio(r float64) string {
	if r == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", r)
}
