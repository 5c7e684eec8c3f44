package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/models"
)

// addEmotionCommands adds emotion tracking commands.
func addEmotionCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "emotion",
		Short: "Track emotions",
		Long:  "List the available emotions and log how you felt, optionally about a trade.",
	}
	cmd.PersistentFlags().String("user", "", "email of the journal user (optional with a single user)")

	cmd.AddCommand(newEmotionListCmd(app))
	cmd.AddCommand(newEmotionLogCmd(app))

	rootCmd.AddCommand(cmd)
}

func newEmotionListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available emotions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			user, err := app.user(ctx, cmd)
			if err != nil {
				return err
			}
			emotions, err := app.Journal.Emotions(ctx, user.ID)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if emotions == nil {
					emotions = []models.Emotion{}
				}
				return output.JSON(emotions)
			}

			table := NewTable(output, "Name", "Sentiment", "Kind", "ID")
			for _, e := range emotions {
				kind := "custom"
				if e.Predefined {
					kind = "predefined"
				}
				table.AddRow(e.Name, output.sentiment(e.Sentiment), kind, output.DimText(e.ID))
			}
			table.Render()
			return nil
		},
	}
}

func newEmotionLogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <emotion> <intensity 1-10>",
		Short: "Log an emotion",
		Long:  "Log an emotion by name or ID with an intensity from 1 to 10.",
		Example: `  journal emotion log fear 7 --trade <trade-id>
  journal emotion log calm 3 --note "stuck to the plan"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			user, err := app.user(ctx, cmd)
			if err != nil {
				return err
			}
			emotion, err := app.emotion(ctx, user.ID, args[0])
			if err != nil {
				return err
			}
			intensity, err := strconv.Atoi(args[1])
			if err != nil {
				return apperrors.NewValidationError("intensity", args[1], "must be a whole number from 1 to 10")
			}
			tradeID, _ := cmd.Flags().GetString("trade")
			note, _ := cmd.Flags().GetString("note")

			entry, err := app.Journal.LogEmotion(ctx, user.ID, journal.EmotionLogInput{
				EmotionID: emotion.ID,
				TradeID:   tradeID,
				Intensity: intensity,
				Note:      note,
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(entry)
			}
			output.Success("✓ Logged %s (%d/10)", entry.EmotionName, entry.Intensity)
			return nil
		},
	}

	cmd.Flags().String("trade", "", "trade ID the emotion relates to")
	cmd.Flags().String("note", "", "free-form note")
	return cmd
}

// emotion resolves an emotion by ID or case-insensitive name.
func (a *App) emotion(ctx context.Context, userID, ref string) (*models.Emotion, error) {
	emotions, err := a.Journal.Emotions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range emotions {
		if emotions[i].ID == ref || strings.EqualFold(emotions[i].Name, ref) {
			return &emotions[i], nil
		}
	}
	return nil, fmt.Errorf("unknown emotion %q (see 'journal emotion list')", ref)
}

func (o *Output) sentiment(s models.Sentiment) string {
	switch s {
	case models.SentimentPositive:
		return o.Green(string(s))
	case models.SentimentNegative:
		return o.Red(string(s))
	}
	return string(s)
}
