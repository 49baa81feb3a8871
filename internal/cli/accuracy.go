package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"signal-trader/internal/accuracy"
	"signal-trader/internal/models"
)

// addAccuracyCommands adds prediction validation and accuracy commands.
func addAccuracyCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newValidateCmd(app))
	rootCmd.AddCommand(newAccuracyCmd(app))
}

func newValidateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Resolve pending predictions against realized prices",
		Long: `Walk every stored prediction that is old enough to have a realized close,
fetch that close from market data and mark the prediction correct or not.
Predictions whose close cannot be fetched stay pending and are retried on
the next pass.`,
		Example: `  signal-trader validate
  signal-trader validate --days 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := storeRequired(output, app); err != nil {
				return err
			}

			days, _ := cmd.Flags().GetInt("days")
			if days <= 0 {
				days = app.Config.Run.ValidationLagDays
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			validator := accuracy.NewValidator(app.Store, app.marketProvider())
			res, err := validator.Validate(ctx, days)
			if err != nil {
				output.Error("Validation failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(res)
			}

			output.Bold("Prediction Validation")
			output.Printf("  Checked:    %d\n", res.Checked)
			output.Printf("  Evaluated:  %d\n", res.Evaluated)
			output.Printf("  Correct:    %d\n", res.Correct)
			output.Printf("  Pending:    %d\n", res.Pending)
			if res.Evaluated > 0 {
				output.Printf("  Hit rate:   %.1f%%\n", float64(res.Correct)/float64(res.Evaluated)*100)
			}
			return nil
		},
	}

	cmd.Flags().Int("days", 0, "validation lag in trading days (default: config run.validation_lag_days)")
	return cmd
}

func newAccuracyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accuracy",
		Short: "Show rolling prediction accuracy",
		Long: `Report direction-call accuracy over a rolling window, overall and broken
down by model and by symbol. Only evaluated predictions count; run
'signal-trader validate' first to resolve pending ones.`,
		Example: `  signal-trader accuracy
  signal-trader accuracy --days 90
  signal-trader accuracy --symbol AAPL`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := storeRequired(output, app); err != nil {
				return err
			}

			days, _ := cmd.Flags().GetInt("days")
			symbol, _ := cmd.Flags().GetString("symbol")
			symbol = strings.ToUpper(strings.TrimSpace(symbol))

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			validator := accuracy.NewValidator(app.Store, app.marketProvider())
			summary, err := validator.Summary(ctx, days)
			if err != nil {
				output.Error("Failed to compute accuracy: %v", err)
				return err
			}
			if symbol != "" {
				filterSummary(summary, symbol)
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}

			renderAccuracy(output, summary, symbol)
			return nil
		},
	}

	cmd.Flags().Int("days", 30, "rolling window in calendar days")
	cmd.Flags().String("symbol", "", "restrict the report to one symbol")
	return cmd
}

// filterSummary narrows the report to one symbol's rows.
func filterSummary(summary *models.AccuracySummary, symbol string) {
	if sa, ok := summary.BySymbol[symbol]; ok {
		summary.BySymbol = map[string]models.SymbolAccuracy{symbol: sa}
		summary.Total = sa.Evaluated
		summary.Evaluated = sa.Evaluated
		summary.Correct = sa.Correct
		summary.Accuracy = sa.Accuracy
	} else {
		summary.BySymbol = map[string]models.SymbolAccuracy{}
		summary.Total = 0
		summary.Evaluated = 0
		summary.Correct = 0
		summary.Accuracy = 0
	}
	summary.ByModel = map[string]models.ModelAccuracy{}
}

func renderAccuracy(output *Output, summary *models.AccuracySummary, symbol string) {
	title := "Prediction Accuracy"
	if symbol != "" {
		title += " - " + symbol
	}
	output.Bold("%s (last %d days)", title, summary.WindowDays)
	output.Println()

	if summary.Evaluated == 0 {
		output.Info("No evaluated predictions in the window.")
		output.Dim("Run 'signal-trader validate' to resolve pending predictions.")
		return
	}

	output.Printf("  Predictions: %d stored, %d evaluated\n", summary.Total, summary.Evaluated)
	output.Printf("  Correct:     %d (%.1f%%)\n", summary.Correct, summary.Accuracy)
	output.Println()

	if len(summary.ByModel) > 0 {
		output.Bold("By Model")
		table := NewTable(output, "Model", "Evaluated", "Correct", "Accuracy")
		keys := make([]string, 0, len(summary.ByModel))
		for k := range summary.ByModel {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, name := range keys {
			m := summary.ByModel[name]
			table.AddRow(m.Model, strconv.Itoa(m.Evaluated), strconv.Itoa(m.Correct), fmt.Sprintf("%.1f%%", m.Accuracy))
		}
		table.Render()
		output.Println()
	}

	if len(summary.BySymbol) > 0 {
		output.Bold("By Symbol")
		table := NewTable(output, "Symbol", "Evaluated", "Correct", "Accuracy")
		keys := make([]string, 0, len(summary.BySymbol))
		for k := range summary.BySymbol {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, name := range keys {
			s := summary.BySymbol[name]
			table.AddRow(s.Symbol, strconv.Itoa(s.Evaluated), strconv.Itoa(s.Correct), fmt.Sprintf("%.1f%%", s.Accuracy))
		}
		table.Render()
	}
}
