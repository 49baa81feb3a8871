package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// addSignalCommands adds the signal history command.
func addSignalCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newSignalsCmd(app))
}

func newSignalsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Show recent trading signals",
		Long: `List the most recent fused trading signals, newest first. Degraded
signals (sentiment chain unavailable) and fallback models are marked.`,
		Example: `  signal-trader signals
  signal-trader signals --symbol AAPL --limit 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := storeRequired(output, app); err != nil {
				return err
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			limit, _ := cmd.Flags().GetInt("limit")
			symbol = strings.ToUpper(strings.TrimSpace(symbol))

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			signals, err := app.Store.RecentSignals(ctx, symbol, limit)
			if err != nil {
				output.Error("Failed to load signals: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(signals)
			}

			if len(signals) == 0 {
				output.Info("No signals recorded yet. Run 'signal-trader run' first.")
				return nil
			}

			table := NewTable(output, "Generated", "Symbol", "Signal", "Score", "Conf", "Model")
			for i := range signals {
				sig := &signals[i]
				model := sig.ModelUsed
				if model == "" {
					model = "-"
				}
				if sig.IsFallback {
					model += " (fallback)"
				}
				if sig.Degraded {
					model += " [degraded]"
				}
				table.AddRow(
					app.FormatDateTime(sig.GeneratedAt),
					sig.Symbol,
					output.SignalTag(sig.Action, sig.Strength),
					FormatScore(sig.CombinedScore),
					FormatConfidence(sig.Confidence),
					model,
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().Int("limit", 20, "maximum number of signals to show")
	return cmd
}
