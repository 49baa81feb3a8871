package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"signal-trader/internal/portfolio"
	"signal-trader/internal/risk"
	"signal-trader/pkg/utils"
)

// addPortfolioCommands adds portfolio state and performance commands.
func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPortfolioCmd(app))
	rootCmd.AddCommand(newPerformanceCmd(app))
}

// loadPortfolio rebuilds the paper portfolio from persisted state. A nil
// portfolio with a nil error means nothing has been saved yet.
func loadPortfolio(ctx context.Context, app *App) (*portfolio.Portfolio, error) {
	state, err := app.Store.LoadPortfolio(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}
	pf := portfolio.New(app.Config.Portfolio, risk.NewManager(app.Config.Risk))
	if err := pf.Restore(state); err != nil {
		return nil, err
	}
	return pf, nil
}

func newPortfolioCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show paper portfolio positions and capital",
		Example: `  signal-trader portfolio
  signal-trader portfolio --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := storeRequired(output, app); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pf, err := loadPortfolio(ctx, app)
			if err != nil {
				output.Error("Failed to load portfolio: %v", err)
				return err
			}
			if pf == nil {
				output.Info("No portfolio state yet. Run 'signal-trader run' first.")
				return nil
			}

			if output.IsJSON() {
				return output.JSON(pf.Export())
			}

			renderPortfolio(output, app, pf)
			return nil
		},
	}
	return cmd
}

func renderPortfolio(output *Output, app *App, pf *portfolio.Portfolio) {
	output.Bold("Paper Portfolio")
	output.Println()

	positions := pf.Positions()
	if len(positions) == 0 {
		output.Dim("  No open positions.")
	} else {
		table := NewTable(output, "Symbol", "Side", "Qty", "Entry", "Current", "Stop", "Take", "Unrealized", "Opened")
		for _, pos := range positions {
			table.AddRow(
				pos.Symbol,
				output.SideTag(pos.Side),
				utils.FormatQuantity(pos.Quantity),
				utils.FormatCurrency(pos.EntryPrice),
				utils.FormatCurrency(pos.CurrentPrice),
				utils.FormatCurrency(pos.StopLossPrice),
				utils.FormatCurrency(pos.TakeProfitPrice),
				output.FormatPnL(pos.UnrealizedPnL),
				app.FormatDate(pos.OpenedAt),
			)
		}
		table.Render()
	}
	output.Println()

	perf := pf.Summary()
	output.Printf("  Capital:       %s (started with %s)\n",
		utils.FormatCurrency(perf.CurrentCapital), utils.FormatCurrency(perf.InitialCapital))
	output.Printf("  Total value:   %s (%s)\n",
		utils.FormatCurrency(perf.TotalValue), output.FormatPercent(perf.TotalReturnPct))
	output.Printf("  Open:          %d position(s)\n", perf.OpenPositions)
}

func newPerformanceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Show portfolio performance statistics",
		Long: `Summarize the paper portfolio: returns, win rate, realized PnL, maximum
drawdown and Sharpe ratio, followed by the most recent daily snapshots.`,
		Example: `  signal-trader performance
  signal-trader performance --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := storeRequired(output, app); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			pf, err := loadPortfolio(ctx, app)
			if err != nil {
				output.Error("Failed to load portfolio: %v", err)
				return err
			}
			if pf == nil {
				output.Info("No portfolio state yet. Run 'signal-trader run' first.")
				return nil
			}

			perf := pf.Summary()
			if output.IsJSON() {
				return output.JSON(perf)
			}

			output.Bold("Performance")
			output.Printf("  Initial capital:  %s\n", utils.FormatCurrency(perf.InitialCapital))
			output.Printf("  Current capital:  %s\n", utils.FormatCurrency(perf.CurrentCapital))
			output.Printf("  Total value:      %s\n", utils.FormatCurrency(perf.TotalValue))
			output.Printf("  Total return:     %s\n", output.FormatPercent(perf.TotalReturnPct))
			output.Printf("  Realized PnL:     %s\n", output.FormatPnL(perf.TotalPnL))
			output.Printf("  Max drawdown:     %.2f%%\n", perf.MaxDrawdownPct)
			output.Printf("  Sharpe ratio:     %.2f\n", perf.SharpeRatio)
			output.Println()

			output.Bold("Trades")
			output.Printf("  Total:   %d (%d closed, %d open positions)\n",
				perf.TotalTrades, perf.ClosedTrades, perf.OpenPositions)
			if perf.ClosedTrades > 0 {
				output.Printf("  Won:     %d  Lost: %d\n", perf.WinningTrades, perf.LosingTrades)
				output.Printf("  Win rate: %.1f%%\n", perf.WinRate)
			}

			renderSnapshots(output, pf)
			return nil
		},
	}
	return cmd
}

// renderSnapshots prints the most recent daily snapshots, newest last.
func renderSnapshots(output *Output, pf *portfolio.Portfolio) {
	snaps := pf.Snapshots()
	if len(snaps) == 0 {
		return
	}
	if len(snaps) > 10 {
		snaps = snaps[len(snaps)-10:]
	}

	output.Println()
	output.Bold("Daily Snapshots")
	table := NewTable(output, "Date", "Total Value", "Daily", "Total")
	for _, snap := range snaps {
		table.AddRow(
			snap.Date,
			utils.FormatCurrency(snap.TotalValue),
			output.FormatPercent(snap.DailyReturnPct),
			output.FormatPercent(snap.TotalReturnPct),
		)
	}
	table.Render()
}
