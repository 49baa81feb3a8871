package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"signal-trader/internal/models"
	"signal-trader/internal/store"
	"signal-trader/pkg/utils"
)

// addTradeCommands adds the trade history command.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newTradesCmd(app))
}

func newTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Show executed paper trades",
		Long: `List executed paper trades in execution order. OPEN rows record entries,
CLOSE rows record exits with realized PnL and the close reason.`,
		Example: `  signal-trader trades
  signal-trader trades --symbol AAPL --type CLOSE
  signal-trader trades --export trades.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := storeRequired(output, app); err != nil {
				return err
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			tradeType, _ := cmd.Flags().GetString("type")
			limit, _ := cmd.Flags().GetInt("limit")
			exportPath, _ := cmd.Flags().GetString("export")

			filter := store.TradeFilter{
				Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
				Type:   models.TradeType(strings.ToUpper(strings.TrimSpace(tradeType))),
				Limit:  limit,
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			trades, err := app.Store.Trades(ctx, filter)
			if err != nil {
				output.Error("Failed to load trades: %v", err)
				return err
			}

			if exportPath != "" {
				if err := exportTrades(trades, exportPath); err != nil {
					output.Error("Export failed: %v", err)
					return err
				}
				output.Success("Exported %d trades to %s", len(trades), exportPath)
				return nil
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades recorded yet.")
				return nil
			}

			renderTrades(output, app, trades)
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "filter by symbol")
	cmd.Flags().String("type", "", "filter by trade type (OPEN or CLOSE)")
	cmd.Flags().Int("limit", 50, "maximum number of trades to show")
	cmd.Flags().String("export", "", "write the result as CSV to the given file")
	return cmd
}

func exportTrades(trades []models.Trade, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&trades, f)
}

func renderTrades(output *Output, app *App, trades []models.Trade) {
	table := NewTable(output, "Time", "Symbol", "Type", "Side", "Qty", "Price", "Value", "PnL", "Reason")
	var realized float64
	var closed int
	for i := range trades {
		t := &trades[i]
		pnl := "-"
		reason := "-"
		if t.Type == models.TradeClose {
			pnl = output.FormatPnL(t.PnL)
			reason = string(t.CloseReason)
			realized += t.PnL
			closed++
		}
		table.AddRow(
			app.FormatDateTime(t.Timestamp),
			t.Symbol,
			string(t.Type),
			output.SideTag(t.Side),
			utils.FormatQuantity(t.Quantity),
			utils.FormatCurrency(t.Price),
			utils.FormatCurrency(t.Value),
			pnl,
			reason,
		)
	}
	table.Render()

	if closed > 0 {
		output.Println()
		output.Printf("  Realized PnL over %d closed trades: %s\n", closed, output.FormatPnL(realized))
	}
}
