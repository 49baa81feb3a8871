// Package cli provides the command-line interface for the trading application.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"signal-trader/internal/fusion"
	"signal-trader/internal/marketdata"
	"signal-trader/internal/models"
	"signal-trader/internal/notify"
	"signal-trader/internal/portfolio"
	"signal-trader/internal/predict"
	"signal-trader/internal/risk"
	"signal-trader/internal/runner"
	"signal-trader/internal/sentiment"
	"signal-trader/pkg/utils"
)

// addRunCommands adds the daily run command.
func addRunCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
}

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one daily analysis and paper-trading run",
		Long: `Run the full daily batch: mark open positions to market, analyze each
configured symbol through the prediction and sentiment chains, fuse the
results into trading signals, gate them through risk checks and execute the
approved ones against the paper portfolio.

The run report is persisted and printed. When no provider produced data for
any symbol the command exits non-zero.`,
		Example: `  signal-trader run
  signal-trader run --symbols AAPL,MSFT
  signal-trader run --json > report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := storeRequired(output, app); err != nil {
				return err
			}

			symbols, _ := cmd.Flags().GetStringSlice("symbols")

			r, pf, err := buildRunner(app)
			if err != nil {
				return err
			}

			report, runErr := r.Run(cmd.Context(), normalizeSymbols(symbols))
			if report == nil {
				return runErr
			}

			if output.IsJSON() {
				if err := output.JSON(report); err != nil {
					return err
				}
				return runErr
			}

			renderRunReport(output, app, report, pf.Summary())
			return runErr
		},
	}

	cmd.Flags().StringSliceP("symbols", "s", nil, "symbols to analyze (default: config run.symbols)")
	return cmd
}

// buildRunner wires the provider chains, fusion engine, risk manager and
// paper portfolio into a Runner. The portfolio is returned so callers can
// summarize it after the run.
func buildRunner(app *App) (*runner.Runner, *portfolio.Portfolio, error) {
	cfg := app.Config

	var predictors []predict.Predictor
	if cfg.Models.Remote.Enabled && cfg.Models.Remote.URL != "" {
		predictors = append(predictors, predict.NewRemotePredictor(
			cfg.Models.Remote, cfg.Credentials.Prediction.APIToken, app.Breakers.Get("predict")))
	}
	if cfg.Models.ONNX.Enabled {
		onnx, err := predict.NewONNXPredictor(cfg.Models.ONNX)
		if err != nil {
			app.Logger.Warn().Err(err).Msg("ONNX predictor unavailable")
		} else {
			predictors = append(predictors, onnx)
		}
	}
	predictors = append(predictors, predict.NewMomentumPredictor(cfg.Models.Momentum.Lookback))

	var analyzers []sentiment.Analyzer
	if cfg.HasOpenAI() {
		client := sentiment.NewOpenAIClient(
			cfg.Credentials.OpenAI.APIKey, cfg.Models.Sentiment.Model, cfg.Models.Sentiment.Temperature)
		analyzers = append(analyzers, sentiment.NewLLMAnalyzer(
			client, app.Breakers.Get("openai"), cfg.Models.Sentiment.MaxArticles))
	} else {
		app.Logger.Debug().Msg("no OpenAI key configured, sentiment uses the lexicon analyzer only")
	}
	analyzers = append(analyzers, sentiment.NewLexiconAnalyzer())

	engine, err := fusion.NewEngine(cfg.Fusion)
	if err != nil {
		return nil, nil, fmt.Errorf("building fusion engine: %w", err)
	}
	riskMgr := risk.NewManager(cfg.Risk)
	pf := portfolio.New(cfg.Portfolio, riskMgr)

	r := runner.New(runner.Deps{
		Config:    cfg,
		Store:     app.Store,
		Market:    app.marketProvider(),
		Predictor: predict.NewChain(predictors...),
		News:      sentiment.NewNewsFetcher(cfg.Models.Sentiment),
		Sentiment: sentiment.NewChain(analyzers...),
		Fusion:    engine,
		Risk:      riskMgr,
		Portfolio: pf,
		Notifier:  notify.NewNotifier(cfg.Notifications),
	})
	return r, pf, nil
}

// marketProvider builds the quote and history provider, cached through the
// store when one is open.
func (a *App) marketProvider() marketdata.Provider {
	yahoo := marketdata.NewYahooProvider(a.Breakers.Get("yahoo"))
	if a.Store == nil {
		return yahoo
	}
	return marketdata.NewCachedProvider(yahoo, a.Store)
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func renderRunReport(output *Output, app *App, report *models.RunReport, perf *models.PerformanceSummary) {
	output.Bold("Run %s", report.RunID)
	output.Dim("%s | %d symbols analyzed", app.FormatDateTime(report.Timestamp), len(report.SymbolsAnalyzed))
	output.Println()

	table := NewTable(output, "Symbol", "Signal", "Score", "Conf", "Model", "Reasoning")
	for _, symbol := range report.SymbolsAnalyzed {
		sig, ok := report.TradingSignals[symbol]
		if !ok {
			continue
		}
		model := sig.ModelUsed
		if model == "" {
			model = "-"
		}
		if sig.IsFallback {
			model += " (fallback)"
		}
		table.AddRow(
			symbol,
			output.SignalTag(sig.Action, sig.Strength),
			FormatScore(sig.CombinedScore),
			FormatConfidence(sig.Confidence),
			model,
			TruncateString(sig.Reasoning, 60),
		)
	}
	table.Render()
	output.Println()

	if len(report.Alerts) > 0 {
		output.Bold("Alerts")
		for _, a := range report.Alerts {
			line := fmt.Sprintf("%s: %s", a.Kind, a.Message)
			if a.Symbol != "" {
				line = a.Symbol + " " + line
			}
			switch a.Kind {
			case models.AlertError:
				output.Printf("  %s\n", output.Red(line))
			case models.AlertTrade, models.AlertExit:
				output.Printf("  %s\n", output.Cyan(line))
			default:
				output.Printf("  %s\n", output.DimText(line))
			}
		}
		output.Println()
	}

	if perf == nil {
		return
	}
	output.Bold("Portfolio")
	output.Printf("  Value:       %s (%s)\n", utils.FormatCurrency(perf.TotalValue), output.FormatPercent(perf.TotalReturnPct))
	output.Printf("  Capital:     %s\n", utils.FormatCurrency(perf.CurrentCapital))
	output.Printf("  Positions:   %d open\n", perf.OpenPositions)
	if perf.ClosedTrades > 0 {
		output.Printf("  Win rate:    %.1f%% over %d closed trades\n", perf.WinRate, perf.ClosedTrades)
	}
}
