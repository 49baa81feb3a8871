// Package cli provides the command-line interface for the trading application.
package cli

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"signal-trader/internal/config"
	"signal-trader/internal/logging"
	"signal-trader/internal/resilience"
	"signal-trader/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-01-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.Store
	Breakers *resilience.CircuitBreakerRegistry
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Breakers: resilience.NewCircuitBreakerRegistry(resilience.DefaultCircuitBreakerConfig()),
	}

	allowColor = cfg.UI.ColorEnabled

	// Initialize SQLite store
	dataStore, err := store.NewSQLiteStore(cfg.Portfolio.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Portfolio.DBPath).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "signal-trader",
		Short: "Signal Trader - daily signal-fusion paper trading CLI",
		Long: `Signal Trader analyzes a configured set of symbols once per day, fuses
price predictions with news sentiment into trading signals, and executes the
approved ones against a persistent paper portfolio.

Market data, predictions and sentiment come from replaceable providers; every
run, signal, trade and prediction is recorded in a local SQLite database so
accuracy and performance can be audited later.

Use 'signal-trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/signal-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addRunCommands(rootCmd, app)
	addAccuracyCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)
	addSignalCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
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
				output.Printf("Signal Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(maskedConfig(app.Config))
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Run Configuration")
	output.Printf("  Symbols:          %s\n", strings.Join(cfg.Run.Symbols, ", "))
	output.Printf("  History Days:     %d\n", cfg.Run.HistoryDays)
	output.Printf("  Validation Lag:   %d trading days\n", cfg.Run.ValidationLagDays)
	output.Println()

	output.Bold("Fusion Configuration")
	output.Printf("  Price Weight:     %.2f\n", cfg.Fusion.PriceWeight)
	output.Printf("  Sentiment Weight: %.2f\n", cfg.Fusion.SentimentWeight)
	output.Printf("  Min Confidence:   %.2f\n", cfg.Fusion.MinConfidence)
	output.Printf("  Action Threshold: %.2f\n", cfg.Fusion.ActionThreshold)
	output.Printf("  Strong Threshold: %.2f\n", cfg.Fusion.StrongThreshold)
	output.Println()

	output.Bold("Risk Configuration")
	output.Printf("  Base Size:        %.1f%%\n", cfg.Risk.BaseSize*100)
	output.Printf("  Max Position:     %.1f%%\n", cfg.Risk.MaxPositionSize*100)
	output.Printf("  Max Exposure:     %.1f%%\n", cfg.Risk.MaxPortfolioRisk*100)
	output.Printf("  Stop Loss:        %.1f%%\n", cfg.Risk.StopLossPct*100)
	output.Printf("  Take Profit:      %.1f%%\n", cfg.Risk.TakeProfitPct*100)
	output.Printf("  Min Confidence:   %.2f\n", cfg.Risk.MinConfidence)
	output.Println()

	output.Bold("Portfolio")
	output.Printf("  Initial Capital:  %.2f\n", cfg.Portfolio.InitialCapital)
	output.Printf("  Risk-Free Rate:   %.2f%%\n", cfg.Portfolio.RiskFreeRate*100)
	output.Printf("  Database:         %s\n", cfg.Portfolio.DBPath)
	output.Println()

	output.Bold("Models")
	output.Printf("  Remote:           %v\n", cfg.Models.Remote.Enabled)
	output.Printf("  ONNX:             %v\n", cfg.Models.ONNX.Enabled)
	output.Printf("  Momentum Lookback: %d\n", cfg.Models.Momentum.Lookback)
	output.Printf("  Sentiment Model:  %s\n", cfg.Models.Sentiment.Model)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:          %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:            %s\n", cfg.Notifications.Level)
	output.Printf("  Terminal:         %v\n", cfg.Notifications.Terminal.Enabled)
	output.Printf("  Webhook:          %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:         %v\n", cfg.Notifications.Telegram.Enabled)
	output.Println()

	output.Bold("Credentials")
	output.Printf("  OpenAI API Key:   %s\n", secretStatus(cfg.Credentials.OpenAI.APIKey))
	output.Printf("  Prediction Token: %s\n", secretStatus(cfg.Credentials.Prediction.APIToken))

	return nil
}

// maskedConfig returns a copy of cfg safe to print: secrets are replaced,
// never echoed.
func maskedConfig(cfg *config.Config) *config.Config {
	masked := *cfg
	masked.Credentials.OpenAI.APIKey = maskSecret(cfg.Credentials.OpenAI.APIKey)
	masked.Credentials.Prediction.APIToken = maskSecret(cfg.Credentials.Prediction.APIToken)
	masked.Notifications.Telegram.BotToken = maskSecret(cfg.Notifications.Telegram.BotToken)
	return &masked
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func secretStatus(s string) string {
	if s == "" {
		return "not set"
	}
	return "configured"
}

// storeRequired returns an error after printing guidance when no store is
// available.
func storeRequired(output *Output, app *App) error {
	if app.Store != nil {
		return nil
	}
	output.Error("Store not initialized. Check portfolio.db_path in config.")
	return fmt.Errorf("store not initialized")
}
