package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Signal Trader Configuration

[run]
# Symbols analyzed each run, in order
symbols = ["AAPL", "MSFT", "GOOGL"]
# Days of daily candles fetched for prediction models
history_days = 60
# Trading days to wait before validating a prediction
validation_lag_days = 1

[fusion]
# Component weights, must sum to 1.0
price_weight = 0.6
sentiment_weight = 0.4
# Minimum overall confidence for BUY/SELL
min_confidence = 0.6
# Combined score beyond which a signal becomes actionable
action_threshold = 0.3
# Combined score beyond which a signal is STRONG
strong_threshold = 0.6

[risk]
# Base position size as fraction of capital
base_size = 0.03
# Hard cap on a single position as fraction of capital
max_position_size = 0.05
# Cap on total open exposure as fraction of capital
max_portfolio_risk = 0.20
# Stop-loss distance from entry
stop_loss_pct = 0.08
# Take-profit distance from entry
take_profit_pct = 0.15
# Minimum signal confidence to execute
min_confidence = 0.6

[portfolio]
# Starting paper capital in USD
initial_capital = 100000.0
# Annual risk-free rate for the Sharpe ratio
risk_free_rate = 0.05
# SQLite database path (defaults next to this file)
# db_path = ""

[marketdata]
# Per-request timeout in seconds
timeout_seconds = 15
# Retry attempts for quote/history fetches
max_retries = 3
# Serve cached candles when the upstream fails
allow_stale_cache = true

[metrics]
# Expose prometheus metrics on addr while a command runs
enabled = false
addr = ":9105"

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "2006-01-02"
# Time format
time_format = "15:04:05"

[notifications]
# Enable notifications
enabled = true
# Notification level: all, trades_only, errors_only
level = "all"

[notifications.terminal]
enabled = true

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""
`

const credentialsTemplate = `# Signal Trader Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[openai]
api_key = ""

[prediction]
api_token = ""
`

const modelsTemplate = `# Signal Trader Model Configuration

[remote]
# Model-serving endpoint for next-day price predictions
enabled = false
url = ""
timeout_seconds = 10
# Minimum daily candles the remote model needs
min_history = 30

[onnx]
# Local ONNX next-day-return model
enabled = false
model_path = ""
# Optional explicit onnxruntime shared library path
library_path = ""
# Input window of daily returns
window = 30

[momentum]
# Daily returns averaged by the fallback model
lookback = 5

[sentiment]
# LLM used for news sentiment (falls back to lexicon scoring)
model = "gpt-4o-mini"
temperature = 0.2
# Headlines fetched per symbol
max_articles = 10
# Fetch and parse article bodies in addition to headlines
fetch_bodies = false
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return fmt.Errorf("credentials file not found, created template at %s", path)
}

func createTemplateModels(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "models.toml")
	if err := os.WriteFile(path, []byte(modelsTemplate), 0644); err != nil {
		return fmt.Errorf("writing models template: %w", err)
	}

	return fmt.Errorf("models config file not found, created template at %s", path)
}
