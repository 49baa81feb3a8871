// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Run           RunConfig          `mapstructure:"run"`
	Fusion        FusionConfig       `mapstructure:"fusion"`
	Risk          RiskConfig         `mapstructure:"risk"`
	Portfolio     PortfolioConfig    `mapstructure:"portfolio"`
	MarketData    MarketDataConfig   `mapstructure:"marketdata"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
	UI            UIConfig           `mapstructure:"ui"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
	Models        ModelsConfig       `mapstructure:"-"` // Loaded separately
}

// RunConfig holds daily run configuration.
type RunConfig struct {
	Symbols           []string `mapstructure:"symbols"`
	HistoryDays       int      `mapstructure:"history_days"`
	ValidationLagDays int      `mapstructure:"validation_lag_days"`
}

// FusionConfig holds signal fusion weights and thresholds.
type FusionConfig struct {
	PriceWeight     float64 `mapstructure:"price_weight"`
	SentimentWeight float64 `mapstructure:"sentiment_weight"`
	MinConfidence   float64 `mapstructure:"min_confidence"`
	ActionThreshold float64 `mapstructure:"action_threshold"`
	StrongThreshold float64 `mapstructure:"strong_threshold"`
}

// RiskConfig holds position risk configuration.
type RiskConfig struct {
	BaseSize         float64 `mapstructure:"base_size"`
	MaxPositionSize  float64 `mapstructure:"max_position_size"`
	MaxPortfolioRisk float64 `mapstructure:"max_portfolio_risk"`
	StopLossPct      float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct    float64 `mapstructure:"take_profit_pct"`
	MinConfidence    float64 `mapstructure:"min_confidence"`
}

// PortfolioConfig holds paper portfolio configuration.
type PortfolioConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`
	DBPath         string  `mapstructure:"db_path"`
}

// MarketDataConfig holds market data provider configuration.
type MarketDataConfig struct {
	TimeoutSeconds  int  `mapstructure:"timeout_seconds"`
	MaxRetries      int  `mapstructure:"max_retries"`
	AllowStaleCache bool `mapstructure:"allow_stale_cache"`
}

// MetricsConfig holds prometheus exposition configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, trades_only, errors_only
	Terminal TerminalConfig `mapstructure:"terminal"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TerminalConfig holds terminal notification configuration.
type TerminalConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI     OpenAICredentials     `mapstructure:"openai"`
	Prediction PredictionCredentials `mapstructure:"prediction"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// PredictionCredentials holds model-serving API credentials.
type PredictionCredentials struct {
	APIToken string `mapstructure:"api_token"`
}

// ModelsConfig holds prediction and sentiment model configuration.
type ModelsConfig struct {
	Remote    RemoteModelConfig    `mapstructure:"remote"`
	ONNX      ONNXModelConfig      `mapstructure:"onnx"`
	Momentum  MomentumModelConfig  `mapstructure:"momentum"`
	Sentiment SentimentModelConfig `mapstructure:"sentiment"`
}

// RemoteModelConfig holds model-serving endpoint configuration.
type RemoteModelConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MinHistory     int    `mapstructure:"min_history"`
}

// ONNXModelConfig holds local ONNX model configuration.
type ONNXModelConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ModelPath   string `mapstructure:"model_path"`
	LibraryPath string `mapstructure:"library_path"`
	Window      int    `mapstructure:"window"`
}

// MomentumModelConfig holds the fallback momentum model configuration.
type MomentumModelConfig struct {
	Lookback int `mapstructure:"lookback"`
}

// SentimentModelConfig holds sentiment analysis configuration.
type SentimentModelConfig struct {
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxArticles int     `mapstructure:"max_articles"`
	FetchBodies bool    `mapstructure:"fetch_bodies"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/signal-trader"
	}
	return filepath.Join(home, ".config", "signal-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadMainConfig(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Load model config
	if err := loadModelsConfig(configDir, &cfg.Models); err != nil {
		return nil, fmt.Errorf("loading models.toml: %w", err)
	}

	// Load environment variables from .env file, then apply overrides
	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadMainConfig(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	// Set defaults
	v.SetDefault("run.symbols", []string{"AAPL", "MSFT", "GOOGL"})
	v.SetDefault("run.history_days", 60)
	v.SetDefault("run.validation_lag_days", 1)
	v.SetDefault("fusion.price_weight", 0.6)
	v.SetDefault("fusion.sentiment_weight", 0.4)
	v.SetDefault("fusion.min_confidence", 0.6)
	v.SetDefault("fusion.action_threshold", 0.3)
	v.SetDefault("fusion.strong_threshold", 0.6)
	v.SetDefault("risk.base_size", 0.03)
	v.SetDefault("risk.max_position_size", 0.05)
	v.SetDefault("risk.max_portfolio_risk", 0.20)
	v.SetDefault("risk.stop_loss_pct", 0.08)
	v.SetDefault("risk.take_profit_pct", 0.15)
	v.SetDefault("risk.min_confidence", 0.6)
	v.SetDefault("portfolio.initial_capital", 100000.0)
	v.SetDefault("portfolio.risk_free_rate", 0.05)
	v.SetDefault("portfolio.db_path", filepath.Join(configDir, "trader.db"))
	v.SetDefault("marketdata.timeout_seconds", 15)
	v.SetDefault("marketdata.max_retries", 3)
	v.SetDefault("marketdata.allow_stale_cache", true)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9105")
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
	v.SetDefault("ui.time_format", "15:04:05")
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.level", "all")
	v.SetDefault("notifications.terminal.enabled", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func loadModelsConfig(configDir string, models *ModelsConfig) error {
	v := viper.New()
	v.SetConfigName("models")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	// Set defaults
	v.SetDefault("remote.enabled", false)
	v.SetDefault("remote.timeout_seconds", 10)
	v.SetDefault("remote.min_history", 30)
	v.SetDefault("onnx.enabled", false)
	v.SetDefault("onnx.window", 30)
	v.SetDefault("momentum.lookback", 5)
	v.SetDefault("sentiment.model", "gpt-4o-mini")
	v.SetDefault("sentiment.temperature", 0.2)
	v.SetDefault("sentiment.max_articles", 10)
	v.SetDefault("sentiment.fetch_bodies", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateModels(configDir)
		}
		return err
	}

	return v.Unmarshal(models)
}

func applyEnvOverrides(cfg *Config) {
	// OpenAI credentials
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}

	// Model-serving endpoint
	if v := os.Getenv("PREDICT_API_URL"); v != "" {
		cfg.Models.Remote.URL = v
		cfg.Models.Remote.Enabled = true
	}
	if v := os.Getenv("PREDICT_API_TOKEN"); v != "" {
		cfg.Credentials.Prediction.APIToken = v
	}

	// Telegram notifications
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Fusion weights must sum to 1.0
	if sum := c.Fusion.PriceWeight + c.Fusion.SentimentWeight; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("fusion weights must sum to 1.0, got %.4f", sum)
	}
	if c.Fusion.PriceWeight < 0 || c.Fusion.PriceWeight > 1 {
		return fmt.Errorf("price_weight must be between 0 and 1")
	}
	if c.Fusion.MinConfidence < 0 || c.Fusion.MinConfidence > 1 {
		return fmt.Errorf("fusion min_confidence must be between 0 and 1")
	}
	if c.Fusion.ActionThreshold <= 0 || c.Fusion.StrongThreshold <= c.Fusion.ActionThreshold {
		return fmt.Errorf("thresholds must satisfy 0 < action_threshold < strong_threshold")
	}

	// Validate risk parameters
	if c.Risk.BaseSize <= 0 || c.Risk.BaseSize > 1 {
		return fmt.Errorf("base_size must be between 0 and 1")
	}
	if c.Risk.MaxPositionSize <= 0 || c.Risk.MaxPositionSize > 1 {
		return fmt.Errorf("max_position_size must be between 0 and 1")
	}
	if c.Risk.MaxPortfolioRisk <= 0 || c.Risk.MaxPortfolioRisk > 1 {
		return fmt.Errorf("max_portfolio_risk must be between 0 and 1")
	}
	if c.Risk.StopLossPct <= 0 || c.Risk.StopLossPct >= 1 {
		return fmt.Errorf("stop_loss_pct must be between 0 and 1")
	}
	if c.Risk.TakeProfitPct <= 0 || c.Risk.TakeProfitPct >= 1 {
		return fmt.Errorf("take_profit_pct must be between 0 and 1")
	}
	if c.Risk.MinConfidence < 0 || c.Risk.MinConfidence > 1 {
		return fmt.Errorf("risk min_confidence must be between 0 and 1")
	}

	// Validate portfolio parameters
	if c.Portfolio.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive")
	}
	if c.Portfolio.RiskFreeRate < 0 {
		return fmt.Errorf("risk_free_rate must be non-negative")
	}

	// Validate run parameters
	if len(c.Run.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if c.Run.HistoryDays < 2 {
		return fmt.Errorf("history_days must be at least 2")
	}
	if c.Run.ValidationLagDays < 1 {
		return fmt.Errorf("validation_lag_days must be at least 1")
	}

	return nil
}

// HasOpenAI returns true if an OpenAI API key is configured.
func (c *Config) HasOpenAI() bool {
	return c.Credentials.OpenAI.APIKey != ""
}
