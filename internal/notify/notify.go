// Package notify delivers run results to the configured channels. A daily run
// produces at most a handful of notifications, so channels are invoked
// synchronously and failures are collected rather than aborting the run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"signal-trader/internal/config"
	"signal-trader/internal/models"
	"signal-trader/pkg/utils"
)

// maxSummaryAlerts caps how many alert lines a run summary message carries.
const maxSummaryAlerts = 10

// Notifier defines the interface for delivering run results.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendTrade(ctx context.Context, trade *models.Trade, signal *models.TradingSignal) error
	SendRunSummary(ctx context.Context, report *models.RunReport, perf *models.PerformanceSummary) error
	SendError(ctx context.Context, err error, context string) error
}

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTrade   NotificationType = "trade"
	NotificationError   NotificationType = "error"
	NotificationSummary NotificationType = "summary"
	NotificationInfo    NotificationType = "info"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelTradesOnly NotificationLevel = "trades_only"
	LevelErrorsOnly NotificationLevel = "errors_only"
)

// MultiNotifier fans notifications out to every enabled channel.
type MultiNotifier struct {
	channels []NotificationChannel
	level    NotificationLevel
	mu       sync.RWMutex
}

// NewNotifier builds a Notifier from configuration. A disabled notifications
// section yields a NoOpNotifier so callers never need a nil check.
func NewNotifier(cfg config.NotificationConfig) Notifier {
	if !cfg.Enabled {
		return &NoOpNotifier{}
	}
	return NewMultiNotifier(cfg)
}

// NewMultiNotifier creates a MultiNotifier with channels wired from
// configuration.
func NewMultiNotifier(cfg config.NotificationConfig) *MultiNotifier {
	m := &MultiNotifier{level: NotificationLevel(cfg.Level)}
	if m.level == "" {
		m.level = LevelAll
	}

	if cfg.Terminal.Enabled {
		m.AddChannel(NewTerminalNotifier())
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		m.AddChannel(NewWebhookNotifier(cfg.Webhook.URL))
	}
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		m.AddChannel(NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	return m
}

// AddChannel registers an additional delivery channel.
func (m *MultiNotifier) AddChannel(ch NotificationChannel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// SetLevel changes the delivery level filter.
func (m *MultiNotifier) SetLevel(level NotificationLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
}

// shouldSend applies the level filter.
func (m *MultiNotifier) shouldSend(t NotificationType) bool {
	m.mu.RLock()
	level := m.level
	m.mu.RUnlock()

	switch level {
	case LevelTradesOnly:
		return t == NotificationTrade
	case LevelErrorsOnly:
		return t == NotificationError
	default:
		return true
	}
}

// Send delivers a notification to every enabled channel. Failures are
// collected so one misbehaving channel does not silence the others.
func (m *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !m.shouldSend(n.Type) {
		return nil
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	m.mu.RLock()
	channels := make([]NotificationChannel, len(m.channels))
	copy(channels, m.channels)
	m.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendTrade sends a notification for an executed paper trade. The signal that
// prompted the trade is included when available; exits triggered by stop or
// target levels carry no signal.
func (m *MultiNotifier) SendTrade(ctx context.Context, trade *models.Trade, signal *models.TradingSignal) error {
	title := fmt.Sprintf("Trade: %s %s %s", trade.Type, trade.Side, trade.Symbol)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s %s @ %s (%s)\n",
		trade.Type, utils.FormatQuantity(trade.Quantity), trade.Symbol,
		utils.FormatCurrency(trade.Price), utils.FormatCurrency(trade.Value)))
	if trade.Type == models.TradeClose {
		sb.WriteString(fmt.Sprintf("P&L: %s\n", utils.FormatPnL(trade.PnL)))
		if trade.CloseReason != "" {
			sb.WriteString(fmt.Sprintf("Reason: %s\n", trade.CloseReason))
		}
	}
	if signal != nil {
		sb.WriteString(fmt.Sprintf("Signal: %s %s (score %.2f, confidence %.2f)\n",
			signal.Strength, signal.Action, signal.CombinedScore, signal.Confidence))
		if signal.Reasoning != "" {
			sb.WriteString(fmt.Sprintf("Reasoning: %s\n", signal.Reasoning))
		}
	}

	data := map[string]interface{}{
		"symbol":   trade.Symbol,
		"type":     string(trade.Type),
		"side":     string(trade.Side),
		"quantity": trade.Quantity,
		"price":    trade.Price,
		"value":    trade.Value,
	}
	if trade.Type == models.TradeClose {
		data["pnl"] = trade.PnL
		data["close_reason"] = string(trade.CloseReason)
	}

	return m.Send(ctx, Notification{
		Type:    NotificationTrade,
		Title:   title,
		Message: strings.TrimRight(sb.String(), "\n"),
		Data:    data,
	})
}

// SendRunSummary sends the end-of-run digest.
func (m *MultiNotifier) SendRunSummary(ctx context.Context, report *models.RunReport, perf *models.PerformanceSummary) error {
	var buys, sells, holds int
	for _, sig := range report.TradingSignals {
		switch sig.Action {
		case models.ActionBuy:
			buys++
		case models.ActionSell:
			sells++
		default:
			holds++
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Symbols analyzed: %d\n", len(report.SymbolsAnalyzed)))
	sb.WriteString(fmt.Sprintf("Signals: %d BUY / %d SELL / %d HOLD\n", buys, sells, holds))
	if perf != nil {
		sb.WriteString(fmt.Sprintf("Portfolio: %s (%s total return)\n",
			utils.FormatCurrency(perf.TotalValue), utils.FormatPercent(perf.TotalReturnPct)))
		if perf.ClosedTrades > 0 {
			sb.WriteString(fmt.Sprintf("Win rate: %.1f%% over %d closed trades\n",
				perf.WinRate, perf.ClosedTrades))
		}
	}
	if len(report.Alerts) > 0 {
		sb.WriteString(fmt.Sprintf("Alerts (%d):\n", len(report.Alerts)))
		for i, alert := range report.Alerts {
			if i == maxSummaryAlerts {
				sb.WriteString(fmt.Sprintf("  (+%d more)\n", len(report.Alerts)-maxSummaryAlerts))
				break
			}
			line := fmt.Sprintf("%s: %s", alert.Kind, alert.Message)
			if alert.Symbol != "" {
				line = alert.Symbol + " " + line
			}
			sb.WriteString("  " + line + "\n")
		}
	}

	data := map[string]interface{}{
		"run_id":  report.RunID,
		"symbols": len(report.SymbolsAnalyzed),
		"buys":    buys,
		"sells":   sells,
		"holds":   holds,
		"alerts":  len(report.Alerts),
	}
	if perf != nil {
		data["total_value"] = perf.TotalValue
		data["total_return_pct"] = perf.TotalReturnPct
	}

	return m.Send(ctx, Notification{
		Type:    NotificationSummary,
		Title:   fmt.Sprintf("Run Summary: %s", report.RunID),
		Message: strings.TrimRight(sb.String(), "\n"),
		Data:    data,
	})
}

// SendError reports a run failure.
func (m *MultiNotifier) SendError(ctx context.Context, err error, context string) error {
	return m.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   fmt.Sprintf("Error: %s", context),
		Message: err.Error(),
		Data: map[string]interface{}{
			"context": context,
		},
	})
}

// WebhookNotifier posts notifications as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier for the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the channel name.
func (w *WebhookNotifier) Name() string { return "webhook" }

// IsEnabled reports whether the channel can deliver.
func (w *WebhookNotifier) IsEnabled() bool { return w.url != "" }

// Send posts the notification payload.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	payload := map[string]interface{}{
		"type":      string(n.Type),
		"title":     n.Title,
		"message":   n.Message,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}
	if len(n.Data) > 0 {
		payload["data"] = n.Data
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SignalTrader/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// TelegramNotifier sends notifications through the Telegram bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram notifier.
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the channel name.
func (t *TelegramNotifier) Name() string { return "telegram" }

// IsEnabled reports whether the channel can deliver.
func (t *TelegramNotifier) IsEnabled() bool { return t.botToken != "" && t.chatID != "" }

// Send delivers the notification as an HTML-formatted Telegram message.
func (t *TelegramNotifier) Send(ctx context.Context, n Notification) error {
	text := fmt.Sprintf("<b>%s</b>\n%s", escapeHTML(n.Title), escapeHTML(n.Message))

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// escapeHTML escapes the characters Telegram's HTML parse mode treats
// specially.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// NoOpNotifier discards all notifications.
type NoOpNotifier struct{}

func (no *NoOpNotifier) Send(ctx context.Context, n Notification) error { return nil }

func (no *NoOpNotifier) SendTrade(ctx context.Context, trade *models.Trade, signal *models.TradingSignal) error {
	return nil
}

func (no *NoOpNotifier) SendRunSummary(ctx context.Context, report *models.RunReport, perf *models.PerformanceSummary) error {
	return nil
}

func (no *NoOpNotifier) SendError(ctx context.Context, err error, context string) error {
	return nil
}
