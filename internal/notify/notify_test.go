package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signal-trader/internal/config"
	"signal-trader/internal/models"
)

type fakeChannel struct {
	name    string
	enabled bool
	err     error
	sent    []Notification
}

func (f *fakeChannel) Name() string    { return f.name }
func (f *fakeChannel) IsEnabled() bool { return f.enabled }

func (f *fakeChannel) Send(_ context.Context, n Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

func newTestNotifier(level NotificationLevel, channels ...NotificationChannel) *MultiNotifier {
	m := NewMultiNotifier(config.NotificationConfig{Enabled: true, Level: string(level)})
	for _, ch := range channels {
		m.AddChannel(ch)
	}
	return m
}

func TestMultiNotifier_LevelFilter(t *testing.T) {
	tests := []struct {
		name      string
		level     NotificationLevel
		notifType NotificationType
		delivered bool
	}{
		{"all passes trades", LevelAll, NotificationTrade, true},
		{"all passes summaries", LevelAll, NotificationSummary, true},
		{"all passes errors", LevelAll, NotificationError, true},
		{"trades_only passes trades", LevelTradesOnly, NotificationTrade, true},
		{"trades_only drops summaries", LevelTradesOnly, NotificationSummary, false},
		{"trades_only drops errors", LevelTradesOnly, NotificationError, false},
		{"errors_only passes errors", LevelErrorsOnly, NotificationError, true},
		{"errors_only drops trades", LevelErrorsOnly, NotificationTrade, false},
		{"unknown level defaults to all", NotificationLevel("verbose"), NotificationInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{name: "fake", enabled: true}
			m := newTestNotifier(tt.level, ch)

			err := m.Send(context.Background(), Notification{Type: tt.notifType, Title: "t"})
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if got := len(ch.sent) == 1; got != tt.delivered {
				t.Errorf("delivered = %v, want %v", got, tt.delivered)
			}
		})
	}
}

func TestMultiNotifier_CollectsChannelErrors(t *testing.T) {
	bad := &fakeChannel{name: "bad", enabled: true, err: fmt.Errorf("connection refused")}
	good := &fakeChannel{name: "good", enabled: true}
	m := newTestNotifier(LevelAll, bad, good)

	err := m.Send(context.Background(), Notification{Type: NotificationInfo, Title: "t"})
	if err == nil {
		t.Fatal("Send() error = nil, want channel failure")
	}
	if !strings.Contains(err.Error(), "notification errors") || !strings.Contains(err.Error(), "bad: connection refused") {
		t.Errorf("error = %q, want channel name and cause", err)
	}
	if len(good.sent) != 1 {
		t.Errorf("good channel sent = %d, want 1 despite the failing channel", len(good.sent))
	}
}

func TestMultiNotifier_SkipsDisabledChannels(t *testing.T) {
	disabled := &fakeChannel{name: "off", enabled: false, err: fmt.Errorf("should never fire")}
	m := newTestNotifier(LevelAll, disabled)

	if err := m.Send(context.Background(), Notification{Type: NotificationInfo}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(disabled.sent) != 0 {
		t.Errorf("disabled channel sent = %d, want 0", len(disabled.sent))
	}
}

func TestMultiNotifier_StampsTimestamp(t *testing.T) {
	ch := &fakeChannel{name: "fake", enabled: true}
	m := newTestNotifier(LevelAll, ch)

	if err := m.Send(context.Background(), Notification{Type: NotificationInfo}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ch.sent[0].Timestamp.IsZero() {
		t.Error("Timestamp not stamped on send")
	}
}

func TestSendTrade_OpenFormatsSignal(t *testing.T) {
	ch := &fakeChannel{name: "fake", enabled: true}
	m := newTestNotifier(LevelAll, ch)

	trade := &models.Trade{
		ID:       "T1_1",
		Symbol:   "AAPL",
		Type:     models.TradeOpen,
		Side:     models.SideLong,
		Quantity: 2.5,
		Price:    150.0,
		Value:    375.0,
	}
	signal := &models.TradingSignal{
		Symbol:        "AAPL",
		Action:        models.ActionBuy,
		Strength:      models.StrengthStrong,
		CombinedScore: 0.72,
		Confidence:    0.81,
		Reasoning:     "price and sentiment agree",
	}

	if err := m.SendTrade(context.Background(), trade, signal); err != nil {
		t.Fatalf("SendTrade() error = %v", err)
	}
	if len(ch.sent) != 1 {
		t.Fatalf("sent = %d notifications, want 1", len(ch.sent))
	}

	n := ch.sent[0]
	if n.Type != NotificationTrade {
		t.Errorf("Type = %q, want %q", n.Type, NotificationTrade)
	}
	if n.Title != "Trade: OPEN LONG AAPL" {
		t.Errorf("Title = %q", n.Title)
	}
	if !strings.Contains(n.Message, "OPEN 2.5 AAPL @ $150.00 ($375.00)") {
		t.Errorf("Message = %q, missing fill line", n.Message)
	}
	if !strings.Contains(n.Message, "STRONG BUY") {
		t.Errorf("Message = %q, missing signal grade", n.Message)
	}
	if !strings.Contains(n.Message, "price and sentiment agree") {
		t.Errorf("Message = %q, missing reasoning", n.Message)
	}
	if strings.Contains(n.Message, "P&L") {
		t.Errorf("Message = %q, open trade must not report P&L", n.Message)
	}
	if n.Data["symbol"] != "AAPL" || n.Data["side"] != "LONG" {
		t.Errorf("Data = %v", n.Data)
	}
	if _, ok := n.Data["pnl"]; ok {
		t.Error("Data carries pnl for an open trade")
	}
}

func TestSendTrade_CloseReportsPnL(t *testing.T) {
	ch := &fakeChannel{name: "fake", enabled: true}
	m := newTestNotifier(LevelAll, ch)

	trade := &models.Trade{
		Symbol:      "MSFT",
		Type:        models.TradeClose,
		Side:        models.SideLong,
		Quantity:    1,
		Price:       130.0,
		Value:       130.0,
		PnL:         -12.5,
		CloseReason: models.CloseStopLoss,
	}

	if err := m.SendTrade(context.Background(), trade, nil); err != nil {
		t.Fatalf("SendTrade() error = %v", err)
	}

	n := ch.sent[0]
	if !strings.Contains(n.Message, "P&L: -$12.50") {
		t.Errorf("Message = %q, missing P&L line", n.Message)
	}
	if !strings.Contains(n.Message, "Reason: STOP_LOSS") {
		t.Errorf("Message = %q, missing close reason", n.Message)
	}
	if strings.Contains(n.Message, "Signal:") {
		t.Errorf("Message = %q, exit without signal must not report one", n.Message)
	}
	if n.Data["pnl"] != -12.5 || n.Data["close_reason"] != "STOP_LOSS" {
		t.Errorf("Data = %v", n.Data)
	}
}

func TestSendRunSummary(t *testing.T) {
	ch := &fakeChannel{name: "fake", enabled: true}
	m := newTestNotifier(LevelAll, ch)

	report := &models.RunReport{
		RunID:           "run-20260821-093000",
		SymbolsAnalyzed: []string{"AAPL", "MSFT", "TSLA"},
		TradingSignals: map[string]*models.TradingSignal{
			"AAPL": {Action: models.ActionBuy},
			"MSFT": {Action: models.ActionSell},
			"TSLA": {Action: models.ActionHold},
		},
	}
	report.AddAlert("TSLA", models.AlertStaleData, "history served from cache")
	perf := &models.PerformanceSummary{
		TotalValue:     101234.56,
		TotalReturnPct: 1.23,
		WinRate:        60.0,
		ClosedTrades:   5,
	}

	if err := m.SendRunSummary(context.Background(), report, perf); err != nil {
		t.Fatalf("SendRunSummary() error = %v", err)
	}

	n := ch.sent[0]
	if n.Type != NotificationSummary {
		t.Errorf("Type = %q, want %q", n.Type, NotificationSummary)
	}
	if !strings.Contains(n.Title, "run-20260821-093000") {
		t.Errorf("Title = %q, missing run id", n.Title)
	}
	for _, want := range []string{
		"Symbols analyzed: 3",
		"1 BUY / 1 SELL / 1 HOLD",
		"$101,234.56",
		"+1.23%",
		"Win rate: 60.0% over 5 closed trades",
		"TSLA STALE_DATA: history served from cache",
	} {
		if !strings.Contains(n.Message, want) {
			t.Errorf("Message = %q, missing %q", n.Message, want)
		}
	}
	if n.Data["buys"] != 1 || n.Data["sells"] != 1 || n.Data["holds"] != 1 {
		t.Errorf("Data = %v", n.Data)
	}
}

func TestSendRunSummary_CapsAlertLines(t *testing.T) {
	ch := &fakeChannel{name: "fake", enabled: true}
	m := newTestNotifier(LevelAll, ch)

	report := &models.RunReport{RunID: "run-x"}
	for i := 0; i < maxSummaryAlerts+3; i++ {
		report.AddAlert(fmt.Sprintf("SYM%d", i), models.AlertNoSignal, "held")
	}

	if err := m.SendRunSummary(context.Background(), report, nil); err != nil {
		t.Fatalf("SendRunSummary() error = %v", err)
	}

	n := ch.sent[0]
	if !strings.Contains(n.Message, "(+3 more)") {
		t.Errorf("Message = %q, missing overflow marker", n.Message)
	}
	if strings.Count(n.Message, "held") != maxSummaryAlerts {
		t.Errorf("alert lines = %d, want %d", strings.Count(n.Message, "held"), maxSummaryAlerts)
	}
}

func TestSendError(t *testing.T) {
	ch := &fakeChannel{name: "fake", enabled: true}
	m := newTestNotifier(LevelAll, ch)

	if err := m.SendError(context.Background(), fmt.Errorf("database locked"), "portfolio save"); err != nil {
		t.Fatalf("SendError() error = %v", err)
	}

	n := ch.sent[0]
	if n.Type != NotificationError {
		t.Errorf("Type = %q, want %q", n.Type, NotificationError)
	}
	if n.Title != "Error: portfolio save" {
		t.Errorf("Title = %q", n.Title)
	}
	if n.Message != "database locked" {
		t.Errorf("Message = %q", n.Message)
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	var gotMethod, gotContentType, gotUserAgent string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotUserAgent = r.Header.Get("User-Agent")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(srv.URL)
	n := Notification{
		Type:      NotificationTrade,
		Title:     "Trade: OPEN LONG AAPL",
		Message:   "OPEN 2.5 AAPL @ $150.00",
		Data:      map[string]interface{}{"symbol": "AAPL"},
		Timestamp: time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC),
	}
	if err := w.Send(context.Background(), n); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotUserAgent != "SignalTrader/1.0" {
		t.Errorf("User-Agent = %q", gotUserAgent)
	}
	if gotBody["type"] != "trade" || gotBody["title"] != "Trade: OPEN LONG AAPL" {
		t.Errorf("payload = %v", gotBody)
	}
	if gotBody["timestamp"] != "2026-08-21T09:30:00Z" {
		t.Errorf("timestamp = %v", gotBody["timestamp"])
	}
	data, ok := gotBody["data"].(map[string]interface{})
	if !ok || data["symbol"] != "AAPL" {
		t.Errorf("data = %v", gotBody["data"])
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(srv.URL)
	err := w.Send(context.Background(), Notification{Type: NotificationInfo, Timestamp: time.Now()})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("Send() error = %v, want status 500", err)
	}
}

func TestTelegramNotifier_IsEnabled(t *testing.T) {
	if NewTelegramNotifier("", "chat").IsEnabled() {
		t.Error("notifier without token reports enabled")
	}
	if NewTelegramNotifier("token", "").IsEnabled() {
		t.Error("notifier without chat id reports enabled")
	}
	if !NewTelegramNotifier("token", "chat").IsEnabled() {
		t.Error("configured notifier reports disabled")
	}
}

func TestEscapeHTML(t *testing.T) {
	got := escapeHTML(`P&L <up> "quote"`)
	want := `P&amp;L &lt;up&gt; "quote"`
	if got != want {
		t.Errorf("escapeHTML() = %q, want %q", got, want)
	}
}

func TestNewNotifier(t *testing.T) {
	if _, ok := NewNotifier(config.NotificationConfig{Enabled: false}).(*NoOpNotifier); !ok {
		t.Fatal("disabled config should yield NoOpNotifier")
	}

	n := NewNotifier(config.NotificationConfig{
		Enabled: true,
		Level:   "trades_only",
		Webhook: config.WebhookConfig{Enabled: true, URL: "http://localhost:9/hook"},
	})
	m, ok := n.(*MultiNotifier)
	if !ok {
		t.Fatal("enabled config should yield MultiNotifier")
	}
	if len(m.channels) != 1 {
		t.Fatalf("channels = %d, want webhook only", len(m.channels))
	}
	if m.level != LevelTradesOnly {
		t.Errorf("level = %q, want %q", m.level, LevelTradesOnly)
	}
}
