// Package integration tests the full daily pipeline end to end: real
// fusion, risk, portfolio, accuracy and SQLite store wired together,
// with stubbed market, prediction and sentiment providers.
package integration

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"signal-trader/internal/accuracy"
	"signal-trader/internal/config"
	"signal-trader/internal/errors"
	"signal-trader/internal/fusion"
	"signal-trader/internal/marketdata"
	"signal-trader/internal/models"
	"signal-trader/internal/notify"
	"signal-trader/internal/portfolio"
	"signal-trader/internal/risk"
	"signal-trader/internal/runner"
	"signal-trader/internal/store"
	"signal-trader/pkg/utils"
)

type stubMarket struct {
	mu      sync.Mutex
	quotes  map[string]float64
	history map[string][]models.Candle
}

func newStubMarket() *stubMarket {
	return &stubMarket{
		quotes:  make(map[string]float64),
		history: make(map[string][]models.Candle),
	}
}

func (m *stubMarket) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, ok := m.quotes[symbol]
	if !ok {
		return nil, errors.NewDataError("quote", symbol, "no stub quote", nil)
	}
	return &models.Quote{
		Symbol:      symbol,
		Price:       price,
		MarketState: models.MarketRegular,
		Timestamp:   time.Now(),
	}, nil
}

func (m *stubMarket) History(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.history[symbol]
	if !ok {
		return nil, errors.NewDataError("history", symbol, "no stub history", nil)
	}
	out := make([]models.Candle, len(h))
	copy(out, h)
	return out, nil
}

func (m *stubMarket) setQuote(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[symbol] = price
}

func (m *stubMarket) setHistory(symbol string, candles []models.Candle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[symbol] = candles
}

type stubPredictor struct {
	mu    sync.Mutex
	preds map[string]models.PricePrediction
}

func (p *stubPredictor) Name() string    { return "stub" }
func (p *stubPredictor) MinHistory() int { return 2 }

func (p *stubPredictor) Predict(ctx context.Context, symbol string, history []models.Candle) (*models.PricePrediction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pred, ok := p.preds[symbol]
	if !ok {
		return nil, errors.Wrapf(errors.ErrPredictionUnavailable, "no stub prediction for %s", symbol)
	}
	pred.Symbol = symbol
	return &pred, nil
}

func (p *stubPredictor) set(symbol string, current, predicted, confidence float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pred := models.PricePrediction{
		Symbol:         symbol,
		CurrentPrice:   current,
		PredictedPrice: predicted,
		Confidence:     confidence,
		ModelUsed:      "stub",
		CreatedAt:      time.Now(),
	}
	pred.Direction = models.DirectionFor(pred.ChangePct())
	p.preds[symbol] = pred
}

type stubNews struct{}

func (stubNews) Fetch(ctx context.Context, symbol string) ([]models.NewsItem, error) {
	return []models.NewsItem{{
		Title:       symbol + " posts record quarter",
		Source:      "Stub Wire",
		PublishedAt: time.Now(),
	}}, nil
}

type stubAnalyzer struct {
	mu      sync.Mutex
	results map[string]models.SentimentResult
}

func (a *stubAnalyzer) Name() string { return "stub" }

func (a *stubAnalyzer) Analyze(ctx context.Context, symbol string, items []models.NewsItem) (*models.SentimentResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	res, ok := a.results[symbol]
	if !ok {
		return nil, errors.Wrapf(errors.ErrSentimentUnavailable, "no stub sentiment for %s", symbol)
	}
	res.Symbol = symbol
	return &res, nil
}

func (a *stubAnalyzer) set(symbol string, label models.SentimentLabel, score, confidence float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[symbol] = models.SentimentResult{
		Symbol:      symbol,
		Label:       label,
		Score:       score,
		Confidence:  confidence,
		SampleCount: 1,
		Provider:    "stub",
		CreatedAt:   time.Now(),
	}
}

func integrationConfig() *config.Config {
	return &config.Config{
		Run: config.RunConfig{
			Symbols:           []string{"AAPL"},
			HistoryDays:       60,
			ValidationLagDays: 1,
		},
		Fusion: config.FusionConfig{
			PriceWeight:     0.6,
			SentimentWeight: 0.4,
			MinConfidence:   0.6,
			ActionThreshold: 0.3,
			StrongThreshold: 0.6,
		},
		Risk: config.RiskConfig{
			BaseSize:         0.03,
			MaxPositionSize:  0.05,
			MaxPortfolioRisk: 0.5,
			StopLossPct:      0.08,
			TakeProfitPct:    0.15,
			MinConfidence:    0.6,
		},
		Portfolio: config.PortfolioConfig{
			InitialCapital: 100000,
			RiskFreeRate:   0.02,
		},
		MarketData: config.MarketDataConfig{TimeoutSeconds: 5},
		// Disabled notifications must resolve to the no-op notifier.
		Notifications: config.NotificationConfig{Enabled: false},
	}
}

// stack bundles the shared fixtures for one test.
type stack struct {
	cfg      *config.Config
	store    store.Store
	market   *stubMarket
	pred     *stubPredictor
	analyzer *stubAnalyzer
}

func newStack(t *testing.T) *stack {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "trader.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return &stack{
		cfg:      integrationConfig(),
		store:    st,
		market:   newStubMarket(),
		pred:     &stubPredictor{preds: make(map[string]models.PricePrediction)},
		analyzer: &stubAnalyzer{results: make(map[string]models.SentimentResult)},
	}
}

// newRunner builds a fresh runner with a fresh portfolio over the shared
// store. State travels only through SQLite, as across real CLI invocations.
func (s *stack) newRunner(t *testing.T) *runner.Runner {
	t.Helper()
	engine, err := fusion.NewEngine(s.cfg.Fusion)
	if err != nil {
		t.Fatalf("fusion engine: %v", err)
	}
	riskMgr := risk.NewManager(s.cfg.Risk)
	return runner.New(runner.Deps{
		Config:    s.cfg,
		Store:     s.store,
		Market:    marketdata.NewCachedProvider(s.market, s.store),
		Predictor: s.pred,
		News:      stubNews{},
		Sentiment: s.analyzer,
		Fusion:    engine,
		Risk:      riskMgr,
		Portfolio: portfolio.New(s.cfg.Portfolio, riskMgr),
		Notifier:  notify.NewNotifier(s.cfg.Notifications),
	})
}

// dailyCandles builds one candle per close, ending today, oldest first.
func dailyCandles(symbol string, closes ...float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	now := time.Now()
	for i, c := range closes {
		candles[i] = models.Candle{
			Symbol: symbol,
			Date:   now.AddDate(0, 0, -(len(closes) - 1 - i)),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return candles
}

// TestDailyRunLifecycle drives two consecutive daily runs against one
// database: the first opens a position from a bullish signal, the second
// restores that position from the store and stops it out.
func TestDailyRunLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := newStack(t)

	// Day 1: strongly bullish prediction and sentiment at $100.
	s.market.setQuote("AAPL", 100)
	s.market.setHistory("AAPL", dailyCandles("AAPL", 96, 97, 98, 99, 100))
	s.pred.set("AAPL", 100, 103, 0.9)
	s.analyzer.set("AAPL", models.SentimentBullish, 0.8, 0.8)

	report1, err := s.newRunner(t).Run(ctx, nil)
	if err != nil {
		t.Fatalf("day 1 run: %v", err)
	}

	sig := report1.TradingSignals["AAPL"]
	if sig == nil || sig.Action != models.ActionBuy {
		t.Fatalf("day 1 signal = %+v, want BUY", sig)
	}

	// The position and its entry levels must be in the database.
	state, err := s.store.LoadPortfolio(ctx)
	if err != nil {
		t.Fatalf("load portfolio: %v", err)
	}
	if state == nil || len(state.Positions) != 1 {
		t.Fatalf("expected one persisted position, got %+v", state)
	}
	pos := state.Positions["AAPL"]
	if pos == nil || pos.Side != models.SideLong || pos.EntryPrice != 100 {
		t.Fatalf("persisted position = %+v", pos)
	}

	// The cached provider wrote the fetched history through to the store.
	cached, err := s.store.GetCandles(ctx, "AAPL", time.Now().AddDate(0, 0, -90))
	if err != nil || len(cached) == 0 {
		t.Fatalf("expected cached candles, got %d (err %v)", len(cached), err)
	}

	stored, err := s.store.GetRun(ctx, report1.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if stored.RunID != report1.RunID {
		t.Errorf("stored run ID = %s, want %s", stored.RunID, report1.RunID)
	}

	// Distinct run IDs need distinct seconds.
	time.Sleep(1100 * time.Millisecond)

	// Day 2: price gaps below the stop, prediction flat, sentiment neutral.
	s.market.setQuote("AAPL", 90)
	s.market.setHistory("AAPL", dailyCandles("AAPL", 97, 98, 99, 100, 90))
	s.pred.set("AAPL", 90, 90.05, 0.9)
	s.analyzer.set("AAPL", models.SentimentNeutral, 0, 0.6)

	report2, err := s.newRunner(t).Run(ctx, nil)
	if err != nil {
		t.Fatalf("day 2 run: %v", err)
	}
	if report2.RunID == report1.RunID {
		t.Fatalf("run IDs must differ, both %s", report1.RunID)
	}

	// The restored position was stopped out during mark-to-market.
	exited := false
	for _, alert := range report2.Alerts {
		if alert.Symbol == "AAPL" && alert.Kind == models.AlertExit {
			exited = true
		}
	}
	if !exited {
		t.Errorf("expected EXIT alert on day 2, got %+v", report2.Alerts)
	}

	// The flat day-2 view holds, so nothing reopened.
	state, err = s.store.LoadPortfolio(ctx)
	if err != nil {
		t.Fatalf("reload portfolio: %v", err)
	}
	if len(state.Positions) != 0 {
		t.Errorf("expected no open positions after stop, got %+v", state.Positions)
	}
	if state.CurrentCapital >= 100000 {
		t.Errorf("capital should reflect the realized loss, got %.2f", state.CurrentCapital)
	}
	if state.CurrentCapital < 99000 {
		t.Errorf("loss larger than the position can explain: %.2f", state.CurrentCapital)
	}

	// Ledger: one OPEN, one CLOSE with the stop reason and a negative PnL.
	trades, err := s.store.Trades(ctx, store.TradeFilter{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("trades: %v", err)
	}
	var opens, closes int
	for _, tr := range trades {
		switch tr.Type {
		case models.TradeOpen:
			opens++
		case models.TradeClose:
			closes++
			if tr.CloseReason != models.CloseStopLoss {
				t.Errorf("close reason = %s, want STOP_LOSS", tr.CloseReason)
			}
			if tr.PnL >= 0 {
				t.Errorf("stop-out PnL = %.2f, want negative", tr.PnL)
			}
		}
	}
	if opens != 1 || closes != 1 {
		t.Errorf("trades = %d open / %d close, want 1/1", opens, closes)
	}

	// Both days produced a stored signal for the symbol.
	signals, err := s.store.RecentSignals(ctx, "AAPL", 10)
	if err != nil {
		t.Fatalf("recent signals: %v", err)
	}
	if len(signals) != 2 {
		t.Errorf("stored signals = %d, want 2", len(signals))
	}

	if len(state.DailyValues) == 0 {
		t.Error("expected at least one daily snapshot")
	}
}

// TestValidationEvaluatesAgedPredictions seeds predictions old enough to
// have a realized close and checks the validate-then-summarize flow.
func TestValidationEvaluatesAgedPredictions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := newStack(t)

	predDate := utils.Midnight(time.Now())
	for i := 0; i < 3; i++ {
		predDate = utils.PrevTradingDay(predDate)
	}
	target := utils.AddTradingDays(predDate, 1)

	s.market.setHistory("AAPL", []models.Candle{
		{Symbol: "AAPL", Date: predDate, Close: 100},
		{Symbol: "AAPL", Date: target, Close: 105},
	})
	s.market.setHistory("MSFT", []models.Candle{
		{Symbol: "MSFT", Date: predDate, Close: 200},
		{Symbol: "MSFT", Date: target, Close: 210},
	})

	seed := []models.PredictionRecord{
		{Symbol: "AAPL", Date: utils.DateKey(predDate), CurrentPrice: 100, PredictedPrice: 103,
			Direction: models.DirectionUp, Confidence: 0.9, ModelUsed: "stub"},
		{Symbol: "MSFT", Date: utils.DateKey(predDate), CurrentPrice: 200, PredictedPrice: 195,
			Direction: models.DirectionDown, Confidence: 0.8, ModelUsed: "stub"},
		// Today's prediction is not due yet.
		{Symbol: "AAPL", Date: utils.DateKey(time.Now()), CurrentPrice: 90, PredictedPrice: 93,
			Direction: models.DirectionUp, Confidence: 0.7, ModelUsed: "stub"},
	}
	for i := range seed {
		if err := s.store.SavePrediction(ctx, &seed[i]); err != nil {
			t.Fatalf("seed prediction: %v", err)
		}
	}

	validator := accuracy.NewValidator(s.store, s.market)
	res, err := validator.Validate(ctx, 1)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.Checked != 2 {
		t.Errorf("checked = %d, want 2 (today's prediction excluded)", res.Checked)
	}
	if res.Evaluated != 2 || res.Pending != 0 {
		t.Errorf("evaluated = %d pending = %d, want 2/0", res.Evaluated, res.Pending)
	}
	if res.Correct != 1 {
		t.Errorf("correct = %d, want 1 (UP hit, DOWN missed)", res.Correct)
	}

	// A second pass finds nothing left to evaluate.
	res, err = validator.Validate(ctx, 1)
	if err != nil {
		t.Fatalf("second validate: %v", err)
	}
	if res.Evaluated != 0 {
		t.Errorf("re-evaluated %d predictions", res.Evaluated)
	}

	summary, err := validator.Summary(ctx, 30)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Evaluated != 2 || summary.Correct != 1 {
		t.Errorf("summary = %d evaluated / %d correct, want 2/1", summary.Evaluated, summary.Correct)
	}
	if m, ok := summary.ByModel["stub"]; !ok || m.Evaluated != 2 {
		t.Errorf("by-model rows = %+v", summary.ByModel)
	}
	if sa, ok := summary.BySymbol["AAPL"]; !ok || sa.Correct != 1 {
		t.Errorf("by-symbol rows = %+v", summary.BySymbol)
	}
}
