package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"signal-trader/internal/errors"
	"signal-trader/internal/models"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trader.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testState() *models.PortfolioState {
	opened := time.Date(2026, 8, 20, 16, 0, 0, 0, time.UTC)
	return &models.PortfolioState{
		InitialCapital: 100000,
		CurrentCapital: 100500,
		Positions: map[string]*models.Position{
			"AAPL": {
				Symbol:          "AAPL",
				Side:            models.SideLong,
				Quantity:        50,
				EntryPrice:      100,
				EntryValue:      5000,
				StopLossPrice:   92,
				TakeProfitPrice: 115,
				CurrentPrice:    104,
				UnrealizedPnL:   200,
				OpenedAt:        opened,
				UpdatedAt:       opened,
			},
		},
		TradeHistory: []*models.Trade{
			{ID: "T1_1", PositionID: "P_MSFT_1", Timestamp: opened.Add(-24 * time.Hour), Symbol: "MSFT",
				Type: models.TradeOpen, Side: models.SideLong, Quantity: 10, Price: 400, Value: 4000},
			{ID: "T1_2", PositionID: "P_MSFT_1", Timestamp: opened.Add(-2 * time.Hour), Symbol: "MSFT",
				Type: models.TradeClose, Side: models.SideLong, Quantity: 10, Price: 450, Value: 4500,
				PnL: 500, CloseReason: models.CloseTakeProfit},
			{ID: "T1_3", PositionID: "P_AAPL_2", Timestamp: opened, Symbol: "AAPL",
				Type: models.TradeOpen, Side: models.SideLong, Quantity: 50, Price: 100, Value: 5000},
		},
		DailyValues: []*models.DailySnapshot{
			{Date: "2026-08-19", TotalValue: 100000, Cash: 100000, PositionsValue: 0},
			{Date: "2026-08-20", TotalValue: 100700, Cash: 95500, PositionsValue: 5200, DailyReturnPct: 0.7, TotalReturnPct: 0.7},
		},
		UpdatedAt: opened,
	}
}

func TestLoadPortfolioEmptyDatabase(t *testing.T) {
	s := testStore(t)

	state, err := s.LoadPortfolio(context.Background())
	if err != nil {
		t.Fatalf("LoadPortfolio() error = %v", err)
	}
	if state != nil {
		t.Errorf("state = %+v, want nil on a fresh database", state)
	}
}

func TestSaveLoadPortfolioRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SavePortfolio(ctx, testState()); err != nil {
		t.Fatalf("SavePortfolio() error = %v", err)
	}

	got, err := s.LoadPortfolio(ctx)
	if err != nil {
		t.Fatalf("LoadPortfolio() error = %v", err)
	}
	if got == nil {
		t.Fatal("LoadPortfolio() = nil after save")
	}

	if got.InitialCapital != 100000 || got.CurrentCapital != 100500 {
		t.Errorf("capital = %v/%v, want 100000/100500", got.InitialCapital, got.CurrentCapital)
	}

	pos, ok := got.Positions["AAPL"]
	if !ok {
		t.Fatal("AAPL position missing after round trip")
	}
	if pos.Side != models.SideLong || pos.Quantity != 50 || pos.CurrentPrice != 104 {
		t.Errorf("position = %+v", pos)
	}
	if math.Abs(pos.UnrealizedPnL-200) > 1e-9 {
		t.Errorf("UnrealizedPnL = %v, want 200", pos.UnrealizedPnL)
	}

	if len(got.TradeHistory) != 3 {
		t.Fatalf("got %d trades, want 3", len(got.TradeHistory))
	}
	// Ledger order survives persistence.
	if got.TradeHistory[0].ID != "T1_1" || got.TradeHistory[2].ID != "T1_3" {
		t.Errorf("ledger order = %s..%s, want T1_1..T1_3", got.TradeHistory[0].ID, got.TradeHistory[2].ID)
	}
	if got.TradeHistory[1].CloseReason != models.CloseTakeProfit {
		t.Errorf("CloseReason = %s, want TAKE_PROFIT", got.TradeHistory[1].CloseReason)
	}

	if len(got.DailyValues) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(got.DailyValues))
	}
	if got.DailyValues[1].Date != "2026-08-20" || got.DailyValues[1].TotalValue != 100700 {
		t.Errorf("snapshot = %+v", got.DailyValues[1])
	}
}

func TestSavePortfolioReplacesState(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SavePortfolio(ctx, testState()); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// Second run: the position closed, a trade was appended and the same
	// date produced a new snapshot value.
	next := testState()
	next.CurrentCapital = 100900
	delete(next.Positions, "AAPL")
	next.TradeHistory = append(next.TradeHistory, &models.Trade{
		ID: "T1_4", PositionID: "P_AAPL_2", Timestamp: time.Now().UTC(), Symbol: "AAPL",
		Type: models.TradeClose, Side: models.SideLong, Quantity: 50, Price: 108, Value: 5400,
		PnL: 400, CloseReason: models.CloseManual,
	})
	next.DailyValues[1].TotalValue = 100900
	if err := s.SavePortfolio(ctx, next); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := s.LoadPortfolio(ctx)
	if err != nil {
		t.Fatalf("LoadPortfolio() error = %v", err)
	}
	if len(got.Positions) != 0 {
		t.Errorf("got %d positions, want 0 after close", len(got.Positions))
	}
	if len(got.TradeHistory) != 4 {
		t.Errorf("got %d trades, want 4", len(got.TradeHistory))
	}
	if len(got.DailyValues) != 2 {
		t.Errorf("got %d snapshots, want 2 (same date upserts)", len(got.DailyValues))
	}
	if got.DailyValues[1].TotalValue != 100900 {
		t.Errorf("snapshot value = %v, want 100900", got.DailyValues[1].TotalValue)
	}
}

func TestPredictionLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := &models.PredictionRecord{
		Symbol:         "AAPL",
		Date:           "2026-08-20",
		CurrentPrice:   100,
		PredictedPrice: 103,
		Direction:      models.DirectionUp,
		Confidence:     0.8,
		ModelUsed:      "momentum",
		IsFallback:     true,
	}
	if err := s.SavePrediction(ctx, rec); err != nil {
		t.Fatalf("SavePrediction() error = %v", err)
	}

	// Not yet due.
	pending, err := s.PendingPredictions(ctx, "2026-08-19")
	if err != nil {
		t.Fatalf("PendingPredictions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending before cutoff, want 0", len(pending))
	}

	pending, err = s.PendingPredictions(ctx, "2026-08-20")
	if err != nil {
		t.Fatalf("PendingPredictions() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want 1", len(pending))
	}
	got := pending[0]
	if got.Symbol != "AAPL" || got.Direction != models.DirectionUp || !got.IsFallback {
		t.Errorf("pending = %+v", got)
	}

	if err := s.MarkEvaluated(ctx, got.ID, 104, "2026-08-21", true); err != nil {
		t.Fatalf("MarkEvaluated() error = %v", err)
	}
	pending, _ = s.PendingPredictions(ctx, "2026-08-20")
	if len(pending) != 0 {
		t.Errorf("got %d pending after evaluation, want 0", len(pending))
	}

	summary, err := s.AccuracySummary(ctx, "2026-08-01")
	if err != nil {
		t.Fatalf("AccuracySummary() error = %v", err)
	}
	if summary.Total != 1 || summary.Evaluated != 1 || summary.Correct != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Accuracy != 1 {
		t.Errorf("Accuracy = %v, want 1", summary.Accuracy)
	}
	if acc := summary.ByModel["momentum"]; acc.Evaluated != 1 || acc.Correct != 1 {
		t.Errorf("ByModel = %+v", summary.ByModel)
	}
	if acc := summary.BySymbol["AAPL"]; acc.Evaluated != 1 || acc.Correct != 1 {
		t.Errorf("BySymbol = %+v", summary.BySymbol)
	}
}

func TestSavePredictionSameDayReplaces(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := &models.PredictionRecord{
		Symbol: "AAPL", Date: "2026-08-20", CurrentPrice: 100, PredictedPrice: 103,
		Direction: models.DirectionUp, Confidence: 0.8, ModelUsed: "remote",
	}
	if err := s.SavePrediction(ctx, rec); err != nil {
		t.Fatalf("first save: %v", err)
	}
	rec.PredictedPrice = 98
	rec.Direction = models.DirectionDown
	if err := s.SavePrediction(ctx, rec); err != nil {
		t.Fatalf("second save: %v", err)
	}

	pending, err := s.PendingPredictions(ctx, "2026-08-20")
	if err != nil {
		t.Fatalf("PendingPredictions() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want 1 (same day replaces)", len(pending))
	}
	if pending[0].Direction != models.DirectionDown || pending[0].PredictedPrice != 98 {
		t.Errorf("pending = %+v, want the replacement row", pending[0])
	}
}

func TestMarkEvaluatedUnknownID(t *testing.T) {
	s := testStore(t)
	err := s.MarkEvaluated(context.Background(), 9999, 1, "2026-08-21", false)
	if !errors.Is(err, errors.ErrDataNotFound) {
		t.Errorf("error = %v, want ErrDataNotFound", err)
	}
}

func TestSignalsRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	at := time.Date(2026, 8, 20, 17, 0, 0, 0, time.UTC)
	signals := []*models.TradingSignal{
		{Symbol: "AAPL", Action: models.ActionBuy, Strength: models.StrengthStrong,
			CombinedScore: 0.83, Confidence: 0.825, PriceSignal: 1, SentimentSignal: 0.8,
			Reasoning: "prediction UP", ModelUsed: "remote", GeneratedAt: at},
		{Symbol: "MSFT", Action: models.ActionHold, Strength: models.StrengthNeutral,
			Degraded: true, DegradedReason: "sentiment unavailable", GeneratedAt: at.Add(time.Second)},
	}
	if err := s.SaveSignals(ctx, "run-1", signals); err != nil {
		t.Fatalf("SaveSignals() error = %v", err)
	}

	got, err := s.RecentSignals(ctx, "AAPL", 10)
	if err != nil {
		t.Fatalf("RecentSignals() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d signals for AAPL, want 1", len(got))
	}
	if got[0].Action != models.ActionBuy || math.Abs(got[0].CombinedScore-0.83) > 1e-9 {
		t.Errorf("signal = %+v", got[0])
	}

	all, err := s.RecentSignals(ctx, "", 0)
	if err != nil {
		t.Fatalf("RecentSignals(all) error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d signals, want 2", len(all))
	}
	// Newest first.
	if all[0].Symbol != "MSFT" || !all[0].Degraded {
		t.Errorf("first signal = %+v, want the degraded MSFT hold", all[0])
	}
}

func TestRunReportRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	report := &models.RunReport{
		RunID:           "run-20260820-170001",
		Timestamp:       time.Date(2026, 8, 20, 17, 0, 1, 0, time.UTC),
		SymbolsAnalyzed: []string{"AAPL", "MSFT"},
		TradingSignals: map[string]*models.TradingSignal{
			"AAPL": {Symbol: "AAPL", Action: models.ActionBuy, Strength: models.StrengthModerate},
		},
	}
	report.AddAlert("MSFT", models.AlertNoSignal, "no provider produced data")

	if err := s.SaveRun(ctx, report); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := s.GetRun(ctx, report.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.RunID != report.RunID || len(got.SymbolsAnalyzed) != 2 {
		t.Errorf("report = %+v", got)
	}
	if got.TradingSignals["AAPL"].Action != models.ActionBuy {
		t.Errorf("signal action = %s, want BUY", got.TradingSignals["AAPL"].Action)
	}
	if len(got.Alerts) != 1 || got.Alerts[0].Kind != models.AlertNoSignal {
		t.Errorf("alerts = %+v", got.Alerts)
	}

	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, errors.ErrDataNotFound) {
		t.Errorf("GetRun(missing) error = %v, want ErrDataNotFound", err)
	}

	second := &models.RunReport{RunID: "run-20260821-170001", Timestamp: report.Timestamp.Add(24 * time.Hour)}
	if err := s.SaveRun(ctx, second); err != nil {
		t.Fatalf("SaveRun(second) error = %v", err)
	}
	recent, err := s.RecentRuns(ctx, 1)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(recent) != 1 || recent[0].RunID != second.RunID {
		t.Errorf("recent = %+v, want only the newest run", recent)
	}
}

func TestCandleCacheRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	candles := []models.Candle{
		{Symbol: "AAPL", Date: base, Open: 100, High: 102, Low: 99, Close: 101, Volume: 1000},
		{Symbol: "AAPL", Date: base.AddDate(0, 0, 1), Open: 101, High: 104, Low: 100, Close: 103, Volume: 1200},
		{Symbol: "MSFT", Date: base, Open: 400, High: 410, Low: 395, Close: 405, Volume: 800},
	}
	if err := s.SaveCandles(ctx, candles); err != nil {
		t.Fatalf("SaveCandles() error = %v", err)
	}

	got, err := s.GetCandles(ctx, "AAPL", base)
	if err != nil {
		t.Fatalf("GetCandles() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candles, want 2", len(got))
	}
	if !got[0].Date.Equal(base) || got[0].Close != 101 {
		t.Errorf("candle = %+v", got[0])
	}

	// Re-saving the same date replaces instead of duplicating.
	candles[0].Close = 102
	if err := s.SaveCandles(ctx, candles[:1]); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	got, _ = s.GetCandles(ctx, "AAPL", base)
	if len(got) != 2 || got[0].Close != 102 {
		t.Errorf("after re-save: %d candles, close %v; want 2 candles, close 102", len(got), got[0].Close)
	}

	// From filters out earlier dates.
	got, _ = s.GetCandles(ctx, "AAPL", base.AddDate(0, 0, 1))
	if len(got) != 1 {
		t.Errorf("got %d candles from day 2, want 1", len(got))
	}

	if err := s.SaveCandles(ctx, nil); err != nil {
		t.Errorf("SaveCandles(nil) error = %v, want nil", err)
	}
}

func TestTradesFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SavePortfolio(ctx, testState()); err != nil {
		t.Fatalf("save: %v", err)
	}

	trades, err := s.Trades(ctx, TradeFilter{Symbol: "MSFT"})
	if err != nil {
		t.Fatalf("Trades() error = %v", err)
	}
	if len(trades) != 2 {
		t.Errorf("got %d MSFT trades, want 2", len(trades))
	}

	closes, err := s.Trades(ctx, TradeFilter{Type: models.TradeClose})
	if err != nil {
		t.Fatalf("Trades(close) error = %v", err)
	}
	if len(closes) != 1 || closes[0].PnL != 500 {
		t.Errorf("closes = %+v", closes)
	}

	limited, err := s.Trades(ctx, TradeFilter{Limit: 1})
	if err != nil {
		t.Fatalf("Trades(limit) error = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "T1_1" {
		t.Errorf("limited = %+v, want just the first ledger row", limited)
	}
}
