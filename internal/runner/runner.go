// Package runner orchestrates one daily batch: mark open positions to
// market, analyze each requested symbol through the prediction and
// sentiment chains, gate approved signals through risk checks, execute
// paper fills and persist the results. Symbols are processed strictly
// sequentially in configured order; one symbol's failure never aborts
// the batch.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signal-trader/internal/config"
	"signal-trader/internal/errors"
	"signal-trader/internal/fusion"
	"signal-trader/internal/logging"
	"signal-trader/internal/marketdata"
	"signal-trader/internal/metrics"
	"signal-trader/internal/models"
	"signal-trader/internal/notify"
	"signal-trader/internal/portfolio"
	"signal-trader/internal/predict"
	"signal-trader/internal/risk"
	"signal-trader/internal/sentiment"
	"signal-trader/internal/store"
	"signal-trader/pkg/utils"
)

// analysisTimeout bounds one prediction or sentiment provider call.
const analysisTimeout = 60 * time.Second

// NewsSource supplies recent headlines for a symbol.
type NewsSource interface {
	Fetch(ctx context.Context, symbol string) ([]models.NewsItem, error)
}

// Deps bundles the collaborators a Runner drives.
type Deps struct {
	Config    *config.Config
	Store     store.Store
	Market    marketdata.Provider
	Predictor predict.Predictor
	News      NewsSource
	Sentiment sentiment.Analyzer
	Fusion    *fusion.Engine
	Risk      *risk.Manager
	Portfolio *portfolio.Portfolio
	Notifier  notify.Notifier
}

// Runner executes daily analysis and paper-trading batches.
type Runner struct {
	cfg       *config.Config
	store     store.Store
	market    marketdata.Provider
	predictor predict.Predictor
	news      NewsSource
	analyzer  sentiment.Analyzer
	engine    *fusion.Engine
	riskMgr   *risk.Manager
	portfolio *portfolio.Portfolio
	notifier  notify.Notifier
	now       func() time.Time
}

// New creates a Runner from its dependencies.
func New(deps Deps) *Runner {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = &notify.NoOpNotifier{}
	}
	return &Runner{
		cfg:       deps.Config,
		store:     deps.Store,
		market:    deps.Market,
		predictor: deps.Predictor,
		news:      deps.News,
		analyzer:  deps.Sentiment,
		engine:    deps.Fusion,
		riskMgr:   deps.Risk,
		portfolio: deps.Portfolio,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Run executes one daily batch over symbols, falling back to the configured
// list when none are given. The returned report names every requested symbol
// in TradingSignals, in Alerts, or in both. ErrNoRunData is returned when no
// symbol produced any provider data at all.
func (r *Runner) Run(ctx context.Context, symbols []string) (*models.RunReport, error) {
	if len(symbols) == 0 {
		symbols = r.cfg.Run.Symbols
	}

	runID := newRunID(r.now())
	logger := logging.WithRunID(logging.FromContext(ctx), runID)
	ctx = logging.WithLogger(ctx, logger)
	logger.Info().Strs("symbols", symbols).Msg("daily run started")

	report := &models.RunReport{
		RunID:           runID,
		Timestamp:       r.now(),
		SymbolsAnalyzed: symbols,
		TradingSignals:  make(map[string]*models.TradingSignal, len(symbols)),
	}

	state, err := r.store.LoadPortfolio(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, errors.Wrap(err, "failed to load portfolio")
	}
	if state != nil {
		if err := r.portfolio.Restore(state); err != nil {
			metrics.RunsTotal.WithLabelValues("failed").Inc()
			return nil, errors.Wrap(err, "failed to restore portfolio")
		}
	}

	produced := r.markToMarket(ctx, report)

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			metrics.RunsTotal.WithLabelValues("failed").Inc()
			return report, ctx.Err()
		}
		if r.analyzeSymbol(ctx, symbol, report) {
			produced = true
		}
	}

	r.portfolio.CalculateDailyPerformance(r.now())

	if err := r.store.SavePortfolio(ctx, r.portfolio.Export()); err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		if nerr := r.notifier.SendError(ctx, err, "portfolio save"); nerr != nil {
			logger.Warn().Err(nerr).Msg("error notification failed")
		}
		return nil, errors.Wrap(err, "failed to save portfolio")
	}

	r.persistRun(ctx, report)

	perf := r.portfolio.Summary()
	metrics.PortfolioValue.Set(perf.TotalValue)

	if !produced {
		metrics.RunsTotal.WithLabelValues("no_data").Inc()
		err := errors.Wrap(errors.ErrNoRunData, runID)
		if nerr := r.notifier.SendError(ctx, err, "daily run"); nerr != nil {
			logger.Warn().Err(nerr).Msg("error notification failed")
		}
		return report, err
	}

	metrics.RunsTotal.WithLabelValues("ok").Inc()
	if err := r.notifier.SendRunSummary(ctx, report, perf); err != nil {
		logger.Warn().Err(err).Msg("run summary notification failed")
	}
	logger.Info().
		Int("signals", len(report.TradingSignals)).
		Int("alerts", len(report.Alerts)).
		Msg("daily run completed")
	return report, nil
}

// markToMarket quotes every open-position symbol, marks positions to the
// observed prices and closes the ones whose stop or take level was crossed.
// A missing quote skips that symbol's mark and records a STALE_DATA alert.
// Reports whether at least one quote was obtained.
func (r *Runner) markToMarket(ctx context.Context, report *models.RunReport) bool {
	positions := r.portfolio.Positions()
	if len(positions) == 0 {
		return false
	}

	logger := logging.FromContext(ctx)
	prices := make(map[string]float64, len(positions))
	for _, pos := range positions {
		qctx, cancel := r.marketCtx(ctx)
		quote, err := r.market.Quote(qctx, pos.Symbol)
		cancel()
		if err != nil {
			metrics.ProviderFailures.WithLabelValues("quote").Inc()
			logger.Warn().Str("symbol", pos.Symbol).Err(err).Msg("mark-to-market skipped")
			report.AddAlert(pos.Symbol, models.AlertStaleData, fmt.Sprintf("mark-to-market skipped: %v", err))
			continue
		}
		prices[pos.Symbol] = quote.Price
	}

	for _, exit := range r.portfolio.UpdatePositions(prices) {
		metrics.TradesTotal.WithLabelValues(exit.Symbol, string(exit.Side), string(exit.Type)).Inc()
		logging.LogTrade(logger, exit.Symbol, string(exit.Type), string(exit.Side), exit.Quantity, exit.Price)
		report.AddAlert(exit.Symbol, models.AlertExit, fmt.Sprintf("%s closed by %s @ %s (PnL %s)",
			exit.Side, exit.CloseReason, utils.FormatCurrency(exit.Price), utils.FormatPnL(exit.PnL)))
		if err := r.notifier.SendTrade(ctx, exit, nil); err != nil {
			logger.Warn().Err(err).Msg("trade notification failed")
		}
	}
	return len(prices) > 0
}

// analyzeSymbol runs the full pipeline for one symbol and reports whether
// any provider data was obtained. Without price history the sentiment chain
// is not consulted: a signal cannot be formed from sentiment alone.
func (r *Runner) analyzeSymbol(ctx context.Context, symbol string, report *models.RunReport) bool {
	logger := logging.WithSymbol(logging.FromContext(ctx), symbol)
	ctx = logging.WithLogger(ctx, logger)

	hctx, cancel := r.marketCtx(ctx)
	history, histErr := r.market.History(hctx, symbol, r.cfg.Run.HistoryDays)
	cancel()
	if len(history) == 0 {
		metrics.ProviderFailures.WithLabelValues("history").Inc()
		logger.Warn().Err(histErr).Msg("no price history")
		r.recordSignal(report, r.engine.NoSignal(symbol, "no price history"))
		msg := "no price history"
		if histErr != nil {
			msg = fmt.Sprintf("no price history: %v", histErr)
		}
		report.AddAlert(symbol, models.AlertNoSignal, msg)
		return false
	}
	if histErr != nil {
		logger.Warn().Err(histErr).Msg("using stale price history")
		report.AddAlert(symbol, models.AlertStaleData, histErr.Error())
	}

	pctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	pred, predErr := r.predictor.Predict(pctx, symbol, history)
	cancel()
	if predErr != nil {
		metrics.ProviderFailures.WithLabelValues("prediction").Inc()
		logger.Warn().Err(predErr).Msg("prediction unavailable")
	} else {
		r.savePrediction(ctx, pred, report)
	}

	var sent *models.SentimentResult
	var sentErr error
	sctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	items, newsErr := r.news.Fetch(sctx, symbol)
	if newsErr != nil {
		sentErr = newsErr
	} else {
		sent, sentErr = r.analyzer.Analyze(sctx, symbol, items)
	}
	cancel()
	if sentErr != nil {
		metrics.ProviderFailures.WithLabelValues("sentiment").Inc()
		logger.Warn().Err(sentErr).Msg("sentiment unavailable")
	}

	var signal *models.TradingSignal
	switch {
	case predErr == nil && sentErr == nil:
		signal = r.engine.Fuse(pred, sent)
	case predErr == nil:
		signal = r.engine.FusePriceOnly(pred, fmt.Sprintf("sentiment unavailable: %v", sentErr))
		report.AddAlert(symbol, models.AlertDegraded, fmt.Sprintf("price-only signal: %v", sentErr))
	default:
		signal = r.engine.NoSignal(symbol, "prediction unavailable")
		report.AddAlert(symbol, models.AlertNoSignal, fmt.Sprintf("prediction unavailable: %v", predErr))
	}
	r.recordSignal(report, signal)
	logging.LogSignal(logger, symbol, string(signal.Action), string(signal.Strength), signal.CombinedScore, signal.Confidence)

	// History was fetched, so data was produced even when nothing is tradable.
	if predErr != nil || !signal.Actionable() {
		return true
	}

	check := r.riskMgr.Evaluate(signal, r.portfolio.RiskState())
	if !check.Approved {
		logger.Info().Strs("violations", check.Violations).Msg("trade rejected")
		report.AddAlert(symbol, models.AlertRiskRejected, strings.Join(check.Violations, "; "))
		return true
	}

	trade, err := r.portfolio.ExecuteTrade(signal, pred.CurrentPrice)
	if err != nil {
		logger.Error().Err(err).Msg("trade execution failed")
		report.AddAlert(symbol, models.AlertError, fmt.Sprintf("trade execution failed: %v", err))
		return true
	}

	metrics.TradesTotal.WithLabelValues(trade.Symbol, string(trade.Side), string(trade.Type)).Inc()
	logging.LogTrade(logger, trade.Symbol, string(trade.Type), string(trade.Side), trade.Quantity, trade.Price)
	report.AddAlert(symbol, models.AlertTrade, fmt.Sprintf("%s %s %s @ %s",
		trade.Type, trade.Side, symbol, utils.FormatCurrency(trade.Price)))
	if err := r.notifier.SendTrade(ctx, trade, signal); err != nil {
		logger.Warn().Err(err).Msg("trade notification failed")
	}
	return true
}

// recordSignal files the signal in the report and counts it.
func (r *Runner) recordSignal(report *models.RunReport, signal *models.TradingSignal) {
	report.TradingSignals[signal.Symbol] = signal
	metrics.SignalsTotal.WithLabelValues(signal.Symbol, string(signal.Action)).Inc()
}

// savePrediction stores the prediction for later accuracy validation.
// A write failure is reported as an alert, not a run failure.
func (r *Runner) savePrediction(ctx context.Context, pred *models.PricePrediction, report *models.RunReport) {
	rec := &models.PredictionRecord{
		Symbol:         pred.Symbol,
		Date:           utils.DateKey(r.now()),
		CurrentPrice:   pred.CurrentPrice,
		PredictedPrice: pred.PredictedPrice,
		Direction:      pred.Direction,
		Confidence:     pred.Confidence,
		ModelUsed:      pred.ModelUsed,
		IsFallback:     pred.IsFallback,
		CreatedAt:      pred.CreatedAt,
	}
	if err := r.store.SavePrediction(ctx, rec); err != nil {
		log := logging.FromContext(ctx)
		log.Warn().Err(err).Msg("prediction history write failed")
		report.AddAlert(pred.Symbol, models.AlertError, fmt.Sprintf("prediction not persisted: %v", err))
	}
}

// persistRun stores the signal history and the run report. Neither write is
// fatal: the portfolio state was already saved.
func (r *Runner) persistRun(ctx context.Context, report *models.RunReport) {
	logger := logging.FromContext(ctx)

	signals := make([]*models.TradingSignal, 0, len(report.TradingSignals))
	for _, symbol := range report.SymbolsAnalyzed {
		if sig, ok := report.TradingSignals[symbol]; ok {
			signals = append(signals, sig)
		}
	}
	if err := r.store.SaveSignals(ctx, report.RunID, signals); err != nil {
		logger.Warn().Err(err).Msg("signal history write failed")
		report.AddAlert("", models.AlertError, fmt.Sprintf("signals not persisted: %v", err))
	}
	if err := r.store.SaveRun(ctx, report); err != nil {
		logger.Warn().Err(err).Msg("run report write failed")
	}
}

// marketCtx derives the context deadline for one market data call.
func (r *Runner) marketCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(r.cfg.MarketData.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func newRunID(t time.Time) string {
	return "run-" + t.UTC().Format("20060102-150405")
}
