package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"signal-trader/internal/errors"
	"signal-trader/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Portfolio capital, a single row
	CREATE TABLE IF NOT EXISTS portfolio (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		initial_capital REAL NOT NULL,
		current_capital REAL NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Open positions, rewritten on every save
	CREATE TABLE IF NOT EXISTS positions (
		symbol TEXT PRIMARY KEY,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		entry_price REAL NOT NULL,
		entry_value REAL NOT NULL,
		stop_loss_price REAL NOT NULL,
		take_profit_price REAL NOT NULL,
		current_price REAL NOT NULL,
		unrealized_pnl REAL NOT NULL,
		opened_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Append-only trade ledger
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		position_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		type TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity REAL NOT NULL,
		price REAL NOT NULL,
		value REAL NOT NULL,
		pnl REAL NOT NULL DEFAULT 0,
		close_reason TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Daily portfolio value history, one row per calendar date
	CREATE TABLE IF NOT EXISTS snapshots (
		date TEXT PRIMARY KEY,
		total_value REAL NOT NULL,
		cash REAL NOT NULL,
		positions_value REAL NOT NULL,
		daily_return_pct REAL NOT NULL,
		total_return_pct REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Predictions awaiting (or holding) accuracy validation
	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		date TEXT NOT NULL,
		current_price REAL NOT NULL,
		predicted_price REAL NOT NULL,
		direction TEXT NOT NULL,
		confidence REAL NOT NULL,
		model_used TEXT NOT NULL,
		is_fallback INTEGER NOT NULL DEFAULT 0,
		evaluated INTEGER NOT NULL DEFAULT 0,
		actual_price REAL,
		actual_date TEXT,
		correct INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, date)
	);

	-- Per-run signal history
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		strength TEXT NOT NULL,
		combined_score REAL NOT NULL,
		confidence REAL NOT NULL,
		price_signal REAL NOT NULL,
		sentiment_signal REAL NOT NULL,
		reasoning TEXT,
		model_used TEXT,
		is_fallback INTEGER NOT NULL DEFAULT 0,
		degraded INTEGER NOT NULL DEFAULT 0,
		degraded_reason TEXT,
		generated_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Run reports as JSON documents
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		report TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Daily candle cache
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		date DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, date)
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	CREATE INDEX IF NOT EXISTS idx_predictions_pending ON predictions(evaluated, date);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol);
	CREATE INDEX IF NOT EXISTS idx_signals_run ON signals(run_id);
	CREATE INDEX IF NOT EXISTS idx_candles_symbol_date ON candles(symbol, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Portfolio Methods
// ============================================================================

// SavePortfolio persists the full portfolio state in one transaction: the
// capital row is replaced, positions are rewritten, new ledger entries are
// appended and snapshots are upserted. Any failure rolls the whole save back.
func (s *SQLiteStore) SavePortfolio(ctx context.Context, state *models.PortfolioState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO portfolio (id, initial_capital, current_capital, updated_at)
		VALUES (1, ?, ?, ?)
	`, state.InitialCapital, state.CurrentCapital, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions`); err != nil {
		return fmt.Errorf("failed to clear positions: %w", err)
	}
	posStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (symbol, side, quantity, entry_price, entry_value,
			stop_loss_price, take_profit_price, current_price, unrealized_pnl, opened_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare position insert: %w", err)
	}
	defer posStmt.Close()
	for _, pos := range state.Positions {
		_, err := posStmt.ExecContext(ctx, pos.Symbol, pos.Side, pos.Quantity, pos.EntryPrice, pos.EntryValue,
			pos.StopLossPrice, pos.TakeProfitPrice, pos.CurrentPrice, pos.UnrealizedPnL, pos.OpenedAt, pos.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert position: %w", err)
		}
	}

	// The ledger is append-only: rows already stored keep their place.
	tradeStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO trades (id, position_id, timestamp, symbol, type, side, quantity, price, value, pnl, close_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare trade insert: %w", err)
	}
	defer tradeStmt.Close()
	for _, t := range state.TradeHistory {
		_, err := tradeStmt.ExecContext(ctx, t.ID, t.PositionID, t.Timestamp, t.Symbol, t.Type, t.Side,
			t.Quantity, t.Price, t.Value, t.PnL, string(t.CloseReason))
		if err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}
	}

	snapStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO snapshots (date, total_value, cash, positions_value, daily_return_pct, total_return_pct)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer snapStmt.Close()
	for _, snap := range state.DailyValues {
		_, err := snapStmt.ExecContext(ctx, snap.Date, snap.TotalValue, snap.Cash, snap.PositionsValue,
			snap.DailyReturnPct, snap.TotalReturnPct)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadPortfolio reassembles the persisted portfolio state. A database that
// has never seen a save returns (nil, nil) so the caller can start fresh.
func (s *SQLiteStore) LoadPortfolio(ctx context.Context) (*models.PortfolioState, error) {
	state := &models.PortfolioState{Positions: make(map[string]*models.Position)}

	err := s.db.QueryRowContext(ctx, `
		SELECT initial_capital, current_capital, updated_at FROM portfolio WHERE id = 1
	`).Scan(&state.InitialCapital, &state.CurrentCapital, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, side, quantity, entry_price, entry_value, stop_loss_price,
			take_profit_price, current_price, unrealized_pnl, opened_at, updated_at
		FROM positions
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pos models.Position
		if err := rows.Scan(&pos.Symbol, &pos.Side, &pos.Quantity, &pos.EntryPrice, &pos.EntryValue,
			&pos.StopLossPrice, &pos.TakeProfitPrice, &pos.CurrentPrice, &pos.UnrealizedPnL,
			&pos.OpenedAt, &pos.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		state.Positions[pos.Symbol] = &pos
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	trades, err := s.Trades(ctx, TradeFilter{})
	if err != nil {
		return nil, err
	}
	state.TradeHistory = make([]*models.Trade, len(trades))
	for i := range trades {
		state.TradeHistory[i] = &trades[i]
	}

	snapRows, err := s.db.QueryContext(ctx, `
		SELECT date, total_value, cash, positions_value, daily_return_pct, total_return_pct
		FROM snapshots ORDER BY date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer snapRows.Close()
	for snapRows.Next() {
		var snap models.DailySnapshot
		if err := snapRows.Scan(&snap.Date, &snap.TotalValue, &snap.Cash, &snap.PositionsValue,
			&snap.DailyReturnPct, &snap.TotalReturnPct); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		state.DailyValues = append(state.DailyValues, &snap)
	}
	if err := snapRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return state, nil
}

// ============================================================================
// Prediction Methods
// ============================================================================

// SavePrediction stores a prediction for later validation. Re-running the
// same symbol and date replaces the earlier row and resets its evaluation.
func (s *SQLiteStore) SavePrediction(ctx context.Context, rec *models.PredictionRecord) error {
	isFallback := 0
	if rec.IsFallback {
		isFallback = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO predictions (symbol, date, current_price, predicted_price, direction, confidence, model_used, is_fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Symbol, rec.Date, rec.CurrentPrice, rec.PredictedPrice, rec.Direction, rec.Confidence, rec.ModelUsed, isFallback)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

// PendingPredictions returns unevaluated predictions dated on or before
// cutoffDate, oldest first.
func (s *SQLiteStore) PendingPredictions(ctx context.Context, cutoffDate string) ([]models.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, date, current_price, predicted_price, direction, confidence, model_used, is_fallback, created_at
		FROM predictions
		WHERE evaluated = 0 AND date <= ?
		ORDER BY date ASC, symbol ASC
	`, cutoffDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending predictions: %w", err)
	}
	defer rows.Close()

	var records []models.PredictionRecord
	for rows.Next() {
		var rec models.PredictionRecord
		var isFallback int
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Date, &rec.CurrentPrice, &rec.PredictedPrice,
			&rec.Direction, &rec.Confidence, &rec.ModelUsed, &isFallback, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		rec.IsFallback = isFallback == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkEvaluated records a prediction's realized outcome.
func (s *SQLiteStore) MarkEvaluated(ctx context.Context, id int64, actualPrice float64, actualDate string, correct bool) error {
	correctInt := 0
	if correct {
		correctInt = 1
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE predictions SET evaluated = 1, actual_price = ?, actual_date = ?, correct = ?
		WHERE id = ?
	`, actualPrice, actualDate, correctInt, id)
	if err != nil {
		return fmt.Errorf("failed to mark prediction evaluated: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(errors.ErrDataNotFound, "prediction %d", id)
	}
	return nil
}

// AccuracySummary aggregates validation results for predictions dated on or
// after sinceDate.
func (s *SQLiteStore) AccuracySummary(ctx context.Context, sinceDate string) (*models.AccuracySummary, error) {
	summary := &models.AccuracySummary{
		ByModel:  make(map[string]models.ModelAccuracy),
		BySymbol: make(map[string]models.SymbolAccuracy),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(evaluated), 0),
			COALESCE(SUM(CASE WHEN evaluated = 1 AND correct = 1 THEN 1 ELSE 0 END), 0)
		FROM predictions WHERE date >= ?
	`, sinceDate).Scan(&summary.Total, &summary.Evaluated, &summary.Correct)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate accuracy: %w", err)
	}
	if summary.Evaluated > 0 {
		summary.Accuracy = float64(summary.Correct) / float64(summary.Evaluated)
	}

	modelRows, err := s.db.QueryContext(ctx, `
		SELECT model_used, COUNT(*), SUM(CASE WHEN correct = 1 THEN 1 ELSE 0 END)
		FROM predictions WHERE date >= ? AND evaluated = 1
		GROUP BY model_used
	`, sinceDate)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate accuracy by model: %w", err)
	}
	defer modelRows.Close()
	for modelRows.Next() {
		var acc models.ModelAccuracy
		if err := modelRows.Scan(&acc.Model, &acc.Evaluated, &acc.Correct); err != nil {
			return nil, fmt.Errorf("failed to scan model accuracy: %w", err)
		}
		if acc.Evaluated > 0 {
			acc.Accuracy = float64(acc.Correct) / float64(acc.Evaluated)
		}
		summary.ByModel[acc.Model] = acc
	}
	if err := modelRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating model accuracy: %w", err)
	}

	symbolRows, err := s.db.QueryContext(ctx, `
		SELECT symbol, COUNT(*), SUM(CASE WHEN correct = 1 THEN 1 ELSE 0 END)
		FROM predictions WHERE date >= ? AND evaluated = 1
		GROUP BY symbol
	`, sinceDate)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate accuracy by symbol: %w", err)
	}
	defer symbolRows.Close()
	for symbolRows.Next() {
		var acc models.SymbolAccuracy
		if err := symbolRows.Scan(&acc.Symbol, &acc.Evaluated, &acc.Correct); err != nil {
			return nil, fmt.Errorf("failed to scan symbol accuracy: %w", err)
		}
		if acc.Evaluated > 0 {
			acc.Accuracy = float64(acc.Correct) / float64(acc.Evaluated)
		}
		summary.BySymbol[acc.Symbol] = acc
	}
	return summary, symbolRows.Err()
}

// ============================================================================
// Signal Methods
// ============================================================================

// SaveSignals stores the signals produced by one run.
func (s *SQLiteStore) SaveSignals(ctx context.Context, runID string, signals []*models.TradingSignal) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (run_id, symbol, action, strength, combined_score, confidence,
			price_signal, sentiment_signal, reasoning, model_used, is_fallback, degraded, degraded_reason, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare signal insert: %w", err)
	}
	defer stmt.Close()

	for _, sig := range signals {
		isFallback, degraded := 0, 0
		if sig.IsFallback {
			isFallback = 1
		}
		if sig.Degraded {
			degraded = 1
		}
		_, err := stmt.ExecContext(ctx, runID, sig.Symbol, sig.Action, sig.Strength, sig.CombinedScore,
			sig.Confidence, sig.PriceSignal, sig.SentimentSignal, sig.Reasoning, sig.ModelUsed,
			isFallback, degraded, sig.DegradedReason, sig.GeneratedAt)
		if err != nil {
			return fmt.Errorf("failed to insert signal: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RecentSignals returns the latest stored signals for a symbol, newest first.
func (s *SQLiteStore) RecentSignals(ctx context.Context, symbol string, limit int) ([]models.TradingSignal, error) {
	query := `
		SELECT symbol, action, strength, combined_score, confidence, price_signal,
			sentiment_signal, reasoning, model_used, is_fallback, degraded, degraded_reason, generated_at
		FROM signals WHERE 1=1`
	args := []interface{}{}

	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY generated_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []models.TradingSignal
	for rows.Next() {
		var sig models.TradingSignal
		var isFallback, degraded int
		if err := rows.Scan(&sig.Symbol, &sig.Action, &sig.Strength, &sig.CombinedScore, &sig.Confidence,
			&sig.PriceSignal, &sig.SentimentSignal, &sig.Reasoning, &sig.ModelUsed,
			&isFallback, &degraded, &sig.DegradedReason, &sig.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		sig.IsFallback = isFallback == 1
		sig.Degraded = degraded == 1
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// ============================================================================
// Run Report Methods
// ============================================================================

// SaveRun stores a run report as a JSON document.
func (s *SQLiteStore) SaveRun(ctx context.Context, report *models.RunReport) error {
	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (run_id, timestamp, report) VALUES (?, ?, ?)
	`, report.RunID, report.Timestamp, string(doc))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun retrieves one run report by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*models.RunReport, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE run_id = ?`, runID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrDataNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var report models.RunReport
	if err := json.Unmarshal([]byte(doc), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run report: %w", err)
	}
	return &report, nil
}

// RecentRuns returns the latest run reports, newest first.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]models.RunReport, error) {
	query := `SELECT report FROM runs ORDER BY timestamp DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var reports []models.RunReport
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var report models.RunReport
		if err := json.Unmarshal([]byte(doc), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// ============================================================================
// Candle Methods
// ============================================================================

// SaveCandles upserts daily candles into the cache.
func (s *SQLiteStore) SaveCandles(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare candle insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, c.Symbol, c.Date, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert candle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetCandles returns cached candles for symbol dated on or after from,
// oldest first.
func (s *SQLiteStore) GetCandles(ctx context.Context, symbol string, from time.Time) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC
	`, symbol, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.Date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// ============================================================================
// Trade Ledger Methods
// ============================================================================

// Trades queries the ledger, oldest first.
func (s *SQLiteStore) Trades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := `SELECT id, position_id, timestamp, symbol, type, side, quantity, price, value, pnl, close_reason
		FROM trades WHERE 1=1`
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var closeReason string
		if err := rows.Scan(&t.ID, &t.PositionID, &t.Timestamp, &t.Symbol, &t.Type, &t.Side,
			&t.Quantity, &t.Price, &t.Value, &t.PnL, &closeReason); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.CloseReason = models.CloseReason(closeReason)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
