// Package sqlite implements the engine's storage ports on SQLite: the
// definition catalog, bar history reads, and append-only result and
// detection writes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"analysis-enginev1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/analysis.db"
}

// Store is a single-connection SQLite store. The single writer connection
// serializes concurrent per-symbol commits.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and initializes the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol    TEXT    NOT NULL,
			timeframe TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			open      REAL    NOT NULL,
			high      REAL    NOT NULL,
			low       REAL    NOT NULL,
			close     REAL    NOT NULL,
			volume    REAL    NOT NULL DEFAULT 0,
			PRIMARY KEY (symbol, timeframe, ts)
		);

		CREATE TABLE IF NOT EXISTS indicator_definitions (
			name    TEXT PRIMARY KEY,
			impl    TEXT NOT NULL,
			params  TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS pattern_definitions (
			name                 TEXT PRIMARY KEY,
			impl                 TEXT NOT NULL,
			params               TEXT NOT NULL DEFAULT '{}',
			confidence_threshold REAL NOT NULL DEFAULT 0.6,
			timeframes           TEXT NOT NULL DEFAULT '',
			risk_level           TEXT NOT NULL DEFAULT 'medium',
			enabled              INTEGER NOT NULL DEFAULT 1
		);

		CREATE TABLE IF NOT EXISTS indicator_results (
			symbol     TEXT    NOT NULL,
			indicator  TEXT    NOT NULL,
			timeframe  TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			value      REAL,
			value_data TEXT    NOT NULL DEFAULT '{}',
			run_id     TEXT    NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			PRIMARY KEY (symbol, indicator, timeframe, ts)
		);

		CREATE TABLE IF NOT EXISTS pattern_detections (
			symbol     TEXT    NOT NULL,
			pattern    TEXT    NOT NULL,
			timeframe  TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			confidence REAL    NOT NULL,
			price      REAL    NOT NULL,
			volume     REAL    NOT NULL DEFAULT 0,
			detail     TEXT    NOT NULL DEFAULT '{}',
			run_id     TEXT    NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			PRIMARY KEY (symbol, pattern, timeframe, ts)
		);
	`)
	return err
}

// LoadBars reads bars for a symbol and timeframe within [start, end),
// ordered by timestamp ascending.
func (s *Store) LoadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]model.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timeframe, ts, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timeframe = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC
	`, symbol, timeframe, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var tsUnix int64
		if err := rows.Scan(&b.Symbol, &b.Timeframe, &tsUnix, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		b.TS = time.Unix(tsUnix, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// WriteBars inserts bars for ingest and test seeding.
func (s *Store) WriteBars(ctx context.Context, bars []model.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars (symbol, timeframe, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(b.Symbol, b.Timeframe, b.TS.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadEnabledIndicatorDefinitions returns all enabled indicator catalog rows.
func (s *Store) LoadEnabledIndicatorDefinitions(ctx context.Context) ([]model.IndicatorDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, impl, params FROM indicator_definitions
		WHERE enabled = 1
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query indicator_definitions: %w", err)
	}
	defer rows.Close()

	var defs []model.IndicatorDefinition
	for rows.Next() {
		var d model.IndicatorDefinition
		var rawParams string
		if err := rows.Scan(&d.Name, &d.Impl, &rawParams); err != nil {
			return nil, fmt.Errorf("sqlite scan indicator_definitions: %w", err)
		}
		d.Enabled = true
		d.Params, err = model.ParseParams(rawParams)
		if err != nil {
			return nil, fmt.Errorf("definition %s: bad params: %w", d.Name, err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// LoadEnabledPatternDefinitions returns enabled pattern catalog rows
// applicable to the given timeframe.
func (s *Store) LoadEnabledPatternDefinitions(ctx context.Context, timeframe string) ([]model.PatternDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, impl, params, confidence_threshold, timeframes, risk_level
		FROM pattern_definitions
		WHERE enabled = 1
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query pattern_definitions: %w", err)
	}
	defer rows.Close()

	var defs []model.PatternDefinition
	for rows.Next() {
		var d model.PatternDefinition
		var rawParams string
		if err := rows.Scan(&d.Name, &d.Impl, &rawParams, &d.ConfidenceThreshold, &d.Timeframes, &d.RiskLevel); err != nil {
			return nil, fmt.Errorf("sqlite scan pattern_definitions: %w", err)
		}
		d.Enabled = true
		d.Params, err = model.ParseParams(rawParams)
		if err != nil {
			return nil, fmt.Errorf("definition %s: bad params: %w", d.Name, err)
		}
		if d.AppliesTo(timeframe) {
			defs = append(defs, d)
		}
	}
	return defs, rows.Err()
}

// StoreIndicatorResult appends one indicator result row. The (symbol,
// indicator, timeframe, ts) key makes re-runs idempotent.
func (s *Store) StoreIndicatorResult(ctx context.Context, r *model.IndicatorResult) error {
	valueData, err := json.Marshal(r.ValueData)
	if err != nil {
		return fmt.Errorf("marshal value_data: %w", err)
	}

	var value sql.NullFloat64
	if r.Value != nil {
		value = sql.NullFloat64{Float64: *r.Value, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO indicator_results (symbol, indicator, timeframe, ts, value, value_data, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.Symbol, r.Indicator, r.Timeframe, r.CalculatedAt.Unix(), value, string(valueData), r.RunID)
	if err != nil {
		return fmt.Errorf("sqlite insert indicator_result: %w", err)
	}
	return nil
}

// StorePatternDetection appends one pattern detection row.
func (s *Store) StorePatternDetection(ctx context.Context, d *model.PatternDetection) error {
	detail, err := json.Marshal(d.Detail)
	if err != nil {
		return fmt.Errorf("marshal detail: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO pattern_detections (symbol, pattern, timeframe, ts, confidence, price, volume, detail, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.Symbol, d.Pattern, d.Timeframe, d.DetectedAt.Unix(), d.Confidence, d.Price, d.Volume, string(detail), d.RunID)
	if err != nil {
		return fmt.Errorf("sqlite insert pattern_detection: %w", err)
	}
	return nil
}

// SeedDefinitions inserts catalog rows if absent. Used by cmd/analyzer to
// bootstrap a fresh database; an existing catalog is left untouched.
func (s *Store) SeedDefinitions(ctx context.Context, inds []model.IndicatorDefinition, pats []model.PatternDefinition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, d := range inds {
		params, _ := json.Marshal(d.Params)
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO indicator_definitions (name, impl, params, enabled)
			VALUES (?, ?, ?, ?)
		`, d.Name, d.Impl, string(params), boolInt(d.Enabled)); err != nil {
			tx.Rollback()
			return err
		}
	}
	for _, d := range pats {
		params, _ := json.Marshal(d.Params)
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO pattern_definitions (name, impl, params, confidence_threshold, timeframes, risk_level, enabled)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, d.Name, d.Impl, string(params), d.ConfidenceThreshold, d.Timeframes, d.RiskLevel, boolInt(d.Enabled)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
