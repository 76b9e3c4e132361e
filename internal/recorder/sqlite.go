package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"MarketScout/internal/model"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// researchMetricColumns pairs numeric research columns with their research_rows column.
var researchMetricColumns = [][2]string{
	{model.Col52WeekChange, "week52_change"},
	{model.ColForwardTargetDiff, "forward_target_diff"},
	{model.ColBeta, "beta"},
	{model.ColPriceToSales, "ps_ttm"},
	{model.ColTrailingPE, "trailing_pe"},
	{model.ColForwardPE, "forward_pe"},
	{model.ColReturnOnEquity, "return_on_equity"},
	{model.ColDebtToEquity, "debt_to_equity"},
	{model.ColEbitdaMargins, "ebitda_margins"},
}

// SQLiteRecorder persists research runs and fetch failures to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so reporting tools can read while a build writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS research_runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			source      TEXT,
			path        TEXT,
			symbols     INTEGER,
			row_count   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_research_runs_ts ON research_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS research_rows (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id              TEXT NOT NULL REFERENCES research_runs(id),
			symbol              TEXT NOT NULL,
			week52_change       REAL,
			forward_target_diff REAL,
			beta                REAL,
			ps_ttm              REAL,
			trailing_pe         REAL,
			forward_pe          REAL,
			return_on_equity    REAL,
			debt_to_equity      REAL,
			ebitda_margins      REAL,
			recommendation      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_research_rows_symbol ON research_rows(symbol)`,

		`CREATE TABLE IF NOT EXISTS fetch_failures (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT,
			dataset   TEXT,
			param     TEXT,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_failures_ts ON fetch_failures(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordFetchFailure(evt *FetchFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO fetch_failures
		(timestamp, symbol, dataset, param, error)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.Symbol, evt.Dataset, evt.Param, evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordResearch(run *ResearchRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rows := run.Table.Len()
	if _, err := tx.Exec(`INSERT INTO research_runs
		(id, started_at, finished_at, source, path, symbols, row_count)
		VALUES (?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.Source, run.Path, len(run.Symbols), rows,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	names := []string{"run_id", "symbol"}
	for _, pair := range researchMetricColumns {
		names = append(names, pair[1])
	}
	names = append(names, "recommendation")
	insert := fmt.Sprintf("INSERT INTO research_rows (%s) VALUES (?%s)",
		strings.Join(names, ", "), strings.Repeat(",?", len(names)-1))

	for i, symbol := range run.Table.Index {
		args := []any{run.ID, symbol}
		for _, pair := range researchMetricColumns {
			args = append(args, nullFloat(cell(run.Table, i, pair[0])))
		}
		rec := sql.NullString{}
		if v := cell(run.Table, i, model.ColRecommendation); !v.IsNull() {
			rec = sql.NullString{String: v.String(), Valid: true}
		}
		args = append(args, rec)

		if _, err := tx.Exec(insert, args...); err != nil {
			return fmt.Errorf("insert row %s: %w", symbol, err)
		}
	}
	return tx.Commit()
}

func cell(t *model.Table, i int, column string) model.Value {
	j := t.ColumnIndex(column)
	if j < 0 {
		return model.Null
	}
	return t.At(i, j)
}

func nullFloat(v model.Value) sql.NullFloat64 {
	f, ok := v.Float()
	return sql.NullFloat64{Float64: f, Valid: ok}
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
