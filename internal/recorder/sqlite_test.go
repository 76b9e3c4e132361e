package recorder

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"MarketScout/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "scout.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSQLiteRecorder_FetchFailure(t *testing.T) {
	r := openTestRecorder(t)

	require.NoError(t, r.RecordFetchFailure(&FetchFailure{
		Symbol: "AAPL", Dataset: "price", Param: "1d", Error: "boom",
	}))

	var symbol, dataset, msg string
	err := r.db.QueryRow(`SELECT symbol, dataset, error FROM fetch_failures`).Scan(&symbol, &dataset, &msg)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", symbol)
	assert.Equal(t, "price", dataset)
	assert.Equal(t, "boom", msg)
}

func TestSQLiteRecorder_Research(t *testing.T) {
	r := openTestRecorder(t)

	tb := model.NewTable("symbol", model.ResearchColumns...)
	tb.Set("AAPL", model.ColBeta, model.Number(1.25))
	tb.Set("AAPL", model.ColRecommendation, model.Text("buy"))
	tb.Set("MSFT", model.ColBeta, model.Number(0.9))

	now := time.Now()
	require.NoError(t, r.RecordResearch(&ResearchRun{
		ID:         "run-1",
		Source:     "watchlist",
		Path:       "/tmp/watchlist_research.csv",
		Symbols:    []string{"AAPL", "MSFT", "BAD"},
		Table:      tb,
		StartedAt:  now,
		FinishedAt: now,
	}))

	var symbols, rowCount int
	require.NoError(t, r.db.QueryRow(`SELECT symbols, row_count FROM research_runs WHERE id = ?`, "run-1").
		Scan(&symbols, &rowCount))
	assert.Equal(t, 3, symbols)
	assert.Equal(t, 2, rowCount)

	var beta, pe sql.NullFloat64
	var rec sql.NullString
	require.NoError(t, r.db.QueryRow(`SELECT beta, trailing_pe, recommendation FROM research_rows WHERE symbol = ?`, "AAPL").
		Scan(&beta, &pe, &rec))
	assert.Equal(t, 1.25, beta.Float64)
	assert.False(t, pe.Valid)
	assert.Equal(t, "buy", rec.String)

	require.NoError(t, r.db.QueryRow(`SELECT recommendation FROM research_rows WHERE symbol = ?`, "MSFT").Scan(&rec))
	assert.False(t, rec.Valid)
}

func TestSQLiteRecorder_ReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scout.db")
	r, err := NewSQLiteRecorder(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, r.RecordFetchFailure(&FetchFailure{Symbol: "X"}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM fetch_failures`).Scan(&n))
	assert.Equal(t, 1, n)
}
