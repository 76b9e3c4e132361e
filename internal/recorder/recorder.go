package recorder

import (
	"time"

	"MarketScout/internal/model"
)

// FetchFailure is a provider call that produced no data for a key.
type FetchFailure struct {
	Symbol  string
	Dataset string // "price", "fundamentals", "quote", "research"
	Param   string
	Error   string
}

// ResearchRun describes one research table build.
type ResearchRun struct {
	ID         string
	Source     string
	Path       string
	Symbols    []string
	Table      *model.Table
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder persists fetch history for later analysis.
type Recorder interface {
	RecordFetchFailure(evt *FetchFailure) error
	RecordResearch(run *ResearchRun) error
	Close() error
}
