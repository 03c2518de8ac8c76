// Package journal persists analysis run records so past dashboard
// runs can be listed, inspected, and compared. Two backends are
// provided: a flat CSV file and SQLite.
package journal

import "time"

// RunRecord captures one completed analysis run.
type RunRecord struct {
	RunID       string
	Time        time.Time // when the run finished
	Symbols     string    // requested symbols, comma-joined
	RangeStart  time.Time
	RangeEnd    time.Time
	Granularity string
	Window      int // moving-average window used
	WithData    int // symbols that returned at least one bar
	Warnings    int // symbols whose fetch failed
	Elapsed     time.Duration
}

type Journal interface {
	RecordRun(RunRecord) error
	Close() error
}
