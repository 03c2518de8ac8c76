package journal

import (
	"database/sql"
	"fmt"
	"time"
)

const runColumns = `run_id, time, symbols, range_start, range_end, granularity, ma_window, with_data, warnings, elapsed_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var ms int64

	err := row.Scan(
		&rec.RunID,
		&rec.Time,
		&rec.Symbols,
		&rec.RangeStart,
		&rec.RangeEnd,
		&rec.Granularity,
		&rec.Window,
		&rec.WithData,
		&rec.Warnings,
		&ms,
	)
	if err != nil {
		return RunRecord{}, err
	}

	rec.Elapsed = time.Duration(ms) * time.Millisecond
	return rec, nil
}

// GetRun returns a single run record by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`
		SELECT `+runColumns+`
		FROM runs
		WHERE run_id = ?`, runID)

	rec, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("run %q not found", runID)
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRecent returns the most recent n runs, newest first.
func (j *SQLite) ListRecent(n int) ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+runColumns+`
		FROM runs
		ORDER BY time DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRuns(rows)
}

// ListRunsBetween returns runs whose time is within [start, end),
// oldest first.
func (j *SQLite) ListRunsBetween(start, end time.Time) ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT `+runColumns+`
		FROM runs
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRuns(rows)
}

func collectRuns(rows *sql.Rows) ([]RunRecord, error) {
	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
