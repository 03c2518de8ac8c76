package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, time, symbols, range_start, range_end, granularity, ma_window, with_data, warnings, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Time, r.Symbols, r.RangeStart, r.RangeEnd,
		r.Granularity, r.Window, r.WithData, r.Warnings, r.Elapsed.Milliseconds(),
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
