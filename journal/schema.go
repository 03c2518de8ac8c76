// journal/schema.go
package journal

// ma_window instead of window: WINDOW is reserved in SQLite 3.25+.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	symbols TEXT NOT NULL,
	range_start DATETIME NOT NULL,
	range_end DATETIME NOT NULL,
	granularity TEXT NOT NULL,
	ma_window INTEGER NOT NULL,
	with_data INTEGER NOT NULL,
	warnings INTEGER NOT NULL,
	elapsed_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_time ON runs(time);
`
