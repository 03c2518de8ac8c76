package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	runs *csv.Writer
	rf   *os.File
}

var csvHeader = []string{
	"run_id", "time", "symbols", "range_start", "range_end",
	"granularity", "ma_window", "with_data", "warnings", "elapsed_ms",
}

// NewCSV opens an append-mode run journal at runsPath, creating it if
// needed. The header is written only when the file is new, so runs
// accumulate across process restarts.
func NewCSV(runsPath string) (*CSVJournal, error) {
	rf, err := os.OpenFile(runsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	info, err := rf.Stat()
	if err != nil {
		rf.Close()
		return nil, err
	}

	rw := csv.NewWriter(rf)
	if info.Size() == 0 {
		if err := rw.Write(csvHeader); err != nil {
			rf.Close()
			return nil, err
		}
		rw.Flush()
		if err := rw.Error(); err != nil {
			rf.Close()
			return nil, err
		}
	}

	return &CSVJournal{runs: rw, rf: rf}, nil
}

func (j *CSVJournal) RecordRun(r RunRecord) error {
	err := j.runs.Write([]string{
		r.RunID,
		r.Time.Format(time.RFC3339),
		r.Symbols,
		r.RangeStart.Format(time.RFC3339),
		r.RangeEnd.Format(time.RFC3339),
		r.Granularity,
		strconv.Itoa(r.Window),
		strconv.Itoa(r.WithData),
		strconv.Itoa(r.Warnings),
		strconv.FormatInt(r.Elapsed.Milliseconds(), 10),
	})
	if err != nil {
		return err
	}

	j.runs.Flush()
	return j.runs.Error()
}

func (j *CSVJournal) Close() error {
	j.runs.Flush()
	if err := j.runs.Error(); err != nil {
		return err
	}
	return j.rf.Close()
}
