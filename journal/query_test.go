package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRun(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	expected := sampleRun()
	require.NoError(t, j.RecordRun(expected))

	actual, err := j.GetRun(expected.RunID)
	require.NoError(t, err)

	assert.Equal(t, expected.RunID, actual.RunID)
	assert.True(t, actual.Time.Equal(expected.Time))
	assert.Equal(t, expected.Symbols, actual.Symbols)
	assert.True(t, actual.RangeStart.Equal(expected.RangeStart))
	assert.True(t, actual.RangeEnd.Equal(expected.RangeEnd))
	assert.Equal(t, expected.Granularity, actual.Granularity)
	assert.Equal(t, expected.Window, actual.Window)
	assert.Equal(t, expected.WithData, actual.WithData)
	assert.Equal(t, expected.Warnings, actual.Warnings)
	assert.Equal(t, expected.Elapsed, actual.Elapsed)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	_, err := j.GetRun("nonexistent")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func runAt(id string, ts time.Time) RunRecord {
	r := sampleRun()
	r.RunID = id
	r.Time = ts
	return r
}

func TestListRecent(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// Insert out of chronological order
	require.NoError(t, j.RecordRun(runAt("R2", base.Add(2*time.Hour))))
	require.NoError(t, j.RecordRun(runAt("R1", base.Add(1*time.Hour))))
	require.NoError(t, j.RecordRun(runAt("R3", base.Add(3*time.Hour))))

	runs, err := j.ListRecent(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "R3", runs[0].RunID, "newest first")
	assert.Equal(t, "R2", runs[1].RunID)
}

func TestListRecentEmpty(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	runs, err := j.ListRecent(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListRunsBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordRun(runAt("R1", base.Add(1*time.Hour))))
	require.NoError(t, j.RecordRun(runAt("R2", base.Add(5*time.Hour))))
	require.NoError(t, j.RecordRun(runAt("R3", base.Add(10*time.Hour))))

	runs, err := j.ListRunsBetween(base.Add(3*time.Hour), base.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Oldest first
	assert.Equal(t, "R2", runs[0].RunID)
	assert.Equal(t, "R3", runs[1].RunID)
}

func TestListRunsBetweenBoundaryInclusive(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	ts := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordRun(runAt("R1", ts)))

	// Start exactly at the run time is included
	runs, err := j.ListRunsBetween(ts, ts.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestListRunsBetweenBoundaryExclusive(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	ts := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordRun(runAt("R1", ts)))

	// End exactly at the run time is excluded
	runs, err := j.ListRunsBetween(ts.Add(-time.Hour), ts)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
