package journal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRunOrg(t *testing.T) {
	t.Parallel()

	result := FormatRunOrg(sampleRun())

	assert.Contains(t, result, "** Run: AAPL,MSFT (01HX3Y5F)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":RUN_ID:      01HX3Y5FZK8QNXW2V9J4T6B7C8")
	assert.Contains(t, result, ":SYMBOLS:     AAPL,MSFT")
	assert.Contains(t, result, ":RANGE:       2024-01-02 to 2024-05-31")
	assert.Contains(t, result, ":GRANULARITY: 1Day")
	assert.Contains(t, result, ":MA_WINDOW:   20")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "*** Observations")
	assert.Contains(t, result, "*** Next Actions")
}

func TestFormatRunsOrg(t *testing.T) {
	t.Parallel()

	second := sampleRun()
	second.RunID = "01HX3Y5FZK8QNXW2V9J4T6B7C9"
	second.Symbols = "SPY"

	result := FormatRunsOrg([]RunRecord{sampleRun(), second})

	assert.Contains(t, result, "AAPL,MSFT")
	assert.Contains(t, result, "SPY")
	assert.Equal(t, 2, strings.Count(result, ":PROPERTIES:"))
}

func TestFormatRunsOrgEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FormatRunsOrg(nil))
}
