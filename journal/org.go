package journal

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/marketdash/pkg/id"
)

var runOrgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"short": id.Short,
}

var runOrgTmpl = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

const RunOrgTemplate = `** Run: {{.Symbols}} ({{short .RunID}})
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:RECORDED:    [{{(orTime .Time).Format "2006-01-02 Mon 15:04"}}]
:SYMBOLS:     {{.Symbols}}
:RANGE:       {{.RangeStart.Format "2006-01-02"}} to {{.RangeEnd.Format "2006-01-02"}}
:GRANULARITY: {{.Granularity}}
:MA_WINDOW:   {{.Window}}
:WITH_DATA:   {{.WithData}}
:WARNINGS:    {{.Warnings}}
:ELAPSED:     {{.Elapsed}}
:END:

*** Observations

*** Next Actions
`

// FormatRunOrg renders one run record as an org-mode block suitable
// for pasting into a notes file.
func FormatRunOrg(r RunRecord) string {
	buf := new(bytes.Buffer)
	if err := runOrgTmpl.Execute(buf, r); err != nil {
		return ""
	}
	return buf.String()
}

// FormatRunsOrg renders several records, blank-line separated.
func FormatRunsOrg(rs []RunRecord) string {
	blocks := make([]string, 0, len(rs))
	for _, r := range rs {
		blocks = append(blocks, FormatRunOrg(r))
	}
	return strings.Join(blocks, "\n\n")
}
