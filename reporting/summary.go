package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sandarsh/moq-interop-runner/types"
)

// Totals aggregates a run for the summary footer.
type Totals struct {
	Total    int
	Passed   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// SummaryTable renders results as a table to w, styled by the run outcome.
func SummaryTable(w io.Writer, title string, results []*types.TestResult, totals Totals) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)

	t.AppendHeader(table.Row{"#", "Scenario", "Duration", "Status", "Detail"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Detail", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, r := range results {
		detail := ""
		switch r.Status {
		case types.TestStatusFail:
			detail = r.Message()
			if r.FailureKind != "" {
				detail = fmt.Sprintf("[%s] %s", r.FailureKind, detail)
			}
		case types.TestStatusSkip:
			detail = r.SkipReason
		}
		t.AppendRow(table.Row{
			i + 1,
			r.Scenario,
			formatDuration(r.Duration),
			statusString(r.Status),
			detail,
		})
	}

	overall := "PASS"
	switch {
	case totals.Failed > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
		overall = "FAIL"
	case totals.Skipped > 0:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{
		"",
		fmt.Sprintf("TOTAL %d (pass %d, fail %d, skip %d)", totals.Total, totals.Passed, totals.Failed, totals.Skipped),
		formatDuration(totals.Duration),
		overall,
		"",
	})
	t.Render()
}

func statusString(s types.TestStatus) string {
	switch s {
	case types.TestStatusPass:
		return "PASS"
	case types.TestStatusFail:
		return "FAIL"
	case types.TestStatusSkip:
		return "SKIP"
	default:
		return string(s)
	}
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
