package app

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hyperifyio/filmstats/internal/chart"
)

// SummaryTable renders the outcome of a run for the console.
func SummaryTable(rep Report) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Question", "Answer"})
	t.AppendRow(table.Row{"Source", rep.Source})
	t.AppendRow(table.Row{"Films", humanize.Comma(int64(rep.Films))})
	if !rep.Result.OK() {
		t.AppendRow(table.Row{"Status", rep.Result.Failure})
		return t.Render()
	}
	a := rep.Result.Answers
	chartCell := humanize.Bytes(uint64(len(a.Chart))) + " data URI"
	if a.Chart == chart.Placeholder {
		chartCell = a.Chart
	}
	t.AppendRows([]table.Row{
		{"Count", strconv.Itoa(a.Count)},
		{"Earliest", a.Earliest},
		{"Correlation", strconv.FormatFloat(a.Correlation, 'f', 6, 64)},
		{"Chart", chartCell},
	})
	return t.Render()
}
