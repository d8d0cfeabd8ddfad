package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/filmstats/internal/extract"
	"github.com/hyperifyio/filmstats/internal/source"
)

// previewRows is how many data rows the metadata summary shows.
const previewRows = 3

// Scrape fetches the source page, locates its target table, and overwrites
// metadata.txt with a short description of it. Nothing is written when the
// page has no target table.
func (a *App) Scrape(ctx context.Context) error {
	if err := a.ensureJobDir(); err != nil {
		return fmt.Errorf("job dir: %w", err)
	}
	body, err := source.Fetch(ctx, a.fetcher, a.cfg.SourceURL)
	if err != nil {
		return err
	}
	page, err := extract.ParsePage(body, a.cfg.Marker)
	if err != nil {
		return err
	}
	if len(page.Rows) == 0 {
		return fmt.Errorf("could not find the main data table on the page: %w", extract.ErrNoTable)
	}
	summary := metadataSummary(a.cfg.SourceURL, page)
	if err := os.WriteFile(a.paths.metadata(), []byte(summary), 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	log.Info().Str("out", a.paths.metadata()).Int("columns", len(page.Rows[0])).Msg("wrote metadata summary")
	return nil
}

func metadataSummary(url string, page extract.Page) string {
	header := page.Rows[0]
	data := page.Rows[1:]

	var b strings.Builder
	fmt.Fprintf(&b, "Data Source URL: %s\n", url)
	if page.Title != "" {
		fmt.Fprintf(&b, "Page Title: %s\n", page.Title)
	}
	fmt.Fprintf(&b, "Table Columns: %s\n", columnList(header))
	fmt.Fprintf(&b, "Data Rows: %s\n", humanize.Comma(int64(len(data))))
	fmt.Fprintf(&b, "\nFirst %d rows:\n", previewRows)

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	hr := table.Row{""}
	for _, h := range header {
		hr = append(hr, h)
	}
	t.AppendHeader(hr)
	for i, row := range data {
		if i == previewRows {
			break
		}
		r := table.Row{strconv.Itoa(i)}
		for _, c := range row {
			r = append(r, c)
		}
		t.AppendRow(r)
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

func columnList(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = strconv.Quote(c)
	}
	return "[" + strings.Join(q, ", ") + "]"
}
