// Package films projects raw table rows into typed film records.
package films

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Film is one typed row of the highest-grossing films table.
type Film struct {
	Rank  int     `json:"rank"`
	Peak  int     `json:"peak"`
	Title string  `json:"title"`
	Gross float64 `json:"gross"`
	Year  int     `json:"year"`
}

// ErrNoRecords is returned when no row survives projection.
var ErrNoRecords = errors.New("no film records survived cleaning")

// Column labels looked up in the lower-cased header row.
const (
	LabelRank  = "rank"
	LabelPeak  = "peak"
	LabelTitle = "title"
	LabelGross = "worldwide gross"
	LabelYear  = "year"
)

// grossLabels are accepted spellings of the gross column, in preference order.
var grossLabels = []string{LabelGross, "worldwide gross (2024 $)", "gross"}

// ColumnError reports an expected column that the header does not carry.
type ColumnError struct {
	Label  string
	Header []string
	// Suggestion is the closest header label, empty when nothing is close.
	Suggestion string
}

func (e *ColumnError) Error() string {
	msg := fmt.Sprintf("missing expected column %q in header %q", e.Label, e.Header)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (closest: %q)", e.Suggestion)
	}
	return msg
}

// Columns holds the header index of each projected field.
type Columns struct {
	Rank, Peak, Title, Gross, Year int
}

var lower = cases.Lower(language.Und)

func normalizeLabel(s string) string {
	return strings.TrimSpace(lower.String(norm.NFKC.String(s)))
}

// LookupColumns resolves every expected label against header. A missing
// label is a *ColumnError; no index is ever guessed.
func LookupColumns(header []string) (Columns, error) {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = normalizeLabel(h)
	}
	find := func(labels ...string) (int, error) {
		for _, l := range labels {
			for i, h := range names {
				if h == l {
					return i, nil
				}
			}
		}
		return -1, &ColumnError{Label: labels[0], Header: names, Suggestion: closest(labels[0], names)}
	}

	var c Columns
	var err error
	if c.Rank, err = find(LabelRank); err != nil {
		return c, err
	}
	if c.Peak, err = find(LabelPeak); err != nil {
		return c, err
	}
	if c.Title, err = find(LabelTitle); err != nil {
		return c, err
	}
	if c.Gross, err = find(grossLabels...); err != nil {
		return c, err
	}
	if c.Year, err = find(LabelYear); err != nil {
		return c, err
	}
	return c, nil
}

// closest returns the nearest header label by edit distance, allowing one
// edit per four characters of label (at least one).
func closest(label string, header []string) string {
	limit := len(label) / 4
	if limit < 1 {
		limit = 1
	}
	best, bestDist := "", limit+1
	for _, h := range header {
		if d := matchr.Levenshtein(label, h); d < bestDist {
			best, bestDist = h, d
		}
	}
	return best
}

var (
	citationRe   = regexp.MustCompile(`\[[0-9]+\]`)
	nonNumericRe = regexp.MustCompile(`[^0-9.]`)
	yearRe       = regexp.MustCompile(`\d{4}`)
)

// ParseGross drops citation markers, keeps only digits and decimal points,
// and parses what is left.
func ParseGross(s string) (float64, error) {
	v, err := strconv.ParseFloat(nonNumericRe.ReplaceAllString(citationRe.ReplaceAllString(s, ""), ""), 64)
	if err != nil {
		return 0, fmt.Errorf("gross %q: %w", s, err)
	}
	return v, nil
}

// ParseYear returns the first four-digit run in s.
func ParseYear(s string) (int, error) {
	m := yearRe.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("year %q: no four-digit run", s)
	}
	return strconv.Atoi(m)
}

// ParseRow projects one row through c.
func ParseRow(row []string, c Columns) (Film, error) {
	for _, i := range []int{c.Rank, c.Peak, c.Title, c.Gross, c.Year} {
		if i < 0 || i >= len(row) {
			return Film{}, fmt.Errorf("row has %d fields, need index %d", len(row), i)
		}
	}
	gross, err := ParseGross(row[c.Gross])
	if err != nil {
		return Film{}, err
	}
	year, err := ParseYear(row[c.Year])
	if err != nil {
		return Film{}, err
	}
	rank, err := strconv.Atoi(strings.TrimSpace(row[c.Rank]))
	if err != nil {
		return Film{}, fmt.Errorf("rank: %w", err)
	}
	peak, err := strconv.Atoi(strings.TrimSpace(row[c.Peak]))
	if err != nil {
		return Film{}, fmt.Errorf("peak: %w", err)
	}
	return Film{Rank: rank, Peak: peak, Title: row[c.Title], Gross: gross, Year: year}, nil
}

// FromRows treats rows[0] as the header and projects the rest, dropping
// rows that fail to parse. Order of surviving rows is preserved.
func FromRows(rows [][]string) ([]Film, error) {
	if len(rows) == 0 {
		return nil, ErrNoRecords
	}
	cols, err := LookupColumns(rows[0])
	if err != nil {
		return nil, err
	}
	out := make([]Film, 0, len(rows)-1)
	for i, row := range rows[1:] {
		f, err := ParseRow(row, cols)
		if err != nil {
			log.Debug().Err(err).Int("row", i+1).Msg("skipping malformed row")
			continue
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, ErrNoRecords
	}
	log.Debug().Int("kept", len(out)).Int("dropped", len(rows)-1-len(out)).Msg("projected film rows")
	return out, nil
}
