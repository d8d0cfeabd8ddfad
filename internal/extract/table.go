package extract

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// DefaultMarker is the class token that identifies the target table.
const DefaultMarker = "wikitable"

var (
	// ErrNoTable is returned when no table carrying the marker class was found.
	ErrNoTable = errors.New("no table with the marker class found")
	// ErrTooFewRows is returned when the target table lacks a header plus one data row.
	ErrTooFewRows = errors.New("table has fewer than 2 rows")
)

var citationRe = regexp.MustCompile(`\[[0-9]+\]`)

// CleanCell strips bracketed numeric citation markers and surrounding whitespace.
func CleanCell(s string) string {
	return strings.TrimSpace(citationRe.ReplaceAllString(s, ""))
}

type state int

const (
	stateIdle state = iota
	stateInTable
	stateInRow
	stateInCell
	stateDone
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateInTable:
		return "in-table"
	case stateInRow:
		return "in-row"
	case stateInCell:
		return "in-cell"
	case stateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StreamExtractor captures the first table whose class attribute contains
// Marker. It is fed markup events one at a time; Parse drives it from an
// html.Tokenizer. A StreamExtractor is single use.
type StreamExtractor struct {
	Marker string

	state state
	found bool
	// depth counts tables nested inside the target table.
	depth int
	cell  strings.Builder
	row   []string
	rows  [][]string
}

// NewStreamExtractor returns an extractor looking for marker, or DefaultMarker when empty.
func NewStreamExtractor(marker string) *StreamExtractor {
	if marker == "" {
		marker = DefaultMarker
	}
	return &StreamExtractor{Marker: marker}
}

func (e *StreamExtractor) marker() string {
	if e.Marker == "" {
		return DefaultMarker
	}
	return e.Marker
}

// StartTag handles an opening tag.
func (e *StreamExtractor) StartTag(name string, attrs []html.Attribute) {
	switch e.state {
	case stateDone:
		return
	case stateIdle:
		if name == "table" && e.hasMarker(attrs) {
			e.found = true
			e.state = stateInTable
		}
		return
	}

	switch name {
	case "table":
		e.depth++
	case "tr":
		if e.depth > 0 {
			return
		}
		if e.state == stateInCell {
			e.finishCell()
		}
		if e.state == stateInRow {
			e.finishRow()
		}
		e.row = nil
		e.state = stateInRow
	case "td", "th":
		if e.depth > 0 {
			return
		}
		switch e.state {
		case stateInCell:
			e.finishCell()
		case stateInTable:
			return
		}
		e.cell.Reset()
		e.state = stateInCell
	}
}

// EndTag handles a closing tag.
func (e *StreamExtractor) EndTag(name string) {
	if e.state == stateDone || e.state == stateIdle {
		return
	}
	switch name {
	case "table":
		if e.depth > 0 {
			e.depth--
			return
		}
		if e.state == stateInCell {
			e.finishCell()
		}
		if e.state == stateInRow {
			e.finishRow()
		}
		e.state = stateDone
	case "tr":
		if e.depth > 0 {
			return
		}
		if e.state == stateInCell {
			e.finishCell()
		}
		if e.state == stateInRow {
			e.finishRow()
		}
	case "td", "th":
		if e.depth > 0 || e.state != stateInCell {
			return
		}
		e.finishCell()
	}
}

// Text accumulates character data; it is discarded outside cells.
func (e *StreamExtractor) Text(data string) {
	if e.state == stateInCell {
		e.cell.WriteString(data)
	}
}

func (e *StreamExtractor) finishCell() {
	e.row = append(e.row, CleanCell(e.cell.String()))
	e.cell.Reset()
	e.state = stateInRow
}

func (e *StreamExtractor) finishRow() {
	if len(e.row) > 0 {
		e.rows = append(e.rows, e.row)
	}
	e.row = nil
	e.state = stateInTable
}

func (e *StreamExtractor) hasMarker(attrs []html.Attribute) bool {
	for _, a := range attrs {
		if a.Key == "class" && strings.Contains(a.Val, e.marker()) {
			return true
		}
	}
	return false
}

// Done reports whether the target table has been fully consumed.
func (e *StreamExtractor) Done() bool { return e.state == stateDone }

// Table returns the captured rows in document order. It fails with
// ErrNoTable when no target table was seen and ErrTooFewRows when the table
// holds fewer than a header and one data row.
func (e *StreamExtractor) Table() ([][]string, error) {
	if !e.found {
		return nil, ErrNoTable
	}
	if len(e.rows) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewRows, len(e.rows))
	}
	return e.rows, nil
}

// Parse tokenizes r and feeds every tag and text event into the extractor,
// stopping early once the target table is consumed.
func (e *StreamExtractor) Parse(r io.Reader) error {
	z := html.NewTokenizer(r)
	for !e.Done() {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return nil
			}
			return fmt.Errorf("tokenize: %w", z.Err())
		case html.StartTagToken:
			name, attrs := tagOf(z)
			e.StartTag(name, attrs)
		case html.SelfClosingTagToken:
			name, attrs := tagOf(z)
			e.StartTag(name, attrs)
			e.EndTag(name)
		case html.EndTagToken:
			name, _ := z.TagName()
			e.EndTag(strings.ToLower(string(name)))
		case html.TextToken:
			e.Text(string(z.Text()))
		}
	}
	log.Debug().Int("rows", len(e.rows)).Msg("target table consumed")
	return nil
}

func tagOf(z *html.Tokenizer) (string, []html.Attribute) {
	name, more := z.TagName()
	var attrs []html.Attribute
	for more {
		var k, v []byte
		k, v, more = z.TagAttr()
		attrs = append(attrs, html.Attribute{Key: string(k), Val: string(v)})
	}
	return strings.ToLower(string(name)), attrs
}

// ExtractTable parses input with a fresh StreamExtractor and returns its table.
func ExtractTable(r io.Reader, marker string) ([][]string, error) {
	e := NewStreamExtractor(marker)
	if err := e.Parse(r); err != nil {
		return nil, err
	}
	return e.Table()
}
