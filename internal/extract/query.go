package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// QueryExtractor reads the target table through a goquery document, the way
// a pre-tabulated reader would. Leading all-header rows are collapsed to the
// last one so a multi-level header yields single column labels.
type QueryExtractor struct {
	Marker string
}

// Extract returns the rows of the first marker table in input, failing with
// ErrNoTable or ErrTooFewRows like the streaming extractor.
func (q QueryExtractor) Extract(input []byte) ([][]string, error) {
	page, err := ParsePage(input, q.Marker)
	if err != nil {
		return nil, err
	}
	if page.Rows == nil {
		return nil, ErrNoTable
	}
	if len(page.Rows) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewRows, len(page.Rows))
	}
	return page.Rows, nil
}

// Page is the part of a document the metadata scrape reports on.
type Page struct {
	Title string
	// Rows is nil when the page has no target table.
	Rows [][]string
}

// ParsePage loads input into goquery and reads the title and the first table
// whose class contains marker.
func ParsePage(input []byte, marker string) (Page, error) {
	if marker == "" {
		marker = DefaultMarker
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}
	page := Page{Title: strings.TrimSpace(doc.Find("head title").First().Text())}

	table := doc.Find("table").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.AttrOr("class", ""), marker)
	}).First()
	if table.Length() == 0 {
		return page, nil
	}

	rows := [][]string{}
	headerRows := 0
	leading := true
	table.ChildrenFiltered("thead, tbody, tfoot").ChildrenFiltered("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}
		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, c *goquery.Selection) {
			row = append(row, CleanCell(c.Text()))
		})
		if leading && cells.Filter("td").Length() == 0 {
			headerRows++
		} else {
			leading = false
		}
		rows = append(rows, row)
	})
	if headerRows > 1 {
		rows = rows[headerRows-1:]
	}
	page.Rows = rows
	return page, nil
}
