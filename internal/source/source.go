// Package source adapts the supported inputs into raw table rows for the
// analysis pipeline: a local markup file, a fetched page, and a delimited file.
package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/filmstats/internal/extract"
)

// RowSource yields the rows of one table, header first.
type RowSource interface {
	Rows(ctx context.Context) ([][]string, error)
	// Name describes the input for logs.
	Name() string
}

// Getter fetches a document and reports its content type.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// FetchError wraps a failure to retrieve a remote document.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

func extractor(x extract.TableExtractor, fallback extract.TableExtractor) extract.TableExtractor {
	if x != nil {
		return x
	}
	return fallback
}

// MarkupFile reads a local HTML file and extracts its target table with the
// streaming extractor unless Extractor is set.
type MarkupFile struct {
	Path      string
	Extractor extract.TableExtractor
}

func (m MarkupFile) Name() string { return "markup:" + m.Path }

func (m MarkupFile) Rows(_ context.Context) ([][]string, error) {
	b, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, fmt.Errorf("read markup: %w", err)
	}
	return extractor(m.Extractor, extract.StreamTableExtractor{}).Extract(b)
}

// Page fetches URL and reads its target table, by default through the
// goquery extractor. The body is decoded to UTF-8 per its content type.
type Page struct {
	URL       string
	Getter    Getter
	Extractor extract.TableExtractor
}

func (p Page) Name() string { return "url:" + p.URL }

func (p Page) Rows(ctx context.Context) ([][]string, error) {
	body, err := Fetch(ctx, p.Getter, p.URL)
	if err != nil {
		return nil, err
	}
	return extractor(p.Extractor, extract.QueryExtractor{}).Extract(body)
}

// Fetch retrieves url through g and returns the body decoded to UTF-8.
func Fetch(ctx context.Context, g Getter, url string) ([]byte, error) {
	if g == nil {
		return nil, &FetchError{URL: url, Err: errors.New("no fetch client configured")}
	}
	body, ct, err := g.Get(ctx, url)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	r, err := charset.NewReader(bytes.NewReader(body), ct)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	log.Debug().Str("url", url).Int("bytes", len(decoded)).Msg("fetched page")
	return decoded, nil
}

// Delimited reads a delimited text file whose first record is the header.
// Records consisting only of empty fields are skipped.
type Delimited struct {
	Path string
	// Comma is the field delimiter; zero means ','.
	Comma rune
}

func (d Delimited) Name() string { return "csv:" + d.Path }

func (d Delimited) Rows(_ context.Context) ([][]string, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if d.Comma != 0 {
		r.Comma = d.Comma
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, rec)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: got %d", extract.ErrTooFewRows, len(rows))
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
