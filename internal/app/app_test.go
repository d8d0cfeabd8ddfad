package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/filmstats/internal/analysis"
	"github.com/hyperifyio/filmstats/internal/chart"
)

const filmsPage = `<!DOCTYPE html>
<html><head><title>List of highest-grossing films</title></head><body>
<table class="wikitable sortable plainrowheaders">
<tr><th>Rank</th><th>Peak</th><th>Title</th><th>Worldwide gross</th><th>Year</th><th>Ref</th></tr>
<tr><td>1</td><td>1</td><th>Avatar</th><td>$2,923,706,026</td><td>2009</td><td>[1]</td></tr>
<tr><td>2</td><td>1</td><th>Avengers: Endgame</th><td>$2,797,501,328</td><td>2019</td><td>[2]</td></tr>
<tr><td>3</td><td>1</td><th>Titanic</th><td>$2,264,812,968[3]</td><td>1997</td><td>[3]</td></tr>
<tr><td>4</td><td>4</td><th>Harry Potter &amp; the Deathly Hallows</th><td>$1,342,139,727</td><td>2011</td><td>[4]</td></tr>
</table>
<table class="wikitable"><tr><th>Other</th></tr><tr><td>x</td></tr></table>
</body></html>`

const filmsCSV = "Rank,Peak,Title,Worldwide gross,Year\n" +
	"1,1,Avatar,\"$2,923,706,026\",2009\n" +
	"2,1,Avengers: Endgame,\"$2,797,501,328\",2019\n" +
	"3,1,Titanic,\"$2,264,812,968\",1997\n" +
	"\n" +
	"4,4,Harry Potter & the Deathly Hallows,\"$1,342,139,727\",2011\n"

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	a.now = func() time.Time { return fixedNow }
	return a
}

func readResult(t *testing.T, dir string) (string, []any) {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, ResultFile))
	require.NoError(t, err)
	var arr []any
	require.NoError(t, json.Unmarshal(b, &arr))
	return string(b), arr
}

func assertAnswers(t *testing.T, arr []any) {
	t.Helper()
	require.Len(t, arr, 4)
	assert.Equal(t, 1.0, arr[0])
	assert.Equal(t, "Titanic", arr[1])
	r, ok := arr[2].(float64)
	require.True(t, ok)
	assert.True(t, r >= -1 && r <= 1)
	assert.True(t, strings.HasPrefix(arr[3].(string), "data:image/png;base64,") || arr[3] == chart.Placeholder)
}

func TestAnalyze_HTMLJob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PageFile), []byte(filmsPage), 0o644))

	rep, err := newTestApp(t, Config{JobDir: dir}).Analyze(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Result.OK())
	assert.Equal(t, 4, rep.Films)

	raw, arr := readResult(t, dir)
	assertAnswers(t, arr)
	assert.True(t, strings.HasPrefix(raw, "[\n    1,\n    \"Titanic\",\n"), raw[:40])

	_, err = os.Stat(filepath.Join(dir, MetadataFile))
	assert.True(t, os.IsNotExist(err), "successful run must not touch the side log")
}

func TestAnalyze_CSVJob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CSVFile), []byte(filmsCSV), 0o644))

	rep, err := newTestApp(t, Config{JobDir: dir, Input: InputCSV}).Analyze(context.Background())
	require.NoError(t, err)
	require.True(t, rep.Result.OK(), rep.Result.Failure)
	_, arr := readResult(t, dir)
	assertAnswers(t, arr)
}

func TestAnalyze_URLJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(filmsPage))
	}))
	defer srv.Close()

	dir := t.TempDir()
	a := newTestApp(t, Config{JobDir: dir, Input: InputURL, SourceURL: srv.URL, CacheDir: filepath.Join(dir, "cache")})
	rep, err := a.Analyze(context.Background())
	require.NoError(t, err)
	require.True(t, rep.Result.OK(), rep.Result.Failure)
	_, arr := readResult(t, dir)
	assertAnswers(t, arr)
}

func TestAnalyze_RobotsDisallowDegrades(t *testing.T) {
	var pageHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /wiki/\n"))
			return
		}
		pageHits++
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(filmsPage))
	}))
	defer srv.Close()

	dir := t.TempDir()
	a := newTestApp(t, Config{JobDir: dir, Input: InputURL, SourceURL: srv.URL + "/wiki/Films", RespectRobots: true})
	rep, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rep.Result.Failure, "Analysis failed: RobotsDisallowed - "), rep.Result.Failure)
	assert.Zero(t, pageHits)
}

func TestAnalyze_MissingInputDegrades(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFile), []byte("Data Source URL: x"), 0o644))

	rep, err := newTestApp(t, Config{JobDir: dir}).Analyze(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Result.OK())
	require.Error(t, rep.Err)

	_, arr := readResult(t, dir)
	require.Len(t, arr, 4)
	msg, ok := arr[0].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(msg, "Analysis failed: FileNotFound - "), msg)
	assert.Nil(t, arr[1])
	assert.Nil(t, arr[2])
	assert.Nil(t, arr[3])

	side, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	assert.Equal(t, "Data Source URL: x\n[2024-05-01T12:30:00Z] [ANALYSIS ERROR] "+msg, string(side))
}

func TestAnalyze_MissingColumnDegrades(t *testing.T) {
	dir := t.TempDir()
	page := strings.Replace(filmsPage, "<th>Peak</th>", "<th>Peek</th>", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, PageFile), []byte(page), 0o644))

	rep, err := newTestApp(t, Config{JobDir: dir}).Analyze(context.Background())
	require.NoError(t, err)
	require.False(t, rep.Result.OK())
	assert.Contains(t, rep.Result.Failure, "Analysis failed: MissingColumn - ")
	assert.Contains(t, rep.Result.Failure, `"peak"`)
}

func TestAnalyze_NoTableDegrades(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PageFile), []byte("<html><body><p>nothing</p></body></html>"), 0o644))

	rep, err := newTestApp(t, Config{JobDir: dir}).Analyze(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rep.Result.Failure, "Analysis failed: NoTable - "), rep.Result.Failure)
}

func TestAnalyze_WritesPDFReport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PageFile), []byte(filmsPage), 0o644))

	_, err := newTestApp(t, Config{JobDir: dir, PDF: true, Chart: ChartConfig{Width: 400, Height: 300}}).Analyze(context.Background())
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "%PDF-"))
}

func TestAnalyze_FailedRunSkipsPDF(t *testing.T) {
	dir := t.TempDir()
	_, err := newTestApp(t, Config{JobDir: dir, PDF: true}).Analyze(context.Background())
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ReportFile))
	assert.True(t, os.IsNotExist(err))
}

func TestAnalyze_UnwritableResultIsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PageFile), []byte(filmsPage), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ResultFile), 0o755))

	_, err := newTestApp(t, Config{JobDir: dir}).Analyze(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write result")
}

func TestScrape_WritesMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(filmsPage))
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, newTestApp(t, Config{JobDir: dir, SourceURL: srv.URL}).Scrape(context.Background()))

	b, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, "Data Source URL: "+srv.URL+"\n")
	assert.Contains(t, s, "Page Title: List of highest-grossing films\n")
	assert.Contains(t, s, `Table Columns: ["Rank", "Peak", "Title", "Worldwide gross", "Year", "Ref"]`)
	assert.Contains(t, s, "Avengers: Endgame")
	assert.Contains(t, s, "Titanic")
	assert.NotContains(t, s, "Deathly Hallows", "only the first three data rows are shown")
}

func TestScrape_NoTableWritesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>Empty</title></head><body></body></html>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	err := newTestApp(t, Config{JobDir: dir, SourceURL: srv.URL}).Scrape(context.Background())
	require.Error(t, err)
	_, err = os.Stat(filepath.Join(dir, MetadataFile))
	assert.True(t, os.IsNotExist(err))
}

func TestSummaryTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PageFile), []byte(filmsPage), 0o644))
	rep, err := newTestApp(t, Config{JobDir: dir}).Analyze(context.Background())
	require.NoError(t, err)

	s := SummaryTable(rep)
	assert.Contains(t, s, "Titanic")
	assert.Contains(t, s, "Correlation")

	failed := SummaryTable(Report{Source: "markup:x", Result: analysis.Failed("Analysis failed: NoTable - x")})
	assert.Contains(t, failed, "markup:x")
	assert.Contains(t, failed, "NoTable")
}
