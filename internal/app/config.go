package app

import (
	"time"

	"github.com/hyperifyio/filmstats/internal/analysis"
	"github.com/hyperifyio/filmstats/internal/chart"
	"github.com/hyperifyio/filmstats/internal/extract"
)

// InputKind selects the row source adapter.
type InputKind string

const (
	// InputHTML reads page.html from the job directory with the streaming extractor.
	InputHTML InputKind = "html"
	// InputCSV reads highest_grossing_films.csv from the job directory.
	InputCSV InputKind = "csv"
	// InputURL fetches SourceURL and reads its table with goquery.
	InputURL InputKind = "url"
)

// DefaultSourceURL is the page the url input and the metadata scrape read.
const DefaultSourceURL = "https://en.wikipedia.org/wiki/List_of_highest-grossing_films"

// Config holds runtime configuration for one job.
type Config struct {
	// JobDir holds every input and output file of the job.
	JobDir string
	Input  InputKind

	SourceURL string
	// Marker is the class token of the target table.
	Marker string

	// Analysis is defaulted as a whole when left zero; see ApplyDefaults.
	Analysis analysis.Options
	Chart    ChartConfig

	// HTTP
	HTTPTimeout time.Duration
	UserAgent   string
	// RespectRobots checks robots.txt before fetching the source page.
	RespectRobots bool

	// Cache for fetched pages; empty CacheDir disables it.
	CacheDir    string
	CacheMaxAge time.Duration
	CacheClear  bool

	// PDF additionally writes report.pdf for successful runs.
	PDF     bool
	Verbose bool
}

// ChartConfig sizes the rendered chart and bounds its encoding.
type ChartConfig struct {
	Width           int
	Height          int
	MaxEncodedBytes int
}

// DefaultConfig returns the values used for any field left unset.
func DefaultConfig() Config {
	return Config{
		Input:     InputHTML,
		SourceURL: DefaultSourceURL,
		Marker:    extract.DefaultMarker,
		Analysis:  analysis.DefaultOptions(),
		Chart: ChartConfig{
			Width:           800,
			Height:          600,
			MaxEncodedBytes: chart.DefaultMaxEncodedBytes,
		},
		HTTPTimeout: 60 * time.Second,
	}
}
