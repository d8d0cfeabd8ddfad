package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/filmstats/internal/analysis"
	"github.com/hyperifyio/filmstats/internal/cache"
	"github.com/hyperifyio/filmstats/internal/chart"
	"github.com/hyperifyio/filmstats/internal/extract"
	"github.com/hyperifyio/filmstats/internal/fetch"
	"github.com/hyperifyio/filmstats/internal/films"
	"github.com/hyperifyio/filmstats/internal/robots"
	"github.com/hyperifyio/filmstats/internal/source"
)

// FailurePrefix starts the description stored in a degraded result.
const FailurePrefix = "Analysis failed: "

// App runs analyze and scrape jobs against one job directory.
type App struct {
	cfg     Config
	paths   jobPaths
	fetcher source.Getter
	now     func() time.Time
}

// Report describes one completed analyze run.
type Report struct {
	Result analysis.Result
	// Films is the number of records that survived cleaning.
	Films  int
	Source string
	// Err is the run-level failure behind a degraded Result.
	Err error
}

// New applies defaults to cfg, validates it, and prepares the fetch client
// and page cache.
func New(cfg Config) (*App, error) {
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, paths: jobPaths{dir: cfg.JobDir}, now: time.Now}

	f := &fetch.Client{
		HTTPClient:      newHTTPClient(cfg.HTTPTimeout),
		UserAgent:       userAgent(cfg),
		RedirectMaxHops: 5,
		BypassCache:     cfg.CacheClear,
	}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("purged stale cache entries")
			}
		}
		f.Cache = &cache.PageCache{Dir: cfg.CacheDir}
	}
	a.fetcher = f
	if cfg.RespectRobots {
		a.fetcher = politeGetter{
			next:    f,
			checker: robots.Checker{HTTPClient: f.HTTPClient, UserAgent: userAgent(cfg)},
		}
	}
	return a, nil
}

func userAgent(cfg Config) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}
	return fetch.DefaultUserAgent
}

// politeGetter consults robots.txt before every fetch.
type politeGetter struct {
	next    source.Getter
	checker robots.Checker
}

func (p politeGetter) Get(ctx context.Context, url string) ([]byte, string, error) {
	if err := p.checker.Check(ctx, url); err != nil {
		return nil, "", err
	}
	return p.next.Get(ctx, url)
}

// Config returns the effective configuration after defaults.
func (a *App) Config() Config { return a.cfg }

func (a *App) source() source.RowSource {
	switch a.cfg.Input {
	case InputCSV:
		return source.Delimited{Path: a.paths.csv()}
	case InputURL:
		return source.Page{URL: a.cfg.SourceURL, Getter: a.fetcher, Extractor: extract.QueryExtractor{Marker: a.cfg.Marker}}
	default:
		return source.MarkupFile{Path: a.paths.page(), Extractor: extract.StreamTableExtractor{Marker: a.cfg.Marker}}
	}
}

func (a *App) charter() chart.Renderer {
	r := chart.New(a.cfg.Chart.Width, a.cfg.Chart.Height)
	r.MaxEncodedBytes = a.cfg.Chart.MaxEncodedBytes
	return r
}

// Analyze runs the pipeline once and always writes result.json. A run-level
// failure is converted into a degraded result and appended to the side log;
// the returned error is non-nil only when the result itself could not be
// written.
func (a *App) Analyze(ctx context.Context) (Report, error) {
	if err := a.ensureJobDir(); err != nil {
		return Report{}, fmt.Errorf("job dir: %w", err)
	}
	src := a.source()
	rep := Report{Source: src.Name()}

	answers, n, err := a.compute(ctx, src)
	rep.Films = n
	if err != nil {
		rep.Err = err
		rep.Result = analysis.Failed(describeFailure(err))
		log.Error().Err(err).Str("source", src.Name()).Msg("analysis failed")
		if lerr := appendSideLog(a.paths.metadata(), a.now(), rep.Result.Failure); lerr != nil {
			log.Warn().Err(lerr).Msg("side log append failed")
		}
	} else {
		rep.Result = analysis.Succeeded(answers)
	}

	if err := writeResult(a.paths.result(), rep.Result); err != nil {
		return rep, fmt.Errorf("write result: %w", err)
	}
	log.Info().Str("out", a.paths.result()).Bool("ok", rep.Result.OK()).Msg("wrote result")

	if a.cfg.PDF && rep.Result.OK() {
		if err := writeReportPDF(a.paths.report(), rep, a.cfg); err != nil {
			log.Warn().Err(err).Msg("pdf report failed")
		} else {
			log.Info().Str("out", a.paths.report()).Msg("wrote pdf report")
		}
	}
	return rep, nil
}

func (a *App) compute(ctx context.Context, src source.RowSource) (analysis.Answers, int, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return analysis.Answers{}, 0, err
	}
	records, err := films.FromRows(rows)
	if err != nil {
		return analysis.Answers{}, 0, err
	}
	log.Info().Int("rows", len(rows)-1).Int("films", len(records)).Msg("table projected")
	answers, err := analysis.Compute(records, a.cfg.Analysis, a.charter())
	return answers, len(records), err
}

// describeFailure formats err as "Analysis failed: <Kind> - <message>".
func describeFailure(err error) string {
	return fmt.Sprintf("%s%s - %v", FailurePrefix, failureKind(err), err)
}

func failureKind(err error) string {
	var ce *films.ColumnError
	var fe *source.FetchError
	switch {
	case errors.Is(err, extract.ErrNoTable):
		return "NoTable"
	case errors.Is(err, extract.ErrTooFewRows):
		return "TooFewRows"
	case errors.As(err, &ce):
		return "MissingColumn"
	case errors.Is(err, films.ErrNoRecords):
		return "NoRecords"
	case errors.Is(err, robots.ErrDisallowed):
		return "RobotsDisallowed"
	case errors.As(err, &fe):
		return "FetchError"
	case errors.Is(err, fs.ErrNotExist):
		return "FileNotFound"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Canceled"
	}
	return "Error"
}

// ensureJobDir creates the job directory if needed.
func (a *App) ensureJobDir() error {
	return os.MkdirAll(a.cfg.JobDir, 0o755)
}
