package app

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    "dario.cat/mergo"
    "github.com/titanous/json5"
    yaml "gopkg.in/yaml.v3"

    "github.com/hyperifyio/filmstats/internal/analysis"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to the CLI flags.
type FileConfig struct {
    Input     string `yaml:"input" json:"input"`
    SourceURL string `yaml:"sourceURL" json:"sourceURL"`
    Marker    string `yaml:"marker" json:"marker"`

    // Analysis thresholds are pointers so an explicit 0 differs from unset.
    Analysis struct {
        CountMinGross    *float64 `yaml:"countMinGross" json:"countMinGross"`
        CountBeforeYear  *int     `yaml:"countBeforeYear" json:"countBeforeYear"`
        EarliestMinGross *float64 `yaml:"earliestMinGross" json:"earliestMinGross"`
    } `yaml:"analysis" json:"analysis"`

    Chart struct {
        Width           int `yaml:"width" json:"width"`
        Height          int `yaml:"height" json:"height"`
        MaxEncodedBytes int `yaml:"maxEncodedBytes" json:"maxEncodedBytes"`
    } `yaml:"chart" json:"chart"`

    HTTP struct {
        Timeout   time.Duration `yaml:"timeout" json:"timeout"`
        UserAgent string        `yaml:"userAgent" json:"userAgent"`
        Robots    bool          `yaml:"respectRobots" json:"respectRobots"`
    } `yaml:"http" json:"http"`

    Cache struct {
        Dir    string        `yaml:"dir" json:"dir"`
        MaxAge time.Duration `yaml:"maxAge" json:"maxAge"`
        Clear  bool          `yaml:"clear" json:"clear"`
    } `yaml:"cache" json:"cache"`

    PDF     bool `yaml:"pdf" json:"pdf"`
    Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON5 (a superset of JSON) into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json", ".json5":
        if err := json5.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json5: %w", err)
        }
    default:
        // Try YAML then JSON5
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json5.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json5)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset/zero in cfg, so explicit flags keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }

    if cfg.Input == "" && fc.Input != "" { cfg.Input = InputKind(strings.ToLower(fc.Input)) }
    if cfg.SourceURL == "" && fc.SourceURL != "" { cfg.SourceURL = fc.SourceURL }
    if cfg.Marker == "" && fc.Marker != "" { cfg.Marker = fc.Marker }

    applyFileAnalysis(cfg, fc)

    if cfg.Chart.Width == 0 { cfg.Chart.Width = fc.Chart.Width }
    if cfg.Chart.Height == 0 { cfg.Chart.Height = fc.Chart.Height }
    if cfg.Chart.MaxEncodedBytes == 0 { cfg.Chart.MaxEncodedBytes = fc.Chart.MaxEncodedBytes }

    if cfg.HTTPTimeout == 0 { cfg.HTTPTimeout = fc.HTTP.Timeout }
    if cfg.UserAgent == "" { cfg.UserAgent = fc.HTTP.UserAgent }
    if !cfg.RespectRobots && fc.HTTP.Robots { cfg.RespectRobots = true }

    if cfg.CacheDir == "" { cfg.CacheDir = fc.Cache.Dir }
    if cfg.CacheMaxAge == 0 { cfg.CacheMaxAge = fc.Cache.MaxAge }
    if !cfg.CacheClear && fc.Cache.Clear { cfg.CacheClear = true }

    if !cfg.PDF && fc.PDF { cfg.PDF = true }
    if !cfg.Verbose && fc.Verbose { cfg.Verbose = true }
}

// applyFileAnalysis replaces an unset cfg.Analysis with the defaults overlaid
// by every threshold the file sets, zero included.
func applyFileAnalysis(cfg *Config, fc FileConfig) {
    fa := fc.Analysis
    if cfg.Analysis != (analysis.Options{}) { return }
    if fa.CountMinGross == nil && fa.CountBeforeYear == nil && fa.EarliestMinGross == nil { return }
    opt := analysis.DefaultOptions()
    if fa.CountMinGross != nil { opt.CountMinGross = *fa.CountMinGross }
    if fa.CountBeforeYear != nil { opt.CountBeforeYear = *fa.CountBeforeYear }
    if fa.EarliestMinGross != nil { opt.EarliestMinGross = *fa.EarliestMinGross }
    cfg.Analysis = opt
}

// ApplyDefaults fills every field still at its zero value from DefaultConfig.
// Analysis is defaulted as a whole: a non-zero Options is kept as given so an
// explicit zero threshold survives.
func ApplyDefaults(cfg *Config) error {
    if cfg == nil { return nil }
    opt := cfg.Analysis
    if err := mergo.Merge(cfg, DefaultConfig()); err != nil {
        return fmt.Errorf("config defaults: %w", err)
    }
    if opt != (analysis.Options{}) { cfg.Analysis = opt }
    return nil
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
    if strings.TrimSpace(cfg.JobDir) == "" {
        return errors.New("config: job directory is required")
    }
    switch cfg.Input {
    case InputHTML, InputCSV, InputURL:
    default:
        return fmt.Errorf("config: unknown input %q (want html, csv or url)", cfg.Input)
    }
    if cfg.Input == InputURL && strings.TrimSpace(cfg.SourceURL) == "" {
        return errors.New("config: sourceURL is required for url input")
    }
    if cfg.Analysis.CountMinGross < 0 || cfg.Analysis.EarliestMinGross < 0 {
        return errors.New("config: negative gross thresholds are not allowed")
    }
    if cfg.Chart.Width <= 0 || cfg.Chart.Height <= 0 || cfg.Chart.MaxEncodedBytes <= 0 {
        return errors.New("config: chart width, height and maxEncodedBytes must be positive")
    }
    return nil
}
