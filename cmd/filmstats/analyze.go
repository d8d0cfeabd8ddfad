package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/filmstats/internal/app"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the four-answer analysis for a job directory",
	}
	cmd.AddCommand(
		newAnalyzeInputCmd(app.InputHTML, "Read page.html from the job directory"),
		newAnalyzeInputCmd(app.InputCSV, "Read highest_grossing_films.csv from the job directory"),
		newAnalyzeInputCmd(app.InputURL, "Fetch the source page and read its table"),
	)
	return cmd
}

func newAnalyzeInputCmd(input app.InputKind, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(input) + " <jobdir>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, input, args[0])
		},
	}
	addCommonFlags(cmd)
	cmd.Flags().Bool("pdf", false, "Also write report.pdf for a successful run")
	cmd.Flags().String("marker", "", "Class token of the target table (default wikitable)")
	cmd.Flags().Int("chart.width", 0, "Chart width in pixels (default 800)")
	cmd.Flags().Int("chart.height", 0, "Chart height in pixels (default 600)")
	return cmd
}

// addCommonFlags registers the source and cache flags shared by commands that
// may fetch the source page.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "Source page URL (default "+app.DefaultSourceURL+")")
	cmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	cmd.Flags().Bool("robots", false, "Check robots.txt before fetching the source page")
	cmd.Flags().String("cache.dir", "", "Cache directory for fetched pages; empty disables caching")
	cmd.Flags().Duration("cache.maxAge", 0, "Purge cache entries older than this before the run; 0 disables")
	cmd.Flags().Bool("cache.clear", false, "Clear the cache directory before the run")
}

func flagConfig(cmd *cobra.Command, jobDir string) app.Config {
	cfg := app.Config{JobDir: jobDir}
	cfg.SourceURL, _ = cmd.Flags().GetString("url")
	cfg.HTTPTimeout, _ = cmd.Flags().GetDuration("timeout")
	cfg.RespectRobots, _ = cmd.Flags().GetBool("robots")
	cfg.CacheDir, _ = cmd.Flags().GetString("cache.dir")
	cfg.CacheMaxAge, _ = cmd.Flags().GetDuration("cache.maxAge")
	cfg.CacheClear, _ = cmd.Flags().GetBool("cache.clear")
	cfg.Verbose, _ = cmd.Flags().GetBool("verbose")
	return cfg
}

func runAnalyze(cmd *cobra.Command, input app.InputKind, jobDir string) error {
	cfg := flagConfig(cmd, jobDir)
	cfg.Input = input
	cfg.PDF, _ = cmd.Flags().GetBool("pdf")
	cfg.Marker, _ = cmd.Flags().GetString("marker")
	cfg.Chart.Width, _ = cmd.Flags().GetInt("chart.width")
	cfg.Chart.Height, _ = cmd.Flags().GetInt("chart.height")

	cfg, err := loadConfig(cmd, cfg)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	rep, err := a.Analyze(cmd.Context())
	if err != nil {
		return err
	}
	if !rep.Result.OK() {
		log.Warn().Str("job", jobDir).Msg("analysis completed with failure")
	}
	fmt.Fprintln(cmd.OutOrStdout(), app.SummaryTable(rep))
	return nil
}
