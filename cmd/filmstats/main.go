// Command filmstats extracts the highest-grossing films table from a job
// directory, a CSV export, or the live page, and writes the four analysis
// answers to result.json.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/filmstats/internal/app"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "filmstats",
		Short: "Analyze the highest-grossing films table",
		Long: `filmstats reads the highest-grossing films table from a job directory
(page.html or highest_grossing_films.csv) or from the source page, computes
four fixed answers, and writes them to result.json in the job directory.

A run that fails still writes result.json, with the failure description in
place of the first answer, and appends the failure to metadata.txt.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogging(verbose)
		},
	}
	root.PersistentFlags().String("config", "", "Path to a YAML or JSON5 config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging")

	root.AddCommand(newAnalyzeCmd(), newScrapeCmd(), newVersionCmd())
	return root
}

func setupLogging(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// loadConfig builds the job configuration: explicit flags first, then the
// config file, then defaults inside app.New.
func loadConfig(cmd *cobra.Command, cfg app.Config) (app.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		fc, err := app.LoadConfigFile(path)
		if err != nil {
			return cfg, err
		}
		app.ApplyFileConfig(&cfg, fc)
		if fc.Verbose {
			setupLogging(true)
		}
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
