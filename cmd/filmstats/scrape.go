package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/filmstats/internal/app"
)

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <jobdir>",
		Short: "Describe the source table in metadata.txt",
		Long: `Scrape fetches the source page, locates its first wikitable, and
overwrites metadata.txt in the job directory with the page title, the table
columns, and a preview of the first rows. Nothing is written when the page
has no such table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flagConfig(cmd, args[0]))
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			if err := a.Scrape(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", filepath.Join(args[0], app.MetadataFile))
			return nil
		},
	}
	addCommonFlags(cmd)
	return cmd
}
