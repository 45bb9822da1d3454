/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/baseband/pkg/catalog"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <file>...",
	Short: "Survey files and record the results in the catalog",
	Long: `Check every frame of each file like "m5b check" and store the per-frame
results in the scan catalog. Prints the ID of each recorded scan.

Example:
  m5b scan --catalog-dir ./data/catalog scan1.m5b scan2.m5b`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog()
		if err != nil {
			return err
		}
		defer cat.Close()

		for _, path := range args {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			scan, entries, err := surveyFile(abs)
			if err != nil {
				return err
			}
			id, err := cat.Record(scan, entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, abs)
		}
		return nil
	},
}

func openCatalog() (*catalog.Catalog, error) {
	c := getContainer()
	cat, err := c.GetCatalogFactory().OpenCatalog(c.GetConfig().Catalog.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return cat, nil
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
