/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Summarize a Mark 5B file",
	Long: `Print the format, extent and first and last headers of a Mark 5B file.

Example:
  m5b info --ref-time 2014-06-01T00:00:00Z scan.m5b`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openReader(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		out := cmd.OutOrStdout()
		fmt.Fprint(out, r.Info().String())
		fmt.Fprintf(out, "header0: %s\n", r.Header0())
		last, err := r.HeaderLast()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "header_last: %s\n", last)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
