/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Print decoded samples",
	Long: `Decode samples and print one line per sample with one column per channel.

Examples:
  m5b read scan.m5b --count 10
  m5b read scan.m5b --offset 5000 --count 4
  m5b read scan.m5b --time 2014-06-13T05:30:01.000156250Z --count 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, _ := cmd.Flags().GetInt64("offset")
		count, _ := cmd.Flags().GetInt("count")
		at, _ := cmd.Flags().GetString("time")

		r, err := openReader(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		if at != "" {
			t, err := time.Parse(time.RFC3339Nano, at)
			if err != nil {
				return fmt.Errorf("invalid --time: %w", err)
			}
			if _, err := r.SeekTime(t); err != nil {
				return err
			}
		} else if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return err
		}

		start := r.Tell()
		data, err := r.Read(count)
		if err != nil {
			return err
		}
		printSamples(cmd.OutOrStdout(), start, data)
		return nil
	},
}

// printSamples writes one line per sample, prefixed with its index.
func printSamples(w io.Writer, start int64, data mat.Matrix) {
	rows, cols := data.Dims()
	fields := make([]string, cols+1)
	for i := 0; i < rows; i++ {
		fields[0] = strconv.FormatInt(start+int64(i), 10)
		for j := 0; j < cols; j++ {
			fields[j+1] = strconv.FormatFloat(data.At(i, j), 'g', 7, 64)
		}
		fmt.Fprintln(w, strings.Join(fields, "\t"))
	}
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().Int64("offset", 0, "First sample to print")
	readCmd.Flags().Int("count", 10, "Number of samples to print")
	readCmd.Flags().String("time", "", "RFC 3339 time of the first sample (overrides --offset)")
}
