/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/baseband/pkg/catalog"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Check the CRC and time of every frame",
	Long: `Walk every frame header of a Mark 5B file, checking its CRC and that
its time matches the frame's position. Exits non-zero if any frame fails.

Example:
  m5b check scan.m5b`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scan, entries, err := surveyFile(args[0])
		if err != nil {
			return err
		}
		printBadEntries(cmd.OutOrStdout(), entries)
		printScan(cmd.OutOrStdout(), scan)
		if !scan.OK() {
			return fmt.Errorf("%d of %d frames failed checks", countBad(entries), scan.Frames)
		}
		return nil
	},
}

// surveyFile opens path without per-read verification and surveys it.
func surveyFile(path string) (catalog.Scan, []catalog.Entry, error) {
	c := getContainer()
	rc, err := c.GetConfig().ReaderConfig(path, c.GetMetrics())
	if err != nil {
		return catalog.Scan{}, nil, err
	}
	rc.Verify = false

	r, err := openWith(rc)
	if err != nil {
		return catalog.Scan{}, nil, err
	}
	defer r.Close()
	return catalog.Survey(r, path)
}

func countBad(entries []catalog.Entry) int {
	n := 0
	for _, e := range entries {
		if !e.CRCOK || !e.TimeOK {
			n++
		}
	}
	return n
}

func printBadEntries(w io.Writer, entries []catalog.Entry) {
	for _, e := range entries {
		if e.CRCOK && e.TimeOK {
			continue
		}
		fmt.Fprintf(w, "frame %d at byte %d: frame_nr=%d crc_ok=%t time_ok=%t time=%s\n",
			e.Index, e.Offset, e.FrameNr, e.CRCOK, e.TimeOK, formatTime(e.Time))
	}
}

func printScan(w io.Writer, s catalog.Scan) {
	fmt.Fprintf(w, "%s: %s, %d frames from %s to %s, %d invalid, %d bad CRC, %d bad time\n",
		s.Path, s.Format, s.Frames, formatTime(s.StartTime), formatTime(s.StopTime),
		s.Invalid, s.BadCRC, s.BadTime)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(time.RFC3339Nano)
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
