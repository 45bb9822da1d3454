/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/baseband/pkg/mark5b"
	"github.com/ssargent/baseband/pkg/stream"
)

// copyCmd represents the copy command
var copyCmd = &cobra.Command{
	Use:   "copy <in> <out>",
	Short: "Decode a file and encode it again",
	Long: `Decode every sample of a Mark 5B file and write them to a new file with
the same start time and header fields. With --identical the output must match
the complete frames of the input byte for byte.

Example:
  m5b copy --identical scan.m5b copy.m5b`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		identical, _ := cmd.Flags().GetBool("identical")
		in, out := args[0], args[1]

		r, err := openReader(in)
		if err != nil {
			return err
		}
		defer r.Close()

		c := getContainer()
		wc := c.GetConfig().WriterConfig(out, r.StartTime(), c.GetMetrics())
		wc.Header = stream.OverridesFrom(r.Header0())
		w, err := stream.NewWriter(wc)
		if err != nil {
			return err
		}
		n, err := stream.Copy(w, r)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("copy failed after %d samples: %w", n, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "copied %d samples (%d frames) to %s\n", n, r.Frames(), out)

		if identical {
			return compareFrames(in, out, r.Frames())
		}
		return nil
	},
}

// compareFrames checks that the first frames frames of both files match.
func compareFrames(a, b string, frames int64) error {
	want, err := os.ReadFile(a)
	if err != nil {
		return err
	}
	got, err := os.ReadFile(b)
	if err != nil {
		return err
	}
	size := frames * mark5b.FrameSize
	for path, data := range map[string][]byte{a: want, b: got} {
		if int64(len(data)) < size {
			return fmt.Errorf("%s has %d bytes, expected at least %d", path, len(data), size)
		}
	}
	if !bytes.Equal(want[:size], got[:size]) {
		for i := int64(0); i < size; i++ {
			if want[i] != got[i] {
				return fmt.Errorf("%s differs from %s at byte %d (frame %d)", b, a, i, i/mark5b.FrameSize)
			}
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(copyCmd)

	copyCmd.Flags().Bool("identical", false, "Fail unless the output matches the input byte for byte")
}
