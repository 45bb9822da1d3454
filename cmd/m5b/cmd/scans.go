/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
)

// scansCmd represents the scans command
var scansCmd = &cobra.Command{
	Use:   "scans [id]",
	Short: "List recorded scans or show one",
	Long: `Without arguments, list every scan in the catalog, oldest first.
With a scan ID, print its summary and the frames that failed checks.

Examples:
  m5b scans
  m5b scans 2Q5Uo9ZcEFe5y3d3d2PkWcQyO1M --all
  m5b scans 2Q5Uo9ZcEFe5y3d3d2PkWcQyO1M --delete`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		del, _ := cmd.Flags().GetBool("delete")

		cat, err := openCatalog()
		if err != nil {
			return err
		}
		defer cat.Close()

		if len(args) == 0 {
			scans, err := cat.List()
			if err != nil {
				return err
			}
			for _, s := range scans {
				fmt.Fprintf(cmd.OutOrStdout(), "%s ", s.ID)
				printScan(cmd.OutOrStdout(), s)
			}
			return nil
		}

		id, err := ksuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid scan id %q: %w", args[0], err)
		}
		if del {
			if err := cat.Delete(id); err != nil {
				return err
			}
			cmd.Printf("deleted %s\n", id)
			return nil
		}

		scan, err := cat.Scan(id)
		if err != nil {
			return err
		}
		entries, err := cat.Frames(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s recorded %s\n", id, formatTime(id.Time().UTC()))
		printScan(cmd.OutOrStdout(), scan)
		if !all {
			printBadEntries(cmd.OutOrStdout(), entries)
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "frame %d at byte %d: frame_nr=%d valid=%t crc_ok=%t time_ok=%t time=%s\n",
				e.Index, e.Offset, e.FrameNr, e.Valid, e.CRCOK, e.TimeOK, formatTime(e.Time))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scansCmd)

	scansCmd.Flags().Bool("all", false, "Print every frame, not only failed ones")
	scansCmd.Flags().Bool("delete", false, "Delete the scan instead of printing it")
}
