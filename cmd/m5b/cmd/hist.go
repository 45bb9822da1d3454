/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/ssargent/baseband/pkg/encoding"
)

// histCmd represents the hist command
var histCmd = &cobra.Command{
	Use:   "hist <file> <out.png>",
	Short: "Plot how often each quantization level occurs per channel",
	Long: `Decode samples and plot a bar chart of level occupancy per channel.
For 2-bit data a healthy sampler puts about 16% of samples in each outer
level.

Example:
  m5b hist scan.m5b levels.png --count 100000`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, _ := cmd.Flags().GetInt64("offset")
		count, _ := cmd.Flags().GetInt("count")

		r, err := openReader(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		if remaining := r.Size() - r.Tell(); int64(count) > remaining {
			count = int(max(remaining, 0))
		}
		data, err := r.Read(count)
		if err != nil {
			return err
		}

		levels := alphabet(r.Format().BitsPerSample)
		counts := levelCounts(data, levels)
		p, err := histogramPlot(args[0], levels, counts)
		if err != nil {
			return err
		}
		if err := p.Save(10*vg.Inch, 5*vg.Inch, args[1]); err != nil {
			return fmt.Errorf("failed to save plot: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "plotted %d samples to %s\n", count, args[1])
		return nil
	},
}

func alphabet(bps int) []float64 {
	if bps == 1 {
		return encoding.TwoLevels
	}
	return encoding.FourLevels
}

// levelCounts returns, per channel, the number of samples at each level.
// Samples off the alphabet are not counted.
func levelCounts(data mat.Matrix, levels []float64) []plotter.Values {
	rows, cols := data.Dims()
	counts := make([]plotter.Values, cols)
	for j := range counts {
		counts[j] = make(plotter.Values, len(levels))
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := data.At(i, j)
			for k, level := range levels {
				if v == level {
					counts[j][k]++
					break
				}
			}
		}
	}
	return counts
}

func histogramPlot(title string, levels []float64, counts []plotter.Values) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "level"
	p.Y.Label.Text = "samples"

	width := vg.Points(40 / float64(max(len(counts), 1)))
	for ch, values := range counts {
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return nil, err
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(ch)
		bars.Offset = width * vg.Length(float64(ch)-float64(len(counts)-1)/2)
		p.Add(bars)
		p.Legend.Add("ch"+strconv.Itoa(ch), bars)
	}
	p.Legend.Top = true

	names := make([]string, len(levels))
	for i, level := range levels {
		names[i] = strconv.FormatFloat(level, 'g', 4, 64)
	}
	p.NominalX(names...)
	return p, nil
}

func init() {
	rootCmd.AddCommand(histCmd)

	histCmd.Flags().Int64("offset", 0, "First sample to include")
	histCmd.Flags().Int("count", 100000, "Number of samples to include")
}
