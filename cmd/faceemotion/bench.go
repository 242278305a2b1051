package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

var benchPolls int

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure poll latency against the host device",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBench(cmd.Context(), benchPolls)
	},
}

func runBench(ctx context.Context, n int) error {

	if n <= 0 {
		return fmt.Errorf("number of polls must be positive, got %d", n)
	}

	opts := app.cfg.Poll.Options

	if opts.GetPreview {
		opts.Preview = make([]byte, opts.Width*opts.Height*4)
	}

	bar := progressbar.NewOptions(n,
		progressbar.OptionSetDescription("Polling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	latency := make([]float64, 0, n)
	faces := 0
	errs := 0

	for i := 0; i < n; i++ {

		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		out := app.processor.Poll(ctx, app.registry, app.cfg.Pipeline.DeviceNum, opts)
		latency = append(latency, float64(time.Since(start).Microseconds())/1000)

		switch {
		case strings.HasPrefix(out, `{"error"`):
			errs++
		case !strings.HasPrefix(out, `{"best":{}`):
			faces++
		}

		_ = bar.Add(1)

		select {
		case <-ctx.Done():
		case <-time.After(app.cfg.Poll.Interval):
		}
	}

	_ = bar.Finish()

	if len(latency) == 0 {
		return nil
	}

	sort.Float64s(latency)

	fmt.Printf("\npolls=%d faces=%d errors=%d\n", len(latency), faces, errs)
	fmt.Printf("latency ms: mean=%.3f p50=%.3f p95=%.3f max=%.3f\n",
		stat.Mean(latency, nil),
		stat.Quantile(0.5, stat.Empirical, latency, nil),
		stat.Quantile(0.95, stat.Empirical, latency, nil),
		latency[len(latency)-1])

	return nil
}

func init() {
	benchCmd.Flags().IntVarP(&benchPolls, "polls", "n", 100, "Number of polls to make")
	rootCmd.AddCommand(benchCmd)
}
