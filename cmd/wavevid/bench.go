package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"

	"github.com/example/go-wavevid/internal/bench"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		runs         int
		sweep        []int
		format       string
		rtfThreshold float64
		cpuprofile   string
	)

	cmd := &cobra.Command{
		Use:   "bench <input.wav>",
		Short: "Benchmark render time and realtime factor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}
			cmd.SilenceUsage = true

			workers := sweep
			if len(workers) == 0 {
				workers = []int{cfg.Render.Workers}
			}

			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("create cpuprofile: %w", err)
				}
				defer f.Close()

				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("start cpuprofile: %w", err)
				}
				defer pprof.StopCPUProfile()
			}

			results, err := bench.Run(cmd.Context(), bench.Options{
				Input:   args[0],
				Runs:    runs,
				Workers: workers,
				Logger:  slog.Default(),
			})
			if err != nil {
				return err
			}

			stats := bench.ComputeStats(bench.Durations(results))

			switch format {
			case "json":
				bench.FormatJSON(results, stats, cmd.OutOrStdout())
			default:
				bench.FormatTable(results, stats, cmd.OutOrStdout())
			}

			return bench.CheckRTFThreshold(bench.MeanRTF(results), rtfThreshold)
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 3, "Number of renders per worker count")
	cmd.Flags().IntSliceVar(&sweep, "sweep", nil, "Worker counts to compare, e.g. 1,2,4 (default: --workers)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&rtfThreshold, "rtf-threshold", 0, "Exit non-zero if mean RTF exceeds this value (0 = disabled)")
	cmd.Flags().StringVar(&cpuprofile, "cpuprofile", "", "Write a CPU profile of the benchmark to this file")

	return cmd
}
