// Package bench provides benchmarking primitives for the wavevid bench command.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/go-wavevid/internal/pipeline"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and media metadata for a single render.
type RunResult struct {
	Index         int
	Cold          bool // true for the first run (cold page cache)
	Workers       int
	Frames        int
	Duration      time.Duration
	AudioDuration time.Duration
	RTF           float64
}

// FramesPerSecond returns the render throughput of the run.
func (r RunResult) FramesPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Frames) / r.Duration.Seconds()
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
// An empty slice yields zero Stats.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// Durations extracts the render durations of runs.
func Durations(runs []RunResult) []time.Duration {
	out := make([]time.Duration, len(runs))
	for i, r := range runs {
		out[i] = r.Duration
	}
	return out
}

// ---------------------------------------------------------------------------
// RTF helpers
// ---------------------------------------------------------------------------

// CalcRTF returns render_duration / audio_duration.
// Returns 0 if audioDur is zero to avoid division by zero.
func CalcRTF(renderDur, audioDur time.Duration) float64 {
	if audioDur <= 0 {
		return 0
	}
	return float64(renderDur) / float64(audioDur)
}

// MeanRTF averages the realtime factor over runs.
func MeanRTF(runs []RunResult) float64 {
	if len(runs) == 0 {
		return 0
	}
	var total float64
	for _, r := range runs {
		total += r.RTF
	}
	return total / float64(len(runs))
}

// CheckRTFThreshold returns an error if meanRTF > threshold.
// A threshold of 0 disables the gate.
func CheckRTFThreshold(meanRTF, threshold float64) error {
	if threshold <= 0 {
		return nil
	}
	if meanRTF > threshold {
		return fmt.Errorf("mean RTF %.3f exceeds threshold %.3f", meanRTF, threshold)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Options controls a benchmark session.
type Options struct {
	Input string
	Runs  int
	// Workers lists the worker counts to sweep; each gets Runs renders.
	// Empty means a single sweep at GOMAXPROCS.
	Workers []int
	// Dir receives the scratch output. Empty uses a fresh temp directory
	// that is removed afterwards.
	Dir    string
	Logger *slog.Logger
}

// Run renders opts.Input repeatedly and times each render.
func Run(ctx context.Context, opts Options) ([]RunResult, error) {
	if opts.Runs < 1 {
		return nil, fmt.Errorf("runs must be at least 1, got %d", opts.Runs)
	}

	workers := opts.Workers
	if len(workers) == 0 {
		workers = []int{0}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir := opts.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "wavevid-bench-*")
		if err != nil {
			return nil, fmt.Errorf("create scratch dir: %w", err)
		}
		defer func() { _ = os.RemoveAll(tmp) }()
		dir = tmp
	}
	out := filepath.Join(dir, "bench.avi")

	results := make([]RunResult, 0, opts.Runs*len(workers))

	for _, w := range workers {
		for i := range opts.Runs {
			res, err := pipeline.Run(ctx, pipeline.Options{
				Input:   opts.Input,
				Output:  out,
				Workers: w,
				Logger:  logger,
			})
			if err != nil {
				return nil, fmt.Errorf("run %d (workers=%d) failed: %w", i+1, w, err)
			}

			results = append(results, RunResult{
				Index:         len(results),
				Cold:          len(results) == 0,
				Workers:       w,
				Frames:        res.Frames,
				Duration:      res.Elapsed,
				AudioDuration: res.Duration,
				RTF:           CalcRTF(res.Elapsed, res.Duration),
			})
		}
	}

	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove scratch output: %w", err)
	}

	return results, nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %7s  %10s  %12s  %8s  %8s\n", "Run", "Cold", "Workers", "MS", "Audio(ms)", "FPS", "RTF")
	fmt.Fprintln(sb, strings.Repeat("-", 68))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		workers := "auto"
		if r.Workers > 0 {
			workers = fmt.Sprint(r.Workers)
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %7s  %10.1f  %12.1f  %8.1f  %8.3f\n",
			r.Index+1,
			cold,
			workers,
			float64(r.Duration.Milliseconds()),
			float64(r.AudioDuration.Milliseconds()),
			r.FramesPerSecond(),
			r.RTF,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 68))
	fmt.Fprintf(sb, "%-5s  %-5s  %7s  %10.1f  (min)\n", "", "", "", float64(stats.Min.Milliseconds()))
	fmt.Fprintf(sb, "%-5s  %-5s  %7s  %10.1f  (mean)\n", "", "", "", float64(stats.Mean.Milliseconds()))
	fmt.Fprintf(sb, "%-5s  %-5s  %7s  %10.1f  (max)\n", "", "", "", float64(stats.Max.Milliseconds()))

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index      int     `json:"index"`
	Cold       bool    `json:"cold"`
	Workers    int     `json:"workers"`
	Frames     int     `json:"frames"`
	DurationMS float64 `json:"duration_ms"`
	AudioMS    float64 `json:"audio_ms"`
	FPS        float64 `json:"fps"`
	RTF        float64 `json:"rtf"`
}

type jsonStats struct {
	MinMS   float64 `json:"min_ms"`
	MeanMS  float64 `json:"mean_ms"`
	MaxMS   float64 `json:"max_ms"`
	MeanRTF float64 `json:"mean_rtf"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:   float64(stats.Min.Milliseconds()),
			MeanMS:  float64(stats.Mean.Milliseconds()),
			MaxMS:   float64(stats.Max.Milliseconds()),
			MeanRTF: MeanRTF(runs),
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:      r.Index,
			Cold:       r.Cold,
			Workers:    r.Workers,
			Frames:     r.Frames,
			DurationMS: float64(r.Duration.Milliseconds()),
			AudioMS:    float64(r.AudioDuration.Milliseconds()),
			FPS:        r.FramesPerSecond(),
			RTF:        r.RTF,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(jr)
}
