// Package pipeline turns a WAV file into a waveform AVI: decode, rasterize
// every frame and stream the frames into the container in order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/example/go-wavevid/internal/audio"
	"github.com/example/go-wavevid/internal/avi"
	"github.com/example/go-wavevid/internal/media"
	"github.com/example/go-wavevid/internal/raster"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Input  string
	Output string
	// Workers is the number of frames rasterized concurrently. Zero or less
	// selects GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

type Result struct {
	Output     string
	Frames     int
	SampleRate int
	Channels   int
	Samples    int
	Duration   time.Duration
	Elapsed    time.Duration
}

// Run renders opts.Input into opts.Output. No output file is created when
// decoding fails or the input holds no samples. A failure after that point
// can leave a partial file behind.
func Run(ctx context.Context, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()

	stream, err := audio.DecodeFile(opts.Input)
	if err != nil {
		return Result{}, err
	}

	if stream.Len() == 0 {
		return Result{}, fmt.Errorf("%w: %s", media.ErrEmptyInput, opts.Input)
	}

	frames := stream.FrameCount(raster.FPS)
	frameBytes := raster.FrameBytes()

	logger.Info("decoded input",
		"input", opts.Input,
		"sample_rate", stream.SampleRate,
		"channels", stream.Channels,
		"samples", stream.Len(),
		"duration", stream.Duration(),
		"frames", frames,
	)

	if limit := avi.MaxFrames(frameBytes); frames > limit {
		return Result{}, fmt.Errorf("%w: %d frames requested, at most %d fit", avi.ErrTooLarge, frames, limit)
	}

	w, err := avi.Create(opts.Output)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = w.Close() }()

	err = w.Begin(avi.Header{
		Width:      raster.Width,
		Height:     raster.Height,
		FPS:        raster.FPS,
		FrameBytes: frameBytes,
		Frames:     frames,
	})
	if err != nil {
		return Result{}, err
	}

	if err := RenderFrames(ctx, stream, frames, opts.Workers, w, logger); err != nil {
		return Result{}, err
	}

	if err := w.Finalize(frames); err != nil {
		return Result{}, err
	}

	res := Result{
		Output:     opts.Output,
		Frames:     frames,
		SampleRate: stream.SampleRate,
		Channels:   stream.Channels,
		Samples:    stream.Len(),
		Duration:   stream.Duration(),
		Elapsed:    time.Since(start),
	}

	logger.Info("wrote video",
		"output", res.Output,
		"frames", res.Frames,
		"bytes", avi.FileSize(frameBytes, frames),
		"elapsed", res.Elapsed,
	)

	return res, nil
}

// FrameSink receives rendered frames in index order. The slice is reused
// after AppendFrame returns.
type FrameSink interface {
	AppendFrame(frame []byte) error
}

// RenderFrames rasterizes frames 0..total-1 of stream into sink. Up to
// workers canvases are drawn concurrently per batch; each batch is handed to
// sink strictly in frame order before the next one starts.
func RenderFrames(ctx context.Context, stream *media.Stream, total, workers int, sink FrameSink, logger *slog.Logger) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, max(total, 1))

	canvases := make([]*raster.Canvas, workers)
	for i := range canvases {
		canvases[i] = raster.NewCanvas(raster.Width, raster.Height)
	}

	for base := 0; base < total; base += workers {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("render frame %d: %w", base, err)
		}

		n := min(workers, total-base)

		if err := renderBatch(ctx, stream, base, canvases[:n]); err != nil {
			return err
		}

		for i, c := range canvases[:n] {
			if err := sink.AppendFrame(c.Pix); err != nil {
				return fmt.Errorf("append frame %d: %w", base+i, err)
			}
		}

		logger.Debug("rendered batch", "first", base, "count", n, "total", total)
	}

	return nil
}

func renderBatch(ctx context.Context, stream *media.Stream, base int, canvases []*raster.Canvas) error {
	if len(canvases) == 1 {
		raster.Render(stream, base, canvases[0])
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	for i, c := range canvases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raster.Render(stream, base+i, c)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("render frame %d: %w", base, err)
	}

	return nil
}
