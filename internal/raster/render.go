package raster

import (
	"image/color"

	"github.com/example/go-wavevid/internal/media"
)

// Fixed output geometry.
const (
	Width  = 1280
	Height = 720
	FPS    = 30
)

var (
	CenterLine = color.RGBA{R: 30, G: 30, B: 30, A: 0xff}
	Accent     = color.RGBA{R: 50, G: 200, B: 120, A: 0xff}
)

// FrameBytes is the size of one Width x Height canvas.
func FrameBytes() int {
	return RowStride(Width) * Height
}

// Render draws frame frameIndex of stream into c, overwriting all of it.
//
// The frame spans SampleRate/FPS samples starting at floor(frameIndex*spf),
// spread across the canvas width. Columns whose sample index falls past the
// end of the stream stay blank.
func Render(stream *media.Stream, frameIndex int, c *Canvas) {
	c.Clear()

	midY := c.Height / 2
	c.HLine(midY, CenterLine)

	spf := stream.SamplesPerFrame(FPS)
	start := int(float64(frameIndex) * spf)
	// A full-scale sample moves int(0.4*Height) pixels off the center line.
	amp := c.Height * 4 / 10

	for x := range c.Width {
		pos := float64(start) + spf*float64(x)/float64(c.Width)
		idx := int(pos)
		if idx >= len(stream.Samples) {
			break
		}

		a := float64(stream.Samples[idx])
		y := int(float64(midY) - a*float64(amp))
		c.Set(x, y, Accent)
	}
}
