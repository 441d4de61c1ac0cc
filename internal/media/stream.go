// Package media holds the types shared between the decoding, rendering and
// container stages of a waveform render.
package media

import (
	"math"
	"time"
)

// Stream is a decoded audio clip downmixed to mono.
//
// Samples are normalized to [-1, 1] in playback order. Channels keeps the
// channel count of the source file for reporting; the samples themselves are
// always mono. A Stream is built once by the decoder and never mutated.
type Stream struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Len returns the number of mono samples.
func (s *Stream) Len() int { return len(s.Samples) }

// Duration returns the playback length of the stream.
func (s *Stream) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(s.Samples)) / float64(s.SampleRate) * float64(time.Second))
}

// SamplesPerFrame returns how many samples one video frame spans at fps.
func (s *Stream) SamplesPerFrame(fps int) float64 {
	return float64(s.SampleRate) / float64(fps)
}

// FrameCount returns ceil(len(Samples) / SamplesPerFrame(fps)).
func (s *Stream) FrameCount(fps int) int {
	spf := s.SamplesPerFrame(fps)
	if spf <= 0 || len(s.Samples) == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(s.Samples)) / spf))
}
