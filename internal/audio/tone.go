package audio

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"

	"github.com/example/go-wavevid/internal/media"
)

// ToneOptions describes a sine test tone.
type ToneOptions struct {
	Frequency  float64 // Hz
	Amplitude  float64 // peak, in (0, 1]
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// DefaultToneOptions returns a two second 440 Hz mono tone at half scale.
func DefaultToneOptions() ToneOptions {
	return ToneOptions{
		Frequency:  440,
		Amplitude:  0.5,
		SampleRate: 44100,
		Channels:   1,
		Duration:   2 * time.Second,
	}
}

func (o ToneOptions) validate() error {
	switch {
	case o.SampleRate < 1:
		return fmt.Errorf("invalid sample rate: %d", o.SampleRate)
	case o.Channels < 1:
		return fmt.Errorf("invalid channel count: %d", o.Channels)
	case o.Frequency <= 0:
		return fmt.Errorf("invalid frequency: %g", o.Frequency)
	case o.Amplitude <= 0 || o.Amplitude > 1:
		return fmt.Errorf("amplitude %g out of range (0, 1]", o.Amplitude)
	case o.Duration <= 0:
		return fmt.Errorf("invalid duration: %s", o.Duration)
	}

	return nil
}

// NumFrames returns the number of sample frames the tone spans.
func (o ToneOptions) NumFrames() int {
	return int(float64(o.SampleRate) * o.Duration.Seconds())
}

// Tone synthesizes the tone as interleaved samples, identical on every channel.
func Tone(opts ToneOptions) ([]float32, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	frames := opts.NumFrames()
	out := make([]float32, frames*opts.Channels)
	step := 2 * math.Pi * opts.Frequency / float64(opts.SampleRate)
	for i := range frames {
		v := float32(opts.Amplitude * math.Sin(step*float64(i)))
		for c := range opts.Channels {
			out[i*opts.Channels+c] = v
		}
	}

	return out, nil
}

// WriteTone encodes the tone as a 16-bit PCM WAV to ws.
func WriteTone(ws io.WriteSeeker, opts ToneOptions) error {
	samples, err := Tone(opts)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(ws, opts.SampleRate, PCMBitDepth, opts.Channels, FormatPCM)

	pcmBuf := &goaudio.Float32Buffer{
		Data:           samples,
		Format:         &goaudio.Format{SampleRate: opts.SampleRate, NumChannels: opts.Channels},
		SourceBitDepth: PCMBitDepth,
	}

	if err := enc.Write(pcmBuf); err != nil {
		return fmt.Errorf("%w: writing PCM: %w", media.ErrIO, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: closing encoder: %w", media.ErrIO, err)
	}

	return nil
}

// WriteToneFile writes the tone to path. Invalid options fail before the
// file is created.
func WriteToneFile(path string, opts ToneOptions) (err error) {
	if err := opts.validate(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", media.ErrIO, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %w", media.ErrIO, path, cerr)
		}
	}()

	return WriteTone(f, opts)
}
