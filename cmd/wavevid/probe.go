package main

import (
	"fmt"
	"io"
	"os"

	"github.com/example/go-wavevid/internal/audio"
	"github.com/example/go-wavevid/internal/avi"
	"github.com/example/go-wavevid/internal/media"
	"github.com/example/go-wavevid/internal/raster"
	"github.com/spf13/cobra"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Describe a WAV input or verify an AVI output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return probe(cmd.OutOrStdout(), args[0])
		},
	}
}

func probe(w io.Writer, path string) error {
	form, err := riffForm(path)
	if err != nil {
		return err
	}

	switch form {
	case "WAVE":
		return probeWAV(w, path)
	case "AVI ":
		return probeAVI(w, path)
	default:
		return fmt.Errorf("%s: unsupported RIFF form %q", path, form)
	}
}

// riffForm returns the form type of a RIFF file.
func riffForm(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", media.ErrIO, path, err)
	}
	defer f.Close()

	var head [12]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return "", fmt.Errorf("%s: not a RIFF file", path)
	}
	if string(head[:4]) != "RIFF" {
		return "", fmt.Errorf("%s: not a RIFF file (magic %q)", path, head[:4])
	}

	return string(head[8:]), nil
}

func probeWAV(w io.Writer, path string) error {
	stream, err := audio.DecodeFile(path)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w,
		"file:        %s\nformat:      WAVE PCM 16-bit\nsample rate: %d Hz\nchannels:    %d\nsamples:     %d (mono)\nduration:    %s\nframes:      %d at %d fps\n",
		path, stream.SampleRate, stream.Channels, stream.Len(), stream.Duration(),
		stream.FrameCount(raster.FPS), raster.FPS)
	return err
}

func probeAVI(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", media.ErrIO, path, err)
	}
	defer f.Close()

	info, err := avi.Inspect(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	_, err = fmt.Fprintf(w,
		"file:        %s\nformat:      AVI %dx%d %d-bit %s\nframe rate:  %g fps\nframes:      %d (chunks %d, index %d)\nduration:    %s\nsize:        %d bytes, layout ok\n",
		path, info.Width, info.Height, info.BitCount, info.Handler, info.FPS(),
		info.TotalFrames, info.Chunks, len(info.Index), info.Duration(), info.FileSize)
	return err
}
