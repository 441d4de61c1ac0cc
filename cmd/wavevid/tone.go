package main

import (
	"fmt"

	"github.com/example/go-wavevid/internal/audio"
	"github.com/spf13/cobra"
)

func newToneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tone <out.wav>",
		Short: "Write a sine test tone as 16-bit PCM WAV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			opts := audio.ToneOptions{
				Frequency:  cfg.Tone.Frequency,
				Amplitude:  cfg.Tone.Amplitude,
				SampleRate: cfg.Tone.SampleRate,
				Channels:   cfg.Tone.Channels,
				Duration:   cfg.Tone.Duration,
			}
			if err := audio.WriteToneFile(args[0], opts); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %g Hz tone (%s, %d Hz, %d ch) to %s\n",
				opts.Frequency, opts.Duration, opts.SampleRate, opts.Channels, args[0])
			return err
		},
	}
}
