package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/example/go-wavevid/internal/config"
	"github.com/example/go-wavevid/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "wavevid <input.wav> <output.avi>",
		Short: "Render a WAV file as a waveform video",
		Long: "Render a 16-bit PCM WAV file as an uncompressed 1280x720 AVI at 30 fps,\n" +
			"one frame of scrolling waveform per 1/30 s of audio.",
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.LogLevel)
			return nil
		},
		RunE: runRender,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newToneCmd())
	cmd.AddCommand(newProbeCmd())
	cmd.AddCommand(newBenchCmd())

	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	res, err := pipeline.Run(cmd.Context(), pipeline.Options{
		Input:   args[0],
		Output:  args[1],
		Workers: cfg.Render.Workers,
		Logger:  slog.Default(),
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d frames to %s\n", res.Frames, res.Output)
	return err
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	slog.SetDefault(config.NewLogger(os.Stderr, levelStr))
}

func requireConfig() (config.Config, error) {
	if activeCfg.LogLevel == "" {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return activeCfg, nil
}
