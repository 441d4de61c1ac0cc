package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Render   RenderConfig `mapstructure:"render"`
	Tone     ToneConfig   `mapstructure:"tone"`
}

type RenderConfig struct {
	// Workers is the number of frames rasterized concurrently. Zero or less
	// selects GOMAXPROCS.
	Workers int `mapstructure:"workers"`
}

type ToneConfig struct {
	Frequency  float64       `mapstructure:"frequency"`
	Amplitude  float64       `mapstructure:"amplitude"`
	SampleRate int           `mapstructure:"sample_rate"`
	Channels   int           `mapstructure:"channels"`
	Duration   time.Duration `mapstructure:"duration"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// flagKeys maps command-line flags to their config keys.
var flagKeys = map[string]string{
	"log-level":        "log_level",
	"workers":          "render.workers",
	"tone-frequency":   "tone.frequency",
	"tone-amplitude":   "tone.amplitude",
	"tone-sample-rate": "tone.sample_rate",
	"tone-channels":    "tone.channels",
	"tone-duration":    "tone.duration",
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Render: RenderConfig{
			Workers: 0,
		},
		Tone: ToneConfig{
			Frequency:  440,
			Amplitude:  0.5,
			SampleRate: 44100,
			Channels:   1,
			Duration:   2 * time.Second,
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.Int("workers", defaults.Render.Workers, "Frames rasterized concurrently (0 = GOMAXPROCS)")
	fs.Float64("tone-frequency", defaults.Tone.Frequency, "Test tone frequency in Hz")
	fs.Float64("tone-amplitude", defaults.Tone.Amplitude, "Test tone peak amplitude (0, 1]")
	fs.Int("tone-sample-rate", defaults.Tone.SampleRate, "Test tone sample rate in Hz")
	fs.Int("tone-channels", defaults.Tone.Channels, "Test tone channel count")
	fs.Duration("tone-duration", defaults.Tone.Duration, "Test tone length")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("WAVEVID")
	replacer := strings.NewReplacer("-", "_", ".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("wavevid")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("render.workers", c.Render.Workers)
	v.SetDefault("tone.frequency", c.Tone.Frequency)
	v.SetDefault("tone.amplitude", c.Tone.Amplitude)
	v.SetDefault("tone.sample_rate", c.Tone.SampleRate)
	v.SetDefault("tone.channels", c.Tone.Channels)
	v.SetDefault("tone.duration", c.Tone.Duration)
}

// bindFlags binds each registered flag to its nested key, so an explicit
// flag beats env and config file values while an unset one does not.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	return nil
}
