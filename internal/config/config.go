// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Output formats.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite3"
	FormatHDF5   = "hdf5"
	FormatH5     = "h5"
)

// Output column projections.
const (
	SizeBasic = "basic"
	SizeAll   = "all"
)

var (
	Formats   = []string{FormatCSV, FormatSQLite, FormatHDF5, FormatH5}
	Sizes     = []string{SizeBasic, SizeAll}
	LogLevels = []string{"debug", "info", "warn", "error"}
)

// ErrInvalid matches every configuration validation error.
var ErrInvalid = errors.New("invalid configuration")

// ValueError names a configuration key holding an unacceptable value.
type ValueError struct {
	Key      string
	Value    any
	Accepted []string // accepted values, if the set is closed
	Reason   string   // used when Accepted is empty
}

func (e *ValueError) Error() string {
	if len(e.Accepted) > 0 {
		return fmt.Sprintf("invalid %s %q: must be one of %s", e.Key, fmt.Sprint(e.Value), strings.Join(e.Accepted, ", "))
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Key, e.Value, e.Reason)
}

func (e *ValueError) Is(target error) bool {
	return target == ErrInvalid
}

// Config defines the global configuration structure
type Config struct {
	Output     OutputConfig     `mapstructure:"output"`
	Lightcurve LightcurveConfig `mapstructure:"lightcurve"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Log        LogConfig        `mapstructure:"log"`
}

// OutputConfig selects how chunk results are shaped and stored.
// A nil decimals pointer means no rounding; 0 rounds to whole numbers.
type OutputConfig struct {
	Format            string `mapstructure:"output_format"`
	Size              string `mapstructure:"output_size"`
	PositionDecimals  *int   `mapstructure:"position_decimals"`
	MagnitudeDecimals *int   `mapstructure:"magnitude_decimals"`
}

// LightcurveConfig selects the brightness model. Empty means none.
type LightcurveConfig struct {
	Model string `mapstructure:"model"`
}

// SimulationConfig defines chunking of the object catalog.
type SimulationConfig struct {
	ChunkSize int `mapstructure:"chunk_size"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// Decimals returns a pointer to n, for building an OutputConfig in code.
func Decimals(n int) *int {
	return &n
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"output-format":      "output.output_format",
	"output-size":        "output.output_size",
	"position-decimals":  "output.position_decimals",
	"magnitude-decimals": "output.magnitude_decimals",
	"lightcurve":         "lightcurve.model",
	"chunk-size":         "simulation.chunk_size",
	"log-level":          "log.level",
	"log-file":           "log.file",
}

// LoadConfig loads configuration from file, environment (SURVEYSIM_*) and
// any changed flags in fs, then validates it.
func LoadConfig(configFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/surveysim/")
		v.AddConfigPath("$HOME/.surveysim")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("output.output_format", FormatCSV)
	v.SetDefault("output.output_size", SizeBasic)
	v.SetDefault("simulation.chunk_size", 10)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("SURVEYSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment variables are not seen by Unmarshal for keys that are
	// absent from the file, so the optional decimals are read explicitly.
	for key, dst := range map[string]**int{
		"output.position_decimals":  &config.Output.PositionDecimals,
		"output.magnitude_decimals": &config.Output.MagnitudeDecimals,
	} {
		raw := v.Get(key)
		if *dst != nil || raw == nil {
			continue
		}
		n, err := cast.ToIntE(raw)
		if err != nil {
			return nil, &ValueError{Key: key, Value: raw, Reason: "must be an integer"}
		}
		*dst = Decimals(n)
	}

	config.Output.Format = strings.ToLower(strings.TrimSpace(config.Output.Format))
	config.Output.Size = strings.ToLower(strings.TrimSpace(config.Output.Size))
	config.Log.Level = strings.ToLower(config.Log.Level)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks every field with a closed value set.
func (c *Config) Validate() error {
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if c.Simulation.ChunkSize <= 0 {
		return &ValueError{Key: "simulation.chunk_size", Value: c.Simulation.ChunkSize, Reason: "must be positive"}
	}
	if !contains(LogLevels, c.Log.Level) {
		return &ValueError{Key: "log.level", Value: c.Log.Level, Accepted: LogLevels}
	}
	return nil
}

// Validate checks the output settings. It performs no I/O.
func (o *OutputConfig) Validate() error {
	if !contains(Formats, o.Format) {
		return &ValueError{Key: "output.output_format", Value: o.Format, Accepted: Formats}
	}
	if err := ValidateSize(o.Size); err != nil {
		return err
	}
	if o.PositionDecimals != nil && *o.PositionDecimals < 0 {
		return &ValueError{Key: "output.position_decimals", Value: *o.PositionDecimals, Reason: "must not be negative"}
	}
	if o.MagnitudeDecimals != nil && *o.MagnitudeDecimals < 0 {
		return &ValueError{Key: "output.magnitude_decimals", Value: *o.MagnitudeDecimals, Reason: "must not be negative"}
	}
	return nil
}

// ValidateSize checks an output_size value.
func ValidateSize(size string) error {
	if !contains(Sizes, size) {
		return &ValueError{Key: "output.output_size", Value: size, Accepted: Sizes}
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
