package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, doc map[string]any) string {
	t.Helper()
	b, err := yaml.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"output": map[string]any{
			"output_format":      "SQLite3",
			"output_size":        "all",
			"position_decimals":  7,
			"magnitude_decimals": 0,
		},
		"lightcurve": map[string]any{"model": "sinusoidal"},
		"simulation": map[string]any{"chunk_size": 50},
		"log":        map[string]any{"level": "debug"},
	})

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, FormatSQLite, cfg.Output.Format)
	assert.Equal(t, SizeAll, cfg.Output.Size)
	require.NotNil(t, cfg.Output.PositionDecimals)
	assert.Equal(t, 7, *cfg.Output.PositionDecimals)
	require.NotNil(t, cfg.Output.MagnitudeDecimals, "explicit 0 is distinct from unset")
	assert.Equal(t, 0, *cfg.Output.MagnitudeDecimals)
	assert.Equal(t, "sinusoidal", cfg.Lightcurve.Model)
	assert.Equal(t, 50, cfg.Simulation.ChunkSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, map[string]any{"log": map[string]any{"file": "-"}})

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, cfg.Output.Format)
	assert.Equal(t, SizeBasic, cfg.Output.Size)
	assert.Nil(t, cfg.Output.PositionDecimals)
	assert.Nil(t, cfg.Output.MagnitudeDecimals)
	assert.Equal(t, 10, cfg.Simulation.ChunkSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_UnknownFormat(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"output": map[string]any{"output_format": "xml"},
	})

	_, err := LoadConfig(path, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))

	var ve *ValueError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "output.output_format", ve.Key)
	assert.Equal(t, `invalid output.output_format "xml": must be one of csv, sqlite3, hdf5, h5`, err.Error())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"output": map[string]any{"output_format": "csv"},
	})

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("output-format", "", "")
	fs.Int("position-decimals", 0, "")
	fs.Int("chunk-size", 0, "")
	require.NoError(t, fs.Parse([]string{"--output-format", "h5", "--position-decimals", "3"}))

	cfg, err := LoadConfig(path, fs)
	require.NoError(t, err)
	assert.Equal(t, FormatH5, cfg.Output.Format)
	require.NotNil(t, cfg.Output.PositionDecimals)
	assert.Equal(t, 3, *cfg.Output.PositionDecimals)
	// chunk-size was not changed on the command line, so the default stands.
	assert.Equal(t, 10, cfg.Simulation.ChunkSize)
}

func TestLoadConfig_Env(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"output": map[string]any{"output_format": "csv"},
	})
	t.Setenv("SURVEYSIM_OUTPUT_OUTPUT_SIZE", "all")
	t.Setenv("SURVEYSIM_OUTPUT_MAGNITUDE_DECIMALS", "4")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, SizeAll, cfg.Output.Size)
	require.NotNil(t, cfg.Output.MagnitudeDecimals)
	assert.Equal(t, 4, *cfg.Output.MagnitudeDecimals)
}

func TestLoadConfig_EnvMalformedDecimals(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"output": map[string]any{"output_format": "csv"},
	})

	for _, raw := range []string{"abc", "3.7", "three"} {
		t.Run(raw, func(t *testing.T) {
			t.Setenv("SURVEYSIM_OUTPUT_POSITION_DECIMALS", raw)

			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)

			var ve *ValueError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "output.position_decimals", ve.Key)
			assert.Equal(t, raw, ve.Value)
			assert.Contains(t, err.Error(), "must be an integer")
		})
	}
}

func TestOutputConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  OutputConfig
		key  string
	}{
		{"ok", OutputConfig{Format: FormatHDF5, Size: SizeAll}, ""},
		{"bad format", OutputConfig{Format: "parquet", Size: SizeAll}, "output.output_format"},
		{"bad size", OutputConfig{Format: FormatCSV, Size: "medium"}, "output.output_size"},
		{"negative position", OutputConfig{Format: FormatCSV, Size: SizeBasic, PositionDecimals: Decimals(-1)}, "output.position_decimals"},
		{"negative magnitude", OutputConfig{Format: FormatCSV, Size: SizeBasic, MagnitudeDecimals: Decimals(-2)}, "output.magnitude_decimals"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.key == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValueError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.key, ve.Key)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{
		Output:     OutputConfig{Format: FormatCSV, Size: SizeBasic},
		Simulation: SimulationConfig{ChunkSize: 0},
		Log:        LogConfig{Level: "info"},
	}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.Simulation.ChunkSize = 5
	cfg.Log.Level = "verbose"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.Log.Level = "warn"
	assert.NoError(t, cfg.Validate())
}
