package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mptcli/internal/errors"
	"mptcli/pkg/contracts/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mpt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg.Pipeline.DeltaTime)
	require.NotNil(t, cfg.Pipeline.DeltaPotential)
	assert.Equal(t, 10.0, *cfg.Pipeline.DeltaTime)
	assert.Equal(t, 0.01, *cfg.Pipeline.DeltaPotential)
	assert.Equal(t, domain.DefaultColumns, cfg.Pipeline.Columns)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.False(t, cfg.Pipeline.ShiftTimeToZero)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
	assert.Equal(t, "none", cfg.Telemetry.MetricsExporter)
	assert.NoError(t, cfg.Validate())

	cfg.Pipeline.Columns[0] = "changed"
	assert.NotEqual(t, "changed", domain.DefaultColumns[0], "defaults are copied")
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		env         map[string]string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without file or env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, *DefaultConfig(), *cfg)
			},
		},
		{
			name: "file overrides defaults",
			file: "pipeline:\n  delta_time: 2.5\n  shift_time_to_zero: true\n  columns: [time/s, Ewe-Ece/V]\nlogging:\n  level: debug\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2.5, *cfg.Pipeline.DeltaTime)
				assert.Equal(t, 0.01, *cfg.Pipeline.DeltaPotential, "absent keys keep the default")
				assert.True(t, cfg.Pipeline.ShiftTimeToZero)
				assert.Equal(t, []string{"time/s", "Ewe-Ece/V"}, cfg.Pipeline.Columns)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Output)
			},
		},
		{
			name: "env overrides file",
			file: "pipeline:\n  delta_time: 2.5\n  workers: 2\n",
			env: map[string]string{
				"MPT_PIPELINE_DELTA_TIME":        "7",
				"MPT_PIPELINE_DELTA_POT":         "0.5",
				"MPT_PIPELINE_COLUMNS":           "time/s,I/mA",
				"MPT_TELEMETRY_METRICS_EXPORTER": "prometheus",
				"MPT_TELEMETRY_METRICS_FILE":     "out.prom",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7.0, *cfg.Pipeline.DeltaTime)
				assert.Equal(t, 0.5, *cfg.Pipeline.DeltaPotential)
				assert.Equal(t, 2, cfg.Pipeline.Workers)
				assert.Equal(t, []string{"time/s", "I/mA"}, cfg.Pipeline.Columns)
				assert.Equal(t, "prometheus", cfg.Telemetry.MetricsExporter)
				assert.Equal(t, "out.prom", cfg.Telemetry.MetricsFile)
			},
		},
		{
			name: "zero thresholds are allowed",
			file: "pipeline:\n  delta_time: 0\n  delta_pot: 0\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0.0, *cfg.Pipeline.DeltaTime)
				assert.Equal(t, 0.0, *cfg.Pipeline.DeltaPotential)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, err := Load(path)
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		missing bool
		message string
	}{
		{name: "missing file", missing: true, message: "failed to load config file"},
		{name: "malformed yaml", file: "pipeline: [", message: "failed to load config file"},
		{name: "unknown key", file: "pipeline:\n  delta_tme: 1\n", message: "failed to load config file"},
		{name: "negative threshold", file: "pipeline:\n  delta_pot: -1\n", message: "DeltaPotential"},
		{name: "too many workers", file: "pipeline:\n  workers: 65\n", message: "Workers"},
		{name: "zero workers", env: map[string]string{"MPT_PIPELINE_WORKERS": "0"}, message: "Workers"},
		{name: "unparseable env", env: map[string]string{"MPT_PIPELINE_WORKERS": "many"}, message: "failed to load config from env"},
		{name: "unknown exporter", env: map[string]string{"MPT_TELEMETRY_TRACE_EXPORTER": "otlp"}, message: "TraceExporter"},
		{name: "file output without path", file: "logging:\n  output: file\n  file_path: \"\"\n", message: "FilePath"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			switch {
			case tt.missing:
				path = filepath.Join(t.TempDir(), "absent.yaml")
			case tt.file != "":
				path = writeConfig(t, tt.file)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrConfig))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
