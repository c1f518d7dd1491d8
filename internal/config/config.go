package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "mptcli/internal/errors"
	"mptcli/pkg/contracts/domain"
)

// EnvPrefix namespaces every environment override (MPT_PIPELINE_DELTA_TIME, ...)
const EnvPrefix = "MPT"

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"eq=json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// PipelineConfig controls the per-file processing stages.
// Thresholds are pointers so that an unset value can be told apart from 0.
type PipelineConfig struct {
	DeltaTime       *float64 `yaml:"delta_time" envconfig:"DELTA_TIME" validate:"omitempty,gte=0"`
	DeltaPotential  *float64 `yaml:"delta_pot" envconfig:"DELTA_POT" validate:"omitempty,gte=0"`
	Columns         []string `yaml:"columns" envconfig:"COLUMNS" validate:"omitempty,dive,required"`
	ShiftTimeToZero bool     `yaml:"shift_time_to_zero" envconfig:"SHIFT_TIME_TO_ZERO"`
	Workers         int      `yaml:"workers" envconfig:"WORKERS" validate:"gt=0,lte=64"`
}

// TelemetryConfig selects the trace and metrics exporters
type TelemetryConfig struct {
	Environment     string `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter   string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	MetricsExporter string `yaml:"metrics_exporter" envconfig:"METRICS_EXPORTER" validate:"oneof=none prometheus"`
	MetricsFile     string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
// The thresholds match the batch defaults of the lab's processing scripts.
func DefaultConfig() *Config {
	deltaTime, deltaPot := 10.0, 0.01
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/mptprocess.log",
		},
		Pipeline: PipelineConfig{
			DeltaTime:      &deltaTime,
			DeltaPotential: &deltaPot,
			Columns:        append([]string(nil), domain.DefaultColumns...),
			Workers:        4,
		},
		Telemetry: TelemetryConfig{
			Environment:     "development",
			TraceExporter:   "none",
			MetricsExporter: "none",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and MPT_* environment variables, in that order of
// increasing precedence, then validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config file", err).WithContext("path", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file keep their value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation in one ConfigError
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewConfigError("config validation failed", err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed '%s' (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return apperrors.NewConfigError("config validation failed: "+strings.Join(problems, "; "), err).
		WithContext("fields", len(fieldErrs))
}
