package cache

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Report formats.
const (
	ReportFormatTable = "table"
	ReportFormatJSON  = "json"
	ReportFormatLog   = "log"
)

// Report outputs.
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
// CALLCACHE_REPORT_FORMAT maps to report.format.
const EnvPrefix = "CALLCACHE"

var metricNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config exposes the options of the memoization layer.
type Config struct {
	// Enabled turns interception on. When false every call goes straight
	// to the target and nothing is recorded.
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// MaxDepth bounds how deep argument values are normalized.
	MaxDepth int `mapstructure:"max_depth" json:"max_depth"`

	Report  ReportConfig  `mapstructure:"report" json:"report"`
	Log     LogConfig     `mapstructure:"log" json:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics"`
}

// ReportConfig controls the report emitted when a scope ends.
type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Format  string `mapstructure:"format" json:"format"`
	Color   bool   `mapstructure:"color" json:"color"`
	Output  string `mapstructure:"output" json:"output"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string        `mapstructure:"level" json:"level"`
	Encoding    string        `mapstructure:"encoding" json:"encoding"`
	Development bool          `mapstructure:"development" json:"development"`
	File        LogFileConfig `mapstructure:"file" json:"file"`
}

// LogFileConfig enables rotated file output when Path is set.
type LogFileConfig struct {
	Path       string `mapstructure:"path" json:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" json:"max_age_days"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" json:"enabled"`
	Namespace string `mapstructure:"namespace" json:"namespace"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		MaxDepth: DefaultMaxDepth,
		Report: ReportConfig{
			Enabled: true,
			Format:  ReportFormatTable,
			Color:   true,
			Output:  OutputStdout,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
			File: LogFileConfig{
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Metrics: MetricsConfig{
			Namespace: "callcache",
		},
	}
}

// Validate checks whether the configuration values are valid.
// Every failing field is reported as a *ConfigError, combined with multierr.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.MaxDepth, validation.Required, validation.Min(1), validation.Max(1024)),
		validation.Field(&c.Report),
		validation.Field(&c.Log),
		validation.Field(&c.Metrics),
	)
	return toConfigErrors(err)
}

// Validate implements validation.Validatable.
func (r ReportConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Format, validation.Required, validation.In(ReportFormatTable, ReportFormatJSON, ReportFormatLog)),
		validation.Field(&r.Output, validation.Required, validation.In(OutputStdout, OutputStderr)),
	)
}

// Validate implements validation.Validatable.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Encoding, validation.Required, validation.In("console", "json")),
		validation.Field(&l.File),
	)
}

// Validate implements validation.Validatable.
func (f LogFileConfig) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.MaxSizeMB, validation.Min(0)),
		validation.Field(&f.MaxBackups, validation.Min(0)),
		validation.Field(&f.MaxAgeDays, validation.Min(0)),
	)
}

// Validate implements validation.Validatable.
func (m MetricsConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Namespace,
			validation.Required.When(m.Enabled),
			validation.Match(metricNamePattern),
		),
	)
}

// LoadConfig reads defaults, then the optional file at path (YAML, JSON or
// TOML by extension), then CALLCACHE_* environment variables.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("callcache: read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("callcache: decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("callcache: invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("enabled", cfg.Enabled)
	v.SetDefault("max_depth", cfg.MaxDepth)

	v.SetDefault("report.enabled", cfg.Report.Enabled)
	v.SetDefault("report.format", cfg.Report.Format)
	v.SetDefault("report.color", cfg.Report.Color)
	v.SetDefault("report.output", cfg.Report.Output)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.encoding", cfg.Log.Encoding)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.file.path", cfg.Log.File.Path)
	v.SetDefault("log.file.max_size_mb", cfg.Log.File.MaxSizeMB)
	v.SetDefault("log.file.max_backups", cfg.Log.File.MaxBackups)
	v.SetDefault("log.file.max_age_days", cfg.Log.File.MaxAgeDays)
	v.SetDefault("log.file.compress", cfg.Log.File.Compress)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// toConfigErrors flattens nested ozzo errors into ConfigErrors keyed by dotted path.
func toConfigErrors(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var flat []*ConfigError
	flattenErrors("", fieldErrs, &flat)
	sort.Slice(flat, func(i, j int) bool { return flat[i].Field < flat[j].Field })

	var combined error
	for _, ce := range flat {
		combined = multierr.Append(combined, ce)
	}
	return combined
}

func flattenErrors(prefix string, errs validation.Errors, out *[]*ConfigError) {
	for field, err := range errs {
		name := field
		if prefix != "" {
			name = prefix + "." + field
		}

		var nested validation.Errors
		if errors.As(err, &nested) {
			flattenErrors(name, nested, out)
			continue
		}
		*out = append(*out, &ConfigError{Field: name, Message: err.Error()})
	}
}
