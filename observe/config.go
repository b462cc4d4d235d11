package observe

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/httpinsights/secret"
)

// EnvPrefix is the prefix of every variable read by ConfigFromEnv.
const EnvPrefix = "INSIGHTS_"

// Config holds all configuration for the Observer.
//
// A Config is validated once, by NewObserver; an empty Tracing.Endpoint with
// an OTLP exporter falls back to the standard OTEL_EXPORTER_OTLP_* variables.
type Config struct {
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME" validate:"required"`
	Namespace   string `yaml:"namespace" env:"SERVICE_NAMESPACE"`
	Version     string `yaml:"version" env:"SERVICE_VERSION"`

	// CatchPanics makes Observer.Recover report panics before re-raising them.
	CatchPanics bool `yaml:"catch_panics" env:"CATCH_PANICS"`

	Tracing TracingConfig `yaml:"tracing" envPrefix:"TRACING_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOGGING_"`
}

// TracingConfig configures the tracing subsystem.
type TracingConfig struct {
	Enabled   bool              `yaml:"enabled" env:"ENABLED"`
	Exporter  string            `yaml:"exporter" env:"EXPORTER" validate:"omitempty,oneof=otlp otlphttp jaeger stdout none"`
	Endpoint  string            `yaml:"endpoint" env:"ENDPOINT"`
	Insecure  bool              `yaml:"insecure" env:"INSECURE"`
	Headers   map[string]string `yaml:"headers" env:"HEADERS" envKeyValSeparator:"="`
	SamplePct float64           `yaml:"sample_pct" env:"SAMPLE_PCT" envDefault:"1" validate:"gte=0,lte=1"` // 0.0-1.0
}

// MetricsConfig configures the metrics subsystem.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Exporter string `yaml:"exporter" env:"EXPORTER" validate:"omitempty,oneof=otlp prometheus stdout none"`
}

// LoggingConfig configures the logging subsystem.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Level   string `yaml:"level" env:"LEVEL" envDefault:"info" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a configuration with tracing fully sampled and
// info-level logging. Exporters are left disabled.
func DefaultConfig() Config {
	return Config{
		Tracing: TracingConfig{SamplePct: MaxSamplePct},
		Logging: LoggingConfig{Level: "info"},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	fe := verrs[0]
	switch fe.StructNamespace() {
	case "Config.ServiceName":
		return ErrMissingServiceName
	case "Config.Tracing.SamplePct":
		return fmt.Errorf("%w, got: %v", ErrInvalidSamplePct, fe.Value())
	case "Config.Tracing.Exporter":
		return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, fe.Value())
	case "Config.Metrics.Exporter":
		return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, fe.Value())
	case "Config.Logging.Level":
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, fe.Value())
	default:
		return fmt.Errorf("%w: %s failed %q", ErrInvalidConfig, fe.StructNamespace(), fe.Tag())
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML configuration on top of DefaultConfig and
// validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConfigFromEnv reads configuration from INSIGHTS_* environment variables,
// e.g. INSIGHTS_SERVICE_NAME or INSIGHTS_TRACING_EXPORTER.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve returns a copy of c with secret references and ${VAR} expansions
// in the tracing endpoint and headers resolved.
func (c *Config) Resolve(ctx context.Context, r *secret.Resolver) (Config, error) {
	out := *c

	endpoint, err := r.ResolveValue(ctx, c.Tracing.Endpoint)
	if err != nil {
		return Config{}, fmt.Errorf("resolve tracing endpoint: %w", err)
	}
	out.Tracing.Endpoint = endpoint

	headers, err := r.ResolveMap(ctx, c.Tracing.Headers)
	if err != nil {
		return Config{}, fmt.Errorf("resolve tracing headers: %w", err)
	}
	out.Tracing.Headers = headers

	return out, nil
}
