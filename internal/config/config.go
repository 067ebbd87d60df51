package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all harness configuration. Values resolve in order: defaults,
// optional config file, environment variables, then CLI flags on top.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Replay  ReplayConfig  `mapstructure:"replay"`
	SLO     SLOConfig     `mapstructure:"slo"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig identifies the inference server under test
type ServerConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port string `mapstructure:"port" validate:"required"`
}

// ReplayConfig holds request scheduling and retry configuration
type ReplayConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxConcurrency int           `mapstructure:"max_concurrency" validate:"gte=0"` // 0 = one task per record
	MaxRetries     int           `mapstructure:"max_retries" validate:"gte=0"`     // 0 = retry forever
	MaxRPS         float64       `mapstructure:"max_rps" validate:"gte=0"`         // 0 = no rate limit
}

// SLOConfig holds the base latency thresholds in seconds
type SLOConfig struct {
	BaseTTFT float64 `mapstructure:"base_ttft" validate:"gt=0"`
	BaseTPOT float64 `mapstructure:"base_tpot" validate:"gt=0"`
}

// OutputConfig holds result persistence configuration
type OutputConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// MetricsConfig holds the optional Prometheus listen address
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the endpoint
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// GenerateURL returns the full /generate endpoint URL.
func (c *Config) GenerateURL() string {
	return fmt.Sprintf("http://%s:%s/generate", c.Server.Host, c.Server.Port)
}

// Load loads configuration from an optional file and the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SLOBENCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8000")

	// Replay defaults
	v.SetDefault("replay.request_timeout", 3*time.Hour)
	v.SetDefault("replay.max_concurrency", 0)
	v.SetDefault("replay.max_retries", 0)
	v.SetDefault("replay.max_rps", 0.0)

	// SLO defaults
	v.SetDefault("slo.base_ttft", 0.3)
	v.SetDefault("slo.base_tpot", 0.1)

	// Output defaults
	v.SetDefault("output.path", "logs/results.json")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func bindEnvVars(v *viper.Viper) {
	// Helper to bind and log errors (BindEnv errors are non-fatal but should be logged)
	bindEnv := func(key string, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			slog.Warn("failed to bind environment variable",
				slog.String("key", key),
				slog.String("env_var", envVar),
				slog.String("error", err.Error()))
		}
	}

	bindEnv("server.host", "SLOBENCH_HOST")
	bindEnv("server.port", "SLOBENCH_PORT")
	bindEnv("output.path", "SLOBENCH_OUTPUT")
	bindEnv("metrics.addr", "SLOBENCH_METRICS_ADDR")
	bindEnv("logging.level", "LOG_LEVEL")
	bindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: field %s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
