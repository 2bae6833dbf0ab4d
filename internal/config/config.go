package config

import (
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string      `envconfig:"KAFKA_BROKERS" default:"localhost:9092" validate:"required,min=1,dive,required"`
	KafkaSourceTopic string        `envconfig:"KAFKA_SOURCE_TOPIC" default:"radar-archives" validate:"required"`
	KafkaSinkTopic   string        `envconfig:"KAFKA_SINK_TOPIC" default:"radar-scans" validate:"required"`
	KafkaGroupID     string        `envconfig:"KAFKA_GROUP_ID" default:"nexrad-cdm-etl" validate:"required"`
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat        string        `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	BatchSize          int           `envconfig:"BATCH_SIZE" default:"10" validate:"min=1,max=1000"`
	BatchFlushInterval time.Duration `envconfig:"BATCH_FLUSH_INTERVAL" default:"500ms" validate:"gt=0"`

	// Decoding.
	DecodeConcurrency int               `envconfig:"DECODE_CONCURRENCY" default:"4" validate:"min=1,max=64"`
	StagingDir        string            `envconfig:"STAGING_DIR"`
	FieldAliases      map[string]string `envconfig:"FIELD_ALIASES"`

	// Mapbox geocoding configuration. MapboxEnabled defaults to true when a
	// token is present and MAPBOX_ENABLED is unset.
	MapboxToken     string        `envconfig:"MAPBOX_TOKEN"`
	MapboxEnabled   bool          `envconfig:"MAPBOX_ENABLED"`
	MapboxTimeout   time.Duration `envconfig:"MAPBOX_TIMEOUT" default:"5s" validate:"gt=0"`
	MapboxCacheSize int           `envconfig:"MAPBOX_CACHE_SIZE" default:"1000" validate:"min=1"`
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrParsing    ConfigErrorType = "PARSING_FAILED"
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)

// ConfigError is returned by Load when the environment cannot produce a
// usable Config.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is loaded first if
// present; it never overrides variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Type: ErrParsing, Message: "failed to process environment configuration", Err: err}
	}

	if _, set := os.LookupEnv("MAPBOX_ENABLED"); !set {
		cfg.MapboxEnabled = cfg.MapboxToken != ""
	}

	validate := validator.New()
	// Report failures by environment variable name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("envconfig")
	})
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{Type: ErrValidation, Message: "configuration validation failed", Err: err}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, &ConfigError{Type: ErrValidation, Message: "MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set"}
	}
	for src, dst := range cfg.FieldAliases {
		if src == "" || dst == "" {
			return nil, &ConfigError{Type: ErrValidation, Message: fmt.Sprintf("FIELD_ALIASES entry %q:%q is incomplete", src, dst)}
		}
	}

	return &cfg, nil
}
