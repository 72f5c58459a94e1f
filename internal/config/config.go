// Package config loads client configuration by merging embedded
// defaults, an optional YAML file, and NORC_-prefixed environment
// variables, then validating the result.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Shugur-Network/norc/internal/logger"
)

//go:embed defaults.yaml
var defaultYAML []byte

// Version is set from build information by the main package.
var Version = "dev"

// SetVersion sets the version from build information.
func SetVersion(v string) { Version = v }

var validate = validator.New()

var hexRe = regexp.MustCompile(`^[a-f0-9]+$`)

// Config holds every sub-config.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"  validate:"required"`
	Client   ClientConfig   `mapstructure:"client"   validate:"required"`
	Identity IdentityConfig `mapstructure:"identity"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  validate:"required"`
}

func init() {
	registerCustomValidators()
}

func registerCustomValidators() {
	mustRegister("relayurl", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		if err != nil {
			return false
		}
		return (u.Scheme == "ws" || u.Scheme == "wss") && u.Host != ""
	})

	mustRegister("pubkey", func(fl validator.FieldLevel) bool {
		key := fl.Field().String()
		return len(key) == 64 && hexRe.MatchString(key)
	})

	mustRegister("seckey", func(fl validator.FieldLevel) bool {
		key := fl.Field().String()
		if strings.HasPrefix(key, "nsec") {
			return len(key) > 4
		}
		return len(key) == 64 && hexRe.MatchString(key)
	})

	mustRegister("timeout_duration", func(fl validator.FieldLevel) bool {
		d := fl.Field().Interface().(time.Duration)
		return d >= time.Second && d <= time.Hour
	})

	mustRegister("log_level", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "debug", "info", "warn", "error", "fatal":
			return true
		}
		return false
	})

	mustRegister("log_format", func(fl validator.FieldLevel) bool {
		f := fl.Field().String()
		return f == "console" || f == "json"
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		logger.Error("failed to register validator", zap.String("tag", tag), zap.Error(err))
	}
}

// Load merges defaults, an optional file, and env vars, validates,
// and initializes the logger from the result.
func Load(path string, log *zap.Logger) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("NORC") // NORC_CLIENT_COLLECT_TIMEOUT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewReader(defaultYAML)); err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.MergeInConfig(); err == nil && log != nil {
			log.Info("loaded config.yaml from current directory")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, formatValidationError(err)
	}

	if err := initializeLogger(cfg.Logging); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return &cfg, nil
}

func initializeLogger(lc LoggingConfig) error {
	return logger.Init(
		logger.WithLevel(lc.Level),
		logger.WithFormat(lc.Format),
		logger.WithFile(lc.FilePath),
		logger.WithVersion(Version),
		logger.WithRotation(lc.MaxSize, lc.MaxBackups, lc.MaxAge),
	)
}

// formatValidationError converts validator errors into readable
// messages.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fieldErrorMessage(fe))
	}
	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(messages, "\n  - "))
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required but not provided", field)
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s (got: %v)", field, fe.Tag(), fe.Param(), fe.Value())
	case "relayurl":
		return fmt.Sprintf("%s must be a ws:// or wss:// URL (got: %v)", field, fe.Value())
	case "pubkey":
		return fmt.Sprintf("%s must be 64 lowercase hex characters (got: %v)", field, fe.Value())
	case "seckey":
		return fmt.Sprintf("%s must be 64 hex characters or an nsec string", field)
	case "timeout_duration":
		return fmt.Sprintf("%s must be between 1 second and 1 hour (got: %v)", field, fe.Value())
	case "log_level":
		return fmt.Sprintf("%s must be one of: debug, info, warn, error, fatal (got: %v)", field, fe.Value())
	case "log_format":
		return fmt.Sprintf("%s must be either 'console' or 'json' (got: %v)", field, fe.Value())
	default:
		return fmt.Sprintf("%s validation failed: %s (got: %v)", field, fe.Tag(), fe.Value())
	}
}
