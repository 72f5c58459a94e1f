package config

import "time"

// ClientConfig holds relay-client settings.
type ClientConfig struct {
	// Relays are connected at startup; more can be added at runtime.
	Relays []string `mapstructure:"relays" json:"relays" validate:"omitempty,dive,relayurl"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout" validate:"required,timeout_duration"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"   json:"write_timeout"   validate:"required,timeout_duration"`

	// CollectTimeout bounds one-shot collections: a relay that has not
	// sent EOSE by then is treated as settled with partial results.
	CollectTimeout time.Duration `mapstructure:"collect_timeout" json:"collect_timeout" validate:"required,timeout_duration"`

	// POWWorkers sizes the mining pool; POWBacklog its queue.
	POWWorkers int `mapstructure:"pow_workers" json:"pow_workers" validate:"required,min=1,max=64"`
	POWBacklog int `mapstructure:"pow_backlog" json:"pow_backlog" validate:"required,min=1,max=1024"`

	// Outbound per-relay send rate.
	MaxSendsPerSecond int `mapstructure:"max_sends_per_second" json:"max_sends_per_second" validate:"required,min=1,max=10000"`
	SendBurst         int `mapstructure:"send_burst"           json:"send_burst"           validate:"required,min=1,max=1000"`
}

// IdentityConfig holds the signing key. SecretKey accepts 64-char hex
// or an nsec bech32 string.
type IdentityConfig struct {
	SecretKey string `mapstructure:"secret_key" json:"-" validate:"omitempty,seckey"`
}

// MetricsConfig gates the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	Port    int  `mapstructure:"port"    json:"port" validate:"required,min=1024,max=65535"`
}

// LoggingConfig holds logging-related settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"       json:"level"       validate:"required,log_level"`
	Format     string `mapstructure:"format"      json:"format"      validate:"omitempty,log_format"`
	FilePath   string `mapstructure:"file"        json:"file"        validate:"omitempty"`
	MaxSize    int    `mapstructure:"max_size"    json:"max_size"    validate:"required,min=1,max=1000"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups" validate:"min=0,max=100"`
	MaxAge     int    `mapstructure:"max_age"     json:"max_age"     validate:"required,min=1,max=365"`
}
