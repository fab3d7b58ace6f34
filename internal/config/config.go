package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/atikulmunna/logdiagram/internal/encoder"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the tunable settings. The encoding constants, truncation
// lengths and detection window are fixed in their packages and not exposed here.
type Config struct {
	ServerURL     string        `mapstructure:"server_url" validate:"required,url"`
	Listen        string        `mapstructure:"listen" validate:"required"`
	DiagramType   string        `mapstructure:"diagram_type" validate:"oneof=sequence activity component"`
	Dialect       string        `mapstructure:"dialect" validate:"omitempty,oneof=auto qdma legacy"`
	DetectMode    string        `mapstructure:"detect_mode" validate:"oneof=symmetric compat"`
	CacheSize     int           `mapstructure:"cache_size" validate:"gte=0"`
	RegenInterval time.Duration `mapstructure:"regen_interval" validate:"gt=0"`
	MaxLines      int           `mapstructure:"max_lines" validate:"gte=0"`
	LogLevel      string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
}

// Defaults used when neither a config file, environment variable nor flag
// sets a key.
var Defaults = map[string]any{
	"server_url":     encoder.DefaultServerURL,
	"listen":         ":8080",
	"diagram_type":   "sequence",
	"dialect":        "auto",
	"detect_mode":    "symmetric",
	"cache_size":     4096,
	"regen_interval": 500 * time.Millisecond,
	"max_lines":      100000,
	"log_level":      "info",
}

// SetDefaults registers Defaults on v.
func SetDefaults(v *viper.Viper) {
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}
}

// Load reads the merged viper state into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
