package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default locations of the export document and the two tables
const (
	DefaultInputPath     = "supabase/functions/capture-payload/payload.json"
	DefaultFlattenedPath = "supabase/functions/capture-payload/payload_flattened.csv"
	DefaultSummaryPath   = "supabase/functions/capture-payload/daily_device_comparison.csv"
)

const envPrefix = "HEALTHPIPE"

// Config holds the settings of the converter and the capture service
type Config struct {
	Input  InputConfig  `mapstructure:"input"`
	Output OutputConfig `mapstructure:"output"`
	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

type InputConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type OutputConfig struct {
	Flattened string `mapstructure:"flattened" validate:"required,nefield=Summary"`
	Summary   string `mapstructure:"summary" validate:"required"`
	CRLF      bool   `mapstructure:"crlf"`
	Dir       string `mapstructure:"dir" validate:"required"`
}

// StoreConfig points at the sqlite run history; empty disables it
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr         string `mapstructure:"addr" validate:"required"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	StorePath    string `mapstructure:"store_path"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

// New returns a viper instance preloaded with defaults and environment binding
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("input.path", DefaultInputPath)
	v.SetDefault("output.flattened", DefaultFlattenedPath)
	v.SetDefault("output.summary", DefaultSummaryPath)
	v.SetDefault("output.crlf", true)
	v.SetDefault("output.dir", "outputs")
	v.SetDefault("store.path", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.store_path", "pipeline.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and returns the validated config
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks required settings
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
