// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"modman/internal/dto"
)

type Config struct {
	Server struct {
		Host string `json:"host" yaml:"host"`
		Port int    `json:"port" yaml:"port"`
	} `json:"server" yaml:"server"`

	Backend struct {
		URL     string `json:"url" yaml:"url"`
		Timeout int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	} `json:"backend" yaml:"backend"`

	Database struct {
		Path string `json:"path" yaml:"path"` // empty keeps everything in memory
	} `json:"database" yaml:"database"`

	Cache struct {
		Path string `json:"path" yaml:"path"`
		Size int    `json:"size" yaml:"size"`
	} `json:"cache" yaml:"cache"`

	History struct {
		Limit int `json:"limit" yaml:"limit"`
	} `json:"history" yaml:"history"`

	// UserSettings seeds the development backend and is pushed to it when
	// the file changes.
	UserSettings dto.UserSettings `json:"user_settings" yaml:"user_settings"`

	Environment string `json:"environment" yaml:"environment"` // development, production
	LogLevel    string `json:"log_level" yaml:"log_level"`     // debug, info, warn, error
}

func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Path returns the config file for the environment in MODMAN_ENV.
func Path() string {
	env := os.Getenv("MODMAN_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

// Load reads a JSON or YAML config, chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history limit must not be negative")
	}
	for key := range c.UserSettings {
		if !key.Valid() {
			return fmt.Errorf("unknown user setting %q", key)
		}
	}
	return nil
}

// BackendTimeout is the per-call timeout for backend commands.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.Timeout) * time.Second
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 1420
	}
	if c.Backend.URL == "" {
		c.Backend.URL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 10
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = 128
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
