// Package config loads the server's YAML configuration file, applying
// environment overrides and the defaults the core falls back to when a
// field is left unset.
//
// Grounded on abligh-goms/smtpd/config.go's ParseConfig (yaml.v2 file
// load, post-unmarshal defaulting) with the environment-override layer
// ported from original_source/src/config.rs's Figment::from(...).merge(
// Env::prefixed("CAW_")), which this package reproduces by hand since the
// corpus has no Go figment-equivalent: gopkg.in/yaml.v2 unmarshals the
// file, then a fixed table of CAW_-prefixed variables is applied on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// EnvPrefix is the fixed environment-variable prefix original_source's
// Rust config loader used for overrides.
const EnvPrefix = "CAW_"

// TLSConfig names the cert/key pair a listener needs for TLS.
type TLSConfig struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// ListenerConfig is one entry in server.listeners.
type ListenerConfig struct {
	Name    string     `yaml:"name"`
	Address string     `yaml:"address"`
	TLS     *TLSConfig `yaml:"tls,omitempty"`
}

// ServerConfig holds the server-identity and bind-point configuration.
type ServerConfig struct {
	Name      string           `yaml:"name"`
	Listeners []ListenerConfig `yaml:"listeners"`
}

// LoggingConfig controls the zerolog setup.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Config is the root configuration document.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics struct {
		Address string `yaml:"address"`
	} `yaml:"metrics"`
}

// Default returns the configuration the core uses when no file is
// supplied, matching original_source/src/config.rs's Config::default():
// server name "localhost" and a single plain listener on
// 127.0.0.1:6667.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "localhost",
			Listeners: []ListenerConfig{
				{Name: "plain", Address: "127.0.0.1:6667"},
			},
		},
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}

// Load reads path as YAML over the defaults, then applies CAW_-prefixed
// environment overrides. A missing path is not an error when path is
// empty: Default() is returned with environment overrides still applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if len(cfg.Server.Listeners) == 0 {
		cfg.Server.Listeners = Default().Server.Listeners
	}
	return cfg, nil
}

// applyEnvOverrides mutates cfg in place from a fixed table of
// CAW_-prefixed variables. Only scalar, commonly-overridden fields are
// supported; per-listener overrides belong in the file.
func applyEnvOverrides(cfg *Config) {
	if v, ok := lookupEnv("SERVER_NAME"); ok {
		cfg.Server.Name = v
	}
	if v, ok := lookupEnv("LOGGING_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := lookupEnv("LOGGING_CONSOLE"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.Console = b
		}
	}
	if v, ok := lookupEnv("METRICS_ADDRESS"); ok {
		cfg.Metrics.Address = v
	}
}

func lookupEnv(suffix string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(suffix))
	return v, ok
}
