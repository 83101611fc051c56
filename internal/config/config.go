// Package config loads relay configuration from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Slack  SlackConfig  `koanf:"slack"`
	Server ServerConfig `koanf:"server"`
	Log    LogConfig    `koanf:"log"`
}

type SlackConfig struct {
	// AppToken authenticates apps.connections.open (xapp-...).
	AppToken string `koanf:"app_token"`
	// BotToken authenticates the chat.* Web API methods (xoxb-...).
	BotToken string `koanf:"bot_token"`
	BaseURL  string `koanf:"base_url"`
}

type ServerConfig struct {
	// Port enables the health/status HTTP server when > 0.
	Port int `koanf:"port"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

// Load reads path (if it exists), then RELAY_* environment variables, then
// the canonical SLACK_APP_TOKEN / SLACK_OAUTH_TOKEN variables, each layer
// overriding the previous one. Double underscores in RELAY_* names become
// key separators: RELAY_SERVER__PORT maps to server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider("RELAY_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "RELAY_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	// The canonical Slack variable names win over everything else.
	if v, ok := os.LookupEnv("SLACK_APP_TOKEN"); ok {
		k.Set("slack.app_token", v)
	}
	if v, ok := os.LookupEnv("SLACK_OAUTH_TOKEN"); ok {
		k.Set("slack.bot_token", v)
	}

	// Default values
	if !k.Exists("slack.base_url") {
		k.Set("slack.base_url", "https://slack.com/api")
	}
	if !k.Exists("log.level") {
		k.Set("log.level", "info")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the required credentials. The process must fail fast
// when either token is absent.
func (c *Config) Validate() error {
	if c.Slack.AppToken == "" {
		return errors.New("SLACK_APP_TOKEN is not given")
	}
	if c.Slack.BotToken == "" {
		return errors.New("SLACK_OAUTH_TOKEN is not given")
	}
	return nil
}

// SlogLevel maps the configured level string to a slog level. Unknown
// values fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
