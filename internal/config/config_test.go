package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Slack.BaseURL != "https://slack.com/api" {
			t.Errorf("BaseURL = %q, want default", cfg.Slack.BaseURL)
		}
		if cfg.Log.Level != "info" {
			t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
		}
		if cfg.Server.Port != 0 {
			t.Errorf("Server.Port = %d, want 0 (disabled)", cfg.Server.Port)
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("RELAY_SERVER__PORT", "9090")
		t.Setenv("RELAY_SLACK__BASE_URL", "https://slack.test/api")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Server.Port != 9090 {
			t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
		}
		if cfg.Slack.BaseURL != "https://slack.test/api" {
			t.Errorf("BaseURL = %q, want override", cfg.Slack.BaseURL)
		}
	})

	t.Run("canonical slack variables win", func(t *testing.T) {
		t.Setenv("RELAY_SLACK__APP_TOKEN", "xapp-relay")
		t.Setenv("SLACK_APP_TOKEN", "xapp-canonical")
		t.Setenv("SLACK_OAUTH_TOKEN", "xoxb-canonical")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Slack.AppToken != "xapp-canonical" {
			t.Errorf("AppToken = %q, want the canonical variable", cfg.Slack.AppToken)
		}
		if cfg.Slack.BotToken != "xoxb-canonical" {
			t.Errorf("BotToken = %q, want the canonical variable", cfg.Slack.BotToken)
		}
	})

	t.Run("yaml file under env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := "slack:\n  app_token: xapp-file\n  bot_token: xoxb-file\nserver:\n  port: 8081\n"
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("RELAY_SERVER__PORT", "8082")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Slack.AppToken != "xapp-file" {
			t.Errorf("AppToken = %q, want file value", cfg.Slack.AppToken)
		}
		if cfg.Server.Port != 8082 {
			t.Errorf("Server.Port = %d, want env to override the file", cfg.Server.Port)
		}
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted a config without tokens")
	}
	cfg.Slack.AppToken = "xapp-1"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted a config without a bot token")
	}
	cfg.Slack.BotToken = "xoxb-1"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := (LogConfig{Level: tt.level}).SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
