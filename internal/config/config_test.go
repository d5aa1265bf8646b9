// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDefault_Values(t *testing.T) {
	cfg := Default()
	if cfg.Chat.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Chat.Temperature)
	}
	if cfg.Chat.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096", cfg.Chat.MaxTokens)
	}
	if cfg.Chat.Window != 10 {
		t.Errorf("Window = %d, want 10", cfg.Chat.Window)
	}
	if cfg.Chat.TTSThreshold != 50 {
		t.Errorf("TTSThreshold = %d, want 50", cfg.Chat.TTSThreshold)
	}
	if cfg.Claude.Version != "2023-06-01" {
		t.Errorf("Claude.Version = %q", cfg.Claude.Version)
	}
}

func TestLoadFromPath_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[openai]
model = "gpt-4o"

[chat]
window = 6

[storage]
backend = "sqlite"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("OpenAI.Model = %q", cfg.OpenAI.Model)
	}
	if cfg.Chat.Window != 6 {
		t.Errorf("Window = %d, want 6", cfg.Chat.Window)
	}
	if cfg.Chat.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want default 0.7", cfg.Chat.Temperature)
	}
	if cfg.OpenAI.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("OpenAI.BaseURL = %q, want default", cfg.OpenAI.BaseURL)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %o, want 0600 after load", info.Mode().Perm())
	}
}

func TestLoadFromPath_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[storage]\nbackend = \"etcd\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFromPath(path)
	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidateErrors, got %v", err)
	}
	if len(verrs) != 1 || verrs[0].Field != "storage.backend" {
		t.Errorf("unexpected errors: %v", verrs)
	}
}

func TestLoadFromPath_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[chat\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected decode error")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Browser.Mode != BrowserChrome {
		t.Errorf("Browser.Mode = %q", cfg.Browser.Mode)
	}
}

func TestLoadFromPath_ZeroTemperature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[chat]\ntemperature = 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Chat.Temperature != 0 {
		t.Errorf("Temperature = %v, want 0", cfg.Chat.Temperature)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"temperature", func(c *Config) { c.Chat.Temperature = 3 }, "chat.temperature"},
		{"negative temperature", func(c *Config) { c.Chat.Temperature = -0.1 }, "chat.temperature"},
		{"window", func(c *Config) { c.Chat.Window = -1 }, "chat.window"},
		{"max tokens", func(c *Config) { c.Chat.MaxTokens = 0 }, "chat.max_tokens"},
		{"openai url", func(c *Config) { c.OpenAI.BaseURL = "ftp://x" }, "openai.base_url"},
		{"redis addr", func(c *Config) { c.Storage.Backend = "redis" }, "storage.redis_addr"},
		{"browser mode", func(c *Config) { c.Browser.Mode = "firefox" }, "browser.mode"},
		{"http target", func(c *Config) { c.Browser.Mode = "http" }, "browser.target_url"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidateErrors, got %v", err)
			}
			found := false
			for _, ve := range verrs {
				if ve.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, verrs)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MONKAI_OPENAI_BASE_URL", "http://localhost:8080/v1")
	t.Setenv("MONKAI_STORAGE_BACKEND", "sqlite")
	t.Setenv("MONKAI_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.OpenAI.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("OpenAI.BaseURL = %q", cfg.OpenAI.BaseURL)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("chat.window", "4"); err != nil {
		t.Fatalf("Set chat.window: %v", err)
	}
	if err := cfg.Set("chat.temperature", "0.2"); err != nil {
		t.Fatalf("Set chat.temperature: %v", err)
	}
	if err := cfg.Set("speech.player_command", "mpv --no-video -"); err != nil {
		t.Fatalf("Set speech.player_command: %v", err)
	}
	if err := cfg.Set("claude.base_url", "https://proxy.example.com/v1"); err != nil {
		t.Fatalf("Set claude.base_url: %v", err)
	}

	v, err := cfg.Get("chat.window")
	if err != nil || v.(int) != 4 {
		t.Errorf("Get chat.window = %v, %v", v, err)
	}
	if cfg.Chat.Temperature != 0.2 {
		t.Errorf("Temperature = %v", cfg.Chat.Temperature)
	}
	if got := strings.Join(cfg.Speech.PlayerCommand, " "); got != "mpv --no-video -" {
		t.Errorf("PlayerCommand = %q", got)
	}
	if cfg.Claude.BaseURL != "https://proxy.example.com/v1" {
		t.Errorf("Claude.BaseURL = %q", cfg.Claude.BaseURL)
	}

	if _, err := cfg.Get("chat.nope"); err == nil {
		t.Error("expected unknown field error")
	}
	if _, err := cfg.Get("chat"); err == nil {
		t.Error("expected section error")
	}
	if err := cfg.Set("chat.window", "many"); err == nil {
		t.Error("expected integer parse error")
	}
}

func TestGetAllKeys_Resolvable(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q): %v", key, err)
		}
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Chat.Window = 8
	cfg.Storage.Backend = "redis"
	cfg.Storage.RedisAddr = "localhost:6379"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Chat.Window != 8 || loaded.Storage.RedisAddr != "localhost:6379" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestString_RedactsPassword(t *testing.T) {
	cfg := Default()
	cfg.Storage.RedisPassword = "hunter2"
	s := cfg.String()
	if strings.Contains(s, "hunter2") {
		t.Error("String() leaked the redis password")
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Error("String() should mark the redacted field")
	}
	if cfg.Storage.RedisPassword != "hunter2" {
		t.Error("String() modified the original config")
	}
}

func TestLogPath(t *testing.T) {
	cfg := Default()
	cfg.Log.Path = "/var/log/monkai.log"
	if cfg.LogPath() != "/var/log/monkai.log" {
		t.Errorf("LogPath = %q", cfg.LogPath())
	}
}
