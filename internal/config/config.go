// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/monkai/internal/storage"
	"github.com/jeranaias/monkai/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete monkai configuration.
type Config struct {
	OpenAI  OpenAIConfig  `toml:"openai"`
	Claude  ClaudeConfig  `toml:"claude"`
	Chat    ChatConfig    `toml:"chat"`
	Speech  SpeechConfig  `toml:"speech"`
	Storage StorageConfig `toml:"storage"`
	Browser BrowserConfig `toml:"browser"`
	Log     LogConfig     `toml:"log"`
}

// OpenAIConfig configures the OpenAI-style chat endpoint.
type OpenAIConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// ClaudeConfig configures the Claude messages endpoint.
type ClaudeConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	Version string `toml:"version"`
}

// ChatConfig holds the request parameters shared by both providers.
type ChatConfig struct {
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	// Window is how many prior messages travel with each request.
	Window int `toml:"window"`
	// TTSThreshold is the reply length (characters) that starts speech early.
	TTSThreshold int `toml:"tts_threshold"`
}

// SpeechConfig configures synthesis, playback and recording.
type SpeechConfig struct {
	// BaseURL is the OpenAI-compatible audio endpoint.
	BaseURL string `toml:"base_url"`
	// PlayerCommand receives encoded audio on stdin.
	PlayerCommand []string `toml:"player_command"`
	// RecordCommand writes a recording to the path substituted for {file}.
	RecordCommand []string `toml:"record_command"`
	Language      string   `toml:"language"`
}

// StorageConfig selects the settings store backend.
type StorageConfig struct {
	Backend        string `toml:"backend"`
	Path           string `toml:"path"`
	RedisAddr      string `toml:"redis_addr"`
	RedisPassword  string `toml:"redis_password"`
	RedisDB        int    `toml:"redis_db"`
	RedisNamespace string `toml:"redis_namespace"`
}

// BrowserConfig controls page-context collection.
type BrowserConfig struct {
	// Mode is chrome (DevTools protocol), http (fetch TargetURL) or none.
	Mode        string `toml:"mode"`
	DevToolsURL string `toml:"devtools_url"`
	// TargetURL picks the tab in chrome mode and the page in http mode.
	TargetURL   string `toml:"target_url"`
	TimeoutSecs int    `toml:"timeout_secs"`
}

// LogConfig controls the structured log file.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

// Browser modes.
const (
	BrowserChrome = "chrome"
	BrowserHTTP   = "http"
	BrowserNone   = "none"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4-turbo-2024-04-09",
		},
		Claude: ClaudeConfig{
			BaseURL: "https://api.anthropic.com/v1",
			Model:   "claude-3-5-sonnet-20241022",
			Version: "2023-06-01",
		},
		Chat: ChatConfig{
			Temperature:  0.7,
			MaxTokens:    4096,
			Window:       10,
			TTSThreshold: 50,
		},
		Speech: SpeechConfig{
			BaseURL:       "https://api.openai.com/v1",
			PlayerCommand: []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", "-"},
			RecordCommand: []string{"ffmpeg", "-y", "-loglevel", "quiet", "-f", "pulse", "-i", "default", "-t", "30", "{file}"},
			Language:      "en",
		},
		Storage: StorageConfig{
			Backend:        storage.BackendFile,
			RedisNamespace: storage.DefaultRedisNamespace,
		},
		Browser: BrowserConfig{
			Mode:        BrowserChrome,
			DevToolsURL: "http://127.0.0.1:9222",
			TimeoutSecs: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the monkai configuration directory path.
func ConfigDir() string {
	return util.HomeDir()
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// ensureSecurePermissions tightens a config file to 0600. It may hold a
// Redis password.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.monkai/config.toml if present, then applies environment
// overrides and validates. A missing file yields the defaults.
func Load() (*Config, error) {
	path := ConfigPathTOML()
	if _, err := os.Stat(path); err == nil {
		return LoadFromPath(path)
	}
	return finish(Default())
}

// LoadFromPath loads configuration from a specific TOML file. Keys absent
// from the file keep their default value.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadTOML decodes path into cfg and fills missing values with defaults.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	d := Default()

	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = d.OpenAI.BaseURL
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = d.OpenAI.Model
	}

	if cfg.Claude.BaseURL == "" {
		cfg.Claude.BaseURL = d.Claude.BaseURL
	}
	if cfg.Claude.Model == "" {
		cfg.Claude.Model = d.Claude.Model
	}
	if cfg.Claude.Version == "" {
		cfg.Claude.Version = d.Claude.Version
	}

	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = d.Chat.MaxTokens
	}
	if cfg.Chat.Window == 0 {
		cfg.Chat.Window = d.Chat.Window
	}
	if cfg.Chat.TTSThreshold == 0 {
		cfg.Chat.TTSThreshold = d.Chat.TTSThreshold
	}

	if cfg.Speech.BaseURL == "" {
		cfg.Speech.BaseURL = d.Speech.BaseURL
	}
	if len(cfg.Speech.PlayerCommand) == 0 {
		cfg.Speech.PlayerCommand = d.Speech.PlayerCommand
	}
	if len(cfg.Speech.RecordCommand) == 0 {
		cfg.Speech.RecordCommand = d.Speech.RecordCommand
	}
	if cfg.Speech.Language == "" {
		cfg.Speech.Language = d.Speech.Language
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = d.Storage.Backend
	}
	if cfg.Storage.RedisNamespace == "" {
		cfg.Storage.RedisNamespace = d.Storage.RedisNamespace
	}

	if cfg.Browser.Mode == "" {
		cfg.Browser.Mode = d.Browser.Mode
	}
	if cfg.Browser.DevToolsURL == "" {
		cfg.Browser.DevToolsURL = d.Browser.DevToolsURL
	}
	if cfg.Browser.TimeoutSecs == 0 {
		cfg.Browser.TimeoutSecs = d.Browser.TimeoutSecs
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = d.Log.Format
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to ~/.monkai/config.toml.
func Save(cfg *Config) error {
	return SaveTOML(cfg, ConfigPathTOML())
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# monkai configuration file")
	fmt.Fprintln(&buf, "# API keys are kept in the settings store; run `monkai setup`.")
	fmt.Fprintln(&buf, "")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	for field, raw := range map[string]string{
		"openai.base_url": c.OpenAI.BaseURL,
		"claude.base_url": c.Claude.BaseURL,
		"speech.base_url": c.Speech.BaseURL,
	} {
		if err := validateHTTPURL(raw); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
		}
	}

	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %g", c.Chat.Temperature),
		})
	}
	if c.Chat.MaxTokens < 1 {
		errs = append(errs, ValidationError{Field: "chat.max_tokens", Message: "must be positive"})
	}
	if c.Chat.Window < 1 {
		errs = append(errs, ValidationError{Field: "chat.window", Message: "must be positive"})
	}
	if c.Chat.TTSThreshold < 1 {
		errs = append(errs, ValidationError{Field: "chat.tts_threshold", Message: "must be positive"})
	}

	switch strings.ToLower(c.Storage.Backend) {
	case storage.BackendFile, storage.BackendSQLite:
	case storage.BackendRedis:
		if c.Storage.RedisAddr == "" {
			errs = append(errs, ValidationError{Field: "storage.redis_addr", Message: "required for the redis backend"})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, redis", c.Storage.Backend),
		})
	}

	switch strings.ToLower(c.Browser.Mode) {
	case BrowserChrome:
		if err := validateHTTPURL(c.Browser.DevToolsURL); err != nil {
			errs = append(errs, ValidationError{Field: "browser.devtools_url", Message: err.Error()})
		}
	case BrowserHTTP:
		if err := validateHTTPURL(c.Browser.TargetURL); err != nil {
			errs = append(errs, ValidationError{Field: "browser.target_url", Message: err.Error()})
		}
	case BrowserNone:
	default:
		errs = append(errs, ValidationError{
			Field:   "browser.mode",
			Message: fmt.Sprintf("invalid mode '%s', must be one of: chrome, http, none", c.Browser.Mode),
		})
	}
	if c.Browser.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "browser.timeout_secs", Message: "must not be negative"})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: text, json", c.Log.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must include a host")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - MONKAI_OPENAI_BASE_URL, MONKAI_OPENAI_MODEL
//   - MONKAI_CLAUDE_BASE_URL, MONKAI_CLAUDE_MODEL
//   - MONKAI_STORAGE_BACKEND, MONKAI_STORAGE_PATH, MONKAI_REDIS_ADDR
//   - MONKAI_BROWSER_MODE, MONKAI_DEVTOOLS_URL, MONKAI_TARGET_URL
//   - MONKAI_LOG_LEVEL
func (c *Config) ApplyEnvOverrides() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"MONKAI_OPENAI_BASE_URL", &c.OpenAI.BaseURL},
		{"MONKAI_OPENAI_MODEL", &c.OpenAI.Model},
		{"MONKAI_CLAUDE_BASE_URL", &c.Claude.BaseURL},
		{"MONKAI_CLAUDE_MODEL", &c.Claude.Model},
		{"MONKAI_STORAGE_BACKEND", &c.Storage.Backend},
		{"MONKAI_STORAGE_PATH", &c.Storage.Path},
		{"MONKAI_REDIS_ADDR", &c.Storage.RedisAddr},
		{"MONKAI_BROWSER_MODE", &c.Browser.Mode},
		{"MONKAI_DEVTOOLS_URL", &c.Browser.DevToolsURL},
		{"MONKAI_TARGET_URL", &c.Browser.TargetURL},
		{"MONKAI_LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// StorageOptions converts the storage section for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:        c.Storage.Backend,
		Path:           c.Storage.Path,
		RedisAddr:      c.Storage.RedisAddr,
		RedisPassword:  c.Storage.RedisPassword,
		RedisDB:        c.Storage.RedisDB,
		RedisNamespace: c.Storage.RedisNamespace,
	}
}

// LogPath returns the log file, ~/.monkai/monkai.log by default.
func (c *Config) LogPath() string {
	if c.Log.Path != "" {
		return c.Log.Path
	}
	return filepath.Join(ConfigDir(), "monkai.log")
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "chat.window").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String input is
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if key == "" || len(parts) == 0 {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				field.Set(reflect.ValueOf(strings.Fields(strVal)))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"openai.base_url",
		"openai.model",
		"claude.base_url",
		"claude.model",
		"claude.version",
		"chat.temperature",
		"chat.max_tokens",
		"chat.window",
		"chat.tts_threshold",
		"speech.base_url",
		"speech.player_command",
		"speech.record_command",
		"speech.language",
		"storage.backend",
		"storage.path",
		"storage.redis_addr",
		"storage.redis_password",
		"storage.redis_db",
		"storage.redis_namespace",
		"browser.mode",
		"browser.devtools_url",
		"browser.target_url",
		"browser.timeout_secs",
		"log.level",
		"log.format",
		"log.path",
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Speech.PlayerCommand = append([]string(nil), c.Speech.PlayerCommand...)
	clone.Speech.RecordCommand = append([]string(nil), c.Speech.RecordCommand...)
	return &clone
}

// String renders the config as TOML with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Storage.RedisPassword != "" {
		safe.Storage.RedisPassword = "[REDACTED]"
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}
