// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/monkai/internal/config"
	"github.com/jeranaias/monkai/internal/ui/styles"
)

// HandleConfig implements "monkai config show|get|set|keys". It works on
// the TOML file only and never opens storage.
func HandleConfig(args Args, out io.Writer) error {
	path := args.ConfigPath
	if path == "" {
		path = config.ConfigPathTOML()
	}
	p := NewArgParser(args.Raw)

	switch strings.ToLower(p.Subcommand()) {
	case "", "show":
		cfg, err := loadConfigFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "# %s\n%s", path, cfg.String())
		return nil

	case "keys":
		for _, k := range config.GetAllKeys() {
			fmt.Fprintln(out, k)
		}
		return nil

	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "monkai config get chat.window")
		}
		cfg, err := loadConfigFile(path)
		if err != nil {
			return err
		}
		v, err := cfg.Get(key)
		if err != nil {
			return wrapCommand("config", "get", err)
		}
		if key == "storage.redis_password" && v != "" {
			v = "[REDACTED]"
		}
		fmt.Fprintln(out, formatValue(v))
		return nil

	case "set":
		key, value := p.Positional(1), JoinPositionalArgs(p, 2)
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("key and value", "monkai config set chat.window 20")
		}
		cfg, err := loadConfigFile(path)
		if err != nil {
			return err
		}
		if err := cfg.Set(key, value); err != nil {
			return wrapCommand("config", "set", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.SaveTOML(cfg, path); err != nil {
			return wrapCommand("config", "save", err)
		}
		fmt.Fprintln(out, styles.RenderSuccess(fmt.Sprintf("%s = %s", key, formatValue(mustGet(cfg, key)))))
		return nil
	}

	return &UsageError{
		Reason: "unknown config command: " + p.Subcommand(),
		Usage:  "monkai config [show|get <key>|set <key> <value>|keys]",
	}
}

// loadConfigFile loads path, or the defaults when it does not exist yet.
func loadConfigFile(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := config.Default()
		cfg.ApplyEnvOverrides()
		return cfg, nil
	}
	return config.LoadFromPath(path)
}

func mustGet(cfg *config.Config, key string) interface{} {
	v, _ := cfg.Get(key)
	return v
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, " ")
	default:
		return fmt.Sprint(t)
	}
}
