// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for monkai.
//
// Configuration covers deployment-level choices: API endpoints and default
// models, chat request parameters, speech commands, the storage backend, how
// page context is collected, and logging. Per-user preferences such as API
// keys and voice live in the settings store instead (see package settings).
//
// # Configuration Precedence
//
//   - Environment variables (MONKAI_*)
//   - ~/.monkai/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	store, err := storage.Open(ctx, cfg.StorageOptions())
package config
