// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across monkai.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writes (temp file, fsync, rename)
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width aware truncation for terminal cells
//   - HomeDir: resolves the ~/.monkai data directory
//
// # Usage
//
//	label := util.TruncateWidth(title, 40)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
