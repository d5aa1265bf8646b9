// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scripter manages MonkaiScripter user scripts: small JavaScript
// snippets that run in pages whose URL matches a glob-like pattern.
//
// Scripts live in the settings store under the monkaiScripts key. The
// Injector evaluates matching scripts in the attached browser tab, and the
// Watcher notices when another process rewrites a file-backed store.
package scripter
