// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package speech speaks assistant replies and transcribes voice input.
//
// A Controller owns the single active playback. Speak supersedes whatever is
// playing; Stop is idempotent; the OnSpeaking hook mirrors the speaking
// indicator. Synthesis and transcription go through the OpenAI audio API;
// playback and recording go through external commands such as ffplay and
// sox.
package speech
