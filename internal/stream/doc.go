// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes server-sent event bodies from chat completion APIs
// into plain text deltas.
//
// Two record grammars are supported: the OpenAI chat-completions stream
// ("data: {...}" with choices[0].delta.content, terminated by "data: [DONE]")
// and the Claude messages stream (content_block_delta events carrying
// delta.text). Bytes are buffered across chunk boundaries, so records and
// multi-byte characters split between network reads are reassembled before
// parsing. Records that fail to parse are skipped.
//
// # Usage
//
//	p, _ := stream.ProviderFor("claude")
//	err := stream.Decode(ctx, resp.Body, p, func(delta string) {
//	    buf.WriteString(delta)
//	})
package stream
