// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
)

// MaxRecordSize bounds a single unterminated record. A longer line is
// discarded rather than buffered forever.
const MaxRecordSize = 1 << 20

const readChunkSize = 4096

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for skipped records.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.log = l
		}
	}
}

// Decoder splits a fragmented SSE byte stream into records and hands each
// one to a Provider. It is not safe for concurrent use.
type Decoder struct {
	provider Provider
	buf      []byte
	log      *slog.Logger
	skipped  int
}

// NewDecoder creates a decoder for p.
func NewDecoder(p Provider, opts ...Option) *Decoder {
	d := &Decoder{
		provider: p,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed appends chunk to the pending bytes and returns the deltas of every
// record it completed. An incomplete trailing record stays buffered.
func (d *Decoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var deltas []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]
		if delta, ok := d.parse(line); ok {
			deltas = append(deltas, delta)
		}
	}

	if len(d.buf) > MaxRecordSize {
		d.log.Warn("dropping oversized stream record", "provider", d.provider.Name(), "bytes", len(d.buf))
		d.buf = nil
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return deltas
}

// Flush parses whatever is left after the transport reached EOF.
func (d *Decoder) Flush() []string {
	if len(d.buf) == 0 {
		return nil
	}
	line := d.buf
	d.buf = nil
	if delta, ok := d.parse(line); ok {
		return []string{delta}
	}
	return nil
}

// Skipped returns how many records were dropped as malformed.
func (d *Decoder) Skipped() int {
	return d.skipped
}

func (d *Decoder) parse(raw []byte) (string, bool) {
	line := string(bytes.TrimRight(raw, "\r"))
	if line == "" {
		return "", false
	}
	delta, ok, err := d.provider.ParseRecord(line)
	if err != nil {
		d.skipped++
		d.log.Debug("skipping malformed stream record", "provider", d.provider.Name(), "error", err)
		return "", false
	}
	return delta, ok
}

// Decode reads r to EOF, calling fn with each delta in order. It returns nil
// at EOF, ctx.Err() when cancelled, or the read error.
func Decode(ctx context.Context, r io.Reader, p Provider, fn func(delta string), opts ...Option) error {
	d := NewDecoder(p, opts...)
	buf := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			for _, delta := range d.Feed(buf[:n]) {
				fn(delta)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				for _, delta := range d.Flush() {
					fn(delta)
				}
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}
