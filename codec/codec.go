// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package codec

import (
	"github.com/rs/zerolog"

	"github.com/binform/binform/schema"
)

// Codec binds a compiled schema Document to a function registry and a
// set of traversal options. A Codec is immutable after New returns and
// safe for concurrent use: each Encode/Decode call owns its own context
// and cursor.
type Codec struct {
	doc      *schema.Document
	registry *Registry
	verify   bool
	strict   bool
	maxArray int
	log      zerolog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithRegistry supplies the calculated-field function table. Without it
// the builtin registry is used.
func WithRegistry(r *Registry) Option {
	return func(c *Codec) { c.registry = r }
}

// WithChecksumVerification controls whether Decode recomputes calculated
// fields and fails on mismatch. Enabled by default.
func WithChecksumVerification(verify bool) Option {
	return func(c *Codec) { c.verify = verify }
}

// WithStrictLength makes Decode fail when trailing bytes remain after
// the last field. Disabled by default.
func WithStrictLength(strict bool) Option {
	return func(c *Codec) { c.strict = strict }
}

// WithMaxArrayLength caps the element count any resolved length may
// claim, independent of the remaining-buffer check. Default 1<<20.
func WithMaxArrayLength(n int) Option {
	return func(c *Codec) { c.maxArray = n }
}

// WithLogger attaches a logger for trace-level traversal events.
// Disabled by default.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Codec) { c.log = log }
}

// New creates a Codec for the given document.
func New(doc *schema.Document, opts ...Option) *Codec {
	c := &Codec{
		doc:      doc,
		verify:   true,
		maxArray: 1 << 20,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	return c
}

// Document returns the compiled schema the codec was built with.
func (c *Codec) Document() *schema.Document {
	return c.doc
}

// Encode serializes a nested value mapping to its exact byte sequence.
// The operation is deterministic: equal inputs produce identical bytes.
func (c *Codec) Encode(value map[string]any) ([]byte, error) {
	e := &encoder{codec: c, ctx: newTraversalContext(), root: value}
	c.log.Debug().Str("schema", c.doc.Name).Msg("encode")
	if err := e.fields(c.doc.Fields, value, ""); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// Decode deserializes a byte sequence to a nested value mapping.
func (c *Codec) Decode(data []byte) (map[string]any, error) {
	out, _, err := c.DecodeConsumed(data)
	return out, err
}

// DecodeConsumed is Decode, additionally reporting how many bytes of the
// input were consumed. Trailing unconsumed bytes are only an error under
// WithStrictLength.
func (c *Codec) DecodeConsumed(data []byte) (map[string]any, int, error) {
	d := &decoder{codec: c, ctx: newTraversalContext(), data: data}
	c.log.Debug().Str("schema", c.doc.Name).Int("len", len(data)).Msg("decode")
	result := d.ctx.frames[0].vals
	if err := d.fields(c.doc.Fields, result, ""); err != nil {
		return nil, d.off, err
	}
	if c.strict && d.off != len(data) {
		return nil, d.off, errOffset(ErrTrailingBytes, "<document>", d.off, "%d bytes after the last field", len(data)-d.off)
	}
	return result, d.off, nil
}
