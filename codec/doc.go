// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

// Package codec interprets a compiled schema document against bytes and
// nested value mappings.
//
// A Codec is built once from a schema.Document and then used from any
// number of goroutines. Encode walks the schema depth-first alongside an
// input mapping and appends wire bytes; Decode performs the mirror-image
// walk with a forward cursor. Both passes maintain the same scoped
// context of already-resolved values, which is what conditions,
// length references and union discriminants evaluate against, so a
// schema that round-trips does so byte-exactly.
//
// Calculated fields (checksums and hashes) are computed from a Registry
// during encode and verified during decode unless switched off with
// WithChecksumVerification(false).
//
//	doc, err := schema.ParseFile("message.yaml")
//	c := codec.New(doc)
//	wire, err := c.Encode(map[string]any{"id": 7, "body": "hello"})
//	value, err := c.Decode(wire)
//
// Every error wraps one of the package's sentinel errors and names the
// dotted path of the failing field.
package codec
