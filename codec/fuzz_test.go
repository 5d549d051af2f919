// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package codec

import (
	"testing"

	"github.com/binform/binform/schema"
)

// FuzzDecode throws arbitrary bytes at a schema exercising every length
// source: decode must return a value or an error, never panic, and
// whatever decodes must re-encode to the consumed input.
func FuzzDecode(f *testing.F) {
	doc, err := schema.ParseString(`
fields:
  - name: count
    type: uint8
  - name: items
    type: array
    element_type: uint16
    length_field: count
  - name: label
    type: string
  - name: flags
    type: uint8
  - name: extra
    type: int32
    condition: "flags == 1"
  - name: crc
    type: uint16
    function: sum16
`)
	if err != nil {
		f.Fatal(err)
	}
	c := New(doc)

	seed, err := c.Encode(map[string]any{
		"count": 2,
		"items": []any{1, 2},
		"label": "ok",
		"flags": 1,
		"extra": -5,
	})
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff, 0xff})

	f.Fuzz(func(t *testing.T, data []byte) {
		out, n, err := c.DecodeConsumed(data)
		if err != nil {
			return
		}
		wire, err := c.Encode(out)
		if err != nil {
			t.Fatalf("re-encode of decoded value failed: %v", err)
		}
		if n != len(wire) {
			t.Fatalf("re-encode produced %d bytes, decode consumed %d", len(wire), n)
		}
		for i := range wire {
			if wire[i] != data[i] {
				t.Fatalf("re-encode differs at byte %d: %#x vs %#x", i, wire[i], data[i])
			}
		}
	})
}
