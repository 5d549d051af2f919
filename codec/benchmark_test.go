// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package codec

import (
	"testing"

	"github.com/binform/binform/schema"
)

// Telemetry report with the features that dominate real schemas: a
// nested header, a length-driven array of structs and a trailing crc.
const benchSchema = `
name: telemetry_report
endianness: big
fields:
  - name: header
    type: struct
    fields:
      - name: device_id
        type: uint32
      - name: flags
        type: uint8
      - name: sample_count
        type: uint16
  - name: battery_mv
    type: uint16
    condition: "header.flags == 1"
  - name: samples
    type: array
    element_type: struct
    length_field: header.sample_count
    element_fields:
      - name: channel
        type: uint8
      - name: reading
        type: float32
  - name: crc
    type: uint32
    function: crc32
`

func benchValue() map[string]any {
	samples := make([]any, 16)
	for i := range samples {
		samples[i] = map[string]any{"channel": i, "reading": float64(i) * 0.5}
	}
	return map[string]any{
		"header": map[string]any{
			"device_id":    0xDEADBEEF,
			"flags":        1,
			"sample_count": len(samples),
		},
		"battery_mv": 3600,
		"samples":    samples,
	}
}

func BenchmarkEncode(b *testing.B) {
	doc, err := schema.ParseString(benchSchema)
	if err != nil {
		b.Fatal(err)
	}
	c := New(doc)
	value := benchValue()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Encode(value); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	doc, err := schema.ParseString(benchSchema)
	if err != nil {
		b.Fatal(err)
	}
	c := New(doc)
	wire, err := c.Encode(benchValue())
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Decode(wire); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeNoVerify(b *testing.B) {
	doc, err := schema.ParseString(benchSchema)
	if err != nil {
		b.Fatal(err)
	}
	wire, err := New(doc).Encode(benchValue())
	if err != nil {
		b.Fatal(err)
	}
	c := New(doc, WithChecksumVerification(false))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Decode(wire); err != nil {
			b.Fatal(err)
		}
	}
}
