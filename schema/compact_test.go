// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package schema

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestParseCompact(t *testing.T) {
	doc, err := ParseCompact("<I:magic H:version 16s:name")
	if err != nil {
		t.Fatalf("ParseCompact() error = %v", err)
	}
	if doc.ByteOrder != binary.LittleEndian {
		t.Errorf("byte order = %v, want little endian", doc.ByteOrder)
	}
	want := []struct {
		name string
		kind Kind
		size int
	}{
		{"magic", KindUint32, 0},
		{"version", KindUint16, 0},
		{"name", KindString, 16},
	}
	if len(doc.Fields) != len(want) {
		t.Fatalf("fields = %d, want %d", len(doc.Fields), len(want))
	}
	for i, w := range want {
		f := doc.Fields[i]
		if f.Name != w.name || f.Kind != w.kind || f.Size != w.size {
			t.Errorf("field %d = %s %s size %d, want %s %s size %d",
				i, f.Name, f.Kind, f.Size, w.name, w.kind, w.size)
		}
	}
}

func TestParseCompactBigEndian(t *testing.T) {
	for _, prefix := range []string{">", "!"} {
		doc, err := ParseCompact(prefix + "H:value")
		if err != nil {
			t.Fatalf("ParseCompact(%q) error = %v", prefix, err)
		}
		if doc.ByteOrder != binary.BigEndian {
			t.Errorf("ParseCompact(%q) byte order = %v, want big endian", prefix, doc.ByteOrder)
		}
	}
}

func TestParseCompactRepeatAndDefaults(t *testing.T) {
	doc, err := ParseCompact("B 2H:pair q")
	if err != nil {
		t.Fatalf("ParseCompact() error = %v", err)
	}
	names := make([]string, len(doc.Fields))
	for i, f := range doc.Fields {
		names[i] = f.Name
	}
	want := []string{"field_0", "pair_0", "pair_1", "field_2"}
	if len(names) != len(want) {
		t.Fatalf("fields = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("field %d name = %q, want %q", i, names[i], want[i])
		}
	}
	if doc.Fields[3].Kind != KindInt64 {
		t.Errorf("last kind = %s, want int64", doc.Fields[3].Kind)
	}
}

func TestParseCompactErrors(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"empty", ""},
		{"unknown char", "Z:value"},
		{"duplicate name", "B:x H:x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCompact(tt.format); !errors.Is(err, ErrSchema) {
				t.Errorf("ParseCompact(%q) error = %v, want ErrSchema", tt.format, err)
			}
		})
	}
}
