// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package schema

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
)

// Compact format strings are a shorthand for flat schemas, using
// struct-style format characters:
//
//	"<I:magic H:version 16s:name"
//
// An optional leading byte-order character ('<' little, '>' or '!' big)
// sets the document endianness; each item is count + format char +
// optional ":name".

var compactPattern = regexp.MustCompile(`(\d*)([a-zA-Z]):?(\w*)`)

var compactKinds = map[byte]Kind{
	'b': KindInt8,
	'B': KindUint8,
	'h': KindInt16,
	'H': KindUint16,
	'i': KindInt32,
	'I': KindUint32,
	'l': KindInt32,
	'L': KindUint32,
	'q': KindInt64,
	'Q': KindUint64,
	'f': KindFloat32,
	'd': KindFloat64,
	'c': KindChar,
	's': KindString,
}

// ParseCompact builds a Document from a compact format string.
func ParseCompact(format string) (*Document, error) {
	doc := &Document{Endianness: "little", ByteOrder: binary.LittleEndian}

	if len(format) > 0 {
		switch format[0] {
		case '<':
			format = format[1:]
		case '>', '!':
			doc.Endianness = "big"
			doc.ByteOrder = binary.BigEndian
			format = format[1:]
		}
	}

	matches := compactPattern.FindAllStringSubmatch(format, -1)
	if len(matches) == 0 {
		return nil, schemaErr("compact", "empty format string")
	}

	seen := make(map[string]bool)
	for idx, match := range matches {
		countStr, fmtChar, name := match[1], match[2][0], match[3]

		kind, ok := compactKinds[fmtChar]
		if !ok {
			return nil, schemaErr("compact", "unknown format character %q", string(fmtChar))
		}

		count := 1
		if countStr != "" {
			count, _ = strconv.Atoi(countStr)
		}

		if kind == KindString {
			// The count is the fixed byte size, not a repetition.
			spec := FieldSpec{Kind: KindString, Size: count, HasSize: true, Encoding: "utf-8"}
			spec.Name = compactName(name, idx, 1, 0)
			if seen[spec.Name] {
				return nil, schemaErr("compact", "duplicate field name %q", spec.Name)
			}
			seen[spec.Name] = true
			doc.Fields = append(doc.Fields, spec)
			continue
		}

		for i := 0; i < count; i++ {
			spec := FieldSpec{Kind: kind}
			if kind == KindChar {
				spec.Encoding = "utf-8"
			}
			spec.Name = compactName(name, idx, count, i)
			if seen[spec.Name] {
				return nil, schemaErr("compact", "duplicate field name %q", spec.Name)
			}
			seen[spec.Name] = true
			doc.Fields = append(doc.Fields, spec)
		}
	}
	return doc, nil
}

func compactName(name string, idx, count, i int) string {
	if name == "" {
		name = fmt.Sprintf("field_%d", idx)
	}
	if count > 1 {
		return fmt.Sprintf("%s_%d", name, i)
	}
	return name
}
