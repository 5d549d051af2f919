// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package codec

import (
	"golang.org/x/text/encoding/charmap"
)

// encodeText converts a string value to wire bytes per the field's
// declared encoding.
func encodeText(s, encoding, path string) ([]byte, error) {
	switch encoding {
	case "", "utf-8":
		return []byte(s), nil
	case "ascii":
		for i := 0; i < len(s); i++ {
			if s[i] >= 0x80 {
				return nil, errField(ErrTypeMismatch, path, "character %q not representable in ascii", s[i])
			}
		}
		return []byte(s), nil
	case "latin-1":
		out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, errField(ErrTypeMismatch, path, "string not representable in latin-1: %v", err)
		}
		return out, nil
	}
	return nil, errField(ErrTypeMismatch, path, "unsupported encoding %q", encoding)
}

// decodeText converts wire bytes back to a string. Decoding is
// tolerant: undecodable input is carried through rather than rejected,
// so diagnostics can still show what was on the wire.
func decodeText(data []byte, encoding string) string {
	if encoding == "latin-1" {
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err == nil {
			return string(out)
		}
	}
	return string(data)
}
