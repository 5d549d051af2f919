// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package codec

import (
	"errors"
	"fmt"

	"github.com/binform/binform/schema"
)

// Error kinds. Every error returned by Encode/Decode wraps exactly one of
// these sentinels and carries the dotted field path (and, on the decode
// path, the byte offset) of the failure. Nothing is retried or swallowed:
// the first error aborts the whole call.
var (
	// ErrSchema is re-exported so callers can match compile-time and
	// traversal-time failures through a single package.
	ErrSchema = schema.ErrSchema

	// ErrMissingField reports a required input value absent during encode.
	ErrMissingField = errors.New("missing field")

	// ErrTypeMismatch reports a value whose runtime type or shape is
	// incompatible with the declared field kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrRange reports a numeric value outside its declared width, or a
	// string exceeding its fixed size.
	ErrRange = errors.New("value out of range")

	// ErrReference reports a path or expression that cannot be resolved
	// in the current context.
	ErrReference = errors.New("unresolved reference")

	// ErrUnexpectedEOF reports a decode that needs more bytes than remain.
	ErrUnexpectedEOF = errors.New("unexpected end of data")

	// ErrTrailingBytes reports input left over after the last field when
	// strict length checking is enabled.
	ErrTrailingBytes = errors.New("trailing bytes")

	// ErrChecksumMismatch reports a calculated field whose stored value
	// disagrees with the freshly computed one.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnsupportedFunction reports a calculated field naming a function
	// absent from the registry.
	ErrUnsupportedFunction = errors.New("unsupported function")

	// ErrUnboundedAllocation reports a claimed length that exceeds the
	// remaining buffer or the configured ceiling. It fires before any
	// allocation proportional to the claim.
	ErrUnboundedAllocation = errors.New("unbounded allocation")
)

func errField(kind error, path string, format string, args ...any) error {
	return fmt.Errorf("field %s: %s: %w", path, fmt.Sprintf(format, args...), kind)
}

func errOffset(kind error, path string, offset int, format string, args ...any) error {
	return fmt.Errorf("field %s at offset %d: %s: %w", path, offset, fmt.Sprintf(format, args...), kind)
}
