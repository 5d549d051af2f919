// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package codec

import (
	"hash/adler32"
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
)

// Func computes a calculated field's value over a byte range. The result
// is encoded with the field's declared unsigned integer kind, so
// functions producing fewer significant bits than the declared width are
// zero-extended on the wire.
type Func func(data []byte) uint64

// Registry maps calculated-field function names to implementations. All
// registration must complete before the registry is shared with
// concurrent Encode/Decode calls; the mapping is read-only afterwards.
type Registry struct {
	funcs map[string]Func
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// NewRegistry returns a registry with the builtin checksum functions:
// crc32 (IEEE), crc32c (Castagnoli), adler32, xxh64, and the modular
// byte sums sum8, sum16 and sum32.
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.Register("crc32", func(data []byte) uint64 {
		return uint64(crc32.ChecksumIEEE(data))
	})
	r.Register("crc32c", func(data []byte) uint64 {
		return uint64(crc32.Checksum(data, castagnoli))
	})
	r.Register("adler32", func(data []byte) uint64 {
		return uint64(adler32.Checksum(data))
	})
	r.Register("xxh64", xxhash.Sum64)
	r.Register("sum8", func(data []byte) uint64 {
		return byteSum(data) & 0xff
	})
	r.Register("sum16", func(data []byte) uint64 {
		return byteSum(data) & 0xffff
	})
	r.Register("sum32", func(data []byte) uint64 {
		return byteSum(data) & 0xffffffff
	})
	return r
}

// Register adds or replaces a function. Not safe for use concurrently
// with Encode/Decode.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

func (r *Registry) invoke(name string, data []byte, path string) (uint64, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return 0, errField(ErrUnsupportedFunction, path, "function %q is not registered", name)
	}
	return fn(data), nil
}

func byteSum(data []byte) uint64 {
	var sum uint64
	for _, b := range data {
		sum += uint64(b)
	}
	return sum
}
