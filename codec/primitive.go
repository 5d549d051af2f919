// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package codec

import (
	"encoding/binary"
	"math"

	"github.com/binform/binform/schema"
)

// Fixed-width scalar codec. Values coming in from JSON/YAML arrive as
// float64 or int; decoded values normalize to int64 (signed), uint64
// (unsigned) and float64 so that cross-field references compare the same
// on the encode and decode passes.

func encodePrimitive(kind schema.Kind, value any, order binary.ByteOrder, path string) ([]byte, error) {
	width := schema.Width(kind)
	buf := make([]byte, width)

	switch {
	case schema.IsUnsigned(kind):
		u, err := uintValue(value, width, path)
		if err != nil {
			return nil, err
		}
		putUint(buf, u, order)

	case schema.IsSigned(kind):
		i, err := intValue(value, width, path)
		if err != nil {
			return nil, err
		}
		putUint(buf, uint64(i), order)

	case kind == schema.KindFloat32:
		f, ok := floatValue(value)
		if !ok {
			return nil, errField(ErrTypeMismatch, path, "cannot encode %T as %s", value, kind)
		}
		order.PutUint32(buf, math.Float32bits(float32(f)))

	case kind == schema.KindFloat64:
		f, ok := floatValue(value)
		if !ok {
			return nil, errField(ErrTypeMismatch, path, "cannot encode %T as %s", value, kind)
		}
		order.PutUint64(buf, math.Float64bits(f))
	}
	return buf, nil
}

func decodePrimitive(kind schema.Kind, data []byte, order binary.ByteOrder) any {
	switch {
	case schema.IsUnsigned(kind):
		return getUint(data, order)
	case schema.IsSigned(kind):
		return signExtend(getUint(data, order), len(data))
	case kind == schema.KindFloat32:
		return float64(math.Float32frombits(order.Uint32(data)))
	default: // KindFloat64
		return math.Float64frombits(order.Uint64(data))
	}
}

func putUint(buf []byte, v uint64, order binary.ByteOrder) {
	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		order.PutUint16(buf, uint16(v))
	case 4:
		order.PutUint32(buf, uint32(v))
	case 8:
		order.PutUint64(buf, v)
	}
}

func getUint(data []byte, order binary.ByteOrder) uint64 {
	switch len(data) {
	case 1:
		return uint64(data[0])
	case 2:
		return uint64(order.Uint16(data))
	case 4:
		return uint64(order.Uint32(data))
	default:
		return order.Uint64(data)
	}
}

func signExtend(u uint64, width int) int64 {
	shift := uint(64 - width*8)
	return int64(u<<shift) >> shift
}

// uintValue coerces an input value to an unsigned integer of the given
// byte width, rejecting fractional and out-of-range values.
func uintValue(value any, width int, path string) (uint64, error) {
	var u uint64
	switch n := value.(type) {
	case uint64:
		u = n
	case uint:
		u = uint64(n)
	case uint32:
		u = uint64(n)
	case uint16:
		u = uint64(n)
	case uint8:
		u = uint64(n)
	case int:
		if n < 0 {
			return 0, errField(ErrRange, path, "negative value %d for unsigned field", n)
		}
		u = uint64(n)
	case int64:
		if n < 0 {
			return 0, errField(ErrRange, path, "negative value %d for unsigned field", n)
		}
		u = uint64(n)
	case float64:
		if n != math.Trunc(n) {
			return 0, errField(ErrTypeMismatch, path, "non-integral value %v for integer field", n)
		}
		if n < 0 {
			return 0, errField(ErrRange, path, "negative value %v for unsigned field", n)
		}
		if n >= math.MaxUint64 {
			return 0, errField(ErrRange, path, "value %v overflows %d-byte unsigned field", n, width)
		}
		u = uint64(n)
	default:
		return 0, errField(ErrTypeMismatch, path, "cannot encode %T as unsigned integer", value)
	}
	if width < 8 && u > (uint64(1)<<(8*width))-1 {
		return 0, errField(ErrRange, path, "value %d overflows %d-byte unsigned field", u, width)
	}
	return u, nil
}

// intValue coerces an input value to a signed integer of the given byte
// width.
func intValue(value any, width int, path string) (int64, error) {
	var i int64
	switch n := value.(type) {
	case int:
		i = int64(n)
	case int64:
		i = n
	case int32:
		i = int64(n)
	case int16:
		i = int64(n)
	case int8:
		i = int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return 0, errField(ErrRange, path, "value %d overflows signed field", n)
		}
		i = int64(n)
	case float64:
		if n != math.Trunc(n) {
			return 0, errField(ErrTypeMismatch, path, "non-integral value %v for integer field", n)
		}
		// MaxInt64 rounds up to 2^63 as a float64, so >= catches every
		// value the int64 conversion cannot represent.
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, errField(ErrRange, path, "value %v overflows %d-byte signed field", n, width)
		}
		i = int64(n)
	default:
		return 0, errField(ErrTypeMismatch, path, "cannot encode %T as signed integer", value)
	}
	if width < 8 {
		limit := int64(1) << (8*width - 1)
		if i < -limit || i > limit-1 {
			return 0, errField(ErrRange, path, "value %d overflows %d-byte signed field", i, width)
		}
	}
	return i, nil
}

func floatValue(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
