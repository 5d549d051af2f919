// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package codec

import (
	"bytes"
	"fmt"
	"math"

	"github.com/binform/binform/schema"
)

// decoder walks the schema over a byte slice with a single forward
// cursor. It is the exact inverse of the encoder: the same traversal
// order, the same context scoping, and the same normalized value types,
// so every condition and length reference resolves identically on both
// passes.
type decoder struct {
	codec *Codec
	ctx   *traversalContext
	data  []byte
	off   int
}

func (d *decoder) fields(specs []schema.FieldSpec, out map[string]any, parent string) error {
	for i := range specs {
		if err := d.field(&specs[i], out, parent); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) field(spec *schema.FieldSpec, out map[string]any, parent string) error {
	path := joinPath(parent, spec.Name)

	if spec.Condition != nil {
		present, err := d.ctx.evalCondition(spec.Condition, path)
		if err != nil {
			return err
		}
		if !present {
			return nil
		}
	}

	start := d.off
	d.codec.log.Trace().Str("field", path).Int("offset", start).Msg("decode field")

	if spec.Function != "" {
		return d.calculated(spec, out, path, start)
	}

	v, err := d.value(spec, path)
	if err != nil {
		return err
	}
	out[spec.Name] = v
	d.ctx.setSpan(path, start, d.off)
	return nil
}

func (d *decoder) value(spec *schema.FieldSpec, path string) (any, error) {
	switch spec.Kind {
	case schema.KindChar:
		b, err := d.take(1, path)
		if err != nil {
			return nil, err
		}
		return decodeText(b, spec.Encoding), nil
	case schema.KindString:
		return d.stringField(spec, path)
	case schema.KindArray:
		return d.array(spec, path)
	case schema.KindStruct:
		return d.structField(spec, path)
	case schema.KindUnion:
		return d.union(spec, path)
	default:
		b, err := d.take(schema.Width(spec.Kind), path)
		if err != nil {
			return nil, err
		}
		return decodePrimitive(spec.Kind, b, d.codec.doc.ByteOrder), nil
	}
}

func (d *decoder) stringField(spec *schema.FieldSpec, path string) (any, error) {
	var n int
	var err error
	switch {
	case spec.HasSize:
		n = spec.Size
	case spec.Length != nil:
		n, err = d.resolveLength(spec.Length, path)
		if err != nil {
			return nil, err
		}
	default:
		n, err = d.readPrefix(path)
		if err != nil {
			return nil, err
		}
	}

	b, err := d.take(n, path)
	if err != nil {
		return nil, err
	}
	if spec.HasSize {
		// Fixed-size strings are zero-padded on the wire.
		b = bytes.TrimRight(b, "\x00")
	}
	return decodeText(b, spec.Encoding), nil
}

func (d *decoder) array(spec *schema.FieldSpec, path string) (any, error) {
	var count int
	var err error
	switch {
	case spec.HasSize:
		count = spec.Size
	case spec.Length != nil:
		count, err = d.resolveLength(spec.Length, path)
		if err != nil {
			return nil, err
		}
	default:
		count, err = d.readPrefix(path)
		if err != nil {
			return nil, err
		}
	}

	if count > d.codec.maxArray {
		return nil, errOffset(ErrUnboundedAllocation, path, d.off, "claimed %d elements exceeds cap %d", count, d.codec.maxArray)
	}
	if min := minSize(spec.Elem); min > 0 && count > (len(d.data)-d.off)/min {
		return nil, errOffset(ErrUnboundedAllocation, path, d.off,
			"claimed %d elements need at least %d bytes, %d remain", count, count*min, len(d.data)-d.off)
	}

	out := make([]any, 0, count)
	for i := 0; i < count; i++ {
		v, err := d.element(spec.Elem, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *decoder) element(elem *schema.FieldSpec, path string) (any, error) {
	if elem.Kind == schema.KindStruct {
		child := d.ctx.push("")
		err := d.fields(elem.Fields, child, path)
		d.ctx.pop()
		if err != nil {
			return nil, err
		}
		return child, nil
	}
	return d.value(elem, path)
}

func (d *decoder) structField(spec *schema.FieldSpec, path string) (any, error) {
	child := d.ctx.push(spec.Name)
	err := d.fields(spec.Fields, child, path)
	d.ctx.pop()
	if err != nil {
		return nil, err
	}
	return child, nil
}

func (d *decoder) union(spec *schema.FieldSpec, path string) (any, error) {
	alt, err := selectAlternative(spec, d.ctx, path)
	if err != nil {
		return nil, err
	}
	child := d.ctx.push(spec.Name)
	err = d.field(alt, child, path)
	d.ctx.pop()
	if err != nil {
		return nil, err
	}
	return child, nil
}

// calculated reads a stored function value and, unless verification is
// disabled, recomputes it over the same byte range the encoder hashed
// and fails on disagreement.
func (d *decoder) calculated(spec *schema.FieldSpec, out map[string]any, path string, start int) error {
	scope, err := scopeBytes(d.data, spec, d.ctx, start, path)
	if err != nil {
		return err
	}
	b, err := d.take(schema.Width(spec.Kind), path)
	if err != nil {
		return err
	}
	stored := decodePrimitive(spec.Kind, b, d.codec.doc.ByteOrder)

	if d.codec.verify {
		sum, err := d.codec.registry.invoke(spec.Function, scope, path)
		if err != nil {
			return err
		}
		want, err := encodePrimitive(spec.Kind, sum, d.codec.doc.ByteOrder, path)
		if err != nil {
			return err
		}
		if !bytes.Equal(want, b) {
			return errOffset(ErrChecksumMismatch, path, start, "stored %#x, computed %#x", stored, sum)
		}
	}

	out[spec.Name] = stored
	d.ctx.setSpan(path, start, d.off)
	return nil
}

// resolveLength resolves a length reference against decoded context.
// Unlike the encode pass there is no value tree to fall back on: the
// source field must already have been decoded.
func (d *decoder) resolveLength(ref *schema.LengthRef, path string) (int, error) {
	if ref.Expr != nil {
		return d.ctx.evalCount(ref.Expr, path)
	}
	v, ok := d.ctx.lookup(ref.Path)
	if !ok {
		return 0, errOffset(ErrReference, path, d.off, "length_field %q not found in context", ref.Path)
	}
	n, ok := countFromAny(v)
	if !ok {
		return 0, errField(ErrTypeMismatch, path, "length_field %q resolves to %v, want a non-negative integer", ref.Path, v)
	}
	return n, nil
}

// readPrefix reads the implicit uint32 length prefix.
func (d *decoder) readPrefix(path string) (int, error) {
	b, err := d.take(4, path)
	if err != nil {
		return 0, err
	}
	n := getUint(b, d.codec.doc.ByteOrder)
	if n > math.MaxInt32 {
		return 0, errOffset(ErrUnboundedAllocation, path, d.off-4, "claimed length %d", n)
	}
	return int(n), nil
}

// take consumes n bytes, returning a subslice of the input.
func (d *decoder) take(n int, path string) ([]byte, error) {
	if n < 0 || n > len(d.data)-d.off {
		return nil, errOffset(ErrUnexpectedEOF, path, d.off, "need %d bytes, %d remain", n, len(d.data)-d.off)
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

// minSize is the smallest number of bytes a field can occupy, used to
// reject length claims no remaining input could satisfy before any
// proportional allocation happens. Conditional and context-sized fields
// contribute zero.
func minSize(spec *schema.FieldSpec) int {
	if spec.Condition != nil {
		return 0
	}
	switch spec.Kind {
	case schema.KindString:
		if spec.HasSize {
			return spec.Size
		}
		if spec.Length != nil {
			return 0
		}
		return 4
	case schema.KindArray:
		if spec.HasSize {
			return spec.Size * minSize(spec.Elem)
		}
		if spec.Length != nil {
			return 0
		}
		return 4
	case schema.KindStruct:
		total := 0
		for i := range spec.Fields {
			total += minSize(&spec.Fields[i])
		}
		return total
	case schema.KindUnion:
		smallest := -1
		for i := range spec.Fields {
			if n := minSize(&spec.Fields[i]); smallest < 0 || n < smallest {
				smallest = n
			}
		}
		if smallest < 0 {
			return 0
		}
		return smallest
	default:
		return schema.Width(spec.Kind)
	}
}
