// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package codec

import (
	"fmt"
	"math"
	"strings"

	"github.com/binform/binform/schema"
)

// encoder walks the schema and an input value tree in lock-step,
// depth-first in document order, appending bytes as it goes. Every
// produced value is recorded in the traversal context before later
// siblings run, so length fields, conditions and discriminants can
// reference it.
type encoder struct {
	codec *Codec
	ctx   *traversalContext
	root  map[string]any
	buf   []byte
}

func (e *encoder) fields(specs []schema.FieldSpec, input map[string]any, parent string) error {
	for i := range specs {
		if err := e.field(&specs[i], input, parent); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) field(spec *schema.FieldSpec, input map[string]any, parent string) error {
	path := joinPath(parent, spec.Name)

	if spec.Condition != nil {
		present, err := e.ctx.evalCondition(spec.Condition, path)
		if err != nil {
			return err
		}
		if !present {
			// No bytes, no context entry: the field is simply absent.
			return nil
		}
	}

	start := len(e.buf)
	e.codec.log.Trace().Str("field", path).Int("offset", start).Msg("encode field")

	if spec.Function != "" {
		return e.calculated(spec, path, start)
	}

	value, ok := input[spec.Name]
	if !ok {
		return errField(ErrMissingField, path, "value not supplied")
	}

	normalized, err := e.value(spec, value, path)
	if err != nil {
		return err
	}
	e.ctx.set(spec.Name, normalized)
	e.ctx.setSpan(path, start, len(e.buf))
	return nil
}

// value encodes one field's value and returns its normalized form for
// the context. The normalized form is obtained by re-decoding the bytes
// just written, which guarantees cross-field references observe exactly
// what the decode pass will.
func (e *encoder) value(spec *schema.FieldSpec, value any, path string) (any, error) {
	switch spec.Kind {
	case schema.KindChar:
		return e.char(spec, value, path)
	case schema.KindString:
		return e.stringField(spec, value, path)
	case schema.KindArray:
		return e.array(spec, value, path)
	case schema.KindStruct:
		return e.structField(spec, value, path)
	case schema.KindUnion:
		return e.union(spec, value, path)
	default:
		b, err := encodePrimitive(spec.Kind, value, e.codec.doc.ByteOrder, path)
		if err != nil {
			return nil, err
		}
		e.buf = append(e.buf, b...)
		return decodePrimitive(spec.Kind, b, e.codec.doc.ByteOrder), nil
	}
}

func (e *encoder) char(spec *schema.FieldSpec, value any, path string) (any, error) {
	if s, ok := value.(string); ok {
		b, err := encodeText(s, spec.Encoding, path)
		if err != nil {
			return nil, err
		}
		if len(b) != 1 {
			return nil, errField(ErrRange, path, "char must encode to exactly 1 byte, got %d", len(b))
		}
		e.buf = append(e.buf, b[0])
		return decodeText(b, spec.Encoding), nil
	}
	u, err := uintValue(value, 1, path)
	if err != nil {
		return nil, err
	}
	e.buf = append(e.buf, byte(u))
	return decodeText([]byte{byte(u)}, spec.Encoding), nil
}

func (e *encoder) stringField(spec *schema.FieldSpec, value any, path string) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, errField(ErrTypeMismatch, path, "cannot encode %T as string", value)
	}
	b, err := encodeText(s, spec.Encoding, path)
	if err != nil {
		return nil, err
	}

	switch {
	case spec.HasSize:
		if len(b) > spec.Size {
			return nil, errField(ErrRange, path, "encoded string is %d bytes, fixed size is %d", len(b), spec.Size)
		}
		padded := make([]byte, spec.Size)
		copy(padded, b)
		e.buf = append(e.buf, padded...)

	case spec.Length != nil:
		n, err := e.resolveLength(spec.Length, path)
		if err != nil {
			return nil, err
		}
		if n != len(b) {
			return nil, errField(ErrTypeMismatch, path, "length_field resolves to %d bytes, encoded string is %d", n, len(b))
		}
		e.buf = append(e.buf, b...)

	default:
		// Implicit uint32 length prefix in the document's byte order.
		if err := e.writePrefix(len(b), path); err != nil {
			return nil, err
		}
		e.buf = append(e.buf, b...)
	}
	return s, nil
}

func (e *encoder) array(spec *schema.FieldSpec, value any, path string) (any, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, errField(ErrTypeMismatch, path, "cannot encode %T as array", value)
	}

	switch {
	case spec.HasSize:
		if len(items) != spec.Size {
			return nil, errField(ErrTypeMismatch, path, "fixed size is %d elements, value has %d", spec.Size, len(items))
		}
	case spec.Length != nil:
		n, err := e.resolveLength(spec.Length, path)
		if err != nil {
			return nil, err
		}
		if n != len(items) {
			return nil, errField(ErrTypeMismatch, path, "length_field resolves to %d elements, value has %d", n, len(items))
		}
	default:
		if err := e.writePrefix(len(items), path); err != nil {
			return nil, err
		}
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		normalized, err := e.element(spec.Elem, item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, normalized)
	}
	return out, nil
}

func (e *encoder) element(elem *schema.FieldSpec, item any, path string) (any, error) {
	if elem.Kind == schema.KindStruct {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, errField(ErrTypeMismatch, path, "cannot encode %T as struct element", item)
		}
		child := e.ctx.push("")
		err := e.fields(elem.Fields, m, path)
		e.ctx.pop()
		if err != nil {
			return nil, err
		}
		return child, nil
	}
	return e.value(elem, item, path)
}

func (e *encoder) structField(spec *schema.FieldSpec, value any, path string) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, errField(ErrTypeMismatch, path, "cannot encode %T as struct", value)
	}
	child := e.ctx.push(spec.Name)
	err := e.fields(spec.Fields, m, path)
	e.ctx.pop()
	if err != nil {
		return nil, err
	}
	return child, nil
}

func (e *encoder) union(spec *schema.FieldSpec, value any, path string) (any, error) {
	alt, err := selectAlternative(spec, e.ctx, path)
	if err != nil {
		return nil, err
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, errField(ErrTypeMismatch, path, "cannot encode %T as union", value)
	}
	if _, ok := m[alt.Name]; !ok {
		return nil, errField(ErrTypeMismatch, path, "discriminant selected %q but the value does not carry it", alt.Name)
	}
	child := e.ctx.push(spec.Name)
	err = e.field(alt, m, path)
	e.ctx.pop()
	if err != nil {
		return nil, err
	}
	return child, nil
}

// calculated computes a function over already-emitted bytes and encodes
// the result in place of a caller-supplied value.
func (e *encoder) calculated(spec *schema.FieldSpec, path string, start int) error {
	data, err := scopeBytes(e.buf, spec, e.ctx, start, path)
	if err != nil {
		return err
	}
	sum, err := e.codec.registry.invoke(spec.Function, data, path)
	if err != nil {
		return err
	}
	b, err := encodePrimitive(spec.Kind, sum, e.codec.doc.ByteOrder, path)
	if err != nil {
		return err
	}
	e.buf = append(e.buf, b...)
	e.ctx.set(spec.Name, decodePrimitive(spec.Kind, b, e.codec.doc.ByteOrder))
	e.ctx.setSpan(path, start, len(e.buf))
	return nil
}

// resolveLength resolves a length reference, preferring already-produced
// context and falling back to a direct lookup in the input value tree
// for counts whose source field has not been serialized yet.
func (e *encoder) resolveLength(ref *schema.LengthRef, path string) (int, error) {
	if ref.Expr != nil {
		return e.ctx.evalCount(ref.Expr, path)
	}
	v, ok := e.ctx.lookup(ref.Path)
	if !ok {
		v, ok = descend(e.root, strings.Split(ref.Path, "."))
	}
	if !ok {
		return 0, errField(ErrReference, path, "length_field %q not found in context", ref.Path)
	}
	n, ok := countFromAny(v)
	if !ok {
		return 0, errField(ErrTypeMismatch, path, "length_field %q resolves to %v, want a non-negative integer", ref.Path, v)
	}
	return n, nil
}

func (e *encoder) writePrefix(n int, path string) error {
	if uint64(n) > math.MaxUint32 {
		return errField(ErrRange, path, "length %d overflows the implicit uint32 prefix", n)
	}
	b, err := encodePrimitive(schema.KindUint32, uint64(n), e.codec.doc.ByteOrder, path)
	if err != nil {
		return err
	}
	e.buf = append(e.buf, b...)
	return nil
}

// selectAlternative evaluates a union discriminant against the context
// and picks the named (or indexed) alternative.
func selectAlternative(spec *schema.FieldSpec, ctx *traversalContext, path string) (*schema.FieldSpec, error) {
	out, err := spec.Discriminant.Eval(ctx.env())
	if err != nil || out == nil {
		return nil, errField(ErrReference, path, "discriminant %q did not resolve", spec.Discriminant.Source)
	}
	if name, ok := out.(string); ok {
		for i := range spec.Fields {
			if spec.Fields[i].Name == name {
				return &spec.Fields[i], nil
			}
		}
		return nil, errField(ErrTypeMismatch, path, "discriminant selected unknown alternative %q", name)
	}
	if idx, ok := countFromAny(out); ok {
		if idx >= len(spec.Fields) {
			return nil, errField(ErrTypeMismatch, path, "discriminant index %d out of range (%d alternatives)", idx, len(spec.Fields))
		}
		return &spec.Fields[idx], nil
	}
	return nil, errField(ErrTypeMismatch, path, "discriminant evaluated to %v (%T), want name or index", out, out)
}

// scopeBytes returns the byte range a calculated field's function runs
// over. start is the buffer position where the field itself begins.
func scopeBytes(buf []byte, spec *schema.FieldSpec, ctx *traversalContext, start int, path string) ([]byte, error) {
	if spec.FuncScope == schema.ScopeFieldRange {
		from, ok := ctx.span(spec.ScopeStart)
		if !ok {
			return nil, errField(ErrReference, path, "function_scope_start %q has no recorded bytes", spec.ScopeStart)
		}
		to, ok := ctx.span(spec.ScopeEnd)
		if !ok {
			return nil, errField(ErrReference, path, "function_scope_end %q has no recorded bytes", spec.ScopeEnd)
		}
		if from[0] > to[1] {
			return nil, errField(ErrReference, path, "function scope range is inverted")
		}
		return buf[from[0]:to[1]], nil
	}
	return buf[:start], nil
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
