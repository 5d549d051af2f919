// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

// Package schema compiles declarative binary-format descriptions into an
// immutable field tree. A description is itself data (YAML or JSON, or an
// already-decoded map); the compiled Document is what the codec package
// walks to convert between structured values and exact byte sequences.
package schema

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ErrSchema reports a malformed or incomplete field definition. All
// compile-time failures wrap it.
var ErrSchema = errors.New("schema error")

// Kind identifies the wire representation of a field.
type Kind string

const (
	KindInt8    Kind = "int8"
	KindInt16   Kind = "int16"
	KindInt32   Kind = "int32"
	KindInt64   Kind = "int64"
	KindUint8   Kind = "uint8"
	KindUint16  Kind = "uint16"
	KindUint32  Kind = "uint32"
	KindUint64  Kind = "uint64"
	KindFloat32 Kind = "float32"
	KindFloat64 Kind = "float64"
	KindChar    Kind = "char"
	KindString  Kind = "string"
	KindArray   Kind = "array"
	KindStruct  Kind = "struct"
	KindUnion   Kind = "union"
)

// FuncScope selects the byte range a calculated field's function runs over.
type FuncScope string

const (
	// ScopeAllPrevious covers every byte from the start of the buffer up
	// to, but excluding, the calculated field's own bytes.
	ScopeAllPrevious FuncScope = "all_previous"
	// ScopeFieldRange covers the bytes of a contiguous run of previously
	// processed fields, named by ScopeStart and ScopeEnd.
	ScopeFieldRange FuncScope = "field_range"
)

// MaxNestingDepth bounds struct/array/union nesting. Deeper schemas are
// rejected at compile time so adversarial documents cannot exhaust the
// stack at traversal time.
const MaxNestingDepth = 64

// Expr is a schema expression compiled once at document compile time.
// The grammar is the closed expression language of expr-lang: literals,
// dotted field references, comparisons, arithmetic and logical
// combinators. No caller-supplied code is ever executed.
type Expr struct {
	Source  string
	program *vm.Program
}

func compileExpr(source string) (*Expr, error) {
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	return &Expr{Source: source, program: program}, nil
}

// Eval runs the expression against an environment of already-resolved
// field values. Unresolvable references yield a nil result rather than
// an error; the caller decides what absence means.
func (e *Expr) Eval(env map[string]any) (any, error) {
	return expr.Run(e.program, env)
}

// LengthRef determines the element count of a variable-size array or the
// byte length of a variable-size string. Exactly one of Path and Expr is
// set: plain dotted references stay paths (and are checked for forward
// references at compile time), anything else is a compiled expression.
type LengthRef struct {
	Path string
	Expr *Expr
}

// FieldSpec is one field's compiled definition. Specs are immutable
// after Compile returns and are shared by concurrent codec calls.
type FieldSpec struct {
	Name        string
	Description string
	Kind        Kind

	// Size is a byte count for fixed strings and an element count for
	// fixed arrays. HasSize distinguishes an explicit 0 from absence.
	Size    int
	HasSize bool

	// Encoding applies to string and char fields. Defaults to utf-8.
	Encoding string

	// Length sizes variable arrays (element count) and variable strings
	// (byte count). Nil with HasSize false means the field carries an
	// implicit uint32 length prefix in the document's byte order.
	Length *LengthRef

	// Condition gates the field's presence. Nil means always present.
	Condition *Expr

	// Elem describes array elements; Fields holds struct children or
	// union alternatives.
	Elem   *FieldSpec
	Fields []FieldSpec

	// Discriminant selects a union alternative by name or index.
	Discriminant *Expr

	// Function marks a calculated field: its value is computed over
	// already-produced bytes instead of being supplied by the caller.
	Function   string
	FuncScope  FuncScope
	ScopeStart string
	ScopeEnd   string
}

// Document is the compiled, immutable schema tree plus its byte order.
type Document struct {
	Name        string
	Version     int
	Description string
	Endianness  string
	ByteOrder   binary.ByteOrder
	Fields      []FieldSpec
}

// primitiveWidths maps fixed-width kinds to their encoded byte size.
var primitiveWidths = map[Kind]int{
	KindInt8: 1, KindUint8: 1, KindChar: 1,
	KindInt16: 2, KindUint16: 2,
	KindInt32: 4, KindUint32: 4, KindFloat32: 4,
	KindInt64: 8, KindUint64: 8, KindFloat64: 8,
}

// Width returns the encoded byte size of a fixed-width kind, or 0 for
// variable-size kinds.
func Width(k Kind) int {
	return primitiveWidths[k]
}

// IsPrimitive reports whether k is a fixed-width scalar kind.
func IsPrimitive(k Kind) bool {
	_, ok := primitiveWidths[k]
	return ok
}

// IsSigned reports whether k is a signed integer kind.
func IsSigned(k Kind) bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

// IsUnsigned reports whether k is an unsigned integer kind.
func IsUnsigned(k Kind) bool {
	switch k {
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	}
	return false
}

// IsFloat reports whether k is an IEEE-754 kind.
func IsFloat(k Kind) bool {
	return k == KindFloat32 || k == KindFloat64
}

func schemaErr(path string, format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", path, fmt.Sprintf(format, args...), ErrSchema)
}
