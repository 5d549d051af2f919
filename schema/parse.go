// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package schema

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse parses a schema description from YAML or JSON bytes and compiles it.
func Parse(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		if jerr := json.Unmarshal(data, &raw); jerr != nil {
			return nil, fmt.Errorf("parse schema: %v: %w", err, ErrSchema)
		}
	}
	return FromMap(raw)
}

// ParseString parses a schema description from a YAML or JSON string.
func ParseString(data string) (*Document, error) {
	return Parse([]byte(data))
}

// ParseFile reads and compiles a schema description file.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %v: %w", err, ErrSchema)
	}
	return Parse(data)
}

// FromMap compiles an already-decoded schema description. The map is the
// shape produced by yaml/json unmarshalling: nested map[string]any with
// []any sequences.
func FromMap(raw map[string]any) (*Document, error) {
	doc := &Document{Endianness: "little", ByteOrder: binary.LittleEndian}

	if name, ok := raw["name"].(string); ok {
		doc.Name = name
	}
	if version, ok := intFromAny(raw["version"]); ok {
		doc.Version = version
	}
	if desc, ok := raw["description"].(string); ok {
		doc.Description = desc
	}
	if endian, ok := raw["endianness"].(string); ok {
		switch endian {
		case "little":
			// default
		case "big":
			doc.Endianness = "big"
			doc.ByteOrder = binary.BigEndian
		default:
			return nil, schemaErr("endianness", "must be \"little\" or \"big\", got %q", endian)
		}
	}

	fieldsRaw, ok := raw["fields"].([]any)
	if !ok || len(fieldsRaw) == 0 {
		return nil, schemaErr("fields", "schema must declare a non-empty fields list")
	}

	c := &compiler{}
	c.pushScope("")
	fields, err := c.compileFields(fieldsRaw, "", 0)
	if err != nil {
		return nil, err
	}
	doc.Fields = fields
	return doc, nil
}

// compiler tracks declared names per scope while walking the raw field
// tree, so plain-path references to fields that do not yet exist in
// document order can be rejected statically.
type compiler struct {
	scopes []declScope
}

type declScope struct {
	name  string
	names map[string]bool
}

func (c *compiler) pushScope(name string) {
	c.scopes = append(c.scopes, declScope{name: name, names: make(map[string]bool)})
}

func (c *compiler) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *compiler) declare(name string) {
	c.scopes[len(c.scopes)-1].names[name] = true
}

// declared reports whether the first segment of a dotted path could
// resolve against fields already processed in document order. A segment
// naming an enclosing, still-in-progress struct also counts: inside that
// struct the remaining segments resolve against its partial scope.
func (c *compiler) declared(path string) bool {
	first := path
	if i := strings.IndexByte(path, '.'); i >= 0 {
		first = path[:i]
	}
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if c.scopes[i].names[first] || c.scopes[i].name == first {
			return true
		}
	}
	return false
}

func (c *compiler) compileFields(fieldsRaw []any, path string, depth int) ([]FieldSpec, error) {
	if depth > MaxNestingDepth {
		return nil, schemaErr(path, "nesting deeper than %d levels", MaxNestingDepth)
	}

	fields := make([]FieldSpec, 0, len(fieldsRaw))
	seen := make(map[string]bool, len(fieldsRaw))

	for i, fr := range fieldsRaw {
		fm, ok := fr.(map[string]any)
		if !ok {
			return nil, schemaErr(joinPath(path, fmt.Sprintf("[%d]", i)), "field definition must be a mapping, got %T", fr)
		}
		spec, err := c.compileField(fm, path, depth)
		if err != nil {
			return nil, err
		}
		if seen[spec.Name] {
			return nil, schemaErr(joinPath(path, spec.Name), "duplicate field name among siblings")
		}
		seen[spec.Name] = true
		c.declare(spec.Name)
		fields = append(fields, spec)
	}
	return fields, nil
}

func (c *compiler) compileField(fm map[string]any, parent string, depth int) (FieldSpec, error) {
	var spec FieldSpec

	name, _ := fm["name"].(string)
	if name == "" {
		return spec, schemaErr(parent, "field definition missing name")
	}
	spec.Name = name
	path := joinPath(parent, name)

	if desc, ok := fm["description"].(string); ok {
		spec.Description = desc
	}

	kindStr, ok := fm["type"].(string)
	if !ok {
		return spec, schemaErr(path, "field definition missing type")
	}
	kind, err := parseKind(kindStr)
	if err != nil {
		return spec, schemaErr(path, "%v", err)
	}
	spec.Kind = kind

	if raw, ok := fm["size"]; ok {
		size, ok := intFromAny(raw)
		if !ok || size < 0 {
			return spec, schemaErr(path, "size must be a non-negative integer, got %v", raw)
		}
		spec.Size = size
		spec.HasSize = true
	}

	if cond, ok := fm["condition"].(string); ok && cond != "" {
		e, err := compileExpr(cond)
		if err != nil {
			return spec, schemaErr(path, "invalid condition %q: %v", cond, err)
		}
		spec.Condition = e
	}

	if lf, ok := fm["length_field"].(string); ok && lf != "" {
		ref, err := c.compileLengthRef(lf, path)
		if err != nil {
			return spec, err
		}
		spec.Length = ref
	}

	switch kind {
	case KindString, KindChar:
		spec.Encoding = "utf-8"
		if enc, ok := fm["encoding"].(string); ok {
			canon, err := canonicalEncoding(enc)
			if err != nil {
				return spec, schemaErr(path, "%v", err)
			}
			spec.Encoding = canon
		}
		if kind == KindChar && (spec.HasSize || spec.Length != nil) {
			return spec, schemaErr(path, "char takes neither size nor length_field")
		}
		if kind == KindString && spec.HasSize && spec.Length != nil {
			return spec, schemaErr(path, "string declares both size and length_field")
		}

	case KindArray:
		if spec.HasSize && spec.Length != nil {
			return spec, schemaErr(path, "array declares both size and length_field")
		}
		elemType, ok := fm["element_type"].(string)
		if !ok {
			return spec, schemaErr(path, "array missing element_type")
		}
		elemRaw := map[string]any{"name": "element", "type": elemType}
		if ef, ok := fm["element_fields"]; ok {
			elemRaw["fields"] = ef
		}
		c.pushScope("")
		elem, err := c.compileField(elemRaw, path, depth+1)
		c.popScope()
		if err != nil {
			return spec, err
		}
		elem.Name = ""
		spec.Elem = &elem

	case KindStruct:
		fieldsRaw, ok := fm["fields"].([]any)
		if !ok || len(fieldsRaw) == 0 {
			return spec, schemaErr(path, "struct missing fields")
		}
		c.pushScope(name)
		children, err := c.compileFields(fieldsRaw, path, depth+1)
		c.popScope()
		if err != nil {
			return spec, err
		}
		spec.Fields = children

	case KindUnion:
		altsRaw, ok := fm["alternatives"].([]any)
		if !ok || len(altsRaw) == 0 {
			return spec, schemaErr(path, "union missing alternatives")
		}
		disc, ok := fm["discriminant"].(string)
		if !ok || disc == "" {
			return spec, schemaErr(path, "union missing discriminant expression")
		}
		e, err := compileExpr(disc)
		if err != nil {
			return spec, schemaErr(path, "invalid discriminant %q: %v", disc, err)
		}
		spec.Discriminant = e
		c.pushScope(name)
		alts, err := c.compileFields(altsRaw, path, depth+1)
		c.popScope()
		if err != nil {
			return spec, err
		}
		spec.Fields = alts

	default:
		if spec.HasSize || spec.Length != nil {
			return spec, schemaErr(path, "%s takes neither size nor length_field", kind)
		}
	}

	if err := c.compileFunction(fm, &spec, path); err != nil {
		return spec, err
	}
	return spec, nil
}

// compileFunction handles calculated-field attributes. Entries inside a
// function_parameters mapping override their top-level counterparts;
// existing format documents use both layouts.
func (c *compiler) compileFunction(fm map[string]any, spec *FieldSpec, path string) error {
	fn, _ := fm["function"].(string)
	if fn == "" {
		return nil
	}
	if !IsUnsigned(spec.Kind) {
		return schemaErr(path, "calculated field must have an unsigned integer type, got %s", spec.Kind)
	}
	spec.Function = fn

	scope, _ := fm["function_scope"].(string)
	start, _ := fm["function_scope_start"].(string)
	end, _ := fm["function_scope_end"].(string)
	if params, ok := fm["function_parameters"].(map[string]any); ok {
		if s, ok := params["function_scope"].(string); ok {
			scope = s
		}
		if s, ok := params["function_scope_start"].(string); ok {
			start = s
		}
		if s, ok := params["function_scope_end"].(string); ok {
			end = s
		}
	}

	switch FuncScope(scope) {
	case "", ScopeAllPrevious:
		spec.FuncScope = ScopeAllPrevious
	case ScopeFieldRange:
		spec.FuncScope = ScopeFieldRange
		if start == "" || end == "" {
			return schemaErr(path, "field_range scope requires function_scope_start and function_scope_end")
		}
		if !c.declared(start) {
			return schemaErr(path, "function_scope_start %q does not reference an earlier field", start)
		}
		if !c.declared(end) {
			return schemaErr(path, "function_scope_end %q does not reference an earlier field", end)
		}
		spec.ScopeStart = start
		spec.ScopeEnd = end
	default:
		return schemaErr(path, "unknown function_scope %q", scope)
	}
	return nil
}

var (
	pathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	// Legacy reference style from older format documents:
	// context['header']['data_size'].
	legacyRefPattern = regexp.MustCompile(`^context(\[['"][A-Za-z_][A-Za-z0-9_]*['"]\])+$`)
	legacyKeyPattern = regexp.MustCompile(`\[['"]([A-Za-z_][A-Za-z0-9_]*)['"]\]`)
)

func (c *compiler) compileLengthRef(src, path string) (*LengthRef, error) {
	if legacyRefPattern.MatchString(src) {
		keys := legacyKeyPattern.FindAllStringSubmatch(src, -1)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k[1]
		}
		src = strings.Join(parts, ".")
	}
	if pathPattern.MatchString(src) {
		if !c.declared(src) {
			return nil, schemaErr(path, "length_field %q does not reference an earlier field", src)
		}
		return &LengthRef{Path: src}, nil
	}
	e, err := compileExpr(src)
	if err != nil {
		return nil, schemaErr(path, "invalid length_field expression %q: %v", src, err)
	}
	return &LengthRef{Expr: e}, nil
}

var kindNames = map[string]Kind{
	"int8": KindInt8, "int16": KindInt16, "int32": KindInt32, "int64": KindInt64,
	"uint8": KindUint8, "uint16": KindUint16, "uint32": KindUint32, "uint64": KindUint64,
	"float32": KindFloat32, "float64": KindFloat64,
	"char": KindChar, "string": KindString,
	"array": KindArray, "struct": KindStruct, "union": KindUnion,
}

func parseKind(s string) (Kind, error) {
	if k, ok := kindNames[s]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

func canonicalEncoding(enc string) (string, error) {
	switch strings.ToLower(enc) {
	case "utf-8", "utf8":
		return "utf-8", nil
	case "ascii", "us-ascii":
		return "ascii", nil
	case "latin-1", "latin1", "iso-8859-1":
		return "latin-1", nil
	}
	return "", fmt.Errorf("unsupported encoding %q", enc)
}

func intFromAny(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
