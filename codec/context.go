// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package codec

import (
	"math"
	"strings"

	"github.com/binform/binform/schema"
)

// traversalContext is the per-call, write-once mapping of already-resolved
// field values, scoped exactly like the schema's struct nesting. A frame
// is pushed when a struct (or union) begins and popped when it completes;
// the frame's map doubles as the struct's value in the result tree, so
// the context and the output share storage.
//
// Spans record the absolute [start, end) byte range each field occupied,
// for field_range calculated-field scopes.
type traversalContext struct {
	frames []ctxFrame
	spans  map[string][2]int
}

type ctxFrame struct {
	name string
	vals map[string]any
}

func newTraversalContext() *traversalContext {
	return &traversalContext{
		frames: []ctxFrame{{vals: make(map[string]any)}},
		spans:  make(map[string][2]int),
	}
}

// push opens a nested scope and returns its value map.
func (c *traversalContext) push(name string) map[string]any {
	vals := make(map[string]any)
	c.frames = append(c.frames, ctxFrame{name: name, vals: vals})
	return vals
}

func (c *traversalContext) pop() {
	c.frames = c.frames[:len(c.frames)-1]
}

// set records a field's resolved value in the innermost scope. Values are
// written once per pass and never mutated afterwards.
func (c *traversalContext) set(name string, v any) {
	c.frames[len(c.frames)-1].vals[name] = v
}

// lookup resolves a dotted path. The first segment is matched against the
// nearest enclosing scope and falls outward until it matches; a segment
// naming an enclosing, still-open struct resolves the remaining segments
// against that struct's partial scope.
func (c *traversalContext) lookup(path string) (any, bool) {
	segs := strings.Split(path, ".")
	for i := len(c.frames) - 1; i >= 0; i-- {
		frame := c.frames[i]
		if v, ok := descend(frame.vals, segs); ok {
			return v, true
		}
		if frame.name != "" && frame.name == segs[0] && len(segs) > 1 {
			if v, ok := descend(frame.vals, segs[1:]); ok {
				return v, true
			}
		}
	}
	return nil, false
}

func descend(m map[string]any, segs []string) (any, bool) {
	var v any = m
	for _, seg := range segs {
		mm, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok = mm[seg]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

// env flattens the scope chain into a single expression environment,
// outermost first so inner scopes shadow outer names. Enclosing open
// structs are additionally visible under their own names, keeping
// qualified references like "header.flags" valid while header is still
// being walked.
func (c *traversalContext) env() map[string]any {
	merged := make(map[string]any)
	for _, frame := range c.frames {
		for k, v := range frame.vals {
			merged[k] = v
		}
		if frame.name != "" {
			merged[frame.name] = frame.vals
		}
	}
	return merged
}

// setSpan records the byte range a field occupied in the buffer.
func (c *traversalContext) setSpan(path string, start, end int) {
	c.spans[path] = [2]int{start, end}
}

// span resolves a field reference to its recorded byte range, trying the
// reference as given and then qualified by each enclosing scope name,
// innermost first.
func (c *traversalContext) span(ref string) ([2]int, bool) {
	if s, ok := c.spans[ref]; ok {
		return s, true
	}
	prefix := ""
	var candidates []string
	for _, frame := range c.frames {
		if frame.name == "" {
			continue
		}
		if prefix == "" {
			prefix = frame.name
		} else {
			prefix = prefix + "." + frame.name
		}
		candidates = append(candidates, prefix+"."+ref)
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		if s, ok := c.spans[candidates[i]]; ok {
			return s, true
		}
	}
	return [2]int{}, false
}

// evalCondition decides a field's presence. A reference to an absent
// field makes the condition false rather than an error, mirroring the
// skip semantics of conditional fields; any other non-boolean result is
// a type mismatch.
func (c *traversalContext) evalCondition(e *schema.Expr, path string) (bool, error) {
	out, err := e.Eval(c.env())
	if err != nil {
		// Absent operand somewhere inside the expression.
		return false, nil
	}
	switch v := out.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	}
	return false, errField(ErrTypeMismatch, path, "condition %q evaluated to %T, want bool", e.Source, out)
}

// evalCount resolves an expression-style length to a non-negative count.
func (c *traversalContext) evalCount(e *schema.Expr, path string) (int, error) {
	out, err := e.Eval(c.env())
	if err != nil {
		return 0, errField(ErrReference, path, "length expression %q: %v", e.Source, err)
	}
	if out == nil {
		return 0, errField(ErrReference, path, "length expression %q did not resolve", e.Source)
	}
	n, ok := countFromAny(out)
	if !ok {
		return 0, errField(ErrTypeMismatch, path, "length expression %q evaluated to %v (%T), want a non-negative integer", e.Source, out, out)
	}
	return n, nil
}

// countFromAny converts a resolved length value to an element count.
func countFromAny(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, false
		}
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return int(n), true
	case uint64:
		// Counts above MaxInt would wrap negative in the conversion and
		// bypass every downstream bound check.
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		if n < 0 || n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
