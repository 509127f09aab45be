// Package catalog defines the ordered translation tree and builds trees from extracted keys.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Tree is an ordered mapping from key segment to a value. Values are strings, *Tree, or opaque
// JSON values (numbers, booleans, null, arrays) read from an existing catalog.
type Tree struct {
	keys   []string
	values map[string]any
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{values: make(map[string]any)}
}

// Len returns the number of direct children.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the direct child segments in order.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.keys)
}

// Get returns the value stored under segment.
func (t *Tree) Get(segment string) (any, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.values[segment]
	return v, ok
}

// Set stores a value, keeping the original position when the segment already exists.
func (t *Tree) Set(segment string, v any) {
	if _, ok := t.values[segment]; !ok {
		t.keys = append(t.keys, segment)
	}
	t.values[segment] = v
}

// Delete removes segment.
func (t *Tree) Delete(segment string) {
	if _, ok := t.values[segment]; !ok {
		return
	}
	delete(t.values, segment)
	t.keys = slices.DeleteFunc(t.keys, func(k string) bool { return k == segment })
}

// Reorder replaces the child order. keys must be a permutation of the current keys.
func (t *Tree) Reorder(keys []string) {
	t.keys = keys
}

// Subtree returns the child tree under segment, or nil when absent or not a tree.
func (t *Tree) Subtree(segment string) *Tree {
	v, _ := t.Get(segment)
	sub, _ := v.(*Tree)
	return sub
}

// Lookup follows path and returns the value at its end.
func (t *Tree) Lookup(path []string) (any, bool) {
	cur := t
	for i, seg := range path {
		v, ok := cur.Get(seg)
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		next, ok := v.(*Tree)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// Clone returns a deep copy.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	c := &Tree{keys: slices.Clone(t.keys), values: make(map[string]any, len(t.values))}
	for k, v := range t.values {
		c.values[k] = CloneValue(v)
	}
	return c
}

// CloneValue deep-copies a tree value.
func CloneValue(v any) any {
	switch x := v.(type) {
	case *Tree:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Walk calls fn for every leaf with its path from the root, in order.
func (t *Tree) Walk(fn func(path []string, v any)) {
	t.walk(nil, fn)
}

func (t *Tree) walk(prefix []string, fn func([]string, any)) {
	if t == nil {
		return
	}
	for _, k := range t.keys {
		p := append(slices.Clone(prefix), k)
		if sub, ok := t.values[k].(*Tree); ok {
			sub.walk(p, fn)
			continue
		}
		fn(p, t.values[k])
	}
}

// Flatten returns every string leaf keyed by its path joined with sep.
func (t *Tree) Flatten(sep string) map[string]string {
	out := make(map[string]string)
	t.Walk(func(path []string, v any) {
		if s, ok := v.(string); ok {
			out[strings.Join(path, sep)] = s
		}
	})
	return out
}

// MarshalJSON encodes the tree as a JSON object in key order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Tree) encode(buf *bytes.Buffer) error {
	if t == nil {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeScalar(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := encodeValue(buf, t.values[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case *Tree:
		return x.encode(buf)
	case []any:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		return encodeScalar(buf, v)
	}
}

func encodeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	// Encoder appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (t *Tree) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("read catalog: top level value is not an object")
	}
	parsed, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

func decodeObject(dec *json.Decoder) (*Tree, error) {
	t := NewTree()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", key, err)
		}
		t.Set(key, v)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("close object: %w", err)
	}
	return t, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch x := tok.(type) {
	case json.Delim:
		switch x {
		case '{':
			return decodeObject(dec)
		case '[':
			var arr []any
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			if arr == nil {
				arr = []any{}
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", x)
	default:
		return x, nil
	}
}

// Equal reports whether two trees serialize identically, including key order.
func Equal(a, b *Tree) bool {
	ab, errA := a.MarshalJSON()
	bb, errB := b.MarshalJSON()
	return errA == nil && errB == nil && bytes.Equal(ab, bb)
}
