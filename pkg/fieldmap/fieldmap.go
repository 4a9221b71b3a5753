// Package fieldmap provides an ordered mapping from field name to a
// variant-typed value. Items carry one of these for source attributes that
// have not been promoted to typed columns, so readers and the change
// detector never need reflection to walk them.
package fieldmap

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the concrete type held by a Value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
)

// Value is a variant holding exactly one of the supported scalar types.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
}

// String constructs a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number constructs a numeric Value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Equal reports whether two values hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindBool:
		return v.Bool == o.Bool
	default:
		return v.Str == o.Str
	}
}

// Render returns the value in its canonical text form.
func (v Value) Render() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

type entry struct {
	name  string
	value Value
}

// Map is an ordered field-name→Value mapping. Insertion order is preserved
// so canonical serializations (and therefore content fingerprints) are
// stable across runs.
type Map struct {
	entries []entry
	index   map[string]int
}

// New returns an empty Map.
func New() *Map {
	return &Map{index: make(map[string]int)}
}

// Set inserts or replaces the value for name, preserving first-insert order.
func (m *Map) Set(name string, v Value) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[name]; ok {
		m.entries[i].value = v
		return
	}
	m.index[name] = len(m.entries)
	m.entries = append(m.entries, entry{name: name, value: v})
}

// Get returns the value for name and whether it was present.
func (m *Map) Get(name string) (Value, bool) {
	if m == nil || m.index == nil {
		return Value{}, false
	}
	i, ok := m.index[name]
	if !ok {
		return Value{}, false
	}
	return m.entries[i].value, true
}

// Len returns the number of fields.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Walk calls fn for each field in insertion order.
func (m *Map) Walk(fn func(name string, v Value)) {
	if m == nil {
		return
	}
	for _, e := range m.entries {
		fn(e.name, e.value)
	}
}

// equal reports whether two maps hold the same fields with the same values,
// ignoring insertion order.
func (m *Map) equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	if m == nil {
		return true
	}
	for _, e := range m.entries {
		ov, ok := o.Get(e.name)
		if !ok || !e.value.Equal(ov) {
			return false
		}
	}
	return true
}

// Canonical renders the map as "name=value;..." in insertion order, with
// separators escaped. Used for content fingerprinting.
func (m *Map) Canonical() string {
	if m == nil || len(m.entries) == 0 {
		return ""
	}
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s=%s", escape(e.name), escape(e.value.Render()))
	}
	return b.String()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `;`, `\;`)
	return strings.ReplaceAll(s, `=`, `\=`)
}
