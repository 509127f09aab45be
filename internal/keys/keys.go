// Package keys holds the flat, insertion-ordered set of translation keys discovered in one run.
package keys

import (
	"maps"
	"slices"

	"keysync/internal/textutil"
)

// DefaultNSSeparator is used to build identities when namespace separation is disabled.
const DefaultNSSeparator = ":"

// Location is a source position where a key was found.
type Location struct {
	File   string
	Line   int
	Column int
}

// PluralOptions records that a key is used with a count and how its forms are requested.
type PluralOptions struct {
	// HasCount is set when any call site passed a count.
	HasCount bool
	// Ordinal selects ordinal categories instead of cardinal ones.
	Ordinal bool
	// ExplicitForms maps a plural category to the default written for it at the call site.
	ExplicitForms map[string]string
}

// ExtractedKey is one logical key discovered in source.
type ExtractedKey struct {
	Key          string
	Namespace    string
	DefaultValue string
	// HasDefault is true when DefaultValue was written explicitly at a call site.
	HasDefault bool
	Plural     *PluralOptions
	// Contexts is an ordered set of context values.
	Contexts []string
	// Opaque marks keys requested as whole objects; their stored subtree is copied forward.
	Opaque    bool
	Locations []Location
}

// ID returns the identity of the key under the given namespace separator.
func (k *ExtractedKey) ID(nsSeparator string) string {
	return Identity(k.Namespace, k.Key, nsSeparator)
}

// Identity builds the map identity for a namespace and key.
func Identity(namespace, key, nsSeparator string) string {
	if nsSeparator == "" {
		nsSeparator = DefaultNSSeparator
	}
	return namespace + nsSeparator + key
}

// Clone returns a deep copy of the key.
func (k *ExtractedKey) Clone() *ExtractedKey {
	c := *k
	if k.Plural != nil {
		p := *k.Plural
		p.ExplicitForms = maps.Clone(k.Plural.ExplicitForms)
		c.Plural = &p
	}
	c.Contexts = slices.Clone(k.Contexts)
	c.Locations = slices.Clone(k.Locations)
	return &c
}

// Map is the insertion-ordered key set shared by every file walk of a run.
// It is not safe for concurrent use.
type Map struct {
	nsSeparator string
	order       []string
	entries     map[string]*ExtractedKey
}

// NewMap creates an empty key map.
func NewMap(nsSeparator string) *Map {
	return &Map{
		nsSeparator: nsSeparator,
		entries:     make(map[string]*ExtractedKey),
	}
}

// Add merges k into the map. A new site's explicit default replaces the stored one; a site
// without a default keeps what is stored. Locations append, plural options and contexts union.
// Blank keys are ignored. The map stores a copy, so k may be reused by the caller.
func (m *Map) Add(k *ExtractedKey) {
	if k == nil || textutil.IsBlank(k.Key) {
		return
	}
	id := k.ID(m.nsSeparator)
	cur, ok := m.entries[id]
	if !ok {
		m.entries[id] = k.Clone()
		m.order = append(m.order, id)
		return
	}

	if k.HasDefault {
		cur.DefaultValue = k.DefaultValue
		cur.HasDefault = true
	}
	cur.Locations = append(cur.Locations, k.Locations...)
	cur.Opaque = cur.Opaque || k.Opaque

	for _, c := range k.Contexts {
		if !slices.Contains(cur.Contexts, c) {
			cur.Contexts = append(cur.Contexts, c)
		}
	}

	if k.Plural != nil {
		if cur.Plural == nil {
			cur.Plural = &PluralOptions{}
		}
		cur.Plural.HasCount = cur.Plural.HasCount || k.Plural.HasCount
		cur.Plural.Ordinal = cur.Plural.Ordinal || k.Plural.Ordinal
		if len(k.Plural.ExplicitForms) > 0 {
			if cur.Plural.ExplicitForms == nil {
				cur.Plural.ExplicitForms = make(map[string]string, len(k.Plural.ExplicitForms))
			}
			maps.Copy(cur.Plural.ExplicitForms, k.Plural.ExplicitForms)
		}
	}
}

// Get returns the key stored under namespace and key.
func (m *Map) Get(namespace, key string) (*ExtractedKey, bool) {
	k, ok := m.entries[Identity(namespace, key, m.nsSeparator)]
	return k, ok
}

// Len returns the number of distinct keys.
func (m *Map) Len() int {
	return len(m.order)
}

// Keys returns the keys in discovery order.
func (m *Map) Keys() []*ExtractedKey {
	out := make([]*ExtractedKey, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.entries[id])
	}
	return out
}

// Namespaces returns every namespace that holds at least one key, in discovery order.
func (m *Map) Namespaces() []string {
	var out []string
	for _, id := range m.order {
		ns := m.entries[id].Namespace
		if !slices.Contains(out, ns) {
			out = append(out, ns)
		}
	}
	return out
}

// ByNamespace returns the keys of one namespace in discovery order.
func (m *Map) ByNamespace(namespace string) []*ExtractedKey {
	var out []*ExtractedKey
	for _, id := range m.order {
		if k := m.entries[id]; k.Namespace == namespace {
			out = append(out, k)
		}
	}
	return out
}
