package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAddKeepsDiscoveryOrder(t *testing.T) {
	m := NewMap(":")
	m.Add(&ExtractedKey{Key: "b", Namespace: "translation"})
	m.Add(&ExtractedKey{Key: "a", Namespace: "translation"})
	m.Add(&ExtractedKey{Key: "c", Namespace: "common"})

	var got []string
	for _, k := range m.Keys() {
		got = append(got, k.ID(":"))
	}
	assert.Equal(t, []string{"translation:b", "translation:a", "common:c"}, got)
	assert.Equal(t, []string{"translation", "common"}, m.Namespaces())
	assert.Len(t, m.ByNamespace("translation"), 2)
}

func TestMapAddDefaultValueRules(t *testing.T) {
	m := NewMap(":")
	m.Add(&ExtractedKey{Key: "k", Namespace: "ns", DefaultValue: "first", HasDefault: true})
	m.Add(&ExtractedKey{Key: "k", Namespace: "ns"})

	k, ok := m.Get("ns", "k")
	require.True(t, ok)
	assert.Equal(t, "first", k.DefaultValue, "a site without a default keeps the stored one")

	m.Add(&ExtractedKey{Key: "k", Namespace: "ns", DefaultValue: "last", HasDefault: true})
	k, _ = m.Get("ns", "k")
	assert.Equal(t, "last", k.DefaultValue, "the latest explicit default overwrites")
}

func TestMapAddMergesVariantsAndLocations(t *testing.T) {
	m := NewMap(":")
	m.Add(&ExtractedKey{Key: "k", Namespace: "ns", Contexts: []string{"male"},
		Locations: []Location{{File: "a.ts", Line: 1}}})
	m.Add(&ExtractedKey{Key: "k", Namespace: "ns", Contexts: []string{"female", "male"},
		Plural:    &PluralOptions{HasCount: true, ExplicitForms: map[string]string{"one": "1 item"}},
		Locations: []Location{{File: "b.ts", Line: 2}}})

	k, _ := m.Get("ns", "k")
	assert.Equal(t, []string{"male", "female"}, k.Contexts)
	require.NotNil(t, k.Plural)
	assert.True(t, k.Plural.HasCount)
	assert.Equal(t, "1 item", k.Plural.ExplicitForms["one"])
	assert.Len(t, k.Locations, 2)
	assert.Equal(t, 1, m.Len())
}

func TestMapAddIgnoresBlankKeys(t *testing.T) {
	m := NewMap(":")
	m.Add(&ExtractedKey{Key: "", Namespace: "ns"})
	m.Add(&ExtractedKey{Key: "   ", Namespace: "ns"})
	m.Add(nil)
	m.Add(&ExtractedKey{Key: "ok", Namespace: "ns"})
	assert.Equal(t, 1, m.Len())
}

func TestMapAddCopiesInput(t *testing.T) {
	m := NewMap(":")
	in := &ExtractedKey{Key: "k", Namespace: "ns", Locations: []Location{{File: "a.ts"}}}
	m.Add(in)
	m.Add(&ExtractedKey{Key: "k", Namespace: "ns", Locations: []Location{{File: "b.ts"}}})
	assert.Len(t, in.Locations, 1)
}

func TestIdentityFallsBackToColon(t *testing.T) {
	assert.Equal(t, "ns:k", Identity("ns", "k", ""))
	assert.Equal(t, "ns|k", Identity("ns", "k", "|"))
}
