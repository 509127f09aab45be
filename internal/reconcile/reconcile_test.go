package reconcile

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keysync/internal/catalog"
)

func parse(t *testing.T, src string) *catalog.Tree {
	t.Helper()
	var tree catalog.Tree
	require.NoError(t, json.Unmarshal([]byte(src), &tree))
	return &tree
}

func render(t *testing.T, tree *catalog.Tree) string {
	t.Helper()
	b, err := tree.MarshalJSON()
	require.NoError(t, err)
	return string(b)
}

func build(t *testing.T, entries ...catalog.Entry) *catalog.Tree {
	t.Helper()
	tree, conflicts := catalog.Build(entries, ".")
	require.Empty(t, conflicts)
	return tree
}

func leaf(key, def string, explicit bool) catalog.Entry {
	return catalog.Entry{Key: key, Leaf: catalog.Leaf{Default: def, Explicit: explicit}}
}

func suffixed(key, def string, explicit bool) catalog.Entry {
	return catalog.Entry{Key: key, Leaf: catalog.Leaf{Default: def, Explicit: explicit, Suffixed: true}}
}

func baseOptions(locale string, primary bool) Options {
	return Options{
		Locale:           locale,
		Namespace:        "translation",
		Primary:          primary,
		KeySeparator:     ".",
		RemoveUnusedKeys: true,
		Sort:             Discovery(),
		Logger:           zerolog.Nop(),
	}
}

func TestReconcileFreshCatalogs(t *testing.T) {
	nw := build(t,
		leaf("app.title", "Welcome!", true),
		leaf("app.description", "This is a <1>description</1>.", true),
	)

	en := Reconcile(nw, nil, baseOptions("en", true))
	assert.True(t, en.Updated)
	assert.Equal(t, `{"app":{"title":"Welcome!","description":"This is a <1>description</1>."}}`, render(t, en.New))
	assert.Equal(t, 2, en.Added)

	de := Reconcile(nw, nil, baseOptions("de", false))
	assert.Equal(t, `{"app":{"title":"","description":""}}`, render(t, de.New))
}

func TestReconcileIsIdempotent(t *testing.T) {
	nw := build(t, leaf("a", "A", true), leaf("b.c", "C", true))
	first := Reconcile(nw, nil, baseOptions("en", true))
	second := Reconcile(nw, first.New, baseOptions("en", true))
	assert.False(t, second.Updated)
	assert.Equal(t, render(t, first.New), render(t, second.New))
	assert.Zero(t, second.Added)
	assert.Zero(t, second.Removed)
}

func TestReconcileKeepsHumanTranslations(t *testing.T) {
	nw := build(t, leaf("greeting", "Hello", true))
	existing := parse(t, `{"greeting":"Hallo"}`)

	res := Reconcile(nw, existing, baseOptions("de", false))
	assert.False(t, res.Updated)
	assert.Equal(t, `{"greeting":"Hallo"}`, render(t, res.New))

	primary := Reconcile(nw, parse(t, `{"greeting":"Hi there"}`), baseOptions("en", true))
	assert.Equal(t, `{"greeting":"Hi there"}`, render(t, primary.New))
}

func TestReconcileSyncPrimaryWithDefaults(t *testing.T) {
	nw := build(t,
		leaf("greeting", "Hello", true),
		leaf("nodefault", "nodefault", false),
	)
	existing := parse(t, `{"greeting":"Hi","nodefault":"Edited"}`)

	opts := baseOptions("en", true)
	opts.SyncPrimaryWithDefaults = true
	res := Reconcile(nw, existing, opts)
	assert.Equal(t, `{"greeting":"Hello","nodefault":"Edited"}`, render(t, res.New))
	assert.True(t, res.Updated)
}

func TestReconcilePluralVariantsPreserved(t *testing.T) {
	nw := build(t,
		suffixed("key_one", "key", false),
		suffixed("key_other", "key", false),
	)
	existing := parse(t, `{"key_one":"Ein Schlüssel","key_other":"{{count}} Schlüssel"}`)

	for _, primary := range []bool{true, false} {
		opts := baseOptions("de", primary)
		opts.SyncPrimaryWithDefaults = true
		res := Reconcile(nw, existing, opts)
		assert.False(t, res.Updated)
		assert.Equal(t, render(t, existing), render(t, res.New))
	}
}

func TestReconcileExplicitPluralFormOverwritesPrimary(t *testing.T) {
	nw := build(t,
		suffixed("item_one", "One item", true),
		suffixed("item_other", "items", false),
	)
	opts := baseOptions("en", true)
	opts.SyncPrimaryWithDefaults = true
	res := Reconcile(nw, parse(t, `{"item_one":"old one","item_other":"old other"}`), opts)
	assert.Equal(t, `{"item_one":"One item","item_other":"old other"}`, render(t, res.New))
}

func TestReconcilePreservePatterns(t *testing.T) {
	existing := parse(t, `{"dynamic":{"status":{"active":"Active"},"gone":"x"},"stale":"y"}`)
	preserve, err := NewPreserver([]string{"dynamic.status.*"}, ":")
	require.NoError(t, err)

	opts := baseOptions("en", true)
	opts.Preserve = preserve
	res := Reconcile(build(t, leaf("fresh", "Fresh", true)), existing, opts)
	assert.Equal(t, `{"fresh":"Fresh","dynamic":{"status":{"active":"Active"}}}`, render(t, res.New))
	assert.Equal(t, 2, res.Removed)
}

func TestReconcilePreservedPathIsNotOverwritten(t *testing.T) {
	preserve, err := NewPreserver([]string{"translation:legal.*"}, ":")
	require.NoError(t, err)

	opts := baseOptions("en", true)
	opts.Preserve = preserve
	opts.SyncPrimaryWithDefaults = true
	res := Reconcile(build(t, leaf("legal.terms", "Terms", true)),
		parse(t, `{"legal":{"terms":"Lawyer approved","extra":"kept"}}`), opts)
	assert.Equal(t, `{"legal":{"terms":"Lawyer approved","extra":"kept"}}`, render(t, res.New))
}

func TestReconcileExemptNamespace(t *testing.T) {
	preserve, err := NewPreserver([]string{"translation:*"}, ":")
	require.NoError(t, err)

	opts := baseOptions("en", true)
	opts.Preserve = preserve
	existing := parse(t, `{"manual":"Keep"}`)
	res := Reconcile(build(t, leaf("new", "New", true)), existing, opts)
	assert.Equal(t, `{"manual":"Keep"}`, render(t, res.New))
	assert.False(t, res.Updated)
}

func TestReconcileStructuralRefactor(t *testing.T) {
	existing := parse(t, `{"person":{"name":"Name"}}`)

	res := Reconcile(build(t, leaf("person", "Person", true)), existing, baseOptions("en", true))
	assert.Equal(t, `{"person":"Person"}`, render(t, res.New))

	de := Reconcile(build(t, leaf("person", "Person", true)), existing, baseOptions("de", false))
	assert.Equal(t, `{"person":""}`, render(t, de.New))

	back := Reconcile(build(t, leaf("person.name", "Name", true)), parse(t, `{"person":"Person"}`), baseOptions("de", false))
	assert.Equal(t, `{"person":{"name":""}}`, render(t, back.New))
}

func TestReconcileOpaqueObjects(t *testing.T) {
	existing := parse(t, `{"menu":{"items":["a","b"],"title":"Menu"},"count":3}`)
	nw := build(t, catalog.Entry{Key: "menu", Opaque: true}, catalog.Entry{Key: "missing", Opaque: true})

	res := Reconcile(nw, existing, baseOptions("en", true))
	assert.Equal(t, `{"menu":{"items":["a","b"],"title":"Menu"}}`, render(t, res.New))
}

func TestReconcileKeepsUnusedWhenRemovalDisabled(t *testing.T) {
	opts := baseOptions("en", true)
	opts.RemoveUnusedKeys = false
	res := Reconcile(build(t, leaf("new", "New", true)), parse(t, `{"old":{"deep":"x"}}`), opts)
	assert.Equal(t, `{"new":"New","old":{"deep":"x"}}`, render(t, res.New))
}

func TestReconcileSortPolicies(t *testing.T) {
	nw := build(t, leaf("b.z", "1", true), leaf("b.a", "2", true), leaf("B", "3", true), leaf("a", "4", true))

	opts := baseOptions("en", true)
	assert.Equal(t, `{"b":{"z":"1","a":"2"},"B":"3","a":"4"}`, render(t, Reconcile(nw, nil, opts).New))

	opts.Sort = Alphabetical()
	assert.Equal(t, `{"B":"3","a":"4","b":{"a":"2","z":"1"}}`, render(t, Reconcile(nw, nil, opts).New))

	var seen []string
	opts.Sort = Custom(func(a, b KeyRecord) int {
		seen = append(seen, a.Key, b.Key)
		if d := len(a.Segment) - len(b.Segment); d != 0 {
			return d
		}
		return strings.Compare(b.Segment, a.Segment)
	})
	assert.Equal(t, `{"b":{"z":"1","a":"2"},"a":"4","B":"3"}`, render(t, Reconcile(nw, nil, opts).New))
	assert.Contains(t, seen, "b.z", "nested records carry their full key")
}

func TestReconcileSyncAllRecomputesSecondary(t *testing.T) {
	opts := baseOptions("fr", false)
	opts.SyncAll = true
	opts.Defaults = DefaultSource{Func: func(key, ns, locale string) string {
		return locale + ":" + key
	}}
	res := Reconcile(build(t, leaf("a", "A", true)), parse(t, `{"a":"old"}`), opts)
	assert.Equal(t, `{"a":"fr:a"}`, render(t, res.New))
}

func TestReconcileDefaultFuncPanicFallsBack(t *testing.T) {
	opts := baseOptions("fr", false)
	opts.Defaults = DefaultSource{Static: "unused", Func: func(string, string, string) string {
		panic("boom")
	}}
	res := Reconcile(build(t, leaf("a", "A", true), leaf("b", "B", true)), nil, opts)
	assert.Equal(t, `{"a":"","b":""}`, render(t, res.New))
}

func TestReconcileStaticDefault(t *testing.T) {
	opts := baseOptions("fr", false)
	opts.Defaults = DefaultSource{Static: "TODO"}
	res := Reconcile(build(t, leaf("a", "A", true)), nil, opts)
	assert.Equal(t, `{"a":"TODO"}`, render(t, res.New))
}
