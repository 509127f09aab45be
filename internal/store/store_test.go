package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keysync/internal/catalog"
)

func sample(t *testing.T) *catalog.Tree {
	t.Helper()
	tree := catalog.NewTree()
	require.NoError(t, tree.UnmarshalJSON([]byte(`{"z":"last <b>bold</b>","a":{"count":3,"on":true,"none":null,"list":["x",1.5]},"yes":"true"}`)))
	return tree
}

func TestDialectOf(t *testing.T) {
	assert.Equal(t, JSON, DialectOf("locales/en/translation.json"))
	assert.Equal(t, YAML, DialectOf("a.YML"))
	assert.Equal(t, JS, DialectOf("a.mjs"))
	assert.Equal(t, TS, DialectOf("a.ts"))
}

func TestReadMissing(t *testing.T) {
	_, err := New(0).Read(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoundTripAllDialects(t *testing.T) {
	dir := t.TempDir()
	s := New(0)
	for _, name := range []string{"c.json", "c.yaml", "c.js", "c.ts"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			want := sample(t)
			require.NoError(t, s.Write(path, want, Format{Indent: 2}))

			got, err := s.Read(path)
			require.NoError(t, err)
			assert.True(t, catalog.Equal(want, got), "%s round trip changed the tree", name)
		})
	}
}

func TestJSONOutputIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en.json")
	require.NoError(t, New(0).Write(path, sample(t), Format{Dialect: JSON, Indent: 4}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n    \"z\": \"last <b>bold</b>\","))
	assert.True(t, strings.HasSuffix(string(data), "}\n"))
	assert.True(t, json.Valid(data))
}

func TestEmptyFilesReadAsEmptyTrees(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"e.json", "e.yaml", "e.ts"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))
		tree, err := New(0).Read(path)
		require.NoError(t, err, name)
		assert.Equal(t, 0, tree.Len(), name)
	}
}

func TestReadRejectsMalformed(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad.json":  `["not", "an", "object"]`,
		"bad.yaml":  "- a\n- b\n",
		"bad.js":    "export const x = 1;\n",
		"dyn.ts":    "const n = 1;\nexport default { a: `x${n}` };\n",
		"call.js":   "export default { a: t('x') };\n",
		"broken.ts": "export default { a: ",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := New(0).Read(path)
		assert.Error(t, err, name)
		assert.NotErrorIs(t, err, ErrNotFound, name)
	}
}

func TestReadModuleForms(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"esm.js": `export default { greeting: 'Hello', 'with space': "x", nested: { n: -2 } };`,
		"cjs.cjs": `// comment
module.exports = { greeting: 'Hello', 'with space': "x", nested: { n: -2 } };`,
		"named.ts": `const resources = {
  greeting: 'Hello', // trailing comment
  'with space': "x",
  nested: { n: -2 },
} as const;
export default resources;`,
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		tree, err := New(0).Read(path)
		require.NoError(t, err, name)
		raw, err := tree.MarshalJSON()
		require.NoError(t, err)
		assert.JSONEq(t, `{"greeting":"Hello","with space":"x","nested":{"n":-2}}`, string(raw), name)
	}
}

func TestYAMLPreservesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`# Catalog header

# Greeting shown on the landing page
greeting: Hello # keep short
menu:
  # File menu
  file: File
removed: Gone
`), 0o644))

	s := New(0)
	tree, err := s.Read(path)
	require.NoError(t, err)
	tree.Delete("removed")
	tree.Subtree("menu").Set("edit", "Edit")
	tree.Set("added", "true")
	require.NoError(t, s.Write(path, tree, Format{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "# Catalog header")
	assert.Contains(t, out, "# Greeting shown on the landing page\ngreeting: Hello # keep short")
	assert.Contains(t, out, "# File menu\n  file: File")
	assert.Contains(t, out, "edit: Edit")
	assert.NotContains(t, out, "Gone")
	assert.Contains(t, out, `added: "true"`)

	again, err := s.Read(path)
	require.NoError(t, err)
	assert.True(t, catalog.Equal(tree, again))
}

func TestRenderUnknownDialect(t *testing.T) {
	_, err := New(0).Render("x.json", catalog.NewTree(), Format{Dialect: "xml"})
	assert.Error(t, err)
}

func TestWriteReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"old":"x"}`), 0o600))

	tree := catalog.NewTree()
	tree.Set("new", "y")
	require.NoError(t, New(0).Write(path, tree, Format{}))

	got, err := New(0).Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, got.Keys())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
