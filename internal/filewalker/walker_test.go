package filewalker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

func rels(entries []FileEntry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Rel)
	}
	return out
}

func TestWalkFiltersAndSorts(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"src/z.ts",
		"src/a.tsx",
		"src/nested/deep/b.js",
		"src/types.d.ts",
		"src/readme.md",
		"src/node_modules/lib/index.js",
		"node_modules/pkg/index.js",
		"scripts/build.js",
	)

	w, err := NewWalker(
		[]string{"./src/**/*.{js,ts,tsx}"},
		[]string{"**/node_modules/**", "**/*.d.ts"},
		func(ext string) bool { return ext != ".md" },
	)
	require.NoError(t, err)

	entries, err := w.Walk(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.tsx", "src/nested/deep/b.js", "src/z.ts"}, rels(entries))
	assert.Equal(t, ".tsx", entries[0].Ext)
	assert.Equal(t, filepath.Join(root, "src", "a.tsx"), entries[0].Path)
}

func TestWalkRejectsFileRoot(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.ts")
	w, err := NewWalker([]string{"**/*"}, nil, nil)
	require.NoError(t, err)

	_, err = w.Walk(filepath.Join(root, "a.ts"))
	assert.Error(t, err)
}

func TestNewWalkerRejectsBadGlob(t *testing.T) {
	_, err := NewWalker([]string{"src/[.ts"}, nil, nil)
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	w, err := NewWalker([]string{"src/**/*.ts"}, []string{"src/gen/**"}, nil)
	require.NoError(t, err)

	root := filepath.FromSlash("/project")
	assert.True(t, w.Matches(root, filepath.FromSlash("/project/src/a.ts")))
	assert.True(t, w.Matches(root, filepath.FromSlash("/project/src/x/a.ts")))
	assert.False(t, w.Matches(root, filepath.FromSlash("/project/src/gen/a.ts")))
	assert.False(t, w.Matches(root, filepath.FromSlash("/other/src/a.ts")))

	assert.True(t, w.IgnoresDir("src/gen"))
	assert.False(t, w.IgnoresDir("src"))
}

func TestNilMatcher(t *testing.T) {
	var m *Matcher
	assert.False(t, m.Match("anything"))
}
