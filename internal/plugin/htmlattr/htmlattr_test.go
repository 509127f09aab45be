package htmlattr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keysync/internal/config"
	"keysync/internal/keys"
)

const page = `<!doctype html>
<html>
<body>
  <h1 data-i18n="home.title">
    Welcome   home
  </h1>
  <button data-i18n="[title]common:save.tooltip;common:save.label" title="Save changes">Save</button>
  <img data-i18n="[alt]img.logo" alt="Logo" />
  <p data-i18n="[html]rich.text"><b>Bold</b> text</p>
  <span data-i18n="empty"></span>
  <div data-i18n="[broken">x</div>
</body>
</html>`

func TestScan(t *testing.T) {
	cfg := config.Default()
	found := Scan([]byte(page), "index.html", cfg)

	got := make(map[string]*keys.ExtractedKey)
	var order []string
	for _, k := range found {
		id := k.ID(":")
		got[id] = k
		order = append(order, id)
	}

	assert.Equal(t, []string{
		"translation:home.title",
		"common:save.tooltip",
		"common:save.label",
		"translation:img.logo",
		"translation:rich.text",
		"translation:empty",
	}, order)

	assert.Equal(t, "Welcome home", got["translation:home.title"].DefaultValue)
	assert.Equal(t, 4, got["translation:home.title"].Locations[0].Line)
	assert.Equal(t, "Save changes", got["common:save.tooltip"].DefaultValue)
	assert.Equal(t, "Save", got["common:save.label"].DefaultValue)
	assert.Equal(t, "Logo", got["translation:img.logo"].DefaultValue)
	assert.Equal(t, "Bold", got["translation:rich.text"].DefaultValue)
	assert.False(t, got["translation:empty"].HasDefault)
}

func TestScanCustomAttribute(t *testing.T) {
	cfg := config.Default()
	cfg.HTML.Attribute = "i18n"
	found := Scan([]byte(`<a i18n="nav.home">Home</a><a data-i18n="ignored">x</a>`), "nav.html", cfg)
	require.Len(t, found, 1)
	assert.Equal(t, "nav.home", found[0].Key)
}

func TestOnEnd(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "public"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "public", "index.html"), []byte(page), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "x", "a.html"),
		[]byte(`<p data-i18n="vendor.key">v</p>`), 0o644))

	cfg := config.Default()
	m := keys.NewMap(cfg.NSSep())
	m.Add(&keys.ExtractedKey{
		Key: "home.title", Namespace: "translation", DefaultValue: "From code", HasDefault: true,
		Locations: []keys.Location{{File: "src/a.ts", Line: 3}},
	})

	p := New(root, zerolog.Nop())
	assert.Equal(t, "html", p.Name())
	require.NoError(t, p.OnEnd(context.Background(), m, cfg))

	assert.Equal(t, 6, m.Len())
	k, ok := m.Get("translation", "home.title")
	require.True(t, ok)
	assert.Equal(t, "Welcome home", k.DefaultValue)
	require.Len(t, k.Locations, 2)
	assert.Equal(t, "src/a.ts", k.Locations[0].File)
	assert.Equal(t, "public/index.html", k.Locations[1].File)
	_, ok = m.Get("translation", "vendor.key")
	assert.False(t, ok)
}

func TestOnEndHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.html"), []byte(page), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := config.Default()
	err := New(root, zerolog.Nop()).OnEnd(ctx, keys.NewMap(":"), cfg)
	assert.ErrorIs(t, err, context.Canceled)
}
