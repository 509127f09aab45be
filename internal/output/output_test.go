package output

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	assert.Equal(t, "locales/de/common.json", Expand("locales/{{language}}/{{namespace}}.json", "de", "common"))
	assert.Equal(t, "i18n/de-common.yaml", Expand("i18n/{{lng}}-{{ns}}.yaml", "de", "common"))
	assert.Equal(t, "i18n/de/.json", Expand("i18n/{{lng}}/{{ns}}.json", "de", ""))
}

func TestResolverTemplate(t *testing.T) {
	r := NewResolver("/app", "public/{{lng}}/{{ns}}.json", nil, zerolog.Nop())
	assert.Equal(t, filepath.FromSlash("/app/public/en/translation.json"), r.Path("en", "translation"))

	r = NewResolver("", "", nil, zerolog.Nop())
	assert.Equal(t, filepath.FromSlash("locales/en/translation.json"), r.Path("en", "translation"))
}

func TestResolverFunc(t *testing.T) {
	tests := []struct {
		name string
		fn   Func
		want string
	}{
		{
			name: "custom",
			fn:   func(l, ns string) (string, error) { return "out/" + ns + "." + l + ".json", nil },
			want: "/app/out/common.fr.json",
		},
		{
			name: "error falls back",
			fn:   func(string, string) (string, error) { return "", errors.New("boom") },
			want: "/app/locales/fr/common.json",
		},
		{
			name: "panic falls back",
			fn:   func(string, string) (string, error) { panic("boom") },
			want: "/app/locales/fr/common.json",
		},
		{
			name: "empty falls back",
			fn:   func(string, string) (string, error) { return " ", nil },
			want: "/app/locales/fr/common.json",
		},
		{
			name: "absolute path kept",
			fn:   func(string, string) (string, error) { return "/abs/fr.json", nil },
			want: "/abs/fr.json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver("/app", "custom/{{lng}}.json", tt.fn, zerolog.Nop())
			assert.Equal(t, filepath.FromSlash(tt.want), r.Path("fr", "common"))
		})
	}
}

func TestResolverFuncFallbackForMergedNamespaces(t *testing.T) {
	r := NewResolver("/app", "", func(string, string) (string, error) { return "", errors.New("boom") }, zerolog.Nop())
	assert.Equal(t, filepath.FromSlash("/app/locales/fr.json"), r.Path("fr", ""))
	assert.Equal(t, filepath.FromSlash("/app/locales/fr/common.json"), r.Path("fr", "common"))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"locales/en/common.json", "locales/en/translation.json", "locales/en/notes.txt", "locales/de/common.json"} {
		path := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	}

	r := NewResolver(root, "locales/{{lng}}/{{ns}}.json", nil, zerolog.Nop())
	assert.Equal(t, []string{"common", "translation"}, r.Discover("en"))
	assert.Equal(t, []string{"common"}, r.Discover("de"))
	assert.Empty(t, r.Discover("fr"))

	merged := NewResolver(root, "locales/{{lng}}.json", nil, zerolog.Nop())
	assert.Nil(t, merged.Discover("en"))

	withFunc := NewResolver(root, "", func(string, string) (string, error) { return "x.json", nil }, zerolog.Nop())
	assert.Nil(t, withFunc.Discover("en"))
}
