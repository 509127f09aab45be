package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keysync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("", writeConfig(t, "locales: [en, de, fr]\n"))
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.PrimaryLanguage)
	assert.Equal(t, []string{"de", "fr"}, cfg.SecondaryLanguages)
	assert.Equal(t, ":", cfg.NSSep())
	assert.Equal(t, ".", cfg.KeySep())
	assert.Equal(t, "translation", cfg.DefaultNS)
	assert.True(t, cfg.RemoveUnusedKeys)
	assert.Equal(t, []string{"t", "*.t"}, cfg.Functions)
	assert.Equal(t, FormatJSON, cfg.OutputFormat)
	require.Len(t, cfg.UseTranslationNames, 4)
	assert.Equal(t, -1, cfg.UseTranslationNames[0].KeyPrefixArg)
}

func TestLoadDisabledSeparatorsAndHooks(t *testing.T) {
	cfg, err := Load("", writeConfig(t, `
locales: [en]
nsSeparator: false
keySeparator: false
removeUnusedKeys: false
useTranslationNames:
  - useTranslation
  - name: loadT
    nsArg: 1
    keyPrefixArg: 2
`))
	require.NoError(t, err)
	assert.Equal(t, "", cfg.NSSep())
	assert.Equal(t, "", cfg.KeySep())
	assert.False(t, cfg.RemoveUnusedKeys)
	assert.Equal(t, []HookName{
		{Name: "useTranslation", NSArg: 0, KeyPrefixArg: -1},
		{Name: "loadT", NSArg: 1, KeyPrefixArg: 2},
	}, cfg.UseTranslationNames)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KEYSYNC_WORKERS", "3")
	t.Setenv("KEYSYNC_DEFAULT_NS", "common")
	t.Setenv("KEYSYNC_LOG_LEVEL", "debug")

	cfg, err := Load("", writeConfig(t, "locales: [en]\nworkers: 12\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.WorkerCount)
	assert.Equal(t, "common", cfg.DefaultNS)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadLooksUpDefaultFilesUnderRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "keysync.yaml"), []byte("locales: [de, en]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("KEYSYNC_WORKERS=5\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("KEYSYNC_WORKERS") })

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.PrimaryLanguage)
	assert.Equal(t, []string{"en"}, cfg.SecondaryLanguages)
	assert.Equal(t, 5, cfg.WorkerCount)
}

func TestSeparatorRejectsTrue(t *testing.T) {
	_, err := Load("", writeConfig(t, "locales: [en]\nkeySeparator: true\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad locale", func(c *Config) { c.Locales = []string{"en", "not a locale!"} }},
		{"primary missing", func(c *Config) { c.PrimaryLanguage = "fr" }},
		{"no language placeholder", func(c *Config) { c.Output = "locales/{{ns}}.json" }},
		{"no namespace placeholder", func(c *Config) { c.Output = "locales/{{lng}}.json" }},
		{"unknown format", func(c *Config) { c.OutputFormat = "xml" }},
		{"bad glob", func(c *Config) { c.Input = []string{"src/[.ts"} }},
		{"same separators", func(c *Config) { c.KeySeparator = &Separator{Value: ":"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}

	c := Default()
	c.MergeNamespaces = true
	c.Output = "locales/{{lng}}.json"
	assert.NoError(t, c.Validate())

	c = Default()
	c.Output = ""
	c.OutputFunc = func(string, string) (string, error) { return "x.json", nil }
	assert.NoError(t, c.Validate())
}
