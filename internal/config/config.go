package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"keysync/internal/reconcile"
)

// DefaultFiles are tried in order when no config path is given.
var DefaultFiles = []string{"keysync.yaml", "keysync.yml"}

// Output dialects.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatJS   = "js"
	FormatTS   = "ts"
)

// HookName describes a translation hook and where its arguments live.
type HookName struct {
	Name string `yaml:"name"`
	// NSArg is the index of the namespace argument.
	NSArg int `yaml:"nsArg"`
	// KeyPrefixArg is the index of a positional key prefix, or -1 when the prefix can only come
	// from an options object.
	KeyPrefixArg int `yaml:"keyPrefixArg"`
}

// UnmarshalYAML accepts a bare hook name as well as the mapping form.
func (h *HookName) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*h = HookName{Name: n.Value, KeyPrefixArg: -1}
		return nil
	}
	type plain HookName
	v := plain{KeyPrefixArg: -1}
	if err := n.Decode(&v); err != nil {
		return err
	}
	*h = HookName(v)
	return nil
}

// HTMLConfig configures the built-in html plugin.
type HTMLConfig struct {
	Input     []string `yaml:"input"`
	Attribute string   `yaml:"attribute"`
}

// Config is the extraction configuration of a project.
type Config struct {
	Locales            []string `yaml:"locales"`
	PrimaryLanguage    string   `yaml:"primaryLanguage"`
	SecondaryLanguages []string `yaml:"secondaryLanguages"`

	Input  []string `yaml:"input"`
	Ignore []string `yaml:"ignore"`
	// Output is a path template with {{language}} or {{lng}} and {{namespace}} or {{ns}}.
	Output          string `yaml:"output"`
	OutputFormat    string `yaml:"outputFormat"`
	Indentation     int    `yaml:"indentation"`
	MergeNamespaces bool   `yaml:"mergeNamespaces"`

	DefaultNS        string     `yaml:"defaultNS"`
	NSSeparator      *Separator `yaml:"nsSeparator"`
	KeySeparator     *Separator `yaml:"keySeparator"`
	PluralSeparator  string     `yaml:"pluralSeparator"`
	ContextSeparator string     `yaml:"contextSeparator"`

	Functions                  []string   `yaml:"functions"`
	UseTranslationNames        []HookName `yaml:"useTranslationNames"`
	TransComponents            []string   `yaml:"transComponents"`
	TransKeepBasicHTMLNodesFor []string   `yaml:"transKeepBasicHtmlNodesFor"`

	PreservePatterns        []string `yaml:"preservePatterns"`
	RemoveUnusedKeys        bool     `yaml:"removeUnusedKeys"`
	Sort                    bool     `yaml:"sort"`
	DefaultValue            string   `yaml:"defaultValue"`
	SyncPrimaryWithDefaults bool     `yaml:"syncPrimaryWithDefaults"`

	Plugins []string   `yaml:"plugins"`
	HTML    HTMLConfig `yaml:"html"`

	WorkerCount int    `yaml:"workers"`
	MaxFileSize int    `yaml:"maxFileSize"`
	LogLevel    string `yaml:"logLevel"`

	// Programmatic hooks; they take precedence over their file counterparts.
	OutputFunc       func(locale, namespace string) (string, error) `yaml:"-"`
	DefaultValueFunc reconcile.DefaultValueFunc                      `yaml:"-"`
	SortFunc         func(a, b reconcile.KeyRecord) int              `yaml:"-"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{RemoveUnusedKeys: true}
	c.applyDefaults()
	return c
}

// Load reads .env, the config file and KEYSYNC_* overrides, then validates the result.
// .env and DefaultFiles are looked up in root. An empty path tries DefaultFiles and falls
// back to defaults when none exists.
func Load(root, path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{RemoveUnusedKeys: true}
	file, err := findFile(root, path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, file, err)
		}
		log.Debug().Str("file", file).Msg("Loaded config file")
	}

	cfg.WorkerCount = getEnvInt("KEYSYNC_WORKERS", cfg.WorkerCount)
	cfg.LogLevel = getEnv("KEYSYNC_LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultNS = getEnv("KEYSYNC_DEFAULT_NS", cfg.DefaultNS)

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findFile(root, path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("stat config: %w", err)
		}
		return path, nil
	}
	for _, name := range DefaultFiles {
		f := filepath.Join(root, name)
		if _, err := os.Stat(f); err == nil {
			return f, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat config: %w", err)
		}
	}
	return "", nil
}

func (c *Config) applyDefaults() {
	if len(c.Locales) == 0 {
		c.Locales = []string{"en"}
	}
	if c.PrimaryLanguage == "" {
		c.PrimaryLanguage = c.Locales[0]
	}
	if len(c.SecondaryLanguages) == 0 {
		for _, l := range c.Locales {
			if l != c.PrimaryLanguage {
				c.SecondaryLanguages = append(c.SecondaryLanguages, l)
			}
		}
	}
	if len(c.Input) == 0 {
		c.Input = []string{"src/**/*.{js,jsx,mjs,cjs,ts,tsx,mts,cts}"}
	}
	if len(c.Ignore) == 0 {
		c.Ignore = []string{"node_modules/**", "**/*.d.ts"}
	}
	if c.Output == "" {
		c.Output = "locales/{{language}}/{{namespace}}.json"
	}
	if c.OutputFormat == "" {
		c.OutputFormat = FormatJSON
	}
	if c.Indentation <= 0 {
		c.Indentation = 2
	}
	if c.DefaultNS == "" {
		c.DefaultNS = "translation"
	}
	if c.NSSeparator == nil {
		c.NSSeparator = &Separator{Value: ":"}
	}
	if c.KeySeparator == nil {
		c.KeySeparator = &Separator{Value: "."}
	}
	if c.PluralSeparator == "" {
		c.PluralSeparator = "_"
	}
	if c.ContextSeparator == "" {
		c.ContextSeparator = "_"
	}
	if len(c.Functions) == 0 {
		c.Functions = []string{"t", "*.t"}
	}
	if len(c.UseTranslationNames) == 0 {
		c.UseTranslationNames = []HookName{
			{Name: "useTranslation", NSArg: 0, KeyPrefixArg: -1},
			{Name: "getT", NSArg: 0, KeyPrefixArg: -1},
			{Name: "useT", NSArg: 0, KeyPrefixArg: -1},
			{Name: "getFixedT", NSArg: 1, KeyPrefixArg: 2},
		}
	}
	if len(c.TransComponents) == 0 {
		c.TransComponents = []string{"Trans"}
	}
	if c.HTML.Attribute == "" {
		c.HTML.Attribute = "data-i18n"
	}
	if len(c.HTML.Input) == 0 {
		c.HTML.Input = []string{"**/*.html"}
	}
	if c.WorkerCount < 1 {
		c.WorkerCount = 8
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// NSSep returns the namespace separator, or "" when disabled.
func (c *Config) NSSep() string { return c.NSSeparator.String() }

// KeySep returns the key separator, or "" when disabled.
func (c *Config) KeySep() string { return c.KeySeparator.String() }

// IsPrimary reports whether locale is the primary language.
func (c *Config) IsPrimary(locale string) bool { return locale == c.PrimaryLanguage }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
