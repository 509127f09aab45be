package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/text/language"
)

// ErrInvalidConfig wraps every configuration inconsistency.
var ErrInvalidConfig = errors.New("invalid config")

// Template placeholders accepted in Output.
var (
	LanguagePlaceholders  = []string{"{{language}}", "{{lng}}"}
	NamespacePlaceholders = []string{"{{namespace}}", "{{ns}}"}
)

// Validate reports configuration problems before any file is processed.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	for _, l := range c.Locales {
		if _, err := language.Parse(l); err != nil {
			add("locale %q: %v", l, err)
		}
	}
	if !slices.Contains(c.Locales, c.PrimaryLanguage) {
		add("primary language %q is not in locales", c.PrimaryLanguage)
	}
	for _, l := range c.SecondaryLanguages {
		if !slices.Contains(c.Locales, l) {
			add("secondary language %q is not in locales", l)
		}
	}

	if c.OutputFunc == nil {
		if !containsAny(c.Output, LanguagePlaceholders) {
			add("output %q has no language placeholder", c.Output)
		}
		if !c.MergeNamespaces && !containsAny(c.Output, NamespacePlaceholders) {
			add("output %q has no namespace placeholder and namespaces are not merged", c.Output)
		}
	}
	switch c.OutputFormat {
	case FormatJSON, FormatYAML, FormatJS, FormatTS:
	default:
		add("unknown output format %q", c.OutputFormat)
	}

	if len(c.Input) == 0 {
		add("no input patterns")
	}
	for _, p := range slices.Concat(c.Input, c.Ignore, c.HTML.Input) {
		if _, err := glob.Compile(p, '/'); err != nil {
			add("path pattern %q: %v", p, err)
		}
	}
	for _, p := range slices.Concat(c.Functions, c.PreservePatterns) {
		if _, err := glob.Compile(p); err != nil {
			add("pattern %q: %v", p, err)
		}
	}
	for _, h := range c.UseTranslationNames {
		if h.Name == "" || h.NSArg < 0 {
			add("hook descriptor %+v", h)
		}
	}

	if c.NSSep() != "" && c.NSSep() == c.KeySep() {
		add("namespace and key separators are both %q", c.NSSep())
	}
	return errors.Join(errs...)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
