// Package output maps a locale and namespace to the catalog file that holds them.
package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Fallback templates, used when no template is configured or a path function fails.
const (
	DefaultTemplate       = "locales/{{language}}/{{namespace}}.json"
	DefaultMergedTemplate = "locales/{{language}}.json"
)

// Func computes a catalog path programmatically.
type Func func(locale, namespace string) (string, error)

// Resolver turns (locale, namespace) into a file path below a root directory.
type Resolver struct {
	root     string
	template string
	fn       Func
	logger   zerolog.Logger
}

// NewResolver creates a resolver. fn takes precedence over template when set.
func NewResolver(root, template string, fn Func, logger zerolog.Logger) *Resolver {
	if template == "" {
		template = DefaultTemplate
	}
	return &Resolver{root: root, template: template, fn: fn, logger: logger}
}

// Path returns the catalog path for locale and namespace. With merged namespaces callers pass
// an empty namespace.
func (r *Resolver) Path(locale, namespace string) string {
	rel := r.template
	if r.fn != nil {
		if p, err := r.call(locale, namespace); err != nil {
			r.logger.Warn().Err(err).Str("locale", locale).Str("namespace", namespace).
				Msg("Output path function failed, using default template")
			rel = fallback(namespace)
		} else {
			return r.join(p)
		}
	}
	return r.join(Expand(rel, locale, namespace))
}

func fallback(namespace string) string {
	if namespace == "" {
		return DefaultMergedTemplate
	}
	return DefaultTemplate
}

func (r *Resolver) call(locale, namespace string) (p string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("output path function panicked: %v", rec)
		}
	}()
	p, err = r.fn(locale, namespace)
	if err == nil && strings.TrimSpace(p) == "" {
		err = fmt.Errorf("output path function returned an empty path")
	}
	return p, err
}

func (r *Resolver) join(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) || r.root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(r.root, p)
}

// Discover returns the namespaces that already have a catalog file for locale, sorted. It
// only works for templates with one namespace placeholder and returns nil for path functions.
func (r *Resolver) Discover(locale string) []string {
	if r.fn != nil {
		return nil
	}
	tmpl := strings.ReplaceAll(r.template, "{{ns}}", "{{namespace}}")
	if strings.Count(tmpl, "{{namespace}}") != 1 {
		return nil
	}
	// A NUL byte survives path cleaning and marks where the namespace goes.
	full := r.join(Expand(strings.Replace(tmpl, "{{namespace}}", "\x00", 1), locale, ""))
	before, after, _ := strings.Cut(full, "\x00")

	matches, err := filepath.Glob(before + "*" + after)
	if err != nil {
		return nil
	}
	var out []string
	for _, m := range matches {
		ns := strings.TrimSuffix(strings.TrimPrefix(m, before), after)
		if ns == "" || strings.ContainsAny(ns, `/\`) {
			continue
		}
		out = append(out, ns)
	}
	return out
}

// Expand substitutes the language and namespace placeholders of template.
func Expand(template, locale, namespace string) string {
	return strings.NewReplacer(
		"{{language}}", locale,
		"{{lng}}", locale,
		"{{namespace}}", namespace,
		"{{ns}}", namespace,
	).Replace(template)
}
