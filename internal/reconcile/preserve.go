package reconcile

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Preserver matches catalog paths against preserve patterns. Patterns are globs in which `*`
// also crosses key separators, tried against both `key.path` and `namespace:key.path`.
type Preserver struct {
	nsSeparator string
	patterns    []glob.Glob
	raw         []string
}

// NewPreserver compiles patterns.
func NewPreserver(patterns []string, nsSeparator string) (*Preserver, error) {
	if nsSeparator == "" {
		nsSeparator = ":"
	}
	p := &Preserver{nsSeparator: nsSeparator}
	for _, pat := range patterns {
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("compile preserve pattern %q: %w", pat, err)
		}
		p.patterns = append(p.patterns, g)
		p.raw = append(p.raw, pat)
	}
	return p, nil
}

// Match reports whether keyPath in namespace is preserved.
func (p *Preserver) Match(namespace, keyPath string) bool {
	if p == nil {
		return false
	}
	qualified := namespace + p.nsSeparator + keyPath
	for _, g := range p.patterns {
		if g.Match(keyPath) || g.Match(qualified) {
			return true
		}
	}
	return false
}

// NamespaceExempt reports whether a whole namespace is preserved, which is the case when a
// pattern accepts `namespace:*`.
func (p *Preserver) NamespaceExempt(namespace string) bool {
	if p == nil {
		return false
	}
	whole := namespace + p.nsSeparator + "*"
	for _, g := range p.patterns {
		if g.Match(whole) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (p *Preserver) Patterns() []string {
	if p == nil {
		return nil
	}
	return p.raw
}
