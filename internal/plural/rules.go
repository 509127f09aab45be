// Package plural derives CLDR plural categories per locale and expands keys into their
// plural and context variants.
package plural

import (
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
)

// Category names in canonical CLDR order.
const (
	Zero  = "zero"
	One   = "one"
	Two   = "two"
	Few   = "few"
	Many  = "many"
	Other = "other"
)

var canonicalOrder = []string{Zero, One, Two, Few, Many, Other}

var formNames = map[plural.Form]string{
	plural.Zero:  Zero,
	plural.One:   One,
	plural.Two:   Two,
	plural.Few:   Few,
	plural.Many:  Many,
	plural.Other: Other,
}

// Categories is the immutable category set of one locale.
type Categories struct {
	Cardinal []string
	Ordinal  []string
}

// Table caches category sets per locale for the duration of a run.
type Table struct {
	mu    sync.Mutex
	cache map[string]Categories
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{cache: make(map[string]Categories)}
}

// For returns the category sets of locale. Tags that do not parse fall back to English rules.
func (t *Table) For(locale string) Categories {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.cache[locale]; ok {
		return c
	}

	tag, err := language.Parse(locale)
	if err != nil {
		log.Warn().Str("locale", locale).Msg("Unknown locale tag, using English plural rules")
		tag = language.English
	}

	c := Categories{
		Cardinal: collect(plural.Cardinal, tag, true),
		Ordinal:  collect(plural.Ordinal, tag, false),
	}
	t.cache[locale] = c
	return c
}

// collect samples the rule set over integers and, for cardinals, decimals with one and two
// visible fraction digits until every reachable category has been seen.
func collect(rules *plural.Rules, tag language.Tag, decimals bool) []string {
	seen := make(map[string]bool, len(canonicalOrder))
	mark := func(i, v, w, f, t int) {
		seen[formNames[rules.MatchPlural(tag, i, v, w, f, t)]] = true
	}

	for i := 0; i <= 1000; i++ {
		mark(i, 0, 0, 0, 0)
	}
	for _, i := range []int{10000, 100000, 1000000, 10000000} {
		mark(i, 0, 0, 0, 0)
	}

	if decimals {
		for i := 0; i <= 100; i++ {
			for d := 0; d <= 9; d++ {
				w, t := 1, d
				if d == 0 {
					w, t = 0, 0
				}
				mark(i, 1, w, d, t)
			}
		}
		for i := 0; i <= 10; i++ {
			for f := 0; f <= 99; f++ {
				w, t := 2, f
				switch {
				case f == 0:
					w, t = 0, 0
				case f%10 == 0:
					w, t = 1, f/10
				}
				mark(i, 2, w, f, t)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for _, name := range canonicalOrder {
		if seen[name] {
			out = append(out, name)
		}
	}
	return out
}

// Has reports whether category is part of set.
func Has(set []string, category string) bool {
	return slices.Contains(set, category)
}
