package plural

import (
	"strings"

	"keysync/internal/keys"
	"keysync/internal/textutil"
)

// OrdinalMarker is the suffix segment that selects ordinal categories.
const OrdinalMarker = "ordinal"

// Separators configures how variant suffixes are joined to the base key.
type Separators struct {
	Plural  string
	Context string
}

func (s Separators) withDefaults() Separators {
	if s.Plural == "" {
		s.Plural = "_"
	}
	if s.Context == "" {
		s.Context = "_"
	}
	return s
}

// Variant is one concrete catalog key generated from an extracted key.
type Variant struct {
	Key     string
	Default string
	// Explicit is true when Default was written in source for this exact variant.
	Explicit bool
	// Suffixed is true for plural and context variants.
	Suffixed bool
}

// SplitOrdinal strips a trailing ordinal marker from key. The marker wins over any flag given
// at the call site, so callers must OR the result into their ordinal option.
func SplitOrdinal(key, pluralSep string) (string, bool) {
	if pluralSep == "" {
		pluralSep = "_"
	}
	suffix := pluralSep + OrdinalMarker
	if strings.HasSuffix(key, suffix) && len(key) > len(suffix) {
		return strings.TrimSuffix(key, suffix), true
	}
	return key, false
}

// ExplicitFormKey is the ExplicitForms key under which a per-category default is stored.
func ExplicitFormKey(category string, ordinal bool) string {
	if ordinal {
		return OrdinalMarker + "_" + category
	}
	return category
}

// Expand produces the variants of k for a locale's categories: the bare key and its context
// variants when no count is used, otherwise every category of the base and of each context.
func Expand(k *keys.ExtractedKey, cats Categories, seps Separators) []Variant {
	seps = seps.withDefaults()

	def := k.Key
	if k.HasDefault {
		def = k.DefaultValue
	}

	var contexts []string
	for _, c := range k.Contexts {
		if !textutil.IsBlank(c) {
			contexts = append(contexts, c)
		}
	}

	if k.Plural == nil || !k.Plural.HasCount {
		out := []Variant{{Key: k.Key, Default: def, Explicit: k.HasDefault}}
		for _, c := range contexts {
			out = append(out, Variant{Key: k.Key + seps.Context + c, Default: def, Suffixed: true})
		}
		return out
	}

	ordinal := k.Plural.Ordinal
	set := cats.Cardinal
	if ordinal {
		set = cats.Ordinal
	}
	if _, ok := k.Plural.ExplicitForms[Zero]; ok && !ordinal && !Has(set, Zero) {
		set = append([]string{Zero}, set...)
	}

	bases := []string{k.Key}
	for _, c := range contexts {
		bases = append(bases, k.Key+seps.Context+c)
	}

	out := make([]Variant, 0, len(bases)*len(set))
	for _, base := range bases {
		for _, cat := range set {
			v := Variant{Key: base + seps.Plural + cat, Default: def, Suffixed: true}
			if ordinal {
				v.Key = base + seps.Plural + OrdinalMarker + seps.Plural + cat
			}
			if form, ok := k.Plural.ExplicitForms[ExplicitFormKey(cat, ordinal)]; ok {
				v.Default = form
				v.Explicit = true
			}
			out = append(out, v)
		}
	}
	return out
}
