package interpolation

import (
	"regexp"
	"slices"
	"strings"
)

// varMatch stores a detected placeholder position.
type varMatch struct {
	start, end int
	value      string
}

// patterns detect the placeholders a translation must keep. Each normalizes its match so
// formatting differences between locales do not count as a mismatch.
var patterns = []struct {
	re        *regexp.Regexp
	normalize func(m []string) string
}{
	{
		// {{name}}, {{- raw}}, {{value, number}}
		re:        regexp.MustCompile(`\{\{-?\s*([^{}\s,]+)\s*(?:,[^{}]*)?\}\}`),
		normalize: func(m []string) string { return "{{" + m[1] + "}}" },
	},
	{
		// $t(other.key), $t(other.key, { "count": 2 })
		re:        regexp.MustCompile(`\$t\(\s*([^,)\s]+)\s*(?:,[^)]*)?\)`),
		normalize: func(m []string) string { return "$t(" + m[1] + ")" },
	},
	{
		// <1>, </1>, <br/>, <strong>
		re: regexp.MustCompile(`<(/?)([0-9]+|[a-zA-Z][a-zA-Z0-9-]*)\s*(/?)>`),
		normalize: func(m []string) string {
			return "<" + m[1] + m[2] + m[3] + ">"
		},
	},
}

// Placeholders returns the distinct placeholders of text in order of first appearance.
func Placeholders(text string) []string {
	var all []varMatch
	for _, p := range patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			groups := make([]string, len(loc)/2)
			for i := range groups {
				if loc[2*i] >= 0 {
					groups[i] = text[loc[2*i]:loc[2*i+1]]
				}
			}
			all = append(all, varMatch{start: loc[0], end: loc[1], value: p.normalize(groups)})
		}
	}
	if len(all) == 0 {
		return nil
	}

	// Sort by position, longest first on ties, then drop overlaps.
	slices.SortFunc(all, func(a, b varMatch) int {
		if a.start != b.start {
			return a.start - b.start
		}
		return (b.end - b.start) - (a.end - a.start)
	})

	var out []string
	lastEnd := -1
	for _, m := range all {
		if m.start < lastEnd {
			continue
		}
		lastEnd = m.end
		if !slices.Contains(out, m.value) {
			out = append(out, m.value)
		}
	}
	return out
}

// Mismatch compares the placeholders of a translation with those of its source. missing are in
// source only, extra in translated only.
func Mismatch(source, translated string) (missing, extra []string) {
	want, got := Placeholders(source), Placeholders(translated)
	for _, p := range want {
		if !slices.Contains(got, p) {
			missing = append(missing, p)
		}
	}
	for _, p := range got {
		if !slices.Contains(want, p) {
			extra = append(extra, p)
		}
	}
	return missing, extra
}

// Describe renders a mismatch for reports.
func Describe(missing, extra []string) string {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, " "))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(extra, " "))
	}
	return strings.Join(parts, "; ")
}
