package extract

import (
	"slices"

	sitter "github.com/smacker/go-tree-sitter"

	"keysync/internal/scope"
	"keysync/internal/textutil"
)

// maxCombinations caps the expansion of template literals over literal unions.
const maxCombinations = 1000

// literals reduces an expression to the finite set of strings it can evaluate to.
func (w *fileWalk) literals(n *sitter.Node) ([]string, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Type() {
	case "string":
		return []string{textutil.UnquoteJS(w.text(n))}, true
	case "number":
		return []string{w.text(n)}, true
	case "template_string":
		return w.template(n)
	case "parenthesized_expression", "non_null_expression":
		return w.literals(firstNamed(n))
	case "ternary_expression":
		a, okA := w.literals(n.ChildByFieldName("consequence"))
		b, okB := w.literals(n.ChildByFieldName("alternative"))
		if !okA || !okB {
			return nil, false
		}
		return union(a, b), true
	case "as_expression", "satisfies_expression":
		c := namedChildren(n)
		if len(c) < 2 {
			return nil, false
		}
		if vals, ok := w.typeLiterals(c[len(c)-1]); ok {
			return vals, true
		}
		return w.literals(c[0])
	case "binary_expression":
		if op := n.Child(1); op == nil || op.Type() != "+" {
			return nil, false
		}
		left, okL := w.literals(n.ChildByFieldName("left"))
		right, okR := w.literals(n.ChildByFieldName("right"))
		if !okL || !okR {
			return nil, false
		}
		return product([][]string{left, right})
	case "identifier", "shorthand_property_identifier":
		if b, ok := w.scope.Resolve(w.text(n)); ok && b.Kind == scope.KindValue {
			return b.Values, true
		}
	}
	return nil, false
}

// stringValue returns the single string a plain string or substitution-free template holds.
func (w *fileWalk) stringValue(n *sitter.Node) (string, bool) {
	n = unwrap(n)
	if n == nil || (n.Type() != "string" && n.Type() != "template_string") {
		return "", false
	}
	vals, ok := w.literals(n)
	if !ok || len(vals) != 1 {
		return "", false
	}
	return vals[0], true
}

// template expands a template literal into the product of its substitutions' literal sets.
func (w *fileWalk) template(n *sitter.Node) ([]string, bool) {
	start, end := n.StartByte()+1, n.EndByte()-1
	if end < start {
		return nil, false
	}
	var parts [][]string
	pos := start
	for _, c := range namedChildren(n) {
		if c.Type() != "template_substitution" {
			continue
		}
		parts = append(parts, []string{textutil.UnescapeJS(string(w.src[pos:c.StartByte()]))})
		vals, ok := w.literals(firstNamed(c))
		if !ok {
			return nil, false
		}
		parts = append(parts, vals)
		pos = c.EndByte()
	}
	parts = append(parts, []string{textutil.UnescapeJS(string(w.src[pos:end]))})
	return product(parts)
}

// typeLiterals reduces a type to the string literals of a union.
func (w *fileWalk) typeLiterals(n *sitter.Node) ([]string, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Type() {
	case "type_annotation", "parenthesized_type":
		return w.typeLiterals(firstNamed(n))
	case "literal_type":
		c := firstNamed(n)
		if c == nil {
			return nil, false
		}
		switch c.Type() {
		case "string":
			return []string{textutil.UnquoteJS(w.text(c))}, true
		case "number":
			return []string{w.text(c)}, true
		}
	case "string":
		return []string{textutil.UnquoteJS(w.text(n))}, true
	case "union_type":
		var out []string
		for _, c := range namedChildren(n) {
			vals, ok := w.typeLiterals(c)
			if !ok {
				return nil, false
			}
			out = union(out, vals)
		}
		return out, len(out) > 0
	case "type_identifier":
		return w.scope.ResolveType(w.text(n))
	}
	return nil, false
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, v := range b {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// product concatenates one choice from every part, in order.
func product(parts [][]string) ([]string, bool) {
	out := []string{""}
	for _, p := range parts {
		if len(out)*len(p) > maxCombinations {
			return nil, false
		}
		next := make([]string, 0, len(out)*len(p))
		for _, prefix := range out {
			for _, v := range p {
				next = append(next, prefix+v)
			}
		}
		out = next
	}
	return union(nil, out), true
}
