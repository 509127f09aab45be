package extract

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/net/html"

	"keysync/internal/scope"
	"keysync/internal/textutil"
)

// jsx handles the rich-text markup component. Other elements only get their children walked.
func (w *fileWalk) jsx(n *sitter.Node) {
	open := n
	if n.Type() == "jsx_element" {
		open = n.ChildByFieldName("open_tag")
	}
	if open == nil {
		return
	}
	name := open.ChildByFieldName("name")
	if name == nil || !w.e.isTrans(w.compact(name)) {
		return
	}
	attrs := w.attributes(open)

	var opts callOptions
	var b *scope.Binding
	if v, ok := attrs["t"]; ok && v != nil {
		if id := w.expressionOf(v); id != nil && id.Type() == "identifier" {
			b, _ = w.scope.Translator(w.text(id))
		}
	}
	if b == nil {
		b, _ = w.scope.Translator("t")
	}

	if v, ok := attrs["ns"]; ok {
		if ns := w.namespaces(w.attrValue(v)); len(ns) > 0 {
			opts.ns = ns[0]
		}
	}
	if _, ok := attrs["count"]; ok {
		opts.count = true
	}
	if v, ok := attrs["context"]; ok {
		if vals, ok := w.attrLiterals(v); ok {
			opts.contexts = vals
		}
	}
	if v, ok := attrs["defaults"]; ok {
		if vals, ok := w.attrLiterals(v); ok && len(vals) == 1 {
			opts.defaultValue, opts.hasDefault = vals[0], true
		}
	}

	serialized := ""
	if n.Type() == "jsx_element" {
		serialized = w.serialize(w.jsxChildren(n))
	}
	if !opts.hasDefault && !textutil.IsBlank(serialized) {
		opts.defaultValue, opts.hasDefault = serialized, true
	}

	var raw []string
	if v, ok := attrs["i18nKey"]; ok && v != nil {
		if expr := w.expressionOf(v); expr != nil {
			if k, ok := w.selector(expr); ok {
				raw = []string{k}
			} else {
				raw = w.keyValues(expr)
			}
		} else if vals, ok := w.attrLiterals(v); ok {
			raw = vals
		}
	} else {
		if textutil.IsBlank(serialized) {
			return
		}
		raw = []string{serialized}
		opts.keepNSSeparator = true
	}

	if sep := w.e.cfg.NSSep(); opts.ns != "" && sep != "" {
		for i, k := range raw {
			raw[i] = strings.TrimPrefix(k, opts.ns+sep)
		}
	}

	loc := w.location(n)
	for _, k := range raw {
		w.emit(k, b, opts, loc)
	}
}

// attributes maps attribute names to their value node; boolean attributes map to nil.
func (w *fileWalk) attributes(open *sitter.Node) map[string]*sitter.Node {
	out := make(map[string]*sitter.Node)
	for _, c := range namedChildren(open) {
		if c.Type() != "jsx_attribute" {
			continue
		}
		parts := namedChildren(c)
		if len(parts) == 0 {
			continue
		}
		var value *sitter.Node
		if len(parts) > 1 {
			value = parts[1]
		}
		out[w.text(parts[0])] = value
	}
	return out
}

// expressionOf returns the expression inside `{...}`, or nil for other attribute values.
func (w *fileWalk) expressionOf(v *sitter.Node) *sitter.Node {
	if v == nil || v.Type() != "jsx_expression" {
		return nil
	}
	return unwrap(firstNamed(v))
}

// attrValue returns the expression node of an attribute value, either `{...}` or a string.
func (w *fileWalk) attrValue(v *sitter.Node) *sitter.Node {
	if e := w.expressionOf(v); e != nil {
		return e
	}
	return v
}

// attrLiterals reads an attribute value. Quoted JSX attributes take no backslash escapes but
// may hold HTML character references.
func (w *fileWalk) attrLiterals(v *sitter.Node) ([]string, bool) {
	if v == nil {
		return nil, false
	}
	if e := w.expressionOf(v); e != nil {
		return w.literals(e)
	}
	if v.Type() == "string" {
		s := w.text(v)
		if len(s) >= 2 {
			s = s[1 : len(s)-1]
		}
		return []string{html.UnescapeString(s)}, true
	}
	return nil, false
}

type childKind int

const (
	childText childKind = iota
	childExpression
	childElement
)

type jsxChild struct {
	kind childKind
	node *sitter.Node
	text string
}

// jsxChildren returns the children an element has after JSX compilation: text runs are
// whitespace-normalized and dropped when empty, empty expression containers disappear.
// Text is read from the source between child nodes, so it does not depend on how the grammar
// tokenizes it.
func (w *fileWalk) jsxChildren(el *sitter.Node) []jsxChild {
	open, closing := el.ChildByFieldName("open_tag"), el.ChildByFieldName("close_tag")
	if open == nil {
		return nil
	}
	pos, end := open.EndByte(), el.EndByte()
	if closing != nil {
		end = closing.StartByte()
	}

	var out []jsxChild
	text := func(from, to uint32) {
		if to <= from {
			return
		}
		if t := cleanJSXText(string(w.src[from:to])); t != "" {
			out = append(out, jsxChild{kind: childText, text: html.UnescapeString(t)})
		}
	}

	for i := 0; i < int(el.NamedChildCount()); i++ {
		c := el.NamedChild(i)
		var child jsxChild
		switch c.Type() {
		case "jsx_expression":
			if firstNamed(c) == nil {
				text(pos, c.StartByte())
				pos = c.EndByte()
				continue
			}
			child = jsxChild{kind: childExpression, node: c}
		case "jsx_element", "jsx_self_closing_element":
			child = jsxChild{kind: childElement, node: c}
		default:
			continue
		}
		text(pos, c.StartByte())
		out = append(out, child)
		pos = c.EndByte()
	}
	text(pos, end)
	return out
}

// serialize renders children as a translation default: elements become `<N>...</N>` with N
// their index among the children, `{{name}}` objects pass through, string expressions inline.
func (w *fileWalk) serialize(children []jsxChild) string {
	var b strings.Builder
	for i, c := range children {
		switch c.kind {
		case childText:
			b.WriteString(c.text)
		case childExpression:
			b.WriteString(w.serializeExpression(firstNamed(c.node)))
		case childElement:
			w.serializeElement(&b, i, c.node)
		}
	}
	return b.String()
}

func (w *fileWalk) serializeExpression(e *sitter.Node) string {
	e = unwrap(e)
	if e == nil {
		return ""
	}
	switch e.Type() {
	case "string", "template_string":
		if s, ok := w.stringValue(e); ok {
			return s
		}
	case "object":
		return w.interpolation(e)
	}
	return ""
}

// interpolation renders `{{ name }}` or `{{ val, format: 'number' }}` as a placeholder.
func (w *fileWalk) interpolation(obj *sitter.Node) string {
	name, format := "", ""
	for _, c := range namedChildren(obj) {
		switch c.Type() {
		case "shorthand_property_identifier":
			if name == "" {
				name = w.text(c)
			}
		case "pair":
			k := w.propertyName(c.ChildByFieldName("key"))
			if k == "format" {
				format, _ = w.stringValue(c.ChildByFieldName("value"))
				continue
			}
			if name == "" {
				name = k
			}
		}
	}
	if name == "" {
		return ""
	}
	if format != "" {
		return "{{" + name + ", " + format + "}}"
	}
	return "{{" + name + "}}"
}

func (w *fileWalk) serializeElement(b *strings.Builder, index int, el *sitter.Node) {
	open := el
	if el.Type() == "jsx_element" {
		open = el.ChildByFieldName("open_tag")
	}
	tag := ""
	hasAttrs := false
	if open != nil {
		if name := open.ChildByFieldName("name"); name != nil {
			tag = w.text(name)
		}
		hasAttrs = len(w.attributes(open)) > 0
	}

	var inner []jsxChild
	if el.Type() == "jsx_element" {
		inner = w.jsxChildren(el)
	}

	if w.e.keepBasic[tag] && !hasAttrs && textOnly(inner) {
		if el.Type() == "jsx_self_closing_element" {
			b.WriteString("<" + tag + "/>")
			return
		}
		b.WriteString("<" + tag + ">" + w.serialize(inner) + "</" + tag + ">")
		return
	}

	idx := strconv.Itoa(index)
	b.WriteString("<" + idx + ">" + w.serialize(inner) + "</" + idx + ">")
}

func textOnly(children []jsxChild) bool {
	for _, c := range children {
		if c.kind != childText {
			return false
		}
	}
	return true
}

// cleanJSXText applies the JSX whitespace rules: lines are trimmed at their inner edges, blank
// lines vanish and the remaining lines are joined with single spaces. A run without line breaks
// is kept as written.
func cleanJSXText(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	lastNonEmpty := -1
	for i, l := range lines {
		if strings.Trim(l, " \t") != "" {
			lastNonEmpty = i
		}
	}

	var b strings.Builder
	for i, l := range lines {
		l = strings.ReplaceAll(l, "\t", " ")
		if i > 0 {
			l = strings.TrimLeft(l, " ")
		}
		if i < len(lines)-1 {
			l = strings.TrimRight(l, " ")
		}
		if l == "" {
			continue
		}
		if i < lastNonEmpty {
			l += " "
		}
		b.WriteString(l)
	}
	return b.String()
}
