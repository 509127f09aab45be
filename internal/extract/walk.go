package extract

import (
	"strings"

	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"

	"keysync/internal/keys"
	"keysync/internal/plugin"
	"keysync/internal/scope"
	"keysync/internal/textutil"
)

type nodeKind int

const (
	kindOther nodeKind = iota
	kindComment
	kindCall
	kindDeclarator
	kindTypeAlias
	kindJSXElement
	kindFunction
	kindBlock
)

var nodeKinds = map[string]nodeKind{
	"comment":                        kindComment,
	"call_expression":                kindCall,
	"variable_declarator":            kindDeclarator,
	"type_alias_declaration":         kindTypeAlias,
	"jsx_element":                    kindJSXElement,
	"jsx_self_closing_element":       kindJSXElement,
	"function_declaration":           kindFunction,
	"function":                       kindFunction,
	"function_expression":            kindFunction,
	"generator_function":             kindFunction,
	"generator_function_declaration": kindFunction,
	"arrow_function":                 kindFunction,
	"method_definition":              kindFunction,
	"statement_block":                kindBlock,
	"class_body":                     kindBlock,
	"for_statement":                  kindBlock,
	"for_in_statement":               kindBlock,
	"catch_clause":                   kindBlock,
	"switch_body":                    kindBlock,
}

func kindOf(n *sitter.Node) nodeKind {
	return nodeKinds[n.Type()]
}

// fileWalk is the state of one file walk. It is discarded when the walk ends.
type fileWalk struct {
	e     *Extractor
	src   []byte
	file  string
	scope *scope.Resolver
	pctx  *plugin.Context
	log   zerolog.Logger
}

func newScope() *scope.Resolver { return scope.New() }

func (w *fileWalk) visit(n *sitter.Node) {
	if n == nil {
		return
	}
	switch kindOf(n) {
	case kindComment:
		w.comment(n)
	case kindCall:
		w.call(n)
	case kindDeclarator:
		w.declarator(n)
	case kindTypeAlias:
		w.typeAlias(n)
	case kindJSXElement:
		w.jsx(n)
	case kindFunction:
		w.e.plugins.Visit(n, w.pctx)
		w.function(n)
		return
	case kindBlock:
		w.e.plugins.Visit(n, w.pctx)
		w.scope.Enter()
		w.children(n)
		w.scope.Exit()
		return
	}
	w.e.plugins.Visit(n, w.pctx)
	w.children(n)
}

func (w *fileWalk) children(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		w.visit(n.Child(i))
	}
}

// function opens a scope for parameters and body. A declared function name shadows outer
// bindings in the enclosing scope.
func (w *fileWalk) function(n *sitter.Node) {
	if n.Type() == "function_declaration" || n.Type() == "generator_function_declaration" {
		if name := n.ChildByFieldName("name"); name != nil {
			w.scope.Shadow(w.text(name))
		}
	}

	w.scope.Enter()
	if p := n.ChildByFieldName("parameter"); p != nil {
		w.scope.Shadow(w.text(p))
	}
	if ps := n.ChildByFieldName("parameters"); ps != nil {
		for _, p := range namedChildren(ps) {
			w.parameter(p)
		}
	}
	w.children(n)
	w.scope.Exit()
}

// parameter binds a parameter typed with a literal union to its values and shadows every
// other parameter name.
func (w *fileWalk) parameter(p *sitter.Node) {
	pattern := p
	if f := p.ChildByFieldName("pattern"); f != nil {
		pattern = f
	}
	if pattern.Type() == "identifier" {
		if typ := p.ChildByFieldName("type"); typ != nil {
			if vals, ok := w.typeLiterals(typ); ok {
				w.scope.Bind(w.text(pattern), scope.Binding{Kind: scope.KindValue, Values: vals})
				return
			}
		}
	}
	for _, name := range w.patternNames(pattern) {
		w.scope.Shadow(name)
	}
}

func (w *fileWalk) declarator(n *sitter.Node) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	value := unwrap(n.ChildByFieldName("value"))

	if value != nil && value.Type() == "call_expression" {
		if b, ok := w.hookBinding(value); ok {
			w.bindPattern(name, b)
			return
		}
	}

	if name.Type() != "identifier" {
		for _, id := range w.patternNames(name) {
			w.scope.Shadow(id)
		}
		return
	}
	id := w.text(name)

	if value != nil {
		if b, ok := w.aliasBinding(value); ok {
			w.scope.Bind(id, b)
			return
		}
	}
	if typ := n.ChildByFieldName("type"); typ != nil {
		if vals, ok := w.typeLiterals(typ); ok {
			w.scope.Bind(id, scope.Binding{Kind: scope.KindValue, Values: vals})
			return
		}
	}
	if value != nil {
		if vals, ok := w.literals(value); ok {
			w.scope.Bind(id, scope.Binding{Kind: scope.KindValue, Values: vals})
			return
		}
	}
	w.scope.Shadow(id)
}

// hookBinding recognizes `useTranslation('ns', { keyPrefix })` style calls.
func (w *fileWalk) hookBinding(call *sitter.Node) (scope.Binding, bool) {
	callee := call.ChildByFieldName("function")
	if callee == nil {
		return scope.Binding{}, false
	}
	name := w.compact(callee)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	h, ok := w.e.hooks[name]
	if !ok {
		return scope.Binding{}, false
	}

	b := scope.Binding{Kind: scope.KindHook}
	args := w.args(call)
	if h.NSArg < len(args) {
		b.Namespaces = w.namespaces(args[h.NSArg])
	}
	if h.KeyPrefixArg >= 0 && h.KeyPrefixArg < len(args) {
		if s, ok := w.stringValue(args[h.KeyPrefixArg]); ok {
			b.KeyPrefix = s
		}
	}
	for _, a := range args {
		if a.Type() != "object" {
			continue
		}
		if v := w.property(a, "keyPrefix"); v != nil {
			if s, ok := w.stringValue(v); ok {
				b.KeyPrefix = s
			}
		}
	}
	return b, true
}

// bindPattern installs a hook binding for the names a declaration pattern takes from it.
func (w *fileWalk) bindPattern(pattern *sitter.Node, b scope.Binding) {
	switch pattern.Type() {
	case "identifier":
		w.scope.Bind(w.text(pattern), b)
	case "array_pattern":
		if first := firstNamed(pattern); first != nil && first.Type() == "identifier" {
			w.scope.Bind(w.text(first), b)
		}
	case "object_pattern":
		for _, c := range namedChildren(pattern) {
			switch c.Type() {
			case "shorthand_property_identifier_pattern":
				if name := w.text(c); name == "t" || name == "i18n" {
					w.scope.Bind(name, b)
				} else {
					w.scope.Shadow(name)
				}
			case "pair_pattern":
				key, val := c.ChildByFieldName("key"), c.ChildByFieldName("value")
				if key != nil && val != nil && val.Type() == "identifier" && w.propertyName(key) == "t" {
					w.scope.Bind(w.text(val), b)
					continue
				}
				for _, id := range w.patternNames(val) {
					w.scope.Shadow(id)
				}
			}
		}
	}
}

// aliasBinding recognizes declarations whose value is a translation function.
func (w *fileWalk) aliasBinding(value *sitter.Node) (scope.Binding, bool) {
	switch value.Type() {
	case "identifier":
		name := w.text(value)
		if b, ok := w.scope.Translator(name); ok {
			alias := *b
			return alias, true
		}
		if _, bound := w.scope.Resolve(name); !bound && w.e.matchFunc(name) {
			return scope.Binding{Kind: scope.KindFunction}, true
		}
	case "member_expression":
		path := w.memberPath(value)
		if path == "" {
			return scope.Binding{}, false
		}
		root, last := splitPath(path)
		if b, ok := w.scope.Translator(root); ok && last == "t" {
			return scope.Binding{Kind: scope.KindFunction, Namespaces: b.Namespaces, KeyPrefix: b.KeyPrefix}, true
		}
		if w.e.matchFunc(path) {
			return scope.Binding{Kind: scope.KindFunction}, true
		}
	}
	return scope.Binding{}, false
}

func (w *fileWalk) typeAlias(n *sitter.Node) {
	name, value := n.ChildByFieldName("name"), n.ChildByFieldName("value")
	if name == nil || value == nil {
		return
	}
	if vals, ok := w.typeLiterals(value); ok {
		w.scope.BindType(w.text(name), vals)
	}
}

// patternNames lists the identifiers a binding pattern declares.
func (w *fileWalk) patternNames(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{w.text(n)}
	case "pair_pattern":
		return w.patternNames(n.ChildByFieldName("value"))
	case "assignment_pattern", "object_assignment_pattern":
		return w.patternNames(n.ChildByFieldName("left"))
	}
	var out []string
	for _, c := range namedChildren(n) {
		out = append(out, w.patternNames(c)...)
	}
	return out
}

func (w *fileWalk) location(n *sitter.Node) keys.Location {
	p := n.StartPoint()
	return keys.Location{File: w.file, Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func (w *fileWalk) text(n *sitter.Node) string {
	return n.Content(w.src)
}

// compact returns the source text of n without whitespace.
func (w *fileWalk) compact(n *sitter.Node) string {
	return strings.Join(strings.Fields(w.text(n)), "")
}

// memberPath renders an identifier or member chain such as `this.props.t`, or returns ""
// for anything computed.
func (w *fileWalk) memberPath(n *sitter.Node) string {
	switch n.Type() {
	case "identifier", "this", "property_identifier":
		return w.text(n)
	case "member_expression":
		obj, prop := n.ChildByFieldName("object"), n.ChildByFieldName("property")
		if obj == nil || prop == nil {
			return ""
		}
		left := w.memberPath(obj)
		if left == "" {
			return ""
		}
		return left + "." + w.text(prop)
	case "non_null_expression", "parenthesized_expression":
		if inner := firstNamed(n); inner != nil {
			return w.memberPath(inner)
		}
	}
	return ""
}

// args returns the argument expressions of a call.
func (w *fileWalk) args(call *sitter.Node) []*sitter.Node {
	a := call.ChildByFieldName("arguments")
	if a == nil || a.Type() != "arguments" {
		return nil
	}
	return namedChildren(a)
}

// property returns the value of a named property in an object literal.
func (w *fileWalk) property(obj *sitter.Node, name string) *sitter.Node {
	for _, c := range namedChildren(obj) {
		switch c.Type() {
		case "pair":
			if k := c.ChildByFieldName("key"); k != nil && w.propertyName(k) == name {
				return c.ChildByFieldName("value")
			}
		case "shorthand_property_identifier":
			if w.text(c) == name {
				return c
			}
		}
	}
	return nil
}

func (w *fileWalk) propertyName(k *sitter.Node) string {
	switch k.Type() {
	case "string":
		return textutil.UnquoteJS(w.text(k))
	case "computed_property_name":
		if s, ok := w.stringValue(firstNamed(k)); ok {
			return s
		}
		return ""
	}
	return w.text(k)
}

func splitPath(path string) (root, last string) {
	root = path
	if i := strings.Index(path, "."); i >= 0 {
		root = path[:i]
	}
	last = path
	if i := strings.LastIndex(path, "."); i >= 0 {
		last = path[i+1:]
	}
	return root, last
}

// namedChildren returns the named children of n, skipping comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c != nil && c.Type() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if c := namedChildren(n); len(c) > 0 {
		return c[0]
	}
	return nil
}

// unwrap strips await, parentheses and non-null assertions around an expression.
func unwrap(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "await_expression", "parenthesized_expression", "non_null_expression":
			n = firstNamed(n)
		default:
			return n
		}
	}
	return nil
}
