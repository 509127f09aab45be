package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"keysync/internal/keys"
	"keysync/internal/plugin"
	"keysync/internal/plural"
	"keysync/internal/scope"
	"keysync/internal/textutil"
)

const defaultValuePrefix = "defaultValue_"

// callOptions is what a call site or markup element says about its keys.
type callOptions struct {
	defaultValue string
	hasDefault   bool
	ns           string
	count        bool
	ordinal      bool
	contexts     []string
	opaque       bool
	forms        map[string]string
	// keepNSSeparator leaves keys untouched when they contain the namespace separator.
	keepNSSeparator bool
}

// translator reports whether callee is a translation function and returns its binding.
func (w *fileWalk) translator(callee *sitter.Node) (*scope.Binding, bool) {
	if callee == nil {
		return nil, false
	}
	switch callee.Type() {
	case "identifier":
		name := w.text(callee)
		if b, ok := w.scope.Resolve(name); ok {
			return b, b.IsTranslator()
		}
		return nil, w.e.matchFunc(name)
	case "member_expression":
		path := w.memberPath(callee)
		if path == "" {
			return nil, false
		}
		root, last := splitPath(path)
		if b, ok := w.scope.Translator(root); ok && last == "t" && root != path {
			return b, true
		}
		return nil, w.e.matchFunc(path)
	}
	return nil, false
}

func (w *fileWalk) call(n *sitter.Node) {
	b, ok := w.translator(n.ChildByFieldName("function"))
	if !ok {
		return
	}
	args := w.args(n)
	if len(args) == 0 {
		return
	}

	first := args[0]
	var raw []string
	key, isSelector := w.selector(first)
	switch {
	case isSelector:
		raw = []string{key}
	case first.Type() == "array":
		for _, el := range namedChildren(first) {
			raw = append(raw, w.keyValues(el)...)
		}
	default:
		raw = w.keyValues(first)
	}
	if len(raw) == 0 {
		return
	}

	var opts callOptions
	rest := args[1:]
	if len(rest) > 0 {
		if s, ok := w.stringValue(rest[0]); ok {
			opts.defaultValue, opts.hasDefault = s, true
			rest = rest[1:]
		}
	}
	if len(rest) > 0 && rest[0].Type() == "object" {
		w.readOptions(rest[0], &opts)
	}
	if isSelector {
		opts.defaultValue, opts.hasDefault = "", false
	}

	loc := w.location(n)
	for _, k := range raw {
		w.emit(k, b, opts, loc)
	}
}

// keyValues resolves a key expression to literals, falling back to expression resolvers.
func (w *fileWalk) keyValues(n *sitter.Node) []string {
	if vals, ok := w.literals(n); ok {
		return vals
	}
	got := w.e.plugins.Resolve(plugin.Expression{Node: n, Text: w.text(n), File: w.file})
	if len(got) == 0 {
		w.log.Debug().Str("expression", textutil.Truncate(w.text(n), 60)).Msg("Skipping dynamic key")
	}
	return got
}

func (w *fileWalk) readOptions(obj *sitter.Node, opts *callOptions) {
	for _, c := range namedChildren(obj) {
		var name string
		var value *sitter.Node
		switch c.Type() {
		case "pair":
			k := c.ChildByFieldName("key")
			if k == nil {
				continue
			}
			name, value = w.propertyName(k), c.ChildByFieldName("value")
		case "shorthand_property_identifier":
			name, value = w.text(c), nil
		default:
			continue
		}

		switch {
		case name == "defaultValue":
			if s, ok := w.stringValue(value); ok {
				opts.defaultValue, opts.hasDefault = s, true
			}
		case name == "ns":
			if ns := w.namespaces(value); len(ns) > 0 {
				opts.ns = ns[0]
			}
		case name == "count":
			opts.count = true
		case name == "context":
			if value == nil {
				value = c
			}
			if vals, ok := w.literals(value); ok {
				opts.contexts = append(opts.contexts, vals...)
			}
		case name == "ordinal":
			opts.ordinal = value != nil && value.Type() == "true"
		case name == "returnObjects":
			opts.opaque = value != nil && value.Type() == "true"
		case strings.HasPrefix(name, defaultValuePrefix):
			if s, ok := w.stringValue(value); ok {
				if opts.forms == nil {
					opts.forms = make(map[string]string)
				}
				opts.forms[strings.TrimPrefix(name, defaultValuePrefix)] = s
			}
		}
	}
}

// namespaces reads a namespace argument: a string or an array of strings.
func (w *fileWalk) namespaces(n *sitter.Node) []string {
	n = unwrap(n)
	if n == nil {
		return nil
	}
	if n.Type() == "array" {
		var out []string
		for _, el := range namedChildren(n) {
			if s, ok := w.stringValue(el); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := w.stringValue(n); ok && s != "" {
		return []string{s}
	}
	return nil
}

// emit resolves namespace and prefix for a raw key and adds it to the file's key set.
// Namespace precedence: `ns:` in the key, explicit option, scope binding, default namespace.
func (w *fileWalk) emit(raw string, b *scope.Binding, opts callOptions, loc keys.Location) {
	if textutil.IsBlank(raw) {
		return
	}
	key := raw
	ns := ""
	fromKey := false
	if sep := w.e.cfg.NSSep(); sep != "" && !opts.keepNSSeparator {
		if i := strings.Index(key, sep); i > 0 && !strings.ContainsAny(key[:i], " \t\r\n") {
			ns, key = key[:i], key[i+len(sep):]
			fromKey = true
		}
	}
	if ns == "" {
		ns = opts.ns
	}
	if ns == "" {
		ns = b.Namespace()
	}
	if ns == "" {
		ns = w.e.cfg.DefaultNS
	}
	if textutil.IsBlank(key) {
		return
	}
	if !fromKey && b != nil && b.KeyPrefix != "" {
		sep := w.e.cfg.KeySep()
		if sep == "" {
			sep = "."
		}
		key = b.KeyPrefix + sep + key
	}

	k := &keys.ExtractedKey{
		Key:          key,
		Namespace:    ns,
		DefaultValue: opts.defaultValue,
		HasDefault:   opts.hasDefault,
		Contexts:     opts.contexts,
		Opaque:       opts.opaque,
		Locations:    []keys.Location{loc},
	}
	if opts.count {
		ordinal := opts.ordinal
		if base, ok := plural.SplitOrdinal(key, w.e.cfg.PluralSeparator); ok {
			k.Key, ordinal = base, true
		}
		k.Plural = &keys.PluralOptions{HasCount: true, Ordinal: ordinal, ExplicitForms: opts.forms}
	}
	w.pctx.AddKey(k)
}
