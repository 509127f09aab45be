package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"keysync/internal/catalog"
	"keysync/internal/parser"
	"keysync/internal/textutil"
)

// decodeModule reads the object exported by `export default {...}` or `module.exports = {...}`.
// The export may also name a top-level constant holding the object.
func decodeModule(path string, data []byte, maxFileSize int) (*catalog.Tree, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return catalog.NewTree(), nil
	}
	res, err := parser.NewTreeSitterParser(maxFileSize).Parse(context.Background(), path, data)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	if res.HasErrors {
		return nil, fmt.Errorf("module has syntax errors")
	}

	m := module{src: data, consts: make(map[string]*sitter.Node)}
	var exported *sitter.Node
	root := res.Root
	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		switch stmt.Type() {
		case "lexical_declaration", "variable_declaration":
			for j := 0; j < int(stmt.NamedChildCount()); j++ {
				d := stmt.NamedChild(j)
				if d.Type() != "variable_declarator" {
					continue
				}
				name, value := d.ChildByFieldName("name"), d.ChildByFieldName("value")
				if name != nil && value != nil {
					m.consts[name.Content(data)] = value
				}
			}
		case "export_statement":
			if v := stmt.ChildByFieldName("value"); v != nil {
				exported = v
			}
		case "expression_statement":
			e := stmt.NamedChild(0)
			if e != nil && e.Type() == "assignment_expression" {
				if left := e.ChildByFieldName("left"); left != nil && left.Content(data) == "module.exports" {
					exported = e.ChildByFieldName("right")
				}
			}
		}
	}
	if exported == nil {
		return nil, fmt.Errorf("no default export")
	}

	obj := m.resolve(exported)
	if obj == nil || obj.Type() != "object" {
		return nil, fmt.Errorf("default export is not an object literal")
	}
	return m.object(obj)
}

type module struct {
	src    []byte
	consts map[string]*sitter.Node
}

// resolve strips type assertions and parentheses and follows identifiers to their constant.
func (m *module) resolve(n *sitter.Node) *sitter.Node {
	for depth := 0; n != nil && depth < 16; depth++ {
		switch n.Type() {
		case "as_expression", "satisfies_expression", "parenthesized_expression", "non_null_expression":
			n = n.NamedChild(0)
		case "identifier":
			n = m.consts[n.Content(m.src)]
		default:
			return n
		}
	}
	return n
}

func (m *module) object(n *sitter.Node) (*catalog.Tree, error) {
	t := catalog.NewTree()
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "comment":
			continue
		case "pair":
		default:
			return nil, fmt.Errorf("unsupported object member %q", c.Content(m.src))
		}
		k := c.ChildByFieldName("key")
		var key string
		switch k.Type() {
		case "property_identifier", "number":
			key = k.Content(m.src)
		case "string":
			key = textutil.UnquoteJS(k.Content(m.src))
		default:
			return nil, fmt.Errorf("unsupported key %q", k.Content(m.src))
		}
		v, err := m.value(c.ChildByFieldName("value"))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", key, err)
		}
		t.Set(key, v)
	}
	return t, nil
}

func (m *module) value(n *sitter.Node) (any, error) {
	n = m.resolve(n)
	if n == nil {
		return nil, fmt.Errorf("unresolved value")
	}
	switch n.Type() {
	case "string":
		return textutil.UnquoteJS(n.Content(m.src)), nil
	case "template_string":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if n.NamedChild(i).Type() == "template_substitution" {
				return nil, fmt.Errorf("template with substitutions")
			}
		}
		return textutil.UnquoteJS(n.Content(m.src)), nil
	case "number":
		s := n.Content(m.src)
		if !json.Valid([]byte(s)) {
			return nil, fmt.Errorf("unsupported number %q", s)
		}
		return json.Number(s), nil
	case "unary_expression":
		s := n.Content(m.src)
		if json.Valid([]byte(s)) {
			return json.Number(s), nil
		}
		return nil, fmt.Errorf("unsupported expression %q", s)
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	case "object":
		return m.object(n)
	case "array":
		out := []any{}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "comment" {
				continue
			}
			v, err := m.value(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported expression %q", n.Content(m.src))
}

// encodeModule renders tree as an ES module. TypeScript output is narrowed with `as const`.
func encodeModule(tree *catalog.Tree, indent int, typescript bool) ([]byte, error) {
	body, err := encodeJSON(tree, indent)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimRight(body, "\n")

	var buf bytes.Buffer
	buf.WriteString("export default ")
	buf.Write(body)
	if typescript {
		buf.WriteString(" as const")
	}
	buf.WriteString(";\n")
	return buf.Bytes(), nil
}
