package extract

import (
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"keysync/internal/textutil"
)

// selector reads a key from `$ => $.a.b[0]['c']`: a one-parameter arrow function returning a
// property chain on that parameter.
func (w *fileWalk) selector(n *sitter.Node) (string, bool) {
	n = unwrap(n)
	if n == nil || n.Type() != "arrow_function" {
		return "", false
	}

	param := ""
	if p := n.ChildByFieldName("parameter"); p != nil {
		param = w.text(p)
	} else if ps := namedChildren(n.ChildByFieldName("parameters")); len(ps) == 1 {
		p := ps[0]
		if pattern := p.ChildByFieldName("pattern"); pattern != nil {
			p = pattern
		}
		if p.Type() == "identifier" {
			param = w.text(p)
		}
	}
	if param == "" {
		return "", false
	}

	body := n.ChildByFieldName("body")
	if body != nil && body.Type() == "statement_block" {
		stmts := namedChildren(body)
		if len(stmts) != 1 || stmts[0].Type() != "return_statement" {
			return "", false
		}
		body = firstNamed(stmts[0])
	}

	var segs []string
	for cur := unwrap(body); cur != nil; {
		switch cur.Type() {
		case "member_expression":
			prop := cur.ChildByFieldName("property")
			if prop == nil {
				return "", false
			}
			segs = append(segs, w.text(prop))
			cur = unwrap(cur.ChildByFieldName("object"))
		case "subscript_expression":
			idx := unwrap(cur.ChildByFieldName("index"))
			if idx == nil {
				return "", false
			}
			switch idx.Type() {
			case "string":
				segs = append(segs, textutil.UnquoteJS(w.text(idx)))
			case "number":
				segs = append(segs, w.text(idx))
			default:
				return "", false
			}
			cur = unwrap(cur.ChildByFieldName("object"))
		case "identifier":
			if w.text(cur) != param || len(segs) == 0 {
				return "", false
			}
			slices.Reverse(segs)
			sep := w.e.cfg.KeySep()
			if sep == "" {
				sep = "."
			}
			return strings.Join(segs, sep), true
		default:
			return "", false
		}
	}
	return "", false
}
