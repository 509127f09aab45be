package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"keysync/internal/keys"
	"keysync/internal/textutil"
)

// commentCall is a translation call written inside a comment.
type commentCall struct {
	callee string
	key    string
	// offset is the byte offset of the callee inside the comment.
	offset int
	opts   callOptions
}

// comment extracts hint calls such as `// t('status.active')` from a comment node.
func (w *fileWalk) comment(n *sitter.Node) {
	text := w.text(n)
	start := n.StartPoint()
	for _, c := range scanComment(text) {
		if !w.e.matchFunc(c.callee) {
			continue
		}
		before := text[:c.offset]
		loc := keys.Location{File: w.file, Line: int(start.Row) + 1 + strings.Count(before, "\n")}
		if i := strings.LastIndexByte(before, '\n'); i >= 0 {
			loc.Column = len(before) - i
		} else {
			loc.Column = int(start.Column) + len(before) + 1
		}
		w.emit(c.key, nil, c.opts, loc)
	}
}

// scanComment finds every call-shaped `name('key'[, 'default'][, { ... }])` in s. A call only
// counts when its name starts at an identifier boundary outside any quoted text, its first
// argument is a complete string literal and the argument list closes.
func scanComment(s string) []commentCall {
	var out []commentCall
	for i := 0; i < len(s); i++ {
		if isQuote(s[i]) && (i == 0 || !isIdentPart(s[i-1])) {
			if _, next, ok := scanString(s, i); ok {
				i = next - 1
			}
			continue
		}
		if !isIdentStart(s[i]) || (i > 0 && (isIdentPart(s[i-1]) || s[i-1] == '.')) {
			continue
		}
		end := scanPath(s, i)
		call, ok := scanArgs(s, end)
		if ok {
			call.callee = s[i:end]
			call.offset = i
			out = append(out, call)
		}
		i = end - 1
	}
	return out
}

// scanPath returns the end of a dotted identifier chain starting at i.
func scanPath(s string, i int) int {
	for {
		for i < len(s) && isIdentPart(s[i]) {
			i++
		}
		if i+1 < len(s) && s[i] == '.' && isIdentStart(s[i+1]) {
			i++
			continue
		}
		return i
	}
}

func scanArgs(s string, i int) (commentCall, bool) {
	var c commentCall
	i = skipSpace(s, i)
	if i >= len(s) || s[i] != '(' {
		return c, false
	}
	i = skipSpace(s, i+1)

	key, i, ok := scanString(s, i)
	if !ok {
		return c, false
	}
	c.key = key

	i = skipSpace(s, i)
	if i < len(s) && s[i] == ',' {
		i = skipSpace(s, i+1)
		if def, next, ok := scanString(s, i); ok {
			c.opts.defaultValue, c.opts.hasDefault = def, true
			i = skipSpace(s, next)
			if i < len(s) && s[i] == ',' {
				i = skipSpace(s, i+1)
			}
		}
		if i < len(s) && s[i] == '{' {
			body, next, ok := scanObject(s, i)
			if !ok {
				return c, false
			}
			readCommentOptions(body, &c.opts)
			i = skipSpace(s, next)
		}
	}
	if i >= len(s) || s[i] != ')' {
		return c, false
	}
	return c, true
}

// scanString reads a quoted string starting at s[i]. Single and double quoted strings may not
// span lines.
func scanString(s string, i int) (string, int, bool) {
	if i >= len(s) {
		return "", i, false
	}
	q := s[i]
	if !isQuote(q) {
		return "", i, false
	}
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '\n':
			if q != '`' {
				return "", i, false
			}
		case q:
			body := s[i+1 : j]
			if q == '`' && strings.Contains(body, "${") {
				return "", i, false
			}
			return textutil.UnescapeJS(body), j + 1, true
		}
	}
	return "", i, false
}

// scanObject returns the text between a balanced pair of braces starting at s[i].
func scanObject(s string, i int) (string, int, bool) {
	depth := 0
	for j := i; j < len(s); j++ {
		switch s[j] {
		case '\'', '"', '`':
			_, next, ok := scanString(s, j)
			if !ok {
				return "", i, false
			}
			j = next - 1
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[i+1 : j], j + 1, true
			}
		}
	}
	return "", i, false
}

// readCommentOptions reads `ns`, `defaultValue`, `count`, `context` and `ordinal` from a
// flat object literal body.
func readCommentOptions(body string, opts *callOptions) {
	for i := 0; i < len(body); {
		i = skipSpace(body, i)
		if i >= len(body) {
			return
		}
		var name string
		if s, next, ok := scanString(body, i); ok {
			name, i = s, next
		} else if isIdentStart(body[i]) {
			end := scanPath(body, i)
			name, i = body[i:end], end
		} else {
			i++
			continue
		}

		i = skipSpace(body, i)
		value, isString := "", false
		if i < len(body) && body[i] == ':' {
			i = skipSpace(body, i+1)
			if s, next, ok := scanString(body, i); ok {
				value, isString, i = s, true, next
			} else {
				end := i
				for end < len(body) && body[end] != ',' {
					end++
				}
				value, i = strings.TrimSpace(body[i:end]), end
			}
		}

		switch name {
		case "ns":
			if isString {
				opts.ns = value
			}
		case "defaultValue":
			if isString {
				opts.defaultValue, opts.hasDefault = value, true
			}
		case "count":
			opts.count = true
		case "context":
			if isString {
				opts.contexts = append(opts.contexts, value)
			}
		case "ordinal":
			opts.ordinal = value == "true"
		}

		i = skipSpace(body, i)
		if i < len(body) && body[i] == ',' {
			i++
		}
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func isQuote(c byte) bool {
	return c == '\'' || c == '"' || c == '`'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
