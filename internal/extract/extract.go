// Package extract walks JavaScript and TypeScript syntax trees and collects translation keys.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"

	"keysync/internal/config"
	"keysync/internal/keys"
	"keysync/internal/parser"
	"keysync/internal/plugin"
)

// ErrSyntax marks files the grammar could only parse with error recovery.
var ErrSyntax = errors.New("syntax error")

// FileError is a failure scoped to one source file. It never aborts a run.
type FileError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *FileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// FileResult holds the keys found in one file, in discovery order.
type FileResult struct {
	Path string
	Keys []*keys.ExtractedKey
}

// Extractor turns source files into keys. It holds no per-file state and is safe for
// concurrent use as long as its plugins are.
type Extractor struct {
	cfg     *config.Config
	parser  parser.Parser
	plugins *plugin.Pipeline
	logger  zerolog.Logger

	funcs     []glob.Glob
	hooks     map[string]config.HookName
	trans     map[string]bool
	keepBasic map[string]bool
}

// New creates an Extractor for cfg. plugins may be nil.
func New(cfg *config.Config, p parser.Parser, plugins *plugin.Pipeline, logger zerolog.Logger) (*Extractor, error) {
	e := &Extractor{
		cfg:       cfg,
		parser:    p,
		plugins:   plugins,
		logger:    logger,
		hooks:     make(map[string]config.HookName),
		trans:     make(map[string]bool),
		keepBasic: make(map[string]bool),
	}
	for _, f := range cfg.Functions {
		g, err := glob.Compile(f)
		if err != nil {
			return nil, fmt.Errorf("compile function pattern %q: %w", f, err)
		}
		e.funcs = append(e.funcs, g)
	}
	for _, h := range cfg.UseTranslationNames {
		e.hooks[h.Name] = h
	}
	for _, c := range cfg.TransComponents {
		e.trans[c] = true
	}
	for _, tag := range cfg.TransKeepBasicHTMLNodesFor {
		e.keepBasic[tag] = true
	}
	return e, nil
}

// Extract runs the loaders, parses content and walks the tree. A file with syntax errors
// still yields the keys of its recoverable parts together with a *FileError.
func (e *Extractor) Extract(ctx context.Context, path string, content []byte) (*FileResult, error) {
	text := e.plugins.Load(ctx, string(content), path)

	res, err := e.parser.Parse(ctx, path, []byte(text))
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer res.Close()

	m := keys.NewMap(e.cfg.NSSep())
	logger := e.logger.With().Str("file", path).Logger()
	w := &fileWalk{
		e:     e,
		src:   res.Content,
		file:  path,
		scope: newScope(),
		pctx:  plugin.NewContext(path, res.Content, m, logger),
		log:   logger,
	}
	w.visit(res.Root)

	result := &FileResult{Path: path, Keys: m.Keys()}
	if res.HasErrors {
		fe := &FileError{Path: path, Err: ErrSyntax}
		if n := firstError(res.Root); n != nil {
			fe.Line = int(n.StartPoint().Row) + 1
			fe.Column = int(n.StartPoint().Column) + 1
		}
		return result, fe
	}
	return result, nil
}

func (e *Extractor) matchFunc(name string) bool {
	for _, g := range e.funcs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (e *Extractor) isTrans(name string) bool {
	if e.trans[name] {
		return true
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		return e.trans[name[i+1:]]
	}
	return false
}

func firstError(n *sitter.Node) *sitter.Node {
	if n == nil || !n.HasError() {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstError(n.Child(i)); found != nil {
			return found
		}
	}
	return n
}
