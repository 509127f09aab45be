// Package plugin defines the extraction hooks and runs them in isolation: a failing hook is
// logged and contributes nothing, without affecting keys found by anyone else.
package plugin

import (
	"context"

	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"

	"keysync/internal/config"
	"keysync/internal/keys"
	"keysync/internal/reconcile"
)

// Plugin is the base interface. A plugin implements any subset of the hook interfaces below.
type Plugin interface {
	Name() string
}

// Loader transforms source text before it is parsed.
type Loader interface {
	OnLoad(ctx context.Context, text, path string) (string, error)
}

// NodeVisitor sees every syntax node after the core walker handled it.
type NodeVisitor interface {
	VisitNode(node *sitter.Node, c *Context) error
}

// ExpressionResolver turns a key expression the walker could not resolve into keys.
type ExpressionResolver interface {
	ResolveExpression(expr Expression, cfg *config.Config, logger zerolog.Logger) ([]string, error)
}

// Finisher runs once after every file was walked and may change the key map.
type Finisher interface {
	OnEnd(ctx context.Context, m *keys.Map, cfg *config.Config) error
}

// SyncObserver runs once after reconciliation. Results must not be modified.
type SyncObserver interface {
	AfterSync(ctx context.Context, results []*reconcile.Result, cfg *config.Config) error
}

// Expression is a key argument the core walker could not reduce to literals.
type Expression struct {
	Node *sitter.Node
	// Text is the source text of Node.
	Text string
	File string
}

// Context is handed to node visitors for the file being walked.
type Context struct {
	File   string
	Source []byte
	Logger zerolog.Logger

	keys *keys.Map
}

// NewContext creates the context of one file walk. Keys added through it go to m.
func NewContext(file string, source []byte, m *keys.Map, logger zerolog.Logger) *Context {
	return &Context{File: file, Source: source, Logger: logger, keys: m}
}

// AddKey merges k into the file's key set.
func (c *Context) AddKey(k *keys.ExtractedKey) {
	c.keys.Add(k)
}

// Keys returns the keys collected so far for the file.
func (c *Context) Keys() *keys.Map {
	return c.keys
}

// Text returns the source text of n.
func (c *Context) Text(n *sitter.Node) string {
	return n.Content(c.Source)
}
