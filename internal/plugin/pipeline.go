package plugin

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"

	"keysync/internal/config"
	"keysync/internal/keys"
	"keysync/internal/reconcile"
)

// Pipeline dispatches hooks to plugins in registration order. A nil Pipeline runs nothing.
type Pipeline struct {
	plugins []Plugin
	cfg     *config.Config
	logger  zerolog.Logger
}

// NewPipeline creates a pipeline over plugins.
func NewPipeline(cfg *config.Config, logger zerolog.Logger, plugins ...Plugin) *Pipeline {
	return &Pipeline{plugins: plugins, cfg: cfg, logger: logger}
}

// Plugins returns the registered plugins.
func (p *Pipeline) Plugins() []Plugin {
	if p == nil {
		return nil
	}
	return p.plugins
}

// Load chains every Loader over text. A failing loader leaves the text it received unchanged.
func (p *Pipeline) Load(ctx context.Context, text, path string) string {
	if p == nil {
		return text
	}
	for _, pl := range p.plugins {
		l, ok := pl.(Loader)
		if !ok {
			continue
		}
		in := text
		var out string
		if p.guard(pl, "onLoad", func() (err error) {
			out, err = l.OnLoad(ctx, in, path)
			return err
		}) {
			text = out
		}
	}
	return text
}

// Visit offers n to every NodeVisitor.
func (p *Pipeline) Visit(n *sitter.Node, c *Context) {
	if p == nil {
		return
	}
	for _, pl := range p.plugins {
		if v, ok := pl.(NodeVisitor); ok {
			p.guard(pl, "onVisitNode", func() error { return v.VisitNode(n, c) })
		}
	}
}

// Resolve collects keys for expr from every ExpressionResolver.
func (p *Pipeline) Resolve(expr Expression) []string {
	if p == nil {
		return nil
	}
	var out []string
	for _, pl := range p.plugins {
		r, ok := pl.(ExpressionResolver)
		if !ok {
			continue
		}
		var got []string
		if p.guard(pl, "extractKeysFromExpression", func() (err error) {
			got, err = r.ResolveExpression(expr, p.cfg, p.logger.With().Str("plugin", pl.Name()).Logger())
			return err
		}) {
			out = append(out, got...)
		}
	}
	return out
}

// End runs every Finisher against the run's key map.
func (p *Pipeline) End(ctx context.Context, m *keys.Map) {
	if p == nil {
		return
	}
	for _, pl := range p.plugins {
		if f, ok := pl.(Finisher); ok {
			p.guard(pl, "onEnd", func() error { return f.OnEnd(ctx, m, p.cfg) })
		}
	}
}

// AfterSync runs every SyncObserver.
func (p *Pipeline) AfterSync(ctx context.Context, results []*reconcile.Result) {
	if p == nil {
		return
	}
	for _, pl := range p.plugins {
		if o, ok := pl.(SyncObserver); ok {
			p.guard(pl, "afterSync", func() error { return o.AfterSync(ctx, results, p.cfg) })
		}
	}
}

// guard runs fn, turning an error or panic into a log line. It reports whether fn succeeded.
func (p *Pipeline) guard(pl Plugin, hook string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("plugin", pl.Name()).
				Str("hook", hook).
				Err(fmt.Errorf("panic: %v", r)).
				Msg("Plugin hook failed")
			ok = false
		}
	}()
	if err := fn(); err != nil {
		p.logger.Error().
			Str("plugin", pl.Name()).
			Str("hook", hook).
			Err(err).
			Msg("Plugin hook failed")
		return false
	}
	return true
}
