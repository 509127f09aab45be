// Package htmlattr is the built-in html plugin. It collects keys from attributes such as
// `data-i18n="[title]common:tooltip;body.text"` in static HTML files.
package htmlattr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"keysync/internal/config"
	"keysync/internal/filewalker"
	"keysync/internal/keys"
	"keysync/internal/textutil"
)

// Name is the name the plugin is enabled by in the config.
const Name = "html"

// Plugin scans HTML files once all sources were walked.
type Plugin struct {
	root   string
	logger zerolog.Logger
}

// New creates the plugin for a project root.
func New(root string, logger zerolog.Logger) *Plugin {
	return &Plugin{root: root, logger: logger.With().Str("plugin", Name).Logger()}
}

func (p *Plugin) Name() string { return Name }

// OnEnd adds the keys of every HTML file matching cfg.HTML.Input to m.
func (p *Plugin) OnEnd(ctx context.Context, m *keys.Map, cfg *config.Config) error {
	w, err := filewalker.NewWalker(cfg.HTML.Input, cfg.Ignore, func(ext string) bool {
		return ext == ".html" || ext == ".htm"
	})
	if err != nil {
		return fmt.Errorf("html patterns: %w", err)
	}
	entries, err := w.Walk(p.root)
	if err != nil {
		return fmt.Errorf("discover html files: %w", err)
	}

	total := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(e.Path)
		if err != nil {
			p.logger.Warn().Err(err).Str("file", e.Rel).Msg("Failed to read HTML file")
			continue
		}
		found := Scan(data, e.Rel, cfg)
		for _, k := range found {
			m.Add(k)
		}
		total += len(found)
	}
	p.logger.Debug().Int("files", len(entries)).Int("keys", total).Msg("Scanned HTML files")
	return nil
}

// Scan returns the keys referenced by cfg.HTML.Attribute in an HTML document. A key that
// targets the element content takes the element's first text as its default; a key that
// targets another attribute (`[title]key`) takes that attribute's value.
func Scan(data []byte, file string, cfg *config.Config) []*keys.ExtractedKey {
	var out []*keys.ExtractedKey
	var pending []*keys.ExtractedKey

	z := html.NewTokenizer(bytes.NewReader(data))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		line := 1 + bytes.Count(data[:offset], []byte("\n"))
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			attrs := make(map[string]string, len(tok.Attr))
			for _, a := range tok.Attr {
				attrs[a.Key] = a.Val
			}
			spec, ok := attrs[cfg.HTML.Attribute]
			if !ok {
				continue
			}
			pending = nil
			for _, ref := range parseRefs(spec) {
				k := newKey(ref.key, cfg)
				if k == nil {
					continue
				}
				k.Locations = []keys.Location{{File: file, Line: line}}
				out = append(out, k)
				if ref.target == "" {
					if tt == html.StartTagToken {
						pending = append(pending, k)
					}
				} else if v := attrs[ref.target]; !textutil.IsBlank(v) {
					k.DefaultValue, k.HasDefault = strings.TrimSpace(v), true
				}
			}
		case html.TextToken:
			text := strings.Join(strings.Fields(string(z.Text())), " ")
			if text == "" {
				continue
			}
			for _, k := range pending {
				k.DefaultValue, k.HasDefault = text, true
			}
			pending = nil
		case html.EndTagToken:
			pending = nil
		}
	}
	return out
}

type ref struct {
	// target is the attribute the translation is written to; empty for the element content.
	target string
	key    string
}

// parseRefs splits `[title]ns:a;b` into its references. The content targets `html`, `text`,
// `prepend` and `append` are reported as content references.
func parseRefs(spec string) []ref {
	var out []ref
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		var r ref
		if strings.HasPrefix(part, "[") {
			end := strings.IndexByte(part, ']')
			if end < 0 {
				continue
			}
			r.target = strings.TrimSpace(part[1:end])
			part = strings.TrimSpace(part[end+1:])
		}
		switch r.target {
		case "html", "text", "prepend", "append":
			r.target = ""
		}
		if part == "" {
			continue
		}
		r.key = part
		out = append(out, r)
	}
	return out
}

func newKey(raw string, cfg *config.Config) *keys.ExtractedKey {
	ns, key := cfg.DefaultNS, raw
	if sep := cfg.NSSep(); sep != "" {
		if i := strings.Index(raw, sep); i > 0 && !strings.ContainsAny(raw[:i], " \t\n") {
			ns, key = raw[:i], raw[i+len(sep):]
		}
	}
	if textutil.IsBlank(key) {
		return nil
	}
	return &keys.ExtractedKey{Key: key, Namespace: ns}
}
