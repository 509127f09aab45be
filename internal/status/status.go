// Package status compares every locale's catalogs with the primary language.
package status

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"keysync/internal/catalog"
	"keysync/internal/config"
	"keysync/internal/interpolation"
	"keysync/internal/output"
	"keysync/internal/store"
)

// Mismatch is a translation whose placeholders differ from the primary value.
type Mismatch struct {
	Key     string
	Missing []string
	Extra   []string
}

// Catalog is the state of one (locale, namespace) catalog.
type Catalog struct {
	Locale     string
	Namespace  string
	Path       string
	Total      int
	Translated int
	// Missing lists keys with no or an empty value, sorted.
	Missing    []string
	Mismatches []Mismatch
	Err        error
}

// Ratio returns the translated share in [0, 1]. An empty catalog counts as complete.
func (c *Catalog) Ratio() float64 {
	if c.Total == 0 {
		return 1
	}
	return float64(c.Translated) / float64(c.Total)
}

// Report holds one entry per locale and namespace, grouped by locale in config order.
type Report struct {
	Primary  string
	Catalogs []*Catalog
}

// Complete reports whether every catalog is fully translated without placeholder problems.
func (r *Report) Complete() bool {
	for _, c := range r.Catalogs {
		if c.Err != nil || c.Translated < c.Total || len(c.Mismatches) > 0 {
			return false
		}
	}
	return true
}

// Checker reads catalogs through a store.
type Checker struct {
	cfg    *config.Config
	store  store.Store
	output *output.Resolver
	logger zerolog.Logger
}

// New creates a Checker for the project at root. st defaults to the filesystem store.
func New(cfg *config.Config, root string, st store.Store, logger zerolog.Logger) *Checker {
	if st == nil {
		st = store.New(cfg.MaxFileSize)
	}
	return &Checker{
		cfg:    cfg,
		store:  st,
		output: output.NewResolver(root, cfg.Output, cfg.OutputFunc, logger),
		logger: logger,
	}
}

type loaded struct {
	tree *catalog.Tree
	err  error
}

// Check reads every catalog concurrently and compares it with the primary one.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	namespaces := c.namespaces()

	var paths []string
	for _, locale := range c.cfg.Locales {
		for _, ns := range namespaces {
			if p := c.path(locale, ns); !slices.Contains(paths, p) {
				paths = append(paths, p)
			}
		}
	}

	trees := make([]loaded, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.cfg.WorkerCount, 1))
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tree, err := c.store.Read(p)
			trees[i] = loaded{tree: tree, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("read catalogs: %w", err)
	}

	byPath := make(map[string]loaded, len(paths))
	for i, p := range paths {
		byPath[p] = trees[i]
	}
	if c.cfg.MergeNamespaces {
		namespaces = c.mergedNamespaces(byPath[c.path(c.cfg.PrimaryLanguage, "")])
	}

	rep := &Report{Primary: c.cfg.PrimaryLanguage}
	for _, locale := range c.cfg.Locales {
		for _, ns := range namespaces {
			primary, err := c.lookup(byPath, c.cfg.PrimaryLanguage, ns)
			if err != nil {
				rep.Catalogs = append(rep.Catalogs, &Catalog{Locale: locale, Namespace: ns, Path: c.path(locale, ns), Err: err})
				continue
			}
			target, err := c.lookup(byPath, locale, ns)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				rep.Catalogs = append(rep.Catalogs, &Catalog{Locale: locale, Namespace: ns, Path: c.path(locale, ns), Err: err})
				continue
			}
			cat := compare(primary, target, c.sep())
			cat.Locale, cat.Namespace, cat.Path = locale, ns, c.path(locale, ns)
			rep.Catalogs = append(rep.Catalogs, cat)
		}
	}

	c.logger.Debug().Int("catalogs", len(rep.Catalogs)).Msg("Status collected")
	return rep, nil
}

func (c *Checker) sep() string {
	if s := c.cfg.KeySep(); s != "" {
		return s
	}
	return "."
}

func (c *Checker) path(locale, ns string) string {
	if c.cfg.MergeNamespaces {
		return c.output.Path(locale, "")
	}
	return c.output.Path(locale, ns)
}

// namespaces lists the namespace files that exist for any locale, or the default namespace.
func (c *Checker) namespaces() []string {
	if c.cfg.MergeNamespaces {
		return []string{""}
	}
	var out []string
	for _, locale := range c.cfg.Locales {
		for _, ns := range c.output.Discover(locale) {
			if !slices.Contains(out, ns) {
				out = append(out, ns)
			}
		}
	}
	if len(out) == 0 {
		return []string{c.cfg.DefaultNS}
	}
	slices.Sort(out)
	return out
}

func (c *Checker) mergedNamespaces(primary loaded) []string {
	if primary.tree == nil {
		return []string{c.cfg.DefaultNS}
	}
	return primary.tree.Keys()
}

// lookup returns the tree of one namespace, descending into merged files.
func (c *Checker) lookup(byPath map[string]loaded, locale, ns string) (*catalog.Tree, error) {
	l := byPath[c.path(locale, ns)]
	if l.err != nil {
		return nil, l.err
	}
	if !c.cfg.MergeNamespaces {
		return l.tree, nil
	}
	return l.tree.Subtree(ns), nil
}

func compare(primary, target *catalog.Tree, sep string) *Catalog {
	values := target.Flatten(sep)
	cat := &Catalog{}
	primary.Walk(func(path []string, v any) {
		source, ok := v.(string)
		if !ok {
			return
		}
		key := strings.Join(path, sep)
		cat.Total++

		translated, ok := values[key]
		if !ok || strings.TrimSpace(translated) == "" {
			cat.Missing = append(cat.Missing, key)
			return
		}
		cat.Translated++
		if missing, extra := interpolation.Mismatch(source, translated); len(missing)+len(extra) > 0 {
			cat.Mismatches = append(cat.Mismatches, Mismatch{Key: key, Missing: missing, Extra: extra})
		}
	})
	slices.Sort(cat.Missing)
	return cat
}
