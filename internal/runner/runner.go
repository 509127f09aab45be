// Package runner wires discovery, extraction and reconciliation into one run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"keysync/internal/cache"
	"keysync/internal/catalog"
	"keysync/internal/config"
	"keysync/internal/extract"
	"keysync/internal/filewalker"
	"keysync/internal/keys"
	"keysync/internal/metrics"
	"keysync/internal/output"
	"keysync/internal/parser"
	"keysync/internal/plugin"
	"keysync/internal/plugin/htmlattr"
	"keysync/internal/plural"
	"keysync/internal/reconcile"
	"keysync/internal/store"
	"keysync/internal/worker"
)

// ErrOutOfDate is returned in CI mode when any catalog would change.
var ErrOutOfDate = errors.New("catalogs are out of date")

// Options are the per-invocation settings that are not part of the project config.
type Options struct {
	// Root is the project directory input globs and output templates are relative to.
	Root string

	// DryRun computes every result without writing.
	DryRun bool

	// CI implies DryRun and fails the run when anything would change.
	CI bool

	// SyncPrimaryWithDefaults overwrites primary values with explicit source defaults.
	SyncPrimaryWithDefaults bool

	// SyncAll recomputes every value from defaults.
	SyncAll bool

	// Plugins are registered after the ones named in the config.
	Plugins []plugin.Plugin

	// Store defaults to the filesystem store.
	Store store.Store

	// Cache keeps per-file keys between runs; nil disables caching.
	Cache   *cache.ExtractionCache
	Metrics *metrics.Recorder
}

// Runner executes extraction runs for one project.
type Runner struct {
	cfg  *config.Config
	opts Options

	walker    *filewalker.Walker
	extractor *extract.Extractor
	plugins   *plugin.Pipeline
	store     store.Store
	output    *output.Resolver
	preserve  *reconcile.Preserver
	table     *plural.Table
	logger    zerolog.Logger
}

// New prepares a runner. cfg must have been validated.
func New(cfg *config.Config, opts Options, logger zerolog.Logger) (*Runner, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.CI {
		opts.DryRun = true
	}

	p := parser.NewTreeSitterParser(cfg.MaxFileSize)
	walker, err := filewalker.NewWalker(cfg.Input, cfg.Ignore, p.CanParse)
	if err != nil {
		return nil, fmt.Errorf("create walker: %w", err)
	}

	var plugins []plugin.Plugin
	for _, name := range cfg.Plugins {
		switch name {
		case htmlattr.Name:
			plugins = append(plugins, htmlattr.New(opts.Root, logger))
		default:
			logger.Warn().Str("plugin", name).Msg("Unknown plugin, skipping")
		}
	}
	plugins = append(plugins, opts.Plugins...)
	pipeline := plugin.NewPipeline(cfg, logger, plugins...)

	extractor, err := extract.New(cfg, p, pipeline, logger)
	if err != nil {
		return nil, fmt.Errorf("create extractor: %w", err)
	}
	preserve, err := reconcile.NewPreserver(cfg.PreservePatterns, cfg.NSSep())
	if err != nil {
		return nil, fmt.Errorf("create preserver: %w", err)
	}

	st := opts.Store
	if st == nil {
		st = store.New(cfg.MaxFileSize)
	}

	return &Runner{
		cfg:       cfg,
		opts:      opts,
		walker:    walker,
		extractor: extractor,
		plugins:   pipeline,
		store:     st,
		output:    output.NewResolver(opts.Root, cfg.Output, cfg.OutputFunc, logger),
		preserve:  preserve,
		table:     plural.NewTable(),
		logger:    logger,
	}, nil
}

// Walker returns the source walker, so callers can tell which paths belong to the run.
func (r *Runner) Walker() *filewalker.Walker {
	return r.walker
}

// Report is the outcome of a run.
type Report struct {
	RunID    string
	Files    int
	Keys     int
	Results  []*reconcile.Result
	// Patches holds a JSON merge patch per changed catalog path.
	Patches  map[string][]byte
	Written  int
	Duration time.Duration
}

// Changed returns the results whose catalog content changed.
func (rep *Report) Changed() []*reconcile.Result {
	var out []*reconcile.Result
	for _, res := range rep.Results {
		if res.Updated {
			out = append(out, res)
		}
	}
	return out
}

// Run extracts keys and reconciles every catalog. File errors do not stop the run; they are
// joined into the returned error next to a complete report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	rep := &Report{RunID: uuid.NewString(), Patches: make(map[string][]byte)}
	logger := r.logger.With().Str("run", rep.RunID).Logger()

	m, fileErrs, err := r.extract(ctx, rep, logger)
	if err != nil {
		return rep, err
	}

	r.plugins.End(ctx, m)
	rep.Keys = m.Len()
	r.opts.Metrics.KeysExtracted(rep.Keys)
	logger.Info().Int("files", rep.Files).Int("keys", rep.Keys).Msg("Extraction complete")

	results, syncErrs := r.reconcile(ctx, m, logger)
	if err := ctx.Err(); err != nil {
		return rep, err
	}
	rep.Results = results

	for _, res := range results {
		r.opts.Metrics.Reconciled(res)
		if !res.Updated {
			continue
		}
		patch, err := mergePatch(res)
		if err != nil {
			logger.Warn().Err(err).Str("path", res.Path).Msg("Failed to compute catalog diff")
		} else {
			rep.Patches[res.Path] = patch
		}
		if r.opts.DryRun {
			continue
		}
		format := store.Format{Dialect: r.cfg.OutputFormat, Indent: r.cfg.Indentation}
		if err := r.store.Write(res.Path, res.New, format); err != nil {
			syncErrs = append(syncErrs, fmt.Errorf("write %s: %w", res.Path, err))
			continue
		}
		rep.Written++
		logger.Info().Str("path", res.Path).Int("added", res.Added).Int("removed", res.Removed).Msg("Catalog updated")
	}

	r.plugins.AfterSync(ctx, results)

	rep.Duration = time.Since(start)
	r.opts.Metrics.RunFinished(rep.Duration)
	logger.Info().
		Int("catalogs", len(results)).
		Int("changed", len(rep.Changed())).
		Int("written", rep.Written).
		Dur("duration", rep.Duration).
		Msg("Run complete")

	errs := append(fileErrs, syncErrs...)
	if r.opts.CI && len(rep.Changed()) > 0 {
		errs = append(errs, fmt.Errorf("%w: %d catalog(s) would change", ErrOutOfDate, len(rep.Changed())))
	}
	return rep, errors.Join(errs...)
}

// extract reads every source concurrently and walks them one by one in path order, so the
// key map is the same whatever order reads complete in.
func (r *Runner) extract(ctx context.Context, rep *Report, logger zerolog.Logger) (*keys.Map, []error, error) {
	entries, err := r.walker.Walk(r.opts.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("discover sources: %w", err)
	}
	rep.Files = len(entries)

	pool := worker.NewPool(r.cfg.WorkerCount, func(_ context.Context, e filewalker.FileEntry) ([]byte, error) {
		return os.ReadFile(e.Path)
	})
	reads := pool.Execute(ctx, entries)

	m := keys.NewMap(r.cfg.NSSep())
	var fileErrs []error
	for _, task := range reads {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rel := task.Input.Rel
		r.opts.Metrics.FileScanned()
		if task.Err != nil {
			r.opts.Metrics.FileFailed()
			fileErrs = append(fileErrs, &extract.FileError{Path: rel, Err: task.Err})
			logger.Error().Err(task.Err).Str("file", rel).Msg("Read failed")
			continue
		}

		if cached, ok := r.opts.Cache.Get(rel, task.Result); ok {
			for _, k := range cached {
				m.Add(k)
			}
			continue
		}

		res, err := r.extractor.Extract(ctx, rel, task.Result)
		if err != nil {
			r.opts.Metrics.FileFailed()
			fileErrs = append(fileErrs, err)
			logger.Error().Err(err).Str("file", rel).Msg("Extraction failed")
		} else if res != nil {
			r.opts.Cache.Set(rel, task.Result, res.Keys)
		}
		if res == nil {
			continue
		}
		for _, k := range res.Keys {
			m.Add(k)
		}
	}
	return m, fileErrs, nil
}

type job struct {
	locale string
	// namespaces are reconciled into one file; a single entry unless namespaces are merged.
	namespaces []string
	path       string
}

// reconcile builds and merges every (locale, namespace) catalog. Catalog reads run on the pool.
func (r *Runner) reconcile(ctx context.Context, m *keys.Map, logger zerolog.Logger) ([]*reconcile.Result, []error) {
	var jobs []job
	for _, locale := range r.cfg.Locales {
		namespaces := m.Namespaces()
		if len(namespaces) == 0 {
			namespaces = []string{r.cfg.DefaultNS}
		}
		for _, ns := range r.output.Discover(locale) {
			if !slices.Contains(namespaces, ns) {
				namespaces = append(namespaces, ns)
			}
		}

		if r.cfg.MergeNamespaces {
			jobs = append(jobs, job{locale: locale, namespaces: namespaces, path: r.output.Path(locale, "")})
			continue
		}
		for _, ns := range namespaces {
			jobs = append(jobs, job{locale: locale, namespaces: []string{ns}, path: r.output.Path(locale, ns)})
		}
	}

	pool := worker.NewPool(r.cfg.WorkerCount, func(_ context.Context, j job) (*reconcile.Result, error) {
		return r.reconcileFile(j, m, logger)
	})

	var results []*reconcile.Result
	var errs []error
	for _, task := range pool.Execute(ctx, jobs) {
		if task.Err != nil {
			errs = append(errs, task.Err)
			logger.Error().Err(task.Err).Str("path", task.Input.path).Msg("Reconciliation failed")
			continue
		}
		results = append(results, task.Result)
	}
	return results, errs
}

func (r *Runner) reconcileFile(j job, m *keys.Map, logger zerolog.Logger) (*reconcile.Result, error) {
	existing, err := r.store.Read(j.path)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		existing = nil
	}

	if !r.cfg.MergeNamespaces {
		ns := j.namespaces[0]
		res := reconcile.Reconcile(r.build(j.locale, ns, m, logger), existing, r.options(j.locale, ns, logger))
		res.Path = j.path
		return res, nil
	}

	merged := &reconcile.Result{Path: j.path, Locale: j.locale, Existing: existing, New: catalog.NewTree()}
	names := slices.Clone(j.namespaces)
	for _, ns := range existing.Keys() {
		if !slices.Contains(names, ns) {
			names = append(names, ns)
		}
	}
	records := make([]reconcile.KeyRecord, len(names))
	for i, ns := range names {
		records[i] = reconcile.KeyRecord{Key: ns, Segment: ns, Namespace: ns}
	}
	names = r.sortPolicy().Order(records)
	for _, ns := range names {
		var old *catalog.Tree
		if existing != nil {
			if v, ok := existing.Get(ns); ok {
				if old, ok = v.(*catalog.Tree); !ok {
					continue
				}
			}
		}
		res := reconcile.Reconcile(r.build(j.locale, ns, m, logger), old, r.options(j.locale, ns, logger))
		if res.New.Len() == 0 && old == nil {
			continue
		}
		merged.New.Set(ns, res.New)
		merged.Added += res.Added
		merged.Removed += res.Removed
	}
	merged.Updated = existing == nil || !catalog.Equal(merged.New, existing)
	return merged, nil
}

// build expands the keys of one namespace for a locale's plural categories and nests them.
func (r *Runner) build(locale, ns string, m *keys.Map, logger zerolog.Logger) *catalog.Tree {
	cats := r.table.For(locale)
	seps := plural.Separators{Plural: r.cfg.PluralSeparator, Context: r.cfg.ContextSeparator}

	var entries []catalog.Entry
	for _, k := range m.ByNamespace(ns) {
		if k.Opaque {
			entries = append(entries, catalog.Entry{Key: k.Key, Opaque: true})
			continue
		}
		for _, v := range plural.Expand(k, cats, seps) {
			entries = append(entries, catalog.Entry{
				Key:  v.Key,
				Leaf: catalog.Leaf{Default: v.Default, Explicit: v.Explicit, Suffixed: v.Suffixed},
			})
		}
	}

	tree, conflicts := catalog.Build(entries, r.cfg.KeySep())
	for _, c := range conflicts {
		logger.Warn().
			Str("locale", locale).
			Str("namespace", ns).
			Str("key", c.Key).
			Str("conflicts_with", c.Existing).
			Msg("Key used both as a value and as a parent, keeping the first")
	}
	return tree
}

func (r *Runner) sortPolicy() reconcile.SortPolicy {
	switch {
	case r.cfg.SortFunc != nil:
		return reconcile.Custom(r.cfg.SortFunc)
	case r.cfg.Sort:
		return reconcile.Alphabetical()
	}
	return reconcile.Discovery()
}

func (r *Runner) options(locale, ns string, logger zerolog.Logger) reconcile.Options {
	return reconcile.Options{
		Locale:                  locale,
		Namespace:               ns,
		Primary:                 r.cfg.IsPrimary(locale),
		KeySeparator:            r.cfg.KeySep(),
		Preserve:                r.preserve,
		RemoveUnusedKeys:        r.cfg.RemoveUnusedKeys,
		SyncPrimaryWithDefaults: r.cfg.SyncPrimaryWithDefaults || r.opts.SyncPrimaryWithDefaults,
		SyncAll:                 r.opts.SyncAll,
		Sort:                    r.sortPolicy(),
		Defaults:                reconcile.DefaultSource{Static: r.cfg.DefaultValue, Func: r.cfg.DefaultValueFunc},
		Logger:                  logger.With().Str("locale", locale).Str("namespace", ns).Logger(),
	}
}
