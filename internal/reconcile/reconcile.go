// Package reconcile merges a tree built from source against the stored catalog of one
// (locale, namespace) pair.
package reconcile

import (
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"keysync/internal/catalog"
)

// DefaultValueFunc computes the value of a key missing from a secondary locale.
type DefaultValueFunc func(key, namespace, locale string) string

// DefaultSource is the value source for keys missing from secondary locales.
// Func wins over Static when set; a panicking Func yields an empty string.
type DefaultSource struct {
	Static string
	Func   DefaultValueFunc
}

// Options is the policy applied by Reconcile.
type Options struct {
	Locale    string
	Namespace string
	// Primary marks the locale whose values come from source defaults.
	Primary bool

	KeySeparator string
	Preserve     *Preserver

	RemoveUnusedKeys        bool
	SyncPrimaryWithDefaults bool
	SyncAll                 bool

	Sort     SortPolicy
	Defaults DefaultSource

	Logger zerolog.Logger
}

// Result is the outcome for one catalog file.
type Result struct {
	Path      string
	Namespace string
	Locale    string
	Existing  *catalog.Tree
	New       *catalog.Tree
	// Updated is true when New serializes differently from Existing or no file existed.
	Updated bool
	Added   int
	Removed int
}

// Reconcile merges newTree (built by catalog.Build) with existing, which may be nil when no
// catalog file exists yet.
func Reconcile(newTree, existing *catalog.Tree, opts Options) *Result {
	r := &reconciler{opts: opts}

	var merged *catalog.Tree
	if existing != nil && opts.Preserve.NamespaceExempt(opts.Namespace) {
		merged = existing.Clone()
	} else {
		merged = r.merge(nil, newTree, existing)
	}

	res := &Result{
		Namespace: opts.Namespace,
		Locale:    opts.Locale,
		Existing:  existing,
		New:       merged,
		Updated:   existing == nil || !catalog.Equal(merged, existing),
	}
	res.Added, res.Removed = countChanges(existing, merged, opts.KeySeparator)
	return res
}

type reconciler struct {
	opts Options
}

func (r *reconciler) path(prefix []string, seg string) string {
	if len(prefix) == 0 {
		return seg
	}
	sep := r.opts.KeySeparator
	if sep == "" {
		sep = "."
	}
	return strings.Join(prefix, sep) + sep + seg
}

// merge applies, per key: preserve patterns, object markers, leaf policy, pruning of keys only
// present in the stored tree, and shape replacement, then orders the result.
func (r *reconciler) merge(prefix []string, nw, old *catalog.Tree) *catalog.Tree {
	out := catalog.NewTree()

	segments := nw.Keys()
	for _, k := range old.Keys() {
		if _, ok := nw.Get(k); !ok {
			segments = append(segments, k)
		}
	}

	for _, seg := range segments {
		full := r.path(prefix, seg)
		newVal, inNew := nw.Get(seg)
		oldVal, inOld := old.Get(seg)

		if inOld && r.opts.Preserve.Match(r.opts.Namespace, full) {
			out.Set(seg, catalog.CloneValue(oldVal))
			continue
		}

		if inNew {
			switch v := newVal.(type) {
			case *catalog.Opaque:
				if inOld {
					out.Set(seg, catalog.CloneValue(oldVal))
				}
			case *catalog.Leaf:
				out.Set(seg, r.leafValue(v, oldVal, inOld && isLeafValue(oldVal)))
			case *catalog.Tree:
				// A leaf stored where source now nests keys is replaced by the new structure.
				oldSub, _ := oldVal.(*catalog.Tree)
				if sub := r.merge(child(prefix, seg), v, oldSub); sub.Len() > 0 {
					out.Set(seg, sub)
				}
			}
			continue
		}

		if !r.opts.RemoveUnusedKeys {
			out.Set(seg, catalog.CloneValue(oldVal))
			continue
		}
		// Unused objects may still hold preserved descendants.
		if oldSub, ok := oldVal.(*catalog.Tree); ok {
			if sub := r.merge(child(prefix, seg), nil, oldSub); sub.Len() > 0 {
				out.Set(seg, sub)
			}
		}
	}

	r.sort(prefix, out)
	return out
}

func (r *reconciler) sort(prefix []string, t *catalog.Tree) {
	if r.opts.Sort.Mode == SortDiscovery {
		return
	}
	records := make([]KeyRecord, 0, t.Len())
	for _, seg := range t.Keys() {
		v, _ := t.Get(seg)
		records = append(records, KeyRecord{
			Key:       r.path(prefix, seg),
			Segment:   seg,
			Namespace: r.opts.Namespace,
			Depth:     len(prefix),
			Leaf:      !isTree(v),
		})
	}
	t.Reorder(r.opts.Sort.Order(records))
}

// leafValue decides the stored value of a key that source still uses.
func (r *reconciler) leafValue(leaf *catalog.Leaf, old any, hasOld bool) any {
	if r.opts.Primary {
		if !hasOld {
			return leaf.Default
		}
		// Suffixed variants carry Explicit only for a per-form default, so generic defaults
		// never overwrite stored plural or context translations.
		if (r.opts.SyncPrimaryWithDefaults || r.opts.SyncAll) && leaf.Explicit {
			return leaf.Default
		}
		return old
	}

	if hasOld && !r.opts.SyncAll {
		return old
	}
	return r.secondaryDefault(leaf.Key)
}

func (r *reconciler) secondaryDefault(key string) (v string) {
	if r.opts.Defaults.Func == nil {
		return r.opts.Defaults.Static
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.opts.Logger.Warn().
				Str("key", key).
				Str("locale", r.opts.Locale).
				Interface("panic", rec).
				Msg("Default value function failed, using empty string")
			v = ""
		}
	}()
	return r.opts.Defaults.Func(key, r.opts.Namespace, r.opts.Locale)
}

func child(prefix []string, seg string) []string {
	return append(slices.Clone(prefix), seg)
}

func isTree(v any) bool {
	_, ok := v.(*catalog.Tree)
	return ok
}

// isLeafValue reports whether a stored value can stand in for a leaf. Objects and arrays
// cannot: source defining a leaf there replaces them.
func isLeafValue(v any) bool {
	switch v.(type) {
	case *catalog.Tree, []any:
		return false
	}
	return true
}

func countChanges(existing, merged *catalog.Tree, sep string) (added, removed int) {
	if sep == "" {
		sep = "\x00"
	}
	before := leafPaths(existing, sep)
	after := leafPaths(merged, sep)
	for p := range after {
		if !before[p] {
			added++
		}
	}
	for p := range before {
		if !after[p] {
			removed++
		}
	}
	return added, removed
}

func leafPaths(t *catalog.Tree, sep string) map[string]bool {
	out := make(map[string]bool)
	t.Walk(func(path []string, _ any) {
		out[strings.Join(path, sep)] = true
	})
	return out
}
