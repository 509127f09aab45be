package filewalker

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
)

// Matcher reports whether a slash-separated path relative to the project root matches any of a
// set of globs. `**/` also matches zero directories, so `src/**/*.ts` matches `src/a.ts`.
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles patterns.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimPrefix(filepath.ToSlash(p), "./")
		for _, variant := range []string{p, strings.ReplaceAll(p, "**/", "")} {
			g, err := glob.Compile(variant, '/')
			if err != nil {
				return nil, fmt.Errorf("compile glob %q: %w", p, err)
			}
			m.globs = append(m.globs, g)
		}
	}
	return m, nil
}

// Match reports whether rel matches any pattern. A nil Matcher matches nothing.
func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// matchDir reports whether a directory and everything below it is covered by the patterns.
func (m *Matcher) matchDir(rel string) bool {
	return m.Match(rel) || m.Match(rel+"/")
}

// Walker discovers files under a root by include and ignore globs.
type Walker struct {
	include *Matcher
	ignore  *Matcher
	accept  func(ext string) bool
}

// NewWalker creates a Walker. accept filters by lower-cased extension; nil accepts every file.
func NewWalker(include, ignore []string, accept func(ext string) bool) (*Walker, error) {
	inc, err := NewMatcher(include)
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	ign, err := NewMatcher(ignore)
	if err != nil {
		return nil, fmt.Errorf("ignore patterns: %w", err)
	}
	return &Walker{include: inc, ignore: ign, accept: accept}, nil
}

// FileEntry represents a discovered file ready for processing.
type FileEntry struct {
	// Path is the file path joined onto the walked root.
	Path string
	// Rel is the slash-separated path relative to the root.
	Rel string
	Ext string
}

// Matches reports whether path, which must lie under root, would be discovered by Walk.
func (w *Walker) Matches(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return w.wants(filepath.ToSlash(rel))
}

// IgnoresDir reports whether the slash-separated directory rel is skipped with everything below it.
func (w *Walker) IgnoresDir(rel string) bool {
	return w.ignore.matchDir(rel)
}

func (w *Walker) wants(rel string) bool {
	if !w.include.Match(rel) || w.ignore.Match(rel) {
		return false
	}
	return w.accept == nil || w.accept(strings.ToLower(filepath.Ext(rel)))
}

// Walk discovers all matching files under root, sorted by relative path.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if w.IgnoresDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.wants(rel) {
			return nil
		}
		entries = append(entries, FileEntry{
			Path: path,
			Rel:  rel,
			Ext:  strings.ToLower(filepath.Ext(path)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	slices.SortFunc(entries, func(a, b FileEntry) int { return strings.Compare(a.Rel, b.Rel) })

	log.Debug().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}
