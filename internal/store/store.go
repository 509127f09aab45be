// Package store reads and writes catalog files in the JSON, YAML and JS/TS module dialects.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"keysync/internal/catalog"
)

// ErrNotFound is returned by Read when the catalog file does not exist.
var ErrNotFound = errors.New("catalog not found")

// Dialects.
const (
	JSON = "json"
	YAML = "yaml"
	JS   = "js"
	TS   = "ts"
)

// Format controls how a tree is written.
type Format struct {
	// Dialect is one of JSON, YAML, JS or TS. Empty selects the dialect by file extension.
	Dialect string
	Indent  int
}

// Store persists catalog trees.
type Store interface {
	Read(path string) (*catalog.Tree, error)
	Write(path string, tree *catalog.Tree, f Format) error
}

// FileStore is the filesystem Store.
type FileStore struct {
	maxFileSize int
}

// New creates a FileStore. maxFileSize bounds module catalogs parsed as source; 0 uses the
// parser default.
func New(maxFileSize int) *FileStore {
	return &FileStore{maxFileSize: maxFileSize}
}

// DialectOf returns the dialect implied by a file extension.
func DialectOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	case ".js", ".mjs", ".cjs":
		return JS
	case ".ts", ".mts", ".cts":
		return TS
	default:
		return JSON
	}
}

// Read loads the catalog at path.
func (s *FileStore) Read(path string) (*catalog.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var tree *catalog.Tree
	switch DialectOf(path) {
	case YAML:
		tree, err = decodeYAML(data)
	case JS, TS:
		tree, err = decodeModule(path, data, s.maxFileSize)
	default:
		tree, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tree, nil
}

// Write stores tree at path, creating parent directories. The file is replaced atomically.
func (s *FileStore) Write(path string, tree *catalog.Tree, f Format) error {
	data, err := s.Render(path, tree, f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

// Render returns the bytes Write would store at path. YAML output keeps the comments of the
// file currently at path.
func (s *FileStore) Render(path string, tree *catalog.Tree, f Format) ([]byte, error) {
	dialect := f.Dialect
	if dialect == "" {
		dialect = DialectOf(path)
	}
	indent := f.Indent
	if indent <= 0 {
		indent = 2
	}

	switch dialect {
	case JSON:
		return encodeJSON(tree, indent)
	case YAML:
		previous, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		return encodeYAML(tree, indent, previous)
	case JS, TS:
		return encodeModule(tree, indent, dialect == TS)
	default:
		return nil, fmt.Errorf("unknown catalog dialect %q", dialect)
	}
}
