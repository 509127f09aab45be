package parser

import (
	"context"
	"errors"

	sitter "github.com/smacker/go-tree-sitter"
)

var (
	// ErrFileTooLarge is returned for sources above the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidContent is returned for sources that are not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")
	// ErrUnsupported is returned for extensions no parser handles.
	ErrUnsupported = errors.New("unsupported file type")
)

// ParseResult holds the syntax tree of a single file.
type ParseResult struct {
	// FilePath is the path the source was read from.
	FilePath string
	// FileType is the grammar used (typescript or tsx).
	FileType string
	// Content is the parsed text; node offsets point into it.
	Content []byte
	Root    *sitter.Node
	// HasErrors is set when the grammar had to recover from syntax errors.
	// Root is still a usable, error-tolerant tree.
	HasErrors bool

	tree *sitter.Tree
}

// Close releases the native tree.
func (r *ParseResult) Close() {
	if r != nil && r.tree != nil {
		r.tree.Close()
		r.tree = nil
	}
}

// Parser is the interface for all source parsers.
type Parser interface {
	// CanParse returns true if this parser handles the given file extension.
	CanParse(ext string) bool
	// Parse builds a syntax tree from content. The caller must Close the result.
	Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error)
}
