package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// DefaultMaxFileSize bounds the size of a single source file.
const DefaultMaxFileSize = 10 * 1024 * 1024

const (
	FileTypeTypeScript = "typescript"
	FileTypeTSX        = "tsx"
)

// SupportedExtensions maps source extensions to the grammar that parses them. Plain
// JavaScript goes through the TSX grammar, which accepts JSX and untyped code.
var SupportedExtensions = map[string]string{
	".ts":  FileTypeTypeScript,
	".mts": FileTypeTypeScript,
	".cts": FileTypeTypeScript,
	".tsx": FileTypeTSX,
	".js":  FileTypeTSX,
	".jsx": FileTypeTSX,
	".mjs": FileTypeTSX,
	".cjs": FileTypeTSX,
}

// TreeSitterParser parses JavaScript and TypeScript sources. It is safe for concurrent use;
// every Parse call creates its own native parser.
type TreeSitterParser struct {
	maxFileSize int
}

// NewTreeSitterParser creates a parser. A non-positive maxFileSize selects the default.
func NewTreeSitterParser(maxFileSize int) *TreeSitterParser {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &TreeSitterParser{maxFileSize: maxFileSize}
}

func (p *TreeSitterParser) CanParse(ext string) bool {
	_, ok := SupportedExtensions[strings.ToLower(ext)]
	return ok
}

func (p *TreeSitterParser) Parse(ctx context.Context, filePath string, content []byte) (*ParseResult, error) {
	fileType, ok := SupportedExtensions[strings.ToLower(filepath.Ext(filePath))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(filePath))
	}
	if len(content) > p.maxFileSize {
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	ts := sitter.NewParser()
	defer ts.Close()
	if fileType == FileTypeTSX {
		ts.SetLanguage(tsx.GetLanguage())
	} else {
		ts.SetLanguage(typescript.GetLanguage())
	}

	tree, err := ts.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fileType, err)
	}
	root := tree.RootNode()
	if root == nil {
		tree.Close()
		return nil, fmt.Errorf("parse %s: empty syntax tree", fileType)
	}

	return &ParseResult{
		FilePath:  filePath,
		FileType:  fileType,
		Content:   content,
		Root:      root,
		HasErrors: root.HasError(),
		tree:      tree,
	}, nil
}
