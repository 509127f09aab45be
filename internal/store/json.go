package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"keysync/internal/catalog"
)

func decodeJSON(data []byte) (*catalog.Tree, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return catalog.NewTree(), nil
	}
	tree := catalog.NewTree()
	if err := tree.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return tree, nil
}

func encodeJSON(tree *catalog.Tree, indent int) ([]byte, error) {
	raw, err := tree.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", strings.Repeat(" ", indent)); err != nil {
		return nil, fmt.Errorf("indent catalog: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
