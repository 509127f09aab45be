package runner

import (
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"

	"keysync/internal/catalog"
	"keysync/internal/reconcile"
)

// mergePatch describes a catalog change as an RFC 7386 merge patch from the stored tree to the
// reconciled one. A missing catalog diffs against an empty object.
func mergePatch(res *reconcile.Result) ([]byte, error) {
	before := []byte("{}")
	if res.Existing != nil {
		b, err := res.Existing.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode existing catalog: %w", err)
		}
		before = b
	}
	after, err := treeJSON(res.New)
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return nil, fmt.Errorf("create merge patch: %w", err)
	}
	return patch, nil
}

func treeJSON(t *catalog.Tree) ([]byte, error) {
	b, err := t.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return b, nil
}
