package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"keysync/internal/keys"
	"keysync/internal/textutil"
)

// DefaultSize is the number of files kept when no size is given.
const DefaultSize = 4096

type entry struct {
	hash string
	keys []*keys.ExtractedKey
}

// ExtractionCache keeps the keys found in each file between runs of a watch session.
// Entries are keyed by path and only hit while the file content hash is unchanged.
// A nil cache never hits. It is safe for concurrent use.
type ExtractionCache struct {
	lru *lru.Cache[string, entry]
}

// New creates a cache holding up to size files.
func New(size int) (*ExtractionCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("create extraction cache: %w", err)
	}
	return &ExtractionCache{lru: c}, nil
}

// Get returns the keys cached for path when content is unchanged.
func (c *ExtractionCache) Get(path string, content []byte) ([]*keys.ExtractedKey, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.lru.Get(path)
	if !ok || e.hash != textutil.Hash(content) {
		return nil, false
	}
	return cloneAll(e.keys), true
}

// Set stores the keys found in path for content.
func (c *ExtractionCache) Set(path string, content []byte, ks []*keys.ExtractedKey) {
	if c == nil {
		return
	}
	c.lru.Add(path, entry{hash: textutil.Hash(content), keys: cloneAll(ks)})
}

// Remove forgets path.
func (c *ExtractionCache) Remove(path string) {
	if c == nil {
		return
	}
	c.lru.Remove(path)
}

// Len returns the number of cached files.
func (c *ExtractionCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func cloneAll(ks []*keys.ExtractedKey) []*keys.ExtractedKey {
	out := make([]*keys.ExtractedKey, len(ks))
	for i, k := range ks {
		out[i] = k.Clone()
	}
	return out
}
