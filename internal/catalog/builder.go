package catalog

import "strings"

// Leaf is a value produced from source for one catalog key.
type Leaf struct {
	// Key is the full flat key the leaf was built from.
	Key     string
	Default string
	// Explicit is true when Default was written in source for this exact key.
	Explicit bool
	// Suffixed marks plural and context variants.
	Suffixed bool
}

// Opaque marks a path whose stored subtree must be copied forward untouched.
type Opaque struct {
	Key string
}

// Entry is one flat key handed to Build.
type Entry struct {
	Key    string
	Leaf   Leaf
	Opaque bool
}

// Conflict describes a key that could not be placed because another key already uses the same
// path with a different shape.
type Conflict struct {
	Key      string
	Existing string
}

// Build nests entries by keySep (flat when keySep is empty). New trees carry *Leaf and *Opaque
// values; they are turned into strings by reconciliation.
func Build(entries []Entry, keySep string) (*Tree, []Conflict) {
	root := NewTree()
	var conflicts []Conflict

	for _, e := range entries {
		path := []string{e.Key}
		if keySep != "" {
			path = strings.Split(e.Key, keySep)
		}

		var v any
		if e.Opaque {
			v = &Opaque{Key: e.Key}
		} else {
			leaf := e.Leaf
			leaf.Key = e.Key
			v = &leaf
		}

		if c, ok := place(root, path, v, e.Key); !ok {
			conflicts = append(conflicts, c)
		}
	}
	return root, conflicts
}

func place(root *Tree, path []string, v any, key string) (Conflict, bool) {
	cur := root
	for i, seg := range path {
		last := i == len(path)-1
		existing, ok := cur.Get(seg)

		if last {
			if !ok {
				cur.Set(seg, v)
				return Conflict{}, true
			}
			switch old := existing.(type) {
			case *Opaque:
				// An object marker absorbs every key below or at its path.
				return Conflict{}, true
			case *Leaf:
				switch nv := v.(type) {
				case *Leaf:
					if nv.Explicit && !old.Explicit {
						cur.Set(seg, nv)
					}
					return Conflict{}, true
				case *Opaque:
					cur.Set(seg, nv)
					return Conflict{}, true
				}
				return Conflict{Key: key, Existing: old.Key}, false
			case *Tree:
				if _, isOpaque := v.(*Opaque); isOpaque {
					cur.Set(seg, v)
					return Conflict{}, true
				}
				return Conflict{Key: key, Existing: firstLeafKey(old)}, false
			}
			return Conflict{Key: key}, false
		}

		if !ok {
			next := NewTree()
			cur.Set(seg, next)
			cur = next
			continue
		}
		switch old := existing.(type) {
		case *Tree:
			cur = old
		case *Opaque:
			return Conflict{}, true
		case *Leaf:
			return Conflict{Key: key, Existing: old.Key}, false
		default:
			return Conflict{Key: key}, false
		}
	}
	return Conflict{}, true
}

func firstLeafKey(t *Tree) string {
	var found string
	t.Walk(func(_ []string, v any) {
		if found != "" {
			return
		}
		if l, ok := v.(*Leaf); ok {
			found = l.Key
		}
	})
	return found
}
