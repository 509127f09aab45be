package reconcile

import (
	"slices"
	"strings"
)

// SortMode selects how siblings are ordered.
type SortMode int

const (
	// SortDiscovery keeps source discovery order, followed by kept existing-only keys.
	SortDiscovery SortMode = iota
	// SortAlphabetical orders siblings by segment, case-sensitively.
	SortAlphabetical
	// SortCustom orders siblings with a comparator.
	SortCustom
)

// KeyRecord describes one sibling handed to a custom comparator.
type KeyRecord struct {
	// Key is the full path of the sibling joined with the key separator.
	Key       string
	Segment   string
	Namespace string
	// Depth is 0 for top-level keys.
	Depth int
	// Leaf is false when the sibling holds nested keys.
	Leaf bool
}

// SortPolicy controls sibling order at every level of a tree, including the top level.
type SortPolicy struct {
	Mode    SortMode
	Compare func(a, b KeyRecord) int
}

// Alphabetical returns the alphabetical policy.
func Alphabetical() SortPolicy { return SortPolicy{Mode: SortAlphabetical} }

// Discovery returns the discovery-order policy.
func Discovery() SortPolicy { return SortPolicy{Mode: SortDiscovery} }

// Custom returns a comparator policy.
func Custom(cmp func(a, b KeyRecord) int) SortPolicy {
	return SortPolicy{Mode: SortCustom, Compare: cmp}
}

// Order sorts records in place and returns their segments in the resulting order.
func (p SortPolicy) Order(records []KeyRecord) []string {
	switch {
	case p.Mode == SortAlphabetical:
		slices.SortStableFunc(records, func(a, b KeyRecord) int {
			return strings.Compare(a.Segment, b.Segment)
		})
	case p.Mode == SortCustom && p.Compare != nil:
		slices.SortStableFunc(records, p.Compare)
	}
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Segment
	}
	return out
}
