package layout

import (
	"blockgrid/internal/domain"
	"blockgrid/internal/drag"
)

// Index answers hit tests over a set of bounds. It is immutable once built
// and safe for concurrent use.
type Index struct {
	entries []BlockBounds
	byID    map[string]int
}

// NewIndex builds an Index over bounds, as computed by an Engine or reported
// by the presentation layer.
func NewIndex(bounds []BlockBounds) *Index {
	ix := &Index{
		entries: append([]BlockBounds(nil), bounds...),
		byID:    make(map[string]int, len(bounds)),
	}
	for i, b := range ix.entries {
		ix.byID[b.ID] = i
	}
	return ix
}

// Len returns the number of indexed nodes.
func (ix *Index) Len() int { return len(ix.entries) }

// Bounds returns the indexed entry for id.
func (ix *Index) Bounds(id string) (BlockBounds, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return BlockBounds{}, false
	}
	return ix.entries[i], true
}

// ResolveBlockAt returns the node under (x, y). When several rects contain
// the point the deepest wins, then the one with the smaller area.
func (ix *Index) ResolveBlockAt(x, y float64) (drag.Hit, bool) {
	p := domain.Point{X: x, Y: y}
	best := -1
	for i, e := range ix.entries {
		if !e.Bounds.Contains(p) {
			continue
		}
		if best < 0 || better(e, ix.entries[best]) {
			best = i
		}
	}
	if best < 0 {
		return drag.Hit{}, false
	}
	e := ix.entries[best]
	return drag.Hit{
		BlockID:        e.ID,
		Bounds:         e.Bounds,
		Depth:          e.Depth,
		RowColumnCount: e.RowColumnCount,
	}, true
}

func better(a, b BlockBounds) bool {
	if a.Depth != b.Depth {
		return a.Depth > b.Depth
	}
	return a.Bounds.Area() < b.Bounds.Area()
}

var _ drag.HitTester = (*Index)(nil)
