package domain

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// WidthEpsilon is the tolerance applied to column width sums.
const WidthEpsilon = 1e-6

// Limits are the structural bounds every Row must respect.
// Both bounds are closed: MaxColumns columns and MinColumnWidth widths are valid.
type Limits struct {
	MaxColumns     int
	MinColumnWidth float64
}

// DefaultLimits returns the canonical bounds.
func DefaultLimits() Limits {
	return Limits{MaxColumns: 5, MinColumnWidth: 0.10}
}

// Location addresses a node inside a Document.
// Column and Slot are -1 for top-level items.
type Location struct {
	Index  int
	Column int
	Slot   int
	Kind   NodeKind
}

// InRow reports whether the located node is a Block inside a Row.
func (l Location) InRow() bool { return l.Column >= 0 }

// Depth is 0 for top-level items and 1 for blocks inside a column.
func (l Location) Depth() int {
	if l.InRow() {
		return 1
	}
	return 0
}

// Locate finds the node with the given id. Rows, columns and blocks are all
// addressable; a column resolves to its Row's index with Slot -1.
func (d Document) Locate(id string) (Location, bool) {
	for i, n := range d.Items {
		switch v := n.(type) {
		case Block:
			if v.ID == id {
				return Location{Index: i, Column: -1, Slot: -1, Kind: NodeBlock}, true
			}
		case Row:
			if v.ID == id {
				return Location{Index: i, Column: -1, Slot: -1, Kind: NodeRow}, true
			}
			for c, col := range v.Columns {
				if col.ID == id {
					return Location{Index: i, Column: c, Slot: -1, Kind: NodeColumn}, true
				}
				for s, b := range col.Blocks {
					if b.ID == id {
						return Location{Index: i, Column: c, Slot: s, Kind: NodeBlock}, true
					}
				}
			}
		}
	}
	return Location{}, false
}

// Block returns the block with the given id wherever it sits.
func (d Document) Block(id string) (Block, bool) {
	loc, ok := d.Locate(id)
	if !ok || loc.Kind != NodeBlock {
		return Block{}, false
	}
	if !loc.InRow() {
		return d.Items[loc.Index].(Block), true
	}
	return d.Items[loc.Index].(Row).Columns[loc.Column].Blocks[loc.Slot], true
}

// RowOf returns the Row that contains id, or id's own Row.
func (d Document) RowOf(id string) (Row, bool) {
	loc, ok := d.Locate(id)
	if !ok {
		return Row{}, false
	}
	r, isRow := d.Items[loc.Index].(Row)
	return r, isRow
}

// SubtreeIDs returns id together with the ids of everything beneath it.
func (d Document) SubtreeIDs(id string) map[string]struct{} {
	out := map[string]struct{}{id: {}}
	loc, ok := d.Locate(id)
	if !ok || loc.Kind == NodeBlock {
		return out
	}
	r := d.Items[loc.Index].(Row)
	for c, col := range r.Columns {
		if loc.Kind == NodeColumn && c != loc.Column {
			continue
		}
		out[col.ID] = struct{}{}
		for _, b := range col.Blocks {
			out[b.ID] = struct{}{}
		}
	}
	return out
}

// AncestorIDs returns the ids of the Column and Row that hold id. It is
// empty for top-level items.
func (d Document) AncestorIDs(id string) map[string]struct{} {
	out := map[string]struct{}{}
	loc, ok := d.Locate(id)
	if !ok || loc.Kind != NodeBlock || !loc.InRow() {
		return out
	}
	r := d.Items[loc.Index].(Row)
	out[r.ID] = struct{}{}
	out[r.Columns[loc.Column].ID] = struct{}{}
	return out
}

// BlockIDs lists every block id in reading order: top to bottom, and
// column by column inside a Row.
func (d Document) BlockIDs() []string {
	var ids []string
	for _, n := range d.Items {
		switch v := n.(type) {
		case Block:
			ids = append(ids, v.ID)
		case Row:
			for _, col := range v.Columns {
				for _, b := range col.Blocks {
					ids = append(ids, b.ID)
				}
			}
		}
	}
	return ids
}

// Validate checks every structural invariant and reports all violations.
func (d Document) Validate(lim Limits) error {
	var err error
	seen := make(map[string]struct{})
	claim := func(id, what string) {
		if id == "" {
			err = multierr.Append(err, fmt.Errorf("%s with empty id", what))
			return
		}
		if _, dup := seen[id]; dup {
			err = multierr.Append(err, fmt.Errorf("duplicate id %q", id))
			return
		}
		seen[id] = struct{}{}
	}

	for i, n := range d.Items {
		switch v := n.(type) {
		case Block:
			claim(v.ID, "block")
		case Row:
			claim(v.ID, "row")
			err = multierr.Append(err, validateRow(v, lim))
			for _, col := range v.Columns {
				claim(col.ID, "column")
				for _, b := range col.Blocks {
					claim(b.ID, "block")
				}
			}
		default:
			err = multierr.Append(err, fmt.Errorf("item %d: unexpected node %T", i, n))
		}
	}
	return err
}

func validateRow(r Row, lim Limits) error {
	var err error
	n := len(r.Columns)
	if n < 2 || n > lim.MaxColumns {
		err = multierr.Append(err, fmt.Errorf("row %s: %d columns, want 2..%d", r.ID, n, lim.MaxColumns))
	}
	sum := 0.0
	for _, col := range r.Columns {
		sum += col.Width
		if col.Width < lim.MinColumnWidth-WidthEpsilon {
			err = multierr.Append(err, fmt.Errorf("row %s: column %s width %.4f below %.2f", r.ID, col.ID, col.Width, lim.MinColumnWidth))
		}
		if len(col.Blocks) == 0 {
			err = multierr.Append(err, fmt.Errorf("row %s: column %s is empty", r.ID, col.ID))
		}
	}
	if n > 0 && math.Abs(sum-1) > WidthEpsilon {
		err = multierr.Append(err, fmt.Errorf("row %s: widths sum to %.6f", r.ID, sum))
	}
	return err
}
