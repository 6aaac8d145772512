// Package treeops rewrites block trees.
//
// Every operation takes a Document by value and returns a new one. On
// failure the returned Document is the input, untouched, together with a
// *domain.RejectError naming the reason.
package treeops

import (
	"fmt"

	"github.com/google/uuid"

	"blockgrid/internal/domain"
	"blockgrid/internal/widths"
)

// Intent is a resolved drop: put DraggedID at Zone relative to TargetID.
type Intent struct {
	DraggedID string      `json:"draggedId"`
	TargetID  string      `json:"targetId"`
	Zone      domain.Zone `json:"zone"`
}

// Mutator applies structural edits under a fixed set of limits.
type Mutator struct {
	lim   domain.Limits
	alloc widths.Allocator

	// NewID names Rows and Columns created by a split.
	NewID func() string
}

// New creates a Mutator that names new nodes with random UUIDs.
func New(lim domain.Limits) *Mutator {
	return &Mutator{lim: lim, alloc: widths.New(lim), NewID: uuid.NewString}
}

// Limits returns the bounds enforced by m.
func (m *Mutator) Limits() domain.Limits { return m.lim }

// Apply dispatches intent to MoveBlock or SplitIntoColumns by zone.
func (m *Mutator) Apply(doc domain.Document, in Intent) (domain.Document, error) {
	switch {
	case in.Zone.IsVertical():
		return m.MoveBlock(doc, in.DraggedID, in.TargetID, in.Zone)
	case in.Zone.IsHorizontal():
		return m.SplitIntoColumns(doc, in.DraggedID, in.TargetID, in.Zone)
	default:
		return doc, domain.Reject(domain.ReasonInvalidMove, "apply", in.TargetID,
			fmt.Errorf("%w: zone %s", domain.ErrInvalidMove, in.Zone))
	}
}

// MoveBlock detaches id and reinserts it before or after targetID.
func (m *Mutator) MoveBlock(doc domain.Document, id, targetID string, z domain.Zone) (domain.Document, error) {
	const op = "move block"
	if !z.IsVertical() {
		return doc, invalid(op, id, "zone %s is not a reorder", z)
	}
	src, tgt, err := m.checkPair(doc, op, id, targetID)
	if err != nil {
		return doc, err
	}
	if src.Kind == domain.NodeRow && tgt.InRow() {
		return doc, invalid(op, id, "row cannot be nested in a column")
	}

	out := doc.Clone()
	node, err := m.detach(&out, id)
	if err != nil {
		return doc, domain.Reject(domain.ReasonInvalidMove, op, id, err)
	}
	if err := insertAdjacent(&out, node, targetID, z); err != nil {
		return doc, domain.Reject(domain.ReasonInvalidMove, op, id, err)
	}
	return m.finish(doc, out, op, id)
}

// SplitIntoColumns places draggedID in a new column beside targetID.
// A bare target Block is wrapped with the dragged block into a new two-column
// Row; a target inside a Row gains a neighbouring column.
func (m *Mutator) SplitIntoColumns(doc domain.Document, draggedID, targetID string, z domain.Zone) (domain.Document, error) {
	const op = "split into columns"
	if !z.IsHorizontal() {
		return doc, invalid(op, draggedID, "zone %s does not create a column", z)
	}
	src, tgt, err := m.checkPair(doc, op, draggedID, targetID)
	if err != nil {
		return doc, err
	}
	if src.Kind != domain.NodeBlock {
		return doc, invalid(op, draggedID, "only blocks can become columns")
	}
	if tgt.Kind == domain.NodeColumn {
		return doc, invalid(op, targetID, "target is a column")
	}

	out := doc.Clone()
	node, err := m.detach(&out, draggedID)
	if err != nil {
		return doc, domain.Reject(domain.ReasonInvalidMove, op, draggedID, err)
	}
	if err := m.insertColumn(&out, node.(domain.Block), targetID, z); err != nil {
		return doc, domain.Reject(domain.ReasonOf(err), op, draggedID, err)
	}
	return m.finish(doc, out, op, draggedID)
}

// RemoveFromRow takes the block id out of its Row and returns it. An emptied
// column is deleted, and a Row left with one column is dissolved into its
// blocks at the Row's position.
func (m *Mutator) RemoveFromRow(doc domain.Document, id string) (domain.Document, domain.Block, error) {
	const op = "remove from row"
	loc, ok := doc.Locate(id)
	if !ok {
		return doc, domain.Block{}, domain.Reject(domain.ReasonInvalidMove, op, id, domain.ErrNotFound)
	}
	if loc.Kind != domain.NodeBlock || !loc.InRow() {
		return doc, domain.Block{}, invalid(op, id, "not a block inside a row")
	}
	out := doc.Clone()
	node, err := m.detach(&out, id)
	if err != nil {
		return doc, domain.Block{}, domain.Reject(domain.ReasonInvalidMove, op, id, err)
	}
	res, err := m.finish(doc, out, op, id)
	if err != nil {
		return doc, domain.Block{}, err
	}
	return res, node.(domain.Block), nil
}

// RemoveBlock deletes a Block or a whole Row from anywhere in the tree.
func (m *Mutator) RemoveBlock(doc domain.Document, id string) (domain.Document, error) {
	const op = "remove block"
	loc, ok := doc.Locate(id)
	if !ok {
		return doc, domain.Reject(domain.ReasonInvalidMove, op, id, domain.ErrNotFound)
	}
	if loc.Kind == domain.NodeColumn {
		return doc, invalid(op, id, "columns are removed through their blocks")
	}
	out := doc.Clone()
	if _, err := m.detach(&out, id); err != nil {
		return doc, domain.Reject(domain.ReasonInvalidMove, op, id, err)
	}
	return m.finish(doc, out, op, id)
}

// InsertBlock adds b before or after targetID, or at the end when targetID
// is empty.
func (m *Mutator) InsertBlock(doc domain.Document, b domain.Block, targetID string, z domain.Zone) (domain.Document, error) {
	const op = "insert block"
	if _, exists := doc.Locate(b.ID); exists {
		return doc, invalid(op, b.ID, "id already present")
	}
	out := doc.Clone()
	if targetID == "" {
		out.Items = append(out.Items, b)
		return m.finish(doc, out, op, b.ID)
	}
	if !z.IsVertical() {
		return doc, invalid(op, b.ID, "zone %s is not a reorder", z)
	}
	if err := insertAdjacent(&out, b, targetID, z); err != nil {
		return doc, domain.Reject(domain.ReasonInvalidMove, op, b.ID, err)
	}
	return m.finish(doc, out, op, b.ID)
}

// ResizeColumns moves the divider to the right of column divider in rowID by
// delta, a fraction of the row width. Widths clamp at the minimum instead of
// failing; clamped reports whether that happened.
func (m *Mutator) ResizeColumns(doc domain.Document, rowID string, divider int, delta float64) (domain.Document, bool, error) {
	const op = "resize columns"
	loc, ok := doc.Locate(rowID)
	if !ok {
		return doc, false, domain.Reject(domain.ReasonInvalidMove, op, rowID, domain.ErrNotFound)
	}
	if loc.Kind != domain.NodeRow {
		return doc, false, invalid(op, rowID, "not a row")
	}
	row := doc.Items[loc.Index].(domain.Row)
	ws, clamped, err := m.alloc.Resize(row.Widths(), divider, delta)
	if err != nil {
		return doc, false, domain.Reject(domain.ReasonInvalidMove, op, rowID, err)
	}
	out := doc.Clone()
	setWidths(&out, loc.Index, ws)
	res, err := m.finish(doc, out, op, rowID)
	return res, clamped, err
}

// ── internals ──────────────────────────────────────────────

// checkPair validates that both ends of a drop exist and that the target is
// neither inside the dragged subtree nor one of its ancestors.
func (m *Mutator) checkPair(doc domain.Document, op, id, targetID string) (src, tgt domain.Location, err error) {
	src, ok := doc.Locate(id)
	if !ok {
		return src, tgt, domain.Reject(domain.ReasonInvalidMove, op, id, domain.ErrNotFound)
	}
	if src.Kind == domain.NodeColumn {
		return src, tgt, invalid(op, id, "columns are not draggable")
	}
	tgt, ok = doc.Locate(targetID)
	if !ok {
		return src, tgt, domain.Reject(domain.ReasonInvalidMove, op, targetID, domain.ErrNotFound)
	}
	if _, inside := doc.SubtreeIDs(id)[targetID]; inside {
		return src, tgt, domain.Reject(domain.ReasonSelfDrop, op, id, domain.ErrSelfDrop)
	}
	if _, holds := doc.AncestorIDs(id)[targetID]; holds {
		return src, tgt, domain.Reject(domain.ReasonSelfDrop, op, id, domain.ErrSelfDrop)
	}
	return src, tgt, nil
}

// detach removes id from d and returns it, collapsing columns and rows it
// leaves empty.
func (m *Mutator) detach(d *domain.Document, id string) (domain.Node, error) {
	loc, ok := d.Locate(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !loc.InRow() {
		node := d.Items[loc.Index]
		d.Items = append(d.Items[:loc.Index], d.Items[loc.Index+1:]...)
		return node, nil
	}

	row := d.Items[loc.Index].(domain.Row)
	col := &row.Columns[loc.Column]
	b := col.Blocks[loc.Slot]
	col.Blocks = append(col.Blocks[:loc.Slot], col.Blocks[loc.Slot+1:]...)
	if len(col.Blocks) > 0 {
		d.Items[loc.Index] = row
		return b, nil
	}

	ws, err := m.alloc.Remove(row.Widths(), loc.Column)
	if err != nil {
		return nil, err
	}
	row.Columns = append(row.Columns[:loc.Column], row.Columns[loc.Column+1:]...)
	for i := range row.Columns {
		row.Columns[i].Width = ws[i]
	}
	if len(row.Columns) >= 2 {
		d.Items[loc.Index] = row
		return b, nil
	}

	// Dissolve the row into the remaining column's blocks.
	var flat []domain.Node
	for _, c := range row.Columns {
		for _, rb := range c.Blocks {
			flat = append(flat, rb)
		}
	}
	items := make([]domain.Node, 0, len(d.Items)-1+len(flat))
	items = append(items, d.Items[:loc.Index]...)
	items = append(items, flat...)
	items = append(items, d.Items[loc.Index+1:]...)
	d.Items = items
	return b, nil
}

// insertAdjacent places node next to targetID in whatever sequence holds it.
func insertAdjacent(d *domain.Document, node domain.Node, targetID string, z domain.Zone) error {
	loc, ok := d.Locate(targetID)
	if !ok {
		return domain.ErrNotFound
	}
	offset := 0
	if z == domain.ZoneAfter {
		offset = 1
	}
	if !loc.InRow() {
		at := loc.Index + offset
		items := make([]domain.Node, 0, len(d.Items)+1)
		items = append(items, d.Items[:at]...)
		items = append(items, node)
		items = append(items, d.Items[at:]...)
		d.Items = items
		return nil
	}
	b, isBlock := node.(domain.Block)
	if !isBlock || loc.Kind != domain.NodeBlock {
		return fmt.Errorf("%w: only blocks go inside a column", domain.ErrInvalidMove)
	}
	row := d.Items[loc.Index].(domain.Row)
	col := &row.Columns[loc.Column]
	at := loc.Slot + offset
	blocks := make([]domain.Block, 0, len(col.Blocks)+1)
	blocks = append(blocks, col.Blocks[:at]...)
	blocks = append(blocks, b)
	blocks = append(blocks, col.Blocks[at:]...)
	col.Blocks = blocks
	d.Items[loc.Index] = row
	return nil
}

// insertColumn puts b in a new column on the z side of targetID.
func (m *Mutator) insertColumn(d *domain.Document, b domain.Block, targetID string, z domain.Zone) error {
	loc, ok := d.Locate(targetID)
	if !ok {
		return domain.ErrNotFound
	}
	newCol := domain.Column{ID: m.NewID(), Blocks: []domain.Block{b}}

	if loc.Kind == domain.NodeBlock && !loc.InRow() {
		target := d.Items[loc.Index].(domain.Block)
		other := domain.Column{ID: m.NewID(), Blocks: []domain.Block{target}}
		cols := []domain.Column{newCol, other}
		if z == domain.ZoneRight {
			cols = []domain.Column{other, newCol}
		}
		for i, w := range m.alloc.Equal(2) {
			cols[i].Width = w
		}
		d.Items[loc.Index] = domain.Row{ID: m.NewID(), Columns: cols}
		return nil
	}

	row := d.Items[loc.Index].(domain.Row)
	if len(row.Columns) >= m.lim.MaxColumns {
		return domain.Reject(domain.ReasonColumnLimitExceeded, "insert column", row.ID, domain.ErrColumnLimitExceeded)
	}
	var at int
	switch {
	case loc.InRow() && z == domain.ZoneLeft:
		at = loc.Column
	case loc.InRow():
		at = loc.Column + 1
	case z == domain.ZoneLeft:
		at = 0
	default:
		at = len(row.Columns)
	}
	ws, err := m.alloc.Insert(row.Widths(), at)
	if err != nil {
		return domain.Reject(domain.ReasonOf(err), "insert column", row.ID, err)
	}
	cols := make([]domain.Column, 0, len(row.Columns)+1)
	cols = append(cols, row.Columns[:at]...)
	cols = append(cols, newCol)
	cols = append(cols, row.Columns[at:]...)
	row.Columns = cols
	d.Items[loc.Index] = row
	setWidths(d, loc.Index, ws)
	return nil
}

func setWidths(d *domain.Document, index int, ws []float64) {
	row := d.Items[index].(domain.Row)
	for i := range row.Columns {
		row.Columns[i].Width = ws[i]
	}
	d.Items[index] = row
}

// finish validates out and falls back to orig when it breaks an invariant.
func (m *Mutator) finish(orig, out domain.Document, op, id string) (domain.Document, error) {
	if err := out.Validate(m.lim); err != nil {
		return orig, domain.Reject(domain.ReasonInvalidMove, op, id, fmt.Errorf("%w: %v", domain.ErrInvalidMove, err))
	}
	return out, nil
}

func invalid(op, id, format string, args ...any) error {
	return domain.Reject(domain.ReasonInvalidMove, op, id,
		fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidMove}, args...)...))
}
