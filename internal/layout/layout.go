// Package layout computes block geometry for a document and resolves
// pointer positions back to blocks.
//
// The editor surface normally reports real bounds each frame; Compute gives
// the same shape headlessly so gestures can be replayed without a renderer.
package layout

import (
	"math"

	"blockgrid/internal/domain"
)

const (
	DefaultWidth       = 720.0
	DefaultBlockHeight = 60.0
	DefaultGap         = 8.0  // vertical space between stacked items
	DefaultGutter      = 16.0 // horizontal space between columns
)

// Metrics describe the surface a document is laid out on.
type Metrics struct {
	Left        float64 `json:"left"`
	Top         float64 `json:"top"`
	Width       float64 `json:"width"`
	BlockHeight float64 `json:"blockHeight"`
	Gap         float64 `json:"gap"`
	Gutter      float64 `json:"gutter"`
}

// DefaultMetrics returns a single 720px wide editor column.
func DefaultMetrics() Metrics {
	return Metrics{
		Width:       DefaultWidth,
		BlockHeight: DefaultBlockHeight,
		Gap:         DefaultGap,
		Gutter:      DefaultGutter,
	}
}

// BlockBounds is the on-screen box of one node.
type BlockBounds struct {
	ID     string          `json:"id"`
	Kind   domain.NodeKind `json:"kind"`
	Bounds domain.Rect     `json:"bounds"`
	// Depth is 0 for top-level items and 1 inside a column.
	Depth int `json:"depth"`
	// RowColumnCount is the column count of the Row holding (or being) the node.
	RowColumnCount int `json:"rowColumnCount"`
}

// Engine lays documents out with fixed metrics.
type Engine struct {
	m Metrics
}

func NewEngine(m Metrics) *Engine {
	return &Engine{m: m}
}

// Metrics returns the metrics in use.
func (e *Engine) Metrics() Metrics { return e.m }

// snap rounds v to whole device pixels.
func snap(v float64) float64 {
	return math.Round(v)
}

// Compute stacks top-level items from top to bottom. A Row spends its width
// on columns in proportion to their shares, minus gutters; blocks inside a
// column stack the same way top-level items do.
func (e *Engine) Compute(doc domain.Document) []BlockBounds {
	var out []BlockBounds
	y := e.m.Top
	for _, n := range doc.Items {
		switch v := n.(type) {
		case domain.Block:
			out = append(out, BlockBounds{
				ID:     v.ID,
				Kind:   domain.NodeBlock,
				Bounds: domain.Rect{Left: e.m.Left, Top: y, Width: e.m.Width, Height: e.m.BlockHeight},
			})
			y += e.m.BlockHeight + e.m.Gap

		case domain.Row:
			var rowHeight float64
			rowStart := len(out)
			out = append(out, BlockBounds{ID: v.ID, Kind: domain.NodeRow, RowColumnCount: len(v.Columns)})

			avail := e.m.Width - e.m.Gutter*float64(len(v.Columns)-1)
			x := e.m.Left
			for _, c := range v.Columns {
				w := snap(avail * c.Width)
				cy := y
				for _, b := range c.Blocks {
					out = append(out, BlockBounds{
						ID:             b.ID,
						Kind:           domain.NodeBlock,
						Bounds:         domain.Rect{Left: x, Top: cy, Width: w, Height: e.m.BlockHeight},
						Depth:          1,
						RowColumnCount: len(v.Columns),
					})
					cy += e.m.BlockHeight + e.m.Gap
				}
				if h := cy - y - e.m.Gap; h > rowHeight {
					rowHeight = h
				}
				x += w + e.m.Gutter
			}
			out[rowStart].Bounds = domain.Rect{Left: e.m.Left, Top: y, Width: e.m.Width, Height: rowHeight}
			y += rowHeight + e.m.Gap
		}
	}
	return out
}

// Height returns the total height Compute would occupy.
func (e *Engine) Height(doc domain.Document) float64 {
	bounds := e.Compute(doc)
	bottom := e.m.Top
	for _, b := range bounds {
		if b.Bounds.Bottom() > bottom {
			bottom = b.Bounds.Bottom()
		}
	}
	return bottom - e.m.Top
}

// PointFor returns a pointer position inside r that lands in zone z for an
// edge band of threshold pixels.
func PointFor(r domain.Rect, z domain.Zone, threshold float64) domain.Point {
	cx := r.Left + r.Width/2
	cy := r.Top + r.Height/2
	inset := math.Min(threshold/2, r.Width/6)
	switch z {
	case domain.ZoneLeft:
		return domain.Point{X: r.Left + inset, Y: cy}
	case domain.ZoneRight:
		return domain.Point{X: r.Right() - inset, Y: cy}
	case domain.ZoneBefore:
		return domain.Point{X: cx, Y: r.Top + r.Height/6}
	default:
		return domain.Point{X: cx, Y: r.Top + r.Height*5/6}
	}
}
