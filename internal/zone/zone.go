// Package zone classifies a pointer position over a candidate block into a
// drop intent.
//
// Horizontal edge bands (EdgeThresholdPx wide) ask for a new side-by-side
// column. Everything else splits vertically in thirds: the top third inserts
// before the candidate and the remaining two thirds insert after it, so the
// middle third ties toward After.
package zone

import "blockgrid/internal/domain"

// Config holds the classifier thresholds.
type Config struct {
	EdgeThresholdPx float64
	MaxColumns      int
}

// DefaultConfig returns the canonical thresholds.
func DefaultConfig() Config {
	return Config{EdgeThresholdPx: 64, MaxColumns: domain.DefaultLimits().MaxColumns}
}

// Input describes one candidate under the pointer.
type Input struct {
	Pointer domain.Point
	Bounds  domain.Rect
	// Depth is 0 for top-level items and 1 inside a column.
	Depth int
	// RowColumnCount is the column count of the Row holding the candidate,
	// or 0 when the candidate is top-level.
	RowColumnCount int
	// InsideDragged is set when the candidate is the dragged node or lies
	// beneath it.
	InsideDragged bool
	// DraggingRow is set when the dragged node is a whole Row.
	DraggingRow bool
}

// Classifier maps pointer positions to zones. It holds no state.
type Classifier struct {
	cfg Config
}

// New creates a Classifier.
func New(cfg Config) Classifier {
	return Classifier{cfg: cfg}
}

// Config returns the thresholds in use.
func (c Classifier) Config() Config { return c.cfg }

// Classify returns the drop zone for in.
func (c Classifier) Classify(in Input) domain.Zone {
	if in.InsideDragged || in.Bounds.Empty() {
		return domain.ZoneInvalid
	}
	// Rows only live at the top level.
	if in.DraggingRow && in.Depth > 0 {
		return domain.ZoneInvalid
	}

	z := c.horizontal(in)
	if z.IsHorizontal() && (in.DraggingRow || in.RowColumnCount >= c.cfg.MaxColumns) {
		z = domain.ZoneNone
	}
	if z == domain.ZoneNone {
		z = vertical(in)
	}
	return z
}

// EdgeThreshold is the band width used for bounds. It never exceeds a third
// of the width so narrow blocks keep a reorder band.
func (c Classifier) EdgeThreshold(bounds domain.Rect) float64 {
	t := c.cfg.EdgeThresholdPx
	if third := bounds.Width / 3; third < t {
		t = third
	}
	return t
}

func (c Classifier) horizontal(in Input) domain.Zone {
	t := c.EdgeThreshold(in.Bounds)
	hx := in.Pointer.X - in.Bounds.Left
	switch {
	case hx < t:
		return domain.ZoneLeft
	case hx > in.Bounds.Width-t:
		return domain.ZoneRight
	default:
		return domain.ZoneNone
	}
}

func vertical(in Input) domain.Zone {
	vy := (in.Pointer.Y - in.Bounds.Top) / in.Bounds.Height
	if vy < 1.0/3.0 {
		return domain.ZoneBefore
	}
	return domain.ZoneAfter
}
