package domain

// Point is a pointer position in surface coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }
func (r Rect) Area() float64   { return r.Width * r.Height }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Contains reports whether p lies inside r. Left/top edges are inclusive,
// right/bottom exclusive, so adjacent rects never both claim a point.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right() && p.Y >= r.Top && p.Y < r.Bottom()
}

func (r Rect) Intersects(o Rect) bool {
	return r.Left < o.Right() && r.Right() > o.Left &&
		r.Top < o.Bottom() && r.Bottom() > o.Top
}

// Zone is the drop intent relative to a candidate block.
type Zone int

const (
	ZoneNone Zone = iota
	ZoneBefore
	ZoneAfter
	ZoneLeft
	ZoneRight
	ZoneInvalid
)

func (z Zone) String() string {
	switch z {
	case ZoneBefore:
		return "before"
	case ZoneAfter:
		return "after"
	case ZoneLeft:
		return "left"
	case ZoneRight:
		return "right"
	case ZoneInvalid:
		return "invalid"
	default:
		return "none"
	}
}

// IsVertical reports whether z reorders within a sequence.
func (z Zone) IsVertical() bool { return z == ZoneBefore || z == ZoneAfter }

// IsHorizontal reports whether z creates a side-by-side column.
func (z Zone) IsHorizontal() bool { return z == ZoneLeft || z == ZoneRight }

// Droppable reports whether a release in z would attempt a mutation.
func (z Zone) Droppable() bool { return z.IsVertical() || z.IsHorizontal() }
