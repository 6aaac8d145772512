// Package widths keeps column width shares of a Row summing to one.
//
// Two kinds of change exist. Structural changes (a column added or removed)
// rescale every column. Interactive resizes move the divider between two
// neighbouring columns and leave the rest of the row alone.
package widths

import (
	"fmt"

	"blockgrid/internal/domain"
)

// Allocator computes width shares under a set of limits.
type Allocator struct {
	lim domain.Limits
}

// New creates an Allocator.
func New(lim domain.Limits) Allocator {
	return Allocator{lim: lim}
}

// Limits returns the bounds the allocator enforces.
func (a Allocator) Limits() domain.Limits { return a.lim }

// Equal returns n equal shares.
func (a Allocator) Equal(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}

// Insert returns the shares after a new column is placed at index at.
// For the new count n every existing share becomes old*(n-1)/n and the new
// column receives 1/n.
func (a Allocator) Insert(ws []float64, at int) ([]float64, error) {
	if at < 0 || at > len(ws) {
		return nil, fmt.Errorf("insert column at %d of %d", at, len(ws))
	}
	n := len(ws) + 1
	if n > a.lim.MaxColumns {
		return nil, domain.ErrColumnLimitExceeded
	}
	scale := float64(n-1) / float64(n)
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		switch {
		case i < at:
			out = append(out, ws[i]*scale)
		case i == at:
			out = append(out, 1/float64(n))
		default:
			out = append(out, ws[i-1]*scale)
		}
	}
	return a.liftToMin(out), nil
}

// Remove returns the shares after the column at index at is deleted.
// Remaining shares are scaled by 1/(1-removed).
func (a Allocator) Remove(ws []float64, at int) ([]float64, error) {
	if at < 0 || at >= len(ws) {
		return nil, fmt.Errorf("remove column %d of %d", at, len(ws))
	}
	out := make([]float64, 0, len(ws)-1)
	out = append(out, ws[:at]...)
	out = append(out, ws[at+1:]...)
	if len(out) == 0 {
		return out, nil
	}
	rest := 1 - ws[at]
	if rest <= 0 {
		return a.Equal(len(out)), nil
	}
	for i := range out {
		out[i] /= rest
	}
	return a.liftToMin(normalize(out)), nil
}

// Resize moves the divider between column divider and divider+1 by delta,
// a fraction of the row width. Both columns are clamped to
// [MinColumnWidth, 1-MinColumnWidth]; clamped reports whether that happened.
func (a Allocator) Resize(ws []float64, divider int, delta float64) (out []float64, clamped bool, err error) {
	if divider < 0 || divider+1 >= len(ws) {
		return nil, false, fmt.Errorf("resize divider %d of %d columns", divider, len(ws))
	}
	out = append([]float64(nil), ws...)
	pair := ws[divider] + ws[divider+1]
	lo := a.lim.MinColumnWidth
	hi := pair - a.lim.MinColumnWidth
	if hi > 1-a.lim.MinColumnWidth {
		hi = 1 - a.lim.MinColumnWidth
	}
	if hi < lo {
		// The pair has no room to move; leave it as is.
		return out, delta != 0, nil
	}
	left := ws[divider] + delta
	switch {
	case left < lo:
		left, clamped = lo, true
	case left > hi:
		left, clamped = hi, true
	}
	out[divider] = left
	out[divider+1] = pair - left
	return out, clamped, nil
}

// PixelsToRatio converts a pointer delta to a width delta for a row rowWidth
// pixels wide.
func PixelsToRatio(deltaPx, rowWidth float64) float64 {
	if rowWidth <= 0 {
		return 0
	}
	return deltaPx / rowWidth
}

// liftToMin raises shares below the minimum to it and takes the deficit
// from shares above the minimum in proportion to their excess.
func (a Allocator) liftToMin(ws []float64) []float64 {
	floor := a.lim.MinColumnWidth
	deficit, excess := 0.0, 0.0
	for _, w := range ws {
		if w < floor {
			deficit += floor - w
		} else {
			excess += w - floor
		}
	}
	if deficit == 0 || excess <= 0 {
		return normalize(ws)
	}
	for i, w := range ws {
		if w < floor {
			ws[i] = floor
		} else {
			ws[i] = w - deficit*(w-floor)/excess
		}
	}
	return normalize(ws)
}

// normalize absorbs floating point drift into the last share.
func normalize(ws []float64) []float64 {
	if len(ws) == 0 {
		return ws
	}
	sum := 0.0
	for _, w := range ws[:len(ws)-1] {
		sum += w
	}
	ws[len(ws)-1] = 1 - sum
	return ws
}
