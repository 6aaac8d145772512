package mcpserver

import (
	"fmt"

	"blockgrid/internal/autoscroll"
	"blockgrid/internal/domain"
	"blockgrid/internal/drag"
	"blockgrid/internal/layout"
)

// gesturePlan is a scripted pointer gesture: grab, then move through each
// sample in order, then release.
type gesturePlan struct {
	Bounds   []layout.BlockBounds
	Viewport autoscroll.Viewport
	Samples  []drag.Pointer
}

// planGesture lays doc out headlessly and scripts a drag of draggedID onto
// zone z of targetID. The viewport covers the whole page with room to spare
// so the replay never triggers autoscroll.
func planGesture(doc domain.Document, m layout.Metrics, draggedID, targetID string, z domain.Zone, thresholdPx, edgeZonePx float64) (gesturePlan, error) {
	eng := layout.NewEngine(m)
	bounds := eng.Compute(doc)
	idx := layout.NewIndex(bounds)

	from, ok := idx.Bounds(draggedID)
	if !ok {
		return gesturePlan{}, fmt.Errorf("block %s: %w", draggedID, domain.ErrNotFound)
	}
	to, ok := idx.Bounds(targetID)
	if !ok {
		return gesturePlan{}, fmt.Errorf("block %s: %w", targetID, domain.ErrNotFound)
	}

	start := layout.PointFor(from.Bounds, domain.ZoneBefore, thresholdPx)
	end := layout.PointFor(to.Bounds, z, thresholdPx)

	margin := 2 * edgeZonePx
	return gesturePlan{
		Bounds:   bounds,
		Viewport: autoscroll.Viewport{Top: m.Top - margin, Height: eng.Height(doc) + 2*margin},
		Samples: []drag.Pointer{
			{X: start.X, Y: start.Y, T: 1},
			{X: end.X, Y: end.Y, T: 2},
		},
	}, nil
}

// replayGesture performs plan on pageID through the live drag session. When
// the pointer does not land in want, the gesture is cancelled and an error
// names the zone it did land in.
func (s *Server) replayGesture(pageID, draggedID string, want domain.Zone, plan gesturePlan) (domain.Document, error) {
	if err := s.layout.ReportLayout(pageID, plan.Bounds, plan.Viewport); err != nil {
		return domain.Document{}, err
	}
	if err := s.layout.Grab(pageID, draggedID); err != nil {
		return domain.Document{}, err
	}
	var got domain.Zone
	for _, p := range plan.Samples {
		z, err := s.layout.PointerMove(pageID, p)
		if err != nil {
			s.layout.Cancel(pageID)
			return domain.Document{}, err
		}
		got = z
	}
	if got != want {
		s.layout.Cancel(pageID)
		return domain.Document{}, fmt.Errorf("drop zone %s is not available there; the pointer resolves to %s", want, got)
	}
	return s.layout.Release(pageID)
}
