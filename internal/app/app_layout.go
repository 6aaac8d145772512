package app

import (
	"blockgrid/internal/domain"
	"blockgrid/internal/drag"
	"blockgrid/internal/layout"
)

// ============================================================
// Block Layout
// ============================================================

// OpenPage loads a page and makes it the one watched for external changes.
func (a *App) OpenPage(pageID string) (domain.Document, error) {
	doc, err := a.layout.OpenPage(pageID)
	if err != nil {
		return doc, err
	}
	a.pages.SetPage(pageID)
	if err := a.window.SetLastPage(pageID); err != nil {
		a.logger.Debug("remember last page", "err", err)
	}
	return doc, nil
}

func (a *App) ClosePage(pageID string) {
	a.layout.ClosePage(pageID)
}

func (a *App) ListPages() ([]string, error) {
	return a.layout.ListPages()
}

func (a *App) GetDocument(pageID string) (domain.Document, error) {
	return a.layout.GetDocument(pageID)
}

// ReportLayout receives the bounds the frontend measured after a render.
func (a *App) ReportLayout(pageID string, report LayoutReport) error {
	return a.layout.ReportLayout(pageID, report.Bounds, report.Viewport)
}

// ── Gesture ─────────────────────────────────────────────────

func (a *App) Grab(pageID, blockID string) error {
	return a.layout.Grab(pageID, blockID)
}

// PointerMove returns the zone under the pointer as a string.
func (a *App) PointerMove(pageID string, p drag.Pointer) (string, error) {
	z, err := a.layout.PointerMove(pageID, p)
	return z.String(), err
}

func (a *App) Release(pageID string) (domain.Document, error) {
	return a.layout.Release(pageID)
}

func (a *App) CancelDrag(pageID string) error {
	return a.layout.Cancel(pageID)
}

// ── Structural edits ────────────────────────────────────────

func (a *App) InsertBlock(pageID string, b domain.Block, targetID, zone string) (domain.Document, error) {
	return a.layout.InsertBlock(pageID, b, targetID, parseZone(zone))
}

func (a *App) DeleteBlock(pageID, blockID string) (domain.Document, error) {
	return a.layout.DeleteBlock(pageID, blockID)
}

func (a *App) RemoveFromRow(pageID, blockID string) (domain.Document, error) {
	return a.layout.RemoveFromRow(pageID, blockID)
}

// ResizeColumns moves a divider and reports whether the widths clamped.
func (a *App) ResizeColumns(pageID, rowID string, divider int, deltaPx, rowWidthPx float64) (ResizeResult, error) {
	doc, clamped, err := a.layout.ResizeColumns(pageID, rowID, divider, deltaPx, rowWidthPx)
	return ResizeResult{Document: doc, Clamped: clamped}, err
}

// ComputeLayout returns headless bounds for pageID, for previews rendered
// before the editor has measured anything.
func (a *App) ComputeLayout(pageID string) ([]layout.BlockBounds, error) {
	doc, err := a.layout.GetDocument(pageID)
	if err != nil {
		return nil, err
	}
	return layout.NewEngine(layout.DefaultMetrics()).Compute(doc), nil
}

func parseZone(s string) domain.Zone {
	switch s {
	case "before":
		return domain.ZoneBefore
	case "left":
		return domain.ZoneLeft
	case "right":
		return domain.ZoneRight
	default:
		return domain.ZoneAfter
	}
}

