package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blockgrid/internal/autoscroll"
	"blockgrid/internal/config"
	"blockgrid/internal/domain"
	"blockgrid/internal/drag"
	"blockgrid/internal/layout"
	"blockgrid/internal/service"
	"blockgrid/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// LayoutService tests against a temp-dir SQLite store
// ─────────────────────────────────────────────────────────────

type fixture struct {
	svc     *service.LayoutService
	emitter *service.MockEmitter
	docs    *storage.DocumentStore
	undo    *storage.UndoStore
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "layout.db"))
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		emitter: &service.MockEmitter{},
		docs:    storage.NewDocumentStore(db),
		undo:    storage.NewUndoStore(db, 40),
	}
	f.svc = service.NewLayoutService(context.Background(), f.docs, f.undo, f.emitter, cfg)
	t.Cleanup(f.svc.CloseAll)
	return f
}

// seed opens page p holding blocks a, b, c stacked top to bottom. With the
// default metrics they sit at y 0..60, 68..128 and 136..196.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	if _, err := f.svc.OpenPage("p"); err != nil {
		t.Fatalf("OpenPage: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if _, err := f.svc.InsertBlock("p", domain.Block{ID: id, Type: domain.BlockTypeParagraph}, "", domain.ZoneNone); err != nil {
			t.Fatalf("InsertBlock %s: %v", id, err)
		}
	}
	f.emitter.Reset()
}

func order(doc domain.Document) string {
	return strings.Join(doc.BlockIDs(), ",")
}

func TestLayoutService_OpenPageEmpty(t *testing.T) {
	f := newFixture(t, config.Default())
	doc, err := f.svc.OpenPage("new")
	if err != nil {
		t.Fatalf("OpenPage: %v", err)
	}
	if doc.PageID != "new" || len(doc.Items) != 0 {
		t.Errorf("expected empty document for new page, got %+v", doc)
	}
	tree, err := f.svc.History("new")
	if err != nil || tree == nil || len(tree.Nodes) != 1 {
		t.Errorf("expected seeded history, got %+v, %v", tree, err)
	}
}

func TestLayoutService_OpenPageEmptyID(t *testing.T) {
	f := newFixture(t, config.Default())
	if _, err := f.svc.OpenPage(""); err == nil {
		t.Error("expected error for empty page id")
	}
}

func TestLayoutService_InsertPersists(t *testing.T) {
	f := newFixture(t, config.Default())
	f.seed(t)

	stored, err := f.docs.LoadDocument("p")
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if got := order(*stored); got != "a,b,c" {
		t.Errorf("stored order = %s, want a,b,c", got)
	}
}

func TestLayoutService_DragSplit(t *testing.T) {
	f := newFixture(t, config.Default())
	f.seed(t)

	if err := f.svc.Grab("p", "a"); err != nil {
		t.Fatalf("Grab: %v", err)
	}
	z, err := f.svc.PointerMove("p", drag.Pointer{X: 10, Y: 98})
	if err != nil || z != domain.ZoneLeft {
		t.Fatalf("PointerMove = %s, %v; want left", z, err)
	}
	doc, err := f.svc.Release("p")
	if err != nil {
		t.Fatalf("Release: %v", err)
	}

	row, ok := doc.Items[0].(domain.Row)
	if !ok {
		t.Fatalf("expected Row first, got %T", doc.Items[0])
	}
	if row.Columns[0].Blocks[0].ID != "a" || row.Columns[1].Blocks[0].ID != "b" {
		t.Errorf("columns = %+v", row.Columns)
	}

	if n := len(f.emitter.Named(service.EventIndicatorShow)); n != 1 {
		t.Errorf("indicator-show events = %d, want 1", n)
	}
	if n := len(f.emitter.Named(service.EventIndicatorHide)); n != 1 {
		t.Errorf("indicator-hide events = %d, want 1", n)
	}
	changed := f.emitter.Named(service.EventTreeChanged)
	if len(changed) != 1 {
		t.Fatalf("tree-changed events = %d, want 1", len(changed))
	}
	if ev := changed[0].Data.(service.TreeChangedEvent); ev.Label != "drag" || ev.PageID != "p" {
		t.Errorf("tree-changed payload = %+v", ev)
	}

	stored, err := f.docs.LoadDocument("p")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := stored.Items[0].(domain.Row); !ok {
		t.Error("split was not persisted")
	}
}

func TestLayoutService_EditsRejectedDuringGesture(t *testing.T) {
	f := newFixture(t, config.Default())
	f.seed(t)

	if err := f.svc.Grab("p", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.MoveBlock("p", "c", "a", domain.ZoneBefore); !errors.Is(err, drag.ErrGestureActive) {
		t.Errorf("MoveBlock: expected ErrGestureActive, got %v", err)
	}
	if _, err := f.svc.DeleteBlock("p", "c"); !errors.Is(err, drag.ErrGestureActive) {
		t.Errorf("DeleteBlock: expected ErrGestureActive, got %v", err)
	}
	if _, err := f.svc.Undo("p"); !errors.Is(err, drag.ErrGestureActive) {
		t.Errorf("Undo: expected ErrGestureActive, got %v", err)
	}
	if err := f.svc.Grab("p", "b"); !errors.Is(err, drag.ErrSessionBusy) {
		t.Errorf("second Grab: expected ErrSessionBusy, got %v", err)
	}
	if err := f.svc.Cancel("p"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.MoveBlock("p", "c", "a", domain.ZoneBefore); err != nil {
		t.Errorf("MoveBlock after cancel: %v", err)
	}
}

func TestLayoutService_UndoRedo(t *testing.T) {
	f := newFixture(t, config.Default())
	f.seed(t)

	if _, err := f.svc.MoveBlock("p", "c", "a", domain.ZoneBefore); err != nil {
		t.Fatal(err)
	}
	before, _ := f.svc.History("p")

	doc, err := f.svc.Undo("p")
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := order(doc); got != "a,b,c" {
		t.Errorf("after undo = %s, want a,b,c", got)
	}
	after, _ := f.svc.History("p")
	if len(after.Nodes) != len(before.Nodes) {
		t.Errorf("undo added history nodes: %d -> %d", len(before.Nodes), len(after.Nodes))
	}
	stored, _ := f.docs.LoadDocument("p")
	if got := order(*stored); got != "a,b,c" {
		t.Errorf("undo not persisted: %s", got)
	}

	doc, err = f.svc.Redo("p")
	if err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if got := order(doc); got != "c,a,b" {
		t.Errorf("after redo = %s, want c,a,b", got)
	}
	if _, err := f.svc.Redo("p"); !errors.Is(err, service.ErrNothingToRedo) {
		t.Errorf("expected ErrNothingToRedo, got %v", err)
	}
}

func TestLayoutService_UndoAtRoot(t *testing.T) {
	f := newFixture(t, config.Default())
	if _, err := f.svc.OpenPage("p"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Undo("p"); !errors.Is(err, service.ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestLayoutService_RemoveFromRow(t *testing.T) {
	f := newFixture(t, config.Default())
	f.seed(t)
	if _, err := f.svc.SplitIntoColumns("p", "a", "b", domain.ZoneLeft); err != nil {
		t.Fatal(err)
	}

	doc, err := f.svc.RemoveFromRow("p", "a")
	if err != nil {
		t.Fatalf("RemoveFromRow: %v", err)
	}
	if got := order(doc); got != "b,a,c" {
		t.Errorf("order = %s, want b,a,c", got)
	}
	for _, n := range doc.Items {
		if _, ok := n.(domain.Row); ok {
			t.Error("row should have dissolved")
		}
	}
}

func TestLayoutService_ResizeColumns(t *testing.T) {
	f := newFixture(t, config.Default())
	f.seed(t)
	doc, err := f.svc.SplitIntoColumns("p", "a", "b", domain.ZoneLeft)
	if err != nil {
		t.Fatal(err)
	}
	rowID := doc.Items[0].(domain.Row).ID

	doc, clamped, err := f.svc.ResizeColumns("p", rowID, 0, 72, 720)
	if err != nil {
		t.Fatalf("ResizeColumns: %v", err)
	}
	if clamped {
		t.Error("small resize should not clamp")
	}
	ws := doc.Items[0].(domain.Row).Widths()
	if diff := ws[0] - 0.6; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("widths = %v, want [0.6 0.4]", ws)
	}
}

func TestLayoutService_MoveRejectedEvent(t *testing.T) {
	f := newFixture(t, config.Default())

	cols := make([]domain.Column, 5)
	for i := range cols {
		cols[i] = domain.Column{ID: fmt.Sprintf("c%d", i), Width: 0.2, Blocks: []domain.Block{{ID: fmt.Sprintf("b%d", i)}}}
	}
	doc := domain.Document{PageID: "full", Items: []domain.Node{
		domain.Block{ID: "x"},
		domain.Row{ID: "r", Columns: cols},
	}}
	if err := f.docs.SaveDocument(&doc); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.OpenPage("full"); err != nil {
		t.Fatal(err)
	}

	// A stale report that still shows two columns.
	stale := []layout.BlockBounds{
		{ID: "b0", Kind: domain.NodeBlock, Bounds: domain.Rect{Left: 0, Top: 100, Width: 300, Height: 60}, Depth: 1, RowColumnCount: 2},
	}
	if err := f.svc.ReportLayout("full", stale, autoscroll.Viewport{Top: 0, Height: 1000}); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Grab("full", "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.PointerMove("full", drag.Pointer{X: 5, Y: 130}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Release("full"); !errors.Is(err, domain.ErrColumnLimitExceeded) {
		t.Fatalf("expected ErrColumnLimitExceeded, got %v", err)
	}

	rejected := f.emitter.Named(service.EventMoveRejected)
	if len(rejected) != 1 {
		t.Fatalf("move-rejected events = %d, want 1", len(rejected))
	}
	if ev := rejected[0].Data.(service.MoveRejectedEvent); ev.Reason != domain.ReasonColumnLimitExceeded {
		t.Errorf("reason = %s, want ColumnLimitExceeded", ev.Reason)
	}
	if st, _ := f.svc.State("full"); st != drag.Idle {
		t.Errorf("state = %s, want idle", st)
	}
}

func TestLayoutService_ScrollEvents(t *testing.T) {
	cfg := config.Default()
	cfg.AutoScroll.IntervalMs = 1
	f := newFixture(t, cfg)
	f.seed(t)

	bounds := layout.NewEngine(layout.DefaultMetrics()).Compute(mustDoc(t, f, "p"))
	if err := f.svc.ReportLayout("p", bounds, autoscroll.Viewport{Top: 0, Height: 400}); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Grab("p", "c"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.PointerMove("p", drag.Pointer{X: 360, Y: 2}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for len(f.emitter.Named(service.EventScroll)) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	scrolls := f.emitter.Named(service.EventScroll)
	if len(scrolls) == 0 {
		t.Fatal("no scroll events while hovering the top edge")
	}
	if ev := scrolls[0].Data.(service.ScrollEvent); ev.Delta >= 0 {
		t.Errorf("expected upward scroll, got %v", ev.Delta)
	}

	if err := f.svc.Cancel("p"); err != nil {
		t.Fatal(err)
	}
	n := len(f.emitter.Named(service.EventScroll))
	time.Sleep(20 * time.Millisecond)
	if len(f.emitter.Named(service.EventScroll)) != n {
		t.Error("scroll events continued after Cancel")
	}
}

func TestLayoutService_SetConfigAppliesToNewPages(t *testing.T) {
	f := newFixture(t, config.Default())
	cfg := config.Default()
	cfg.Layout.MaxColumns = 3
	f.svc.SetConfig(cfg)
	if got := f.svc.Config().Layout.MaxColumns; got != 3 {
		t.Errorf("MaxColumns = %d, want 3", got)
	}
}

func mustDoc(t *testing.T, f *fixture, pageID string) domain.Document {
	t.Helper()
	doc, err := f.svc.GetDocument(pageID)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestLayoutService_ReloadPicksUpExternalWrites(t *testing.T) {
	f := newFixture(t, config.Default())
	f.seed(t)

	if changed, err := f.svc.Reload("p"); err != nil || changed {
		t.Fatalf("Reload of unchanged page = %v, %v", changed, err)
	}

	external := domain.Document{PageID: "p", Items: []domain.Node{
		domain.Block{ID: "c", Type: domain.BlockTypeParagraph},
		domain.Block{ID: "a", Type: domain.BlockTypeParagraph},
	}}
	if err := f.docs.SaveDocument(&external); err != nil {
		t.Fatal(err)
	}
	before, _ := f.svc.History("p")

	changed, err := f.svc.Reload("p")
	if err != nil || !changed {
		t.Fatalf("Reload = %v, %v; want changed", changed, err)
	}
	if got := order(mustDoc(t, f, "p")); got != "c,a" {
		t.Errorf("order after reload = %s, want c,a", got)
	}
	after, _ := f.svc.History("p")
	if len(after.Nodes) != len(before.Nodes) {
		t.Error("reload should not add history")
	}
	if ev := f.emitter.Named(service.EventTreeChanged); len(ev) != 1 || ev[0].Data.(service.TreeChangedEvent).Label != "reload" {
		t.Errorf("tree-changed events = %+v", ev)
	}
}

func TestLayoutService_ReloadClosedPage(t *testing.T) {
	f := newFixture(t, config.Default())
	if changed, err := f.svc.Reload("nope"); changed || err != nil {
		t.Errorf("Reload of closed page = %v, %v", changed, err)
	}
}
