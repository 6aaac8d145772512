package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"blockgrid/internal/autoscroll"
	"blockgrid/internal/config"
	"blockgrid/internal/domain"
	"blockgrid/internal/drag"
	"blockgrid/internal/layout"
	"blockgrid/internal/logging"
	"blockgrid/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Layout Service: drag sessions and structural edits per page
// ─────────────────────────────────────────────────────────────

// Events emitted to the presentation layer.
const (
	EventIndicatorShow = "layout:indicator-show"
	EventIndicatorHide = "layout:indicator-hide"
	EventTreeChanged   = "layout:tree-changed"
	EventMoveRejected  = "layout:move-rejected"
	EventScroll        = "layout:scroll"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// IndicatorEvent is the payload of EventIndicatorShow and EventIndicatorHide.
type IndicatorEvent struct {
	PageID string      `json:"pageId"`
	Zone   string      `json:"zone,omitempty"`
	Bounds domain.Rect `json:"bounds"`
}

// TreeChangedEvent is the payload of EventTreeChanged.
type TreeChangedEvent struct {
	PageID   string          `json:"pageId"`
	Label    string          `json:"label"`
	Document domain.Document `json:"document"`
}

// MoveRejectedEvent is the payload of EventMoveRejected.
type MoveRejectedEvent struct {
	PageID string              `json:"pageId"`
	Reason domain.RejectReason `json:"reason"`
	Detail string              `json:"detail"`
}

// ScrollEvent is the payload of EventScroll.
type ScrollEvent struct {
	PageID string  `json:"pageId"`
	Delta  float64 `json:"delta"`
}

// LayoutService owns one drag.Session per open page. Calls on the same page
// are serialized; different pages proceed independently. Every committed
// tree is saved to the DocumentStore and recorded in the undo history.
type LayoutService struct {
	ctx     context.Context
	docs    domain.DocumentStore
	undo    *storage.UndoStore
	emitter EventEmitter
	logger  *log.Logger

	mu    sync.Mutex
	cfg   config.Config
	pages map[string]*page
}

// page is the per-document state. mu is held for the whole of every call,
// including the hooks the session runs synchronously.
type page struct {
	mu      sync.Mutex
	id      string
	session *drag.Session
	label   string
	record  bool
}

// NewLayoutService creates a LayoutService. undo may be nil to disable history.
func NewLayoutService(ctx context.Context, docs domain.DocumentStore, undo *storage.UndoStore, emitter EventEmitter, cfg config.Config) *LayoutService {
	return &LayoutService{
		ctx:     ctx,
		docs:    docs,
		undo:    undo,
		emitter: emitter,
		logger:  logging.New("layout"),
		cfg:     cfg,
		pages:   make(map[string]*page),
	}
}

// SetConfig changes the settings used by pages opened from now on. Open pages
// keep the configuration they were opened with.
func (s *LayoutService) SetConfig(cfg config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Config returns the settings for newly opened pages.
func (s *LayoutService) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// OpenPage loads pageID and prepares its session. Opening an already open
// page returns its current document. A page with no stored document starts
// empty.
func (s *LayoutService) OpenPage(pageID string) (domain.Document, error) {
	if pageID == "" {
		return domain.Document{}, fmt.Errorf("open page: empty page id")
	}
	s.mu.Lock()
	if p, ok := s.pages[pageID]; ok {
		s.mu.Unlock()
		return p.session.Document(), nil
	}
	cfg := s.cfg
	s.mu.Unlock()

	doc, err := s.docs.LoadDocument(pageID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		doc = &domain.Document{PageID: pageID}
	case err != nil:
		return domain.Document{}, fmt.Errorf("open page: %w", err)
	}
	if err := doc.Validate(cfg.Limits()); err != nil {
		// Stored trees written under other limits are served as-is; edits
		// that keep them invalid will be refused.
		s.logger.Warn("stored document violates limits", "page", pageID, "err", err)
	}

	p := &page{id: pageID}
	p.session = drag.NewSession(*doc, drag.Options{
		Zone:       cfg.Zone(),
		Limits:     cfg.Limits(),
		AutoScroll: cfg.Scroll(),
		HitTester:  s.headlessIndex(*doc),
		Indicator:  &indicatorPort{s: s, pageID: pageID},
		Scroll: autoscroll.PortFunc(func(delta float64) {
			s.emitter.Emit(s.ctx, EventScroll, ScrollEvent{PageID: pageID, Delta: delta})
		}),
		Hooks: drag.Hooks{
			OnTreeChanged:  func(d domain.Document) { s.commit(p, d) },
			OnMoveRejected: func(r domain.RejectReason, err error) { s.rejected(p, r, err) },
		},
		Logger: logging.New("drag"),
	})

	s.mu.Lock()
	if existing, ok := s.pages[pageID]; ok {
		s.mu.Unlock()
		return existing.session.Document(), nil
	}
	s.pages[pageID] = p
	s.mu.Unlock()

	if s.undo != nil {
		cur, err := s.undo.Current(pageID)
		if err != nil {
			s.logger.Warn("read undo history", "page", pageID, "err", err)
		} else if cur == nil {
			if _, err := s.undo.Push(pageID, "open", *doc); err != nil {
				s.logger.Warn("seed undo history", "page", pageID, "err", err)
			}
		}
	}
	s.logger.Info("page opened", "page", pageID, "items", len(doc.Items))
	return *doc, nil
}

// ClosePage cancels any live gesture and forgets the page.
func (s *LayoutService) ClosePage(pageID string) {
	s.mu.Lock()
	p, ok := s.pages[pageID]
	delete(s.pages, pageID)
	s.mu.Unlock()
	if !ok {
		return
	}
	p.mu.Lock()
	p.session.Cancel()
	p.mu.Unlock()
}

// CloseAll cancels every live gesture. Used on shutdown.
func (s *LayoutService) CloseAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.pages))
	for id := range s.pages {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.ClosePage(id)
	}
}

// GetDocument returns the committed document of an open or stored page.
func (s *LayoutService) GetDocument(pageID string) (domain.Document, error) {
	p, err := s.page(pageID)
	if err != nil {
		return domain.Document{}, err
	}
	return p.session.Document(), nil
}

// ListPages returns the ids of every stored page.
func (s *LayoutService) ListPages() ([]string, error) {
	return s.docs.ListPages()
}

// Reload replaces the document of an open page with the stored one when
// another process has changed it, and reports whether it did. Reloads are
// not recorded in the undo history; the writer recorded them already.
func (s *LayoutService) Reload(pageID string) (bool, error) {
	s.mu.Lock()
	_, open := s.pages[pageID]
	s.mu.Unlock()
	if !open {
		return false, nil
	}
	stored, err := s.docs.LoadDocument(pageID)
	if err != nil {
		return false, fmt.Errorf("reload %s: %w", pageID, err)
	}
	changed := false
	err = s.withPage(pageID, "reload", func(p *page) error {
		if p.session.State() != drag.Idle {
			return drag.ErrGestureActive
		}
		if sameTree(p.session.Document(), *stored) {
			return nil
		}
		p.record = false
		changed = true
		return p.session.Replace(*stored)
	})
	return changed, err
}

// State returns the gesture state of pageID.
func (s *LayoutService) State(pageID string) (drag.State, error) {
	p, err := s.page(pageID)
	if err != nil {
		return drag.Idle, err
	}
	return p.session.State(), nil
}

// ── Gesture ─────────────────────────────────────────────────

// Grab starts a gesture on blockID.
func (s *LayoutService) Grab(pageID, blockID string) error {
	return s.withPage(pageID, "", func(p *page) error {
		return p.session.Grab(blockID)
	})
}

// PointerMove feeds a pointer sample and returns the targeted zone.
func (s *LayoutService) PointerMove(pageID string, ptr drag.Pointer) (domain.Zone, error) {
	var z domain.Zone
	err := s.withPage(pageID, "", func(p *page) error {
		var err error
		z, err = p.session.PointerMove(ptr)
		return err
	})
	return z, err
}

// Release resolves the gesture and returns the committed document.
func (s *LayoutService) Release(pageID string) (domain.Document, error) {
	var doc domain.Document
	err := s.withPage(pageID, "drag", func(p *page) error {
		var err error
		doc, err = p.session.Release()
		return err
	})
	return doc, err
}

// Cancel abandons the gesture on pageID.
func (s *LayoutService) Cancel(pageID string) error {
	return s.withPage(pageID, "", func(p *page) error {
		p.session.Cancel()
		return nil
	})
}

// ReportLayout replaces the bounds used for hit testing with those measured
// by the presentation layer.
func (s *LayoutService) ReportLayout(pageID string, bounds []layout.BlockBounds, vp autoscroll.Viewport) error {
	return s.withPage(pageID, "", func(p *page) error {
		p.session.SetHitTester(layout.NewIndex(bounds))
		p.session.SetViewport(vp)
		return nil
	})
}

// ── Structural edits ────────────────────────────────────────

// MoveBlock reorders id before or after targetID.
func (s *LayoutService) MoveBlock(pageID, id, targetID string, z domain.Zone) (domain.Document, error) {
	return s.apply(pageID, "move block", func(p *page, d domain.Document) (domain.Document, error) {
		return p.session.Mutator().MoveBlock(d, id, targetID, z)
	})
}

// SplitIntoColumns places draggedID in a new column beside targetID.
func (s *LayoutService) SplitIntoColumns(pageID, draggedID, targetID string, z domain.Zone) (domain.Document, error) {
	return s.apply(pageID, "split into columns", func(p *page, d domain.Document) (domain.Document, error) {
		return p.session.Mutator().SplitIntoColumns(d, draggedID, targetID, z)
	})
}

// RemoveFromRow lifts id out of its row and reinserts it after the row, or
// where the row stood if the row dissolved.
func (s *LayoutService) RemoveFromRow(pageID, id string) (domain.Document, error) {
	return s.apply(pageID, "remove from row", func(p *page, d domain.Document) (domain.Document, error) {
		m := p.session.Mutator()
		row, ok := d.RowOf(id)
		if !ok {
			out, _, err := m.RemoveFromRow(d, id)
			return out, err
		}
		out, b, err := m.RemoveFromRow(d, id)
		if err != nil {
			return d, err
		}
		anchor := row.ID
		if _, still := out.Locate(anchor); !still {
			// The row dissolved; put the block after the blocks it left behind.
			ids := make([]string, 0)
			for _, c := range row.Columns {
				for _, rb := range c.Blocks {
					if rb.ID != id {
						ids = append(ids, rb.ID)
					}
				}
			}
			anchor = ids[len(ids)-1]
		}
		return m.InsertBlock(out, b, anchor, domain.ZoneAfter)
	})
}

// DeleteBlock removes a block or row.
func (s *LayoutService) DeleteBlock(pageID, id string) (domain.Document, error) {
	return s.apply(pageID, "delete block", func(p *page, d domain.Document) (domain.Document, error) {
		return p.session.Mutator().RemoveBlock(d, id)
	})
}

// InsertBlock adds b next to targetID, or at the end when targetID is empty.
func (s *LayoutService) InsertBlock(pageID string, b domain.Block, targetID string, z domain.Zone) (domain.Document, error) {
	return s.apply(pageID, "insert block", func(p *page, d domain.Document) (domain.Document, error) {
		return p.session.Mutator().InsertBlock(d, b, targetID, z)
	})
}

// ResizeColumns moves a column divider by deltaPx on a row rowWidthPx wide.
func (s *LayoutService) ResizeColumns(pageID, rowID string, divider int, deltaPx, rowWidthPx float64) (domain.Document, bool, error) {
	var (
		doc     domain.Document
		clamped bool
	)
	err := s.withPage(pageID, "resize columns", func(p *page) error {
		var err error
		doc, clamped, err = p.session.ResizeColumns(rowID, divider, deltaPx, rowWidthPx)
		return err
	})
	return doc, clamped, err
}

// ── History ─────────────────────────────────────────────────

// Undo restores the previous snapshot of pageID.
func (s *LayoutService) Undo(pageID string) (domain.Document, error) {
	return s.travel(pageID, "undo", ErrNothingToUndo, func() (*storage.UndoNode, error) {
		return s.undo.Undo(pageID)
	})
}

// Redo restores the most recent snapshot undone on pageID.
func (s *LayoutService) Redo(pageID string) (domain.Document, error) {
	return s.travel(pageID, "redo", ErrNothingToRedo, func() (*storage.UndoNode, error) {
		return s.undo.Redo(pageID)
	})
}

// History returns the undo tree of pageID.
func (s *LayoutService) History(pageID string) (*storage.UndoTree, error) {
	if s.undo == nil {
		return nil, nil
	}
	return s.undo.LoadTree(pageID)
}

func (s *LayoutService) travel(pageID, label string, none error, move func() (*storage.UndoNode, error)) (domain.Document, error) {
	var doc domain.Document
	err := s.withPage(pageID, label, func(p *page) error {
		doc = p.session.Document()
		if s.undo == nil {
			return none
		}
		if st := p.session.State(); st != drag.Idle {
			return drag.ErrGestureActive
		}
		node, err := move()
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		if node == nil {
			return none
		}
		snap, err := node.Snapshot()
		if err != nil {
			return err
		}
		snap.PageID = pageID
		p.record = false
		if err := p.session.Replace(snap); err != nil {
			return err
		}
		doc = snap
		return nil
	})
	return doc, err
}

// ── internals ──────────────────────────────────────────────

func (s *LayoutService) page(pageID string) (*page, error) {
	s.mu.Lock()
	p, ok := s.pages[pageID]
	s.mu.Unlock()
	if ok {
		return p, nil
	}
	if _, err := s.OpenPage(pageID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok = s.pages[pageID]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", pageID, domain.ErrNotFound)
	}
	return p, nil
}

// withPage runs fn with the page lock held. label names the undo entry for
// any tree the call commits.
func (s *LayoutService) withPage(pageID, label string, fn func(p *page) error) error {
	p, err := s.page(pageID)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label = label
	p.record = true
	return fn(p)
}

func (s *LayoutService) apply(pageID, label string, edit func(p *page, d domain.Document) (domain.Document, error)) (domain.Document, error) {
	var doc domain.Document
	err := s.withPage(pageID, label, func(p *page) error {
		var err error
		doc, err = p.session.Apply(func(d domain.Document) (domain.Document, error) {
			return edit(p, d)
		})
		return err
	})
	return doc, err
}

// commit runs inside withPage, from the session's OnTreeChanged hook.
func (s *LayoutService) commit(p *page, doc domain.Document) {
	doc.PageID = p.id
	if err := s.docs.SaveDocument(&doc); err != nil {
		s.logger.Error("save document", "page", p.id, "err", err)
	}
	if s.undo != nil && p.record {
		if _, err := s.undo.Push(p.id, p.label, doc); err != nil {
			s.logger.Warn("push undo", "page", p.id, "err", err)
		}
	}
	// New tree, new geometry; until the presentation layer reports real
	// bounds, hit tests use the headless layout.
	p.session.SetHitTester(s.headlessIndex(doc))

	s.logger.Debug("tree changed", "page", p.id, "label", p.label)
	s.emitter.Emit(s.ctx, EventTreeChanged, TreeChangedEvent{PageID: p.id, Label: p.label, Document: doc})
}

func (s *LayoutService) rejected(p *page, reason domain.RejectReason, err error) {
	s.logger.Info("move rejected", "page", p.id, "reason", reason, "err", err)
	s.emitter.Emit(s.ctx, EventMoveRejected, MoveRejectedEvent{PageID: p.id, Reason: reason, Detail: err.Error()})
}

// sameTree compares the structure and content of two documents, ignoring
// the page id and save time.
func sameTree(a, b domain.Document) bool {
	a.PageID, b.PageID = "", ""
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

func (s *LayoutService) headlessIndex(doc domain.Document) *layout.Index {
	return layout.NewIndex(layout.NewEngine(layout.DefaultMetrics()).Compute(doc))
}

// indicatorPort forwards drop indicator updates as events.
type indicatorPort struct {
	s      *LayoutService
	pageID string
}

func (i *indicatorPort) Show(z domain.Zone, bounds domain.Rect) {
	i.s.emitter.Emit(i.s.ctx, EventIndicatorShow, IndicatorEvent{PageID: i.pageID, Zone: z.String(), Bounds: bounds})
}

func (i *indicatorPort) Hide() {
	i.s.emitter.Emit(i.s.ctx, EventIndicatorHide, IndicatorEvent{PageID: i.pageID})
}
