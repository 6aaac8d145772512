// Package drag runs one grab-to-release gesture at a time over a document.
//
// A Session owns the document while it is open. Pointer events come in
// through Grab, PointerMove, Release and Cancel; the Session resolves the
// block under the pointer through a HitTester, classifies the drop zone,
// drives the indicator and autoscroll, and on release asks the tree mutator
// for the new document.
package drag

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"blockgrid/internal/autoscroll"
	"blockgrid/internal/domain"
	"blockgrid/internal/logging"
	"blockgrid/internal/treeops"
	"blockgrid/internal/widths"
	"blockgrid/internal/zone"
)

var (
	// ErrSessionBusy is returned by Grab when a gesture is already live.
	ErrSessionBusy = errors.New("drag session busy")
	// ErrGestureActive rejects non-drag mutations while a gesture is live.
	ErrGestureActive = errors.New("gesture in progress")
	// ErrNotTracking is returned for pointer events with no gesture.
	ErrNotTracking = errors.New("no gesture in progress")
)

// State is the gesture lifecycle.
type State int

const (
	Idle State = iota
	Armed
	Tracking
	Resolving
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Tracking:
		return "tracking"
	case Resolving:
		return "resolving"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Hit is the candidate under the pointer as seen by the presentation layer.
type Hit struct {
	BlockID string      `json:"blockId"`
	Bounds  domain.Rect `json:"bounds"`
	// Depth is 0 for top-level items and 1 inside a column.
	Depth int `json:"depth"`
	// RowColumnCount is the column count of the Row holding the candidate.
	RowColumnCount int `json:"rowColumnCount"`
}

// HitTester resolves a pointer position to the node beneath it.
type HitTester interface {
	ResolveBlockAt(x, y float64) (Hit, bool)
}

// HitTesterFunc adapts a function to HitTester.
type HitTesterFunc func(x, y float64) (Hit, bool)

func (f HitTesterFunc) ResolveBlockAt(x, y float64) (Hit, bool) { return f(x, y) }

// IndicatorPort draws the drop indicator.
type IndicatorPort interface {
	Show(z domain.Zone, bounds domain.Rect)
	Hide()
}

// Pointer is one pointer sample. T is a monotonic timestamp in milliseconds;
// samples older than the newest one seen are dropped. T == 0 is always taken.
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}

// Hooks are called after the Session lock is released.
type Hooks struct {
	OnTreeChanged  func(doc domain.Document)
	OnMoveRejected func(reason domain.RejectReason, err error)
}

// Options configure a Session. Zero values fall back to defaults.
type Options struct {
	Zone       zone.Config
	Limits     domain.Limits
	AutoScroll autoscroll.Config

	HitTester HitTester
	Indicator IndicatorPort
	Scroll    autoscroll.Port
	Hooks     Hooks

	// NewID overrides the id generator for Rows and Columns.
	NewID  func() string
	Logger *log.Logger
}

// Session is the drag state machine for one document.
type Session struct {
	mu sync.Mutex

	doc        domain.Document
	classifier zone.Classifier
	mutator    *treeops.Mutator
	scroller   *autoscroll.Controller
	hits       HitTester
	indicator  IndicatorPort
	hooks      Hooks
	logger     *log.Logger

	state State
	g     gesture
}

// gesture is the state captured at Grab.
type gesture struct {
	dragged     string
	draggingRow bool
	subtree     map[string]struct{}
	ancestors   map[string]struct{}
	snapshot    domain.Document

	target string
	zone   domain.Zone
	shown  bool
	lastT  int64
}

// NewSession opens a Session over doc.
func NewSession(doc domain.Document, opts Options) *Session {
	if opts.Zone == (zone.Config{}) {
		opts.Zone = zone.DefaultConfig()
	}
	if opts.Limits == (domain.Limits{}) {
		opts.Limits = domain.DefaultLimits()
	}
	if opts.AutoScroll == (autoscroll.Config{}) {
		opts.AutoScroll = autoscroll.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("drag")
	}
	m := treeops.New(opts.Limits)
	if opts.NewID != nil {
		m.NewID = opts.NewID
	}
	scroll := opts.Scroll
	if scroll == nil {
		scroll = autoscroll.PortFunc(func(float64) {})
	}
	return &Session{
		doc:        doc,
		classifier: zone.New(opts.Zone),
		mutator:    m,
		scroller:   autoscroll.NewController(opts.AutoScroll, scroll),
		hits:       opts.HitTester,
		indicator:  opts.Indicator,
		hooks:      opts.Hooks,
		logger:     opts.Logger,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Document returns a copy of the committed document. During a gesture this
// is the snapshot taken at Grab.
func (s *Session) Document() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Dragged returns the id held by the live gesture, or "".
func (s *Session) Dragged() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.dragged
}

// Mutator exposes the tree mutator for non-drag edits via Apply.
func (s *Session) Mutator() *treeops.Mutator { return s.mutator }

// Classifier returns the zone classifier in use.
func (s *Session) Classifier() zone.Classifier { return s.classifier }

// SetHitTester swaps the hit tester, e.g. after a new layout report.
func (s *Session) SetHitTester(h HitTester) {
	s.mu.Lock()
	s.hits = h
	s.mu.Unlock()
}

// SetViewport updates the scroll container extent used by autoscroll.
func (s *Session) SetViewport(vp autoscroll.Viewport) {
	s.scroller.SetViewport(vp)
}

// Grab arms a gesture on id. Rows and Blocks can be grabbed; Columns cannot.
func (s *Session) Grab(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return ErrSessionBusy
	}
	loc, ok := s.doc.Locate(id)
	if !ok {
		return domain.Reject(domain.ReasonInvalidMove, "grab", id, domain.ErrNotFound)
	}
	if loc.Kind == domain.NodeColumn {
		return domain.Reject(domain.ReasonInvalidMove, "grab", id,
			fmt.Errorf("%w: columns cannot be dragged", domain.ErrInvalidMove))
	}

	s.g = gesture{
		dragged:     id,
		draggingRow: loc.Kind == domain.NodeRow,
		subtree:     s.doc.SubtreeIDs(id),
		ancestors:   s.doc.AncestorIDs(id),
		snapshot:    s.doc,
		zone:        domain.ZoneNone,
	}
	s.state = Armed
	s.logger.Debug("armed", "id", id, "row", s.g.draggingRow)
	return nil
}

// PointerMove feeds one pointer sample and returns the zone now targeted.
// The first move after Grab starts tracking and autoscroll.
func (s *Session) PointerMove(p Pointer) (domain.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Armed:
		s.state = Tracking
		s.scroller.Start()
		s.logger.Debug("tracking", "id", s.g.dragged)
	case Tracking:
	default:
		return domain.ZoneNone, ErrNotTracking
	}

	if p.T != 0 {
		if p.T < s.g.lastT {
			return s.g.zone, nil
		}
		s.g.lastT = p.T
	}
	s.scroller.Update(p.Y)

	target, z, bounds := s.resolve(p)
	if target == s.g.target && z == s.g.zone {
		return z, nil
	}
	s.g.target, s.g.zone = target, z

	if z.Droppable() {
		if s.indicator != nil {
			s.indicator.Show(z, bounds)
		}
		s.g.shown = true
	} else {
		s.hideIndicator()
	}
	s.logger.Debug("zone changed", "target", target, "zone", z)
	return z, nil
}

func (s *Session) resolve(p Pointer) (string, domain.Zone, domain.Rect) {
	if s.hits == nil {
		return "", domain.ZoneNone, domain.Rect{}
	}
	hit, ok := s.hits.ResolveBlockAt(p.X, p.Y)
	if !ok {
		return "", domain.ZoneNone, domain.Rect{}
	}
	// The hit may describe a node that has vanished since the layout was taken.
	if _, found := s.g.snapshot.Locate(hit.BlockID); !found {
		return hit.BlockID, domain.ZoneInvalid, hit.Bounds
	}
	// The Row holding the dragged block counts as part of it.
	_, inside := s.g.subtree[hit.BlockID]
	if _, holds := s.g.ancestors[hit.BlockID]; holds {
		inside = true
	}
	z := s.classifier.Classify(zone.Input{
		Pointer:        domain.Point{X: p.X, Y: p.Y},
		Bounds:         hit.Bounds,
		Depth:          hit.Depth,
		RowColumnCount: hit.RowColumnCount,
		InsideDragged:  inside,
		DraggingRow:    s.g.draggingRow,
	})
	return hit.BlockID, z, hit.Bounds
}

// Release resolves the gesture. It returns the committed document and, when
// the tree mutator refuses the drop, the rejection. Drops with no droppable
// zone, including self drops, cancel silently. Every path ends Idle with the
// indicator hidden and autoscroll stopped.
func (s *Session) Release() (domain.Document, error) {
	s.mu.Lock()

	switch s.state {
	case Armed:
		s.finishLocked(Cancelled)
		doc := s.doc
		s.mu.Unlock()
		return doc, nil
	case Tracking:
		s.state = Resolving
	default:
		doc := s.doc
		s.mu.Unlock()
		return doc, ErrNotTracking
	}

	s.scroller.Stop()
	s.hideIndicator()

	g := s.g
	if !g.zone.Droppable() {
		s.logger.Debug("released without a drop zone", "id", g.dragged, "zone", g.zone)
		s.finishLocked(Cancelled)
		doc := s.doc
		s.mu.Unlock()
		return doc, nil
	}

	out, err := s.mutator.Apply(g.snapshot, treeops.Intent{DraggedID: g.dragged, TargetID: g.target, Zone: g.zone})
	if err != nil {
		s.logger.Debug("move rejected", "id", g.dragged, "target", g.target, "zone", g.zone, "err", err)
		s.finishLocked(Cancelled)
		doc := s.doc
		hook := s.hooks.OnMoveRejected
		s.mu.Unlock()
		if hook != nil {
			hook(domain.ReasonOf(err), err)
		}
		return doc, err
	}

	s.doc = out
	s.finishLocked(Resolving)
	hook := s.hooks.OnTreeChanged
	s.mu.Unlock()

	s.logger.Debug("move committed", "id", g.dragged, "target", g.target, "zone", g.zone)
	if hook != nil {
		hook(out)
	}
	return out, nil
}

// Cancel abandons the gesture. The document is left as it was at Grab.
// Cancel with no gesture does nothing.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return
	}
	s.scroller.Stop()
	s.hideIndicator()
	s.logger.Debug("cancelled", "id", s.g.dragged)
	s.finishLocked(Cancelled)
}

// finishLocked records the terminal state of the gesture and returns to Idle.
func (s *Session) finishLocked(via State) {
	s.scroller.Stop()
	if via != Idle {
		s.logger.Debug("gesture ended", "id", s.g.dragged, "via", via)
	}
	s.g = gesture{}
	s.state = Idle
}

func (s *Session) hideIndicator() {
	if !s.g.shown {
		return
	}
	if s.indicator != nil {
		s.indicator.Hide()
	}
	s.g.shown = false
}

// Apply runs a non-drag edit against the committed document. It is refused
// with ErrGestureActive unless the Session is Idle.
func (s *Session) Apply(edit func(domain.Document) (domain.Document, error)) (domain.Document, error) {
	s.mu.Lock()
	if s.state != Idle {
		doc := s.doc
		s.mu.Unlock()
		return doc, ErrGestureActive
	}
	out, err := edit(s.doc)
	if err != nil {
		doc := s.doc
		s.mu.Unlock()
		return doc, err
	}
	s.doc = out
	hook := s.hooks.OnTreeChanged
	s.mu.Unlock()

	if hook != nil {
		hook(out)
	}
	return out, nil
}

// Replace swaps the committed document, e.g. on undo or external reload.
func (s *Session) Replace(doc domain.Document) error {
	_, err := s.Apply(func(domain.Document) (domain.Document, error) { return doc, nil })
	return err
}

// ResizeColumns drags the divider after column divider of rowID by deltaPx
// on a row rowWidthPx wide. It reports whether the result was clamped.
func (s *Session) ResizeColumns(rowID string, divider int, deltaPx, rowWidthPx float64) (domain.Document, bool, error) {
	var clamped bool
	doc, err := s.Apply(func(d domain.Document) (domain.Document, error) {
		out, c, err := s.mutator.ResizeColumns(d, rowID, divider, widths.PixelsToRatio(deltaPx, rowWidthPx))
		clamped = c
		return out, err
	})
	return doc, clamped, err
}
