// Package autoscroll scrolls the editor viewport while a drag hovers near its
// top or bottom edge.
//
// The Controller runs its own ticker, independent of pointer-move cadence.
// It never touches the block tree; its only side effect is Port.ScrollBy.
package autoscroll

import (
	"math"
	"sync"
	"time"
)

// Config holds the scroll band and speed.
type Config struct {
	// EdgeZonePx is the band at the top and bottom that triggers scrolling.
	EdgeZonePx float64
	// MaxStepPx is the per-tick delta when the pointer is at (or past) the edge.
	MaxStepPx float64
	// Interval is the tick period.
	Interval time.Duration
}

// DefaultConfig ticks at ~60Hz.
func DefaultConfig() Config {
	return Config{EdgeZonePx: 48, MaxStepPx: 24, Interval: 16 * time.Millisecond}
}

// Viewport is the vertical extent of the scroll container on screen.
type Viewport struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// Port receives scroll requests.
type Port interface {
	ScrollBy(delta float64)
}

// PortFunc adapts a function to Port.
type PortFunc func(delta float64)

func (f PortFunc) ScrollBy(delta float64) { f(delta) }

// Tick returns the scroll delta for one tick: negative near the top edge,
// positive near the bottom, zero elsewhere. Speed grows linearly with how
// deep the pointer sits in the band and is at least one pixel.
func Tick(pointerY float64, vp Viewport, cfg Config) float64 {
	if vp.Height <= 0 || cfg.EdgeZonePx <= 0 {
		return 0
	}
	zone := cfg.EdgeZonePx
	if half := vp.Height / 2; half < zone {
		zone = half
	}
	fromTop := pointerY - vp.Top
	fromBottom := vp.Top + vp.Height - pointerY
	switch {
	case fromTop < zone:
		return -step(zone-fromTop, zone, cfg.MaxStepPx)
	case fromBottom < zone:
		return step(zone-fromBottom, zone, cfg.MaxStepPx)
	default:
		return 0
	}
}

func step(depth, zone, maxStep float64) float64 {
	ratio := depth / zone
	if ratio > 1 {
		ratio = 1
	}
	return math.Max(1, math.Ceil(maxStep*ratio))
}

// Controller drives Port from a ticker while started.
type Controller struct {
	cfg  Config
	port Port

	mu       sync.Mutex
	pointerY float64
	viewport Viewport
	stop     chan struct{}
	done     chan struct{}
}

// NewController creates a stopped Controller.
func NewController(cfg Config, port Port) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Controller{cfg: cfg, port: port}
}

// Update records the latest pointer position.
func (c *Controller) Update(pointerY float64) {
	c.mu.Lock()
	c.pointerY = pointerY
	c.mu.Unlock()
}

// SetViewport records the scroll container extent.
func (c *Controller) SetViewport(vp Viewport) {
	c.mu.Lock()
	c.viewport = vp
	c.mu.Unlock()
}

// Running reports whether the ticker is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// Start launches the ticker. Calling Start while running does nothing.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.loop(c.stop, c.done)
}

// Stop halts the ticker and waits for it to exit, so no ScrollBy call
// happens after Stop returns. Calling Stop while stopped does nothing.
func (c *Controller) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (c *Controller) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			y, vp := c.pointerY, c.viewport
			c.mu.Unlock()
			if d := Tick(y, vp, c.cfg); d != 0 && c.port != nil {
				c.port.ScrollBy(d)
			}
		case <-stop:
			return
		}
	}
}
