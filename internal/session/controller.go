package session

import (
	"sync"

	"investigation-sync/internal/playback"
)

const (
	// DefaultLoadMargin is the near-viewport margin, in logical pixels,
	// that triggers one-time media loading.
	DefaultLoadMargin = 300.0

	// DefaultVisibleThreshold is the fraction of the container that must be
	// visible before playback is started.
	DefaultVisibleThreshold = 0.3
)

// Rect is a container's bounding box in viewport coordinates: Top is the
// distance from the viewport top to the container top (negative once
// scrolled past), Bottom likewise for the container bottom.
type Rect struct {
	Top    float64
	Bottom float64
}

// VisibleFraction returns how much of the rect is inside a viewport of the
// given height, as a fraction of the rect's own height.
func (r Rect) VisibleFraction(viewportHeight float64) float64 {
	height := r.Bottom - r.Top
	if height <= 0 || viewportHeight <= 0 {
		return 0
	}
	top := r.Top
	if top < 0 {
		top = 0
	}
	bottom := r.Bottom
	if bottom > viewportHeight {
		bottom = viewportHeight
	}
	overlap := bottom - top
	if overlap <= 0 {
		return 0
	}
	return overlap / height
}

// NearViewport reports whether the rect is within margin pixels of the
// viewport.
func (r Rect) NearViewport(viewportHeight, margin float64) bool {
	return r.Top <= viewportHeight+margin && r.Bottom >= -margin
}

// Controller decides, per event, when to start loading media and when to
// auto-play or pause, from viewport geometry notifications and the shared
// session state. One instance owns one event's container.
type Controller struct {
	mu     sync.Mutex
	player *playback.Synchronizer
	state  *State
	sub    *Subscription

	loadMargin       float64
	visibleThreshold float64

	visible      bool
	lastRect     Rect
	lastViewport float64
	seen         bool

	onVisibility func(visible bool)
}

// NewController wires a controller to one event's synchronizer and the
// shared session state. onVisibility (optional) reports substantial
// visibility transitions to the page coordinator.
func NewController(player *playback.Synchronizer, state *State, onVisibility func(visible bool)) *Controller {
	c := &Controller{
		player:           player,
		state:            state,
		loadMargin:       DefaultLoadMargin,
		visibleThreshold: DefaultVisibleThreshold,
		onVisibility:     onVisibility,
	}
	c.sub = state.Subscribe()
	c.sub.SetPauseAllFunc(c.handlePauseAll)
	c.sub.SetAutoplayFunc(c.handleAutoplayChanged)
	return c
}

// SetThresholds overrides the load margin and visibility threshold.
// Non-positive values keep the defaults.
func (c *Controller) SetThresholds(loadMargin, visibleThreshold float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loadMargin > 0 {
		c.loadMargin = loadMargin
	}
	if visibleThreshold > 0 {
		c.visibleThreshold = visibleThreshold
	}
}

// Visible returns the last substantial-visibility decision.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// HandleViewport consumes one viewport geometry notification. The two
// checks are independent: the generous near-viewport check triggers
// one-time media loading (never reverted), the stricter visible-fraction
// check drives play/pause transitions.
func (c *Controller) HandleViewport(rect Rect, viewportHeight float64) {
	c.mu.Lock()
	c.lastRect = rect
	c.lastViewport = viewportHeight
	c.seen = true

	near := rect.NearViewport(viewportHeight, c.loadMargin)
	visible := rect.VisibleFraction(viewportHeight) >= c.visibleThreshold
	changed := visible != c.visible
	c.visible = visible
	report := c.onVisibility
	c.mu.Unlock()

	if near {
		c.player.LoadAll()
	}
	if !changed {
		return
	}

	if report != nil {
		report(visible)
	}

	if !visible {
		// Pause is always safe and idempotent.
		c.player.PauseAll()
		return
	}

	if c.state.AutoplayDisabled() || c.state.InCooldown() {
		return
	}
	c.player.PlayAll()
}

// handleAutoplayChanged re-evaluates current viewport membership when the
// flag flips back to enabled, starting playback immediately for a
// qualifying event instead of waiting for the next scroll notification.
func (c *Controller) handleAutoplayChanged(disabled bool) {
	c.mu.Lock()
	qualifies := !disabled && c.seen &&
		c.lastRect.VisibleFraction(c.lastViewport) >= c.visibleThreshold
	c.mu.Unlock()

	if qualifies {
		c.player.PlayAll()
	}
}

// handlePauseAll consumes the global pause-all pulse. The cooldown stamp
// lives in State; the controller only has to stop its surfaces.
func (c *Controller) handlePauseAll() {
	c.player.PauseAll()
}

// Close detaches the controller from the session state so no pulse or flag
// change fires against a torn-down event.
func (c *Controller) Close() {
	c.sub.Cancel()
}
