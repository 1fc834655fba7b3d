package playback

import "sync"

// AutoplaySwitch is the slice of page-level session state the focused view
// needs: flipping the global autoplay-disabled flag when the user pauses or
// resumes the focused surface.
type AutoplaySwitch interface {
	SetAutoplayDisabled(disabled bool)
}

// ExpandedView mirrors playback between one grid slot and a focused
// (modal) surface. The focused surface's initial position is copied from
// the grid once on open; from then on the focused surface is the source of
// truth and every position tick it reports is written back to the grid
// slot, so the grid resumes where the user left off when the view closes.
// The write-back is strictly one-directional to avoid fighting the grid's
// resync loop.
type ExpandedView struct {
	mu       sync.Mutex
	sync     *Synchronizer
	autoplay AutoplaySwitch

	focused  Surface
	slot     int
	attached bool
}

// NewExpandedView returns a view bound to one event's synchronizer.
func NewExpandedView(s *Synchronizer, autoplay AutoplaySwitch) *ExpandedView {
	return &ExpandedView{sync: s, autoplay: autoplay, slot: -1}
}

// Open focuses the given slot on the focused surface. The surface is
// pointed at the slot's current segment, seeded with the grid position,
// and registered as the slot's mirror so seeks and segment advances reach
// it. Opening does not itself pause or resume playback.
func (v *ExpandedView) Open(slotIndex int, focused Surface) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if focused == nil {
		return
	}
	grid := v.sync.GridSurface(slotIndex)
	if grid == nil {
		return
	}

	focused.Load(v.sync.MirrorURL(slotIndex))
	if pos := grid.Position(); pos > 0 {
		focused.SetPosition(pos)
	}

	v.focused = focused
	v.slot = slotIndex
	v.attached = true
	v.sync.AttachMirror(slotIndex, focused)
}

// Opened reports whether a focused view is currently attached, and for
// which slot.
func (v *ExpandedView) Opened() (slot int, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.slot, v.attached
}

// HandlePositionTick writes the focused surface's position back to the
// grid surface. Ticks arriving after Close are ignored; the listener must
// not leak updates to a grid surface the modal no longer owns.
func (v *ExpandedView) HandlePositionTick() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.attached || v.focused == nil {
		return
	}
	grid := v.sync.GridSurface(v.slot)
	if grid == nil {
		return
	}
	grid.SetPosition(v.focused.Position())
}

// HandlePause reacts to the user pausing the focused surface: the global
// autoplay flag is disabled so the rest of the page stays paused with it.
func (v *ExpandedView) HandlePause() {
	v.mu.Lock()
	attached := v.attached
	v.mu.Unlock()
	if attached && v.autoplay != nil {
		v.autoplay.SetAutoplayDisabled(true)
	}
}

// HandlePlay reacts to the user resuming the focused surface by clearing
// the global autoplay flag.
func (v *ExpandedView) HandlePlay() {
	v.mu.Lock()
	attached := v.attached
	v.mu.Unlock()
	if attached && v.autoplay != nil {
		v.autoplay.SetAutoplayDisabled(false)
	}
}

// Progress returns the focused slot's aggregate progress percent.
func (v *ExpandedView) Progress() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.attached {
		return 0
	}
	return v.sync.OverallProgress(v.slot)
}

// CurrentTime returns the focused slot's elapsed seconds on its logical
// timeline.
func (v *ExpandedView) CurrentTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.attached {
		return 0
	}
	return v.sync.CurrentTime(v.slot)
}

// TotalDuration returns the focused slot's full logical duration.
func (v *ExpandedView) TotalDuration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.attached {
		return 0
	}
	return v.sync.TotalDuration(v.slot)
}

// Close detaches the focused view: the mirror registration and the
// write-back listener are both released. Triggered by the explicit close
// action or the cancellation key; idempotent either way.
func (v *ExpandedView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.attached {
		return
	}
	v.attached = false
	v.focused = nil
	v.slot = -1
	v.sync.DetachMirror()
}
