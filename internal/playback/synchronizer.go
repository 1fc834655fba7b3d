// Package playback makes the N parallel camera surfaces of one timeline
// event behave as a single logical player: lock-step play/pause/seek,
// unified multi-segment advance, periodic drift correction, and aggregate
// progress reporting.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"investigation-sync/internal/investigation"
	"investigation-sync/internal/platform/metrics"
)

const (
	// DefaultResyncInterval is the reference cadence for drift correction.
	DefaultResyncInterval = time.Second

	// DefaultDriftTolerance is the position divergence, in seconds, beyond
	// which a surface is snapped back to the reference surface.
	DefaultDriftTolerance = 0.3

	// DefaultSettleDelay is the fallback wait after a segment switch before
	// a deferred seek offset is applied to a surface that has not yet
	// reported data-ready.
	DefaultSettleDelay = 100 * time.Millisecond
)

// Tuning carries the engine timing knobs. Zero values select the defaults.
type Tuning struct {
	ResyncInterval time.Duration
	DriftTolerance float64
	SettleDelay    time.Duration
}

func (t Tuning) withDefaults() Tuning {
	if t.ResyncInterval <= 0 {
		t.ResyncInterval = DefaultResyncInterval
	}
	if t.DriftTolerance <= 0 {
		t.DriftTolerance = DefaultDriftTolerance
	}
	if t.SettleDelay <= 0 {
		t.SettleDelay = DefaultSettleDelay
	}
	return t
}

// slot is the owned per-clip-slot record: surface, segment cursor, measured
// durations and transient one-shot hooks. Keeping these in one record (not
// parallel arrays) means they cannot drift out of length-sync.
type slot struct {
	surface   Surface
	clip      investigation.Clip
	segment   int
	durations *DurationTracker
	loading   bool

	playWhenReady bool
	pendingSeek   *float64
	settleTimer   *time.Timer
}

// Synchronizer owns one event's parallel surfaces. All coordination state
// is guarded by one mutex; host notifications are delivered as method
// calls. Nothing here blocks: readiness waits are one-shot hooks fired by
// HandleDataReady, and the only timer is the lifetime-scoped resync ticker.
type Synchronizer struct {
	mu      sync.Mutex
	eventID string
	slots   []*slot
	state   State
	loaded  bool

	tuning Tuning
	log    *slog.Logger
	met    *metrics.Metrics

	// mirror is the optional focused-view surface for mirrorSlot; seeks and
	// segment advances are applied to it alongside the grid surfaces.
	mirror     Surface
	mirrorSlot int

	onProgress func(percent float64)

	resyncDone chan struct{}
	closed     bool
}

// NewSynchronizer builds a synchronizer for one event. surfaces must be the
// same length as clips, one per slot. met may be nil to disable metric
// recording (e.g. in tests).
func NewSynchronizer(eventID string, clips []investigation.Clip, surfaces []Surface, tuning Tuning, log *slog.Logger, met *metrics.Metrics) *Synchronizer {
	s := &Synchronizer{
		eventID:    eventID,
		tuning:     tuning.withDefaults(),
		log:        log,
		met:        met,
		mirrorSlot: -1,
	}
	for i := range clips {
		s.slots = append(s.slots, &slot{
			surface:   surfaces[i],
			clip:      clips[i],
			durations: NewDurationTracker(),
		})
	}
	return s
}

// SetProgressFunc registers the aggregate-progress callback. It fires on
// every slot-0 position tick; all slots are synchronized, so slot 0 is a
// sufficient proxy for the event.
func (s *Synchronizer) SetProgressFunc(fn func(percent float64)) {
	s.mu.Lock()
	s.onProgress = fn
	s.mu.Unlock()
}

// State returns the event-level playback state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loaded reports whether media loading has been triggered. Once true it
// never reverts.
func (s *Synchronizer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Segment returns the current segment index for a slot (always 0 for
// single-recording clips).
func (s *Synchronizer) Segment(slotIndex int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slotIndex < 0 || slotIndex >= len(s.slots) {
		return 0
	}
	return s.slots[slotIndex].segment
}

// LoadAll triggers media loading on every surface. Idempotent: the first
// call moves Idle to Loading and points each surface at its current
// segment; later calls are no-ops.
func (s *Synchronizer) LoadAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded || s.closed {
		return
	}
	s.loaded = true
	if s.state == Idle {
		s.state = Loading
	}
	for _, sl := range s.slots {
		sl.loading = true
		sl.surface.Load(sl.clip.URL.URL(sl.segment))
	}
}

// PlayAll attempts to start every surface. Surfaces that are not yet ready
// get a one-shot play-when-ready hook instead of polling. Per-surface
// start failures (blocked autoplay) are swallowed: logged at debug, counted,
// never propagated.
func (s *Synchronizer) PlayAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playAllLocked()
}

func (s *Synchronizer) playAllLocked() {
	if s.closed {
		return
	}
	started := false
	for _, sl := range s.slots {
		if sl.surface.Ready() {
			if s.playSurfaceLocked(sl.surface) {
				started = true
			}
		} else {
			sl.playWhenReady = true
		}
	}
	if started {
		s.state = Playing
	}
}

func (s *Synchronizer) playSurfaceLocked(surface Surface) bool {
	if err := surface.Play(); err != nil {
		if s.log != nil {
			s.log.Debug("surface play rejected",
				slog.String("event_id", s.eventID),
				slog.String("error", err.Error()))
		}
		if s.met != nil {
			s.met.IncAutoplayBlocked()
		}
		return false
	}
	return true
}

// PauseAll pauses every surface and cancels pending play-when-ready hooks,
// so a late data-ready notification cannot restart playback invisibly.
func (s *Synchronizer) PauseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		sl.playWhenReady = false
		sl.surface.Pause()
	}
	if s.mirror != nil {
		s.mirror.Pause()
	}
	if s.state == Playing || s.state == Loading {
		s.state = Paused
	}
}

// OverallProgress returns the slot's aggregate progress as a 0-100 percent
// of the clip's full logical timeline. For multi-segment clips with no
// measured durations yet, it falls back to the surface's own
// position/duration ratio, an approximation that self-corrects once the
// first metadata notification lands.
func (s *Synchronizer) OverallProgress(slotIndex int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked(slotIndex)
}

func (s *Synchronizer) progressLocked(slotIndex int) float64 {
	if slotIndex < 0 || slotIndex >= len(s.slots) {
		return 0
	}
	sl := s.slots[slotIndex]
	surface := s.surfaceForLocked(slotIndex)

	dur, ok := surface.Duration()
	if !ok || dur <= 0 {
		return 0
	}

	if !sl.clip.URL.Segmented() {
		return surface.Position() / dur * 100
	}

	total := sl.durations.Total()
	if total <= 0 {
		return surface.Position() / dur * 100
	}
	elapsed := sl.durations.CumulativeBefore(sl.segment) + surface.Position()
	return elapsed / total * 100
}

// surfaceForLocked returns the focused surface when the slot is mirrored,
// otherwise the grid surface, matching how the original reads position
// while a focused view is open.
func (s *Synchronizer) surfaceForLocked(slotIndex int) Surface {
	if s.mirror != nil && s.mirrorSlot == slotIndex {
		return s.mirror
	}
	return s.slots[slotIndex].surface
}

// CurrentTime returns the slot's elapsed seconds on the clip's logical
// timeline (completed segments plus intra-segment position).
func (s *Synchronizer) CurrentTime(slotIndex int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slotIndex < 0 || slotIndex >= len(s.slots) {
		return 0
	}
	sl := s.slots[slotIndex]
	surface := s.surfaceForLocked(slotIndex)
	if !sl.clip.URL.Segmented() {
		return surface.Position()
	}
	return sl.durations.CumulativeBefore(sl.segment) + surface.Position()
}

// TotalDuration returns the slot's full logical duration: the surface
// duration for single clips, the sum of known segment durations otherwise.
func (s *Synchronizer) TotalDuration(slotIndex int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slotIndex < 0 || slotIndex >= len(s.slots) {
		return 0
	}
	sl := s.slots[slotIndex]
	if !sl.clip.URL.Segmented() {
		if dur, ok := s.surfaceForLocked(slotIndex).Duration(); ok {
			return dur
		}
		return 0
	}
	return sl.durations.Total()
}

// SeekAll moves every surface in the event to targetPercent of the slot's
// logical timeline. A required segment switch is applied to all surfaces
// before any position is set; the intra-segment offset is then deferred
// behind a data-ready hook with a fixed settling-delay fallback, so no
// surface is seeked against a source that has not finished swapping.
func (s *Synchronizer) SeekAll(slotIndex int, targetPercent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || slotIndex < 0 || slotIndex >= len(s.slots) {
		return
	}
	if targetPercent < 0 {
		targetPercent = 0
	} else if targetPercent > 100 {
		targetPercent = 100
	}
	sl := s.slots[slotIndex]

	if s.met != nil {
		s.met.IncSeeks()
	}

	if !sl.clip.URL.Segmented() {
		for i, other := range s.slots {
			if dur, ok := other.surface.Duration(); ok && dur > 0 {
				other.surface.SetPosition(targetPercent / 100 * dur)
			}
			if s.mirror != nil && s.mirrorSlot == i {
				mdur, _ := s.mirror.Duration()
				s.mirror.SetPosition(targetPercent / 100 * mdur)
			}
		}
		return
	}

	total := sl.durations.Total()
	if total <= 0 {
		// No segment measured yet; nothing to project the percentage onto.
		return
	}

	target := targetPercent / 100 * total
	segment, offset := sl.durations.Locate(target, sl.clip.URL.SegmentCount())

	if segment != sl.segment {
		s.switchSegmentLocked(segment, &offset)
		return
	}

	for i := range s.slots {
		s.slots[i].surface.SetPosition(offset)
		if s.mirror != nil && s.mirrorSlot == i {
			s.mirror.SetPosition(offset)
		}
	}
}

// switchSegmentLocked points every surface (and the mirror) at the given
// segment index and arms the deferred seek offset, if any. Surfaces whose
// own clip has fewer segments fall back to their first address.
func (s *Synchronizer) switchSegmentLocked(segment int, offset *float64) {
	for i, sl := range s.slots {
		sl.segment = segment
		sl.loading = true
		sl.surface.Load(sl.clip.URL.URL(segment))
		if offset != nil {
			off := *offset
			sl.pendingSeek = &off
			s.armSettleLocked(sl)
		}
		if s.mirror != nil && s.mirrorSlot == i {
			s.mirror.Load(sl.clip.URL.URL(segment))
			if offset != nil {
				s.mirror.SetPosition(*offset)
			}
		}
	}
	if s.state == Playing {
		s.state = Loading
	}
}

// armSettleLocked schedules the settling-delay fallback for a pending
// seek. Applying is idempotent with the data-ready path: whichever fires
// first clears the pending offset.
func (s *Synchronizer) armSettleLocked(sl *slot) {
	if sl.settleTimer != nil {
		sl.settleTimer.Stop()
	}
	sl.settleTimer = time.AfterFunc(s.tuning.SettleDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.closed {
			s.applyPendingSeekLocked(sl)
		}
	})
}

func (s *Synchronizer) applyPendingSeekLocked(sl *slot) {
	if sl.pendingSeek == nil {
		return
	}
	sl.surface.SetPosition(*sl.pendingSeek)
	sl.pendingSeek = nil
	if sl.settleTimer != nil {
		sl.settleTimer.Stop()
		sl.settleTimer = nil
	}
}

// Resync runs one drift-correction pass: any surface whose position
// differs from the reference (slot 0) surface by more than the drift
// tolerance is snapped to the reference position. It returns the number of
// surfaces corrected.
func (s *Synchronizer) Resync() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.slots) <= 1 {
		return 0
	}

	ref := s.slots[0].surface
	if _, ok := ref.Duration(); !ok {
		return 0
	}
	target := ref.Position()

	corrected := 0
	for _, sl := range s.slots[1:] {
		if _, ok := sl.surface.Duration(); !ok {
			continue
		}
		diff := sl.surface.Position() - target
		if diff < 0 {
			diff = -diff
		}
		if diff > s.tuning.DriftTolerance {
			sl.surface.SetPosition(target)
			corrected++
		}
	}
	if corrected > 0 && s.met != nil {
		s.met.AddResyncs(corrected)
	}
	return corrected
}

// StartResync launches the periodic drift-correction task at the tuned
// cadence. The ticker is scoped to the synchronizer's lifetime and released
// by Close.
func (s *Synchronizer) StartResync() {
	s.mu.Lock()
	if s.closed || s.resyncDone != nil {
		s.mu.Unlock()
		return
	}
	done := make(chan struct{})
	s.resyncDone = done
	interval := s.tuning.ResyncInterval
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.Resync()
			}
		}
	}()
}

// Close releases the resync ticker, cancels settle timers and drops all
// one-shot hooks so no deferred work fires against a torn-down event.
// Idempotent.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.resyncDone != nil {
		close(s.resyncDone)
		s.resyncDone = nil
	}
	for _, sl := range s.slots {
		sl.playWhenReady = false
		sl.pendingSeek = nil
		if sl.settleTimer != nil {
			sl.settleTimer.Stop()
			sl.settleTimer = nil
		}
	}
	s.onProgress = nil
}

// AttachMirror registers a focused-view surface for the given slot. While
// attached, seeks and segment advances are applied to it alongside the
// grid surfaces, and progress for that slot reads from it.
func (s *Synchronizer) AttachMirror(slotIndex int, m Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slotIndex < 0 || slotIndex >= len(s.slots) {
		return
	}
	s.mirror = m
	s.mirrorSlot = slotIndex
}

// DetachMirror removes the focused-view surface.
func (s *Synchronizer) DetachMirror() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = nil
	s.mirrorSlot = -1
}

// MirrorURL returns the media address the focused view should load for a
// slot: the slot's current segment.
func (s *Synchronizer) MirrorURL(slotIndex int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slotIndex < 0 || slotIndex >= len(s.slots) {
		return ""
	}
	sl := s.slots[slotIndex]
	return sl.clip.URL.URL(sl.segment)
}

// GridSurface exposes the grid surface for a slot (used by the focused
// view's write-back sync).
func (s *Synchronizer) GridSurface(slotIndex int) Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slotIndex < 0 || slotIndex >= len(s.slots) {
		return nil
	}
	return s.slots[slotIndex].surface
}

// HandleLoadStart records that a surface began loading a source.
func (s *Synchronizer) HandleLoadStart(slotIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slotIndex < 0 || slotIndex >= len(s.slots) {
		return
	}
	s.slots[slotIndex].loading = true
}

// HandleMetadataReady records the duration of the slot's current segment
// once the surface's metadata has loaded. Single-recording clips bypass the
// tracker; their duration is read straight off the surface.
func (s *Synchronizer) HandleMetadataReady(slotIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slotIndex < 0 || slotIndex >= len(s.slots) {
		return
	}
	sl := s.slots[slotIndex]
	if !sl.clip.URL.Segmented() {
		return
	}
	if dur, ok := sl.surface.Duration(); ok && dur > 0 {
		sl.durations.Record(sl.segment, dur)
	}
}

// HandleDataReady fires the slot's one-shot hooks: a deferred seek offset
// is applied, then a pending play-when-ready attempt runs.
func (s *Synchronizer) HandleDataReady(slotIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || slotIndex < 0 || slotIndex >= len(s.slots) {
		return
	}
	sl := s.slots[slotIndex]
	sl.loading = false

	s.applyPendingSeekLocked(sl)

	if sl.playWhenReady {
		sl.playWhenReady = false
		if s.playSurfaceLocked(sl.surface) {
			s.state = Playing
		}
	}
}

// HandlePositionTick recomputes the slot's aggregate progress. Ticks from
// slot 0 additionally drive the registered progress callback; the callback
// runs outside the lock so consumers may call back into the synchronizer.
func (s *Synchronizer) HandlePositionTick(slotIndex int) {
	s.mu.Lock()
	var report func(float64)
	progress := s.progressLocked(slotIndex)
	if slotIndex == 0 && s.onProgress != nil {
		report = s.onProgress
	}
	s.mu.Unlock()

	if report != nil {
		report(progress)
	}
}

// HandleEnded advances a multi-segment clip when a surface reports
// end-of-media. Every surface in the event switches to the next segment in
// unison, restarts from zero, and playback of the new segment is always
// attempted: this is a continuation of an already-playing sequence, not a
// fresh visibility-triggered start, so the global autoplay flag does not
// apply. Ending the final segment leaves the surfaces stopped.
func (s *Synchronizer) HandleEnded(slotIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || slotIndex < 0 || slotIndex >= len(s.slots) {
		return
	}
	sl := s.slots[slotIndex]
	if !sl.clip.URL.Segmented() {
		// Single recordings loop on the surface itself.
		return
	}
	next := sl.segment + 1
	if next >= sl.clip.URL.SegmentCount() {
		return
	}

	s.switchSegmentLocked(next, nil)
	if s.met != nil {
		s.met.IncSegmentAdvances()
	}

	started := false
	for _, other := range s.slots {
		other.surface.SetPosition(0)
		if s.playSurfaceLocked(other.surface) {
			started = true
		}
	}
	if s.mirror != nil {
		s.mirror.SetPosition(0)
		_ = s.mirror.Play()
	}
	if started {
		s.state = Playing
	}
}
