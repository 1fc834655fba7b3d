// Package cursor aggregates per-event playback progress into the page-wide
// "current time" display and overall completion percentage, and translates
// master-timeline clicks into per-event seek targets.
package cursor

import (
	"fmt"
	"sync"

	"investigation-sync/internal/investigation"
	"investigation-sync/internal/timecode"
)

// TimelineRevealOffset is the scroll offset, in logical pixels, past which
// the master timeline bar is shown.
const TimelineRevealOffset = 100.0

// SeekTarget is a transient request to move one event's playback to a
// percentage of its own span. At most one exists at a time; a new click
// overwrites an unconsumed target and each target is delivered at most
// once.
type SeekTarget struct {
	EventID string
	Percent float64
}

// Cursor tracks the active (most recently visible) event and its slot-0
// aggregate progress, projecting them onto the investigation's global time
// range.
type Cursor struct {
	mu       sync.Mutex
	data     *investigation.Data
	activeID string
	progress float64
	pending  *SeekTarget
}

// New returns a cursor over the investigation's events and global range.
func New(data *investigation.Data) *Cursor {
	return &Cursor{data: data}
}

// HandleVisibility records the active event when one becomes substantially
// visible. Losing visibility does not clear the active event; the display
// holds its last value until another event takes over.
func (c *Cursor) HandleVisibility(eventID string, visible bool) {
	if !visible {
		return
	}
	c.mu.Lock()
	c.activeID = eventID
	c.mu.Unlock()
}

// HandleProgress records a slot-0 aggregate progress update for an event.
// The reporting event becomes the active one.
func (c *Cursor) HandleProgress(eventID string, percent float64) {
	c.mu.Lock()
	c.activeID = eventID
	c.progress = percent
	c.mu.Unlock()
}

// Active returns the active event id and its progress percent.
func (c *Cursor) Active() (eventID string, percent float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID, c.progress
}

// CurrentDisplayTime projects the active event's progress onto the global
// timeline and formats the resulting wall-clock time for display. Before
// any event reports, the global start time is shown.
func (c *Cursor) CurrentDisplayTime() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.data.EventIndex(c.activeID)
	if idx < 0 {
		return timecode.FormatTo12Hour(c.data.StartTime, false)
	}

	ev := c.data.Events[idx]
	start := timecode.ParseToMinutes(ev.StartTime)
	end := timecode.ParseToMinutes(c.data.EffectiveEndTime(idx))
	duration := float64(timecode.Span(start, end))

	progressMinutes := c.progress / 100 * duration
	totalSeconds := float64(start)*60 + progressMinutes*60
	const daySeconds = 24 * 60 * 60
	for totalSeconds >= daySeconds {
		totalSeconds -= daySeconds
	}

	h := int(totalSeconds) / 3600
	m := (int(totalSeconds) % 3600) / 60
	s := int(totalSeconds) % 60
	return timecode.FormatTo12Hour(fmt.Sprintf("%d:%02d:%02d", h, m, s), false)
}

// OverallProgressPercent returns how far through the global time range the
// active event's playback has reached, 0-100.
func (c *Cursor) OverallProgressPercent() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.data.EventIndex(c.activeID)
	if idx < 0 {
		return 0
	}

	overallStart := timecode.ParseToMinutes(c.data.StartTime)
	overallEnd := timecode.ParseToMinutes(c.data.EndTime)
	total := float64(timecode.Span(overallStart, overallEnd))
	if total <= 0 {
		return 0
	}

	ev := c.data.Events[idx]
	start := timecode.ParseToMinutes(ev.StartTime)
	end := timecode.ParseToMinutes(c.data.EffectiveEndTime(idx))

	offset := float64(timecode.Span(overallStart, start))
	duration := float64(timecode.Span(start, end))
	elapsed := offset + c.progress/100*duration

	return elapsed / total * 100
}

// ResolveClick maps a click at the given fraction of the master bar's
// width to the event whose adjusted time interval contains the clicked
// minute (boundary-inclusive, first match wins) and the corresponding
// percentage within that event. The resolved target becomes the pending
// seek, replacing any unconsumed one. ok is false when no event's interval
// contains the clicked minute.
func (c *Cursor) ResolveClick(fraction float64) (SeekTarget, bool) {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	overallStart := float64(timecode.ParseToMinutes(c.data.StartTime))
	overallEnd := float64(timecode.ParseToMinutes(c.data.EndTime))
	total := overallEnd - overallStart
	if total < 0 {
		total += timecode.MinutesPerDay
	}

	target := overallStart + fraction*total
	targetAdjusted := target
	if target < overallStart {
		targetAdjusted += timecode.MinutesPerDay
	}

	for i := range c.data.Events {
		ev := c.data.Events[i]
		start := float64(timecode.ParseToMinutes(ev.StartTime))
		end := float64(timecode.ParseToMinutes(c.data.EffectiveEndTime(i)))

		// Intervals before the global start belong to the next day.
		if start < overallStart {
			start += timecode.MinutesPerDay
		}
		if end < overallStart {
			end += timecode.MinutesPerDay
		}

		if targetAdjusted < start || targetAdjusted > end {
			continue
		}

		percent := 0.0
		if duration := end - start; duration > 0 {
			percent = (targetAdjusted - start) / duration * 100
		}
		t := SeekTarget{EventID: ev.ID, Percent: percent}
		c.pending = &t
		return t, true
	}

	return SeekTarget{}, false
}

// PendingFor returns the unconsumed seek target for an event, if any. The
// target stays pending until Complete is called; consumers must treat it
// as single-use.
func (c *Cursor) PendingFor(eventID string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil || c.pending.EventID != eventID {
		return 0, false
	}
	return c.pending.Percent, true
}

// Complete clears the pending seek target after the targeted event has
// applied it. A target is never redelivered.
func (c *Cursor) Complete() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}

// TimelineVisible reports whether the master bar should be shown for the
// given page scroll offset.
func TimelineVisible(scrollY float64) bool {
	return scrollY > TimelineRevealOffset
}
