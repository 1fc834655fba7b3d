// Package page assembles one investigation page: a synchronizer, a
// visibility controller and an expanded-view mirror per event, all sharing
// one session state and reporting into one global timeline cursor.
package page

import (
	"log/slog"
	"sync"

	"investigation-sync/internal/cursor"
	"investigation-sync/internal/investigation"
	"investigation-sync/internal/platform/metrics"
	"investigation-sync/internal/playback"
	"investigation-sync/internal/session"
)

// SurfaceFactory provides the host surface backing one clip slot of one
// event. The bridge supplies remote surfaces; tests supply fakes.
type SurfaceFactory func(eventID string, slot int) playback.Surface

// Mount is one event's mounted playback stack.
type Mount struct {
	event    *investigation.Event
	sync     *playback.Synchronizer
	ctrl     *session.Controller
	expanded *playback.ExpandedView
}

// Sync returns the event's playback synchronizer.
func (m *Mount) Sync() *playback.Synchronizer { return m.sync }

// Controller returns the event's visibility controller.
func (m *Mount) Controller() *session.Controller { return m.ctrl }

// Expanded returns the event's focused-view synchronizer.
func (m *Mount) Expanded() *playback.ExpandedView { return m.expanded }

// Event returns the event's static definition.
func (m *Mount) Event() *investigation.Event { return m.event }

// Page owns the full set of mounted events for one investigation session.
type Page struct {
	mu      sync.Mutex
	data    *investigation.Data
	session *session.State
	cursor  *cursor.Cursor
	mounts  map[string]*Mount
	log     *slog.Logger
	met     *metrics.Metrics
	closed  bool
}

// New mounts every event of the investigation: surfaces come from the
// factory, progress and visibility flow into the cursor, and each event's
// resync ticker is started. met may be nil.
func New(data *investigation.Data, st *session.State, tuning playback.Tuning, factory SurfaceFactory, log *slog.Logger, met *metrics.Metrics) *Page {
	p := &Page{
		data:    data,
		session: st,
		cursor:  cursor.New(data),
		mounts:  make(map[string]*Mount, len(data.Events)),
		log:     log,
		met:     met,
	}

	for i := range data.Events {
		ev := &data.Events[i]
		surfaces := make([]playback.Surface, len(ev.Clips))
		for slot := range ev.Clips {
			surfaces[slot] = factory(ev.ID, slot)
		}

		sync := playback.NewSynchronizer(ev.ID, ev.Clips, surfaces, tuning, log, met)
		id := ev.ID
		sync.SetProgressFunc(func(percent float64) {
			p.cursor.HandleProgress(id, percent)
		})

		ctrl := session.NewController(sync, st, func(visible bool) {
			p.cursor.HandleVisibility(id, visible)
		})

		p.mounts[ev.ID] = &Mount{
			event:    ev,
			sync:     sync,
			ctrl:     ctrl,
			expanded: playback.NewExpandedView(sync, st),
		}
		sync.StartResync()
	}

	if met != nil {
		met.SetMountedEvents(len(p.mounts))
	}
	return p
}

// Data returns the immutable investigation definition.
func (p *Page) Data() *investigation.Data { return p.data }

// Cursor returns the global timeline cursor.
func (p *Page) Cursor() *cursor.Cursor { return p.cursor }

// Session returns the shared session state.
func (p *Page) Session() *session.State { return p.session }

// Mount returns the mounted stack for an event id.
func (p *Page) Mount(eventID string) (*Mount, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.mounts[eventID]
	return m, ok
}

// MountedCount returns the number of mounted events. Used for metrics.
func (p *Page) MountedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.mounts)
}

// Click resolves a master-bar click at the given width fraction to its
// target event, applies the seek to that event's slot 0, and consumes the
// pending target. It returns the applied target, if any.
func (p *Page) Click(fraction float64) (cursor.SeekTarget, bool) {
	target, ok := p.cursor.ResolveClick(fraction)
	if !ok {
		return cursor.SeekTarget{}, false
	}

	m, mounted := p.Mount(target.EventID)
	if !mounted {
		// Target addressed an unmounted event; drop it rather than leave a
		// stale pending seek behind.
		p.cursor.Complete()
		return cursor.SeekTarget{}, false
	}

	if percent, pending := p.cursor.PendingFor(target.EventID); pending {
		m.sync.SeekAll(0, percent)
		p.cursor.Complete()
	}
	return target, true
}

// ToggleAutoplay flips the page-wide autoplay flag, pausing everything
// when it lands on disabled. Returns the new flag value.
func (p *Page) ToggleAutoplay() bool {
	return p.session.ToggleAutoplay()
}

// PauseAll emits the global stop pulse.
func (p *Page) PauseAll() {
	p.session.PauseAll()
}

// Close tears down every mounted event: controllers detach from the
// session state, focused views close, and each synchronizer releases its
// resync ticker and pending hooks. Idempotent.
func (p *Page) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	mounts := make([]*Mount, 0, len(p.mounts))
	for _, m := range p.mounts {
		mounts = append(mounts, m)
	}
	p.mu.Unlock()

	for _, m := range mounts {
		m.ctrl.Close()
		m.expanded.Close()
		m.sync.Close()
	}
	if p.met != nil {
		p.met.SetMountedEvents(0)
	}
}
