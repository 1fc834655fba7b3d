package bridge

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"investigation-sync/internal/page"
	"investigation-sync/internal/playback"
	"investigation-sync/internal/session"
)

// notification is an inbound frame reported by a remote surface.
type notification struct {
	Type           string  `json:"type"`
	Position       float64 `json:"position"`
	Duration       float64 `json:"duration"`
	Top            float64 `json:"top"`
	Bottom         float64 `json:"bottom"`
	ViewportHeight float64 `json:"viewportHeight"`
}

type slotKey struct {
	eventID string
	slot    int
}

// Hub owns the websocket side of the engine. Each grid slot gets one
// long-lived RemoteSurface, created through Factory at mount time;
// connections bind to those surfaces as clients arrive and their
// notifications are dispatched into the slot's synchronizer and
// controller. Focused (expanded view) connections are ephemeral and drive
// the mount's ExpandedView instead.
type Hub struct {
	mu        sync.Mutex
	surfaces  map[slotKey]*RemoteSurface
	connected int

	page     *page.Page
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		surfaces: make(map[slotKey]*RemoteSurface),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Factory returns the surface factory to mount the page with. Surfaces are
// registered here so later connections can find them.
func (h *Hub) Factory() page.SurfaceFactory {
	return func(eventID string, slot int) playback.Surface {
		s := NewRemoteSurface()
		h.mu.Lock()
		h.surfaces[slotKey{eventID, slot}] = s
		h.mu.Unlock()
		return s
	}
}

// SetPage binds the mounted page. Must be called before serving; the
// factory runs during page construction, so the hub cannot hold the page
// at construction time.
func (h *Hub) SetPage(p *page.Page) {
	h.mu.Lock()
	h.page = p
	h.mu.Unlock()
}

// ConnectedCount reports how many grid surface connections are live.
func (h *Hub) ConnectedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *Hub) Routes(r chi.Router) {
	r.Get("/ws/events/{event_id}/surfaces/{slot}", h.serveSurface)
}

func (h *Hub) serveSurface(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil || slot < 0 {
		http.Error(w, "invalid slot", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	p := h.page
	h.mu.Unlock()
	if p == nil {
		http.Error(w, "page not mounted", http.StatusServiceUnavailable)
		return
	}

	mount, ok := p.Mount(eventID)
	if !ok {
		http.Error(w, "unknown event", http.StatusNotFound)
		return
	}

	focused := r.URL.Query().Get("focused") == "1"

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "error", err, "event_id", eventID)
		return
	}

	if focused {
		h.serveFocused(conn, mount, eventID, slot)
		return
	}
	h.serveGrid(conn, mount, eventID, slot)
}

// serveGrid binds the connection to the slot's long-lived surface and
// pumps its notifications into the synchronizer and controller until the
// connection drops.
func (h *Hub) serveGrid(conn *websocket.Conn, mount *page.Mount, eventID string, slot int) {
	h.mu.Lock()
	surface, ok := h.surfaces[slotKey{eventID, slot}]
	if ok {
		h.connected++
	}
	h.mu.Unlock()
	if !ok {
		h.log.Warn("connection for unmounted slot", "event_id", eventID, "slot", slot)
		conn.Close()
		return
	}

	surface.attach(conn)
	h.log.Info("surface connected", "event_id", eventID, "slot", slot, "surface_id", surface.ID())

	defer func() {
		surface.detach(conn)
		conn.Close()
		h.mu.Lock()
		h.connected--
		h.mu.Unlock()
		h.log.Info("surface disconnected", "event_id", eventID, "slot", slot, "surface_id", surface.ID())
	}()

	player := mount.Sync()
	ctrl := mount.Controller()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var n notification
		if err := json.Unmarshal(payload, &n); err != nil {
			h.log.Warn("bad surface frame", "error", err, "event_id", eventID, "slot", slot)
			continue
		}

		switch n.Type {
		case "loadstart":
			player.HandleLoadStart(slot)
		case "metadata":
			surface.setDuration(n.Duration)
			player.HandleMetadataReady(slot)
		case "dataready":
			surface.setReady()
			player.HandleDataReady(slot)
		case "tick":
			surface.setPosition(n.Position)
			player.HandlePositionTick(slot)
		case "ended":
			player.HandleEnded(slot)
		case "viewport":
			ctrl.HandleViewport(session.Rect{Top: n.Top, Bottom: n.Bottom}, n.ViewportHeight)
		default:
			h.log.Warn("unknown surface frame", "type", n.Type, "event_id", eventID, "slot", slot)
		}
	}
}

// serveFocused creates an ephemeral surface for the expanded view, opens
// it against the mount, and closes the view when the client cancels or
// the connection drops.
func (h *Hub) serveFocused(conn *websocket.Conn, mount *page.Mount, eventID string, slot int) {
	surface := NewRemoteSurface()
	surface.attach(conn)

	view := mount.Expanded()
	view.Open(slot, surface)
	h.log.Info("expanded view opened", "event_id", eventID, "slot", slot, "surface_id", surface.ID())

	defer func() {
		view.Close()
		surface.detach(conn)
		conn.Close()
		h.log.Info("expanded view closed", "event_id", eventID, "slot", slot)
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var n notification
		if err := json.Unmarshal(payload, &n); err != nil {
			h.log.Warn("bad focused frame", "error", err, "event_id", eventID, "slot", slot)
			continue
		}

		switch n.Type {
		case "metadata":
			surface.setDuration(n.Duration)
		case "dataready":
			surface.setReady()
		case "tick":
			surface.setPosition(n.Position)
			view.HandlePositionTick()
		case "pause":
			view.HandlePause()
		case "play":
			view.HandlePlay()
		case "cancel":
			return
		default:
			h.log.Warn("unknown focused frame", "type", n.Type, "event_id", eventID, "slot", slot)
		}
	}
}
