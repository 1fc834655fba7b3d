package bridge

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"investigation-sync/internal/investigation"
	"investigation-sync/internal/page"
	"investigation-sync/internal/playback"
	"investigation-sync/internal/session"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	data := &investigation.Data{
		Title:     "t",
		StartTime: "4:00:00",
		EndTime:   "24:00:00",
		Events: []investigation.Event{{
			ID:        "arrival",
			StartTime: "8:00:00",
			EndTime:   "11:45:53",
			Title:     "Police arrive",
			Clips:     []investigation.Clip{{URL: investigation.SingleSource("/a1.mp4")}},
		}},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(log)
	p := page.New(data, session.NewState(0), playback.Tuning{}, hub.Factory(), log, nil)
	t.Cleanup(p.Close)
	hub.SetPage(p)

	r := chi.NewRouter()
	hub.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dialWS(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	payload, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readCommand(t *testing.T, conn *websocket.Conn) command {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read command: %v", err)
	}
	var cmd command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		t.Fatalf("decode command %s: %v", payload, err)
	}
	return cmd
}

// A grid surface connects, reports its viewport, and receives the load and
// (after data-ready) play commands the engine issues in response.
func TestHub_gridSurfaceLifecycle(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dialWS(t, srv, "/ws/events/arrival/surfaces/0")

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectedCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Fully visible container: the engine loads and wants to play.
	sendFrame(t, conn, map[string]any{
		"type": "viewport", "top": 100.0, "bottom": 500.0, "viewportHeight": 800.0,
	})

	if cmd := readCommand(t, conn); cmd.Type != "load" || cmd.URL != "/a1.mp4" {
		t.Fatalf("first command = %+v, want load /a1.mp4", cmd)
	}

	// Play was deferred behind readiness; reporting data-ready releases it.
	sendFrame(t, conn, map[string]any{"type": "metadata", "duration": 120.0})
	sendFrame(t, conn, map[string]any{"type": "dataready"})

	if cmd := readCommand(t, conn); cmd.Type != "play" {
		t.Fatalf("command after data-ready = %+v, want play", cmd)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ConnectedCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("disconnect never deregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_rejectsUnknownEvent(t *testing.T) {
	_, srv := newTestHub(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events/nope/surfaces/0"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial for an unknown event should fail")
	}
	if resp == nil || resp.StatusCode != 404 {
		t.Errorf("handshake response = %+v, want 404", resp)
	}
}

func TestHub_rejectsBadSlot(t *testing.T) {
	_, srv := newTestHub(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events/arrival/surfaces/x"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial with a non-numeric slot should fail")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Errorf("handshake response = %+v, want 400", resp)
	}
}

// A focused connection opens the expanded view and closes it when the
// client cancels.
func TestHub_focusedConnectionDrivesExpandedView(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dialWS(t, srv, "/ws/events/arrival/surfaces/0?focused=1")

	// Opening loads the slot's current address into the focused surface.
	if cmd := readCommand(t, conn); cmd.Type != "load" || cmd.URL != "/a1.mp4" {
		t.Fatalf("first command = %+v, want load /a1.mp4", cmd)
	}

	hub.mu.Lock()
	p := hub.page
	hub.mu.Unlock()
	mount, _ := p.Mount("arrival")

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := mount.Expanded().Opened(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expanded view never opened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Pausing the focused surface disables page-wide autoplay.
	sendFrame(t, conn, map[string]any{"type": "pause"})
	deadline = time.Now().Add(2 * time.Second)
	for !p.Session().AutoplayDisabled() {
		if time.Now().After(deadline) {
			t.Fatal("focused pause never disabled autoplay")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sendFrame(t, conn, map[string]any{"type": "cancel"})
	deadline = time.Now().Add(2 * time.Second)
	for {
		if _, ok := mount.Expanded().Opened(); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cancel never closed the expanded view")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
