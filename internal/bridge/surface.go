package bridge

import (
	"errors"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrDisconnected is returned by Play when no remote connection is bound
// to the surface.
var ErrDisconnected = errors.New("surface disconnected")

// command is an outbound control frame sent to the remote surface.
type command struct {
	Type     string  `json:"type"`
	URL      string  `json:"url,omitempty"`
	Position float64 `json:"position,omitempty"`
}

// RemoteSurface adapts a websocket connection to the playback.Surface
// interface. Surfaces outlive connections: a grid slot's surface is
// created at mount time and a connection binds to it later (and may drop
// and rebind). Control calls translate into outbound frames; the last
// reported position, duration and readiness are cached locally so reads
// never block on the wire.
type RemoteSurface struct {
	id string

	// writeMu serialises outbound frames; gorilla/websocket allows only
	// one concurrent writer. Kept separate from mu so a slow write never
	// blocks cached-state reads.
	writeMu sync.Mutex

	mu          sync.Mutex
	conn        *websocket.Conn
	position    float64
	duration    float64
	durationSet bool
	ready       bool
}

func NewRemoteSurface() *RemoteSurface {
	return &RemoteSurface{id: uuid.NewString()}
}

// ID returns the surface's identifier, used in logs.
func (s *RemoteSurface) ID() string { return s.id }

// attach binds a live connection. Any previously bound connection is
// simply replaced; the caller is responsible for closing it.
func (s *RemoteSurface) attach(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

// detach unbinds the given connection if it is still the bound one, and
// drops readiness so the engine stops treating the slot as playable.
func (s *RemoteSurface) detach(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.ready = false
	}
	s.mu.Unlock()
}

func (s *RemoteSurface) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *RemoteSurface) Duration() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration, s.durationSet
}

func (s *RemoteSurface) SetPosition(seconds float64) {
	s.mu.Lock()
	s.position = seconds
	s.mu.Unlock()
	s.send(command{Type: "seek", Position: seconds})
}

func (s *RemoteSurface) Play() error {
	return s.send(command{Type: "play"})
}

func (s *RemoteSurface) Pause() {
	s.send(command{Type: "pause"})
}

// Load points the remote element at a new address. The cached duration,
// position and readiness reset; fresh values arrive with the new media's
// notifications.
func (s *RemoteSurface) Load(url string) {
	s.mu.Lock()
	s.position = 0
	s.duration = 0
	s.durationSet = false
	s.ready = false
	s.mu.Unlock()
	s.send(command{Type: "load", URL: url})
}

func (s *RemoteSurface) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// setPosition records a position reported by the remote, without echoing
// a seek back.
func (s *RemoteSurface) setPosition(seconds float64) {
	s.mu.Lock()
	s.position = seconds
	s.mu.Unlock()
}

func (s *RemoteSurface) setDuration(seconds float64) {
	s.mu.Lock()
	s.duration = seconds
	s.durationSet = true
	s.mu.Unlock()
}

func (s *RemoteSurface) setReady() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}

func (s *RemoteSurface) send(cmd command) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrDisconnected
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}
