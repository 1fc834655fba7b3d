package playback

// Surface is the host-provided playable media element backing one clip
// slot. Implementations are opaque, independently-buffering resources; the
// engine never assumes any of these calls take effect synchronously.
// Readiness, position and end-of-media changes arrive separately as
// notifications (see the Handle* methods on Synchronizer).
type Surface interface {
	// Position returns the current playback position in seconds.
	Position() float64

	// Duration returns the total duration in seconds. ok is false until
	// the surface's metadata has loaded.
	Duration() (seconds float64, ok bool)

	// SetPosition seeks the surface to the given position in seconds.
	SetPosition(seconds float64)

	// Play requests playback. The host may refuse (blocked autoplay);
	// the engine swallows such failures.
	Play() error

	// Pause halts playback. Always safe and idempotent.
	Pause()

	// Load points the surface at a new media address and begins loading.
	Load(url string)

	// Ready reports whether enough data has buffered to start playback.
	Ready() bool
}

// State is the per-event playback state machine. It is owned by the
// event's Synchronizer, not by individual surfaces.
type State int

const (
	// Idle: the event's container has never come near the viewport.
	Idle State = iota
	// Loading: media loading has been triggered but playback has not started,
	// or a segment advance is waiting on a fresh source.
	Loading
	// Playing: at least one surface is playing.
	Playing
	// Paused: playback was halted by visibility loss or an explicit stop.
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "unknown"
}
