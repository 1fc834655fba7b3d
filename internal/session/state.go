// Package session holds the only state shared across independent event
// instances: the page-wide autoplay-disabled flag, the transient pause-all
// pulse, and the last-explicit-stop timestamp that suppresses immediate
// re-autoplay. It also hosts the per-event visibility controller that
// consumes this state.
package session

import (
	"sync"
	"time"
)

// DefaultStopCooldown suppresses autoplay for this long after an explicit
// stop anywhere on the page.
const DefaultStopCooldown = 3 * time.Second

// Subscription is a stable listener registration whose callbacks can be
// swapped without re-subscribing, so the underlying notification order
// never changes while a component replaces its handler.
type Subscription struct {
	mu              sync.Mutex
	onAutoplay      func(disabled bool)
	onPauseAll      func()
	state           *State
}

// SetAutoplayFunc swaps the autoplay-changed callback.
func (s *Subscription) SetAutoplayFunc(fn func(disabled bool)) {
	s.mu.Lock()
	s.onAutoplay = fn
	s.mu.Unlock()
}

// SetPauseAllFunc swaps the pause-all callback.
func (s *Subscription) SetPauseAllFunc(fn func()) {
	s.mu.Lock()
	s.onPauseAll = fn
	s.mu.Unlock()
}

// Cancel removes the subscription; no callback fires after Cancel returns.
func (s *Subscription) Cancel() {
	if s.state != nil {
		s.state.unsubscribe(s)
	}
	s.mu.Lock()
	s.onAutoplay = nil
	s.onPauseAll = nil
	s.mu.Unlock()
}

func (s *Subscription) notifyAutoplay(disabled bool) {
	s.mu.Lock()
	fn := s.onAutoplay
	s.mu.Unlock()
	if fn != nil {
		fn(disabled)
	}
}

func (s *Subscription) notifyPauseAll() {
	s.mu.Lock()
	fn := s.onPauseAll
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// State is the page-wide session state. All mutation happens synchronously
// in the caller's turn; listeners are notified in subscription order, which
// keeps cross-component ordering deterministic.
type State struct {
	mu               sync.Mutex
	autoplayDisabled bool
	lastStop         time.Time
	cooldown         time.Duration
	now              func() time.Time
	subs             []*Subscription
}

// NewState returns session state with the given stop cooldown; zero or
// negative selects DefaultStopCooldown.
func NewState(cooldown time.Duration) *State {
	if cooldown <= 0 {
		cooldown = DefaultStopCooldown
	}
	return &State{cooldown: cooldown, now: time.Now}
}

// SetClock replaces the time source. Test hook.
func (st *State) SetClock(now func() time.Time) {
	st.mu.Lock()
	st.now = now
	st.mu.Unlock()
}

// Subscribe registers a listener. Notification order follows subscription
// order.
func (st *State) Subscribe() *Subscription {
	sub := &Subscription{state: st}
	st.mu.Lock()
	st.subs = append(st.subs, sub)
	st.mu.Unlock()
	return sub
}

func (st *State) unsubscribe(sub *Subscription) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i, s := range st.subs {
		if s == sub {
			st.subs = append(st.subs[:i], st.subs[i+1:]...)
			return
		}
	}
}

// AutoplayDisabled returns the page-wide autoplay flag.
func (st *State) AutoplayDisabled() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.autoplayDisabled
}

// SetAutoplayDisabled flips the flag and notifies listeners. A no-op when
// the flag already holds the requested value.
func (st *State) SetAutoplayDisabled(disabled bool) {
	st.mu.Lock()
	if st.autoplayDisabled == disabled {
		st.mu.Unlock()
		return
	}
	st.autoplayDisabled = disabled
	subs := append([]*Subscription(nil), st.subs...)
	st.mu.Unlock()

	for _, sub := range subs {
		sub.notifyAutoplay(disabled)
	}
}

// ToggleAutoplay flips the flag like the page-level control: disabling
// autoplay also emits a pause-all pulse so every event stops in the same
// turn. It returns the new flag value.
func (st *State) ToggleAutoplay() bool {
	disabled := !st.AutoplayDisabled()
	st.SetAutoplayDisabled(disabled)
	if disabled {
		st.PauseAll()
	}
	return disabled
}

// PauseAll emits the one-shot pause-all pulse: the stop timestamp is
// stamped first, then every listener is notified within this turn. The
// pulse is not persisted; there is nothing to clear.
func (st *State) PauseAll() {
	st.mu.Lock()
	st.lastStop = st.now()
	subs := append([]*Subscription(nil), st.subs...)
	st.mu.Unlock()

	for _, sub := range subs {
		sub.notifyPauseAll()
	}
}

// MarkStopped stamps the explicit-stop timestamp without emitting a pulse.
func (st *State) MarkStopped() {
	st.mu.Lock()
	st.lastStop = st.now()
	st.mu.Unlock()
}

// InCooldown reports whether an explicit stop happened within the cooldown
// window, in which case visibility-triggered autoplay is suppressed.
func (st *State) InCooldown() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.lastStop.IsZero() {
		return false
	}
	return st.now().Sub(st.lastStop) < st.cooldown
}
