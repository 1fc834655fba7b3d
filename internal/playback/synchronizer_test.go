package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"investigation-sync/internal/investigation"
)

// fakeSurface is a controllable Surface for tests. The synchronizer calls
// it under its own lock, but settle timers fire on other goroutines, so
// the fake guards its state too.
type fakeSurface struct {
	mu          sync.Mutex
	position    float64
	duration    float64
	hasDuration bool
	ready       bool
	playErr     error

	plays  int
	pauses int
	loads  []string
	seeks  []float64
}

func (f *fakeSurface) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *fakeSurface) Duration() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration, f.hasDuration
}

func (f *fakeSurface) SetPosition(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position = seconds
	f.seeks = append(f.seeks, seconds)
}

func (f *fakeSurface) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.plays++
	return nil
}

func (f *fakeSurface) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
}

func (f *fakeSurface) Load(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, url)
}

func (f *fakeSurface) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeSurface) lastSeek() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seeks) == 0 {
		return 0, false
	}
	return f.seeks[len(f.seeks)-1], true
}

func (f *fakeSurface) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeSurface) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays
}

func singleClip(url string) investigation.Clip {
	return investigation.Clip{URL: investigation.SingleSource(url)}
}

func segmentedClip(urls ...string) investigation.Clip {
	return investigation.Clip{URL: investigation.SegmentedSource(urls...)}
}

// newTestSync builds a synchronizer over fresh fakes. The settle delay is
// long so tests exercising the data-ready path are not raced by the timer.
func newTestSync(t *testing.T, clips ...investigation.Clip) (*Synchronizer, []*fakeSurface) {
	t.Helper()
	fakes := make([]*fakeSurface, len(clips))
	surfaces := make([]Surface, len(clips))
	for i := range clips {
		fakes[i] = &fakeSurface{}
		surfaces[i] = fakes[i]
	}
	s := NewSynchronizer("ev1", clips, surfaces, Tuning{SettleDelay: time.Hour}, nil, nil)
	t.Cleanup(s.Close)
	return s, fakes
}

func TestSynchronizer_LoadAll_idempotent(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a.mp4"), singleClip("b.mp4"))

	s.LoadAll()
	s.LoadAll()

	if !s.Loaded() {
		t.Error("Loaded should be true after LoadAll")
	}
	if got := s.State(); got != Loading {
		t.Errorf("state = %v, want Loading", got)
	}
	for i, f := range fakes {
		if f.loadCount() != 1 {
			t.Errorf("surface %d: %d loads, want 1", i, f.loadCount())
		}
	}
	if fakes[0].loads[0] != "a.mp4" || fakes[1].loads[0] != "b.mp4" {
		t.Errorf("loaded wrong urls: %v %v", fakes[0].loads, fakes[1].loads)
	}
}

func TestSynchronizer_PlayAll_deferredUntilReady(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a.mp4"))

	s.PlayAll()
	if fakes[0].playCount() != 0 {
		t.Fatal("play should not be attempted before the surface is ready")
	}
	if got := s.State(); got == Playing {
		t.Error("state should not be Playing with no surface started")
	}

	fakes[0].mu.Lock()
	fakes[0].ready = true
	fakes[0].mu.Unlock()
	s.HandleDataReady(0)

	if fakes[0].playCount() != 1 {
		t.Errorf("play count = %d after data-ready, want 1", fakes[0].playCount())
	}
	if got := s.State(); got != Playing {
		t.Errorf("state = %v, want Playing", got)
	}
}

func TestSynchronizer_PlayAll_blockedStartSwallowed(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a.mp4"))
	fakes[0].ready = true
	fakes[0].playErr = errors.New("autoplay blocked")

	s.PlayAll()

	if got := s.State(); got == Playing {
		t.Error("state should not be Playing when every start was rejected")
	}
}

func TestSynchronizer_PauseAll_cancelsPlayWhenReady(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a.mp4"))

	s.PlayAll()
	s.PauseAll()

	fakes[0].mu.Lock()
	fakes[0].ready = true
	fakes[0].mu.Unlock()
	s.HandleDataReady(0)

	if fakes[0].playCount() != 0 {
		t.Error("pause should cancel the pending play-when-ready hook")
	}
	if got := s.State(); got != Paused {
		t.Errorf("state = %v, want Paused", got)
	}
}

func TestSynchronizer_SeekAll_singleRecording(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a.mp4"), singleClip("b.mp4"))
	for _, f := range fakes {
		f.duration = 100
		f.hasDuration = true
	}

	s.SeekAll(0, 50)

	for i, f := range fakes {
		if pos, ok := f.lastSeek(); !ok || pos != 50 {
			t.Errorf("surface %d: seek = %v (%v), want 50", i, pos, ok)
		}
	}
}

func TestSynchronizer_SeekAll_clampsPercent(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a.mp4"))
	fakes[0].duration = 100
	fakes[0].hasDuration = true

	s.SeekAll(0, 150)
	if pos, _ := fakes[0].lastSeek(); pos != 100 {
		t.Errorf("seek = %v, want clamped to 100", pos)
	}

	s.SeekAll(0, -5)
	if pos, _ := fakes[0].lastSeek(); pos != 0 {
		t.Errorf("seek = %v, want clamped to 0", pos)
	}
}

// A target landing exactly on a segment boundary resolves to the earlier
// segment at its full duration.
func TestSynchronizer_SeekAll_boundaryResolvesToEarlierSegment(t *testing.T) {
	s, fakes := newTestSync(t,
		segmentedClip("a0.mp4", "a1.mp4", "a2.mp4"),
		segmentedClip("b0.mp4", "b1.mp4", "b2.mp4"))

	// Segment durations 10, 20, 30; 50% of the 60s timeline is exactly
	// the segment 1 / segment 2 boundary.
	for i := range fakes {
		s.slots[i].durations.Record(0, 10)
		s.slots[i].durations.Record(1, 20)
		s.slots[i].durations.Record(2, 30)
	}

	s.SeekAll(0, 50)

	for i := range fakes {
		if got := s.Segment(i); got != 1 {
			t.Errorf("slot %d segment = %d, want 1", i, got)
		}
	}
	if fakes[0].loads[len(fakes[0].loads)-1] != "a1.mp4" {
		t.Errorf("slot 0 loaded %q, want a1.mp4", fakes[0].loads[len(fakes[0].loads)-1])
	}

	// The offset is deferred until the new source reports data-ready.
	if _, ok := fakes[0].lastSeek(); ok {
		t.Fatal("offset should not be applied before data-ready")
	}
	s.HandleDataReady(0)
	if pos, ok := fakes[0].lastSeek(); !ok || pos != 20 {
		t.Errorf("deferred offset = %v (%v), want 20", pos, ok)
	}
}

func TestSynchronizer_SeekAll_sameSegmentSeeksDirectly(t *testing.T) {
	s, fakes := newTestSync(t, segmentedClip("a0.mp4", "a1.mp4"))
	fakes[0].duration = 10
	fakes[0].hasDuration = true
	s.HandleMetadataReady(0)

	s.SeekAll(0, 50)

	if fakes[0].loadCount() != 0 {
		t.Error("seek within the current segment should not reload")
	}
	if pos, ok := fakes[0].lastSeek(); !ok || pos != 5 {
		t.Errorf("seek = %v (%v), want 5", pos, ok)
	}
}

func TestSynchronizer_SeekAll_noMeasuredDurations(t *testing.T) {
	s, fakes := newTestSync(t, segmentedClip("a0.mp4", "a1.mp4"))

	s.SeekAll(0, 50)

	if _, ok := fakes[0].lastSeek(); ok {
		t.Error("seek with no measured segment durations should be a no-op")
	}
}

func TestSynchronizer_settleDelay_appliesDeferredOffset(t *testing.T) {
	fakes := []*fakeSurface{{duration: 10, hasDuration: true}}
	s := NewSynchronizer("ev1",
		[]investigation.Clip{segmentedClip("a0.mp4", "a1.mp4")},
		[]Surface{fakes[0]},
		Tuning{SettleDelay: 5 * time.Millisecond}, nil, nil)
	defer s.Close()

	s.HandleMetadataReady(0)
	// 10s measured for segment 0; 90% of the 10s total lands in segment 1
	// only if more is known, so seek to 50% of 10 = 5 stays put. Force a
	// switch instead.
	s.mu.Lock()
	off := 3.0
	s.switchSegmentLocked(1, &off)
	s.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for {
		if pos, ok := fakes[0].lastSeek(); ok && pos == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("settle fallback never applied the deferred offset")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSynchronizer_Resync_snapsDriftedSurfaces(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a"), singleClip("b"), singleClip("c"))
	for _, f := range fakes {
		f.duration = 60
		f.hasDuration = true
	}
	fakes[0].position = 10.0
	fakes[1].position = 10.35
	fakes[2].position = 10.2

	if got := s.Resync(); got != 1 {
		t.Fatalf("Resync corrected %d surfaces, want 1", got)
	}
	if pos, ok := fakes[1].lastSeek(); !ok || pos != 10.0 {
		t.Errorf("drifted surface snapped to %v (%v), want 10.0", pos, ok)
	}
	if _, ok := fakes[2].lastSeek(); ok {
		t.Error("surface within tolerance should not be touched")
	}
}

func TestSynchronizer_Resync_skipsSurfacesWithoutDuration(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a"), singleClip("b"))
	fakes[0].duration = 60
	fakes[0].hasDuration = true
	fakes[0].position = 10
	fakes[1].position = 99 // metadata not loaded yet

	if got := s.Resync(); got != 0 {
		t.Errorf("Resync corrected %d, want 0 for unloaded surfaces", got)
	}
}

func TestSynchronizer_HandleEnded_advancesAllSlotsInUnison(t *testing.T) {
	s, fakes := newTestSync(t,
		segmentedClip("a0", "a1"),
		segmentedClip("b0", "b1"))
	for _, f := range fakes {
		f.duration = 10
		f.hasDuration = true
		f.ready = true
	}

	s.HandleEnded(0)

	for i, f := range fakes {
		if got := s.Segment(i); got != 1 {
			t.Errorf("slot %d segment = %d, want 1", i, got)
		}
		if pos, ok := f.lastSeek(); !ok || pos != 0 {
			t.Errorf("slot %d should restart at 0, got %v (%v)", i, pos, ok)
		}
		if f.playCount() != 1 {
			t.Errorf("slot %d play count = %d, want 1", i, f.playCount())
		}
	}
	if fakes[1].loads[len(fakes[1].loads)-1] != "b1" {
		t.Errorf("slot 1 loaded %q, want b1", fakes[1].loads[len(fakes[1].loads)-1])
	}
}

func TestSynchronizer_HandleEnded_finalSegmentStops(t *testing.T) {
	s, fakes := newTestSync(t, segmentedClip("a0", "a1"))
	s.slots[0].segment = 1

	s.HandleEnded(0)

	if fakes[0].loadCount() != 0 || fakes[0].playCount() != 0 {
		t.Error("ending the final segment should leave surfaces untouched")
	}
}

func TestSynchronizer_HandleEnded_singleRecordingIgnored(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a"))

	s.HandleEnded(0)

	if fakes[0].loadCount() != 0 {
		t.Error("single recordings loop on the surface; no reload expected")
	}
}

func TestSynchronizer_OverallProgress_fallsBackToSurfaceRatio(t *testing.T) {
	s, fakes := newTestSync(t, segmentedClip("a0", "a1"))
	fakes[0].duration = 10
	fakes[0].hasDuration = true
	fakes[0].position = 5

	// No metadata recorded yet: total is 0, so the surface's own ratio is
	// the best available answer.
	if got := s.OverallProgress(0); got != 50 {
		t.Errorf("OverallProgress = %v, want 50", got)
	}
}

func TestSynchronizer_OverallProgress_segmented(t *testing.T) {
	s, fakes := newTestSync(t, segmentedClip("a0", "a1"))
	fakes[0].duration = 10
	fakes[0].hasDuration = true
	s.HandleMetadataReady(0)

	s.slots[0].segment = 1
	fakes[0].duration = 30
	s.HandleMetadataReady(0)
	fakes[0].position = 10

	// 10s done in segment 0, 10s into segment 1, 40s total.
	if got := s.OverallProgress(0); got != 50 {
		t.Errorf("OverallProgress = %v, want 50", got)
	}
}

func TestSynchronizer_HandlePositionTick_reportsSlotZeroOnly(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a"), singleClip("b"))
	for _, f := range fakes {
		f.duration = 100
		f.hasDuration = true
		f.position = 25
	}

	var reports []float64
	s.SetProgressFunc(func(p float64) { reports = append(reports, p) })

	s.HandlePositionTick(1)
	if len(reports) != 0 {
		t.Fatal("non-reference slot ticks should not drive the callback")
	}

	s.HandlePositionTick(0)
	if len(reports) != 1 || reports[0] != 25 {
		t.Errorf("reports = %v, want [25]", reports)
	}
}

func TestSynchronizer_Close_idempotentAndStopsWork(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a"))
	s.StartResync()

	s.PlayAll() // arms play-when-ready
	s.Close()
	s.Close()

	fakes[0].mu.Lock()
	fakes[0].ready = true
	fakes[0].mu.Unlock()
	s.HandleDataReady(0)

	if fakes[0].playCount() != 0 {
		t.Error("no deferred work should fire after Close")
	}
	s.LoadAll()
	if fakes[0].loadCount() != 0 {
		t.Error("LoadAll after Close should be a no-op")
	}
}

func TestSynchronizer_mirror_followsSeeksAndAdvances(t *testing.T) {
	s, fakes := newTestSync(t, singleClip("a"))
	fakes[0].duration = 100
	fakes[0].hasDuration = true

	mirror := &fakeSurface{duration: 100, hasDuration: true}
	s.AttachMirror(0, mirror)

	s.SeekAll(0, 50)
	if pos, ok := mirror.lastSeek(); !ok || pos != 50 {
		t.Errorf("mirror seek = %v (%v), want 50", pos, ok)
	}

	s.DetachMirror()
	s.SeekAll(0, 25)
	if pos, _ := mirror.lastSeek(); pos != 50 {
		t.Error("detached mirror should no longer receive seeks")
	}
}
