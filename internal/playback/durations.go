package playback

// DurationTracker records the measured duration of each segment in a
// multi-part clip as metadata loads. Entries are sparse: an unmeasured
// segment is absent, not zero, though cumulative queries treat it as zero:
// a lower-bound approximation until all prior segments have loaded.
//
// The tracker is owned by one Synchronizer slot and relies on the owner's
// lock; it is not safe for unsynchronized concurrent use.
type DurationTracker struct {
	durations map[int]float64
}

// NewDurationTracker returns an empty tracker.
func NewDurationTracker() *DurationTracker {
	return &DurationTracker{durations: make(map[int]float64)}
}

// Record stores the duration for a segment. Re-recording is an idempotent
// upsert.
func (t *DurationTracker) Record(segment int, seconds float64) {
	if segment < 0 || seconds <= 0 {
		return
	}
	t.durations[segment] = seconds
}

// Known returns the measured duration for a segment, if any.
func (t *DurationTracker) Known(segment int) (float64, bool) {
	d, ok := t.durations[segment]
	return d, ok
}

// CumulativeBefore sums the durations of all segments strictly before the
// given index. Unmeasured segments contribute 0.
func (t *DurationTracker) CumulativeBefore(segment int) float64 {
	sum := 0.0
	for i, d := range t.durations {
		if i < segment {
			sum += d
		}
	}
	return sum
}

// Total sums all known durations; 0 if none are known yet.
func (t *DurationTracker) Total() float64 {
	sum := 0.0
	for _, d := range t.durations {
		sum += d
	}
	return sum
}

// Locate maps a target position on the logical clip timeline (seconds from
// the start of segment 0) to a segment index and intra-segment offset.
// The scan uses an inclusive upper bound, so a target landing exactly on a
// segment boundary resolves to the earlier segment at its full duration,
// never to the next segment at offset 0. segmentCount bounds the scan; if
// the target exceeds every cumulative range the final segment is returned
// with the residual offset.
func (t *DurationTracker) Locate(target float64, segmentCount int) (segment int, offset float64) {
	if segmentCount <= 0 {
		return 0, 0
	}
	if target < 0 {
		target = 0
	}

	accumulated := 0.0
	for i := 0; i < segmentCount; i++ {
		d := t.durations[i]
		if target <= accumulated+d {
			return i, target - accumulated
		}
		accumulated += d
	}
	return segmentCount - 1, target - t.CumulativeBefore(segmentCount-1)
}
