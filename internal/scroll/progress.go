// Package scroll computes the read-only scroll-progress fraction consumed
// by the annotation renderers (maps, collages). The renderers map the
// fraction to visual properties; nothing here feeds back into playback.
package scroll

// Progress returns how far the viewport has scrolled through a container,
// as a fraction in [0,1]. containerTop is the container's top edge in
// viewport coordinates (negative once scrolled past), containerHeight its
// full height, viewportHeight the window height. Containers no taller than
// the viewport report 0 until their top passes the viewport top, then 1.
func Progress(containerTop, containerHeight, viewportHeight float64) float64 {
	span := containerHeight - viewportHeight
	if span <= 0 {
		if containerTop < 0 {
			return 1
		}
		return 0
	}
	return clamp01(-containerTop / span)
}

// InWindow reports whether an annotation with the given appear/disappear
// bounds is visible at scroll progress p. A zero disappearAt means "until
// the end" (1).
func InWindow(appearAt, disappearAt, p float64) bool {
	if disappearAt <= 0 {
		disappearAt = 1
	}
	return p >= appearAt && p <= disappearAt
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
