package scroll

import "testing"

func TestProgress(t *testing.T) {
	cases := []struct {
		name            string
		top, height, vp float64
		want            float64
	}{
		{"not yet scrolled", 0, 3000, 1000, 0},
		{"halfway", -1000, 3000, 1000, 0.5},
		{"fully scrolled", -2000, 3000, 1000, 1},
		{"scrolled past end clamps", -2500, 3000, 1000, 1},
		{"below viewport clamps", 500, 3000, 1000, 0},
		{"short container above", 100, 800, 1000, 0},
		{"short container passed", -1, 800, 1000, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Progress(c.top, c.height, c.vp); got != c.want {
				t.Errorf("Progress(%v, %v, %v) = %v, want %v", c.top, c.height, c.vp, got, c.want)
			}
		})
	}
}

func TestInWindow(t *testing.T) {
	cases := []struct {
		name                  string
		appear, disappear, at float64
		want                  bool
	}{
		{"inside window", 0.2, 0.8, 0.5, true},
		{"at appear bound", 0.2, 0.8, 0.2, true},
		{"at disappear bound", 0.2, 0.8, 0.8, true},
		{"before window", 0.2, 0.8, 0.1, false},
		{"after window", 0.2, 0.8, 0.9, false},
		{"zero disappear means end", 0.2, 0, 1.0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := InWindow(c.appear, c.disappear, c.at); got != c.want {
				t.Errorf("InWindow(%v, %v, %v) = %v, want %v", c.appear, c.disappear, c.at, got, c.want)
			}
		})
	}
}
