// Package investigation holds the static data model for a scroll-driven
// visual investigation: a global time range plus an ordered sequence of
// timeline events, each carrying 1-5 parallel camera clips and optional
// sub-content. The model is built once from configuration at startup and
// is immutable thereafter.
package investigation

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ClipSource is the tagged address variant of a clip: either one continuous
// recording or an ordered list of segments played back-to-back as one
// logical recording. Segment order is playback order; no gaps are assumed
// between segments.
type ClipSource struct {
	segments []string
	single   bool
}

// SingleSource returns a source backed by one continuous recording.
func SingleSource(url string) ClipSource {
	return ClipSource{segments: []string{url}, single: true}
}

// SegmentedSource returns a source backed by ordered segments.
func SegmentedSource(urls ...string) ClipSource {
	return ClipSource{segments: append([]string(nil), urls...)}
}

// Segmented reports whether the source is a multi-segment recording.
func (s ClipSource) Segmented() bool {
	return !s.single && len(s.segments) > 1
}

// SegmentCount returns the number of segments (1 for single recordings).
func (s ClipSource) SegmentCount() int {
	return len(s.segments)
}

// URL returns the media address for the given segment index. Out-of-range
// indices fall back to the first segment, matching how a stale index is
// resolved after configuration changes.
func (s ClipSource) URL(segment int) string {
	if len(s.segments) == 0 {
		return ""
	}
	if segment < 0 || segment >= len(s.segments) {
		return s.segments[0]
	}
	return s.segments[segment]
}

// UnmarshalYAML accepts either a scalar URL or a sequence of segment URLs.
func (s *ClipSource) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var url string
		if err := value.Decode(&url); err != nil {
			return err
		}
		*s = SingleSource(url)
		return nil
	case yaml.SequenceNode:
		var urls []string
		if err := value.Decode(&urls); err != nil {
			return err
		}
		if len(urls) == 1 {
			*s = SingleSource(urls[0])
		} else {
			*s = SegmentedSource(urls...)
		}
		return nil
	}
	return fmt.Errorf("clip url: expected string or sequence, got %v", value.Kind)
}

// MarshalYAML renders single sources as a scalar and segmented ones as a
// sequence, mirroring the accepted input forms.
func (s ClipSource) MarshalYAML() (interface{}, error) {
	if s.single && len(s.segments) == 1 {
		return s.segments[0], nil
	}
	return s.segments, nil
}

// Clip is one of the parallel camera-angle recordings attached to an event.
type Clip struct {
	URL           ClipSource `yaml:"url" json:"url"`
	Title         string     `yaml:"title,omitempty" json:"title,omitempty"`
	Thumbnail     string     `yaml:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	CropBlackBars bool       `yaml:"cropBlackBars,omitempty" json:"cropBlackBars,omitempty"`
}

// VideoOptions carries layout hints for 3- and 5-clip grids.
type VideoOptions struct {
	OddVideoFirst    bool `yaml:"oddVideoFirst,omitempty" json:"oddVideoFirst,omitempty"`
	OddVideoSameSize bool `yaml:"oddVideoSameSize,omitempty" json:"oddVideoSameSize,omitempty"`
}

// SubEvent is auxiliary content rendered below an event's clip grid. The
// playback core does not interpret sub-events beyond validating them; the
// annotation renderers consume the scroll-progress fraction instead.
type SubEvent struct {
	Type    string `yaml:"type" json:"type" validate:"required,oneof=text photo tweet textMessages map collage"`
	Content string `yaml:"content,omitempty" json:"content,omitempty"`

	ImagePath   string `yaml:"imagePath,omitempty" json:"imagePath,omitempty"`
	ImageAlt    string `yaml:"imageAlt,omitempty" json:"imageAlt,omitempty"`
	Caption     string `yaml:"caption,omitempty" json:"caption,omitempty"`
	Attribution string `yaml:"attribution,omitempty" json:"attribution,omitempty"`

	Author       string `yaml:"author,omitempty" json:"author,omitempty"`
	Handle       string `yaml:"handle,omitempty" json:"handle,omitempty"`
	Timestamp    string `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
	ProfileImage string `yaml:"profileImage,omitempty" json:"profileImage,omitempty"`
	Verified     bool   `yaml:"verified,omitempty" json:"verified,omitempty"`
	Likes        int    `yaml:"likes,omitempty" json:"likes,omitempty"`
	Retweets     int    `yaml:"retweets,omitempty" json:"retweets,omitempty"`
	Link         string `yaml:"link,omitempty" json:"link,omitempty"`

	Messages          []TextMessage `yaml:"messages,omitempty" json:"messages,omitempty" validate:"dive"`
	ConversationTitle string        `yaml:"conversationTitle,omitempty" json:"conversationTitle,omitempty"`

	Markers  []MapMarker    `yaml:"markers,omitempty" json:"markers,omitempty" validate:"dive"`
	Labels   []MapLabel     `yaml:"labels,omitempty" json:"labels,omitempty" validate:"dive"`
	Photos   []CollagePhoto `yaml:"photos,omitempty" json:"photos,omitempty" validate:"dive"`
	Duration int            `yaml:"duration,omitempty" json:"duration,omitempty"`
}

// TextMessage is one bubble in a text-message transcript sub-event.
type TextMessage struct {
	Sender    string `yaml:"sender" json:"sender"`
	Content   string `yaml:"content" json:"content"`
	Timestamp string `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
	IsSender  bool   `yaml:"isSender,omitempty" json:"isSender,omitempty"`
}

// MapMarker is an annotation positioned on a map sub-event, visible over a
// scroll-progress window.
type MapMarker struct {
	X           float64 `yaml:"x" json:"x" validate:"gte=0,lte=100"`
	Y           float64 `yaml:"y" json:"y" validate:"gte=0,lte=100"`
	Label       string  `yaml:"label,omitempty" json:"label,omitempty"`
	AppearAt    float64 `yaml:"appearAt" json:"appearAt" validate:"gte=0,lte=1"`
	DisappearAt float64 `yaml:"disappearAt,omitempty" json:"disappearAt,omitempty" validate:"gte=0,lte=1"`
	Size        int     `yaml:"size,omitempty" json:"size,omitempty"`
	Color       string  `yaml:"color,omitempty" json:"color,omitempty"`
	Shape       string  `yaml:"shape,omitempty" json:"shape,omitempty" validate:"omitempty,oneof=square arrow semicircle triangle"`
	Direction   float64 `yaml:"direction,omitempty" json:"direction,omitempty"`
	Radius      float64 `yaml:"radius,omitempty" json:"radius,omitempty"`
	FieldOfView float64 `yaml:"fieldOfView,omitempty" json:"fieldOfView,omitempty"`
}

// MapLabel is a positioned text label on a map sub-event.
type MapLabel struct {
	X           float64 `yaml:"x" json:"x" validate:"gte=0,lte=100"`
	Y           float64 `yaml:"y" json:"y" validate:"gte=0,lte=100"`
	Text        string  `yaml:"text" json:"text" validate:"required"`
	AppearAt    float64 `yaml:"appearAt" json:"appearAt" validate:"gte=0,lte=1"`
	DisappearAt float64 `yaml:"disappearAt,omitempty" json:"disappearAt,omitempty" validate:"gte=0,lte=1"`
}

// CollagePhoto is one photo in a collage sub-event.
type CollagePhoto struct {
	ImagePath   string  `yaml:"imagePath" json:"imagePath" validate:"required"`
	ImageAlt    string  `yaml:"imageAlt,omitempty" json:"imageAlt,omitempty"`
	Caption     string  `yaml:"caption,omitempty" json:"caption,omitempty"`
	Attribution string  `yaml:"attribution,omitempty" json:"attribution,omitempty"`
	AppearAt    float64 `yaml:"appearAt,omitempty" json:"appearAt,omitempty" validate:"gte=0,lte=1"`
	DisappearAt float64 `yaml:"disappearAt,omitempty" json:"disappearAt,omitempty" validate:"gte=0,lte=1"`
	Size        string  `yaml:"size,omitempty" json:"size,omitempty" validate:"omitempty,oneof=small medium large"`
	X           float64 `yaml:"x,omitempty" json:"x,omitempty" validate:"gte=0,lte=100"`
	Y           float64 `yaml:"y,omitempty" json:"y,omitempty" validate:"gte=0,lte=100"`
}

// Event is one chronological entry: a time span, a description, and the
// parallel clips recorded over that span.
type Event struct {
	ID           string        `yaml:"id" json:"id" validate:"required"`
	StartTime    string        `yaml:"startTime" json:"startTime" validate:"required"`
	EndTime      string        `yaml:"endTime,omitempty" json:"endTime,omitempty"`
	Title        string        `yaml:"title" json:"title" validate:"required"`
	Description  string        `yaml:"description" json:"description"`
	Clips        []Clip        `yaml:"clips" json:"clips" validate:"min=1,max=5"`
	VideoOptions *VideoOptions `yaml:"videoOptions,omitempty" json:"videoOptions,omitempty"`
	SubEvents    []SubEvent    `yaml:"subEvents,omitempty" json:"subEvents,omitempty" validate:"dive"`
}

// Data is the complete investigation: header plus time-ordered events.
type Data struct {
	Title       string  `yaml:"title" json:"title" validate:"required"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	MaxWidth    string  `yaml:"maxWidth,omitempty" json:"maxWidth,omitempty"`
	StartTime   string  `yaml:"startTime" json:"startTime" validate:"required"`
	EndTime     string  `yaml:"endTime" json:"endTime" validate:"required"`
	Events      []Event `yaml:"events" json:"events" validate:"min=1,dive"`
}

// EffectiveEndTime resolves the display end of the event at index i: its
// explicit endTime, else the next event's startTime, else (for the final
// event) its own startTime, yielding a zero-length span.
func (d *Data) EffectiveEndTime(i int) string {
	if i < 0 || i >= len(d.Events) {
		return ""
	}
	ev := d.Events[i]
	if ev.EndTime != "" {
		return ev.EndTime
	}
	if i+1 < len(d.Events) {
		return d.Events[i+1].StartTime
	}
	return ev.StartTime
}

// EventIndex returns the index of the event with the given id, or -1.
func (d *Data) EventIndex(id string) int {
	for i := range d.Events {
		if d.Events[i].ID == id {
			return i
		}
	}
	return -1
}

// DisplayOrder returns the order in which an event's clip slots should be
// rendered. For 3- and 5-clip grids with the odd-video-first hint, the odd
// slot (last index) is shown first; slot indices are preserved so playback
// identity is unaffected.
func (e *Event) DisplayOrder() []int {
	n := len(e.Clips)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if e.VideoOptions == nil || !e.VideoOptions.OddVideoFirst {
		return order
	}
	if n == 3 || n == 5 {
		reordered := make([]int, 0, n)
		reordered = append(reordered, n-1)
		reordered = append(reordered, order[:n-1]...)
		return reordered
	}
	return order
}
