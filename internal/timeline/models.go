// Package timeline ingests the chronological feed from a spreadsheet
// export and serves it as one fetch. It is independent of the playback
// core; the two share only the page they render on.
package timeline

// Entry is one chronological feed row.
type Entry struct {
	ID          string `json:"id"`
	DateTime    string `json:"datetime"`
	Approx      bool   `json:"approx,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Actors      string `json:"actors,omitempty"`
	Source      string `json:"source,omitempty"`
	SourceText  string `json:"sourceText,omitempty"`
	Media       string `json:"media,omitempty"`
	MediaText   string `json:"mediaText,omitempty"`
}

// Feed is the complete chronological feed: header metadata plus
// time-ordered entries.
type Feed struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Events      []Entry `json:"events"`
}
