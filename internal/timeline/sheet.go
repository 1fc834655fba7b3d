package timeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Expected columns, after the header row:
// DateTime | Approx | Title | Description | Category | Actor(s) | Source | Media
const (
	colDateTime = iota
	colApprox
	colTitle
	colDescription
	colCategory
	colActors
	colSource
	colMedia
)

var (
	// ErrNoData is returned when the sheet export contains no rows at all.
	ErrNoData = errors.New("no data found in the spreadsheet")

	// ErrNoEntries is returned when rows exist but none carries the primary
	// datetime field.
	ErrNoEntries = errors.New("no rows with a datetime found")
)

var hyperlinkRe = regexp.MustCompile(`(?i)=HYPERLINK\("([^"]+)"(?:,\s*"([^"]+)")?\)`)

// extractLink splits a cell that may hold a =HYPERLINK("url","text")
// formula into its address and display text. Plain cells become a bare
// address with no text.
func extractLink(cell string) (url, text string) {
	if m := hyperlinkRe.FindStringSubmatch(cell); m != nil {
		return m[1], m[2]
	}
	return cell, ""
}

// isApprox interprets the approx column's truthy spellings.
func isApprox(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// dateTimeLayouts are tried in order when sorting entries chronologically.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

func parseDateTime(s string) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseCSV reads a spreadsheet CSV export into a Feed. The header row
// doubles as feed metadata (title in column B, description in column C).
// Rows missing the primary datetime are dropped, not errors: a single bad
// row degrades that row only. Entries are sorted chronologically; rows
// with unparseable datetimes keep their sheet order after the parseable
// ones.
func ParseCSV(r io.Reader) (*Feed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read sheet csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	feed := &Feed{
		Title:       cell(rows[0], 1),
		Description: cell(rows[0], 2),
	}
	if feed.Title == "" {
		feed.Title = "Timeline"
	}

	for _, row := range rows[1:] {
		dt := cell(row, colDateTime)
		if dt == "" {
			continue
		}

		source, sourceText := extractLink(cell(row, colSource))
		media, mediaText := extractLink(cell(row, colMedia))

		feed.Events = append(feed.Events, Entry{
			ID:          fmt.Sprintf("event-%d", len(feed.Events)),
			DateTime:    dt,
			Approx:      isApprox(cell(row, colApprox)),
			Title:       cell(row, colTitle),
			Description: cell(row, colDescription),
			Category:    cell(row, colCategory),
			Actors:      cell(row, colActors),
			Source:      source,
			SourceText:  sourceText,
			Media:       media,
			MediaText:   mediaText,
		})
	}

	if len(feed.Events) == 0 {
		return nil, ErrNoEntries
	}

	sort.SliceStable(feed.Events, func(i, j int) bool {
		ti, oki := parseDateTime(feed.Events[i].DateTime)
		tj, okj := parseDateTime(feed.Events[j].DateTime)
		if oki && okj {
			return ti.Before(tj)
		}
		return oki && !okj
	})

	return feed, nil
}

// Fetcher retrieves the sheet's CSV export over HTTP.
type Fetcher struct {
	url    string
	client *http.Client
}

// NewFetcher returns a fetcher for the given export URL. url may be empty;
// Fetch then reports the missing configuration.
func NewFetcher(url string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{url: url, client: &http.Client{Timeout: timeout}}
}

// ErrNotConfigured is returned by Fetch when no sheet URL is set.
var ErrNotConfigured = errors.New("sheet export url not configured")

// Fetch downloads and parses the feed.
func (f *Fetcher) Fetch(ctx context.Context) (*Feed, error) {
	if f.url == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build sheet request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet: unexpected status %d", resp.StatusCode)
	}

	return ParseCSV(resp.Body)
}
