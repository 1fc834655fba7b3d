package timeline

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

func newTimelineRouter(fetcher *Fetcher) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewHandler(fetcher, log).Routes(r)
	return r
}

func get(t *testing.T, router http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/timeline", nil))
	return rec
}

func TestHandler_GetTimeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	rec := get(t, newTimelineRouter(NewFetcher(srv.URL, time.Second)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var feed Feed
	if err := json.Unmarshal(rec.Body.Bytes(), &feed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if feed.Title != "The Standoff" || len(feed.Events) != 3 {
		t.Errorf("feed = %q with %d events", feed.Title, len(feed.Events))
	}
}

func TestHandler_GetTimeline_notConfigured(t *testing.T) {
	rec := get(t, newTimelineRouter(NewFetcher("", time.Second)))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for missing configuration", rec.Code)
	}
}

func TestHandler_GetTimeline_emptySheet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(",Title,,,,,,\n"))
	}))
	defer srv.Close()

	rec := get(t, newTimelineRouter(NewFetcher(srv.URL, time.Second)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for a sheet with no usable rows", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Error("empty-sheet response should carry an error message")
	}
}

func TestHandler_GetTimeline_upstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	rec := get(t, newTimelineRouter(NewFetcher(srv.URL, time.Second)))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 for an upstream failure", rec.Code)
	}
}
