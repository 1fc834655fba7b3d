package page

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"investigation-sync/internal/cursor"
	"investigation-sync/internal/timecode"
)

// Handler exposes the page's playback coordination over HTTP using go-chi.
type Handler struct {
	page *Page
	log  *slog.Logger
}

// NewHandler returns a Handler for the given page.
func NewHandler(p *Page, log *slog.Logger) *Handler {
	return &Handler{page: p, log: log}
}

// Routes mounts the handler's endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/investigation", h.GetInvestigation)
	r.Route("/playback", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/events/{event_id}", h.GetEventState)
		r.Get("/events/{event_id}/expanded", h.GetExpandedState)
		r.Post("/timeline/click", h.TimelineClick)
		r.Post("/autoplay/toggle", h.ToggleAutoplay)
		r.Post("/pause", h.PauseAll)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GetInvestigation handles GET /investigation: the one-fetch delivery of
// the full investigation definition.
func (h *Handler) GetInvestigation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.page.Data())
}

// statusResponse is the master-bar display state.
type statusResponse struct {
	CurrentTime      string  `json:"currentTime"`
	OverallProgress  float64 `json:"overallProgress"`
	ActiveEventID    string  `json:"activeEventId,omitempty"`
	ActiveProgress   float64 `json:"activeEventProgress"`
	AutoplayDisabled bool    `json:"autoplayDisabled"`
	TimelineVisible  bool    `json:"timelineVisible"`
}

// GetStatus handles GET /playback/status?scrollY=N.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	scrollY, _ := strconv.ParseFloat(r.URL.Query().Get("scrollY"), 64)
	c := h.page.Cursor()
	activeID, activeProgress := c.Active()

	writeJSON(w, http.StatusOK, statusResponse{
		CurrentTime:      c.CurrentDisplayTime(),
		OverallProgress:  c.OverallProgressPercent(),
		ActiveEventID:    activeID,
		ActiveProgress:   activeProgress,
		AutoplayDisabled: h.page.Session().AutoplayDisabled(),
		TimelineVisible:  cursor.TimelineVisible(scrollY),
	})
}

// eventStateResponse is one mounted event's playback snapshot.
type eventStateResponse struct {
	EventID  string  `json:"eventId"`
	State    string  `json:"state"`
	Loaded   bool    `json:"loaded"`
	Visible  bool    `json:"visible"`
	Segment  int     `json:"segment"`
	Progress float64 `json:"progress"`
}

// GetEventState handles GET /playback/events/{event_id}.
func (h *Handler) GetEventState(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	m, ok := h.page.Mount(eventID)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, eventStateResponse{
		EventID:  eventID,
		State:    m.Sync().State().String(),
		Loaded:   m.Sync().Loaded(),
		Visible:  m.Controller().Visible(),
		Segment:  m.Sync().Segment(0),
		Progress: m.Sync().OverallProgress(0),
	})
}

// expandedStateResponse is the focused-view display state: elapsed/total
// as clock strings plus the raw progress percent.
type expandedStateResponse struct {
	Opened      bool    `json:"opened"`
	Slot        int     `json:"slot,omitempty"`
	Progress    float64 `json:"progress"`
	CurrentTime string  `json:"currentTime"`
	TotalTime   string  `json:"totalTime"`
}

// GetExpandedState handles GET /playback/events/{event_id}/expanded.
func (h *Handler) GetExpandedState(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	m, ok := h.page.Mount(eventID)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	v := m.Expanded()
	slot, opened := v.Opened()
	if !opened {
		writeJSON(w, http.StatusOK, expandedStateResponse{
			CurrentTime: timecode.FormatClock(0),
			TotalTime:   timecode.FormatClock(0),
		})
		return
	}
	writeJSON(w, http.StatusOK, expandedStateResponse{
		Opened:      true,
		Slot:        slot,
		Progress:    v.Progress(),
		CurrentTime: timecode.FormatClock(v.CurrentTime()),
		TotalTime:   timecode.FormatClock(v.TotalDuration()),
	})
}

// clickRequest is the master-bar click payload.
type clickRequest struct {
	Fraction float64 `json:"fraction"`
}

// clickResponse reports where a click resolved.
type clickResponse struct {
	Applied        bool    `json:"applied"`
	EventID        string  `json:"eventId,omitempty"`
	PercentInEvent float64 `json:"percentInEvent,omitempty"`
}

// TimelineClick handles POST /playback/timeline/click.
// Body: { "fraction": 0.42 }.
func (h *Handler) TimelineClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid click body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Fraction < 0 || req.Fraction > 1 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	target, ok := h.page.Click(req.Fraction)
	if !ok {
		// No event's interval contains the clicked minute; not an error.
		writeJSON(w, http.StatusOK, clickResponse{Applied: false})
		return
	}

	h.log.Info("timeline click applied",
		slog.String("event_id", target.EventID),
		slog.Float64("percent", target.Percent))
	writeJSON(w, http.StatusOK, clickResponse{
		Applied:        true,
		EventID:        target.EventID,
		PercentInEvent: target.Percent,
	})
}

// ToggleAutoplay handles POST /playback/autoplay/toggle.
func (h *Handler) ToggleAutoplay(w http.ResponseWriter, r *http.Request) {
	disabled := h.page.ToggleAutoplay()
	h.log.Info("autoplay toggled", slog.Bool("disabled", disabled))
	writeJSON(w, http.StatusOK, map[string]bool{"autoplayDisabled": disabled})
}

// PauseAll handles POST /playback/pause: the user-level global stop.
func (h *Handler) PauseAll(w http.ResponseWriter, r *http.Request) {
	h.page.PauseAll()
	w.WriteHeader(http.StatusNoContent)
}
