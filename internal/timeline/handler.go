package timeline

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// Handler serves the chronological feed over HTTP.
type Handler struct {
	fetcher *Fetcher
	log     *slog.Logger
}

func NewHandler(fetcher *Fetcher, log *slog.Logger) *Handler {
	return &Handler{fetcher: fetcher, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/timeline", h.getTimeline)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) getTimeline(w http.ResponseWriter, r *http.Request) {
	feed, err := h.fetcher.Fetch(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, ErrNotConfigured):
			h.log.Error("timeline not configured")
			h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "timeline source is not configured"})
		case errors.Is(err, ErrNoData), errors.Is(err, ErrNoEntries):
			h.log.Warn("timeline feed empty", "error", err)
			h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		default:
			h.log.Error("timeline fetch failed", "error", err)
			h.writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to fetch timeline data"})
		}
		return
	}

	h.writeJSON(w, http.StatusOK, feed)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}
