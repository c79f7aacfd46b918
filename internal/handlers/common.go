package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/marvelous/internal/catalog"
	"github.com/lehigh-university-libraries/marvelous/internal/lookup"
)

type Handler struct {
	lookup *lookup.Service
}

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func New(svc *lookup.Service) *Handler {
	return &Handler{lookup: svc}
}

// Routes registers the API on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/characters", h.HandleCharacters)
	mux.HandleFunc("/api/characters/", h.HandleCharacterDetail)
	mux.HandleFunc("/api/recent", h.HandleRecent)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeLookupError maps a lookup failure to a status and a user-facing body
func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	title, message := lookup.Describe(err)

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, lookup.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, catalog.ErrTransport), errors.Is(err, catalog.ErrRemote), errors.Is(err, catalog.ErrDecode):
		code = http.StatusBadGateway
	}

	if code == http.StatusNotFound {
		slog.Info(title, "message", message)
	} else {
		slog.Error(title, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorBody{Title: title, Message: message}); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}
