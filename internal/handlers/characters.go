package handlers

import (
	"net/http"
	"strconv"
	"strings"
)

// HandleCharacters searches the catalog by name prefix: GET /api/characters?q=
func (h *Handler) HandleCharacters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		q := r.URL.Query().Get("q")
		if strings.TrimSpace(q) == "" {
			h.writeError(w, "q is required", http.StatusBadRequest)
			return
		}
		result, err := h.lookup.Search(r.Context(), q)
		if err != nil {
			h.writeLookupError(w, err)
			return
		}
		h.writeJSON(w, result)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleCharacterDetail reads or forgets one cached character by id
func (h *Handler) HandleCharacterDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/characters/"))
	if err != nil || id <= 0 {
		h.writeError(w, "Invalid character id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case "GET":
		rec, ok, err := h.lookup.Cached(r.Context(), id)
		if err != nil {
			h.writeError(w, "Cache lookup failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			h.writeError(w, "Character not cached", http.StatusNotFound)
			return
		}
		h.writeJSON(w, rec)
	case "DELETE":
		if _, err := h.lookup.Forget(r.Context(), id); err != nil {
			h.writeError(w, "Cache delete failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleRecent lists the most recently cached characters
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		recent, err := h.lookup.Recent(r.Context())
		if err != nil {
			h.writeError(w, "Cache read failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, recent)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
