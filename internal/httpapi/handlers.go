package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/twenty-questions-backend/internal/archive"
	"github.com/DoyleJ11/twenty-questions-backend/internal/hub"
)

const maxRecentRounds = 50

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// SuggestCode returns a room code that is free right now. Nothing is
// reserved; the room is opened by create_room over the websocket.
func SuggestCode(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := h.SuggestCode(r.Context())
		if err != nil {
			http.Error(w, "failed to generate code", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := h.List(r.Context())
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

// RecentRounds lists archived rounds for a room code, newest first.
func RecentRounds(rec archive.Recorder, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := hub.NormalizeCode(chi.URLParam(r, "code"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		limit := 10
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > maxRecentRounds {
				http.Error(w, "limit must be between 1 and 50", http.StatusBadRequest)
				return
			}
			limit = n
		}
		rounds, err := rec.Recent(r.Context(), code, limit)
		if err != nil {
			log.Error("loading recent rounds", zap.String("room", code), zap.Error(err))
			http.Error(w, "archive unavailable", http.StatusInternalServerError)
			return
		}
		if rounds == nil {
			rounds = []archive.RoundRecord{}
		}
		writeJSON(w, http.StatusOK, rounds)
	}
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.List(r.Context()); errors.Is(err, hub.ErrShuttingDown) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
