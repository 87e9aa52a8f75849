package handle

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"mahjong-advisor/api/internal/store"
)

func (h *Handle) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	if h.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history is disabled"})
		return
	}
	limit := store.DefaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad limit"})
			return
		}
		limit = v
	}
	entries, err := h.history.Recent(r.Context(), store.ClampLimit(limit))
	if err != nil {
		log.Error().Err(err).Msg("history: query failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history error: " + err.Error()})
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
