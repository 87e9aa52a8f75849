package handle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"mahjong-advisor/api/internal/analyze"
	"mahjong-advisor/api/internal/store"
)

type Analyzer interface {
	Analyze(ctx context.Context, image io.Reader, filename string) (analyze.Result, error)
}

type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]store.Entry, error)
}

type Handle struct {
	analyzer  Analyzer
	history   HistoryReader
	maxUpload int64
}

// New builds the handler set. history may be nil, in which case /history
// answers 404. maxUpload <= 0 disables the body cap.
func New(a Analyzer, maxUpload int64, history HistoryReader) *Handle {
	return &Handle{
		analyzer:  a,
		history:   history,
		maxUpload: maxUpload,
	}
}

// Routes registers every endpoint and wraps the mux in the middleware chain.
func (h *Handle) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Index)
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/analyze", h.Analyze)
	mux.HandleFunc("/debug/fields", h.DebugFields)
	mux.HandleFunc("/history", h.History)

	return RequestLog(CORS(Recover(mux)))
}

func (h *Handle) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Mahjong backend is running! POST an image to /analyze.",
	})
}

func (h *Handle) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
