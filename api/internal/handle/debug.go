package handle

import (
	"net/http"
	"sort"
)

// DebugFields echoes the multipart field names it received. It exists to
// diagnose clients that send the image under the wrong name.
func (h *Handle) DebugFields(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad multipart form: " + err.Error()})
		return
	}
	fields := []string{}
	files := []string{}
	for k := range r.MultipartForm.Value {
		fields = append(fields, k)
	}
	for k := range r.MultipartForm.File {
		files = append(files, k)
	}
	sort.Strings(fields)
	sort.Strings(files)
	writeJSON(w, http.StatusOK, map[string][]string{"fields": fields, "files": files})
}
