package handle

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog/log"

	"mahjong-advisor/api/internal/tiles"
)

var errNoImagePart = errors.New("no file part named image")

type AnalyzeResponse struct {
	Tiles      tiles.Hand `json:"tiles"`
	Suggestion string     `json:"suggestion"`
	Status     string     `json:"status,omitempty"`
}

// Analyze accepts a multipart upload in field "image".
//
// An empty hand answers 200 without "status"; a full run adds
// "status":"success". Advice failures arrive as the suggestion text and never
// change the status code.
func (h *Handle) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	part, err := imagePart(r)
	if err != nil {
		code, msg := uploadError(err)
		log.Info().Err(err).Int("status", code).Msg("analyze: rejected upload")
		writeJSON(w, code, map[string]string{"error": msg})
		return
	}
	defer part.Close()
	filename := part.FileName()
	if filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No image file selected"})
		return
	}
	log.Info().Str("filename", filename).Msg("analyze: image received")

	res, err := h.analyzer.Analyze(r.Context(), part, filename)
	if err != nil {
		if tooLarge(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Image file too large"})
			return
		}
		log.Error().Err(err).Msg("analyze: image processing failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Image processing failed: " + err.Error()})
		return
	}

	out := AnalyzeResponse{Tiles: res.Tiles, Suggestion: res.Suggestion}
	if out.Tiles == nil {
		out.Tiles = tiles.Hand{}
	}
	if res.Detected {
		out.Status = "success"
	}
	writeJSON(w, http.StatusOK, out)
}

// imagePart streams the body up to the first part named "image" that carries
// a filename parameter, empty or not. Plain value fields named "image" are
// not uploads and are skipped.
func imagePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errNoImagePart
		}
		if err != nil {
			return nil, err
		}
		if p.FormName() == "image" && hasFilename(p) {
			return p, nil
		}
		_ = p.Close()
	}
}

func hasFilename(p *multipart.Part) bool {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}

func uploadError(err error) (int, string) {
	if tooLarge(err) {
		return http.StatusRequestEntityTooLarge, "Image file too large"
	}
	return http.StatusBadRequest, "No image file provided"
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || errors.Is(err, multipart.ErrMessageTooLarge)
}
