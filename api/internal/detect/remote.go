package detect

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"mahjong-advisor/api/internal/labels"
	"mahjong-advisor/api/internal/util"
)

// Remote posts the image to an inference server and writes the returned
// boxes as a YOLO label file, so callers see the same artifact as Process.
type Remote struct {
	Layout
	url    *url.URL
	client *http.Client
}

// Detection is one box in the inference server's response.
type Detection struct {
	Class      int     `json:"class"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"`
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

func NewRemote(outputRoot, _url string, client *http.Client) (*Remote, error) {
	u, err := url.Parse(_url)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q: scheme and host required", _url)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{Layout: Layout{OutputRoot: outputRoot}, url: u, client: client}, nil
}

func (r *Remote) Name() string { return "remote" }

func (r *Remote) Detect(ctx context.Context, imagePath, runID string) (string, error) {
	start := time.Now()
	dets, err := r.recognize(ctx, imagePath)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("remote detector failed")
		return "", fmt.Errorf("%w: %v", ErrFailed, err)
	}
	log.Info().Str("backend", r.Name()).Str("run_id", runID).Int("detections", len(dets)).
		Dur("took", time.Since(start)).Msg("detector done")

	labelPath := r.LabelPath(runID, imagePath)
	if len(dets) == 0 {
		// same as the CLI: no boxes, no label file
		return labelPath, nil
	}
	if err := writeLabels(labelPath, dets); err != nil {
		return "", fmt.Errorf("%w: write labels: %v", ErrFailed, err)
	}
	return labelPath, nil
}

func (r *Remote) recognize(ctx context.Context, imagePath string) ([]Detection, error) {
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(imagePath)))
	h.Set("Content-Type", util.SniffMimeHTTP(img))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}
	if _, err = part.Write(img); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	_url := r.url.JoinPath("/detect").String()
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, _url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	response, err := r.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		resp, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return nil, fmt.Errorf("server response status code: %d, body: %s", response.StatusCode, resp)
	}

	var resp detectResponse
	if err = json.NewDecoder(response.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}
	return resp.Detections, nil
}

func writeLabels(path string, dets []Detection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, d := range dets {
		if _, err := fmt.Fprintln(w, labels.Format(d.Class, d.X, d.Y, d.W, d.H, d.Confidence)); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
