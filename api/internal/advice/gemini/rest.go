package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"mahjong-advisor/api/internal/advice"
)

// REST calls {base}/v1beta/models/{model}:generateContent directly.
type REST struct {
	APIKey  string
	Model   string
	BaseURL string
	Config  GenerationConfig
	httpc   *http.Client
}

func NewREST(key, model, baseURL string, httpc *http.Client) *REST {
	if httpc == nil {
		httpc = &http.Client{}
	}
	return &REST{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: strings.TrimRight(baseURL, "/"),
		Config:  DefaultGenerationConfig(),
		httpc:   httpc,
	}
}

func (e *REST) Name() string { return "gemini-rest" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopK            int32   `json:"topK"`
	TopP            float32 `json:"topP"`
	MaxOutputTokens int32   `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (e *REST) Generate(ctx context.Context, prompt string) (string, error) {
	if e.APIKey == "" {
		return "", advice.ErrMissingKey
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     e.Config.Temperature,
			TopK:            e.Config.TopK,
			TopP:            e.Config.TopP,
			MaxOutputTokens: e.Config.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent", e.BaseURL, url.PathEscape(e.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		if terr := timeoutErr(ctx, err); terr != nil {
			return "", terr
		}
		return "", fmt.Errorf("http call: %w", err)
	}
	defer resp.Body.Close()

	log.Info().Int("status", resp.StatusCode).Str("model", e.Model).Msg("gemini response")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if terr := timeoutErr(ctx, err); terr != nil {
			return "", terr
		}
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &advice.StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", advice.ErrNoCandidates
	}
	parts := out.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", advice.ErrNoParts
	}
	return parts[0].Text, nil
}
