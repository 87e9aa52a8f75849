package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mahjong-advisor/api/internal/advice"
)

// SDK goes through github.com/google/generative-ai-go.
type SDK struct {
	APIKey string
	Model  string
	Config GenerationConfig
	opts   []option.ClientOption
}

func NewSDK(apiKey, model string, opts ...option.ClientOption) *SDK {
	return &SDK{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
		Config: DefaultGenerationConfig(),
		opts:   opts,
	}
}

func (e *SDK) Name() string { return "gemini-sdk" }

func (e *SDK) Generate(ctx context.Context, prompt string) (string, error) {
	if e.APIKey == "" {
		return "", advice.ErrMissingKey
	}
	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.SetTemperature(e.Config.Temperature)
	m.SetTopK(e.Config.TopK)
	m.SetTopP(e.Config.TopP)
	m.SetMaxOutputTokens(e.Config.MaxOutputTokens)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classify(ctx, err)
	}
	return firstText(resp)
}

func classify(ctx context.Context, err error) error {
	if terr := timeoutErr(ctx, err); terr != nil {
		return terr
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		body := ge.Body
		if body == "" {
			body = ge.Message
		}
		return &advice.StatusError{Code: ge.Code, Body: body}
	}
	return err
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", advice.ErrNoCandidates
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return "", advice.ErrNoParts
	}
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			return string(t), nil
		}
	}
	return "", advice.ErrNoParts
}
