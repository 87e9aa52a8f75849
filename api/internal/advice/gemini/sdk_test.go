package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"mahjong-advisor/api/internal/advice"
)

func TestSDK_MissingKey(t *testing.T) {
	_, err := NewSDK("", "gemini-1.5-flash").Generate(context.Background(), "p")
	assert.ErrorIs(t, err, advice.ErrMissingKey)
}

func TestClassify(t *testing.T) {
	ctx := context.Background()

	err := classify(ctx, fmt.Errorf("rpc: %w", &googleapi.Error{Code: 503, Body: "overloaded"}))
	var se *advice.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 503, se.Code)
	assert.Equal(t, "overloaded", se.Body)

	err = classify(ctx, &googleapi.Error{Code: 400, Message: "bad request"})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bad request", se.Body)

	expired, cancel := context.WithTimeout(ctx, 0)
	defer cancel()
	<-expired.Done()
	assert.ErrorIs(t, classify(expired, errors.New("stream closed")), advice.ErrTimeout)

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(ctx, plain))
}

func TestFirstText(t *testing.T) {
	_, err := firstText(nil)
	assert.ErrorIs(t, err, advice.ErrNoCandidates)

	_, err = firstText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, advice.ErrNoCandidates)

	_, err = firstText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.ErrorIs(t, err, advice.ErrNoParts)

	_, err = firstText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}})
	assert.ErrorIs(t, err, advice.ErrNoParts)

	got, err := firstText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{&genai.Blob{MIMEType: "image/png"}, genai.Text("discard dots-9")}}},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("second candidate")}}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "discard dots-9", got)
}
