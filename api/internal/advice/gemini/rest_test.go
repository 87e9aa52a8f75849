package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mahjong-advisor/api/internal/advice"
	"mahjong-advisor/api/internal/tiles"
)

func TestREST_Generate_Success(t *testing.T) {
	var gotReq map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Discard the north wind."},{"text":"ignored"}]}}]}`))
	}))
	defer srv.Close()

	c := NewREST("test-key", "gemini-1.5-flash", srv.URL+"/", srv.Client())
	out, err := c.Generate(context.Background(), "hand prompt")
	require.NoError(t, err)
	assert.Equal(t, "Discard the north wind.", out)

	contents := gotReq["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	assert.Equal(t, "hand prompt", parts[0].(map[string]any)["text"])

	gc := gotReq["generationConfig"].(map[string]any)
	assert.InDelta(t, 0.7, gc["temperature"], 1e-6)
	assert.EqualValues(t, 40, gc["topK"])
	assert.InDelta(t, 0.95, gc["topP"], 1e-6)
	assert.EqualValues(t, 1024, gc["maxOutputTokens"])
}

func TestREST_Generate_Errors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{"no candidates", 200, `{"candidates":[]}`, advice.ErrNoCandidates, "Unexpected Gemini API format."},
		{"missing candidates", 200, `{}`, advice.ErrNoCandidates, "Unexpected Gemini API format."},
		{"no parts", 200, `{"candidates":[{"content":{"parts":[]}}]}`, advice.ErrNoParts, "No response from Gemini."},
		{"no content", 200, `{"candidates":[{"finishReason":"SAFETY"}]}`, advice.ErrNoParts, "No response from Gemini."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewREST("k", "m", srv.URL, srv.Client()).Generate(context.Background(), "p")
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.message, advice.Message(err))
		})
	}
}

func TestREST_Generate_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	_, err := NewREST("k", "m", srv.URL, srv.Client()).Generate(context.Background(), "p")

	var se *advice.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Equal(t, `Gemini API error: 403 - {"error":{"message":"API key not valid"}}`, advice.Message(err))
}

func TestREST_Generate_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewREST("k", "m", srv.URL, srv.Client()).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, advice.Message(err), "Gemini API error: decode response")
}

func TestREST_Generate_MissingKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	_, err := NewREST("  ", "m", srv.URL, srv.Client()).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, advice.ErrMissingKey)
	assert.False(t, called)
}

func TestREST_Suggest_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r := advice.NewRequester(NewREST("k", "m", srv.URL, srv.Client()), "rules", 50*time.Millisecond)
	got := r.Suggest(context.Background(), tiles.Hand{"dots-1"})
	assert.Equal(t, "Gemini API request timed out.", got)
}
