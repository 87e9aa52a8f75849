package advice

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mahjong-advisor/api/internal/tiles"
)

type fakeGenerator struct {
	text    string
	err     error
	block   bool
	prompts []string
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", fmt.Errorf("http call: %w", ctx.Err())
	}
	return f.text, f.err
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("Singapore mahjong rules", tiles.Hand{"dots-1", "dots-1", "honors-red"})
	assert.Equal(t,
		"Given this Mahjong hand (Singapore mahjong rules): dots-1, dots-1, honors-red, suggest the best tile to discard and explain why.",
		got)
}

func TestSuggest_Success(t *testing.T) {
	gen := &fakeGenerator{text: "Discard honors-red."}
	r := NewRequester(gen, "Singapore mahjong rules", time.Second)

	assert.Equal(t, "Discard honors-red.", r.Suggest(context.Background(), tiles.Hand{"honors-red"}))
	assert.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "(Singapore mahjong rules): honors-red,")
}

func TestSuggest_Timeout(t *testing.T) {
	gen := &fakeGenerator{block: true}
	r := NewRequester(gen, "rules", 20*time.Millisecond)

	got := r.Suggest(context.Background(), tiles.Hand{"dots-1"})
	assert.Equal(t, "Gemini API request timed out.", got)
	assert.Len(t, gen.prompts, 1, "no retry")
}

func TestMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrMissingKey, "Error: GEMINI_API_KEY environment variable not set."},
		{fmt.Errorf("wrap: %w", &StatusError{Code: 429, Body: `{"error":"quota"}`}), `Gemini API error: 429 - {"error":"quota"}`},
		{ErrTimeout, "Gemini API request timed out."},
		{context.DeadlineExceeded, "Gemini API request timed out."},
		{ErrNoParts, "No response from Gemini."},
		{ErrNoCandidates, "Unexpected Gemini API format."},
		{errors.New("connection refused"), "Gemini API error: connection refused"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Message(c.err))
	}
}
