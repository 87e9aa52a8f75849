// Package advice turns a detected hand into a discard suggestion.
//
// Failures of the advice service never reach the caller as errors: Suggest
// always returns text, and a failed call yields a human-readable message in
// place of the advice.
package advice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"mahjong-advisor/api/internal/tiles"
)

var (
	ErrMissingKey   = errors.New("GEMINI_API_KEY is empty")
	ErrTimeout      = errors.New("advice request timed out")
	ErrNoCandidates = errors.New("no candidates in response")
	ErrNoParts      = errors.New("no parts in first candidate")
)

// StatusError is a non-2xx answer from the advice service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("advice service status %d: %s", e.Code, e.Body)
}

// Generator performs one text generation call.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

type Requester struct {
	gen     Generator
	rules   string
	timeout time.Duration
}

func NewRequester(gen Generator, rules string, timeout time.Duration) *Requester {
	return &Requester{gen: gen, rules: rules, timeout: timeout}
}

// BuildPrompt embeds the hand and the ruleset qualifier into the question.
func BuildPrompt(rules string, hand tiles.Hand) string {
	return fmt.Sprintf("Given this Mahjong hand (%s): %s, suggest the best tile to discard and explain why.",
		rules, strings.Join(hand, ", "))
}

// Suggest makes exactly one call to the generator, bounded by the timeout.
func (r *Requester) Suggest(ctx context.Context, hand tiles.Hand) string {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := r.gen.Generate(ctx, BuildPrompt(r.rules, hand))
	if err != nil {
		log.Warn().Err(err).Str("generator", r.gen.Name()).Dur("took", time.Since(start)).Msg("advice failed")
		return Message(err)
	}
	log.Info().Str("generator", r.gen.Name()).Dur("took", time.Since(start)).Msg("advice received")
	return text
}

// Message maps a generator error to the text returned in place of advice.
func Message(err error) string {
	var se *StatusError
	switch {
	case errors.Is(err, ErrMissingKey):
		return "Error: GEMINI_API_KEY environment variable not set."
	case errors.As(err, &se):
		return fmt.Sprintf("Gemini API error: %d - %s", se.Code, se.Body)
	case IsTimeout(err):
		return "Gemini API request timed out."
	case errors.Is(err, ErrNoParts):
		return "No response from Gemini."
	case errors.Is(err, ErrNoCandidates):
		return "Unexpected Gemini API format."
	default:
		return "Gemini API error: " + err.Error()
	}
}

// IsTimeout reports deadline and network timeouts.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
