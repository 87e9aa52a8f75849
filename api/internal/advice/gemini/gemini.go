// Package gemini implements advice.Generator against the Gemini
// generateContent API, either over raw REST or through the Go SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"mahjong-advisor/api/internal/advice"
)

// GenerationConfig holds the sampling parameters sent with every call.
type GenerationConfig struct {
	Temperature     float32
	TopK            int32
	TopP            float32
	MaxOutputTokens int32
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
	}
}

// timeoutErr prefers the context's verdict: transports report a cancelled
// deadline in several different shapes.
func timeoutErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || advice.IsTimeout(err) {
		return fmt.Errorf("%w: %v", advice.ErrTimeout, err)
	}
	return nil
}
