package detect

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

// Process invokes an ultralytics-compatible CLI once per image.
type Process struct {
	Layout
	Command string
	Weights string
	Device  string
	// Timeout bounds a single run. Zero means no bound.
	Timeout time.Duration
}

func NewProcess(outputRoot, command, weights, device string, timeout time.Duration) *Process {
	return &Process{
		Layout:  Layout{OutputRoot: outputRoot},
		Command: command,
		Weights: weights,
		Device:  device,
		Timeout: timeout,
	}
}

func (p *Process) Name() string { return "process" }

func (p *Process) args(imagePath, runID string) []string {
	args := []string{
		"predict",
		"model=" + p.Weights,
		"source=" + imagePath,
		"project=" + p.OutputRoot,
		"name=" + runID,
		"save=False",
		"save_txt=True",
		"save_conf=True",
		"exist_ok=True",
	}
	if p.Device != "" {
		args = append(args, "device="+p.Device)
	}
	return args
}

func (p *Process) Detect(ctx context.Context, imagePath, runID string) (string, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	if err := os.MkdirAll(p.OutputRoot, 0o755); err != nil {
		return "", fmt.Errorf("%w: create output root: %v", ErrFailed, err)
	}

	cmd := exec.CommandContext(ctx, p.Command, p.args(imagePath, runID)...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	log.Info().Str("backend", p.Name()).Str("run_id", runID).Str("image", imagePath).Msg("running detector")
	if err := cmd.Run(); err != nil {
		log.Error().Err(err).Str("run_id", runID).Str("output", tail(out.Bytes())).Msg("detector failed")
		return "", fmt.Errorf("%w: %s: %v: %s", ErrFailed, p.Command, err, tail(out.Bytes()))
	}
	log.Info().Str("run_id", runID).Dur("took", time.Since(start)).Msg("detector done")

	return p.LabelPath(runID, imagePath), nil
}
