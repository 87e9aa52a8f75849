// Package analyze runs one photo through detection, label parsing and advice.
package analyze

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"mahjong-advisor/api/internal/detect"
	"mahjong-advisor/api/internal/labels"
	"mahjong-advisor/api/internal/store"
	"mahjong-advisor/api/internal/tiles"
	"mahjong-advisor/api/internal/util"
)

// NoTilesGuidance replaces the advice when nothing was detected.
const NoTilesGuidance = "No mahjong tiles were detected in the image. Please ensure the image is clear and contains visible mahjong tiles."

type Stage string

const (
	StageStore  Stage = "store"
	StageDetect Stage = "detect"
)

// StageError is a failure that aborts the pipeline.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

type Advisor interface {
	Suggest(ctx context.Context, hand tiles.Hand) string
}

type Recorder interface {
	Record(ctx context.Context, e store.Entry) error
}

type Result struct {
	ID         string
	Tiles      tiles.Hand
	Suggestion string
	// Detected is false when the hand came back empty and no advice was requested.
	Detected  bool
	ImageHash string
}

type Service struct {
	detector       detect.Detector
	advisor        Advisor
	uploadDir      string
	keepDetections bool
	recorder       Recorder
}

type Option func(*Service)

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithKeepDetections leaves <output-root>/<run-id> on disk after parsing.
func WithKeepDetections(keep bool) Option {
	return func(s *Service) { s.keepDetections = keep }
}

func New(d detect.Detector, a Advisor, uploadDir string, opts ...Option) *Service {
	s := &Service{detector: d, advisor: a, uploadDir: uploadDir}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Analyze runs the pipeline for one uploaded image. Every temp file and run
// directory is named after a fresh uuid, so concurrent calls never share paths.
// The temp image is removed on every return path.
//
// Cancelling ctx does not stop detection or the advice call once started.
func (s *Service) Analyze(ctx context.Context, image io.Reader, filename string) (Result, error) {
	ctx = context.WithoutCancel(ctx)

	id := uuid.NewString()
	tempPath := filepath.Join(s.uploadDir, "temp_"+id+util.ImageExt(filename))
	runID := "predict_" + id
	logger := log.With().Str("analysis_id", id).Logger()

	defer s.removeTemp(tempPath, logger)

	hash, err := s.storeImage(image, tempPath)
	if err != nil {
		logger.Error().Err(err).Msg("store image")
		return Result{}, &StageError{Stage: StageStore, Err: err}
	}
	logger.Info().Str("path", tempPath).Msg("image saved")

	if !s.keepDetections {
		defer s.removeRunDir(runID, logger)
	}

	labelPath, err := s.detector.Detect(ctx, tempPath, runID)
	if err != nil {
		return Result{}, &StageError{Stage: StageDetect, Err: err}
	}

	hand := labels.Parse(labelPath)
	res := Result{ID: id, Tiles: hand, ImageHash: hash}
	if hand.Empty() {
		logger.Info().Msg("no tiles detected, skipping advice")
		res.Suggestion = NoTilesGuidance
	} else {
		logger.Info().Int("tiles", len(hand)).Msg("requesting advice")
		res.Detected = true
		res.Suggestion = s.advisor.Suggest(ctx, hand)
	}

	s.record(ctx, res, logger)
	return res, nil
}

func (s *Service) storeImage(image io.Reader, path string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, h), image); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Service) removeTemp(path string, logger zerolog.Logger) {
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("temp file cleanup failed")
		}
		return
	}
	logger.Info().Str("path", path).Msg("temp file cleaned up")
}

func (s *Service) removeRunDir(runID string, logger zerolog.Logger) {
	if err := os.RemoveAll(s.detector.RunDir(runID)); err != nil {
		logger.Warn().Err(err).Str("run_id", runID).Msg("detection output cleanup failed")
	}
}

func (s *Service) record(ctx context.Context, res Result, logger zerolog.Logger) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := s.recorder.Record(ctx, store.Entry{
		ImageHash:  res.ImageHash,
		Backend:    s.detector.Name(),
		Tiles:      res.Tiles,
		Suggestion: res.Suggestion,
		Detected:   res.Detected,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("record analysis")
	}
}
