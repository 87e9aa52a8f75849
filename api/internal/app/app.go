// Package app wires the pipeline from configuration. Both binaries share it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"mahjong-advisor/api/internal/advice"
	"mahjong-advisor/api/internal/advice/gemini"
	"mahjong-advisor/api/internal/analyze"
	"mahjong-advisor/api/internal/config"
	"mahjong-advisor/api/internal/detect"
	"mahjong-advisor/api/internal/handle"
	"mahjong-advisor/api/internal/store"
)

type App struct {
	Config   *config.Config
	Analyzer *analyze.Service
	// History is nil when DATABASE_URL is unset.
	History *store.HistoryRepo

	db *sql.DB
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	det, err := NewDetector(cfg)
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	gen := NewGenerator(cfg)
	requester := advice.NewRequester(gen, cfg.Rules, cfg.AdviceTimeout)

	a := &App{Config: cfg}
	opts := []analyze.Option{analyze.WithKeepDetections(cfg.KeepDetections)}

	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.History = store.NewHistoryRepo(db)
		opts = append(opts, analyze.WithRecorder(a.History))
		log.Info().Msg("analysis history enabled")
	}

	a.Analyzer = analyze.New(det, requester, cfg.UploadDir, opts...)
	log.Info().
		Str("detector", det.Name()).
		Str("advice", gen.Name()).
		Str("model", cfg.GeminiModel).
		Msg("pipeline ready")
	return a, nil
}

func NewDetector(cfg *config.Config) (detect.Detector, error) {
	switch cfg.DetectBackend {
	case "remote":
		r, err := detect.NewRemote(cfg.OutputDir, cfg.DetectURL, &http.Client{Timeout: cfg.DetectTimeout})
		if err != nil {
			return nil, err
		}
		return r, nil
	case "process", "":
		return detect.NewProcess(cfg.OutputDir, cfg.YOLOCommand, cfg.YOLOWeights, cfg.YOLODevice, cfg.DetectTimeout), nil
	default:
		return nil, fmt.Errorf("unknown detect backend %q", cfg.DetectBackend)
	}
}

func NewGenerator(cfg *config.Config) advice.Generator {
	if cfg.AdviceTransport == "sdk" {
		return gemini.NewSDK(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	return gemini.NewREST(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, nil)
}

// HistoryReader returns nil (not a typed nil) when history is disabled.
func (a *App) HistoryReader() handle.HistoryReader {
	if a.History == nil {
		return nil
	}
	return a.History
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
