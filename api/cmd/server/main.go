package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"mahjong-advisor/api/internal/app"
	"mahjong-advisor/api/internal/config"
	"mahjong-advisor/api/internal/handle"
	"mahjong-advisor/api/internal/httpserver"
	"mahjong-advisor/api/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer a.Close()

	h := handle.New(a.Analyzer, cfg.MaxUploadBytes, a.HistoryReader())
	srv := httpserver.New(cfg.Addr(), h.Routes())

	if err := httpserver.Run(ctx, srv); err != nil {
		log.Error().Err(err).Msg("http server")
		return
	}
	log.Info().Msg("bye")
}
