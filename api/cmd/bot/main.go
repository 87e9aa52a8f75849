package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"mahjong-advisor/api/internal/app"
	"mahjong-advisor/api/internal/config"
	"mahjong-advisor/api/internal/httpserver"
	"mahjong-advisor/api/internal/logging"
	"mahjong-advisor/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	token := config.MustEnv("TELEGRAM_BOT_TOKEN")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer a.Close()

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram")
	}
	bot.Debug = false
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram authorized")

	r := &telegram.Router{
		Bot:           bot,
		Analyzer:      a.Analyzer,
		MaxPhotoBytes: cfg.MaxUploadBytes,
	}
	dispatch := func(upd tgbotapi.Update) {
		go r.HandleUpdate(ctx, upd)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	g, ctx := errgroup.WithContext(ctx)

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		path := telegram.WebhookPath(token)
		wh, err := tgbotapi.NewWebhook(strings.TrimRight(webhookURL, "/") + path)
		if err != nil {
			log.Fatal().Err(err).Msg("webhook")
		}
		wh.DropPendingUpdates = true
		if _, err := bot.Request(wh); err != nil {
			log.Fatal().Err(err).Msg("set webhook")
		}
		mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
			upd, err := bot.HandleUpdate(req)
			if err != nil {
				log.Warn().Err(err).Msg("webhook: bad update")
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			dispatch(*upd)
		})
		log.Info().Msg("webhook mode")
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn().Err(err).Msg("delete webhook")
		}
		g.Go(func() error {
			telegram.Poll(ctx, bot, dispatch)
			return nil
		})
		log.Info().Msg("polling mode")
	}

	g.Go(func() error {
		return httpserver.Run(ctx, httpserver.New(cfg.Addr(), mux))
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("bot stopped")
	}
}
