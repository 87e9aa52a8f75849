package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"mahjong-advisor/api/internal/analyze"
)

const maxMessageLen = 3900

var errPhotoTooLarge = errors.New("photo is too large")

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, image io.Reader, filename string) (analyze.Result, error)
}

type Router struct {
	Bot      Bot
	Analyzer Analyzer
	HTTP     *http.Client
	// MaxPhotoBytes caps downloads; <= 0 means no cap.
	MaxPhotoBytes int64
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}
	switch {
	case len(msg.Photo) > 0:
		// last size is the largest
		ph := msg.Photo[len(msg.Photo)-1]
		r.acceptImage(ctx, msg.Chat.ID, ph.FileID, "photo.jpg")
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptImage(ctx, msg.Chat.ID, msg.Document.FileID, msg.Document.FileName)
	case msg.Text != "":
		r.send(msg.Chat.ID, "Send me a photo of your mahjong hand.")
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, "Send a photo of your mahjong hand and I will list the tiles and suggest a discard.\nCommands: /health")
	case "health":
		r.send(cid, "✅ OK")
	default:
		r.send(cid, "Unknown command")
	}
}

func (r *Router) acceptImage(ctx context.Context, chatID int64, fileID, filename string) {
	logger := log.With().Int64("chat_id", chatID).Logger()

	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		logger.Error().Err(err).Msg("telegram: get file url")
		r.send(chatID, "Could not fetch the photo, please try again.")
		return
	}
	img, err := r.download(ctx, url)
	if err != nil {
		logger.Error().Err(err).Msg("telegram: download photo")
		if errors.Is(err, errPhotoTooLarge) {
			r.send(chatID, "Image file too large")
			return
		}
		r.send(chatID, "Could not fetch the photo, please try again.")
		return
	}

	r.send(chatID, "Photo received, analyzing your hand…")
	res, err := r.Analyzer.Analyze(ctx, bytes.NewReader(img), filename)
	if err != nil {
		logger.Error().Err(err).Msg("telegram: analyze")
		r.send(chatID, "Image processing failed: "+err.Error())
		return
	}
	r.send(chatID, FormatReply(res))
}

// FormatReply renders a result as a chat message.
func FormatReply(res analyze.Result) string {
	if !res.Detected {
		return res.Suggestion
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🀄 Tiles (%d): %s\n\n", len(res.Tiles), strings.Join(res.Tiles, ", "))
	b.WriteString(res.Suggestion)
	return b.String()
}

func (r *Router) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	if r.MaxPhotoBytes <= 0 {
		return io.ReadAll(resp.Body)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, r.MaxPhotoBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > r.MaxPhotoBytes {
		return nil, errPhotoTooLarge
	}
	return b, nil
}

func (r *Router) httpClient() *http.Client {
	if r.HTTP != nil {
		return r.HTTP
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (r *Router) send(chatID int64, text string) {
	text = truncate(text, maxMessageLen)
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram: send")
	}
}

// truncate cuts text to at most n bytes on a rune boundary and marks the cut.
func truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n] + "…"
}
