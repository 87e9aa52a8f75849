package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port string

	LogLevel  string
	LogFormat string

	GeminiAPIKey    string
	GeminiModel     string
	GeminiBaseURL   string
	AdviceTransport string
	AdviceTimeout   time.Duration
	Rules           string

	DetectBackend  string
	YOLOCommand    string
	YOLOWeights    string
	YOLODevice     string
	DetectURL      string
	DetectTimeout  time.Duration
	OutputDir      string
	UploadDir      string
	KeepDetections bool
	MaxUploadBytes int64

	DatabaseURL string

	TelegramBotToken string
	WebhookURL       string
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// MustEnv exits when k is unset. Only the bot binary has hard requirements.
func MustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		log.Fatal().Str("env", k).Msg("missing required env")
	}
	return v
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	raw := getEnv(k, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		// bare integers are seconds
		n, nerr := strconv.Atoi(raw)
		if nerr != nil || n < 0 {
			return 0, fmt.Errorf("invalid %s %q: %w", k, raw, err)
		}
		d = time.Duration(n) * time.Second
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: negative", k, raw)
	}
	return d, nil
}

func getBool(k string, def bool) (bool, error) {
	raw := getEnv(k, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", k, raw, err)
	}
	return v, nil
}

// Load reads the process environment, after merging an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		Port: getEnv("PORT", "10000"),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		AdviceTransport: strings.ToLower(getEnv("ADVICE_TRANSPORT", "rest")),
		Rules:           getEnv("MAHJONG_RULES", "Singapore mahjong rules"),

		DetectBackend: strings.ToLower(getEnv("DETECT_BACKEND", "process")),
		YOLOCommand:   getEnv("YOLO_COMMAND", "yolo"),
		YOLOWeights:   getEnv("YOLO_WEIGHTS", "yolo_weights/best.pt"),
		YOLODevice:    getEnv("YOLO_DEVICE", "cpu"),
		DetectURL:     getEnv("DETECT_URL", "http://localhost:8000"),
		OutputDir:     getEnv("DETECT_OUTPUT_DIR", "yolo_output"),
		UploadDir:     getEnv("UPLOAD_DIR", os.TempDir()),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}

	var err error
	if c.AdviceTimeout, err = getDuration("ADVICE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if c.DetectTimeout, err = getDuration("DETECT_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if c.KeepDetections, err = getBool("KEEP_DETECTIONS", false); err != nil {
		return nil, err
	}

	mb, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "16"))
	if err != nil || mb <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB %q", os.Getenv("MAX_UPLOAD_MB"))
	}
	c.MaxUploadBytes = int64(mb) << 20

	switch c.AdviceTransport {
	case "rest", "sdk":
	default:
		return nil, fmt.Errorf("invalid ADVICE_TRANSPORT %q: want rest or sdk", c.AdviceTransport)
	}
	switch c.DetectBackend {
	case "process", "remote":
	default:
		return nil, fmt.Errorf("invalid DETECT_BACKEND %q: want process or remote", c.DetectBackend)
	}

	if p := strings.TrimPrefix(c.Port, ":"); p != c.Port {
		c.Port = p
	}
	return c, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return "0.0.0.0:" + c.Port
}
