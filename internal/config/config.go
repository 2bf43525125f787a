package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAPIKey means LLAMA_CLOUD_API_KEY is unset. The service cannot
// authenticate without it, so main treats it as fatal.
var ErrMissingAPIKey = errors.New("LLAMA_CLOUD_API_KEY is not set")

type Config struct {
	Port           string
	APIKey         string
	BaseURL        string // empty = the client's default endpoint
	ExtractMode    string
	PollInterval   time.Duration
	ExtractTimeout time.Duration // 0 = wait for the service
	MaxUploadBytes int64
	LogLevel       slog.Level
}

// Load reads the process environment. Call godotenv.Load first to pick up
// a .env file.
func Load() (Config, error) {
	cfg := Config{
		Port:        getenv("PORT", "8081"),
		APIKey:      strings.TrimSpace(os.Getenv("LLAMA_CLOUD_API_KEY")),
		BaseURL:     strings.TrimRight(os.Getenv("LLAMA_CLOUD_BASE_URL"), "/"),
		ExtractMode: strings.ToUpper(os.Getenv("EXTRACT_MODE")),
	}

	var err error
	if cfg.PollInterval, err = getenvDuration("EXTRACT_POLL_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ExtractTimeout, err = getenvDuration("EXTRACT_TIMEOUT", 0); err != nil {
		return Config{}, err
	}
	mb, err := getenvInt("MAX_UPLOAD_MB", 64)
	if err != nil {
		return Config{}, err
	}
	if mb <= 0 {
		return Config{}, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", mb)
	}
	cfg.MaxUploadBytes = int64(mb) << 20

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if cfg.APIKey == "" {
		return cfg, ErrMissingAPIKey
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func getenvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", k)
	}
	return d, nil
}
