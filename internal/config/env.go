package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
	MinLevel      string
}

// ProviderConfig is the credential and model for one completion provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ProvidersConfig selects the completion engine and holds per-provider settings.
type ProvidersConfig struct {
	Engine    string // "gemini"|"openai"|"anthropic"
	Gemini    ProviderConfig
	OpenAI    ProviderConfig
	Anthropic ProviderConfig
}

// Active returns the settings of the selected engine.
func (p ProvidersConfig) Active() ProviderConfig {
	switch strings.ToLower(p.Engine) {
	case "openai":
		return p.OpenAI
	case "anthropic":
		return p.Anthropic
	default:
		return p.Gemini
	}
}

// AcquisitionConfig bounds PDF text extraction.
type AcquisitionConfig struct {
	MaxFileBytes int64
	PageCap      int
	MinChars     int
	Backend      string // "fitz"|"pure"
	S3Region     string
	S3AccessKey  string
	S3SecretKey  string
}

// GenerationConfig drives the plan generation request.
type GenerationConfig struct {
	MinInputChars  int
	RequestTimeout time.Duration
	Temperature    float64
	MaxTokens      int

	// MaxInflight caps concurrent requests per provider:model; 0 disables the cap.
	MaxInflight int
}

// WebConfig configures the browser UI.
type WebConfig struct {
	Port         string
	Username     string
	PasswordHash string
	CookieSecure bool
}

// SessionConfig configures where UI sessions live.
type SessionConfig struct {
	RedisURL string
	TTL      time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging     LoggingConfig
	Axiom       AxiomConfig
	Providers   ProvidersConfig
	Acquisition AcquisitionConfig
	Generation  GenerationConfig
	Web         WebConfig
	Session     SessionConfig
}

// Load reads an optional .env file and then builds the configuration from the environment.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// a missing .env is normal outside development
		_ = godotenv.Load(f)
	}
	return FromEnv()
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/lessonplanner.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_lessonplanner",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
		MinLevel:      getEnv("AXIOM_MIN_LEVEL", "info"),
	}

	cfg.Providers = ProvidersConfig{
		Engine: strings.ToLower(getEnv("PRIMARY_ENGINE", "gemini")),
		Gemini: ProviderConfig{
			// API_KEY is the name the browser build used
			APIKey: strings.TrimSpace(firstEnv("GEMINI_API_KEY", "API_KEY")),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-pro"),
		},
		OpenAI: ProviderConfig{
			APIKey:  strings.TrimSpace(getEnv("OPENAI_API_KEY", "")),
			Model:   getEnv("OPENAI_MODEL", "gpt-4.1"),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		},
		Anthropic: ProviderConfig{
			APIKey:  strings.TrimSpace(getEnv("ANTHROPIC_API_KEY", "")),
			Model:   getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
			BaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
		},
	}

	cfg.Acquisition = AcquisitionConfig{
		MaxFileBytes: int64(parseInt(getEnv("PDF_MAX_SIZE_MB", "5"), 5)) << 20,
		PageCap:      parseInt(getEnv("PDF_PAGE_CAP", "20"), 20),
		MinChars:     parseInt(getEnv("PDF_MIN_CHARS", "50"), 50),
		Backend:      strings.ToLower(getEnv("PDF_BACKEND", "fitz")),
		S3Region:     getEnv("AWS_REGION", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:  getEnv("S3_SECRET_ACCESS_KEY", ""),
	}

	cfg.Generation = GenerationConfig{
		MinInputChars:  parseInt(getEnv("MIN_INPUT_CHARS", "100"), 100),
		RequestTimeout: parseDuration(getEnv("REQUEST_TIMEOUT", "60s"), 60*time.Second),
		Temperature:    parseFloat(getEnv("TEMPERATURE", "0.7"), 0.7),
		MaxTokens:      parseInt(getEnv("MAX_TOKENS", "16384"), 16384),
		MaxInflight:    parseInt(getEnv("MAX_INFLIGHT", "4"), 4),
	}

	cfg.Web = WebConfig{
		Port:         getEnv("PORT", "8080"),
		Username:     getEnv("WEB_USERNAME", ""),
		PasswordHash: getEnv("WEB_PASSWORD_HASH", ""),
		CookieSecure: parseBool(getEnv("COOKIE_SECURE", "false")),
	}

	cfg.Session = SessionConfig{
		RedisURL: getEnv("REDIS_URL", ""),
		TTL:      parseDuration(getEnv("SESSION_TTL", "12h"), 12*time.Hour),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
