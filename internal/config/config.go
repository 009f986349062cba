package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LLM providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all application configuration
type Config struct {
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"console"` // console or json
	Port           string `env:"PORT" envDefault:"8080"`
	RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"60"` // seconds

	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"` // comma separated

	LLMProvider       string `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY" envDefault:"-"`
	OpenAIModel       string `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	GeminiAPIKey      string `env:"GEMINI_API_KEY" envDefault:"-"`
	GeminiModel       string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	LLMRequestsPerSec int    `env:"LLM_REQUESTS_PER_SEC" envDefault:"2"`

	MaxImageBytes int64 `env:"MAX_IMAGE_BYTES" envDefault:"8388608"`

	DB DBConfig

	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	JWTSecret        string `env:"AUTH_JWT_SECRET"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
}

// DBConfig holds PostgreSQL connection parameters
type DBConfig struct {
	Host     string `env:"DB_HOST"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// Enabled reports whether a database host is configured
func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvWithDefault("LOG_FORMAT", "console")
	cfg.Port = getEnvWithDefault("PORT", "8080")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 60)
	cfg.CORSOrigins = getEnvListWithDefault("CORS_ALLOWED_ORIGINS", []string{"*"})

	cfg.LLMProvider = strings.ToLower(getEnvWithDefault("LLM_PROVIDER", ProviderOpenAI))
	if cfg.LLMProvider != ProviderOpenAI && cfg.LLMProvider != ProviderGemini {
		log.Warn().Str("provider", cfg.LLMProvider).Msg("Unsupported LLM_PROVIDER, defaulting to openai")
		cfg.LLMProvider = ProviderOpenAI
	}
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getEnvWithDefault("OPENAI_MODEL", "gpt-4o")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiModel = getEnvWithDefault("GEMINI_MODEL", "gemini-2.0-flash")
	cfg.LLMRequestsPerSec = getEnvIntWithDefault("LLM_REQUESTS_PER_SEC", 2)

	cfg.MaxImageBytes = int64(getEnvIntWithDefault("MAX_IMAGE_BYTES", 8<<20))

	cfg.DB = DBConfig{
		Host:     os.Getenv("DB_HOST"),
		Port:     getEnvWithDefault("DB_PORT", "5432"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		SSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.CacheTTL = getEnvDurationWithDefault("CACHE_TTL", 24*time.Hour)

	cfg.JWTSecret = os.Getenv("AUTH_JWT_SECRET")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	if cfg.LLMProvider == ProviderOpenAI && cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, every analysis will fall back to defaults")
	}
	if cfg.LLMProvider == ProviderGemini && cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, every analysis will fall back to defaults")
	}

	return &cfg, nil
}

// SetupLogger configures the global zerolog logger from the config
func SetupLogger(cfg *Config) {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// Timeout returns the request timeout as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvListWithDefault(key string, defaultValue []string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
