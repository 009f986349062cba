package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Alias1177/ChartPredictor/internal/analyze"
	"github.com/Alias1177/ChartPredictor/internal/api/gemini"
	"github.com/Alias1177/ChartPredictor/internal/api/openai"
	"github.com/Alias1177/ChartPredictor/internal/auth"
	"github.com/Alias1177/ChartPredictor/internal/cache"
	"github.com/Alias1177/ChartPredictor/internal/config"
	"github.com/Alias1177/ChartPredictor/internal/database"
	platformhttp "github.com/Alias1177/ChartPredictor/internal/platform/http"
	"github.com/Alias1177/ChartPredictor/models"
	"github.com/rs/zerolog/log"
)

// App holds the wired components shared by the server, the bot and the CLI
type App struct {
	Config     *config.Config
	Service    *analyze.Service
	HTTPClient *platformhttp.Client
	Tokens     *auth.Manager

	closers []func() error
}

// Options selects which optional backends to connect
type Options struct {
	WithStore bool
	WithCache bool
}

// New connects the configured backends and builds the analysis service. The
// caller must register the postgres driver when WithStore is set.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{
		Config: cfg,
		HTTPClient: platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout:        cfg.Timeout(),
			RequestsPerSec: cfg.LLMRequestsPerSec,
		}),
	}
	if cfg.JWTSecret != "" {
		a.Tokens = auth.NewManager(cfg.JWTSecret)
	}

	reader, err := NewChartReader(ctx, cfg, a.HTTPClient)
	if err != nil {
		return nil, err
	}
	svcOpts := analyze.Options{
		Reader:        reader,
		Timeout:       cfg.Timeout(),
		MaxImageBytes: int(cfg.MaxImageBytes),
	}

	if opts.WithStore && cfg.DB.Enabled() {
		db, err := database.New(ctx, database.ConnectionParams{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			User:     cfg.DB.User,
			Password: cfg.DB.Password,
			DBName:   cfg.DB.Name,
			SSLMode:  cfg.DB.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		svcOpts.Store = db
		log.Info().Str("host", cfg.DB.Host).Str("db", cfg.DB.Name).Msg("Analysis history enabled")
	}

	if opts.WithCache && cfg.RedisURL != "" {
		rc, err := cache.Connect(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("initializing cache: %w", err)
		}
		a.closers = append(a.closers, rc.Close)
		svcOpts.Cache = rc
		log.Info().Dur("ttl", cfg.CacheTTL).Msg("Result cache enabled")
	}

	a.Service = analyze.NewService(svcOpts)
	return a, nil
}

// NewChartReader builds the LLM client selected by LLM_PROVIDER. Both clients send
// their requests through the rate limited retrying client.
func NewChartReader(ctx context.Context, cfg *config.Config, client *platformhttp.Client) (models.ChartReader, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		reader, err := gemini.NewClient(ctx, gemini.Options{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			HTTPClient: &http.Client{Transport: client},
		})
		if err != nil {
			return nil, fmt.Errorf("initializing gemini client: %w", err)
		}
		return reader, nil
	default:
		return openai.NewClient(openai.Options{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			HTTPClient: client,
		}), nil
	}
}

// Close releases connections in reverse order
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Error closing resource")
		}
	}
	a.closers = nil
}
