package app

import (
	"context"
	"testing"

	"github.com/Alias1177/ChartPredictor/internal/api/gemini"
	"github.com/Alias1177/ChartPredictor/internal/api/openai"
	"github.com/Alias1177/ChartPredictor/internal/config"
	platformhttp "github.com/Alias1177/ChartPredictor/internal/platform/http"
	"github.com/alicebob/miniredis/v2"
)

func TestNewChartReader(t *testing.T) {
	client := platformhttp.NewClient(platformhttp.ClientOptions{})

	tests := []struct {
		name     string
		provider string
		check    func(t *testing.T, reader any)
	}{
		{
			name:     "openai",
			provider: config.ProviderOpenAI,
			check: func(t *testing.T, reader any) {
				if _, ok := reader.(*openai.Client); !ok {
					t.Errorf("reader = %T, want *openai.Client", reader)
				}
			},
		},
		{
			name:     "gemini",
			provider: config.ProviderGemini,
			check: func(t *testing.T, reader any) {
				if _, ok := reader.(*gemini.Client); !ok {
					t.Errorf("reader = %T, want *gemini.Client", reader)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{LLMProvider: tt.provider, GeminiAPIKey: "key", OpenAIAPIKey: "key"}
			reader, err := NewChartReader(context.Background(), cfg, client)
			if err != nil {
				t.Fatalf("NewChartReader() error = %v", err)
			}
			tt.check(t, reader)
		})
	}
}

func TestNewWithoutBackends(t *testing.T) {
	cfg := &config.Config{LLMProvider: config.ProviderOpenAI, RequestTimeout: 5}

	a, err := New(context.Background(), cfg, Options{WithStore: true, WithCache: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Service.HistoryEnabled() {
		t.Error("history should be disabled without DB_HOST")
	}
	if a.Tokens != nil {
		t.Error("tokens should be nil without AUTH_JWT_SECRET")
	}
}

func TestNewWithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		LLMProvider:    config.ProviderOpenAI,
		RequestTimeout: 5,
		RedisURL:       "redis://" + mr.Addr(),
		JWTSecret:      "secret",
	}

	a, err := New(context.Background(), cfg, Options{WithCache: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if a.Tokens == nil {
		t.Error("tokens should be configured")
	}
	if len(a.closers) != 1 {
		t.Errorf("closers = %d, want the redis connection", len(a.closers))
	}
}
