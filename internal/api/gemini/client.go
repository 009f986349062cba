package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Alias1177/ChartPredictor/internal/gpt"
	"github.com/Alias1177/ChartPredictor/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ErrNotConfigured is returned when no API key was provided
var ErrNotConfigured = errors.New("gemini: api key not configured")

// Client reads charts with Google Gemini
type Client struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

// Options configures a Client
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Gemini client. Without an API key the client is created
// unconfigured and every ReadChart call returns ErrNotConfigured.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Model == "" {
		opts.Model = "gemini-2.0-flash"
	}
	c := &Client{
		model:  opts.Model,
		logger: log.With().Str("component", "gemini_client").Str("model", opts.Model).Logger(),
	}
	if opts.APIKey == "" {
		return c, nil
	}

	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	c.client = client
	return c, nil
}

// ReadChart sends the chart image to Gemini and returns its raw answer
func (c *Client) ReadChart(ctx context.Context, image models.ChartImage, hints models.ChartHints) (string, error) {
	if c.client == nil {
		return "", ErrNotConfigured
	}

	c.logger.Debug().Int("image_bytes", len(image.Data)).Str("symbol", hints.Symbol).Msg("Sending chart to Gemini")

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(gpt.FormatChartPrompt(hints)),
			genai.NewPartFromBytes(image.Data, image.MIMEType),
		}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(gpt.SystemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0.2),
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Gemini API error")
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		c.logger.Warn().Msg("Gemini returned no text")
	}
	return text, nil
}
