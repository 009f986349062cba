package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/Alias1177/ChartPredictor/internal/gpt"
	"github.com/Alias1177/ChartPredictor/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// ErrNotConfigured is returned when no API key was provided
var ErrNotConfigured = errors.New("openai: api key not configured")

// Client wraps the OpenAI API client
type Client struct {
	client     *openai.Client
	model      string
	configured bool
	logger     zerolog.Logger
}

// Options configures a Client
type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient openai.HTTPDoer
}

// NewClient creates a new OpenAI client
func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}
	if opts.Model == "" {
		opts.Model = openai.GPT4o
	}

	return &Client{
		client:     openai.NewClientWithConfig(cfg),
		model:      opts.Model,
		configured: opts.APIKey != "",
		logger:     log.With().Str("component", "openai_client").Str("model", opts.Model).Logger(),
	}
}

// ReadChart sends the chart image to a vision model and returns its raw answer
func (c *Client) ReadChart(ctx context.Context, image models.ChartImage, hints models.ChartHints) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}

	dataURL := "data:" + image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(image.Data)

	c.logger.Debug().Int("image_bytes", len(image.Data)).Str("symbol", hints.Symbol).Msg("Sending chart to OpenAI")

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: 0.2,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: gpt.SystemPrompt,
				},
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{
							Type: openai.ChatMessagePartTypeText,
							Text: gpt.FormatChartPrompt(hints),
						},
						{
							Type: openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{
								URL:    dataURL,
								Detail: openai.ImageURLDetailHigh,
							},
						},
					},
				},
			},
		},
	)
	if err != nil {
		c.logger.Error().Err(err).Msg("OpenAI API error")
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.logger.Warn().Msg("OpenAI returned empty choices")
		return "", nil
	}

	c.logger.Debug().Int("total_tokens", resp.Usage.TotalTokens).Msg("OpenAI answered")
	return resp.Choices[0].Message.Content, nil
}
