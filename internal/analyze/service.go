package analyze

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Alias1177/ChartPredictor/internal/analysis/prediction"
	"github.com/Alias1177/ChartPredictor/internal/cache"
	"github.com/Alias1177/ChartPredictor/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrImageTooLarge    = errors.New("image is too large")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrNotFound         = errors.New("analysis not found")
	ErrStoreDisabled    = errors.New("analysis history is not configured")
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

var supportedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ResultCache stores reconciled results between identical requests
type ResultCache interface {
	Get(ctx context.Context, key string) (models.PredictionResult, bool, error)
	Set(ctx context.Context, key string, result models.PredictionResult) error
}

// Request is a single chart analysis request
type Request struct {
	Image  []byte
	Hints  models.ChartHints
	UserID string
}

// Options configures a Service. Store and Cache are optional.
type Options struct {
	Reader        models.ChartReader
	Store         models.AnalysisStore
	Cache         ResultCache
	Timeout       time.Duration
	MaxImageBytes int
}

// Service turns chart images into validated predictions
type Service struct {
	reader        models.ChartReader
	store         models.AnalysisStore
	cache         ResultCache
	timeout       time.Duration
	maxImageBytes int
	now           func() time.Time
	logger        zerolog.Logger
}

// NewService creates the analysis service
func NewService(opts Options) *Service {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxImageBytes == 0 {
		opts.MaxImageBytes = 8 << 20
	}
	return &Service{
		reader:        opts.Reader,
		store:         opts.Store,
		cache:         opts.Cache,
		timeout:       opts.Timeout,
		maxImageBytes: opts.MaxImageBytes,
		now:           time.Now,
		logger:        log.With().Str("component", "analyze_service").Logger(),
	}
}

// HistoryEnabled reports whether analyses are persisted
func (s *Service) HistoryEnabled() bool {
	return s.store != nil
}

// Analyze reads the chart with the LLM and reconciles its answer. A failed or
// unusable LLM answer is not an error: the result falls back to the safe defaults
// and the analysis is marked degraded.
func (s *Service) Analyze(ctx context.Context, req Request) (*models.Analysis, error) {
	mimeType, err := s.checkImage(req.Image)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(req.Image)
	analysis := &models.Analysis{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		ImageRef:  hex.EncodeToString(sum[:]),
		Symbol:    strings.TrimSpace(req.Hints.Symbol),
		Timeframe: strings.TrimSpace(req.Hints.Timeframe),
		CreatedAt: s.now().UTC(),
	}
	hints := models.ChartHints{Symbol: analysis.Symbol, Timeframe: analysis.Timeframe}
	logger := s.logger.With().Str("analysis_id", analysis.ID).Str("image_ref", analysis.ImageRef[:12]).Logger()

	key := cache.Key(analysis.ImageRef, hints)
	if result, ok := s.cached(ctx, key); ok {
		logger.Debug().Msg("Cache hit")
		analysis.Result = result
		analysis.Cached = true
	} else {
		candidate := s.readChart(ctx, models.ChartImage{Data: req.Image, MIMEType: mimeType}, hints, logger)
		analysis.Degraded = candidate == nil
		analysis.Result = prediction.Reconcile(candidate, prediction.DefaultResult())

		if !analysis.Degraded && s.cache != nil {
			if err := s.cache.Set(ctx, key, analysis.Result); err != nil {
				logger.Warn().Err(err).Msg("Failed to cache result")
			}
		}
	}

	if s.store != nil && analysis.UserID != "" {
		if err := s.store.SaveAnalysis(ctx, analysis); err != nil {
			logger.Error().Err(err).Msg("Failed to save analysis")
		}
	}

	logger.Info().
		Str("trend", analysis.Result.TrendPrediction).
		Float64("confidence", analysis.Result.Confidence).
		Bool("degraded", analysis.Degraded).
		Bool("cached", analysis.Cached).
		Msg("Chart analyzed")

	return analysis, nil
}

func (s *Service) checkImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if len(data) > s.maxImageBytes {
		return "", fmt.Errorf("%w: %d bytes, limit is %d", ErrImageTooLarge, len(data), s.maxImageBytes)
	}
	mimeType := http.DetectContentType(data)
	if !supportedImageTypes[mimeType] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}
	return mimeType, nil
}

func (s *Service) cached(ctx context.Context, key string) (models.PredictionResult, bool) {
	if s.cache == nil {
		return models.PredictionResult{}, false
	}
	result, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Cache lookup failed")
		return models.PredictionResult{}, false
	}
	if !found {
		return models.PredictionResult{}, false
	}
	return prediction.Reconcile(prediction.CandidateFromResult(result), prediction.DefaultResult()), true
}

func (s *Service) readChart(ctx context.Context, image models.ChartImage, hints models.ChartHints, logger zerolog.Logger) prediction.Candidate {
	if s.reader == nil {
		logger.Warn().Msg("No chart reader configured, using defaults")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.reader.ReadChart(ctx, image, hints)
	if err != nil {
		logger.Warn().Err(err).Msg("Chart reader failed, using defaults")
		return nil
	}

	candidate := prediction.ParseCandidate(text)
	if candidate == nil {
		logger.Warn().Int("answer_len", len(text)).Msg("LLM answer has no JSON object, using defaults")
	}
	return candidate
}

// History returns a user's most recent analyses
func (s *Service) History(ctx context.Context, userID string, limit int) ([]models.Analysis, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	analyses, err := s.store.ListAnalyses(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return analyses, nil
}

// Get returns one of a user's analyses
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Analysis, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}

	analysis, err := s.store.GetAnalysis(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("loading analysis: %w", err)
	}
	if analysis == nil {
		return nil, ErrNotFound
	}
	return analysis, nil
}

// Delete removes one of a user's analyses
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if s.store == nil {
		return ErrStoreDisabled
	}

	deleted, err := s.store.DeleteAnalysis(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("deleting analysis: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// DecodeDataURI decodes a base64 data URI such as "data:image/png;base64,...".
// Plain base64 without the data: prefix is accepted as well.
func DecodeDataURI(uri string) ([]byte, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, ErrEmptyImage
	}

	payload := uri
	if strings.HasPrefix(uri, "data:") {
		meta, data, ok := strings.Cut(uri, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("%w: data URI must be base64 encoded", ErrUnsupportedImage)
		}
		payload = data
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrUnsupportedImage, err)
	}
	if len(decoded) == 0 {
		return nil, ErrEmptyImage
	}
	return decoded, nil
}
