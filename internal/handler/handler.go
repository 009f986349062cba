package handler

import (
	"errors"
	"net/http"

	"github.com/Alias1177/ChartPredictor/internal/analyze"
	"github.com/Alias1177/ChartPredictor/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxCandidateBytes = 1 << 20

type Handler struct {
	service       *analyze.Service
	tokens        *auth.Manager
	maxImageBytes int64
	logger        zerolog.Logger
}

// New creates the HTTP handlers. tokens may be nil, in which case the history
// routes answer 503.
func New(service *analyze.Service, tokens *auth.Manager, maxImageBytes int64) *Handler {
	if maxImageBytes <= 0 {
		maxImageBytes = 8 << 20
	}
	return &Handler{
		service:       service,
		tokens:        tokens,
		maxImageBytes: maxImageBytes,
		logger:        log.With().Str("component", "http_handler").Logger(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/defaults", h.GetDefaults)
	api.POST("/reconcile", h.Reconcile)

	if h.tokens == nil {
		api.POST("/analyze", h.Analyze)
		history := api.Group("/analyses", authDisabled)
		history.GET("", h.ListAnalyses)
		history.GET("/:id", h.GetAnalysis)
		history.DELETE("/:id", h.DeleteAnalysis)
		return
	}

	api.POST("/analyze", auth.OptionalMiddleware(h.tokens), h.Analyze)
	history := api.Group("/analyses", auth.Middleware(h.tokens))
	history.GET("", h.ListAnalyses)
	history.GET("/:id", h.GetAnalysis)
	history.DELETE("/:id", h.DeleteAnalysis)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func authDisabled(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
		"error":   "auth_disabled",
		"message": "authentication is not configured",
	})
}

// writeError maps service errors to status codes and the {"error","message"} body
func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal"

	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, analyze.ErrEmptyImage):
		status, code = http.StatusBadRequest, "empty_image"
	case errors.Is(err, analyze.ErrUnsupportedImage):
		status, code = http.StatusBadRequest, "unsupported_image"
	case errors.Is(err, analyze.ErrImageTooLarge), errors.As(err, &tooBig):
		status, code = http.StatusRequestEntityTooLarge, "image_too_large"
	case errors.Is(err, analyze.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, analyze.ErrStoreDisabled):
		status, code = http.StatusServiceUnavailable, "history_disabled"
	case errors.Is(err, errBadRequest):
		status, code = http.StatusBadRequest, "bad_request"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}
