package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Alias1177/ChartPredictor/internal/analysis/prediction"
	"github.com/Alias1177/ChartPredictor/internal/analyze"
	"github.com/Alias1177/ChartPredictor/internal/auth"
	"github.com/Alias1177/ChartPredictor/models"
	"github.com/gin-gonic/gin"
)

var errBadRequest = errors.New("bad request")

type analyzeRequest struct {
	ImageDataURI string `json:"imageDataUri"`
	Symbol       string `json:"symbol"`
	Timeframe    string `json:"timeframe"`
}

// GetDefaults returns the safe default prediction
func (h *Handler) GetDefaults(c *gin.Context) {
	c.JSON(http.StatusOK, prediction.DefaultResult())
}

// Reconcile validates a raw model answer posted as the body and returns the
// trusted result. Bodies without a JSON object reconcile to the defaults.
func (h *Handler) Reconcile(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCandidateBytes))
	if err != nil {
		h.writeError(c, fmt.Errorf("%w: reading body: %w", errBadRequest, err))
		return
	}

	candidate := prediction.ParseCandidate(string(body))
	c.JSON(http.StatusOK, prediction.Reconcile(candidate, prediction.DefaultResult()))
}

// Analyze accepts a multipart upload (field "image") or a JSON body with a data URI
func (h *Handler) Analyze(c *gin.Context) {
	// base64 inflates the image by a third
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes*2)

	var (
		image []byte
		hints models.ChartHints
		err   error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		image, hints, err = h.readMultipart(c)
	} else {
		image, hints, err = readJSON(c)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	analysis, err := h.service.Analyze(c.Request.Context(), analyze.Request{
		Image:  image,
		Hints:  hints,
		UserID: auth.UserID(c),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *Handler) readMultipart(c *gin.Context) ([]byte, models.ChartHints, error) {
	hints := models.ChartHints{Symbol: c.PostForm("symbol"), Timeframe: c.PostForm("timeframe")}

	header, err := c.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, hints, err
		}
		return nil, hints, fmt.Errorf("%w: missing image file", analyze.ErrEmptyImage)
	}
	if header.Size > h.maxImageBytes {
		return nil, hints, fmt.Errorf("%w: %d bytes", analyze.ErrImageTooLarge, header.Size)
	}

	f, err := header.Open()
	if err != nil {
		return nil, hints, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, hints, fmt.Errorf("reading upload: %w", err)
	}
	return data, hints, nil
}

func readJSON(c *gin.Context) ([]byte, models.ChartHints, error) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, models.ChartHints{}, err
		}
		return nil, models.ChartHints{}, fmt.Errorf("%w: %w", errBadRequest, err)
	}

	hints := models.ChartHints{Symbol: req.Symbol, Timeframe: req.Timeframe}
	image, err := analyze.DecodeDataURI(req.ImageDataURI)
	return image, hints, err
}

// ListAnalyses returns the caller's recent analyses
func (h *Handler) ListAnalyses(c *gin.Context) {
	limit := analyze.DefaultHistoryLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > analyze.MaxHistoryLimit {
			h.writeError(c, fmt.Errorf("%w: limit must be between 1 and %d", errBadRequest, analyze.MaxHistoryLimit))
			return
		}
		limit = n
	}

	analyses, err := h.service.History(c.Request.Context(), auth.UserID(c), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}

func (h *Handler) GetAnalysis(c *gin.Context) {
	analysis, err := h.service.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (h *Handler) DeleteAnalysis(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
