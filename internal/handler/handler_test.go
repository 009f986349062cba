package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Alias1177/ChartPredictor/internal/analysis/prediction"
	"github.com/Alias1177/ChartPredictor/internal/analyze"
	"github.com/Alias1177/ChartPredictor/internal/auth"
	"github.com/Alias1177/ChartPredictor/models"
	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRfake-chart")

type stubReader struct {
	answer string
}

func (s stubReader) ReadChart(context.Context, models.ChartImage, models.ChartHints) (string, error) {
	return s.answer, nil
}

type stubStore struct {
	saved map[string]models.Analysis
}

func (s *stubStore) SaveAnalysis(_ context.Context, a *models.Analysis) error {
	s.saved[a.ID] = *a
	return nil
}

func (s *stubStore) GetAnalysis(_ context.Context, userID, id string) (*models.Analysis, error) {
	a, ok := s.saved[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	return &a, nil
}

func (s *stubStore) ListAnalyses(_ context.Context, userID string, limit int) ([]models.Analysis, error) {
	out := []models.Analysis{}
	for _, a := range s.saved {
		if a.UserID == userID && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubStore) DeleteAnalysis(_ context.Context, userID, id string) (bool, error) {
	a, ok := s.saved[id]
	if !ok || a.UserID != userID {
		return false, nil
	}
	delete(s.saved, id)
	return true, nil
}

type testEnv struct {
	router *gin.Engine
	store  *stubStore
	token  string
}

func newTestEnv(t *testing.T, withAuth bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &stubStore{saved: map[string]models.Analysis{}}
	svc := analyze.NewService(analyze.Options{
		Reader:        stubReader{answer: `{"trendPrediction":"down","confidence":0.65,"riskLevel":"high"}`},
		Store:         store,
		Timeout:       time.Second,
		MaxImageBytes: 1024,
	})

	env := &testEnv{router: gin.New(), store: store}
	var tokens *auth.Manager
	if withAuth {
		tokens = auth.NewManager("test-secret")
		token, err := tokens.NewToken("u1", time.Hour)
		if err != nil {
			t.Fatalf("NewToken() error = %v", err)
		}
		env.token = token
	}
	New(svc, tokens, 1024).RegisterRoutes(env.router)
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %s", w.Body.String())
	}
	if body.Message == "" {
		t.Errorf("error %q has no message", body.Error)
	}
	return body.Error
}

func TestHealthAndDefaults(t *testing.T) {
	env := newTestEnv(t, false)

	if w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil)); w.Code != http.StatusOK {
		t.Errorf("/health status = %d", w.Code)
	}

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/defaults", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/api/defaults status = %d", w.Code)
	}
	var got models.PredictionResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if diff := cmp.Diff(prediction.DefaultResult(), got); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name      string
		body      string
		wantTrend string
	}{
		{name: "valid candidate", body: `{"trendPrediction":"sideways","confidence":0.4}`, wantTrend: models.TrendSideways},
		{name: "invalid values", body: `{"trendPrediction":"rocket","confidence":3}`, wantTrend: models.TrendNeutral},
		{name: "not json", body: `the model refused`, wantTrend: models.TrendNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(httptest.NewRequest(http.MethodPost, "/api/reconcile", strings.NewReader(tt.body)))
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			var got models.PredictionResult
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if got.TrendPrediction != tt.wantTrend {
				t.Errorf("trendPrediction = %q, want %q", got.TrendPrediction, tt.wantTrend)
			}
			if !strings.Contains(got.FullScientificAnalysis, prediction.Disclaimer) {
				t.Error("disclaimer missing")
			}
		})
	}
}

func multipartRequest(t *testing.T, image []byte, symbol string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if symbol != "" {
		mw.WriteField("symbol", symbol)
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "chart.png")
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		fw.Write(image)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyzeMultipart(t *testing.T) {
	env := newTestEnv(t, true)

	req := multipartRequest(t, pngImage, "ETH/USD")
	req.Header.Set("Authorization", "Bearer "+env.token)
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got models.Analysis
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if got.Result.TrendPrediction != models.TrendDown || got.Symbol != "ETH/USD" || got.UserID != "u1" {
		t.Errorf("unexpected analysis: %+v", got)
	}
	if _, ok := env.store.saved[got.ID]; !ok {
		t.Error("authenticated analysis should be stored")
	}
}

func TestAnalyzeJSON(t *testing.T) {
	env := newTestEnv(t, true)

	body, _ := json.Marshal(analyzeRequest{
		ImageDataURI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngImage),
		Timeframe:    "15m",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got models.Analysis
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if got.Timeframe != "15m" || got.UserID != "" {
		t.Errorf("unexpected analysis: %+v", got)
	}
	if len(env.store.saved) != 0 {
		t.Error("anonymous analysis must not be stored")
	}
}

func TestAnalyzeErrors(t *testing.T) {
	env := newTestEnv(t, false)

	jsonReq := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantCode   string
	}{
		{name: "missing file", req: multipartRequest(t, nil, "BTC"), wantStatus: http.StatusBadRequest, wantCode: "empty_image"},
		{name: "not an image", req: multipartRequest(t, []byte("hello world"), ""), wantStatus: http.StatusBadRequest, wantCode: "unsupported_image"},
		{name: "too large", req: multipartRequest(t, append(append([]byte{}, pngImage...), make([]byte, 1500)...), ""), wantStatus: http.StatusRequestEntityTooLarge, wantCode: "image_too_large"},
		{name: "broken json", req: jsonReq(`{"imageDataUri":`), wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "empty data uri", req: jsonReq(`{"imageDataUri":""}`), wantStatus: http.StatusBadRequest, wantCode: "empty_image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if code := decodeError(t, w); code != tt.wantCode {
				t.Errorf("error = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestHistoryRoutes(t *testing.T) {
	env := newTestEnv(t, true)
	withToken := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer "+env.token)
		return req
	}

	w := env.do(withToken(multipartRequest(t, pngImage, "")))
	var created models.Analysis
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if w := env.do(httptest.NewRequest(http.MethodGet, "/api/analyses", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated list status = %d, want 401", w.Code)
	}

	w = env.do(withToken(httptest.NewRequest(http.MethodGet, "/api/analyses?limit=5", nil)))
	var list struct {
		Analyses []models.Analysis `json:"analyses"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(list.Analyses) != 1 || list.Analyses[0].ID != created.ID {
		t.Errorf("list = %+v", list.Analyses)
	}

	if w := env.do(withToken(httptest.NewRequest(http.MethodGet, "/api/analyses?limit=0", nil))); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}

	if w := env.do(withToken(httptest.NewRequest(http.MethodGet, "/api/analyses/"+created.ID, nil))); w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}
	if w := env.do(withToken(httptest.NewRequest(http.MethodDelete, "/api/analyses/"+created.ID, nil))); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	w = env.do(withToken(httptest.NewRequest(http.MethodGet, "/api/analyses/"+created.ID, nil)))
	if w.Code != http.StatusNotFound || decodeError(t, w) != "not_found" {
		t.Errorf("get after delete status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestHistoryWithoutAuth(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/analyses", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if code := decodeError(t, w); code != "auth_disabled" {
		t.Errorf("error = %q", code)
	}
}
