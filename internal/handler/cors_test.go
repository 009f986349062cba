package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{name: "any origin", origins: []string{"*"}, origin: "https://charts.example.com", want: "*"},
		{name: "allowed origin", origins: []string{"https://app.example.com"}, origin: "https://app.example.com", want: "https://app.example.com"},
		{name: "other origin", origins: []string{"https://app.example.com"}, origin: "https://evil.example.com", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.origins))
			r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}
