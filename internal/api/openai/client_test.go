package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Alias1177/ChartPredictor/models"
)

func TestReadChart(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"trendPrediction\":\"up\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: server.URL})

	got, err := client.ReadChart(context.Background(),
		models.ChartImage{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"},
		models.ChartHints{Symbol: "BTC/USD"})
	if err != nil {
		t.Fatalf("ReadChart() error = %v", err)
	}
	if got != `{"trendPrediction":"up"}` {
		t.Errorf("ReadChart() = %q", got)
	}

	if gotBody["model"] != "gpt-4o" {
		t.Errorf("model = %v, want gpt-4o", gotBody["model"])
	}
	raw, _ := json.Marshal(gotBody["messages"])
	if !strings.Contains(string(raw), "data:image/png;base64,iVBORw") {
		t.Errorf("request does not carry the image as a data URL: %s", raw)
	}
	if !strings.Contains(string(raw), "Instrument: BTC/USD") {
		t.Errorf("request does not carry the symbol hint: %s", raw)
	}
}

func TestReadChartNotConfigured(t *testing.T) {
	client := NewClient(Options{})

	_, err := client.ReadChart(context.Background(), models.ChartImage{}, models.ChartHints{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("ReadChart() error = %v, want ErrNotConfigured", err)
	}
}

func TestReadChartAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "bad", BaseURL: server.URL})

	if _, err := client.ReadChart(context.Background(), models.ChartImage{MIMEType: "image/png"}, models.ChartHints{}); err == nil {
		t.Error("expected an error")
	}
}
