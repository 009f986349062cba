package database

import (
	"strings"
	"testing"

	"github.com/Alias1177/ChartPredictor/internal/analysis/prediction"
	"github.com/Alias1177/ChartPredictor/models"
)

func TestDSN(t *testing.T) {
	params := ConnectionParams{
		Host: "db", Port: "5432", User: "chart", Password: "secret", DBName: "charts", SSLMode: "disable",
	}
	want := "host=db port=5432 user=chart password=secret dbname=charts sslmode=disable"
	if got := params.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		check func(t *testing.T, r models.PredictionResult)
	}{
		{
			name: "valid stored row",
			data: `{"trendPrediction":"up","confidence":0.9,"explanationSummary":"Breakout above resistance."}`,
			check: func(t *testing.T, r models.PredictionResult) {
				if r.TrendPrediction != models.TrendUp || r.Confidence != 0.9 {
					t.Errorf("got trend %q confidence %v", r.TrendPrediction, r.Confidence)
				}
			},
		},
		{
			name: "tampered values fall back",
			data: `{"trendPrediction":"moon","confidence":7,"fullScientificAnalysis":"no warning"}`,
			check: func(t *testing.T, r models.PredictionResult) {
				if r.TrendPrediction != models.TrendNeutral || r.Confidence != 0.5 {
					t.Errorf("got trend %q confidence %v", r.TrendPrediction, r.Confidence)
				}
				if !strings.Contains(r.FullScientificAnalysis, prediction.Disclaimer) {
					t.Error("disclaimer missing")
				}
			},
		},
		{
			name: "corrupt json",
			data: `{"trend`,
			check: func(t *testing.T, r models.PredictionResult) {
				if r.TrendPrediction != models.TrendNeutral {
					t.Errorf("got trend %q, want defaults", r.TrendPrediction)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, decodeResult("a1", []byte(tt.data)))
		})
	}
}

func TestNullString(t *testing.T) {
	if nullString("").Valid {
		t.Error("empty string should be NULL")
	}
	if ns := nullString("EUR/USD"); !ns.Valid || ns.String != "EUR/USD" {
		t.Errorf("nullString() = %+v", ns)
	}
}
