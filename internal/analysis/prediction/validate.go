package prediction

import (
	"encoding/json"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Alias1177/ChartPredictor/models"
)

type enum map[string]struct{}

func enumOf(values ...string) enum {
	e := make(enum, len(values))
	for _, v := range values {
		e[v] = struct{}{}
	}
	return e
}

// match reports whether v is a string member of the set
func (e enum) match(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	_, ok = e[s]
	return s, ok
}

// Allowed values per field. Matching is exact and case sensitive.
var (
	trendPredictions = enumOf(models.TrendUp, models.TrendDown, models.TrendSideways, models.TrendNeutral)
	riskLevels       = enumOf(models.RiskLow, models.RiskMedium, models.RiskHigh)
	recommendations  = enumOf(models.RecommendBuy, models.RecommendHold, models.RecommendAvoid, models.RecommendNeutral)
	trendDirections  = enumOf("Uptrend", "Downtrend", "Sideways", "Neutral")
	volumeStatuses   = enumOf("High", "Low", "Average", "Increasing", "Decreasing", "Not Visible")
	tradeAssessments = enumOf("Good", "Medium", "Bad", "Neutral")
	volatilityLevels = enumOf("low", "normal", "high", "extreme")
	sentiments       = enumOf("bullish", "bearish", "neutral")
)

// TrendPredictions lists the accepted trendPrediction values, for prompts
func TrendPredictions() []string {
	return []string{models.TrendUp, models.TrendDown, models.TrendSideways, models.TrendNeutral}
}

// VolumeStatuses lists the accepted volumeAndMomentum.volumeStatus values, for prompts
func VolumeStatuses() []string {
	return []string{"High", "Low", "Average", "Increasing", "Decreasing", "Not Visible"}
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, t != nil
	case Candidate:
		return t, t != nil
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, t != nil
	case []string:
		if t == nil {
			return nil, false
		}
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		if t == nil {
			return nil, false
		}
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

// asNumber accepts any finite Go or JSON number
func asNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func numberInRange(v any, min, max float64) (float64, bool) {
	f, ok := asNumber(v)
	if !ok || f < min || f > max {
		return 0, false
	}
	return f, true
}

func numberAtLeast(v any, min float64) (float64, bool) {
	return numberInRange(v, min, math.MaxFloat64)
}

// flooredAtLeast floors v and rejects it when the floored value is below min
func flooredAtLeast(v any, min int) (int, bool) {
	f, ok := asNumber(v)
	if !ok {
		return 0, false
	}
	f = math.Floor(f)
	if f < float64(min) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// nonEmptyString returns v unchanged when it is a string with content after trimming
func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// nonEmptyStrings accepts a list only when it has at least one element and every
// element is a non-empty string. There is no per-element filtering.
func nonEmptyStrings(v any) ([]string, bool) {
	list, ok := asList(v)
	if !ok || len(list) == 0 {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := nonEmptyString(item)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// truncate keeps the first max characters of s
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func asPattern(v any) (models.CandlestickPattern, bool) {
	obj, ok := asObject(v)
	if !ok {
		return models.CandlestickPattern{}, false
	}
	name, ok := nonEmptyString(obj["name"])
	if !ok {
		return models.CandlestickPattern{}, false
	}
	implications, ok := obj["implications"].(string)
	if !ok {
		return models.CandlestickPattern{}, false
	}
	count, ok := flooredAtLeast(obj["candleCount"], 1)
	if !ok {
		return models.CandlestickPattern{}, false
	}
	weak, ok := obj["isStatisticallyWeakOrNeutral"].(bool)
	if !ok {
		return models.CandlestickPattern{}, false
	}
	return models.CandlestickPattern{
		Name:                         name,
		Implications:                 implications,
		CandleCount:                  count,
		IsStatisticallyWeakOrNeutral: weak,
	}, true
}

func asKeyIndicator(v any) (models.KeyIndicator, bool) {
	obj, ok := asObject(v)
	if !ok {
		return models.KeyIndicator{}, false
	}
	name, ok := nonEmptyString(obj["name"])
	if !ok {
		return models.KeyIndicator{}, false
	}
	value, ok := nonEmptyString(obj["value"])
	if !ok {
		return models.KeyIndicator{}, false
	}
	indicator := models.KeyIndicator{Name: name, Value: value}
	// an unknown sentiment is dropped, the indicator itself is kept
	if sentiment, ok := sentiments.match(obj["sentiment"]); ok {
		indicator.Sentiment = sentiment
	}
	return indicator, true
}

// filterList keeps the elements of v accepted by pick. ok is false when v is not a list.
func filterList[T any](v any, pick func(any) (T, bool)) ([]T, bool) {
	list, ok := asList(v)
	if !ok {
		return nil, false
	}
	out := make([]T, 0, len(list))
	for _, item := range list {
		if el, ok := pick(item); ok {
			out = append(out, el)
		}
	}
	return out, true
}
