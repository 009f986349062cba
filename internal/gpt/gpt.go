package gpt

import (
	"fmt"
	"strings"

	"github.com/Alias1177/ChartPredictor/internal/analysis/prediction"
	"github.com/Alias1177/ChartPredictor/models"
)

// SystemPrompt tells the model who it is and the exact JSON it must return
var SystemPrompt = `You are an expert technical analyst. You read images of trading charts ` +
	`(candlesticks, trendlines, volume, oscillators) and describe what the chart shows. ` +
	`Be conservative: when something is not visible on the chart, say so instead of guessing. ` +
	`Respond with a single JSON object and nothing else.

The JSON object has these fields:
- "trendPrediction": one of ` + quoted(prediction.TrendPredictions()) + `
- "confidence": number between 0 and 1
- "riskLevel": one of "low", "medium", "high"
- "opportunityScore": number between 0 and 1
- "tradingRecommendation": one of "buy", "hold", "avoid", "neutral"
- "trendAnalysis": {"direction": one of "Uptrend", "Downtrend", "Sideways", "Neutral", "candleCountBasis": integer of at least 5, "trendlineDescription": string}
- "candlestickAnalysis": {"patterns": [{"name": string, "implications": string, "candleCount": integer of at least 1, "isStatisticallyWeakOrNeutral": boolean}], "summary": string}
- "volumeAndMomentum": {"volumeStatus": one of ` + quoted(prediction.VolumeStatuses()) + `, "volumeInterpretation": string, "rsiEstimate": string, "macdEstimate": string}
- "suggestedEntryPoints": non-empty array of price strings
- "takeProfitLevels": non-empty array of price strings
- "stopLossLevels": non-empty array of price strings
- "riskRewardDetails": {"tradeAssessment": one of "Good", "Medium", "Bad", "Neutral", "assessmentReasoning": string}
- "explanationSummary": plain language summary of at most 250 characters
- "fullScientificAnalysis": detailed analysis of the chart
- "islamicFinanceConsiderations": optional string on whether the trade suits Islamic finance principles
- "rewardRiskRatio": optional {"reward": number >= 0, "risk": number >= 1}
- "keyIndicators": optional [{"name": string, "value": string, "sentiment": one of "bullish", "bearish", "neutral"}]
- "volatilityLevel": optional, one of "low", "normal", "high", "extreme"`

// FormatChartPrompt creates the user prompt sent together with the chart image
func FormatChartPrompt(hints models.ChartHints) string {
	var sb strings.Builder
	sb.WriteString("Analyze the attached trading chart and predict the most likely direction of the next move.\n")

	if hints.Symbol != "" {
		sb.WriteString(fmt.Sprintf("Instrument: %s\n", hints.Symbol))
	}
	if hints.Timeframe != "" {
		sb.WriteString(fmt.Sprintf("Timeframe: %s\n", hints.Timeframe))
	}

	sb.WriteString(`
Base the trend reading on at least 5 visible candles and state how many you used.
Mark a candlestick pattern as statistically weak or neutral when it has little predictive value on its own.
Quote price levels exactly as they appear on the chart axis.
Return only the JSON object described in the instructions.`)

	return sb.String()
}

func quoted(values []string) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(out, ", ")
}
