package prediction

import (
	"github.com/Alias1177/ChartPredictor/models"
)

// Disclaimer must appear somewhere in FullScientificAnalysis of every result.
const Disclaimer = "Disclaimer: This analysis is generated by an AI model for educational and informational purposes only. " +
	"It is not financial advice. Trading involves substantial risk of loss; always do your own research " +
	"and consult a licensed financial advisor before making investment decisions."

// MaxSummaryLength is the maximum number of characters kept in ExplanationSummary
const MaxSummaryLength = 250

// MinCandleCountBasis is the smallest number of candles a trend reading may be based on
const MinCandleCountBasis = 5

// defaultResult is the safe fallback template. It is never handed out directly;
// DefaultResult returns a deep copy so callers cannot mutate it.
var defaultResult = models.PredictionResult{
	TrendPrediction:       models.TrendNeutral,
	Confidence:            0.5,
	RiskLevel:             models.RiskMedium,
	OpportunityScore:      0.5,
	TradingRecommendation: models.RecommendNeutral,
	TrendAnalysis: models.TrendAnalysis{
		Direction:            "Neutral",
		CandleCountBasis:     MinCandleCountBasis,
		TrendlineDescription: "The trend could not be determined reliably from the provided chart.",
	},
	CandlestickAnalysis: models.CandlestickAnalysis{
		Patterns: []models.CandlestickPattern{},
		Summary:  "No reliable candlestick patterns were identified.",
	},
	VolumeAndMomentum: models.VolumeAndMomentum{
		VolumeStatus:         "Not Visible",
		VolumeInterpretation: "Volume data was not clearly visible on the chart.",
		RSIEstimate:          "Not determinable from the chart.",
		MACDEstimate:         "Not determinable from the chart.",
	},
	SuggestedEntryPoints: []string{"No clear entry point identified; wait for confirmation."},
	TakeProfitLevels:     []string{"Not determinable from the chart."},
	StopLossLevels:       []string{"Use a stop loss consistent with your own risk management."},
	RiskRewardDetails: models.RiskRewardDetails{
		TradeAssessment:     "Neutral",
		AssessmentReasoning: "Insufficient information to assess the risk/reward of a trade.",
	},
	ExplanationSummary: "The chart could not be analysed with sufficient confidence. A neutral stance is suggested until clearer signals appear.",
	FullScientificAnalysis: "A complete analysis could not be produced for this chart, so neutral default values are shown. " +
		"Consider uploading a clearer chart with visible candles, price axis and volume. " + Disclaimer,
}

// DefaultResult returns a fresh copy of the safe-default prediction
func DefaultResult() models.PredictionResult {
	return Clone(defaultResult)
}

// Clone returns a deep copy of r. Nil and empty slices are preserved as they are.
func Clone(r models.PredictionResult) models.PredictionResult {
	out := r
	out.CandlestickAnalysis.Patterns = cloneSlice(r.CandlestickAnalysis.Patterns)
	out.SuggestedEntryPoints = cloneSlice(r.SuggestedEntryPoints)
	out.TakeProfitLevels = cloneSlice(r.TakeProfitLevels)
	out.StopLossLevels = cloneSlice(r.StopLossLevels)
	out.KeyIndicators = cloneSlice(r.KeyIndicators)
	if r.RewardRiskRatio != nil {
		ratio := *r.RewardRiskRatio
		out.RewardRiskRatio = &ratio
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
