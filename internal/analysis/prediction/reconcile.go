package prediction

import (
	"strings"

	"github.com/Alias1177/ChartPredictor/models"
)

// Reconcile builds a trusted PredictionResult from an untrusted candidate.
//
// The result starts as a deep copy of defaults. Every candidate field that passes its
// own validity check overwrites the matching default; anything missing, mistyped or out
// of range leaves the default in place. A nil candidate yields an unchanged copy of
// defaults. Neither argument is modified and the function never fails.
func Reconcile(candidate Candidate, defaults models.PredictionResult) models.PredictionResult {
	result := Clone(defaults)
	if candidate == nil {
		return result
	}

	// 1. Headline enums and scores
	if v, ok := trendPredictions.match(candidate["trendPrediction"]); ok {
		result.TrendPrediction = v
	}
	if v, ok := numberInRange(candidate["confidence"], 0, 1); ok {
		result.Confidence = v
	}
	if v, ok := riskLevels.match(candidate["riskLevel"]); ok {
		result.RiskLevel = v
	}
	if v, ok := numberInRange(candidate["opportunityScore"], 0, 1); ok {
		result.OpportunityScore = v
	}
	if v, ok := recommendations.match(candidate["tradingRecommendation"]); ok {
		result.TradingRecommendation = v
	}

	// 2. Nested sections, each only when the parent is an object
	if obj, ok := asObject(candidate["trendAnalysis"]); ok {
		mergeTrendAnalysis(&result.TrendAnalysis, obj)
	}
	if obj, ok := asObject(candidate["candlestickAnalysis"]); ok {
		mergeCandlestickAnalysis(&result.CandlestickAnalysis, obj)
	}
	if obj, ok := asObject(candidate["volumeAndMomentum"]); ok {
		mergeVolumeAndMomentum(&result.VolumeAndMomentum, obj)
	}
	if obj, ok := asObject(candidate["riskRewardDetails"]); ok {
		mergeRiskRewardDetails(&result.RiskRewardDetails, obj)
	}

	// 3. Price levels are all-or-nothing
	if v, ok := nonEmptyStrings(candidate["suggestedEntryPoints"]); ok {
		result.SuggestedEntryPoints = v
	}
	if v, ok := nonEmptyStrings(candidate["takeProfitLevels"]); ok {
		result.TakeProfitLevels = v
	}
	if v, ok := nonEmptyStrings(candidate["stopLossLevels"]); ok {
		result.StopLossLevels = v
	}

	// 4. Narrative
	if s, ok := candidate["explanationSummary"].(string); ok {
		if v, ok := nonEmptyString(truncate(s, MaxSummaryLength)); ok {
			result.ExplanationSummary = v
		}
	}
	if v, ok := nonEmptyString(candidate["fullScientificAnalysis"]); ok {
		result.FullScientificAnalysis = v
	}

	// 5. Optional extras
	if v, ok := nonEmptyString(candidate["islamicFinanceConsiderations"]); ok {
		result.IslamicFinanceConsiderations = v
	}
	if obj, ok := asObject(candidate["rewardRiskRatio"]); ok {
		reward, rewardOK := numberAtLeast(obj["reward"], 0)
		risk, riskOK := numberAtLeast(obj["risk"], 1)
		if rewardOK && riskOK {
			result.RewardRiskRatio = &models.RewardRiskRatio{Reward: reward, Risk: risk}
		}
	}
	if v, ok := filterList(candidate["keyIndicators"], asKeyIndicator); ok {
		result.KeyIndicators = v
	}
	if v, ok := volatilityLevels.match(candidate["volatilityLevel"]); ok {
		result.VolatilityLevel = v
	}

	result.FullScientificAnalysis = WithDisclaimer(result.FullScientificAnalysis)
	return result
}

// WithDisclaimer appends the disclaimer unless text already contains it
func WithDisclaimer(text string) string {
	if strings.Contains(text, Disclaimer) {
		return text
	}
	return text + " " + Disclaimer
}

func mergeTrendAnalysis(dst *models.TrendAnalysis, obj map[string]any) {
	if v, ok := trendDirections.match(obj["direction"]); ok {
		dst.Direction = v
	}
	if v, ok := flooredAtLeast(obj["candleCountBasis"], MinCandleCountBasis); ok {
		dst.CandleCountBasis = v
	}
	if v, ok := nonEmptyString(obj["trendlineDescription"]); ok {
		dst.TrendlineDescription = v
	}
}

func mergeCandlestickAnalysis(dst *models.CandlestickAnalysis, obj map[string]any) {
	if v, ok := filterList(obj["patterns"], asPattern); ok {
		dst.Patterns = v
	}
	if v, ok := nonEmptyString(obj["summary"]); ok {
		dst.Summary = v
	}
}

func mergeVolumeAndMomentum(dst *models.VolumeAndMomentum, obj map[string]any) {
	if v, ok := volumeStatuses.match(obj["volumeStatus"]); ok {
		dst.VolumeStatus = v
	}
	if v, ok := nonEmptyString(obj["volumeInterpretation"]); ok {
		dst.VolumeInterpretation = v
	}
	if v, ok := nonEmptyString(obj["rsiEstimate"]); ok {
		dst.RSIEstimate = v
	}
	if v, ok := nonEmptyString(obj["macdEstimate"]); ok {
		dst.MACDEstimate = v
	}
}

func mergeRiskRewardDetails(dst *models.RiskRewardDetails, obj map[string]any) {
	if v, ok := tradeAssessments.match(obj["tradeAssessment"]); ok {
		dst.TradeAssessment = v
	}
	if v, ok := nonEmptyString(obj["assessmentReasoning"]); ok {
		dst.AssessmentReasoning = v
	}
}
