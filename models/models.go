package models

import (
	"time"
)

// Trend prediction values
const (
	TrendUp       = "up"
	TrendDown     = "down"
	TrendSideways = "sideways"
	TrendNeutral  = "neutral"
)

// Risk levels
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Trading recommendations
const (
	RecommendBuy     = "buy"
	RecommendHold    = "hold"
	RecommendAvoid   = "avoid"
	RecommendNeutral = "neutral"
)

// PredictionResult is the trusted, fully populated outcome of a chart analysis.
// Every value handed to the API, the bot or the database has this shape.
type PredictionResult struct {
	TrendPrediction        string              `json:"trendPrediction"`        // up, down, sideways, neutral
	Confidence             float64             `json:"confidence"`             // 0-1
	RiskLevel              string              `json:"riskLevel"`              // low, medium, high
	OpportunityScore       float64             `json:"opportunityScore"`       // 0-1
	TradingRecommendation  string              `json:"tradingRecommendation"`  // buy, hold, avoid, neutral
	TrendAnalysis          TrendAnalysis       `json:"trendAnalysis"`
	CandlestickAnalysis    CandlestickAnalysis `json:"candlestickAnalysis"`
	VolumeAndMomentum      VolumeAndMomentum   `json:"volumeAndMomentum"`
	SuggestedEntryPoints   []string            `json:"suggestedEntryPoints"`
	TakeProfitLevels       []string            `json:"takeProfitLevels"`
	StopLossLevels         []string            `json:"stopLossLevels"`
	RiskRewardDetails      RiskRewardDetails   `json:"riskRewardDetails"`
	ExplanationSummary     string              `json:"explanationSummary"`     // at most 250 characters
	FullScientificAnalysis string              `json:"fullScientificAnalysis"`

	IslamicFinanceConsiderations string           `json:"islamicFinanceConsiderations,omitempty"`
	RewardRiskRatio              *RewardRiskRatio `json:"rewardRiskRatio,omitempty"`
	KeyIndicators                []KeyIndicator   `json:"keyIndicators"`
	VolatilityLevel              string           `json:"volatilityLevel,omitempty"` // low, normal, high, extreme
}

// TrendAnalysis describes the trend read from the chart
type TrendAnalysis struct {
	Direction            string `json:"direction"` // Uptrend, Downtrend, Sideways, Neutral
	CandleCountBasis     int    `json:"candleCountBasis"`
	TrendlineDescription string `json:"trendlineDescription"`
}

// CandlestickPattern is a single pattern spotted on the chart
type CandlestickPattern struct {
	Name                         string `json:"name"`
	Implications                 string `json:"implications"`
	CandleCount                  int    `json:"candleCount"`
	IsStatisticallyWeakOrNeutral bool   `json:"isStatisticallyWeakOrNeutral"`
}

// CandlestickAnalysis groups recognised patterns
type CandlestickAnalysis struct {
	Patterns []CandlestickPattern `json:"patterns"`
	Summary  string               `json:"summary"`
}

// VolumeAndMomentum holds the volume and oscillator reading
type VolumeAndMomentum struct {
	VolumeStatus         string `json:"volumeStatus"`
	VolumeInterpretation string `json:"volumeInterpretation"`
	RSIEstimate          string `json:"rsiEstimate"`
	MACDEstimate         string `json:"macdEstimate"`
}

// RiskRewardDetails is the qualitative trade assessment
type RiskRewardDetails struct {
	TradeAssessment     string `json:"tradeAssessment"` // Good, Medium, Bad, Neutral
	AssessmentReasoning string `json:"assessmentReasoning"`
}

// RewardRiskRatio expresses reward per unit of risk, e.g. 2:1
type RewardRiskRatio struct {
	Reward float64 `json:"reward"`
	Risk   float64 `json:"risk"`
}

// KeyIndicator is a named indicator reading
type KeyIndicator struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Sentiment string `json:"sentiment,omitempty"`
}

// ChartImage is the raw chart submitted for analysis
type ChartImage struct {
	Data     []byte
	MIMEType string
}

// ChartHints are optional user supplied facts about the chart
type ChartHints struct {
	Symbol    string `json:"symbol,omitempty"`
	Timeframe string `json:"timeframe,omitempty"`
}

// Analysis is a persisted chart analysis
type Analysis struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId,omitempty"`
	ImageRef  string           `json:"imageRef"` // sha256 of the image bytes
	Symbol    string           `json:"symbol,omitempty"`
	Timeframe string           `json:"timeframe,omitempty"`
	Result    PredictionResult `json:"result"`
	Degraded  bool             `json:"degraded"` // true when the LLM produced nothing usable
	Cached    bool             `json:"cached,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}
