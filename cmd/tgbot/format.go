package main

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/Alias1177/ChartPredictor/internal/analysis/prediction"
	"github.com/Alias1177/ChartPredictor/models"
)

const welcomeText = "Welcome to the <b>Chart Predictor Bot</b>!\n\n" +
	"Send me a screenshot of a trading chart and I will describe the trend, " +
	"candlestick patterns, volume and possible trade levels.\n\n" +
	"Optionally pick the symbol and timeframe first, or write them in the photo caption " +
	"(for example <code>EUR/USD 4h</code>)."

const helpText = "<b>Commands</b>\n" +
	"/start - show the main menu\n" +
	"/symbol EUR/USD - set the symbol hint\n" +
	"/timeframe 4h - set the timeframe hint\n" +
	"/history - your last analyses\n" +
	"/help - this message\n\n" +
	"Send a chart as a photo or as an image file."

var escape = html.EscapeString

const (
	// telegramMessageLimit is the longest text Telegram accepts in one message
	telegramMessageLimit = 4096
	maxListedItems       = 5
	maxItemLength        = 120
	maxTitleLength       = 40
)

// clip shortens s to at most n characters, marking the cut with an ellipsis
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

// clipList keeps the first maxListedItems entries, each clipped to maxItemLength
func clipList(items []string) []string {
	out := make([]string, 0, min(len(items), maxListedItems+1))
	for i, item := range items {
		if i == maxListedItems {
			out = append(out, fmt.Sprintf("+%d more", len(items)-maxListedItems))
			break
		}
		out = append(out, clip(item, maxItemLength))
	}
	return out
}

// parseCaption reads "SYMBOL TIMEFRAME" style hints from a photo caption. Words
// that look like a timeframe set the timeframe, the first other word is the symbol.
// Missing values fall back to the chat's saved hints.
func parseCaption(caption string, saved chatState) models.ChartHints {
	hints := models.ChartHints{Symbol: saved.Symbol, Timeframe: saved.Timeframe}

	var symbolSet, timeframeSet bool
	for _, word := range strings.Fields(caption) {
		switch {
		case !timeframeSet && isTimeframe(word):
			hints.Timeframe = strings.ToLower(word)
			timeframeSet = true
		case !symbolSet:
			hints.Symbol = strings.ToUpper(word)
			symbolSet = true
		}
	}
	return hints
}

func isTimeframe(word string) bool {
	w := strings.ToLower(word)
	for _, interval := range supportedIntervals {
		if w == interval {
			return true
		}
	}
	for _, suffix := range []string{"m", "h", "d", "w"} {
		num, ok := strings.CutSuffix(w, suffix)
		if ok && num != "" && strings.Trim(num, "0123456789") == "" {
			return true
		}
	}
	return false
}

func trendEmoji(trend string) string {
	switch trend {
	case models.TrendUp:
		return "🔼"
	case models.TrendDown:
		return "🔽"
	case models.TrendSideways:
		return "↔️"
	default:
		return "⚖️"
	}
}

// formatAnalysis renders a result as a Telegram HTML message. Lists are capped and
// a result that still exceeds the message limit is rendered without levels and patterns.
func formatAnalysis(a *models.Analysis) string {
	msg := renderAnalysis(a, true)
	if utf8.RuneCountInString(msg) > telegramMessageLimit {
		msg = renderAnalysis(a, false)
	}
	return msg
}

func renderAnalysis(a *models.Analysis, detailed bool) string {
	r := a.Result
	var sb strings.Builder

	title := "Chart analysis"
	if a.Symbol != "" || a.Timeframe != "" {
		title = strings.TrimSpace(fmt.Sprintf("Analysis for %s %s",
			clip(a.Symbol, maxTitleLength), clip(a.Timeframe, maxTitleLength)))
	}
	sb.WriteString(fmt.Sprintf("<b>%s</b>\n\n", escape(title)))

	if a.Degraded {
		sb.WriteString("⚠️ The chart could not be read reliably, showing neutral defaults.\n\n")
	}

	sb.WriteString(fmt.Sprintf("<b>Trend:</b> %s %s\n", trendEmoji(r.TrendPrediction), escape(r.TrendPrediction)))
	sb.WriteString(fmt.Sprintf("<b>Confidence:</b> %.0f%%\n", r.Confidence*100))
	sb.WriteString(fmt.Sprintf("<b>Risk:</b> %s\n", escape(r.RiskLevel)))
	sb.WriteString(fmt.Sprintf("<b>Opportunity:</b> %.0f%%\n", r.OpportunityScore*100))
	sb.WriteString(fmt.Sprintf("<b>Recommendation:</b> %s\n", escape(r.TradingRecommendation)))
	if r.VolatilityLevel != "" {
		sb.WriteString(fmt.Sprintf("<b>Volatility:</b> %s\n", escape(r.VolatilityLevel)))
	}

	if !detailed {
		sb.WriteString("\nLevels and patterns were too long to show here.\n")
	} else if len(r.SuggestedEntryPoints) > 0 || len(r.TakeProfitLevels) > 0 || len(r.StopLossLevels) > 0 {
		sb.WriteString("\n<b>Levels</b>\n")
		writeLevels(&sb, "Entry", r.SuggestedEntryPoints)
		writeLevels(&sb, "Take profit", r.TakeProfitLevels)
		writeLevels(&sb, "Stop loss", r.StopLossLevels)
	}
	if r.RewardRiskRatio != nil {
		sb.WriteString(fmt.Sprintf("Reward/Risk: %g:%g\n", r.RewardRiskRatio.Reward, r.RewardRiskRatio.Risk))
	}

	if patterns := r.CandlestickAnalysis.Patterns; detailed && len(patterns) > 0 {
		sb.WriteString("\n<b>Patterns</b>\n")
		for i, p := range patterns {
			if i == maxListedItems {
				sb.WriteString(fmt.Sprintf("• +%d more\n", len(patterns)-maxListedItems))
				break
			}
			sb.WriteString(fmt.Sprintf("• %s (%d candles)\n", escape(clip(p.Name, maxItemLength)), p.CandleCount))
		}
	}

	sb.WriteString(fmt.Sprintf("\n%s\n\n", escape(r.ExplanationSummary)))
	sb.WriteString(fmt.Sprintf("<i>%s</i>", escape(prediction.Disclaimer)))
	return sb.String()
}

func writeLevels(sb *strings.Builder, label string, levels []string) {
	if len(levels) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("%s: %s\n", label, escape(strings.Join(clipList(levels), ", "))))
}

func formatHistory(analyses []models.Analysis) string {
	if len(analyses) == 0 {
		return "You have no saved analyses yet. Send a chart to get started."
	}

	var sb strings.Builder
	sb.WriteString("<b>Your recent analyses</b>\n\n")
	for i, a := range analyses {
		label := strings.TrimSpace(a.Symbol + " " + a.Timeframe)
		if label == "" {
			label = "chart"
		}
		sb.WriteString(fmt.Sprintf("%d. %s %s %s, %.0f%% (%s)\n",
			i+1,
			a.CreatedAt.Format("Jan 02 15:04"),
			escape(label),
			trendEmoji(a.Result.TrendPrediction)+" "+escape(a.Result.TrendPrediction),
			a.Result.Confidence*100,
			escape(a.Result.TradingRecommendation),
		))
	}
	return sb.String()
}
