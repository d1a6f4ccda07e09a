package signal

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gmo-trading-bot/internal/types"
)

// BuildPrompt assembles the prediction prompt from the technical report, the
// news digest, and any scored prediction history.
func BuildPrompt(now time.Time, report any, articles []types.NewsArticle, history []Record) string {
	reportJSON, _ := json.Marshal(report)
	newsJSON, _ := json.MarshalIndent(articles, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, `You are a professional cryptocurrency trader.
Based on the technical analysis and the news articles below, predict the
direction of the Bitcoin price one hour from now, logically and concretely.

[Current time]
%s

[Technical analysis of the hourly Bitcoin chart]
%s

[Bitcoin news articles from the last 24 hours]
%s

[Notes]
Weigh both the technical analysis and the news. If the market sentiment they
imply contradicts each other, explain why and which one you trust more.
`, now.Format(time.RFC1123Z), reportJSON, newsJSON)

	if len(history) > 0 {
		historyJSON, _ := json.Marshal(history)
		fmt.Fprintf(&b, `
Below are your past predictions and their actual results. Reflect on the
misses and make a more accurate prediction this time.

[Past predictions and results]
%s
`, historyJSON)
	}

	b.WriteString(`
Respond strictly in the following JSON format:
{
    "prediction": "bullish/bearish/neutral",
    "confidence": float between 0 and 100,
    "reasoning": "string"
}
`)
	return b.String()
}

var (
	predictionRe = regexp.MustCompile(`(?i)"prediction"[^\w]*:?[^\w]*"(bullish|bearish|neutral)"`)
	confidenceRe = regexp.MustCompile(`"confidence"[^\w]*:?[^\w]*(\d+(?:\.\d+)?)`)
	reasoningRe  = regexp.MustCompile(`"reasoning"[^\w]*:?[^\w]*"([^"]*)"`)
)

// ParsePrediction extracts a prediction from model output. Strict JSON is
// tried first; on failure, field-by-field regex extraction with a neutral
// default keeps one malformed completion from aborting the cycle.
func ParsePrediction(content string) Prediction {
	content = strings.TrimSpace(content)

	var p Prediction
	if err := json.Unmarshal([]byte(content), &p); err == nil && validPrediction(p.Prediction) {
		p.Prediction = strings.ToLower(p.Prediction)
		p.Confidence = clampConfidence(p.Confidence)
		return p
	}

	p = Prediction{Prediction: "neutral", Confidence: 50, Reasoning: "extraction failed"}
	if m := predictionRe.FindStringSubmatch(content); m != nil {
		p.Prediction = strings.ToLower(m[1])
	}
	if m := confidenceRe.FindStringSubmatch(content); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.Confidence = clampConfidence(v)
		}
	}
	if m := reasoningRe.FindStringSubmatch(content); m != nil {
		p.Reasoning = m[1]
	}
	return p
}

func validPrediction(s string) bool {
	switch strings.ToLower(s) {
	case "bullish", "bearish", "neutral":
		return true
	}
	return false
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ToSignal maps the raw prediction onto an order direction.
func (p Prediction) ToSignal() types.Signal {
	direction := types.SideHold
	switch p.Prediction {
	case "bullish":
		direction = types.SideBuy
	case "bearish":
		direction = types.SideSell
	}
	return types.Signal{Direction: direction, Confidence: p.Confidence, Reason: p.Reasoning}
}
