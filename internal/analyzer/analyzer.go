// Package analyzer builds the hourly technical analysis report used both as
// LLM prompt material and as a standalone rule signal.
package analyzer

import (
	"math"

	"gmo-trading-bot/internal/ta"
	"gmo-trading-bot/internal/types"
)

type Config struct {
	SMAShort  int
	SMALong   int
	RSIPeriod int
	BBWindow  int
	BBStdDev  float64
	MACDFast  int
	MACDSlow  int
	MACDSig   int
}

func DefaultConfig() Config {
	return Config{
		SMAShort:  20,
		SMALong:   50,
		RSIPeriod: 14,
		BBWindow:  20,
		BBStdDev:  2.0,
		MACDFast:  12,
		MACDSlow:  26,
		MACDSig:   9,
	}
}

// Report is serialized into the LLM prompt, so field names are stable.
type Report struct {
	Price      float64 `json:"price"`
	SMAShort   float64 `json:"sma_short"`
	SMALong    float64 `json:"sma_long"`
	RSI        float64 `json:"rsi"`
	BBUpper    float64 `json:"bb_upper"`
	BBMiddle   float64 `json:"bb_middle"`
	BBLower    float64 `json:"bb_lower"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_histogram"`
	Trend      string  `json:"trend"`
	Signal     string  `json:"signal"`
}

// Analyze computes the indicator report over the given bars. The last bar is
// assumed to be the most recently closed hour.
func Analyze(bars []types.Candle, cfg Config) Report {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	r := Report{}
	if len(closes) > 0 {
		r.Price = closes[len(closes)-1]
	}
	r.SMAShort = ta.SMA(closes, cfg.SMAShort)
	r.SMALong = ta.SMA(closes, cfg.SMALong)
	r.RSI = ta.RSI(closes, cfg.RSIPeriod)
	r.BBMiddle, r.BBUpper, r.BBLower = ta.Bollinger(closes, cfg.BBWindow, cfg.BBStdDev)
	r.MACD, r.MACDSignal, r.MACDHist = ta.MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSig)

	r.Trend = trend(r)
	r.Signal = vote(r)
	return r
}

func trend(r Report) string {
	switch {
	case math.IsNaN(r.SMAShort) || math.IsNaN(r.SMALong):
		return "unknown"
	case r.SMAShort > r.SMALong:
		return "up"
	case r.SMAShort < r.SMALong:
		return "down"
	default:
		return "flat"
	}
}

// vote tallies the indicators into a bullish/bearish/neutral call. Net score
// of +-2 or more is required for a directional signal.
func vote(r Report) string {
	score := 0

	switch r.Trend {
	case "up":
		score++
	case "down":
		score--
	}

	if !math.IsNaN(r.RSI) {
		if r.RSI < 30 {
			score++ // oversold
		} else if r.RSI > 70 {
			score-- // overbought
		}
	}

	if !math.IsNaN(r.MACDHist) {
		if r.MACDHist > 0 {
			score++
		} else if r.MACDHist < 0 {
			score--
		}
	}

	if !math.IsNaN(r.BBLower) && !math.IsNaN(r.BBUpper) && r.Price > 0 {
		if r.Price < r.BBLower {
			score++
		} else if r.Price > r.BBUpper {
			score--
		}
	}

	switch {
	case score >= 2:
		return "bullish"
	case score <= -2:
		return "bearish"
	default:
		return "neutral"
	}
}
