package analyzer

import (
	"math"
	"testing"

	"gmo-trading-bot/internal/types"
)

func barsFromCloses(closes []float64) []types.Candle {
	bars := make([]types.Candle, len(closes))
	for i, c := range closes {
		bars[i] = types.Candle{Ts: int64(i * 3600), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func TestAnalyzeUptrend(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	r := Analyze(barsFromCloses(closes), DefaultConfig())

	if r.Trend != "up" {
		t.Errorf("trend = %q, want up", r.Trend)
	}
	if r.Signal == "bearish" {
		t.Errorf("signal = %q on a monotonic rise", r.Signal)
	}
	if r.Price != closes[len(closes)-1] {
		t.Errorf("price = %v, want last close", r.Price)
	}
}

func TestAnalyzeDowntrend(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	r := Analyze(barsFromCloses(closes), DefaultConfig())

	if r.Trend != "down" {
		t.Errorf("trend = %q, want down", r.Trend)
	}
	if r.Signal == "bullish" {
		t.Errorf("signal = %q on a monotonic fall", r.Signal)
	}
}

func TestAnalyzeShortHistory(t *testing.T) {
	r := Analyze(barsFromCloses([]float64{100, 101, 102}), DefaultConfig())

	if r.Trend != "unknown" {
		t.Errorf("trend = %q with insufficient history", r.Trend)
	}
	if r.Signal != "neutral" {
		t.Errorf("signal = %q, want neutral with insufficient history", r.Signal)
	}
	if !math.IsNaN(r.SMALong) {
		t.Errorf("SMALong = %v, want NaN", r.SMALong)
	}
}
