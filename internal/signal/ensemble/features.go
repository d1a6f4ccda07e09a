package ensemble

import (
	"fmt"
	"math"

	"gmo-trading-bot/internal/types"
)

// Rolling windows used during training; feature names depend on them.
var rollingWindows = []int{5, 13, 25}

// MinBars is the shortest history the feature set can be computed from.
const MinBars = 25

// LatestFeatures computes the engineered feature vector for the last bar:
// the log return plus rolling mean/std/sharpe/mean-gap of returns per window.
func LatestFeatures(bars []types.Candle) (map[string]float64, error) {
	if len(bars) < MinBars {
		return nil, fmt.Errorf("need at least %d bars, got %d", MinBars, len(bars))
	}

	returns := make([]float64, len(bars))
	for i, b := range bars {
		if b.Open <= 0 || b.Close <= 0 {
			return nil, fmt.Errorf("non-positive price in bar %d", i)
		}
		returns[i] = math.Log(b.Close / b.Open)
	}

	last := bars[len(bars)-1]
	feats := map[string]float64{"return": returns[len(returns)-1]}

	for _, w := range rollingWindows {
		window := returns[len(returns)-w:]
		mean := meanOf(window)
		std := sampleStd(window, mean)
		feats[fmt.Sprintf("return_mean_%d", w)] = mean
		feats[fmt.Sprintf("return_std_%d", w)] = std
		feats[fmt.Sprintf("sharpe_%d", w)] = safeDiv(mean, std)
		feats[fmt.Sprintf("return_mean_gap_%d", w)] = safeDiv(last.Close, mean)
	}
	return feats, nil
}

func meanOf(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStd uses the n-1 denominator, matching the training pipeline.
func sampleStd(vals []float64, mean float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	s := 0.0
	for _, v := range vals {
		d := v - mean
		s += d * d
	}
	return math.Sqrt(s / float64(len(vals)-1))
}

// safeDiv maps divide-by-zero and non-finite results to the training
// pipeline's missing-value sentinel.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return missingValue
	}
	v := a / b
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return missingValue
	}
	return v
}

const missingValue = -999
