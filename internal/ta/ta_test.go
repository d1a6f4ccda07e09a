package ta

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	if got := SMA(vals, 5); got != 3 {
		t.Errorf("SMA(5) = %v, want 3", got)
	}
	if got := SMA(vals, 2); got != 4.5 {
		t.Errorf("SMA(2) = %v, want 4.5", got)
	}
	if got := SMA(vals, 6); !math.IsNaN(got) {
		t.Errorf("SMA with short input = %v, want NaN", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	if got := RSI(closes, 14); got != 100 {
		t.Errorf("RSI on monotonic rise = %v, want 100", got)
	}
}

func TestRSIBalanced(t *testing.T) {
	// Equal gains and losses should sit at 50.
	closes := []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10}
	got := RSI(closes, 14)
	if math.Abs(got-50) > 1e-9 {
		t.Errorf("RSI balanced = %v, want 50", got)
	}
}

func TestStdDev(t *testing.T) {
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := StdDev(vals, 8)
	if math.Abs(got-2) > 1e-9 {
		t.Errorf("StdDev = %v, want 2", got)
	}
}

func TestBollinger(t *testing.T) {
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mid, up, low := Bollinger(vals, 8, 2)
	if mid != 5 {
		t.Errorf("mid = %v, want 5", mid)
	}
	if math.Abs(up-9) > 1e-9 || math.Abs(low-1) > 1e-9 {
		t.Errorf("bands = (%v, %v), want (9, 1)", up, low)
	}
}

func TestEMAConstantSeries(t *testing.T) {
	vals := []float64{5, 5, 5, 5, 5}
	out := EMA(vals, 3)
	for i, v := range out {
		if v != 5 {
			t.Fatalf("EMA[%d] = %v, want 5", i, v)
		}
	}
}

func TestMACDConstantSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
	}
	macd, sig, hist := MACD(closes, 12, 26, 9)
	if macd != 0 || sig != 0 || hist != 0 {
		t.Errorf("MACD on flat series = (%v, %v, %v), want zeros", macd, sig, hist)
	}
}

func TestMACDShortInput(t *testing.T) {
	macd, _, _ := MACD([]float64{1, 2, 3}, 12, 26, 9)
	if !math.IsNaN(macd) {
		t.Errorf("MACD short input = %v, want NaN", macd)
	}
}
