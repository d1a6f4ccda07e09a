package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestProfitRatio(t *testing.T) {
	tests := []struct {
		name               string
		baseline, current  string
		want               string
	}{
		{"flat", "100000", "100000", "0"},
		{"gain", "100000", "110000", "0.1"},
		{"loss", "100000", "79000", "-0.21"},
		{"exact threshold", "100000", "80000", "-0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProfitRatio(dec(tt.baseline), dec(tt.current))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestProfitRatioZeroBaseline(t *testing.T) {
	got := ProfitRatio(decimal.Zero, dec("5000"))
	assert.True(t, got.IsZero())
}

func TestShouldHalt(t *testing.T) {
	threshold := dec("-0.2")

	// Strictly-below breaches.
	assert.True(t, ShouldHalt(dec("-0.21"), threshold))
	assert.True(t, ShouldHalt(dec("-0.200001"), threshold))

	// The boundary itself does not.
	assert.False(t, ShouldHalt(dec("-0.2"), threshold))
	assert.False(t, ShouldHalt(dec("-0.19"), threshold))
	assert.False(t, ShouldHalt(decimal.Zero, threshold))
	assert.False(t, ShouldHalt(dec("0.3"), threshold))
}

func TestShouldHaltFromBalances(t *testing.T) {
	// 100,000 -> 79,000 is -21% and must halt; 80,000 is exactly -20% and must not.
	threshold := dec("-0.2")
	assert.True(t, ShouldHalt(ProfitRatio(dec("100000"), dec("79000")), threshold))
	assert.False(t, ShouldHalt(ProfitRatio(dec("100000"), dec("80000")), threshold))
}

func TestDailyProfit(t *testing.T) {
	assert.True(t, DailyProfit(dec("100000"), dec("101500")).Equal(dec("1500")))
	assert.True(t, DailyProfit(dec("100000"), dec("98000")).Equal(dec("-2000")))
}
