// Package signal holds the cross-cycle prediction history shared between the
// controller and the reflection-aware providers.
package signal

import (
	"math"

	"gmo-trading-bot/internal/types"
)

// Prediction is the provider's raw verdict before it is mapped to an order
// side.
type Prediction struct {
	Prediction string  `json:"prediction"` // bullish / bearish / neutral
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Outcome is back-filled one cycle later, once the realized move is known.
type Outcome struct {
	PriceChange float64 `json:"price_change"` // percent
	Direction   string  `json:"price_change_direction"`
	Accurate    bool    `json:"prediction_accuracy"`
}

// Record pairs one prediction with the inputs it saw and, eventually, how it
// turned out.
type Record struct {
	PredictionTime string             `json:"prediction_time"`
	Report         any                `json:"technical_analysis_report,omitempty"`
	News           []types.NewsArticle `json:"news_articles,omitempty"`
	Prediction     Prediction         `json:"prediction"`
	ActualResult   *Outcome           `json:"actual_result"`
}

// ReflectionLog is a bounded FIFO of prediction records. It is owned by the
// controller and mutated only from the control loop, so it needs no locking.
type ReflectionLog struct {
	window    int
	records   []Record
	lastPrice float64
}

func NewReflectionLog(window int) *ReflectionLog {
	if window <= 0 {
		window = 6
	}
	return &ReflectionLog{window: window}
}

// Append stores a fresh record, evicting the oldest beyond the window.
func (l *ReflectionLog) Append(r Record) {
	l.records = append(l.records, r)
	if len(l.records) > l.window {
		l.records = l.records[len(l.records)-l.window:]
	}
}

// Records returns the history, oldest first. Callers must not mutate it.
func (l *ReflectionLog) Records() []Record {
	return l.records
}

func (l *ReflectionLog) Len() int { return len(l.records) }

// Resolve back-fills the newest unresolved record using the price observed
// now against the price remembered at prediction time. A neutral call counts
// as accurate when the move stayed under one percent either way.
func (l *ReflectionLog) Resolve(currentPrice float64) {
	if len(l.records) == 0 || l.lastPrice == 0 {
		return
	}
	last := &l.records[len(l.records)-1]
	if last.ActualResult != nil {
		return
	}

	change := (currentPrice - l.lastPrice) / l.lastPrice * 100
	direction := "flat"
	if change > 0 {
		direction = "up"
	} else if change < 0 {
		direction = "down"
	}

	accurate := false
	switch last.Prediction.Prediction {
	case "bullish":
		accurate = direction == "up"
	case "bearish":
		accurate = direction == "down"
	case "neutral":
		accurate = math.Abs(change) < 1
	}

	last.ActualResult = &Outcome{
		PriceChange: math.Round(change*100) / 100,
		Direction:   direction,
		Accurate:    accurate,
	}
}

// DropUnresolved removes the newest record if its outcome is still pending.
// Used when the price feed fails and the record can never be scored.
func (l *ReflectionLog) DropUnresolved() {
	if len(l.records) == 0 {
		return
	}
	if l.records[len(l.records)-1].ActualResult == nil {
		l.records = l.records[:len(l.records)-1]
	}
}

// RememberPrice stores the price the latest prediction was made against so
// the next cycle can score it.
func (l *ReflectionLog) RememberPrice(price float64) {
	l.lastPrice = price
}
