package types

import "time"

// Trade directions as the exchange expects them.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
	SideHold = "HOLD"
)

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Time returns the bar open time in the given location.
func (c Candle) Time(loc *time.Location) time.Time {
	return time.Unix(c.Ts, 0).In(loc)
}

// Signal is one directional prediction, produced fresh each cycle.
type Signal struct {
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"` // 0-100, advisory only
	Reason     string  `json:"reason,omitempty"`
}

// Position is an open position as reported by the exchange. The bot never
// caches these across cycles; every cycle re-reads authoritative state.
type Position struct {
	PositionID int64
	Symbol     string
	Side       string
	Size       float64
	Price      float64
}

type OrderReq struct {
	Symbol string
	Side   string
	Size   float64
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// TradeOutcome is the realized result of the most recent closed round-trip,
// built from the two latest executions (close first, then entry).
type TradeOutcome struct {
	ExecutionID int64
	Date        string // entry hour, "2006-01-02 15:00:00" JST
	Position    int    // +1 long, -1 short
	OrderPrice  int64
	ClosePrice  int64
	LossGain    int64
}

// CycleResult summarizes one hourly cycle for logging and telemetry.
type CycleResult struct {
	Symbol  string      `json:"symbol"`
	Hour    int         `json:"hour"`
	Price   float64     `json:"price,omitempty"`
	Signal  Signal      `json:"signal"`
	Orders  []OrderResp `json:"orders,omitempty"`
	Skipped bool        `json:"skipped,omitempty"`
	Halted  bool        `json:"halted,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// NewsArticle is a headline fed into the LLM prompt.
type NewsArticle struct {
	Title       string `json:"title"`
	Summary     string `json:"summary,omitempty"`
	URL         string `json:"url,omitempty"`
	Source      string `json:"source,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}
