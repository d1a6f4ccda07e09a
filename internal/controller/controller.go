// Package controller drives the hourly trading cycle: settle, risk check,
// signal, order. One attempt per clock hour, kill switch on drawdown.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gmo-trading-bot/internal/interfaces"
	"gmo-trading-bot/internal/logger"
	"gmo-trading-bot/internal/risk"
	"gmo-trading-bot/internal/signal"
	"gmo-trading-bot/internal/store"
	"gmo-trading-bot/internal/types"
)

// TradeRecorder persists completed round-trip trades for audit. Failures are
// never allowed to affect the cycle.
type TradeRecorder interface {
	Record(outcome types.TradeOutcome) error
}

type stepKind int

const (
	stepOK stepKind = iota
	stepSkip
	stepHalt
)

type stepResult struct {
	kind   stepKind
	reason string
}

func ok() stepResult                { return stepResult{kind: stepOK} }
func skip(reason string) stepResult { return stepResult{kind: stepSkip, reason: reason} }
func halt(reason string) stepResult { return stepResult{kind: stepHalt, reason: reason} }

type Params struct {
	Cfg        *store.Config
	Exchange   interfaces.Exchange
	Provider   interfaces.SignalProvider
	Notifier   interfaces.Notifier
	Reflection *signal.ReflectionLog
	Recorder   TradeRecorder

	// Capital snapshot taken once at process start. Denominator of the
	// kill-switch ratio for the whole process lifetime.
	Baseline decimal.Decimal
}

// TradingController owns the cycle state. All mutation happens on the single
// control goroutine, so no locking.
type TradingController struct {
	cfg        *store.Config
	ex         interfaces.Exchange
	provider   interfaces.SignalProvider
	notifier   interfaces.Notifier
	reflection *signal.ReflectionLog
	recorder   TradeRecorder

	loc        *time.Location
	baseline   decimal.Decimal
	reference  decimal.Decimal
	haltRatio  decimal.Decimal
	tradeCount uint64
	lastHour   int
	halted     bool

	// settleWait gives the exchange a moment to book the settlement before
	// the execution history is read. Zeroed in tests.
	settleWait time.Duration
}

var _ interfaces.Controller = (*TradingController)(nil)

func New(p Params) *TradingController {
	reflection := p.Reflection
	if reflection == nil {
		reflection = signal.NewReflectionLog(p.Cfg.Signal.ReflectionWindow)
	}
	return &TradingController{
		cfg:        p.Cfg,
		ex:         p.Exchange,
		provider:   p.Provider,
		notifier:   p.Notifier,
		reflection: reflection,
		recorder:   p.Recorder,
		loc:        p.Cfg.Location(),
		baseline:   p.Baseline,
		reference:  p.Baseline,
		haltRatio:  decimal.NewFromFloat(p.Cfg.Risk.HaltRatio),
		lastHour:   -1,
		settleWait: time.Second,
	}
}

func (c *TradingController) Halted() bool { return c.halted }

// NextWake returns how long to sleep before the next hour check. The caller
// re-invokes Tick on wake; Tick itself decides whether the hour has changed.
func (c *TradingController) NextWake(now time.Time) time.Duration {
	local := now.In(c.loc)
	next := local.Truncate(time.Hour).Add(time.Hour)
	d := next.Sub(local)
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Tick runs at most one cycle. A nil result means the current hour was
// already processed and nothing happened.
func (c *TradingController) Tick(ctx context.Context, now time.Time) (*types.CycleResult, error) {
	if c.halted {
		return nil, nil
	}

	local := now.In(c.loc)
	hour := local.Hour()
	if hour == c.lastHour {
		return nil, nil
	}

	// Mark the hour consumed before the body runs so a failing step can
	// never cause the same hour to be retried.
	c.lastHour = hour

	res := &types.CycleResult{Symbol: c.cfg.Symbol, Hour: hour}
	logger.Info(ctx, "Cycle started", "symbol", c.cfg.Symbol, "hour", hour)

	steps := []func(context.Context, time.Time, *types.CycleResult) stepResult{
		c.settle,
		c.riskCheck,
		c.signalAndOrder,
	}
	for _, step := range steps {
		out := step(ctx, local, res)
		switch out.kind {
		case stepSkip:
			res.Skipped = true
			res.Reason = out.reason
			logger.Warn(ctx, "Cycle skipped", "symbol", c.cfg.Symbol, "hour", hour, "reason", out.reason)
			return res, nil
		case stepHalt:
			c.halted = true
			res.Halted = true
			res.Reason = out.reason
			logger.Risk(ctx, c.cfg.Symbol, "KILL_SWITCH")
			c.notifier.Notify(ctx, "Trading halted: "+out.reason, interfaces.SeverityError)
			return res, nil
		}
	}

	logger.Info(ctx, "Cycle complete",
		"symbol", c.cfg.Symbol, "hour", hour,
		"direction", res.Signal.Direction, "orders", len(res.Orders))
	return res, nil
}

// settle fetches the current price and flattens any open position. A price
// failure is treated as an exchange maintenance window and skips everything.
func (c *TradingController) settle(ctx context.Context, now time.Time, res *types.CycleResult) stepResult {
	price, err := c.ex.Price(ctx, c.cfg.Symbol)
	if err != nil {
		c.reflection.DropUnresolved()
		c.notifier.Notify(ctx, fmt.Sprintf("Price fetch failed, assuming maintenance window: %v", err), interfaces.SeverityWarning)
		return skip("maintenance window")
	}
	res.Price = price
	c.reflection.Resolve(price)

	if err := c.ex.CloseAllPositions(ctx, c.cfg.Symbol); err != nil {
		c.notifier.Notify(ctx, fmt.Sprintf("Settlement failed: %v", err), interfaces.SeverityWarning)
		return skip("settlement failed")
	}
	if c.settleWait > 0 {
		time.Sleep(c.settleWait)
	}

	if c.tradeCount > 0 && c.recorder != nil {
		outcome, err := c.ex.LastTradeOutcome(ctx, c.cfg.Symbol)
		if err != nil {
			logger.Warn(ctx, "Could not fetch last trade outcome", "error", err.Error())
		} else if err := c.recorder.Record(outcome); err != nil {
			logger.Warn(ctx, "Could not record trade outcome", "error", err.Error())
		}
	}
	return ok()
}

// riskCheck evaluates the drawdown kill switch against the process-start
// baseline. Skipped before the first order of the process: there is nothing
// at risk yet and capital equals the baseline by definition.
func (c *TradingController) riskCheck(ctx context.Context, now time.Time, res *types.CycleResult) stepResult {
	if c.tradeCount == 0 {
		return ok()
	}

	available, err := c.ex.AvailableCapital(ctx)
	if err != nil {
		c.notifier.Notify(ctx, fmt.Sprintf("Capital fetch failed: %v", err), interfaces.SeverityWarning)
		return skip("capital fetch failed")
	}
	current := decimal.NewFromFloat(available)

	// The daily report runs against yesterday's close, the kill switch
	// against process start. Different denominators on purpose.
	if now.Hour() == 0 {
		profit := risk.DailyProfit(c.reference, current)
		c.notifier.Notify(ctx, fmt.Sprintf("Daily P&L: %s JPY (capital %s)", profit.StringFixed(0), current.StringFixed(0)), interfaces.SeverityInfo)
		logger.Info(ctx, "Daily report", "profit", profit.InexactFloat64(), "capital", available)
		c.reference = current
	}

	ratio := risk.ProfitRatio(c.baseline, current)
	if risk.ShouldHalt(ratio, c.haltRatio) {
		return halt(fmt.Sprintf("profit ratio %s below %s", ratio.StringFixed(4), c.haltRatio.StringFixed(2)))
	}
	logger.Debug(ctx, "Risk check passed", "ratio", ratio.InexactFloat64(), "capital", available)
	return ok()
}

// signalAndOrder draws a prediction from the last closed hourly bar and
// places at most one market order.
func (c *TradingController) signalAndOrder(ctx context.Context, now time.Time, res *types.CycleResult) stepResult {
	bars, err := c.ex.Candles(ctx, c.cfg.Symbol, c.cfg.Interval, c.dataEndDate(now), c.cfg.Signal.LookbackDays)
	if err != nil {
		c.notifier.Notify(ctx, fmt.Sprintf("Candle fetch failed: %v", err), interfaces.SeverityWarning)
		return skip("candle fetch failed")
	}

	closed, found := closedBars(bars, now)
	if !found {
		c.notifier.Notify(ctx, "No bar at the last closed hour, skipping", interfaces.SeverityWarning)
		return skip("missing closed bar")
	}

	sig, err := c.provider.Predict(ctx, closed)
	if err != nil {
		c.notifier.Notify(ctx, fmt.Sprintf("Prediction failed: %v", err), interfaces.SeverityWarning)
		return skip("prediction failed")
	}
	c.reflection.RememberPrice(res.Price)
	res.Signal = sig
	logger.Signal(ctx, c.cfg.Symbol, sig.Direction, sig.Confidence, sig.Reason)

	if sig.Direction == types.SideHold {
		res.Reason = "hold"
		return ok()
	}

	resp, err := c.ex.PlaceMarketOrder(ctx, types.OrderReq{
		Symbol: c.cfg.Symbol,
		Side:   sig.Direction,
		Size:   c.cfg.OrderSize,
	})
	if err != nil {
		// The cycle is over for this hour either way. Next hour's
		// settlement will discover whatever actually got filled.
		c.notifier.Notify(ctx, fmt.Sprintf("Order failed: %v", err), interfaces.SeverityError)
		res.Reason = "order failed"
		return ok()
	}
	c.tradeCount++
	res.Orders = append(res.Orders, resp)
	logger.Trade(ctx, c.cfg.Symbol, sig.Direction, c.cfg.OrderSize, resp.OrderID)
	c.notifier.Notify(ctx, fmt.Sprintf("%s %s %.4g (order %s)", sig.Direction, c.cfg.Symbol, c.cfg.OrderSize, resp.OrderID), interfaces.SeverityInfo)
	return ok()
}

// dataEndDate labels the historical-data fetch. The trading day rolls at the
// configured start hour, not at midnight.
func (c *TradingController) dataEndDate(now time.Time) string {
	day := now
	if now.Hour() <= c.cfg.DayStartHour {
		day = now.AddDate(0, 0, -1)
	}
	return day.Format("20060102")
}

// closedBars trims history to bars at or before the most recently closed
// hour and reports whether that exact bar is present. The in-progress bar is
// never handed to the provider.
func closedBars(bars []types.Candle, now time.Time) ([]types.Candle, bool) {
	target := now.Truncate(time.Hour).Add(-time.Hour).Unix()

	n := len(bars)
	for n > 0 && bars[n-1].Ts > target {
		n--
	}
	if n == 0 {
		return nil, false
	}
	return bars[:n], bars[n-1].Ts == target
}
