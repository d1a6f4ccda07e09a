package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmo-trading-bot/internal/store"
	"gmo-trading-bot/internal/types"
)

type fakeExchange struct {
	price    float64
	priceErr error

	closeErr    error
	closeCalls  int
	capital     float64
	capitalErr  error
	capitalGets int

	bars       []types.Candle
	barsErr    error
	orderErr   error
	orders     []types.OrderReq
	outcome    types.TradeOutcome
	outcomeErr error
}

func (f *fakeExchange) Price(ctx context.Context, symbol string) (float64, error) {
	return f.price, f.priceErr
}

func (f *fakeExchange) AvailableCapital(ctx context.Context) (float64, error) {
	f.capitalGets++
	return f.capital, f.capitalErr
}

func (f *fakeExchange) OpenPositions(ctx context.Context, symbol string) ([]types.Position, error) {
	return nil, nil
}

func (f *fakeExchange) CloseAllPositions(ctx context.Context, symbol string) error {
	f.closeCalls++
	return f.closeErr
}

func (f *fakeExchange) PlaceMarketOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if f.orderErr != nil {
		return types.OrderResp{}, f.orderErr
	}
	f.orders = append(f.orders, req)
	return types.OrderResp{OrderID: "42", Status: "EXECUTED"}, nil
}

func (f *fakeExchange) Candles(ctx context.Context, symbol, interval, endDate string, days int) ([]types.Candle, error) {
	return f.bars, f.barsErr
}

func (f *fakeExchange) LastTradeOutcome(ctx context.Context, symbol string) (types.TradeOutcome, error) {
	return f.outcome, f.outcomeErr
}

type fakeProvider struct {
	sig   types.Signal
	err   error
	calls int
	bars  []types.Candle
}

func (f *fakeProvider) Predict(ctx context.Context, bars []types.Candle) (types.Signal, error) {
	f.calls++
	f.bars = bars
	return f.sig, f.err
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(ctx context.Context, message, severity string) {
	f.messages = append(f.messages, severity+": "+message)
}

type fakeRecorder struct {
	outcomes []types.TradeOutcome
}

func (f *fakeRecorder) Record(o types.TradeOutcome) error {
	f.outcomes = append(f.outcomes, o)
	return nil
}

func testConfig(t *testing.T) *store.Config {
	t.Helper()
	cfg := &store.Config{}
	cfg.Mode = "DRY_RUN"
	cfg.Symbol = "BTC_JPY"
	cfg.Interval = "1hour"
	cfg.OrderSize = 0.01
	cfg.Timezone = "UTC"
	cfg.DayStartHour = 6
	cfg.Risk.HaltRatio = -0.20
	cfg.Signal.Provider = "NOOP"
	cfg.Signal.LookbackDays = 3
	cfg.Signal.ReflectionWindow = 6
	require.NoError(t, cfg.Validate())
	return cfg
}

// at builds a wall-clock instant inside the hour so truncation is exercised.
func at(hour int) time.Time {
	return time.Date(2024, 3, 15, hour, 0, 30, 0, time.UTC)
}

// barsEndingAt returns n hourly bars whose last bar closes at the hour
// before the given instant.
func barsEndingAt(now time.Time, n int) []types.Candle {
	last := now.Truncate(time.Hour).Add(-time.Hour)
	bars := make([]types.Candle, n)
	for i := range bars {
		ts := last.Add(-time.Duration(n-1-i) * time.Hour)
		bars[i] = types.Candle{Ts: ts.Unix(), Open: 100, High: 101, Low: 99, Close: 100, Vol: 1}
	}
	return bars
}

func newTestController(t *testing.T, ex *fakeExchange, p *fakeProvider) (*TradingController, *fakeNotifier) {
	t.Helper()
	n := &fakeNotifier{}
	c := New(Params{
		Cfg:      testConfig(t),
		Exchange: ex,
		Provider: p,
		Notifier: n,
		Baseline: decimal.NewFromInt(100000),
	})
	c.settleWait = 0
	return c, n
}

func TestTickSameHourIsNoOp(t *testing.T) {
	now := at(10)
	ex := &fakeExchange{price: 100, bars: barsEndingAt(now, 30)}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideHold}}
	c, _ := newTestController(t, ex, p)

	res, err := c.Tick(context.Background(), now)
	require.NoError(t, err)
	require.NotNil(t, res)

	res, err = c.Tick(context.Background(), now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, res, "second tick in the same hour must do nothing")
	assert.Equal(t, 1, ex.closeCalls)
	assert.Equal(t, 1, p.calls)
}

func TestPriceFailureSkipsWholeCycle(t *testing.T) {
	ex := &fakeExchange{priceErr: errors.New("503 maintenance")}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideBuy}}
	c, n := newTestController(t, ex, p)

	res, err := c.Tick(context.Background(), at(10))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Skipped)
	assert.Equal(t, "maintenance window", res.Reason)
	assert.Zero(t, ex.closeCalls, "no settlement on price failure")
	assert.Zero(t, len(ex.orders), "no orders on price failure")
	assert.Zero(t, p.calls)
	assert.NotEmpty(t, n.messages)

	// Hour is still consumed.
	res, err = c.Tick(context.Background(), at(10).Add(5*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestSettleFailureSkipsRest(t *testing.T) {
	ex := &fakeExchange{price: 100, closeErr: errors.New("position busy")}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideBuy}}
	c, _ := newTestController(t, ex, p)

	res, err := c.Tick(context.Background(), at(10))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "settlement failed", res.Reason)
	assert.Zero(t, p.calls)
	assert.Empty(t, ex.orders)
}

func TestBuySignalPlacesExactlyOneOrder(t *testing.T) {
	now := at(10)
	ex := &fakeExchange{price: 100, bars: barsEndingAt(now, 30)}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideBuy, Confidence: 80}}
	c, _ := newTestController(t, ex, p)

	res, err := c.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	require.Len(t, ex.orders, 1)
	assert.Equal(t, types.SideBuy, ex.orders[0].Side)
	assert.Equal(t, 0.01, ex.orders[0].Size)
	assert.Equal(t, uint64(1), c.tradeCount)
}

func TestHoldSignalPlacesNoOrderButConsumesHour(t *testing.T) {
	now := at(10)
	ex := &fakeExchange{price: 100, bars: barsEndingAt(now, 30)}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideHold}}
	c, _ := newTestController(t, ex, p)

	res, err := c.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Empty(t, ex.orders)
	assert.Equal(t, uint64(0), c.tradeCount)

	res, err = c.Tick(context.Background(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestMissingClosedBarSkips(t *testing.T) {
	now := at(10)
	// History ends two hours ago: the bar for the last closed hour is absent.
	ex := &fakeExchange{price: 100, bars: barsEndingAt(now.Add(-time.Hour), 30)}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideBuy}}
	c, _ := newTestController(t, ex, p)

	res, err := c.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "missing closed bar", res.Reason)
	assert.Zero(t, p.calls)
	assert.Empty(t, ex.orders)
	assert.Equal(t, uint64(0), c.tradeCount)
}

func TestInProgressBarIsNeverHandedToProvider(t *testing.T) {
	now := at(10)
	bars := barsEndingAt(now, 30)
	// The exchange returns the still-open bar for the current hour too.
	bars = append(bars, types.Candle{Ts: now.Truncate(time.Hour).Unix(), Close: 999})
	ex := &fakeExchange{price: 100, bars: bars}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideHold}}
	c, _ := newTestController(t, ex, p)

	_, err := c.Tick(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, p.calls)
	last := p.bars[len(p.bars)-1]
	assert.Equal(t, now.Truncate(time.Hour).Add(-time.Hour).Unix(), last.Ts)
}

func TestRiskCheckSkippedBeforeFirstTrade(t *testing.T) {
	now := at(10)
	ex := &fakeExchange{price: 100, bars: barsEndingAt(now, 30), capital: 50000}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideHold}}
	c, _ := newTestController(t, ex, p)

	_, err := c.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, ex.capitalGets, "capital must not be queried before the first trade")
	assert.False(t, c.Halted())
}

func TestKillSwitchHaltsPermanently(t *testing.T) {
	now := at(10)
	ex := &fakeExchange{price: 100, bars: barsEndingAt(now, 30), capital: 79000}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideBuy}}
	c, n := newTestController(t, ex, p)

	// First cycle trades, establishing tradeCount > 0.
	_, err := c.Tick(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, ex.orders, 1)

	// Next hour: capital 79000 against a 100000 baseline is -21%.
	res, err := c.Tick(context.Background(), at(11))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Halted)
	assert.True(t, c.Halted())
	assert.Len(t, ex.orders, 1, "no order in the halting cycle")
	assert.NotEmpty(t, n.messages)

	// Halted is terminal: further ticks do nothing at all.
	prevClose := ex.closeCalls
	res, err = c.Tick(context.Background(), at(12))
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, prevClose, ex.closeCalls)
	assert.Len(t, ex.orders, 1)
}

func TestExactThresholdDoesNotHalt(t *testing.T) {
	now := at(10)
	// 80000 / 100000 is exactly -0.20: must keep trading.
	ex := &fakeExchange{price: 100, bars: barsEndingAt(now, 30), capital: 80000}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideBuy}}
	c, _ := newTestController(t, ex, p)

	_, err := c.Tick(context.Background(), now)
	require.NoError(t, err)

	ex.bars = barsEndingAt(at(11), 30)
	res, err := c.Tick(context.Background(), at(11))
	require.NoError(t, err)
	assert.False(t, res.Halted)
	assert.False(t, c.Halted())
	assert.Len(t, ex.orders, 2)
}

func TestCapitalFailureSkipsCycle(t *testing.T) {
	now := at(10)
	ex := &fakeExchange{price: 100, bars: barsEndingAt(now, 30)}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideBuy}}
	c, _ := newTestController(t, ex, p)

	_, err := c.Tick(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, ex.orders, 1)

	ex.capitalErr = errors.New("margin endpoint down")
	res, err := c.Tick(context.Background(), at(11))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "capital fetch failed", res.Reason)
	assert.Len(t, ex.orders, 1)
}

func TestOrderFailureEndsCycleWithoutHalt(t *testing.T) {
	now := at(10)
	ex := &fakeExchange{price: 100, bars: barsEndingAt(now, 30), orderErr: errors.New("FAK rejected")}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideSell}}
	c, n := newTestController(t, ex, p)

	res, err := c.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.False(t, res.Halted)
	assert.Equal(t, "order failed", res.Reason)
	assert.Equal(t, uint64(0), c.tradeCount)
	assert.NotEmpty(t, n.messages)
}

func TestDailyReportRollsReferenceAtMidnight(t *testing.T) {
	ex := &fakeExchange{price: 100, capital: 110000}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideBuy}}
	c, n := newTestController(t, ex, p)

	now := at(22)
	ex.bars = barsEndingAt(now, 30)
	_, err := c.Tick(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, ex.orders, 1)

	midnight := time.Date(2024, 3, 16, 0, 0, 30, 0, time.UTC)
	ex.bars = barsEndingAt(midnight, 30)
	_, err = c.Tick(context.Background(), midnight)
	require.NoError(t, err)

	assert.True(t, c.reference.Equal(decimal.NewFromInt(110000)), "reference = %s", c.reference)
	found := false
	for _, m := range n.messages {
		if len(m) > 5 && m[:4] == "info" {
			found = true
		}
	}
	assert.True(t, found, "daily report notification missing")
	// Kill switch still measures against the original baseline.
	assert.True(t, c.baseline.Equal(decimal.NewFromInt(100000)))
}

func TestTradeOutcomeRecordedAfterSettlement(t *testing.T) {
	rec := &fakeRecorder{}
	ex := &fakeExchange{
		price:   100,
		capital: 100000,
		outcome: types.TradeOutcome{ExecutionID: 7, Position: 1, LossGain: 1500},
	}
	p := &fakeProvider{sig: types.Signal{Direction: types.SideBuy}}
	n := &fakeNotifier{}
	c := New(Params{
		Cfg:      testConfig(t),
		Exchange: ex,
		Provider: p,
		Notifier: n,
		Recorder: rec,
		Baseline: decimal.NewFromInt(100000),
	})
	c.settleWait = 0

	now := at(10)
	ex.bars = barsEndingAt(now, 30)
	_, err := c.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, rec.outcomes, "nothing to record before the first round trip")

	next := at(11)
	ex.bars = barsEndingAt(next, 30)
	_, err = c.Tick(context.Background(), next)
	require.NoError(t, err)
	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, int64(1500), rec.outcomes[0].LossGain)
}

func TestNextWakeReachesHourBoundary(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 42, 10, 0, time.UTC)
	ex := &fakeExchange{}
	p := &fakeProvider{}
	c, _ := newTestController(t, ex, p)

	d := c.NextWake(now)
	assert.Equal(t, 17*time.Minute+50*time.Second, d)

	almost := time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	assert.Equal(t, time.Second, c.NextWake(almost), "never a zero sleep")
}

func TestDataEndDateRollsAtDayStartHour(t *testing.T) {
	ex := &fakeExchange{}
	p := &fakeProvider{}
	c, _ := newTestController(t, ex, p)

	morning := time.Date(2024, 3, 15, 5, 30, 0, 0, time.UTC)
	assert.Equal(t, "20240314", c.dataEndDate(morning))

	atStart := time.Date(2024, 3, 15, 6, 30, 0, 0, time.UTC)
	assert.Equal(t, "20240314", c.dataEndDate(atStart))

	after := time.Date(2024, 3, 15, 7, 30, 0, 0, time.UTC)
	assert.Equal(t, "20240315", c.dataEndDate(after))
}
