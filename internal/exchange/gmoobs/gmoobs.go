package gmoobs

import (
	"context"

	"gmo-trading-bot/internal/interfaces"
	"gmo-trading-bot/internal/logger"
	"gmo-trading-bot/internal/trace"
	"gmo-trading-bot/internal/types"
)

// observableExchange wraps an Exchange with logging and tracing
type observableExchange struct {
	ex interfaces.Exchange
}

var _ interfaces.Exchange = (*observableExchange)(nil)

// Wrap wraps an exchange with observability middleware
func Wrap(ex interfaces.Exchange) interfaces.Exchange {
	return &observableExchange{ex: ex}
}

func (oe *observableExchange) Price(ctx context.Context, symbol string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Price")
	defer span.End()

	price, err := oe.ex.Price(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch price", err, "symbol", symbol)
		return 0, err
	}
	logger.DebugSkip(ctx, 1, "Price fetched", "symbol", symbol, "price", price)
	return price, nil
}

func (oe *observableExchange) AvailableCapital(ctx context.Context) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.AvailableCapital")
	defer span.End()

	amount, err := oe.ex.AvailableCapital(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch available capital", err)
		return 0, err
	}
	logger.DebugSkip(ctx, 1, "Available capital fetched", "amount", amount)
	return amount, nil
}

func (oe *observableExchange) OpenPositions(ctx context.Context, symbol string) ([]types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.OpenPositions")
	defer span.End()

	positions, err := oe.ex.OpenPositions(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to list open positions", err, "symbol", symbol)
		return nil, err
	}
	logger.DebugSkip(ctx, 1, "Open positions listed", "symbol", symbol, "count", len(positions))
	return positions, nil
}

func (oe *observableExchange) CloseAllPositions(ctx context.Context, symbol string) error {
	ctx, span := trace.StartSpan(ctx, "exchange.CloseAllPositions")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Settling all open positions", "symbol", symbol)
	if err := oe.ex.CloseAllPositions(ctx, symbol); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Settlement failed", err, "symbol", symbol)
		return err
	}
	return nil
}

func (oe *observableExchange) PlaceMarketOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.PlaceMarketOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing market order",
		"symbol", req.Symbol,
		"side", req.Side,
		"size", req.Size,
	)
	resp, err := oe.ex.PlaceMarketOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol, "side", req.Side, "size", req.Size)
		return types.OrderResp{}, err
	}
	logger.InfoSkip(ctx, 1, "Order placed successfully",
		"symbol", req.Symbol, "order_id", resp.OrderID, "status", resp.Status)
	return resp, nil
}

func (oe *observableExchange) Candles(ctx context.Context, symbol, interval, endDate string, days int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Candles")
	defer span.End()

	candles, err := oe.ex.Candles(ctx, symbol, interval, endDate, days)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err,
			"symbol", symbol, "end_date", endDate, "days", days)
		return nil, err
	}
	logger.DebugSkip(ctx, 1, "Candles fetched", "symbol", symbol, "count", len(candles))
	return candles, nil
}

func (oe *observableExchange) LastTradeOutcome(ctx context.Context, symbol string) (types.TradeOutcome, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.LastTradeOutcome")
	defer span.End()

	outcome, err := oe.ex.LastTradeOutcome(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch last trade outcome", err, "symbol", symbol)
		return types.TradeOutcome{}, err
	}
	logger.DebugSkip(ctx, 1, "Last trade outcome fetched",
		"symbol", symbol, "loss_gain", outcome.LossGain)
	return outcome, nil
}
