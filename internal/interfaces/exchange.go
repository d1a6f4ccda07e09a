package interfaces

import (
	"context"

	"gmo-trading-bot/internal/types"
)

// Exchange is the authenticated gateway to the venue. Every call may fail
// with a transport, auth, or exchange-rejection error; the controller decides
// what each failure means for the cycle.
type Exchange interface {
	// Price returns the current ask price for the symbol.
	Price(ctx context.Context, symbol string) (float64, error)
	// AvailableCapital returns the tradable margin balance.
	AvailableCapital(ctx context.Context) (float64, error)
	// OpenPositions lists open positions; an empty slice means flat.
	OpenPositions(ctx context.Context, symbol string) ([]types.Position, error)
	// CloseAllPositions issues an opposing market close for every open
	// position. Per-position failures are reported but do not fail the call;
	// the next cycle reconciles against a fresh position read.
	CloseAllPositions(ctx context.Context, symbol string) error
	// PlaceMarketOrder submits a market order and reports the entry price
	// once the fill is visible.
	PlaceMarketOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
	// Candles returns hourly bars covering `days` date labels ending at
	// endDate (YYYYMMDD), sorted ascending and deduplicated.
	Candles(ctx context.Context, symbol, interval, endDate string, days int) ([]types.Candle, error)
	// LastTradeOutcome returns the realized result of the most recent closed
	// round-trip.
	LastTradeOutcome(ctx context.Context, symbol string) (types.TradeOutcome, error)
}
