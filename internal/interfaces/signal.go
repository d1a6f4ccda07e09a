package interfaces

import (
	"context"

	"gmo-trading-bot/internal/types"
)

// SignalProvider turns a price history ending at the last closed hourly bar
// into a directional signal. Implementations must not touch controller state;
// any ensembling or remote calls stay behind this one method.
type SignalProvider interface {
	Predict(ctx context.Context, bars []types.Candle) (types.Signal, error)
}
