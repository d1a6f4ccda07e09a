package signalobs

import (
	"context"
	"time"

	"gmo-trading-bot/internal/interfaces"
	"gmo-trading-bot/internal/logger"
	"gmo-trading-bot/internal/trace"
	"gmo-trading-bot/internal/types"
)

// observableProvider wraps a SignalProvider with logging and tracing
type observableProvider struct {
	p interfaces.SignalProvider
}

var _ interfaces.SignalProvider = (*observableProvider)(nil)

// Wrap wraps a signal provider with observability middleware
func Wrap(p interfaces.SignalProvider) interfaces.SignalProvider {
	return &observableProvider{p: p}
}

func (op *observableProvider) Predict(ctx context.Context, bars []types.Candle) (types.Signal, error) {
	ctx, span := trace.StartSpan(ctx, "signal.Predict")
	defer span.End()

	start := time.Now()
	sig, err := op.p.Predict(ctx, bars)
	elapsed := time.Since(start)

	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Prediction failed", err,
			"bars", len(bars), "elapsed_ms", elapsed.Milliseconds())
		return types.Signal{}, err
	}
	logger.InfoSkip(ctx, 1, "Prediction complete",
		"direction", sig.Direction,
		"confidence", sig.Confidence,
		"bars", len(bars),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return sig, nil
}
