package controllerobs

import (
	"context"
	"time"

	"gmo-trading-bot/internal/interfaces"
	"gmo-trading-bot/internal/logger"
	"gmo-trading-bot/internal/trace"
	"gmo-trading-bot/internal/types"
)

type observableController struct {
	ctrl interfaces.Controller
}

var _ interfaces.Controller = (*observableController)(nil)

func Wrap(ctrl interfaces.Controller) interfaces.Controller {
	return &observableController{
		ctrl: ctrl,
	}
}

func (oc *observableController) Tick(ctx context.Context, now time.Time) (*types.CycleResult, error) {
	ctx, span := trace.StartSpan(ctx, "controller.Tick")
	defer span.End()

	start := time.Now()

	result, err := oc.ctrl.Tick(ctx, now)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trading cycle failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	if result == nil {
		// Hour already processed, nothing happened.
		return nil, nil
	}

	logger.InfoSkip(ctx, 1, "Trading cycle finished",
		"symbol", result.Symbol,
		"hour", result.Hour,
		"skipped", result.Skipped,
		"halted", result.Halted,
		"direction", result.Signal.Direction,
		"orders", len(result.Orders),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (oc *observableController) Halted() bool { return oc.ctrl.Halted() }

func (oc *observableController) NextWake(now time.Time) time.Duration { return oc.ctrl.NextWake(now) }
