package interfaces

import (
	"context"
	"time"

	"gmo-trading-bot/internal/types"
)

// Controller drives the hourly trading cycle.
type Controller interface {
	// Tick checks the wall clock and runs at most one cycle. It returns nil
	// when the hour has not advanced. Once halted it is a permanent no-op.
	Tick(ctx context.Context, now time.Time) (*types.CycleResult, error)
	// Halted reports whether the capital kill switch has fired.
	Halted() bool
	// NextWake returns how long to sleep before the next tick.
	NextWake(now time.Time) time.Duration
}
