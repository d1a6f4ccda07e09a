// Package noop provides a signal provider that never trades. Useful for
// dry-run wiring checks and as a safe default.
package noop

import (
	"context"

	"gmo-trading-bot/internal/types"
)

type Provider struct{}

func NewProvider() *Provider { return &Provider{} }

func (p *Provider) Predict(ctx context.Context, bars []types.Candle) (types.Signal, error) {
	return types.Signal{Direction: types.SideHold, Confidence: 0, Reason: "noop"}, nil
}
