// Package ensemble scores the engineered feature vector with a set of
// logistic models and averages their probabilities into one signal.
package ensemble

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gmo-trading-bot/internal/interfaces"
	"gmo-trading-bot/internal/logger"
	"gmo-trading-bot/internal/types"
)

// Model is one exported logistic regression: probability of an up move is
// sigmoid(bias + weights . features).
type Model struct {
	Name    string             `json:"name"`
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// ProbUp returns the model's probability that the next bar closes up.
func (m Model) ProbUp(features map[string]float64) (float64, error) {
	z := m.Bias
	for name, w := range m.Weights {
		v, ok := features[name]
		if !ok {
			return 0, fmt.Errorf("model %s: missing feature %q", m.Name, name)
		}
		z += w * v
	}
	return 1.0 / (1.0 + math.Exp(-z)), nil
}

type Provider struct {
	models      []Model
	featureCols []string
}

var _ interfaces.SignalProvider = (*Provider)(nil)

// Load reads every *.json model file from dir. featureCols restricts the
// features exposed to the models, matching the training-time column list.
func Load(dir string, featureCols []string) (*Provider, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ensemble: read models dir: %w", err)
	}

	var models []Model
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ensemble: read model %s: %w", e.Name(), err)
		}
		var m Model
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("ensemble: parse model %s: %w", e.Name(), err)
		}
		if m.Name == "" {
			m.Name = strings.TrimSuffix(e.Name(), ".json")
		}
		models = append(models, m)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("ensemble: no model files in %s", dir)
	}
	return &Provider{models: models, featureCols: featureCols}, nil
}

// NewProvider builds a provider from in-memory models, used by tests.
func NewProvider(models []Model, featureCols []string) *Provider {
	return &Provider{models: models, featureCols: featureCols}
}

// Predict averages the models' up probabilities over the last closed bar's
// features. The ensemble always trades: at or above 0.5 is a BUY, below is a
// SELL.
func (p *Provider) Predict(ctx context.Context, bars []types.Candle) (types.Signal, error) {
	feats, err := LatestFeatures(bars)
	if err != nil {
		return types.Signal{}, err
	}
	scored := p.selectColumns(feats)

	sum := 0.0
	for _, m := range p.models {
		prob, err := m.ProbUp(scored)
		if err != nil {
			return types.Signal{}, err
		}
		sum += prob
	}
	avg := sum / float64(len(p.models))
	logger.Debug(ctx, "Ensemble probability", "prob_up", avg, "models", len(p.models))

	if avg >= 0.5 {
		return types.Signal{
			Direction:  types.SideBuy,
			Confidence: avg * 100,
			Reason:     fmt.Sprintf("ensemble prob_up=%.3f", avg),
		}, nil
	}
	return types.Signal{
		Direction:  types.SideSell,
		Confidence: (1 - avg) * 100,
		Reason:     fmt.Sprintf("ensemble prob_up=%.3f", avg),
	}, nil
}

func (p *Provider) selectColumns(feats map[string]float64) map[string]float64 {
	if len(p.featureCols) == 0 {
		return feats
	}
	out := make(map[string]float64, len(p.featureCols))
	for _, col := range p.featureCols {
		if v, ok := feats[col]; ok {
			out[col] = v
		}
	}
	return out
}
