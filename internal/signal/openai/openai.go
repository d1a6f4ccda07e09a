package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gmo-trading-bot/internal/analyzer"
	"gmo-trading-bot/internal/news"
	"gmo-trading-bot/internal/signal"
	"gmo-trading-bot/internal/store"
	"gmo-trading-bot/internal/trace"
	"gmo-trading-bot/internal/types"
)

// Provider predicts the next hour's direction with an OpenAI chat model,
// feeding it the technical report, recent news, and its own scored history.
type Provider struct {
	cfg        *store.Config
	reflection *signal.ReflectionLog
	fetcher    *news.Fetcher
	endpoint   string
	now        func() time.Time
}

func NewProvider(cfg *store.Config, reflection *signal.ReflectionLog, fetcher *news.Fetcher) *Provider {
	endpoint := "https://api.openai.com/v1/chat/completions"
	// Proxies and gateways can override via OPENAI_API_ENDPOINT.
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	return &Provider{cfg: cfg, reflection: reflection, fetcher: fetcher, endpoint: endpoint, now: time.Now}
}

func (p *Provider) Predict(ctx context.Context, bars []types.Candle) (types.Signal, error) {
	report := analyzer.Analyze(bars, analyzerConfig(p.cfg))

	var articles []types.NewsArticle
	if p.fetcher != nil {
		articles = p.fetcher.Fetch(ctx)
	}

	prompt := signal.BuildPrompt(p.now(), report, articles, p.reflection.Records())

	content, err := p.complete(ctx, prompt)
	if err != nil {
		return types.Signal{}, err
	}

	pred := signal.ParsePrediction(content)
	p.reflection.Append(signal.Record{
		PredictionTime: p.now().Format(time.RFC3339),
		Report:         report,
		News:           articles,
		Prediction:     pred,
	})
	return pred.ToSignal(), nil
}

func (p *Provider) complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", errors.New("OPENAI_API_KEY missing")
	}

	body := map[string]any{
		"model":       p.cfg.LLM.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": p.cfg.LLM.Temperature,
		"max_tokens":  p.cfg.LLM.MaxTokens,
	}
	bb, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewReader(bb))
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", err
	}
	if len(r.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}

func analyzerConfig(cfg *store.Config) analyzer.Config {
	return analyzer.Config{
		SMAShort:  cfg.Indicators.SMAShort,
		SMALong:   cfg.Indicators.SMALong,
		RSIPeriod: cfg.Indicators.RSIPeriod,
		BBWindow:  cfg.Indicators.BBWindow,
		BBStdDev:  cfg.Indicators.BBStdDev,
		MACDFast:  cfg.Indicators.MACDFast,
		MACDSlow:  cfg.Indicators.MACDSlow,
		MACDSig:   cfg.Indicators.MACDSig,
	}
}
