package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
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

// Provider is the Anthropic variant of the LLM predictor. Same prompt and
// reflection handling as the OpenAI provider, different wire format.
type Provider struct {
	cfg        *store.Config
	reflection *signal.ReflectionLog
	fetcher    *news.Fetcher
	endpoint   string
	now        func() time.Time
}

func NewProvider(cfg *store.Config, reflection *signal.ReflectionLog, fetcher *news.Fetcher) *Provider {
	// Default public messages endpoint. Bedrock and Vertex users set
	// CLAUDE_API_ENDPOINT instead.
	endpoint := "https://api.anthropic.com/v1/messages"
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
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
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("CLAUDE_API_KEY")
	}
	if apiKey == "" {
		return "", errors.New("ANTHROPIC_API_KEY missing")
	}

	body := map[string]any{
		"model":       p.cfg.LLM.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"max_tokens":  p.cfg.LLM.MaxTokens,
		"temperature": p.cfg.LLM.Temperature,
	}
	bb, _ := json.Marshal(body)

	req, _ := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewReader(bb))
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("claude http %d: %s", resp.StatusCode, string(respBytes))
	}

	var r struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBytes, &r); err != nil {
		return "", err
	}
	for _, c := range r.Content {
		if c.Type == "text" && strings.TrimSpace(c.Text) != "" {
			return strings.TrimSpace(c.Text), nil
		}
	}
	return "", errors.New("no text content in response")
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
