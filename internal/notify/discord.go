// Package notify delivers best-effort outward messages. Delivery failures
// are logged and swallowed; nothing here ever reaches the control loop.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gmo-trading-bot/internal/interfaces"
	"gmo-trading-bot/internal/logger"
)

// Embed colors per severity.
const (
	colorInfo    = 0x2ecc71
	colorWarning = 0xf1c40f
	colorError   = 0xe74c3c
)

// DiscordNotifier sends messages to a Discord webhook. With no URL configured
// it degrades to log-only.
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	http       *http.Client
}

var _ interfaces.Notifier = (*DiscordNotifier)(nil)

func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		enabled:    webhookURL != "",
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Notify(ctx context.Context, message, severity string) {
	logger.Info(ctx, "Notification", "severity", severity, "message", message)
	if !d.enabled {
		return
	}

	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       "gmo-trading-bot",
				"description": message,
				"color":       severityColor(severity),
				"timestamp":   time.Now().Format(time.RFC3339),
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to marshal notification", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(data))
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to build notification request", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to send notification", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		logger.Error(ctx, "Notification rejected", "status", fmt.Sprintf("%d", resp.StatusCode))
	}
}

func severityColor(severity string) int {
	switch severity {
	case interfaces.SeverityWarning:
		return colorWarning
	case interfaces.SeverityError:
		return colorError
	default:
		return colorInfo
	}
}
