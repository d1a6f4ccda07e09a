package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gmo-trading-bot/internal/interfaces"
)

func TestNotifyDisabledIsNoop(t *testing.T) {
	n := NewDiscordNotifier("")
	// Must not panic or block with no webhook configured.
	n.Notify(context.Background(), "hello", interfaces.SeverityInfo)
}

func TestNotifyPostsEmbed(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(srv.URL)
	n.Notify(context.Background(), "profit ratio below threshold", interfaces.SeverityWarning)

	embeds, ok := got["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("expected one embed, got %v", got)
	}
	embed := embeds[0].(map[string]any)
	if embed["description"] != "profit ratio below threshold" {
		t.Errorf("description = %v", embed["description"])
	}
	if int(embed["color"].(float64)) != colorWarning {
		t.Errorf("color = %v, want warning color", embed["color"])
	}
}

func TestNotifySwallowsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(srv.URL)
	// Must not panic or propagate the failure.
	n.Notify(context.Background(), "boom", interfaces.SeverityError)
}
