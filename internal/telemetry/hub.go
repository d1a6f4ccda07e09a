// Package telemetry streams cycle results to websocket subscribers, for
// dashboards watching the bot live.
package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gmo-trading-bot/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Hub struct {
	log       *zap.Logger
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	lock      sync.Mutex
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:       log,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 16),
	}
}

// Run fans broadcast messages out to every connected client. Dead clients
// are dropped on write failure.
func (h *Hub) Run() {
	for message := range h.broadcast {
		h.lock.Lock()
		for client := range h.clients {
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				h.log.Debug("dropping telemetry client", zap.Error(err))
				client.Close()
				delete(h.clients, client)
			}
		}
		h.lock.Unlock()
	}
}

// PublishCycle pushes one cycle result to subscribers. Never blocks the
// control loop: if the buffer is full the message is dropped.
func (h *Hub) PublishCycle(res *types.CycleResult) {
	if res == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.log.Warn("telemetry buffer full, dropping cycle result")
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.lock.Lock()
	h.clients[conn] = true
	h.lock.Unlock()
	h.log.Info("telemetry client connected", zap.String("remote", r.RemoteAddr))
}

// StartServer serves the /ws endpoint and blocks. Run it on its own
// goroutine.
func (h *Hub) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)

	h.log.Info("telemetry server listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, mux)
}
