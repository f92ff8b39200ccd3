package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/quest-ledger/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	subscriberBuffer = 64
	writeWait        = 10 * time.Second
)

type subscriber struct {
	send   chan models.Event
	topics map[string]bool
}

func (s *subscriber) wants(topic string) bool {
	return len(s.topics) == 0 || s.topics[topic]
}

// Hub broadcasts events to websocket subscribers.
// Slow subscribers that fill their buffer are dropped.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Publish implements Sink
func (h *Hub) Publish(_ context.Context, evt models.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		if !sub.wants(evt.Topic) {
			continue
		}
		select {
		case sub.send <- evt:
		default:
			slog.Warn("dropping slow event subscriber", "sequence", evt.Sequence)
			delete(h.subs, sub)
			close(sub.send)
		}
	}
	return nil
}

// Subscribers returns the number of connected subscribers
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) subscribe(topics []string) *subscriber {
	sub := &subscriber{
		send:   make(chan models.Event, subscriberBuffer),
		topics: make(map[string]bool, len(topics)),
	}
	for _, t := range topics {
		sub.topics[t] = true
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
}

// ServeWS upgrades the request and streams events until the client leaves.
// Repeated ?topic= parameters restrict the stream to those topics.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	sub := h.subscribe(r.URL.Query()["topic"])
	defer h.unsubscribe(sub)

	slog.Info("event subscriber connected", "remote_addr", r.RemoteAddr, "topics", r.URL.Query()["topic"])

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain client frames so close and ping frames are processed
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("event subscriber read error", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("event subscriber disconnected", "remote_addr", r.RemoteAddr)
			return
		case evt, ok := <-sub.send:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscriber too slow"),
					time.Now().Add(writeWait))
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				slog.Error("failed to marshal event", "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("failed to send event", "error", err)
				return
			}
		}
	}
}
