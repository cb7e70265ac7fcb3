package monitor

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/srvstats/internal/logger"
	"github.com/rileyhilliard/srvstats/internal/stats"
)

const writeWait = 5 * time.Second

// Message is what the hub sends to websocket subscribers.
type Message struct {
	Type     string          `json:"type"`
	Host     string          `json:"host,omitempty"`
	Snapshot *stats.Snapshot `json:"snapshot,omitempty"`
}

// Hub fans snapshots out to websocket subscribers. New subscribers get the
// latest snapshot of every host first.
type Hub struct {
	upgrader websocket.Upgrader
	log      logger.Logger

	mu          sync.Mutex
	subscribers map[*subscriber]bool
	latest      map[string]*stats.Snapshot
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// send serializes writes; gorilla connections allow one writer at a time.
func (s *subscriber) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// NewHub creates an empty hub.
func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.Noop()
	}
	return &Hub{
		log:         log,
		subscribers: make(map[*subscriber]bool),
		latest:      make(map[string]*stats.Snapshot),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler serves /ws and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		hosts := len(h.latest)
		h.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "hosts": hosts})
	})
	return mux
}

// Publish records r as the host's latest snapshot and sends it to every
// subscriber. Results without a snapshot are dropped.
func (h *Hub) Publish(r Result) {
	if r.Snapshot == nil {
		return
	}
	data, err := json.Marshal(Message{Type: "snapshot", Host: r.Host, Snapshot: r.Snapshot})
	if err != nil {
		h.log.Warn("encode snapshot for %s: %v", r.Host, err)
		return
	}

	h.mu.Lock()
	h.latest[r.Host] = r.Snapshot
	subs := make([]*subscriber, 0, len(h.subscribers))
	for s := range h.subscribers {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		if err := s.send(data); err != nil {
			h.log.Debug("drop websocket subscriber: %v", err)
			h.removeSubscriber(s)
			_ = s.conn.Close()
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[*subscriber]bool)
	h.mu.Unlock()

	for s := range subs {
		_ = s.conn.Close()
	}
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	sub := &subscriber{conn: conn}

	// Catch up before joining the broadcast set.
	for _, msg := range h.snapshotMessages() {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := sub.send(data); err != nil {
			return
		}
	}

	h.addSubscriber(sub)
	defer h.removeSubscriber(sub)

	// Subscribers only listen; reading keeps control frames flowing and
	// tells us when they leave.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) snapshotMessages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	hosts := make([]string, 0, len(h.latest))
	for host := range h.latest {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	msgs := make([]Message, 0, len(hosts))
	for _, host := range hosts {
		msgs = append(msgs, Message{Type: "snapshot", Host: host, Snapshot: h.latest[host]})
	}
	return msgs
}

func (h *Hub) addSubscriber(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[s] = true
}

func (h *Hub) removeSubscriber(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, s)
}
