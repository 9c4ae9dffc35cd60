package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"tangled.org/atscan.net/reviewscan/internal/worker"
)

const (
	defaultReplay = 100
	clientBuffer  = 64
	pingInterval  = 30 * time.Second
	pongWait      = 60 * time.Second
	writeWait     = 10 * time.Second
)

// Hub fans worker results out to websocket subscribers and keeps the
// most recent events for replay. Subscribers that cannot keep up are
// disconnected.
type Hub struct {
	mu      sync.Mutex
	seq     uint64
	recent  []Event
	replay  int
	clients map[chan Event]struct{}
	closed  bool
	now     func() time.Time
}

// NewHub creates a hub remembering the last replay events
func NewHub(replay int) *Hub {
	if replay < 0 {
		replay = 0
	}
	return &Hub{
		replay:  replay,
		clients: make(map[chan Event]struct{}),
		now:     time.Now,
	}
}

// Publish converts a worker result into an event and broadcasts it.
// It has the signature of worker.Config.OnResult.
func (h *Hub) Publish(result worker.Result) {
	ev := Event{
		Type:       "verdict",
		CompanyID:  result.Job.CompanyID,
		Result:     result.Label,
		DurationMs: result.Duration.Milliseconds(),
	}
	if result.Report != nil {
		trusted := result.Report.Verdict.Trusted
		ev.Trusted = &trusted
		ev.Detections = result.Report.Verdict.DetectionNames()
		if result.Report.Company != nil {
			ev.Title = result.Report.Company.DisplayTitle()
		}
	}
	if result.Err != nil {
		ev.Type = "failure"
		ev.Error = result.Err.Error()
	}
	h.Broadcast(ev)
}

// Broadcast assigns the next sequence number to ev and sends it to every subscriber
func (h *Hub) Broadcast(ev Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ev
	}

	h.seq++
	ev.Seq = h.seq
	if ev.Time.IsZero() {
		ev.Time = h.now().UTC()
	}

	if h.replay > 0 {
		h.recent = append(h.recent, ev)
		if len(h.recent) > h.replay {
			h.recent = h.recent[len(h.recent)-h.replay:]
		}
	}

	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			delete(h.clients, ch)
			close(ch)
		}
	}
	return ev
}

// Subscribe registers a subscriber. Remembered events with a sequence
// number of at least from are returned as backlog; from == 0 means live only.
// The returned channel is closed on Close, on cancel, or when the
// subscriber falls behind.
func (h *Hub) Subscribe(from uint64) (backlog []Event, events <-chan Event, cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, clientBuffer)
	if h.closed {
		close(ch)
		return nil, ch, func() {}
	}

	if from > 0 {
		for _, ev := range h.recent {
			if ev.Seq >= from {
				backlog = append(backlog, ev)
			}
		}
	}
	h.clients[ch] = struct{}{}

	cancel = func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	}
	return backlog, ch, cancel
}

// Recent returns the remembered events, oldest first
func (h *Hub) Recent() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.recent))
	copy(out, h.recent)
	return out
}

// Seq returns the sequence number of the last event
func (h *Hub) Seq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

// Subscribers returns the number of connected subscribers
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}

func (s *Server) handleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var from uint64
		if cursorStr := r.URL.Query().Get("cursor"); cursorStr != "" {
			var err error
			from, err = strconv.ParseUint(cursorStr, 10, 64)
			if err != nil {
				http.Error(w, "Invalid cursor: must be non-negative integer", 400)
				return
			}
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Printf("WebSocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		backlog, events, cancel := s.hub.Subscribe(from)
		defer cancel()

		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		done := make(chan struct{})

		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						s.logger.Printf("WebSocket: client closed connection")
					}
					return
				}
			}
		}()

		if err := s.streamEvents(conn, backlog, events, done); err != nil {
			s.logger.Printf("WebSocket stream error: %v", err)
		}
	}
}

func (s *Server) streamEvents(conn *websocket.Conn, backlog []Event, events <-chan Event, done chan struct{}) error {
	for _, ev := range backlog {
		if err := sendEvent(conn, ev); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil

		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return nil
			}
			if err := sendEvent(conn, ev); err != nil {
				return err
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func sendEvent(conn *websocket.Conn, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
