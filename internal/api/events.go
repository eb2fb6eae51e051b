package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/EcliqseX/vetsim/internal/clinic"
)

const (
	subscriberBuffer = 32
	writeWait        = 5 * time.Second
	pingPeriod       = 30 * time.Second
)

// Hub fans engine events out to the subscribers of each session. It is a
// clinic.Observer; slow subscribers lose events rather than block the engine.
type Hub struct {
	log *logrus.Logger

	mu     sync.RWMutex
	subs   map[string]map[chan clinic.Event]struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{log: logger, subs: make(map[string]map[chan clinic.Event]struct{})}
}

// Observe implements clinic.Observer.
func (h *Hub) Observe(ev clinic.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			h.log.WithFields(logrus.Fields{
				"session_id": ev.SessionID,
				"event":      ev.Type,
			}).Warn("Dropping event for slow subscriber")
		}
	}
}

// Subscribe returns a channel of events for sessionID and a cancel func.
// The channel is closed by cancel or by Close.
func (h *Hub) Subscribe(sessionID string) (<-chan clinic.Event, func()) {
	ch := make(chan clinic.Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan clinic.Event]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[sessionID][ch]; !ok {
				return
			}
			delete(h.subs[sessionID], ch)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			close(ch)
		})
	}
}

// Subscribers reports how many listeners sessionID has.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, id)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks are left to the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleEvents streams the session's engine events over a websocket as JSON
// messages until the client disconnects.
func (s *Server) handleEvents(c *gin.Context) {
	id := c.Param("id")
	if err := s.deps.Registry.View(c.Request.Context(), id, func(*clinic.SessionState) error { return nil }); err != nil {
		s.respond(c, 0, nil, nil, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).WithField("session_id", id).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := s.deps.Hub.Subscribe(id)
	defer cancel()

	// Reads only serve to notice the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
