package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combot/internal/game/encounter"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

// TrackerEvent is the websocket frame pushed to channel subscribers.
type TrackerEvent struct {
	Type    string            `json:"type"`
	Tracker encounter.Tracker `json:"tracker"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan TrackerEvent
}

// Hub fans tracker updates out to the websocket subscribers of each channel.
type Hub struct {
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger, subs: make(map[string]map[*subscriber]struct{})}
}

// Broadcast queues tracker for every subscriber of channelID. A subscriber
// whose buffer is full is dropped.
func (h *Hub) Broadcast(channelID string, tracker encounter.Tracker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[channelID] {
		select {
		case s.send <- TrackerEvent{Type: "tracker", Tracker: tracker}:
		default:
			h.logger.Warn("dropping slow tracker subscriber", zap.String("channel_id", channelID))
			h.removeLocked(channelID, s)
		}
	}
}

// Subscribers returns the number of live subscribers for channelID.
func (h *Hub) Subscribers(channelID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[channelID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for channelID, set := range h.subs {
		for s := range set {
			h.removeLocked(channelID, s)
		}
	}
}

func (h *Hub) add(channelID string, conn *websocket.Conn) *subscriber {
	s := &subscriber{conn: conn, send: make(chan TrackerEvent, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[channelID] == nil {
		h.subs[channelID] = make(map[*subscriber]struct{})
	}
	h.subs[channelID][s] = struct{}{}
	return s
}

func (h *Hub) remove(channelID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(channelID, s)
}

// removeLocked closes s's queue once; the writer then closes the connection.
func (h *Hub) removeLocked(channelID string, s *subscriber) {
	set := h.subs[channelID]
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, channelID)
	}
	close(s.send)
}

// serve pumps s until the client goes away or the hub drops it.
// Precondition: initial, when non-nil, is sent before any broadcast.
func (h *Hub) serve(channelID string, s *subscriber, initial *encounter.Tracker) {
	go func() {
		defer h.remove(channelID, s)
		for {
			// Client frames are ignored; reading surfaces the close.
			if _, _, err := s.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer s.conn.Close()
	if initial != nil {
		if err := h.write(s, TrackerEvent{Type: "tracker", Tracker: *initial}); err != nil {
			h.remove(channelID, s)
			return
		}
	}
	for ev := range s.send {
		if err := h.write(s, ev); err != nil {
			h.logger.Debug("tracker subscriber write failed", zap.String("channel_id", channelID), zap.Error(err))
			h.remove(channelID, s)
			return
		}
	}
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) write(s *subscriber, ev TrackerEvent) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(ev)
}
