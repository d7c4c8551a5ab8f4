// Package realtime pushes trip activity to WebSocket clients.
package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/olahol/melody"

	"tripsync/internal/logger"
)

const (
	keyTripID = "trip_id"
	keyUserID = "user_id"
)

// Envelope is the frame sent to clients for every trip event.
type Envelope struct {
	Type    string      `json:"type"`
	TripID  string      `json:"trip_id"`
	Payload interface{} `json:"payload,omitempty"`
	SentAt  time.Time   `json:"sent_at"`
}

// Hub fans trip events out to the WebSocket sessions subscribed to a trip.
type Hub struct {
	m   *melody.Melody
	now func() time.Time
}

// NewHub creates a Hub with keep-alive settings suited to hosted proxies.
func NewHub() *Hub {
	m := melody.New()
	m.Config.MaxMessageSize = 64 * 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	log := logger.With("component", "realtime")
	m.HandleConnect(func(s *melody.Session) {
		tripID, _ := s.Get(keyTripID)
		userID, _ := s.Get(keyUserID)
		log.Debugw("websocket connected", "trip_id", tripID, "user_id", userID)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		tripID, _ := s.Get(keyTripID)
		userID, _ := s.Get(keyUserID)
		log.Debugw("websocket disconnected", "trip_id", tripID, "user_id", userID)
	})
	m.HandleError(func(s *melody.Session, err error) {
		tripID, _ := s.Get(keyTripID)
		log.Warnw("websocket error", "trip_id", tripID, "error", err)
	})
	// the feed is server-to-client; inbound frames are dropped
	m.HandleMessage(func(*melody.Session, []byte) {})

	return &Hub{m: m, now: time.Now}
}

// Serve upgrades the request and subscribes the connection to tripID.
// Callers must have authorized userID for the trip beforehand.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, tripID, userID string) error {
	return h.m.HandleRequestWithKeys(w, r, map[string]interface{}{
		keyTripID: tripID,
		keyUserID: userID,
	})
}

// Publish sends an event to every session subscribed to tripID. Delivery is
// best effort; failures are logged.
func (h *Hub) Publish(tripID, kind string, payload interface{}) {
	msg, err := json.Marshal(Envelope{Type: kind, TripID: tripID, Payload: payload, SentAt: h.now().UTC()})
	if err != nil {
		logger.Get().Errorw("failed to encode realtime event", "trip_id", tripID, "type", kind, "error", err)
		return
	}
	err = h.m.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, ok := s.Get(keyTripID)
		return ok && id == tripID
	})
	if err != nil && !errors.Is(err, melody.ErrClosed) {
		logger.Get().Warnw("failed to broadcast realtime event", "trip_id", tripID, "type", kind, "error", err)
	}
}

// Close disconnects every session.
func (h *Hub) Close() error {
	return h.m.Close()
}
