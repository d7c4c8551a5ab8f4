package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, hub *Hub, tripID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, tripID, "user-1"); err != nil {
			t.Errorf("serve failed: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// publishUntil keeps publishing until stop is closed, since the session is
// registered asynchronously after the upgrade.
func publishUntil(stop <-chan struct{}, publish func()) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			publish()
		}
	}
}

func TestHub_PublishReachesTripSubscribers(t *testing.T) {
	hub := NewHub()
	hub.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	defer hub.Close()

	conn := dial(t, hub, "trip-a")

	stop := make(chan struct{})
	defer close(stop)
	go publishUntil(stop, func() {
		hub.Publish("trip-b", "message.created", map[string]string{"content": "not for you"})
		hub.Publish("trip-a", "message.created", map[string]string{"content": "hello"})
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var env struct {
		Type    string            `json:"type"`
		TripID  string            `json:"trip_id"`
		Payload map[string]string `json:"payload"`
		SentAt  time.Time         `json:"sent_at"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("invalid frame %s: %v", data, err)
	}
	if env.TripID != "trip-a" || env.Type != "message.created" || env.Payload["content"] != "hello" {
		t.Errorf("unexpected frame %+v", env)
	}
	if !env.SentAt.Equal(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected sent_at %s", env.SentAt)
	}
}

func TestHub_PublishAfterClose(t *testing.T) {
	hub := NewHub()
	if err := hub.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	// must not panic or block
	hub.Publish("trip-a", "trip.updated", nil)
}
