package realtime

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sitewatch/sitewatch-api/internal/models"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(ServeWS(hub, zerolog.Nop()))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return msg
}

func TestHandshakeSendsConnectedFrame(t *testing.T) {
	hub := newTestHub()
	conn := dialTestHub(t, hub)

	msg := readFrame(t, conn)
	if msg.Type != "connected" {
		t.Fatalf("first frame type = %q, want connected", msg.Type)
	}
	if msg.ConnectionID == "" {
		t.Fatal("connected frame must carry a connection id")
	}
	if msg.ServerTime == nil {
		t.Fatal("connected frame must carry server time")
	}
}

func TestRegisterFrameEstablishesPresence(t *testing.T) {
	hub := newTestHub()
	conn := dialTestHub(t, hub)
	readFrame(t, conn) // connected

	if err := conn.WriteJSON(ClientMessage{Type: "register", UserID: "u1"}); err != nil {
		t.Fatalf("write register: %v", err)
	}

	ack := readFrame(t, conn)
	if ack.Type != "registered" || ack.UserID != "u1" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if !hub.IsOnline("u1") {
		t.Fatal("u1 should be online after register frame")
	}
}

func TestPingFrameGetsPong(t *testing.T) {
	hub := newTestHub()
	conn := dialTestHub(t, hub)
	readFrame(t, conn) // connected

	if err := conn.WriteJSON(ClientMessage{Type: "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if msg := readFrame(t, conn); msg.Type != "pong" {
		t.Fatalf("frame type = %q, want pong", msg.Type)
	}
}

func TestPushReachesRegisteredConnection(t *testing.T) {
	hub := newTestHub()
	conn := dialTestHub(t, hub)
	readFrame(t, conn) // connected

	if err := conn.WriteJSON(ClientMessage{Type: "register", UserID: "u1"}); err != nil {
		t.Fatalf("write register: %v", err)
	}
	readFrame(t, conn) // registered

	notifier := NewHubNotifier(hub, zerolog.Nop())
	if err := notifier.Notify(t.Context(), models.Notification{
		ID:          "n1",
		RecipientID: "u1",
		Title:       "Report Approved",
		Message:     "ok",
		Category:    models.NotificationCategorySuccess,
		Priority:    models.NotificationPriorityMedium,
	}); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if msg := readFrame(t, conn); msg.Type != "new_notification" {
		t.Fatalf("frame type = %q, want new_notification", msg.Type)
	}
}

func TestCloseRemovesPresence(t *testing.T) {
	hub := newTestHub()
	conn := dialTestHub(t, hub)
	readFrame(t, conn) // connected

	if err := conn.WriteJSON(ClientMessage{Type: "register", UserID: "u1"}); err != nil {
		t.Fatalf("write register: %v", err)
	}
	readFrame(t, conn) // registered

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.IsOnline("u1") {
		if time.Now().After(deadline) {
			t.Fatal("u1 still online after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMalformedFrameIsIgnored(t *testing.T) {
	hub := newTestHub()
	conn := dialTestHub(t, hub)
	readFrame(t, conn) // connected

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	// Connection must survive and still accept a register frame.
	if err := conn.WriteJSON(ClientMessage{Type: "register", UserID: "u1"}); err != nil {
		t.Fatalf("write register: %v", err)
	}
	if ack := readFrame(t, conn); ack.Type != "registered" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
}
