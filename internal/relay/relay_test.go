package relay

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// startServer runs a relay on an httptest listener and returns a dialer
// base URL (ws scheme).
func startServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()
	srv := NewServer(opts)
	go srv.Run()
	t.Cleanup(srv.Stop)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return srv, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// settle gives the reactor time to process joins posted after the
// upgrade handshake completed on the client side.
func settle() {
	time.Sleep(100 * time.Millisecond)
}

// expectClose reads until the connection closes and returns the code.
func expectClose(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		if ce, ok := err.(*websocket.CloseError); ok {
			return ce.Code
		}
		t.Fatalf("connection ended without close frame: %v", err)
	}
}

func TestRelayBroadcastScopedToRoom(t *testing.T) {
	_, base := startServer(t, Options{})

	a := dial(t, base+"/relay?room=r&clientId=a")
	b := dial(t, base+"/relay?room=r&clientId=b")
	c := dial(t, base+"/relay?room=s&clientId=c")
	settle()

	if err := a.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("send: %v", err)
	}

	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := b.ReadMessage()
	if err != nil {
		t.Fatalf("peer read: %v", err)
	}
	if mt != websocket.TextMessage || string(data) != "hello" {
		t.Errorf("peer got (%d, %q), want text \"hello\"", mt, data)
	}

	// A different room must see nothing.
	c.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := c.ReadMessage(); err == nil {
		t.Error("client in another room received the frame")
	}
}

func TestRelayPreservesBinaryFraming(t *testing.T) {
	_, base := startServer(t, Options{})

	a := dial(t, base+"/relay?room=r&clientId=a")
	b := dial(t, base+"/relay?room=r&clientId=b")
	settle()

	payload := []byte{0x00, 0xFF, 0x10, 0x80}
	if err := a.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		t.Fatalf("send: %v", err)
	}

	b.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := b.ReadMessage()
	if err != nil {
		t.Fatalf("peer read: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Errorf("frame type = %d, want binary", mt)
	}
	if string(data) != string(payload) {
		t.Errorf("payload altered in relay: %v", data)
	}
}

func TestRelaySenderDoesNotEcho(t *testing.T) {
	_, base := startServer(t, Options{})

	a := dial(t, base+"/relay?room=r&clientId=a")
	dial(t, base+"/relay?room=r&clientId=b")
	settle()

	if err := a.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("send: %v", err)
	}

	a.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := a.ReadMessage(); err == nil {
		t.Error("sender received its own frame")
	}
}

func TestRelayRoomFull(t *testing.T) {
	_, base := startServer(t, Options{MaxClientsPerRoom: 1})

	dial(t, base+"/relay?room=r&clientId=a")
	settle()

	late := dial(t, base+"/relay?room=r&clientId=b")
	if code := expectClose(t, late); code != websocket.CloseTryAgainLater {
		t.Errorf("close code = %d, want %d (room full)", code, websocket.CloseTryAgainLater)
	}
}

func TestRelayMissingRoom(t *testing.T) {
	_, base := startServer(t, Options{})

	conn := dial(t, base+"/relay?clientId=a")
	if code := expectClose(t, conn); code != websocket.ClosePolicyViolation {
		t.Errorf("close code = %d, want %d", code, websocket.ClosePolicyViolation)
	}
}

func TestRelayWrongPath(t *testing.T) {
	_, base := startServer(t, Options{})

	conn := dial(t, base+"/other?room=r")
	if code := expectClose(t, conn); code != websocket.ClosePolicyViolation {
		t.Errorf("close code = %d, want %d", code, websocket.ClosePolicyViolation)
	}
}

func TestRelayTokenValidation(t *testing.T) {
	validate := func(ctx context.Context, room, clientID, token string) bool {
		return token == "letmein"
	}
	_, base := startServer(t, Options{ValidateToken: validate})

	rejected := dial(t, base+"/relay?room=r&token=wrong")
	if code := expectClose(t, rejected); code != websocket.ClosePolicyViolation {
		t.Errorf("close code = %d, want %d", code, websocket.ClosePolicyViolation)
	}

	ok := dial(t, base+"/relay?room=r&clientId=a&token=letmein")
	// The accepted client stays connected long enough to exchange a frame.
	peer := dial(t, base+"/relay?room=r&clientId=b&token=letmein")
	settle()
	if err := ok.WriteMessage(websocket.TextMessage, []byte("hi")); err != nil {
		t.Fatalf("send after join: %v", err)
	}
	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := peer.ReadMessage(); err != nil {
		t.Errorf("validated peer read: %v", err)
	}
}

// A peer that never answers pings must be terminated within the pong
// grace window (2.5 heartbeat intervals) plus one sweep.
func TestRelayHeartbeatTerminatesDeadPeer(t *testing.T) {
	_, base := startServer(t, Options{HeartbeatInterval: 50 * time.Millisecond})

	conn := dial(t, base+"/relay?room=r&clientId=dead")
	// Suppress the automatic pong reply to play dead.
	conn.SetPingHandler(func(string) error { return nil })

	start := time.Now()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Fatal("expected the server to terminate the silent peer")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("termination took %v, want within the grace window", elapsed)
	}
}

func TestRelayRoomCleanupAfterLastLeave(t *testing.T) {
	srv, base := startServer(t, Options{HeartbeatInterval: 50 * time.Millisecond})

	conn := dial(t, base+"/relay?room=r&clientId=a")
	conn.Close()

	// The leave lands in the reactor; poll until the room map is empty.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv.RoomCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("room not deleted after last client left, rooms=%d", srv.RoomCount())
}
