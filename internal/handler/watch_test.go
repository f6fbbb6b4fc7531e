package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"igdm/internal/model/api"
	"igdm/internal/upstream"
)

func wsURL(serverURL, path string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + path
}

func TestWatchHandshake(t *testing.T) {
	gw := &fakeGateway{
		thread: upstream.RawThread{
			ThreadID: "1234",
			Users:    []upstream.RawUser{{PK: "2", Username: "bob"}},
		},
	}
	env := newTestEnv(t, gw, false)
	env.login(t)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	// The login above went through the recorder, not this server; the session
	// manager is shared so the socket sees the authenticated state.
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/ws/thread/1234"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v (resp=%v)", err, resp)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event api.WSEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read first event: %v", err)
	}
	if event.Type != "status" || event.Status != "watching" {
		t.Errorf("first event = %+v, want watching status", event)
	}
	if event.ThreadID != "1234" {
		t.Errorf("event thread = %q, want 1234", event.ThreadID)
	}
}

func TestWatchPushesNewMessages(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out multiple poll intervals")
	}

	existing := upstream.RawThread{
		ThreadID: "1234",
		Users:    []upstream.RawUser{{PK: "2", Username: "bob"}},
		Items: []upstream.RawItem{
			{ItemID: "m1", UserID: "2", Timestamp: 1_000_000, ItemType: "text", Text: "hello"},
		},
	}
	gw := &fakeGateway{thread: existing, threadPolled: make(chan struct{}, 1)}
	env := newTestEnv(t, gw, false)
	env.login(t)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/ws/thread/1234"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(20 * time.Second))
	var event api.WSEvent
	if err := conn.ReadJSON(&event); err != nil || event.Status != "watching" {
		t.Fatalf("expected watching status, got %+v (err=%v)", event, err)
	}

	// Let the first poll record the current head, then grow the thread.
	select {
	case <-gw.threadPolled:
	case <-time.After(15 * time.Second):
		t.Fatal("watch never polled upstream")
	}
	grown := existing
	grown.Items = []upstream.RawItem{
		{ItemID: "m2", UserID: "2", Timestamp: 2_000_000, ItemType: "text", Text: "you there?"},
		existing.Items[0],
	}
	gw.setThread(grown)

	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read pushed event: %v", err)
	}
	if event.Type != "message" || event.Message == nil || event.Message.ID != "m2" {
		t.Errorf("pushed event = %+v, want message m2", event)
	}
}

func TestWatchRequiresSession(t *testing.T) {
	env := newTestEnv(t, &fakeGateway{}, false)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/ws/thread/1234"), nil)
	if err == nil {
		t.Fatal("expected handshake rejection without a session")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 handshake response, got %+v", resp)
	}
}
