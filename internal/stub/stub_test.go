package stub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/pairchat/internal/push"
	"github.com/matheus3301/pairchat/internal/store"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(zap.NewNop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(push.Envelope{Event: event, Data: raw}); err != nil {
		t.Fatalf("emit %s: %v", event, err)
	}
}

func expect(t *testing.T, conn *websocket.Conn, event string) push.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env push.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if env.Event == event {
			return env
		}
	}
}

func TestSendThenHistory(t *testing.T) {
	_, ts := newTestServer(t)

	body := `{"senderId":"u1","receiverId":"u2","message":"hello"}`
	resp, err := http.Post(ts.URL+"/messages/send", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var persisted store.Message
	if err := json.NewDecoder(resp.Body).Decode(&persisted); err != nil {
		t.Fatal(err)
	}
	if persisted.ID == "" {
		t.Error("persisted message has no id")
	}
	if persisted.CreatedAt.IsZero() {
		t.Error("persisted message has no createdAt")
	}

	// History is symmetric: either participant order returns the same log.
	for _, path := range []string{"/messages/u1/u2", "/messages/u2/u1"} {
		hresp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		var msgs []store.Message
		if err := json.NewDecoder(hresp.Body).Decode(&msgs); err != nil {
			t.Fatal(err)
		}
		_ = hresp.Body.Close()
		if len(msgs) != 1 || msgs[0].ID != persisted.ID {
			t.Errorf("GET %s = %+v, want the persisted message", path, msgs)
		}
	}
}

func TestHistoryEmptyPair(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/messages/u1/u2")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var msgs []store.Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		t.Fatal(err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Errorf("got %v, want empty array", msgs)
	}
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	_, ts := newTestServer(t)

	body := `{"senderId":"u1","receiverId":"u2","message":"  "}`
	resp, err := http.Post(ts.URL+"/messages/send", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHubRelaysMessagesWithinRoom(t *testing.T) {
	_, ts := newTestServer(t)

	alice := dial(t, ts)
	bob := dial(t, ts)

	emit(t, alice, push.EventJoinRoom, push.RoomRef{UserID: "u1", ReceiverID: "u2"})
	emit(t, bob, push.EventJoinRoom, push.RoomRef{UserID: "u2", ReceiverID: "u1"})
	time.Sleep(50 * time.Millisecond) // let joins register

	msg := store.Message{ID: "m1", SenderID: "u1", ReceiverID: "u2", Text: "hi", CreatedAt: time.Now().UTC()}
	emit(t, alice, push.EventSendMessage, msg)

	env := expect(t, bob, push.EventNewMessage)
	var got store.Message
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "m1" || got.Text != "hi" {
		t.Errorf("relayed message = %+v", got)
	}

	// The sender must not receive its own echo.
	_ = alice.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var echo push.Envelope
	if err := alice.ReadJSON(&echo); err == nil && echo.Event == push.EventNewMessage {
		t.Error("sender received its own message back")
	}
}

func TestHubRelaysTyping(t *testing.T) {
	_, ts := newTestServer(t)

	alice := dial(t, ts)
	bob := dial(t, ts)

	emit(t, alice, push.EventJoinRoom, push.RoomRef{UserID: "u1", ReceiverID: "u2"})
	emit(t, bob, push.EventJoinRoom, push.RoomRef{UserID: "u2", ReceiverID: "u1"})
	time.Sleep(50 * time.Millisecond)

	emit(t, alice, push.EventTyping, push.RoomRef{UserID: "u1", ReceiverID: "u2"})
	env := expect(t, bob, push.EventUserTyping)
	var notice push.TypingNotice
	if err := json.Unmarshal(env.Data, &notice); err != nil {
		t.Fatal(err)
	}
	if notice.UserID != "u1" || !notice.IsTyping {
		t.Errorf("notice = %+v, want u1 typing", notice)
	}

	emit(t, alice, push.EventStopTyping, push.RoomRef{UserID: "u1", ReceiverID: "u2"})
	env = expect(t, bob, push.EventUserTyping)
	if err := json.Unmarshal(env.Data, &notice); err != nil {
		t.Fatal(err)
	}
	if notice.IsTyping {
		t.Error("expected isTyping=false after stopTyping")
	}
}

func TestHubBroadcastsPresence(t *testing.T) {
	s, ts := newTestServer(t)

	alice := dial(t, ts)
	bob := dial(t, ts)

	emit(t, alice, push.EventUserOnline, push.UserRef{UserID: "u1"})
	env := expect(t, alice, push.EventOnlineUsers)
	var users []string
	if err := json.Unmarshal(env.Data, &users); err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0] != "u1" {
		t.Errorf("online = %v, want [u1]", users)
	}

	// Bob was already connected when alice announced, so his queue may hold
	// an older one-user roster; read until the full roster arrives.
	emit(t, bob, push.EventUserOnline, push.UserRef{UserID: "u2"})
	for {
		env = expect(t, bob, push.EventOnlineUsers)
		if err := json.Unmarshal(env.Data, &users); err != nil {
			t.Fatal(err)
		}
		if len(users) == 2 {
			break
		}
	}

	// Disconnect drops presence and re-broadcasts.
	_ = alice.Close()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if got := s.Online(); len(got) == 1 && got[0] == "u2" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("online = %v, want [u2]", s.Online())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
