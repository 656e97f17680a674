package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matheus3301/pairchat/internal/store"
	"go.uber.org/zap"
)

func TestMessages(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/u1/u2" {
			t.Errorf("path = %q, want /messages/u1/u2", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]store.Message{
			{ID: "m1", SenderID: "u1", ReceiverID: "u2", Text: "hello", CreatedAt: at},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	msgs, err := c.Messages(context.Background(), "u1", "u2")
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m1" || msgs[0].Text != "hello" {
		t.Errorf("got %+v", msgs)
	}
}

// Scenario: no history yet. The server answers with an empty array (or null);
// that is a successful empty result, not an error.
func TestMessagesEmpty(t *testing.T) {
	for name, body := range map[string]string{"empty array": "[]", "null": "null"} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, zap.NewNop())
			msgs, err := c.Messages(context.Background(), "u1", "u2")
			if err != nil {
				t.Fatalf("Messages() error = %v", err)
			}
			if msgs == nil || len(msgs) != 0 {
				t.Errorf("got %v, want empty non-nil slice", msgs)
			}
		})
	}
}

func TestMessagesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.Messages(context.Background(), "u1", "u2")
	if err == nil {
		t.Fatal("Messages() expected error")
	}
	if !IsTransient(err) {
		t.Errorf("error %v is not transient", err)
	}
}

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages/send" {
			t.Errorf("%s %s, want POST /messages/send", r.Method, r.URL.Path)
		}
		var req struct {
			SenderID   string `json:"senderId"`
			ReceiverID string `json:"receiverId"`
			Message    string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.SenderID != "u1" || req.ReceiverID != "u2" || req.Message != "hi" {
			t.Errorf("request body = %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(store.Message{
			ID: "m1", SenderID: req.SenderID, ReceiverID: req.ReceiverID,
			Text: req.Message, CreatedAt: time.Now().UTC(),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	persisted, err := c.Send(context.Background(), "u1", "u2", "hi")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if persisted.ID != "m1" {
		t.Errorf("persisted id = %q, want m1", persisted.ID)
	}
	if persisted.CreatedAt.IsZero() {
		t.Error("persisted message has zero CreatedAt")
	}
}

func TestSendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately: connection refused

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.Send(context.Background(), "u1", "u2", "hi")
	if err == nil {
		t.Fatal("Send() expected error")
	}
	if !IsTransient(err) {
		t.Errorf("error %v is not transient", err)
	}
}
