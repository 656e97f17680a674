package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matheus3301/pairchat/internal/store"
	"go.uber.org/zap"
)

// TransientError wraps a failure of the persisted-store collaborator that the
// caller may retry (network error, timeout, non-2xx response).
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable collaborator failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Client talks to the persisted-store collaborator over HTTP.
type Client struct {
	base   string
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a REST client for the given base URL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Messages fetches the persisted history for a participant pair.
// No records is an empty slice, not an error.
func (c *Client) Messages(ctx context.Context, senderID, receiverID string) ([]store.Message, error) {
	u := fmt.Sprintf("%s/messages/%s/%s", c.base, url.PathEscape(senderID), url.PathEscape(receiverID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "fetch history", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransientError{Op: "fetch history", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var msgs []store.Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, &TransientError{Op: "fetch history", Err: fmt.Errorf("decode response: %w", err)}
	}
	if msgs == nil {
		msgs = []store.Message{}
	}
	return msgs, nil
}

type sendRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

// Send persists a new message. On success the returned Message carries the
// server-assigned ID and CreatedAt.
func (c *Client) Send(ctx context.Context, senderID, receiverID, text string) (store.Message, error) {
	body, err := json.Marshal(sendRequest{SenderID: senderID, ReceiverID: receiverID, Message: text})
	if err != nil {
		return store.Message{}, fmt.Errorf("encode send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/messages/send", bytes.NewReader(body))
	if err != nil {
		return store.Message{}, fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return store.Message{}, &TransientError{Op: "send message", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return store.Message{}, &TransientError{Op: "send message", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var persisted store.Message
	if err := json.NewDecoder(resp.Body).Decode(&persisted); err != nil {
		return store.Message{}, &TransientError{Op: "send message", Err: fmt.Errorf("decode response: %w", err)}
	}
	return persisted, nil
}
