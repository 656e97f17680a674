package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/pairchat/internal/bus"
	"github.com/matheus3301/pairchat/internal/status"
	"github.com/matheus3301/pairchat/internal/store"
	"go.uber.org/zap"
)

const (
	maxConnectAttempts = 5
	reconnectDelay     = time.Second
	writeTimeout       = 10 * time.Second
)

// ErrNotConnected is returned by Emit while the push channel is down.
// Sending and history fetch do not depend on the channel, so callers treat
// this as degraded delivery, not failure.
var ErrNotConnected = errors.New("push channel not connected")

// Manager owns the push-channel session: the websocket handle, the bounded
// reconnect loop, room join/leave and presence announcements. Inbound events
// are decoded and republished on the bus under the "push." namespace.
// One Manager exists per chat session; Connect is re-entrant and a no-op once
// the connection loop is running.
type Manager struct {
	url     string
	userID  string
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
	dialer  *websocket.Dialer

	mu         sync.Mutex
	wmu        sync.Mutex
	conn       *websocket.Conn
	receiverID string
	announced  string // counterpart announced on the current connection
	started    bool
	closed     bool
	cancel     context.CancelFunc
}

// NewManager creates a push-channel manager for the given user.
func NewManager(url, userID string, b *bus.Bus, machine *status.Machine, logger *zap.Logger) *Manager {
	return &Manager{
		url:     url,
		userID:  userID,
		bus:     b,
		machine: machine,
		logger:  logger,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// SetCounterpart sets the active conversation counterpart. If the channel is
// connected and a different counterpart was announced, the old room is left
// and the new pairing is announced.
func (m *Manager) SetCounterpart(receiverID string) {
	m.mu.Lock()
	m.receiverID = receiverID
	conn := m.conn
	prev := m.announced
	m.mu.Unlock()

	if conn != nil && prev != "" && prev != receiverID {
		_ = m.writeEvent(conn, EventLeaveRoom, RoomRef{UserID: m.userID, ReceiverID: prev})
	}
	m.announce()
}

// Connect starts the connection loop. Calling it again while a loop is
// running (or after Close) is a no-op.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	go m.run(ctx)
}

// Connected reports whether the push channel currently holds a live handle.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Emit sends an event over the push channel. Returns ErrNotConnected while
// the link is down.
func (m *Manager) Emit(event string, data any) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return m.writeEvent(conn, event, data)
}

// Close tears the channel down: announces leaveRoom/userOffline if connected,
// stops the reconnect loop and releases the handle. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	conn := m.conn
	announced := m.announced
	cancel := m.cancel
	m.mu.Unlock()

	if conn != nil {
		if announced != "" {
			_ = m.writeEvent(conn, EventLeaveRoom, RoomRef{UserID: m.userID, ReceiverID: announced})
		}
		_ = m.writeEvent(conn, EventUserOffline, UserRef{UserID: m.userID})
		m.wmu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		m.wmu.Unlock()
		_ = conn.Close()
	}
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) run(ctx context.Context) {
	attempts := 0
	for {
		if m.isClosed() || ctx.Err() != nil {
			return
		}

		_ = m.machine.Transition(status.Connecting)
		conn, resp, err := m.dialer.DialContext(ctx, m.url, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			_ = m.machine.Transition(status.Disconnected)
			attempts++
			if attempts >= maxConnectAttempts {
				// Real-time delivery degrades; history fetch and send keep
				// working through the persisted store.
				m.logger.Warn("push channel unavailable, giving up",
					zap.Int("attempts", attempts), zap.Error(err))
				return
			}
			m.logger.Info("push channel connect failed, retrying",
				zap.Int("attempt", attempts), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}
		attempts = 0

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			_ = conn.Close()
			return
		}
		m.conn = conn
		m.announced = ""
		m.mu.Unlock()

		_ = m.machine.Transition(status.Connected)
		m.bus.Emit(bus.KindPushConnected, nil)
		m.announce()

		m.readLoop(conn)

		m.mu.Lock()
		m.conn = nil
		m.announced = ""
		closed := m.closed
		m.mu.Unlock()

		_ = m.machine.Transition(status.Disconnected)
		if closed || ctx.Err() != nil {
			return
		}
		m.bus.Emit(bus.KindPushDisconnected, nil)

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// announce emits joinRoom and userOnline exactly once per
// (connection, counterpart) pairing.
func (m *Manager) announce() {
	m.mu.Lock()
	conn := m.conn
	recv := m.receiverID
	if conn == nil || recv == "" || m.announced == recv {
		m.mu.Unlock()
		return
	}
	m.announced = recv
	m.mu.Unlock()

	if err := m.writeEvent(conn, EventJoinRoom, RoomRef{UserID: m.userID, ReceiverID: recv}); err != nil {
		m.logger.Warn("join announce failed", zap.Error(err))
		return
	}
	_ = m.writeEvent(conn, EventUserOnline, UserRef{UserID: m.userID})
	m.logger.Info("joined conversation room", zap.String("receiver", recv))
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if !m.isClosed() {
				m.logger.Warn("push channel dropped", zap.Error(err))
			}
			return
		}
		if m.isClosed() {
			// Teardown has begun: discard, do not queue.
			return
		}
		m.route(env)
	}
}

func (m *Manager) route(env Envelope) {
	switch env.Event {
	case EventNewMessage:
		var msg store.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			m.logger.Warn("malformed newMessage payload", zap.Error(err))
			return
		}
		m.bus.Emit(bus.KindPushNewMessage, msg)
	case EventUserTyping:
		var notice TypingNotice
		if err := json.Unmarshal(env.Data, &notice); err != nil {
			m.logger.Warn("malformed userTyping payload", zap.Error(err))
			return
		}
		m.bus.Emit(bus.KindPushUserTyping, notice)
	case EventOnlineUsers:
		var users []string
		if err := json.Unmarshal(env.Data, &users); err != nil {
			m.logger.Warn("malformed onlineUsers payload", zap.Error(err))
			return
		}
		m.bus.Emit(bus.KindPushOnlineUsers, users)
	default:
		m.logger.Debug("unhandled push event", zap.String("event", env.Event))
	}
}

func (m *Manager) writeEvent(conn *websocket.Conn, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	m.wmu.Lock()
	defer m.wmu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(Envelope{Event: event, Data: raw}); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
