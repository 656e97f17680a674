package session

import (
	"context"
	"os"
	"sync"

	"github.com/matheus3301/pairchat/internal/bus"
	"github.com/matheus3301/pairchat/internal/lock"
	"github.com/matheus3301/pairchat/internal/presence"
	"github.com/matheus3301/pairchat/internal/push"
	"github.com/matheus3301/pairchat/internal/store"
	chatsync "github.com/matheus3301/pairchat/internal/sync"
	"github.com/matheus3301/pairchat/internal/typing"
	"go.uber.org/zap"
)

// Session ties one conversation together: it holds the exclusivity lock,
// routes raw push traffic into the store, typing coordinator and presence
// tracker, and drives the push connection and history load on startup.
type Session struct {
	name       string
	userID     string
	receiverID string
	pairKey    string

	bus      *bus.Bus
	store    *store.Store
	conn     *push.Manager
	typing   *typing.Coordinator
	presence *presence.Tracker
	history  *chatsync.History
	logger   *zap.Logger

	lock      *lock.Lock
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New assembles a session for the (userID, receiverID) conversation.
// Start must be called before the session does anything.
func New(
	name, userID, receiverID string,
	b *bus.Bus,
	st *store.Store,
	conn *push.Manager,
	ty *typing.Coordinator,
	pr *presence.Tracker,
	hist *chatsync.History,
	logger *zap.Logger,
) *Session {
	return &Session{
		name:       name,
		userID:     userID,
		receiverID: receiverID,
		pairKey:    store.PairKey(userID, receiverID),
		bus:        b,
		store:      st,
		conn:       conn,
		typing:     ty,
		presence:   pr,
		history:    hist,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start acquires the conversation lock, wires the push-traffic router and
// kicks off the connection loop and the initial history load. A second
// process starting the same conversation fails here with a LockHeldError.
func (s *Session) Start(ctx context.Context) error {
	if err := EnsureDir(s.name); err != nil {
		return err
	}
	convDir := ConversationDir(s.name, s.pairKey)
	if err := os.MkdirAll(convDir, 0o755); err != nil {
		return err
	}

	l, err := lock.Acquire(convDir)
	if err != nil {
		return err
	}
	s.lock = l

	ctx, s.cancel = context.WithCancel(ctx)
	events, unsub := s.bus.Subscribe("push.", 64)
	go func() {
		defer close(s.done)
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				s.route(ev)
			}
		}
	}()

	s.conn.SetCounterpart(s.receiverID)
	s.conn.Connect(ctx)

	// History does not depend on the push channel; load it concurrently so a
	// slow or degraded link never blocks the backlog.
	go func() {
		if err := s.history.Load(ctx); err != nil {
			s.logger.Warn("initial history load failed", zap.Error(err))
		}
	}()

	s.logger.Info("session started",
		zap.String("session", s.name),
		zap.String("user", s.userID),
		zap.String("receiver", s.receiverID))
	return nil
}

// route dispatches one raw push event to the owning component. Conversation
// events republish under their own namespace once accepted.
func (s *Session) route(ev bus.Event) {
	switch ev.Kind {
	case bus.KindPushNewMessage:
		msg, ok := ev.Payload.(store.Message)
		if !ok {
			return
		}
		if store.PairKey(msg.SenderID, msg.ReceiverID) != s.pairKey {
			s.logger.Debug("dropping message for another conversation",
				zap.String("sender", msg.SenderID), zap.String("receiver", msg.ReceiverID))
			return
		}
		if s.store.Append(s.pairKey, msg) {
			s.bus.Emit(bus.KindMessageAppended, msg)
		}
	case bus.KindPushUserTyping:
		notice, ok := ev.Payload.(push.TypingNotice)
		if !ok || notice.UserID != s.receiverID {
			return
		}
		s.typing.SetRemote(notice.IsTyping)
	case bus.KindPushOnlineUsers:
		users, ok := ev.Payload.([]string)
		if !ok {
			return
		}
		s.presence.Replace(users)
	}
}

// Conversation returns the canonical pair key for this session.
func (s *Session) Conversation() string {
	return s.pairKey
}

// Close tears the session down in order: stop routing, withdraw typing,
// close the push channel, clear presence and release the lock. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		s.typing.Stop()
		s.conn.Close()
		s.presence.Reset()
		if s.lock != nil {
			if err := s.lock.Release(); err != nil {
				s.logger.Warn("lock release failed", zap.Error(err))
			}
		}
		s.logger.Info("session closed", zap.String("session", s.name))
	})
}
