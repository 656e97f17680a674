package send

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/matheus3301/pairchat/internal/bus"
	"github.com/matheus3301/pairchat/internal/push"
	"github.com/matheus3301/pairchat/internal/store"
	"go.uber.org/zap"
)

// ErrEmptyMessage is returned for empty or whitespace-only text. Rejected
// locally, no network round trip.
var ErrEmptyMessage = errors.New("message text is empty")

// Persister durably creates a message on the persisted-store collaborator.
type Persister interface {
	Send(ctx context.Context, senderID, receiverID, text string) (store.Message, error)
}

// Broadcaster delivers a persisted message to the counterpart in real time.
type Broadcaster interface {
	Connected() bool
	Emit(event string, data any) error
}

// DraftBuffer is the composition buffer owned by the typing coordinator.
type DraftBuffer interface {
	Take() string
	Restore(text string)
}

// Pipeline runs one logical "send message" action: clear the draft, persist,
// append to the store, broadcast live. At most one send is in flight per
// conversation; overlapping calls are dropped as a policy outcome, not an
// error. The persisted store does not push to the counterpart, so live
// delivery is the sender's job whenever the channel is up.
type Pipeline struct {
	persister   Persister
	broadcaster Broadcaster
	drafts      DraftBuffer
	store       *store.Store
	bus         *bus.Bus
	logger      *zap.Logger
	userID      string
	receiverID  string

	inFlight atomic.Bool
}

// NewPipeline creates a send pipeline for one conversation.
func NewPipeline(p Persister, b Broadcaster, d DraftBuffer, s *store.Store, eb *bus.Bus, userID, receiverID string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		persister:   p,
		broadcaster: b,
		drafts:      d,
		store:       s,
		bus:         eb,
		logger:      logger,
		userID:      userID,
		receiverID:  receiverID,
	}
}

// InFlight reports whether a send is currently running.
func (p *Pipeline) InFlight() bool {
	return p.inFlight.Load()
}

// Send persists text and broadcasts the persisted record. On failure the
// draft is restored verbatim so the user keeps what they typed. The in-flight
// flag is released on every path out.
func (p *Pipeline) Send(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	if !p.inFlight.CompareAndSwap(false, true) {
		// Duplicate invocation (double key-press) while a send is running.
		p.logger.Debug("send already in flight, dropping duplicate")
		return nil
	}
	defer p.inFlight.Store(false)

	// Clear the composer right away so the input feels responsive; this also
	// withdraws the typing announcement.
	p.drafts.Take()

	persisted, err := p.persister.Send(ctx, p.userID, p.receiverID, trimmed)
	if err != nil {
		p.drafts.Restore(text)
		p.logger.Warn("persist failed, draft restored", zap.Error(err))
		if p.bus != nil {
			p.bus.Emit(bus.KindSendFailed, err)
		}
		return fmt.Errorf("send message: %w", err)
	}

	conv := store.PairKey(p.userID, p.receiverID)
	if p.store.Append(conv, persisted) && p.bus != nil {
		p.bus.Emit(bus.KindMessageAppended, persisted)
	}

	if p.broadcaster.Connected() {
		if err := p.broadcaster.Emit(push.EventSendMessage, persisted); err != nil {
			// Degraded: the message is persisted, the counterpart will see it
			// on their next history fetch.
			p.logger.Warn("live broadcast failed", zap.Error(err))
		}
	}

	return nil
}
