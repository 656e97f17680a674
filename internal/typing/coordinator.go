package typing

import (
	"sync"
	"time"

	"github.com/matheus3301/pairchat/internal/bus"
	"github.com/matheus3301/pairchat/internal/push"
	"go.uber.org/zap"
)

// IdleTimeout is how long the composer may stay silent before the typing
// announcement is withdrawn.
const IdleTimeout = time.Second

// Emitter sends events over the push channel.
type Emitter interface {
	Emit(event string, data any) error
}

// Coordinator owns the local composition draft and debounces the typing
// signal: one typing announcement when composing starts, one stopTyping when
// the composer idles out, empties, or the draft is taken for sending. It also
// tracks the counterpart's typing flag from inbound userTyping events, which
// is applied directly with no debounce.
type Coordinator struct {
	emitter    Emitter
	bus        *bus.Bus
	logger     *zap.Logger
	userID     string
	receiverID string
	idle       time.Duration

	mu        sync.Mutex
	draft     string
	announced bool
	timer     *time.Timer

	remote bool
}

// NewCoordinator creates a typing coordinator for one conversation.
func NewCoordinator(emitter Emitter, b *bus.Bus, userID, receiverID string, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		emitter:    emitter,
		bus:        b,
		logger:     logger,
		userID:     userID,
		receiverID: receiverID,
		idle:       IdleTimeout,
	}
}

// SetDraft records the composer content after a keystroke. A non-empty draft
// announces typing (once per active period) and re-arms the idle timer; an
// empty draft withdraws the announcement immediately.
func (c *Coordinator) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text

	if text == "" {
		c.stopLocked()
		c.mu.Unlock()
		return
	}

	announce := !c.announced
	c.announced = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.idle, c.idleExpired)
	c.mu.Unlock()

	if announce {
		if err := c.emitter.Emit(push.EventTyping, push.RoomRef{UserID: c.userID, ReceiverID: c.receiverID}); err != nil {
			c.logger.Debug("typing emit failed", zap.Error(err))
		}
	}
}

// Draft returns the current composition draft.
func (c *Coordinator) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Take clears the draft and withdraws any typing announcement, returning the
// draft as it was. The send pipeline calls this before persisting.
func (c *Coordinator) Take() string {
	c.mu.Lock()
	text := c.draft
	c.draft = ""
	c.stopLocked()
	c.mu.Unlock()
	return text
}

// Restore puts a draft back after a failed send. Restoring is not a
// keystroke, so no typing announcement is made.
func (c *Coordinator) Restore(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// Stop cancels the idle timer and withdraws any outstanding announcement.
// Called on session teardown.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
}

// SetRemote applies the counterpart's typing flag from an inbound userTyping
// event and publishes typing.remote_changed when it flips.
func (c *Coordinator) SetRemote(isTyping bool) {
	c.mu.Lock()
	changed := c.remote != isTyping
	c.remote = isTyping
	c.mu.Unlock()

	if changed && c.bus != nil {
		c.bus.Emit(bus.KindRemoteTyping, isTyping)
	}
}

// Remote reports whether the counterpart is currently typing.
func (c *Coordinator) Remote() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

func (c *Coordinator) idleExpired() {
	c.mu.Lock()
	c.stopLocked()
	c.mu.Unlock()
}

// stopLocked cancels the timer and emits stopTyping if an announcement is
// outstanding. At most one stopTyping is sent per typing period.
func (c *Coordinator) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if !c.announced {
		return
	}
	c.announced = false
	if err := c.emitter.Emit(push.EventStopTyping, push.RoomRef{UserID: c.userID, ReceiverID: c.receiverID}); err != nil {
		c.logger.Debug("stopTyping emit failed", zap.Error(err))
	}
}
