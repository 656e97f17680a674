package sync

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/matheus3301/pairchat/internal/bus"
	"github.com/matheus3301/pairchat/internal/store"
	"go.uber.org/zap"
)

// Fetcher retrieves persisted history for a participant pair.
type Fetcher interface {
	Messages(ctx context.Context, senderID, receiverID string) ([]store.Message, error)
}

// History seeds the message store from the persisted-store collaborator.
// Loading is idempotent: the store's dedup discards anything a second fetch
// repeats.
type History struct {
	fetcher    Fetcher
	store      *store.Store
	bus        *bus.Bus
	logger     *zap.Logger
	userID     string
	receiverID string

	mu     sync.Mutex
	loaded bool
}

// NewHistory creates a history loader for one conversation.
func NewHistory(f Fetcher, s *store.Store, b *bus.Bus, userID, receiverID string, logger *zap.Logger) *History {
	return &History{
		fetcher:    f,
		store:      s,
		bus:        b,
		logger:     logger,
		userID:     userID,
		receiverID: receiverID,
	}
}

// Load fetches and merges history once per conversation activation.
// Subsequent calls are no-ops after a successful load; a failed load may be
// retried.
func (h *History) Load(ctx context.Context) error {
	h.mu.Lock()
	if h.loaded {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	if err := h.fetch(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	h.loaded = true
	h.mu.Unlock()
	return nil
}

// Refresh re-fetches history on explicit user request, regardless of the
// one-shot guard.
func (h *History) Refresh(ctx context.Context) error {
	err := h.fetch(ctx)
	if err == nil {
		h.mu.Lock()
		h.loaded = true
		h.mu.Unlock()
	}
	return err
}

func (h *History) fetch(ctx context.Context) error {
	batch, err := h.fetcher.Messages(ctx, h.userID, h.receiverID)
	if err != nil {
		if h.bus != nil {
			h.bus.Emit(bus.KindHistoryFailed, err)
		}
		return fmt.Errorf("load history: %w", err)
	}

	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].CreatedAt.Before(batch[j].CreatedAt)
	})

	conv := store.PairKey(h.userID, h.receiverID)
	h.store.Merge(conv, batch)

	h.logger.Info("history merged", zap.Int("messages", len(batch)))
	if h.bus != nil {
		h.bus.Emit(bus.KindHistoryLoaded, len(batch))
	}
	return nil
}
