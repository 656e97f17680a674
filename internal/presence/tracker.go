package presence

import (
	"sort"
	"sync"

	"github.com/matheus3301/pairchat/internal/bus"
)

// Tracker maintains the set of participants currently online, fed by
// onlineUsers broadcasts from the push channel. The broadcast carries the
// full set, so updates replace the previous set wholesale.
type Tracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
	bus    *bus.Bus
}

// NewTracker creates an empty presence tracker.
func NewTracker(b *bus.Bus) *Tracker {
	return &Tracker{
		online: make(map[string]struct{}),
		bus:    b,
	}
}

// Replace swaps the online set for the broadcast one. A presence.changed
// event is published only when the set actually changed.
func (t *Tracker) Replace(userIDs []string) {
	next := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id != "" {
			next[id] = struct{}{}
		}
	}

	t.mu.Lock()
	changed := len(next) != len(t.online)
	if !changed {
		for id := range next {
			if _, ok := t.online[id]; !ok {
				changed = true
				break
			}
		}
	}
	t.online = next
	t.mu.Unlock()

	if changed && t.bus != nil {
		t.bus.Emit(bus.KindPresenceChanged, t.Snapshot())
	}
}

// Online reports whether the given participant is currently online.
func (t *Tracker) Online(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[userID]
	return ok
}

// Snapshot returns the online participant IDs, sorted.
func (t *Tracker) Snapshot() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.online))
	for id := range t.online {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset clears the set on session teardown.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.online = make(map[string]struct{})
	t.mu.Unlock()
}
