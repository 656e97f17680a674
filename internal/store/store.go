package store

import (
	"sort"
	"sync"
)

// Store holds the visible message sequence for each conversation, keyed by
// PairKey. Sequences are deduplicated via SameMessage and always sorted
// ascending by CreatedAt, with arrival order breaking ties.
type Store struct {
	mu    sync.RWMutex
	convs map[string][]Message
}

// New creates an empty message store.
func New() *Store {
	return &Store{
		convs: make(map[string][]Message),
	}
}

// Merge folds a batch of messages into a conversation. Duplicates are
// discarded; when a duplicate pair differs in ID, the copy carrying a
// non-empty ID wins. The sequence is re-sorted after the merge.
func (s *Store) Merge(conv string, incoming []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.convs[conv]
	for _, m := range incoming {
		seq = upsert(seq, m)
	}
	sortByCreatedAt(seq)
	s.convs[conv] = seq
}

// Append adds a single message to a conversation unless it duplicates one
// already present. Reports whether the message was actually added; a
// duplicate is discarded (keeping the copy with a non-empty ID) and reported
// as false.
func (s *Store) Append(conv string, m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.convs[conv]
	for i, existing := range seq {
		if SameMessage(existing, m) {
			if existing.ID == "" && m.ID != "" {
				seq[i] = m
				sortByCreatedAt(seq)
			}
			return false
		}
	}
	seq = append(seq, m)
	sortByCreatedAt(seq)
	s.convs[conv] = seq
	return true
}

// All returns the visible message sequence for a conversation, sorted
// ascending by CreatedAt. The returned slice is a copy.
func (s *Store) All(conv string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq := s.convs[conv]
	out := make([]Message, len(seq))
	copy(out, seq)
	return out
}

// Drop discards a conversation's sequence entirely.
func (s *Store) Drop(conv string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, conv)
}

// upsert inserts m unless seq already holds the same logical message. On a
// duplicate, the existing entry is replaced in place if m carries an ID the
// existing copy lacks.
func upsert(seq []Message, m Message) []Message {
	for i, existing := range seq {
		if SameMessage(existing, m) {
			if existing.ID == "" && m.ID != "" {
				seq[i] = m
			}
			return seq
		}
	}
	return append(seq, m)
}

func sortByCreatedAt(seq []Message) {
	sort.SliceStable(seq, func(i, j int) bool {
		return seq[i].CreatedAt.Before(seq[j].CreatedAt)
	})
}
