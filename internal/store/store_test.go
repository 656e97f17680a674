package store

import (
	"testing"
	"time"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func msg(id, sender, text string, offset time.Duration) Message {
	return Message{
		ID:         id,
		SenderID:   sender,
		ReceiverID: "u2",
		Text:       text,
		CreatedAt:  base.Add(offset),
	}
}

func TestMergeSortsAscending(t *testing.T) {
	s := New()
	conv := PairKey("u1", "u2")

	s.Merge(conv, []Message{
		msg("m3", "u1", "third", 20*time.Second),
		msg("m1", "u1", "first", 0),
		msg("m2", "u2", "second", 10*time.Second),
	})

	got := s.All(conv)
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Errorf("messages out of order at index %d: %v before %v", i, got[i].CreatedAt, got[i-1].CreatedAt)
		}
	}
	if got[0].ID != "m1" || got[2].ID != "m3" {
		t.Errorf("got order %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestMergeIdempotent(t *testing.T) {
	s := New()
	conv := PairKey("u1", "u2")
	batch := []Message{
		msg("m1", "u1", "hello", 0),
		msg("m2", "u2", "hi back", 5*time.Second),
	}

	s.Merge(conv, batch)
	once := s.All(conv)

	s.Merge(conv, batch)
	twice := s.All(conv)

	if len(once) != len(twice) {
		t.Fatalf("merge not idempotent: %d vs %d messages", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("sequence changed at %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

// Scenario: the server returns the same record twice in one batch.
func TestMergeDuplicateIDsInBatch(t *testing.T) {
	s := New()
	conv := PairKey("u1", "u2")

	s.Merge(conv, []Message{
		msg("m1", "u1", "hello", 0),
		msg("m1", "u1", "hello", 0),
	})

	if got := s.All(conv); len(got) != 1 {
		t.Errorf("got %d messages, want 1", len(got))
	}
}

func TestAppendReportsDuplicate(t *testing.T) {
	s := New()
	conv := PairKey("u1", "u2")

	if !s.Append(conv, msg("m1", "u1", "hello", 0)) {
		t.Error("first append reported duplicate")
	}
	if s.Append(conv, msg("m1", "u1", "hello", 0)) {
		t.Error("second append of same id reported added")
	}
	if got := s.All(conv); len(got) != 1 {
		t.Errorf("got %d messages, want 1", len(got))
	}
}

// Scenario: the push copy of a just-sent message (no ID yet) lands first,
// then the persisted record arrives. The store must keep one entry and it
// must carry the server ID.
func TestAppendPrefersPersistedCopy(t *testing.T) {
	s := New()
	conv := PairKey("u1", "u2")

	if !s.Append(conv, msg("", "u1", "hi", 0)) {
		t.Fatal("push copy not added")
	}
	if s.Append(conv, msg("m1", "u1", "hi", 500*time.Millisecond)) {
		t.Error("persisted copy reported as new message")
	}

	got := s.All(conv)
	if len(got) != 1 {
		t.Fatalf("got %d messages, want 1", len(got))
	}
	if got[0].ID != "m1" {
		t.Errorf("surviving copy has id %q, want m1", got[0].ID)
	}
}

func TestAppendOutsideFingerprintWindow(t *testing.T) {
	s := New()
	conv := PairKey("u1", "u2")

	s.Append(conv, msg("", "u1", "hi", 0))
	if !s.Append(conv, msg("", "u1", "hi", 3*time.Second)) {
		t.Error("message outside window treated as duplicate")
	}
	if got := s.All(conv); len(got) != 2 {
		t.Errorf("got %d messages, want 2", len(got))
	}
}

func TestAppendKeepsOrder(t *testing.T) {
	s := New()
	conv := PairKey("u1", "u2")

	s.Append(conv, msg("m2", "u2", "later", 10*time.Second))
	s.Append(conv, msg("m1", "u1", "earlier", 0))

	got := s.All(conv)
	if got[0].ID != "m1" {
		t.Errorf("first message is %s, want m1", got[0].ID)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	s := New()
	conv := PairKey("u1", "u2")
	s.Append(conv, msg("m1", "u1", "hello", 0))

	got := s.All(conv)
	got[0].Text = "mutated"

	if s.All(conv)[0].Text != "hello" {
		t.Error("All returned the internal slice")
	}
}

func TestDrop(t *testing.T) {
	s := New()
	conv := PairKey("u1", "u2")
	s.Append(conv, msg("m1", "u1", "hello", 0))
	s.Drop(conv)

	if got := s.All(conv); len(got) != 0 {
		t.Errorf("got %d messages after drop, want 0", len(got))
	}
}

func TestPairKeyCanonical(t *testing.T) {
	if PairKey("u1", "u2") != PairKey("u2", "u1") {
		t.Error("pair key depends on participant order")
	}
	if PairKey("u1", "u2") == PairKey("u1", "u3") {
		t.Error("distinct pairs share a key")
	}
}
