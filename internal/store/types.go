package store

import (
	"strings"
	"time"
)

// Message is a single chat message exchanged between two participants.
// ID is assigned by the persisted-store collaborator and is empty until the
// message has been durably created there. JSON tags follow the backend wire
// format. A Message is immutable once accepted into the Store.
type Message struct {
	ID         string    `json:"_id,omitempty"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PairKey returns the canonical conversation key for two participants.
// The key is independent of which side is the sender.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + ":" + b
}
