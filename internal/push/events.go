package push

import "encoding/json"

// Event names on the push channel. Outbound events are emitted by this
// client; inbound events arrive from the channel.
const (
	// Outbound.
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventUserOnline  = "userOnline"
	EventUserOffline = "userOffline"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
	EventSendMessage = "sendMessage"

	// Inbound.
	EventNewMessage  = "newMessage"
	EventUserTyping  = "userTyping"
	EventOnlineUsers = "onlineUsers"
)

// Envelope is the wire frame for every push-channel event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomRef addresses the conversation room for a participant pair.
type RoomRef struct {
	UserID     string `json:"userId"`
	ReceiverID string `json:"receiverId"`
}

// UserRef carries a single participant identity.
type UserRef struct {
	UserID string `json:"userId"`
}

// TypingNotice is the inbound remote typing signal.
type TypingNotice struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}
