package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds published by the chat session core. Subscribers filter by
// namespace prefix, e.g. "message." or "push.".
const (
	// Raw push-channel traffic, published by the connection manager.
	KindPushConnected    = "push.connected"
	KindPushDisconnected = "push.disconnected"
	KindPushNewMessage   = "push.newMessage"
	KindPushUserTyping   = "push.userTyping"
	KindPushOnlineUsers  = "push.onlineUsers"

	// Conversation-level events, published after the store accepted a message.
	KindMessageAppended = "message.appended"
	KindSendFailed      = "message.send_failed"

	// Peer state.
	KindRemoteTyping    = "typing.remote_changed"
	KindPresenceChanged = "presence.changed"

	// Link and history lifecycle.
	KindLinkStatus    = "link.status_changed"
	KindHistoryLoaded = "sync.history_loaded"
	KindHistoryFailed = "sync.history_failed"
)
