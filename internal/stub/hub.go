package stub

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/pairchat/internal/push"
	"github.com/matheus3301/pairchat/internal/store"
	"go.uber.org/zap"
)

// Hub relays push-channel events between connected clients. Rooms are keyed
// by the canonical pair key; presence is broadcast wholesale to everyone on
// every change, mirroring the onlineUsers contract.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}
	online  map[string]int
}

type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex

	mu        sync.Mutex
	userID    string
	rooms     map[string]struct{}
	announced bool
}

func newHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		rooms:   make(map[string]map[*client]struct{}),
		online:  make(map[string]int),
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, rooms: make(map[string]struct{})}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.readLoop(c)
	h.drop(c)
}

func (h *Hub) readLoop(c *client) {
	for {
		var env push.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		h.dispatch(c, env)
	}
}

func (h *Hub) dispatch(c *client, env push.Envelope) {
	switch env.Event {
	case push.EventJoinRoom:
		var ref push.RoomRef
		if json.Unmarshal(env.Data, &ref) != nil {
			return
		}
		c.mu.Lock()
		c.userID = ref.UserID
		c.mu.Unlock()
		h.join(store.PairKey(ref.UserID, ref.ReceiverID), c)

	case push.EventLeaveRoom:
		var ref push.RoomRef
		if json.Unmarshal(env.Data, &ref) != nil {
			return
		}
		h.leave(store.PairKey(ref.UserID, ref.ReceiverID), c)

	case push.EventUserOnline:
		var ref push.UserRef
		if json.Unmarshal(env.Data, &ref) != nil {
			return
		}
		h.setOnline(c, ref.UserID)

	case push.EventUserOffline:
		var ref push.UserRef
		if json.Unmarshal(env.Data, &ref) != nil {
			return
		}
		h.setOffline(c, ref.UserID)

	case push.EventTyping, push.EventStopTyping:
		var ref push.RoomRef
		if json.Unmarshal(env.Data, &ref) != nil {
			return
		}
		notice := push.TypingNotice{UserID: ref.UserID, IsTyping: env.Event == push.EventTyping}
		h.relay(store.PairKey(ref.UserID, ref.ReceiverID), c, push.EventUserTyping, notice)

	case push.EventSendMessage:
		var msg store.Message
		if json.Unmarshal(env.Data, &msg) != nil {
			return
		}
		h.relay(store.PairKey(msg.SenderID, msg.ReceiverID), c, push.EventNewMessage, msg)

	default:
		h.logger.Debug("unhandled event", zap.String("event", env.Event))
	}
}

func (h *Hub) join(room string, c *client) {
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	h.mu.Unlock()

	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
}

func (h *Hub) leave(room string, c *client) {
	h.mu.Lock()
	if peers, ok := h.rooms[room]; ok {
		delete(peers, c)
		if len(peers) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
}

func (h *Hub) setOnline(c *client, userID string) {
	c.mu.Lock()
	already := c.announced
	c.announced = true
	c.userID = userID
	c.mu.Unlock()
	if already {
		return
	}

	h.mu.Lock()
	h.online[userID]++
	h.mu.Unlock()
	h.broadcastOnline()
}

func (h *Hub) setOffline(c *client, userID string) {
	c.mu.Lock()
	announced := c.announced
	c.announced = false
	c.mu.Unlock()
	if !announced {
		return
	}

	h.mu.Lock()
	if h.online[userID] > 0 {
		h.online[userID]--
	}
	if h.online[userID] == 0 {
		delete(h.online, userID)
	}
	h.mu.Unlock()
	h.broadcastOnline()
}

// drop cleans up after a disconnected client: room membership and presence.
func (h *Hub) drop(c *client) {
	c.mu.Lock()
	userID := c.userID
	announced := c.announced
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.mu.Unlock()

	for _, room := range rooms {
		h.leave(room, c)
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	if announced && userID != "" {
		h.setOffline(c, userID)
	}
	_ = c.conn.Close()
}

// relay sends an event to every room member except the origin client.
func (h *Hub) relay(room string, origin *client, event string, data any) {
	h.mu.Lock()
	peers := make([]*client, 0, len(h.rooms[room]))
	for peer := range h.rooms[room] {
		if peer != origin {
			peers = append(peers, peer)
		}
	}
	h.mu.Unlock()

	for _, peer := range peers {
		if err := peer.write(event, data); err != nil {
			h.logger.Warn("relay failed", zap.String("event", event), zap.Error(err))
		}
	}
}

func (h *Hub) broadcastOnline() {
	users := h.onlineSnapshot()

	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		_ = c.write(push.EventOnlineUsers, users)
	}
}

func (h *Hub) onlineSnapshot() []string {
	h.mu.Lock()
	users := make([]string, 0, len(h.online))
	for id := range h.online {
		users = append(users, id)
	}
	h.mu.Unlock()
	sort.Strings(users)
	return users
}

func (c *client) write(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(push.Envelope{Event: event, Data: raw})
}
