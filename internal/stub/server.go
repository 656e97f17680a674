// Package stub is a local stand-in for both external collaborators: the
// persisted message store (REST) and the push channel (websocket). It backs
// the integration tests and runs standalone via cmd/pairstub for development
// against a loopback counterpart.
package stub

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/matheus3301/pairchat/internal/store"
	"go.uber.org/zap"
)

// Server holds the in-memory message log and the push hub.
type Server struct {
	logger *zap.Logger
	hub    *Hub

	mu       sync.RWMutex
	messages map[string][]store.Message
}

// New creates an empty stub server.
func New(logger *zap.Logger) *Server {
	return &Server{
		logger:   logger,
		hub:      newHub(logger),
		messages: make(map[string][]store.Message),
	}
}

// Handler returns the HTTP handler serving both collaborator surfaces.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/messages/{senderID}/{receiverID}", s.handleHistory)
	r.Post("/messages/send", s.handleSend)
	r.Get("/ws", s.hub.handleWS)
	return r
}

// Online returns the user IDs the hub currently counts as online.
func (s *Server) Online() []string {
	return s.hub.onlineSnapshot()
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	senderID := chi.URLParam(r, "senderID")
	receiverID := chi.URLParam(r, "receiverID")

	s.mu.RLock()
	msgs := s.messages[store.PairKey(senderID, receiverID)]
	out := make([]store.Message, len(msgs))
	copy(out, msgs)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

type sendRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.SenderID == "" || req.ReceiverID == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "senderId, receiverId and message are required", http.StatusBadRequest)
		return
	}

	persisted := store.Message{
		ID:         uuid.NewString(),
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Text:       req.Message,
		CreatedAt:  time.Now().UTC(),
	}

	key := store.PairKey(req.SenderID, req.ReceiverID)
	s.mu.Lock()
	s.messages[key] = append(s.messages[key], persisted)
	s.mu.Unlock()

	s.logger.Info("message persisted",
		zap.String("id", persisted.ID),
		zap.String("pair", key))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(persisted)
}
