package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// SessionRegistry tracks live webchat sockets with an explicit
// create/close lifecycle, keyed by session id.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*websocket.Conn
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*websocket.Conn)}
}

// Register binds a socket to a session id, replacing any stale one
func (r *SessionRegistry) Register(sessionID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[sessionID]; ok && old != conn {
		_ = old.Close()
	}
	r.sessions[sessionID] = conn
}

// Unregister drops a session if it still owns the given socket
func (r *SessionRegistry) Unregister(sessionID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[sessionID]; ok && current == conn {
		delete(r.sessions, sessionID)
	}
}

type webchatFrame struct {
	Body string    `json:"body"`
	At   time.Time `json:"at"`
}

// Push writes one outbound frame to a live session
func (r *SessionRegistry) Push(sessionID, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("webchat: session %q not connected", sessionID)
	}
	return conn.WriteJSON(webchatFrame{Body: body, At: time.Now()})
}

// WebchatSender delivers bot replies down the lead's open socket
type WebchatSender struct {
	Registry *SessionRegistry
}

func NewWebchatSender(registry *SessionRegistry) *WebchatSender {
	return &WebchatSender{Registry: registry}
}

func (s *WebchatSender) Send(ctx context.Context, to, body string) (string, error) {
	if err := s.Registry.Push(to, body); err != nil {
		return "", err
	}
	// Webchat has no provider-side id; mint one for the transcript.
	return uuid.New().String(), nil
}
