package data

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/anthropics/companion-backend/internal/biz/domain"
)

// sendTimeout caps one push write; a wedged client must not stall a
// proactive trigger.
const sendTimeout = 5 * time.Second

// WSNotifier is a session-keyed registry of live websocket connections.
// The connection lifecycle (the API layer) registers and unregisters; the
// core only sends through it. One connection per session: a reconnect
// replaces the previous entry.
type WSNotifier struct {
	mu    sync.RWMutex
	conns map[string]*websocket.Conn
}

// NewWSNotifier creates an empty notifier registry.
func NewWSNotifier() *WSNotifier {
	return &WSNotifier{conns: make(map[string]*websocket.Conn)}
}

// Register binds a connection to a session, replacing any previous one.
func (n *WSNotifier) Register(sessionID string, conn *websocket.Conn) {
	n.mu.Lock()
	n.conns[sessionID] = conn
	n.mu.Unlock()
	fmt.Printf("[WS] registered session %s\n", sessionID)
}

// Unregister drops the connection if it is still the registered one for
// the session. A stale close after a reconnect leaves the new connection
// in place.
func (n *WSNotifier) Unregister(sessionID string, conn *websocket.Conn) {
	n.mu.Lock()
	if n.conns[sessionID] == conn {
		delete(n.conns, sessionID)
		fmt.Printf("[WS] unregistered session %s\n", sessionID)
	}
	n.mu.Unlock()
}

// Sessions lists session ids with a live connection.
func (n *WSNotifier) Sessions() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := make([]string, 0, len(n.conns))
	for id := range n.conns {
		ids = append(ids, id)
	}
	return ids
}

// Send pushes an event to the session's connection. No registered
// connection is a silent no-op: delivery is best-effort by contract.
func (n *WSNotifier) Send(ctx context.Context, sessionID string, event *domain.Event) error {
	n.mu.RLock()
	conn := n.conns[sessionID]
	n.mu.RUnlock()

	if conn == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
