package api

import (
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// handleWS upgrades the connection and registers it for proactive pushes.
// A fresh connection means the user is present, so the idle escalation
// counter starts over.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		fmt.Printf("[API] WebSocket accept error: %v\n", err)
		return
	}

	s.notifier.Register(s.sessionID, conn)
	s.mood.ResetIdleLevel()
	fmt.Printf("[API] WebSocket client connected: %s\n", s.sessionID)

	defer func() {
		s.notifier.Unregister(s.sessionID, conn)
		conn.Close(websocket.StatusNormalClosure, "")
		fmt.Printf("[API] WebSocket client disconnected: %s\n", s.sessionID)
	}()

	// Inbound frames are not part of the protocol. Keep reading so the
	// connection close is observed.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}
