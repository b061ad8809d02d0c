package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const streamWriteTimeout = 5 * time.Second

// handleFloodStream upgrades the connection and pushes flood session state
// updates as JSON frames until the client goes away.
func (s *Server) handleFloodStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates := s.session.Subscribe()
	defer s.session.Unsubscribe(updates)

	// Drain and discard client frames so pings and close frames are
	// processed; the stream is one-way. A read error is the only reliable
	// close signal on a hijacked connection, so it ends the handler too.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.writeState(conn, s.session.State()); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := s.writeState(conn, state); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeState(conn *websocket.Conn, state any) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)) //nolint:errcheck
	return conn.WriteJSON(state)
}
