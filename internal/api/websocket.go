package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/agrisense/agrisense-core/internal/realtime"
)

// handleWebSocket upgrades the connection and hands it to the realtime hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// The dashboard is served from arbitrary origins on the farm LAN.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := realtime.NewClient(s.hub, conn, s.cfg.WebSocket, s.logger)
	client.Start()
}
