package svc

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// upgrader is permissive on origin like the teacher's internal/api
// upgrader: CORS already gates browser access at the HTTP layer, and this
// endpoint additionally requires a valid session id.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const pingInterval = 30 * time.Second

// handleOptimizeStream upgrades to a websocket and pushes Progress
// messages as the named session's subscribe channel delivers them,
// closing once the session finishes (channel closed by runningSession.finish).
// Grounded on the teacher's internal/api/websocket.go writePump: a ticker
// drives periodic pings alongside the data channel in one select loop.
func (s *Server) handleOptimizeStream(c *gin.Context) {
	rs, ok := s.sessions.get(c.Param("sessionId"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "unknown optimizer session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("optimizer stream upgrade failed")
		return
	}
	defer conn.Close()

	ch := rs.subscribe()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case p, open := <-ch:
			if !open {
				final := rs.snapshot()
				buf, _ := json.Marshal(gin.H{"type": "complete", "session": final})
				_ = conn.WriteMessage(websocket.TextMessage, buf)
				return
			}
			buf, _ := json.Marshal(gin.H{"type": "progress", "progress": p})
			if err := conn.WriteMessage(websocket.TextMessage, buf); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
