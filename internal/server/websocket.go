package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atikulmunna/logdiagram/internal/hub"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// liveMessage is the wire form of a hub update.
type liveMessage struct {
	Source  string `json:"source"`
	Lines   int    `json:"lines"`
	Type    string `json:"type"`
	Legacy  bool   `json:"legacy"`
	Entries int    `json:"entries"`
	URL     string `json:"url"`
	Diagram string `json:"diagram"`
}

// handleWebSocket upgrades the connection, replays the latest diagram of
// every source, then streams each new update.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates := s.hub.Subscribe()
	defer s.hub.Unsubscribe(updates)

	// Read pump: only used to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg liveMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Debug("websocket write failed", zap.Error(err))
			return false
		}
		return true
	}

	for _, u := range s.hub.Latest() {
		if !send(toLiveMessage(u)) {
			return
		}
	}

	for {
		select {
		case <-closed:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if !send(toLiveMessage(u)) {
				return
			}
		}
	}
}

func toLiveMessage(u hub.Update) liveMessage {
	return liveMessage{
		Source:  u.Source,
		Lines:   u.Lines,
		Type:    string(u.Result.Type),
		Legacy:  u.Result.Legacy,
		Entries: len(u.Result.Entries),
		URL:     u.Result.URL,
		Diagram: u.Result.Source,
	}
}
