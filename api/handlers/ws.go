package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ratingsite/api/middleware"
)

var connectedMessage = []byte(`{"event":"connected"}`)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Notifications - GET /api/v1/ws/, websocket с событиями о дружбе
func (h *Handlers) Notifications(c *gin.Context) {
	identity, _ := middleware.Identity(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if err = h.Conns.Add(identity.ID, conn, connectedMessage); err != nil {
		h.Log.Debug("websocket greeting failed", zap.Int64("user_id", identity.ID), zap.Error(err))
		return
	}
	defer h.Conns.Remove(identity.ID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.Log.Debug("websocket closed", zap.Int64("user_id", identity.ID), zap.Error(err))
			break
		}
	}
}
