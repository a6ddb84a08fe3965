package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/infrastructure/realtime"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WSHandler upgrades connections and pumps progress events to clients.
type WSHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(hub *realtime.Hub, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws-handler").Logger(),
	}
}

// Progress streams processing events. The optional video_id query parameter
// narrows the stream to one video; without it the client gets every event.
func (h *WSHandler) Progress(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	videoID := c.Query("video_id")
	sub := h.hub.Subscribe(videoID)

	go h.writePump(conn, sub)
	h.readPump(conn, sub)
}

// readPump drains client frames so close and pong handling works. Any read
// error tears the subscription down.
func (h *WSHandler) readPump(conn *websocket.Conn, sub *realtime.Subscriber) {
	defer func() {
		h.hub.Unsubscribe(sub)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, sub *realtime.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.Messages():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
