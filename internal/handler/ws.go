package handler

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/filmreview/film-manager/internal/presence"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The socket is a one-way feed; browsers on other origins may watch it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades presence watchers onto the hub.
type WSHandler struct {
	Hub *presence.Hub
}

func NewWSHandler(hub *presence.Hub) *WSHandler {
	return &WSHandler{Hub: hub}
}

// Serve upgrades the connection, registers it for broadcasts and parks in
// a read loop. The loop exists only to notice the peer going away; inbound
// frames are discarded.
func (h *WSHandler) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return err
	}

	h.Hub.Register(conn)
	defer func() {
		h.Hub.Unregister(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
