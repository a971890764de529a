package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/superfunded/payout_portal/session"
	realtime "github.com/superfunded/payout_portal/websocket"
)

type WSHandler struct {
	hub *realtime.Hub
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

func (h *WSHandler) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve registers the connection with the hub and holds it open until the
// client goes away. The hub owns all writes.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sess, ok := conn.Locals(session.LocalsKey).(*session.Session)
		if !ok || sess == nil {
			_ = conn.Close()
			return
		}

		client := &realtime.Client{UserID: sess.UserID(), IsAdmin: sess.IsAdmin(), Conn: conn}
		h.hub.Register(client)
		defer h.hub.Unregister(client)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
