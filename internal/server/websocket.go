package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// setupWebsocket registers the change-notification endpoint. Clients receive
// a JSON envelope for every blog and comment mutation; the connection is
// read-drained only so that close frames are noticed.
func (s *Server) setupWebsocket(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(s.handleWS))
}

func (s *Server) handleWS(conn *websocket.Conn) {
	s.hub.Register(conn)
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	s.log.Info("notification client connected", "clients", s.hub.Count())
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
