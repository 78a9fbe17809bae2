// Package web provides the HTTP and WebSocket chat surface.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/airsimlabs/go-dronechat/pkg/orchestrator"
	"github.com/airsimlabs/go-dronechat/pkg/tools"
)

// Server is the chat service's web frontend.
type Server struct {
	app      *fiber.App
	orch     *orchestrator.Orchestrator
	registry *tools.Registry
	version  string
}

// NewServer creates the server and wires all routes.
func NewServer(orch *orchestrator.Orchestrator, registry *tools.Registry, version string, debug bool) *Server {
	s := &Server{
		orch:     orch,
		registry: registry,
		version:  version,
	}

	app := fiber.New(fiber.Config{
		AppName:               "dronechat",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if debug {
		app.Use(logger.New())
	}

	app.Get("/health", s.handleHealth)
	app.Get("/api/tools", s.handleListTools)

	chatGroup := app.Group("/api/chat")
	chatGroup.Post("/message", s.handleMessage)
	chatGroup.Delete("/session/:id", s.handleClearSession)

	// WebSocket upgrade middleware
	chatGroup.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	chatGroup.Get("/ws/:session_id", websocket.New(s.handleChatWS))

	s.app = app
	return s
}

// Listen starts serving on the given port. Blocks.
func (s *Server) Listen(port string) error {
	return s.app.Listen(":" + port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
