package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/airsimlabs/go-dronechat/internal/log"
	"github.com/airsimlabs/go-dronechat/pkg/chat"
)

// handleHealth reports service liveness.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": s.version,
	})
}

// handleListTools returns the tool catalog as name/description pairs.
func (s *Server) handleListTools(c *fiber.Ctx) error {
	defs := s.registry.List()
	infos := make([]fiber.Map, 0, len(defs))
	for _, def := range defs {
		infos = append(infos, fiber.Map{
			"name":        def.Name,
			"description": def.Description,
		})
	}
	return c.JSON(infos)
}

// handleMessage processes one chat turn over HTTP.
func (s *Server) handleMessage(c *fiber.Ctx) error {
	var req chat.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message must not be empty",
		})
	}

	reply, records, sid := s.orch.Process(c.UserContext(), req.SessionID, req.Message)

	return c.JSON(chat.Response{
		Reply:     reply,
		ToolCalls: records,
		SessionID: sid,
		Timestamp: time.Now(),
	})
}

// handleClearSession removes a session's history. Idempotent.
func (s *Server) handleClearSession(c *fiber.Ctx) error {
	s.orch.Clear(c.Params("id"))
	return c.JSON(fiber.Map{"message": "Session cleared"})
}

// handleChatWS runs the streaming chat loop for one connection. Each
// inbound frame is a chat.Request without a session id (the id comes
// from the URL); each turn emits a status event then a reply event.
func (s *Server) handleChatWS(c *websocket.Conn) {
	sessionID := c.Params("session_id")

	// Context scoped to the connection. Turns run synchronously in
	// the read loop, so an in-flight turn completes even if the peer
	// disconnects; cancellation covers anything outliving the loop.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		var req chat.Request
		if err := c.ReadJSON(&req); err != nil {
			log.Debug("websocket closed", "session", sessionID, "error", err)
			return
		}
		if req.Message == "" {
			s.writeEvent(c, chat.EventError, fiber.Map{"error": "message must not be empty"})
			continue
		}

		s.writeEvent(c, chat.EventStatus, fiber.Map{"status": "processing"})

		reply, records, sid := s.orch.Process(ctx, sessionID, req.Message)
		sessionID = sid

		s.writeEvent(c, chat.EventReply, chat.Response{
			Reply:     reply,
			ToolCalls: records,
			SessionID: sid,
			Timestamp: time.Now(),
		})
	}
}

func (s *Server) writeEvent(c *websocket.Conn, eventType string, data any) {
	event, err := chat.NewEvent(eventType, data)
	if err != nil {
		log.Error("failed to build event", "type", eventType, "error", err)
		return
	}
	if err := c.WriteJSON(event); err != nil {
		log.Debug("websocket write failed", "type", eventType, "error", err)
	}
}
