package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"steeple/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const wsTicketTTL = 30 * time.Second

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set headers on
// WebSocket upgrade requests, so the client trades its bearer token for a
// short-lived single-use ticket and passes that in the query string instead.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(fmt.Errorf("realtime backend unavailable")))
	}
	memberID := currentMemberID(c)

	ticket := uuid.New().String()
	key := fmt.Sprintf("ws_ticket:%s", ticket)
	if err := s.redis.SetEx(c.Context(), key, fmt.Sprintf("%d", memberID), wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// WebsocketHandler upgrades the connection and binds it to the notification
// hub. Admin connections additionally receive the admin fan-out; the role is
// re-checked here rather than trusted from the route.
func (s *Server) WebsocketHandler(admin bool) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		memberIDVal := conn.Locals("memberID")
		if memberIDVal == nil {
			log.Printf("WebSocket: unauthenticated connection attempt")
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		memberID := memberIDVal.(uint)

		if admin {
			isAdmin, err := s.isAdminByID(ctx, memberID)
			if err != nil || !isAdmin {
				log.Printf("WebSocket: member %d denied admin stream", memberID)
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"forbidden"}`))
				_ = conn.Close()
				return
			}
		}

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(memberID, conn, admin)
		if err != nil {
			log.Printf("WebSocket: failed to register member %d: %v", memberID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()

		// Blocks until the peer disconnects; unregistration happens in the
		// pump's exit path.
		client.ReadPump()
	})
}
