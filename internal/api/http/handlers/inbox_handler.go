package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/support-core/internal/api/dto"
	"github.com/deskops/support-core/internal/service"
	apperrors "github.com/deskops/support-core/pkg/util"
)

// InboxHandler receives hooks from the support inbox collaborator.
type InboxHandler struct {
	lifecycle *service.LifecycleService
}

// NewInboxHandler constructs handler.
func NewInboxHandler(lifecycle *service.LifecycleService) *InboxHandler {
	return &InboxHandler{lifecycle: lifecycle}
}

// InboundMessage POST /internal/conversations/:id/messages.
func (h *InboxHandler) InboundMessage(c *fiber.Ctx) error {
	var req dto.InboundMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.HandleInboundMessage(c.Context(), c.Params("id"), req.Preview)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"ticket_id": ticket.ID}})
}

// MarkRead POST /internal/conversations/:id/read.
func (h *InboxHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.lifecycle.MarkConversationRead(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
