package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/support-core/internal/api/dto"
	"github.com/deskops/support-core/internal/domain"
	"github.com/deskops/support-core/internal/repository"
	apperrors "github.com/deskops/support-core/pkg/util"
)

// NotificationsHandler serves the shell's notification endpoints. Rows are
// scoped to the authenticated agent.
type NotificationsHandler struct {
	notifications repository.NotificationRepository
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications repository.NotificationRepository) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 50)
	rows, err := h.notifications.ListByRecipient(c.Context(), principal.Agent.ID, limit)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.NotificationResponse, 0, len(rows))
	for i := range rows {
		items = append(items, notificationResponse(&rows[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Count GET /notifications/count.
func (h *NotificationsHandler) Count(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	count, err := h.notifications.CountUnread(c.Context(), principal.Agent.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NotificationCountResponse{Unread: count}})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	updated, err := h.notifications.MarkRead(c.Context(), principal.Agent.ID, c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	if !updated {
		return apperrors.NewNotFound("notification", map[string]any{"notification_id": c.Params("id")})
	}
	return c.SendStatus(http.StatusNoContent)
}

// MarkAllRead POST /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	updated, err := h.notifications.MarkAllRead(c.Context(), principal.Agent.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": updated}})
}

// ClearAll DELETE /notifications.
func (h *NotificationsHandler) ClearAll(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	removed, err := h.notifications.ClearAll(c.Context(), principal.Agent.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"removed": removed}})
}

func notificationResponse(n *domain.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
