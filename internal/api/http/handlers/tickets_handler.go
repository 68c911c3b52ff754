package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskops/support-core/internal/api/dto"
	"github.com/deskops/support-core/internal/auth"
	"github.com/deskops/support-core/internal/domain"
	"github.com/deskops/support-core/internal/repository"
	"github.com/deskops/support-core/internal/service"
	"github.com/deskops/support-core/internal/sla"
	apperrors "github.com/deskops/support-core/pkg/util"
)

// TicketsHandler serves the shell's ticket endpoints.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
	evaluator *sla.Evaluator
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService, evaluator *sla.Evaluator) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle, evaluator: evaluator}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.CreateTicket(c.Context(), principal.Agent.ID, service.TicketCreateInput{
		ConversationID: req.ConversationID,
		Subject:        req.Subject,
		Priority:       req.Priority,
		Category:       req.Category,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	filter := parseTicketQuery(c)
	tickets, err := h.lifecycle.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	ticket, err := h.lifecycle.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	activity, err := h.lifecycle.ListActivity(c.Context(), ticket.ID, 100, 0)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketDetail(ticket, activity)})
}

// Transition POST /tickets/:id/transition.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.Transition(c.Context(), principal.Agent.ID, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketSummary(ticket)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.Assign(c.Context(), principal.Agent.ID, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketSummary(ticket)})
}

// RecordFirstResponse POST /tickets/:id/first-response. Called by the
// surrounding application once the messaging gateway delivered a reply.
func (h *TicketsHandler) RecordFirstResponse(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.lifecycle.RecordFirstResponse(c.Context(), principal.Agent.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketSummary(ticket)})
}

// AddNote POST /tickets/:id/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.lifecycle.AddNote(c.Context(), principal.Agent.ID, c.Params("id"), req.Body); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListActivity GET /tickets/:id/activity.
func (h *TicketsHandler) ListActivity(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	entries, err := h.lifecycle.ListActivity(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.ActivityEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, activityResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *TicketsHandler) ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	eval := h.evaluator.Evaluate(ticket, time.Now())
	return dto.TicketSummary{
		ID:                  ticket.ID,
		ConversationID:      ticket.ConversationID,
		Subject:             ticket.Subject,
		Category:            ticket.Category,
		Priority:            ticket.Priority,
		Status:              ticket.Status,
		AssigneeID:          ticket.AssigneeID,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
		SLAFirstResponseDue: ticket.SLAFirstResponseDue,
		SLAResolutionDue:    ticket.SLAResolutionDue,
		SLA: dto.SLAStatusResponse{
			FirstResponse: eval.FirstResponse,
			Resolution:    eval.Resolution,
		},
	}
}

func (h *TicketsHandler) ticketDetail(ticket *domain.Ticket, activity []domain.ActivityEntry) dto.TicketDetailResponse {
	entries := make([]dto.ActivityEntryResponse, 0, len(activity))
	for i := range activity {
		entries = append(entries, activityResponse(&activity[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary:   h.ticketSummary(ticket),
		FirstResponseAt: ticket.FirstResponseAt,
		ResolvedAt:      ticket.ResolvedAt,
		ClosedAt:        ticket.ClosedAt,
		Version:         ticket.Version,
		Activity:        entries,
	}
}

func activityResponse(entry *domain.ActivityEntry) dto.ActivityEntryResponse {
	return dto.ActivityEntryResponse{
		ID:        entry.ID,
		Actor:     entry.Actor,
		Kind:      entry.Detail.Kind(),
		Detail:    entry.Detail,
		CreatedAt: entry.CreatedAt,
	}
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return principal, nil
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{
		SortBy:   repository.TicketSort(c.Query("sort", string(repository.SortByUpdatedAt))),
		SortDesc: strings.EqualFold(c.Query("order", "desc"), "desc"),
		Limit:    c.QueryInt("limit", 20),
		Offset:   c.QueryInt("offset", 0),
	}
	if v := c.Query("assignee_id"); v != "" {
		filter.AssigneeID = &v
	}
	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}
	if v := c.Query("conversation_id"); v != "" {
		filter.ConversationID = &v
	}
	for _, raw := range splitQueryList(c.Query("status")) {
		status := domain.TicketStatus(raw)
		if domain.ValidStatus(status) {
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	for _, raw := range splitQueryList(c.Query("priority")) {
		priority := domain.TicketPriority(raw)
		if domain.ValidPriority(priority) {
			filter.Priorities = append(filter.Priorities, priority)
		}
	}
	if t, err := time.Parse(time.RFC3339, c.Query("created_from")); err == nil {
		filter.CreatedFrom = &t
	}
	if t, err := time.Parse(time.RFC3339, c.Query("created_to")); err == nil {
		filter.CreatedTo = &t
	}
	return filter
}

func splitQueryList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
