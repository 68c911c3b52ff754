package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deskops/support-core/internal/domain"
	"github.com/deskops/support-core/internal/events"
	"github.com/deskops/support-core/internal/repository"
	"github.com/deskops/support-core/internal/sla"
	apperrors "github.com/deskops/support-core/pkg/util"
)

// LifecycleService validates and applies ticket state transitions, stamps
// the once-only timestamps and writes the activity trail.
type LifecycleService struct {
	tickets       repository.TicketRepository
	activity      repository.ActivityRepository
	conversations repository.ConversationRepository
	policy        *sla.Policy
	dispatcher    events.Dispatcher
	now           func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo       repository.TicketRepository
	ActivityRepo     repository.ActivityRepository
	ConversationRepo repository.ConversationRepository
	Policy           *sla.Policy
	Dispatcher       events.Dispatcher
	Clock            func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	ConversationID string
	Subject        string
	Priority       domain.TicketPriority
	Category       string
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &LifecycleService{
		tickets:       deps.TicketRepo,
		activity:      deps.ActivityRepo,
		conversations: deps.ConversationRepo,
		policy:        deps.Policy,
		dispatcher:    deps.Dispatcher,
		now:           clock,
	}
}

// CreateTicket opens a tracked ticket for a conversation. Due times are
// computed from the policy table at the creation instant and never change.
func (s *LifecycleService) CreateTicket(ctx context.Context, actor string, input TicketCreateInput) (*domain.Ticket, error) {
	if !domain.ValidPriority(input.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject required", nil)
	}
	if input.ConversationID != "" {
		if _, err := s.conversations.GetByID(ctx, input.ConversationID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("conversation", map[string]any{"conversation_id": input.ConversationID})
			}
			return nil, apperrors.MapError(err)
		}
	}

	createdAt := s.now()
	firstResponseDue, resolutionDue, err := s.policy.DueTimes(input.Priority, createdAt)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ConversationID:      input.ConversationID,
		Subject:             subject,
		Category:            strings.TrimSpace(input.Category),
		Priority:            input.Priority,
		Status:              domain.TicketStatusNew,
		SLAFirstResponseDue: firstResponseDue,
		SLAResolutionDue:    resolutionDue,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.appendActivity(ctx, ticket.ID, actor, domain.CreationDetail{
		Priority: ticket.Priority,
		Category: ticket.Category,
	}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			ConversationID: ticket.ConversationID,
			Priority:       ticket.Priority,
			Subject:        ticket.Subject,
		},
	})
	return ticket, nil
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:             {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress:      {domain.TicketStatusWaitingCustomer, domain.TicketStatusResolved},
	domain.TicketStatusWaitingCustomer: {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusResolved:        {domain.TicketStatusClosed},
	domain.TicketStatusClosed:          {domain.TicketStatusInProgress},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Transition applies a status edge. A failed transition leaves the ticket
// unchanged; a lost optimistic race surfaces as ConcurrentModification and
// the caller must re-fetch and retry.
func (s *LifecycleService) Transition(ctx context.Context, actor, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(newStatus))
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	now := s.now()
	// Resolution and close stamps are side effects of the legal transition
	// and are written at most once; a reopen/re-close keeps the original.
	if newStatus == domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		ticket.ResolvedAt = &now
	}
	if newStatus == domain.TicketStatusClosed && ticket.ClosedAt == nil {
		ticket.ClosedAt = &now
	}

	if err := s.updateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.appendActivity(ctx, ticket.ID, actor, domain.StatusChangeDetail{
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// RecordFirstResponse stamps first_response_at if still unset. A second
// call is a no-op, never an error, and the status is left untouched.
func (s *LifecycleService) RecordFirstResponse(ctx context.Context, actor, ticketID string) (*domain.Ticket, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	respondedAt := s.now()
	stamped, err := s.tickets.StampFirstResponse(ctx, ticketID, respondedAt)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if stamped {
		if err := s.appendActivity(ctx, ticketID, actor, domain.FirstResponseDetail{
			RespondedAt: respondedAt,
		}); err != nil {
			return nil, err
		}
	}
	return s.getTicket(ctx, ticketID)
}

// Assign sets or clears the assignee; nil unassigns. Assignment does not
// affect SLA deadlines.
func (s *LifecycleService) Assign(ctx context.Context, actor, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldAssignee := ticket.AssigneeID
	ticket.AssigneeID = assigneeID
	if err := s.updateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.appendActivity(ctx, ticket.ID, actor, domain.AssignmentDetail{
		OldAssigneeID: oldAssignee,
		NewAssigneeID: assigneeID,
	}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketAssignedPayload{
			OldAssigneeID: oldAssignee,
			NewAssigneeID: assigneeID,
		},
	})
	return ticket, nil
}

// AddNote appends an internal note to the activity trail.
func (s *LifecycleService) AddNote(ctx context.Context, actor, ticketID, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return apperrors.NewValidationError("note body required", nil)
	}
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return err
	}
	return s.appendActivity(ctx, ticketID, actor, domain.NoteDetail{Body: body})
}

// HandleInboundMessage is the hook the inbox collaborator calls when a
// customer message arrives. It bumps unread state, opens a ticket on the
// first tracked contact, and otherwise signals the reply for notification.
func (s *LifecycleService) HandleInboundMessage(ctx context.Context, conversationID, preview string) (*domain.Ticket, error) {
	conv, err := s.conversations.RecordInboundMessage(ctx, conversationID, s.now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("conversation", map[string]any{"conversation_id": conversationID})
		}
		return nil, apperrors.MapError(err)
	}

	ticket, err := s.tickets.GetByConversation(ctx, conversationID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		subject := strings.TrimSpace(preview)
		if subject == "" {
			subject = "Conversation " + conversationID
		}
		return s.CreateTicket(ctx, domain.ActorSystem, TicketCreateInput{
			ConversationID: conversationID,
			Subject:        stringPreview(subject, 120),
			Priority:       domain.TicketPriorityMedium,
			Category:       "general",
		})
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReplyReceived,
		TicketID: ticket.ID,
		Actor:    domain.ActorSystem,
		Payload: events.TicketReplyReceivedPayload{
			ConversationID: conversationID,
			AssigneeID:     conv.AssigneeID,
			Preview:        stringPreview(preview, 120),
		},
	})
	return ticket, nil
}

// MarkConversationRead relays the read acknowledgement to the inbox tables.
func (s *LifecycleService) MarkConversationRead(ctx context.Context, conversationID string) error {
	if _, err := s.conversations.GetByID(ctx, conversationID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("conversation", map[string]any{"conversation_id": conversationID})
		}
		return apperrors.MapError(err)
	}
	return apperrors.MapError(s.conversations.MarkRead(ctx, conversationID))
}

// GetTicket fetches a single ticket.
func (s *LifecycleService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.getTicket(ctx, ticketID)
}

// ListTickets returns tickets matching the shell's filters.
func (s *LifecycleService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListActivity returns the audit trail for a ticket.
func (s *LifecycleService) ListActivity(ctx context.Context, ticketID string, limit, offset int) ([]domain.ActivityEntry, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.activity.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *LifecycleService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *LifecycleService) updateTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := s.tickets.Update(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.NewConcurrentModification("ticket", map[string]any{"ticket_id": ticket.ID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *LifecycleService) appendActivity(ctx context.Context, ticketID, actor string, detail domain.ActivityDetail) error {
	if actor == "" {
		actor = domain.ActorSystem
	}
	entry := &domain.ActivityEntry{
		TicketID: ticketID,
		Actor:    actor,
		Detail:   detail,
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
