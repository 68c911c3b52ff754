package events

import (
	"time"

	"github.com/deskops/support-core/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketReplyReceived EventType = "ticket_reply_received"
)

// Event represents a domain event emitted by services. Actor is an agent ID
// or domain.ActorSystem for timer-driven mutations.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ConversationID string                `json:"conversation_id"`
	Priority       domain.TicketPriority `json:"priority"`
	Subject        string                `json:"subject"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldAssigneeID *string `json:"old_assignee_id,omitempty"`
	NewAssigneeID *string `json:"new_assignee_id,omitempty"`
}

// TicketReplyReceivedPayload payload.
type TicketReplyReceivedPayload struct {
	ConversationID string  `json:"conversation_id"`
	AssigneeID     *string `json:"assignee_id,omitempty"`
	Preview        string  `json:"preview"`
}
