package dto

import (
	"time"

	"github.com/deskops/support-core/internal/domain"
	"github.com/deskops/support-core/internal/sla"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ConversationID string                `json:"conversation_id"`
	Subject        string                `json:"subject"`
	Priority       domain.TicketPriority `json:"priority"`
	Category       string                `json:"category"`
}

// TransitionRequest payload.
type TransitionRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignRequest payload; a null assignee_id unassigns.
type AssignRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// NoteRequest payload.
type NoteRequest struct {
	Body string `json:"body"`
}

// SLAStatusResponse reports both metric statuses for a ticket.
type SLAStatusResponse struct {
	FirstResponse sla.MetricStatus `json:"first_response"`
	Resolution    sla.MetricStatus `json:"resolution"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                  string                `json:"id"`
	ConversationID      string                `json:"conversation_id"`
	Subject             string                `json:"subject"`
	Category            string                `json:"category"`
	Priority            domain.TicketPriority `json:"priority"`
	Status              domain.TicketStatus   `json:"status"`
	AssigneeID          *string               `json:"assignee_id"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
	SLAFirstResponseDue time.Time             `json:"sla_first_response_due"`
	SLAResolutionDue    time.Time             `json:"sla_resolution_due"`
	SLA                 SLAStatusResponse     `json:"sla"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	FirstResponseAt *time.Time              `json:"first_response_at"`
	ResolvedAt      *time.Time              `json:"resolved_at"`
	ClosedAt        *time.Time              `json:"closed_at"`
	Version         int64                   `json:"version"`
	Activity        []ActivityEntryResponse `json:"activity"`
}

// ActivityEntryResponse represents one audit row.
type ActivityEntryResponse struct {
	ID        string              `json:"id"`
	Actor     string              `json:"actor"`
	Kind      domain.ActivityKind `json:"kind"`
	Detail    any                 `json:"detail"`
	CreatedAt time.Time           `json:"created_at"`
}

// StatsResponse aggregates counts and compliance percentages.
type StatsResponse struct {
	StatusCounts            map[domain.TicketStatus]int `json:"status_counts"`
	UnreadConversations     int                         `json:"unread_conversations"`
	UrgentOrBreachedTickets int                         `json:"urgent_or_breached_tickets"`
	FirstResponseCompliance float64                     `json:"first_response_compliance"`
	ResolutionCompliance    float64                     `json:"resolution_compliance"`
}

// BadgeCountsResponse is the shell's badge snapshot.
type BadgeCountsResponse struct {
	UnreadConversations     int       `json:"unread_conversations"`
	UrgentOrBreachedTickets int       `json:"urgent_or_breached_tickets"`
	ComputedAt              time.Time `json:"computed_at"`
}

// InboundMessageRequest is posted by the inbox collaborator.
type InboundMessageRequest struct {
	Preview string `json:"preview"`
}
