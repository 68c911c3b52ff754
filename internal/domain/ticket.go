package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "new"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingCustomer TicketStatus = "waiting_customer"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusClosed          TicketStatus = "closed"
)

// ValidStatus reports whether s is a known ticket status.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusWaitingCustomer,
		TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ValidPriority reports whether p is a known ticket priority.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for tracked support requests. The SLA due
// timestamps are stamped once at creation from the priority's policy entry
// and never change afterwards; first_response_at, resolved_at and closed_at
// are set at most once. Version guards optimistic read-modify-write cycles.
type Ticket struct {
	ID                  string
	ConversationID      string
	Subject             string
	Category            string
	Priority            TicketPriority
	Status              TicketStatus
	AssigneeID          *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	FirstResponseAt     *time.Time
	ResolvedAt          *time.Time
	ClosedAt            *time.Time
	SLAFirstResponseDue time.Time
	SLAResolutionDue    time.Time
	Version             int64
}
