package domain

import "time"

// NotificationType enumerates notification categories shown to agents.
type NotificationType string

const (
	NotificationTicketAssigned NotificationType = "ticket_assigned"
	NotificationSLAWarning     NotificationType = "sla_warning"
	NotificationUrgentTicket   NotificationType = "urgent_ticket"
	NotificationTicketReply    NotificationType = "ticket_reply"
	NotificationSystem         NotificationType = "system"
)

// Notification is created by the dispatcher and mutated only by
// read/clear operations from the shell.
type Notification struct {
	ID          string
	RecipientID string
	Type        NotificationType
	Title       string
	Message     string
	Link        *string
	IsRead      bool
	CreatedAt   time.Time
}
