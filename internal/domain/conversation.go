package domain

import "time"

// ConversationStatus enumerates inbox conversation states.
type ConversationStatus string

const (
	ConversationStatusOpen    ConversationStatus = "open"
	ConversationStatusPending ConversationStatus = "pending"
	ConversationStatusClosed  ConversationStatus = "closed"
)

// Conversation is owned by the support inbox collaborator. The core reads
// it to derive unread counts and to create tickets; it never mutates
// conversation content beyond marking it read.
type Conversation struct {
	ID            string
	Status        ConversationStatus
	AssigneeID    *string
	UnreadCount   int
	LastMessageAt *time.Time
	CreatedAt     time.Time
}
