package domain

import "time"

// ActivityKind tags the variant carried by an activity entry.
type ActivityKind string

const (
	ActivityKindCreation      ActivityKind = "ticket_created"
	ActivityKindStatusChange  ActivityKind = "status_changed"
	ActivityKindAssignment    ActivityKind = "assignee_changed"
	ActivityKindFirstResponse ActivityKind = "first_response"
	ActivityKindNote          ActivityKind = "note_added"
)

// ActorSystem is the actor recorded for timer-driven mutations.
const ActorSystem = "system"

// ActivityDetail is the tagged payload of an activity entry. Consumers
// type-switch on the concrete variant instead of string-matching action tags.
type ActivityDetail interface {
	Kind() ActivityKind
}

// CreationDetail records the initial ticket state.
type CreationDetail struct {
	Priority TicketPriority `json:"priority"`
	Category string         `json:"category,omitempty"`
}

func (CreationDetail) Kind() ActivityKind { return ActivityKindCreation }

// StatusChangeDetail records a status transition.
type StatusChangeDetail struct {
	OldStatus TicketStatus `json:"old_status"`
	NewStatus TicketStatus `json:"new_status"`
}

func (StatusChangeDetail) Kind() ActivityKind { return ActivityKindStatusChange }

// AssignmentDetail records an assignee change; nil means unassigned.
type AssignmentDetail struct {
	OldAssigneeID *string `json:"old_assignee_id,omitempty"`
	NewAssigneeID *string `json:"new_assignee_id,omitempty"`
}

func (AssignmentDetail) Kind() ActivityKind { return ActivityKindAssignment }

// FirstResponseDetail records the first-response stamp instant.
type FirstResponseDetail struct {
	RespondedAt time.Time `json:"responded_at"`
}

func (FirstResponseDetail) Kind() ActivityKind { return ActivityKindFirstResponse }

// NoteDetail records a free-form internal note.
type NoteDetail struct {
	Body string `json:"body"`
}

func (NoteDetail) Kind() ActivityKind { return ActivityKindNote }

// ActivityEntry is an immutable audit row appended per ticket mutation.
// Actor is an agent ID or ActorSystem for timer-driven writes.
type ActivityEntry struct {
	ID        string
	TicketID  string
	Actor     string
	Detail    ActivityDetail
	CreatedAt time.Time
}
