package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/support-core/internal/config"
	"github.com/deskops/support-core/internal/domain"
	"github.com/deskops/support-core/internal/events"
	"github.com/deskops/support-core/internal/sla"
	apperrors "github.com/deskops/support-core/pkg/util"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) subscribeAll(d events.Dispatcher) {
	record := func(_ context.Context, event events.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, event)
		return nil
	}
	d.Subscribe(events.EventTicketCreated, record)
	d.Subscribe(events.EventTicketStatusChanged, record)
	d.Subscribe(events.EventTicketAssigned, record)
	d.Subscribe(events.EventTicketReplyReceived, record)
}

func (r *eventRecorder) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type lifecycleFixture struct {
	service       *LifecycleService
	tickets       *fakeTicketRepo
	activity      *fakeActivityRepo
	conversations *fakeConversationRepo
	clock         *fakeClock
	recorder      *eventRecorder
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	clock := newFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	tickets := newFakeTicketRepo()
	activity := newFakeActivityRepo()
	conversations := newFakeConversationRepo()
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	recorder.subscribeAll(dispatcher)

	policy := sla.NewPolicy(config.SLAConfig{
		UrgentTarget:   config.SLATarget{FirstResponse: time.Hour, Resolution: 4 * time.Hour},
		HighTarget:     config.SLATarget{FirstResponse: 4 * time.Hour, Resolution: 24 * time.Hour},
		MediumTarget:   config.SLATarget{FirstResponse: 8 * time.Hour, Resolution: 48 * time.Hour},
		LowTarget:      config.SLATarget{FirstResponse: 24 * time.Hour, Resolution: 72 * time.Hour},
		AtRiskFraction: 0.20,
	})

	svc := NewLifecycleService(LifecycleDependencies{
		TicketRepo:       tickets,
		ActivityRepo:     activity,
		ConversationRepo: conversations,
		Policy:           policy,
		Dispatcher:       dispatcher,
		Clock:            clock.Now,
	})
	return &lifecycleFixture{
		service:       svc,
		tickets:       tickets,
		activity:      activity,
		conversations: conversations,
		clock:         clock,
		recorder:      recorder,
	}
}

func TestCreateTicketStampsDueTimes(t *testing.T) {
	f := newLifecycleFixture(t)
	createdAt := f.clock.Now()

	ticket, err := f.service.CreateTicket(context.Background(), "agent-1", TicketCreateInput{
		Subject:  "Printer on fire",
		Priority: domain.TicketPriorityUrgent,
		Category: "hardware",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, createdAt.Add(time.Hour), ticket.SLAFirstResponseDue)
	assert.Equal(t, createdAt.Add(4*time.Hour), ticket.SLAResolutionDue)
	assert.Nil(t, ticket.FirstResponseAt)

	entries := f.activity.byKind(ticket.ID, domain.ActivityKindCreation)
	require.Len(t, entries, 1)
	assert.Equal(t, "agent-1", entries[0].Actor)

	created := f.recorder.ofType(events.EventTicketCreated)
	require.Len(t, created, 1)
	assert.Equal(t, ticket.ID, created[0].TicketID)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateTicket(ctx, "agent-1", TicketCreateInput{
		Subject:  "Missing priority",
		Priority: domain.TicketPriority("sev1"),
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.CreateTicket(ctx, "agent-1", TicketCreateInput{
		Subject:  "   ",
		Priority: domain.TicketPriorityLow,
	})
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = f.service.CreateTicket(ctx, "agent-1", TicketCreateInput{
		ConversationID: "conversation-missing",
		Subject:        "Orphan conversation",
		Priority:       domain.TicketPriorityLow,
	})
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestTransitionEdges(t *testing.T) {
	tests := []struct {
		from    domain.TicketStatus
		to      domain.TicketStatus
		allowed bool
	}{
		{domain.TicketStatusNew, domain.TicketStatusInProgress, true},
		{domain.TicketStatusNew, domain.TicketStatusResolved, false},
		{domain.TicketStatusNew, domain.TicketStatusClosed, false},
		{domain.TicketStatusInProgress, domain.TicketStatusWaitingCustomer, true},
		{domain.TicketStatusInProgress, domain.TicketStatusResolved, true},
		{domain.TicketStatusInProgress, domain.TicketStatusClosed, false},
		{domain.TicketStatusWaitingCustomer, domain.TicketStatusInProgress, true},
		{domain.TicketStatusWaitingCustomer, domain.TicketStatusResolved, true},
		{domain.TicketStatusResolved, domain.TicketStatusClosed, true},
		{domain.TicketStatusResolved, domain.TicketStatusInProgress, false},
		{domain.TicketStatusClosed, domain.TicketStatusInProgress, true},
		{domain.TicketStatusClosed, domain.TicketStatusResolved, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			f := newLifecycleFixture(t)
			f.tickets.seed(&domain.Ticket{
				ID:       "ticket-seeded",
				Subject:  "seed",
				Priority: domain.TicketPriorityMedium,
				Status:   tc.from,
			})

			_, err := f.service.Transition(context.Background(), "agent-1", "ticket-seeded", tc.to)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
			}
		})
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.service.Transition(context.Background(), "agent-1", "ticket-any", domain.TicketStatus("archived"))
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestTimestampsStampedOnceAcrossReopen(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	ticket, err := f.service.CreateTicket(ctx, "agent-1", TicketCreateInput{
		Subject:  "Recurring outage",
		Priority: domain.TicketPriorityHigh,
	})
	require.NoError(t, err)

	advance := func(d time.Duration, status domain.TicketStatus) *domain.Ticket {
		f.clock.Advance(d)
		updated, err := f.service.Transition(ctx, "agent-1", ticket.ID, status)
		require.NoError(t, err)
		return updated
	}

	advance(time.Hour, domain.TicketStatusInProgress)
	resolved := advance(time.Hour, domain.TicketStatusResolved)
	require.NotNil(t, resolved.ResolvedAt)
	firstResolvedAt := *resolved.ResolvedAt

	closed := advance(time.Hour, domain.TicketStatusClosed)
	require.NotNil(t, closed.ClosedAt)
	firstClosedAt := *closed.ClosedAt

	// Reopen and run the cycle again much later.
	advance(24*time.Hour, domain.TicketStatusInProgress)
	resolvedAgain := advance(time.Hour, domain.TicketStatusResolved)
	closedAgain := advance(time.Hour, domain.TicketStatusClosed)

	assert.Equal(t, firstResolvedAt, *resolvedAgain.ResolvedAt)
	assert.Equal(t, firstClosedAt, *closedAgain.ClosedAt)

	changes := f.activity.byKind(ticket.ID, domain.ActivityKindStatusChange)
	assert.Len(t, changes, 6)
}

func TestRecordFirstResponseIdempotent(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	ticket, err := f.service.CreateTicket(ctx, "agent-1", TicketCreateInput{
		Subject:  "Login broken",
		Priority: domain.TicketPriorityMedium,
	})
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	first, err := f.service.RecordFirstResponse(ctx, "agent-1", ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, first.FirstResponseAt)
	stampedAt := *first.FirstResponseAt

	f.clock.Advance(2 * time.Hour)
	second, err := f.service.RecordFirstResponse(ctx, "agent-2", ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, second.FirstResponseAt)
	assert.Equal(t, stampedAt, *second.FirstResponseAt)

	entries := f.activity.byKind(ticket.ID, domain.ActivityKindFirstResponse)
	assert.Len(t, entries, 1)
}

func TestTransitionConcurrentModification(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	ticket, err := f.service.CreateTicket(ctx, "agent-1", TicketCreateInput{
		Subject:  "Raced ticket",
		Priority: domain.TicketPriorityLow,
	})
	require.NoError(t, err)

	f.tickets.conflictOnce = true
	_, err = f.service.Transition(ctx, "agent-1", ticket.ID, domain.TicketStatusInProgress)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "CONCURRENT_MODIFICATION"))

	// Retry after re-fetch succeeds.
	updated, err := f.service.Transition(ctx, "agent-1", ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
}

func TestAssignAndUnassign(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	ticket, err := f.service.CreateTicket(ctx, "agent-1", TicketCreateInput{
		Subject:  "Needs an owner",
		Priority: domain.TicketPriorityMedium,
	})
	require.NoError(t, err)

	assignee := "agent-7"
	assigned, err := f.service.Assign(ctx, "agent-1", ticket.ID, &assignee)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, assignee, *assigned.AssigneeID)

	unassigned, err := f.service.Assign(ctx, "agent-1", ticket.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssigneeID)

	assignedEvents := f.recorder.ofType(events.EventTicketAssigned)
	require.Len(t, assignedEvents, 2)
	payload, ok := assignedEvents[0].Payload.(events.TicketAssignedPayload)
	require.True(t, ok)
	assert.Equal(t, assignee, *payload.NewAssigneeID)
}

func TestHandleInboundMessageOpensTicket(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	f.conversations.seed(&domain.Conversation{
		ID:     "conversation-1",
		Status: domain.ConversationStatusPending,
	})

	ticket, err := f.service.HandleInboundMessage(ctx, "conversation-1", "My invoice is wrong")
	require.NoError(t, err)
	assert.Equal(t, "conversation-1", ticket.ConversationID)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, "My invoice is wrong", ticket.Subject)

	entries := f.activity.byKind(ticket.ID, domain.ActivityKindCreation)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActorSystem, entries[0].Actor)

	conv, err := f.conversations.GetByID(ctx, "conversation-1")
	require.NoError(t, err)
	assert.Equal(t, 1, conv.UnreadCount)
	assert.Equal(t, domain.ConversationStatusOpen, conv.Status)
}

func TestHandleInboundMessageSignalsReply(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	assignee := "agent-3"
	f.conversations.seed(&domain.Conversation{
		ID:         "conversation-2",
		Status:     domain.ConversationStatusOpen,
		AssigneeID: &assignee,
	})

	first, err := f.service.HandleInboundMessage(ctx, "conversation-2", "Hello?")
	require.NoError(t, err)

	second, err := f.service.HandleInboundMessage(ctx, "conversation-2", "Any update on this?")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	replies := f.recorder.ofType(events.EventTicketReplyReceived)
	require.Len(t, replies, 1)
	payload, ok := replies[0].Payload.(events.TicketReplyReceivedPayload)
	require.True(t, ok)
	assert.Equal(t, "Any update on this?", payload.Preview)
	require.NotNil(t, payload.AssigneeID)
	assert.Equal(t, assignee, *payload.AssigneeID)
}

func TestHandleInboundMessageUnknownConversation(t *testing.T) {
	f := newLifecycleFixture(t)
	_, err := f.service.HandleInboundMessage(context.Background(), "conversation-missing", "hi")
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestAddNote(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	ticket, err := f.service.CreateTicket(ctx, "agent-1", TicketCreateInput{
		Subject:  "Note me",
		Priority: domain.TicketPriorityLow,
	})
	require.NoError(t, err)

	require.NoError(t, f.service.AddNote(ctx, "agent-1", ticket.ID, "escalating to billing"))
	err = f.service.AddNote(ctx, "agent-1", ticket.ID, "   ")
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	notes := f.activity.byKind(ticket.ID, domain.ActivityKindNote)
	require.Len(t, notes, 1)
	detail, ok := notes[0].Detail.(domain.NoteDetail)
	require.True(t, ok)
	assert.Equal(t, "escalating to billing", detail.Body)
}
