package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskops/support-core/internal/domain"
	"github.com/deskops/support-core/internal/repository"
)

// fakeClock is a manually advanced clock for deterministic tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket

	// conflictOnce forces the next Update to report a lost race.
	conflictOnce bool
	// urgentCount overrides CountUrgentOrBreached when set.
	urgentCount *int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = "ticket-" + strconv.Itoa(r.seq)
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	ticket.Version = 1
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictOnce {
		r.conflictOnce = false
		return repository.ErrVersionConflict
	}
	stored, ok := r.tickets[ticket.ID]
	if !ok || stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now()
	clone := *ticket
	// Update never touches the first-response stamp.
	clone.FirstResponseAt = stored.FirstResponseAt
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) StampFirstResponse(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok || stored.FirstResponseAt != nil {
		return false, nil
	}
	stamp := at
	stored.FirstResponseAt = &stamp
	stored.Version++
	return true, nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *fakeTicketRepo) GetByConversation(_ context.Context, conversationID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.tickets {
		if stored.ConversationID == conversationID {
			clone := *stored
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Ticket, 0, len(r.tickets))
	for _, stored := range r.tickets {
		out = append(out, *stored)
	}
	return out, nil
}

func (r *fakeTicketRepo) ListSweepCandidates(_ context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, stored := range r.tickets {
		if stored.Status == domain.TicketStatusClosed {
			continue
		}
		if stored.FirstResponseAt == nil || stored.ResolvedAt == nil {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) ListCreatedSince(_ context.Context, since time.Time) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, stored := range r.tickets {
		if !stored.CreatedAt.Before(since) {
			out = append(out, *stored)
		}
	}
	return out, nil
}

func (r *fakeTicketRepo) CountByStatus(_ context.Context) (map[domain.TicketStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[domain.TicketStatus]int{}
	for _, stored := range r.tickets {
		counts[stored.Status]++
	}
	return counts, nil
}

func (r *fakeTicketRepo) CountUrgentOrBreached(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.urgentCount != nil {
		return *r.urgentCount, nil
	}
	var count int
	for _, stored := range r.tickets {
		if stored.Status == domain.TicketStatusClosed {
			continue
		}
		breached := (stored.FirstResponseAt == nil && now.After(stored.SLAFirstResponseDue)) ||
			(stored.ResolvedAt == nil && now.After(stored.SLAResolutionDue))
		if stored.Priority == domain.TicketPriorityUrgent || breached {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) setUrgentCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urgentCount = &n
}

func (r *fakeTicketRepo) seed(ticket *domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		r.seq++
		ticket.ID = "ticket-" + strconv.Itoa(r.seq)
	}
	if ticket.Version == 0 {
		ticket.Version = 1
	}
	clone := *ticket
	r.tickets[ticket.ID] = &clone
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	seq     int
	entries []domain.ActivityEntry
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{}
}

func (r *fakeActivityRepo) Create(_ context.Context, entry *domain.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	entry.ID = "activity-" + strconv.Itoa(r.seq)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeActivityRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ActivityEntry
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *fakeActivityRepo) byKind(ticketID string, kind domain.ActivityKind) []domain.ActivityEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ActivityEntry
	for _, entry := range r.entries {
		if entry.TicketID == ticketID && entry.Detail.Kind() == kind {
			out = append(out, entry)
		}
	}
	return out
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
	unreadCount   *int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: map[string]*domain.Conversation{}}
}

func (r *fakeConversationRepo) seed(conv *domain.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *conv
	r.conversations[conv.ID] = &clone
}

func (r *fakeConversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.conversations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *fakeConversationRepo) CountUnread(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unreadCount != nil {
		return *r.unreadCount, nil
	}
	var count int
	for _, stored := range r.conversations {
		if stored.UnreadCount > 0 && stored.Status != domain.ConversationStatusClosed {
			count++
		}
	}
	return count, nil
}

func (r *fakeConversationRepo) setUnreadCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unreadCount = &n
}

func (r *fakeConversationRepo) MarkRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.conversations[id]; ok {
		stored.UnreadCount = 0
	}
	return nil
}

func (r *fakeConversationRepo) RecordInboundMessage(_ context.Context, id string, at time.Time) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.conversations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	stored.UnreadCount++
	stored.LastMessageAt = &at
	stored.Status = domain.ConversationStatusOpen
	clone := *stored
	return &clone, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	seq           int
	notifications []domain.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (r *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	notification.ID = "notification-" + strconv.Itoa(r.seq)
	notification.CreatedAt = time.Now()
	r.notifications = append(r.notifications, *notification)
	return nil
}

func (r *fakeNotificationRepo) ListByRecipient(_ context.Context, recipientID string, _ int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, recipientID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int
	for _, n := range r.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, recipientID, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == id && r.notifications[i].RecipientID == recipientID {
			r.notifications[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated int64
	for i := range r.notifications {
		if r.notifications[i].RecipientID == recipientID && !r.notifications[i].IsRead {
			r.notifications[i].IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (r *fakeNotificationRepo) ClearAll(_ context.Context, recipientID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.Notification
	var removed int64
	for _, n := range r.notifications {
		if n.RecipientID == recipientID {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	r.notifications = kept
	return removed, nil
}

func (r *fakeNotificationRepo) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// fakeDispatchStateRepo mirrors the SQL dedup semantics in memory: a strict
// rank increase reports an escalation, any other change is stored silently.
type fakeDispatchStateRepo struct {
	mu    sync.Mutex
	ranks map[string]int
}

func newFakeDispatchStateRepo() *fakeDispatchStateRepo {
	return &fakeDispatchStateRepo{ranks: map[string]int{}}
}

func (r *fakeDispatchStateRepo) RecordStatus(_ context.Context, ticketID, metric, _ string, rank int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ticketID + "|" + metric
	prev := r.ranks[key]
	if rank != prev {
		r.ranks[key] = rank
	}
	return rank > prev, nil
}
