package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/deskops/support-core/internal/observability"
	"github.com/deskops/support-core/internal/repository"
	apperrors "github.com/deskops/support-core/pkg/util"
)

// BadgeCounts is the client-visible badge snapshot.
type BadgeCounts struct {
	UnreadConversations     int       `json:"unread_conversations"`
	UrgentOrBreachedTickets int       `json:"urgent_or_breached_tickets"`
	ComputedAt              time.Time `json:"computed_at"`
}

// BadgeAlert signals that a tracked count strictly increased since the
// previous poll.
type BadgeAlert struct {
	Counts   BadgeCounts
	Previous BadgeCounts
}

// AlertFunc receives badge alerts for client cueing.
type AlertFunc func(BadgeAlert)

const badgeSnapshotKey = "support-core:badge:counts"

// BadgeService is the badge aggregator: level state with edge-triggered
// side effects. It retains the previous poll's values and fires the alert
// callback exactly once per strict increase, never on decrease or tie. The
// clock is injected so edge detection is testable without timers.
type BadgeService struct {
	tickets       repository.TicketRepository
	conversations repository.ConversationRepository
	cache         *redis.Client
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
	onAlert       AlertFunc
	snapshotTTL   time.Duration

	mu     sync.Mutex
	primed bool
	prev   BadgeCounts
	latest BadgeCounts
}

// BadgeDependencies bundles collaborators for the badge service.
type BadgeDependencies struct {
	TicketRepo       repository.TicketRepository
	ConversationRepo repository.ConversationRepository
	Cache            *redis.Client
	Logger           *zap.Logger
	Metrics          *observability.Metrics
	Clock            func() time.Time
	OnAlert          AlertFunc
	SnapshotTTL      time.Duration
}

// NewBadgeService constructs the aggregator.
func NewBadgeService(deps BadgeDependencies) *BadgeService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	ttl := deps.SnapshotTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BadgeService{
		tickets:       deps.TicketRepo,
		conversations: deps.ConversationRepo,
		cache:         deps.Cache,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		now:           clock,
		onAlert:       deps.OnAlert,
		snapshotTTL:   ttl,
	}
}

// Poll recomputes both counts and performs edge detection against the
// previous poll. The first poll primes the baseline without alerting.
func (b *BadgeService) Poll(ctx context.Context) (BadgeCounts, error) {
	now := b.now()
	unread, err := b.conversations.CountUnread(ctx)
	if err != nil {
		return BadgeCounts{}, apperrors.MapError(err)
	}
	urgent, err := b.tickets.CountUrgentOrBreached(ctx, now)
	if err != nil {
		return BadgeCounts{}, apperrors.MapError(err)
	}
	counts := BadgeCounts{
		UnreadConversations:     unread,
		UrgentOrBreachedTickets: urgent,
		ComputedAt:              now,
	}

	b.mu.Lock()
	prev := b.prev
	primed := b.primed
	b.prev = counts
	b.latest = counts
	b.primed = true
	b.mu.Unlock()

	if primed && (counts.UnreadConversations > prev.UnreadConversations ||
		counts.UrgentOrBreachedTickets > prev.UrgentOrBreachedTickets) {
		b.metrics.RecordBadgeAlert()
		if b.onAlert != nil {
			b.onAlert(BadgeAlert{Counts: counts, Previous: prev})
		}
	}

	b.writeSnapshot(ctx, counts)
	return counts, nil
}

// Counts returns the latest computed snapshot. Values are eventually
// consistent with a staleness bound equal to the poll interval.
func (b *BadgeService) Counts() BadgeCounts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

func (b *BadgeService) writeSnapshot(ctx context.Context, counts BadgeCounts) {
	if b.cache == nil {
		return
	}
	payload, err := json.Marshal(counts)
	if err != nil {
		return
	}
	if err := b.cache.Set(ctx, badgeSnapshotKey, payload, b.snapshotTTL).Err(); err != nil {
		b.logger.Warn("badge snapshot write failed", zap.Error(err))
	}
}
