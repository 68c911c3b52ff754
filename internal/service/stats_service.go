package service

import (
	"context"
	"time"

	"github.com/deskops/support-core/internal/domain"
	"github.com/deskops/support-core/internal/repository"
	"github.com/deskops/support-core/internal/sla"
	apperrors "github.com/deskops/support-core/pkg/util"
)

// complianceWindow bounds how far back the compliance aggregate looks.
const complianceWindow = 30 * 24 * time.Hour

// Stats aggregates counts and compliance percentages for the shell.
type Stats struct {
	StatusCounts            map[domain.TicketStatus]int
	UnreadConversations     int
	UrgentOrBreachedTickets int
	FirstResponseCompliance float64
	ResolutionCompliance    float64
}

// StatsService computes the getStats aggregate.
type StatsService struct {
	tickets       repository.TicketRepository
	conversations repository.ConversationRepository
	evaluator     *sla.Evaluator
	now           func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(
	tickets repository.TicketRepository,
	conversations repository.ConversationRepository,
	evaluator *sla.Evaluator,
	clock func() time.Time,
) *StatsService {
	if clock == nil {
		clock = time.Now
	}
	return &StatsService{
		tickets:       tickets,
		conversations: conversations,
		evaluator:     evaluator,
		now:           clock,
	}
}

// GetStats returns aggregate counts plus per-metric compliance over the
// reporting window.
func (s *StatsService) GetStats(ctx context.Context) (*Stats, error) {
	now := s.now()

	statusCounts, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	unread, err := s.conversations.CountUnread(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	urgent, err := s.tickets.CountUrgentOrBreached(ctx, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	population, err := s.tickets.ListCreatedSince(ctx, now.Add(-complianceWindow))
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &Stats{
		StatusCounts:            statusCounts,
		UnreadConversations:     unread,
		UrgentOrBreachedTickets: urgent,
		FirstResponseCompliance: s.evaluator.Compliance(population, sla.MetricFirstResponse, now),
		ResolutionCompliance:    s.evaluator.Compliance(population, sla.MetricResolution, now),
	}, nil
}
