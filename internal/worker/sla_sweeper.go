package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deskops/support-core/internal/observability"
	"github.com/deskops/support-core/internal/repository"
	"github.com/deskops/support-core/internal/service"
	"github.com/deskops/support-core/internal/sla"
)

// SLASweeper periodically evaluates open tickets and feeds the dispatcher.
// Each tick is a bounded, idempotent unit of work: an overlapping or skipped
// tick only delays a notification, it never corrupts state.
type SLASweeper struct {
	tickets   repository.TicketRepository
	evaluator *sla.Evaluator
	dispatch  *service.DispatchService
	logger    *zap.Logger
	metrics   *observability.Metrics
	interval  time.Duration
	now       func() time.Time
}

// NewSLASweeper constructs the sweeper.
func NewSLASweeper(
	tickets repository.TicketRepository,
	evaluator *sla.Evaluator,
	dispatch *service.DispatchService,
	logger *zap.Logger,
	metrics *observability.Metrics,
	interval time.Duration,
	clock func() time.Time,
) *SLASweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if clock == nil {
		clock = time.Now
	}
	return &SLASweeper{
		tickets:   tickets,
		evaluator: evaluator,
		dispatch:  dispatch,
		logger:    logger,
		metrics:   metrics,
		interval:  interval,
		now:       clock,
	}
}

// Run loops until the context is cancelled.
func (s *SLASweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("sla sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce evaluates every ticket with an incomplete metric.
func (s *SLASweeper) SweepOnce(ctx context.Context) error {
	now := s.now()
	tickets, err := s.tickets.ListSweepCandidates(ctx)
	if err != nil {
		return err
	}
	for i := range tickets {
		eval := s.evaluator.Evaluate(&tickets[i], now)
		if err := s.dispatch.HandleEvaluation(ctx, &tickets[i], eval); err != nil {
			s.logger.Warn("sla dispatch failed",
				zap.String("ticket_id", tickets[i].ID),
				zap.Error(err))
		}
	}
	s.metrics.RecordSweep()
	s.logger.Debug("sla sweep complete", zap.Int("tickets", len(tickets)))
	return nil
}
