package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deskops/support-core/internal/service"
)

// BadgePoller drives the badge aggregator on its configured cadence.
type BadgePoller struct {
	badges   *service.BadgeService
	logger   *zap.Logger
	interval time.Duration
}

// NewBadgePoller constructs the poller.
func NewBadgePoller(badges *service.BadgeService, logger *zap.Logger, interval time.Duration) *BadgePoller {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &BadgePoller{badges: badges, logger: logger, interval: interval}
}

// Run loops until the context is cancelled.
func (p *BadgePoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.badges.Poll(ctx); err != nil {
				p.logger.Error("badge poll failed", zap.Error(err))
			}
		}
	}
}
