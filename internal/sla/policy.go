package sla

import (
	"time"

	"github.com/deskops/support-core/internal/config"
	"github.com/deskops/support-core/internal/domain"
	apperrors "github.com/deskops/support-core/pkg/util"
)

// Policy maps ticket priority to its first-response and resolution targets.
// It is configuration data fixed at startup; changes only affect tickets
// created afterward because due times are stamped at creation.
type Policy struct {
	targets map[domain.TicketPriority]config.SLATarget
}

// NewPolicy builds the policy table from configuration.
func NewPolicy(cfg config.SLAConfig) *Policy {
	return &Policy{
		targets: map[domain.TicketPriority]config.SLATarget{
			domain.TicketPriorityUrgent: cfg.UrgentTarget,
			domain.TicketPriorityHigh:   cfg.HighTarget,
			domain.TicketPriorityMedium: cfg.MediumTarget,
			domain.TicketPriorityLow:    cfg.LowTarget,
		},
	}
}

// Target returns the durations for a priority. An unrecognized priority is
// a ConfigError: constructors reject invalid priorities before this point.
func (p *Policy) Target(priority domain.TicketPriority) (config.SLATarget, error) {
	target, ok := p.targets[priority]
	if !ok {
		return config.SLATarget{}, apperrors.NewConfigError("no SLA target for priority " + string(priority))
	}
	return target, nil
}

// DueTimes computes both metric deadlines for a ticket created at createdAt.
func (p *Policy) DueTimes(priority domain.TicketPriority, createdAt time.Time) (firstResponseDue, resolutionDue time.Time, err error) {
	target, err := p.Target(priority)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return createdAt.Add(target.FirstResponse), createdAt.Add(target.Resolution), nil
}
