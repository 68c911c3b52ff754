package sla

import (
	"time"

	"github.com/deskops/support-core/internal/domain"
)

// MetricStatus is the evaluated state of one SLA metric on one ticket.
type MetricStatus string

const (
	StatusOnTrack  MetricStatus = "on_track"
	StatusAtRisk   MetricStatus = "at_risk"
	StatusBreached MetricStatus = "breached"
	StatusMet      MetricStatus = "met"
)

// Rank orders statuses by escalation severity. Met resets the scale: a
// completed metric can never escalate again.
func (s MetricStatus) Rank() int {
	switch s {
	case StatusAtRisk:
		return 1
	case StatusBreached:
		return 2
	default:
		return 0
	}
}

// Metric names the two deadline categories tracked per ticket.
type Metric string

const (
	MetricFirstResponse Metric = "first_response"
	MetricResolution    Metric = "resolution"
)

// Evaluation holds the per-metric statuses of one ticket at one instant.
type Evaluation struct {
	FirstResponse MetricStatus
	Resolution    MetricStatus
}

// Evaluator derives metric statuses from ticket timestamps. The at-risk
// window is a fixed fraction of each metric's total duration, recovered from
// the stamped due time rather than the live policy so that policy edits do
// not reinterpret existing tickets.
type Evaluator struct {
	atRiskFraction float64
}

// NewEvaluator constructs an evaluator with the configured warning fraction.
func NewEvaluator(atRiskFraction float64) *Evaluator {
	if atRiskFraction <= 0 || atRiskFraction >= 1 {
		atRiskFraction = 0.20
	}
	return &Evaluator{atRiskFraction: atRiskFraction}
}

// Evaluate computes both metric statuses for a ticket at the given instant.
func (e *Evaluator) Evaluate(ticket *domain.Ticket, now time.Time) Evaluation {
	return Evaluation{
		FirstResponse: e.metricStatus(ticket.FirstResponseAt, ticket.SLAFirstResponseDue, ticket.CreatedAt, now),
		Resolution:    e.metricStatus(ticket.ResolvedAt, ticket.SLAResolutionDue, ticket.CreatedAt, now),
	}
}

// MetricStatusOf evaluates a single named metric.
func (e *Evaluator) MetricStatusOf(ticket *domain.Ticket, metric Metric, now time.Time) MetricStatus {
	switch metric {
	case MetricResolution:
		return e.metricStatus(ticket.ResolvedAt, ticket.SLAResolutionDue, ticket.CreatedAt, now)
	default:
		return e.metricStatus(ticket.FirstResponseAt, ticket.SLAFirstResponseDue, ticket.CreatedAt, now)
	}
}

func (e *Evaluator) metricStatus(completedAt *time.Time, due, createdAt, now time.Time) MetricStatus {
	if completedAt != nil {
		// Reported as met even when completed late; late completions are
		// excluded from the compliance numerator instead.
		return StatusMet
	}
	if now.After(due) {
		return StatusBreached
	}
	window := time.Duration(e.atRiskFraction * float64(due.Sub(createdAt)))
	if due.Sub(now) < window {
		return StatusAtRisk
	}
	return StatusOnTrack
}

// Compliance returns the share of concluded metric instances that were
// completed on time, in percent. Open tickets still inside their window are
// excluded from the denominator: they have not yet had a chance to succeed
// or fail. A zero denominator reports 100 (no data).
func (e *Evaluator) Compliance(tickets []domain.Ticket, metric Metric, now time.Time) float64 {
	var met, concluded int
	for i := range tickets {
		completedAt, due := metricFields(&tickets[i], metric)
		switch {
		case completedAt != nil:
			concluded++
			if !completedAt.After(due) {
				met++
			}
		case now.After(due):
			concluded++
		}
	}
	if concluded == 0 {
		return 100
	}
	return 100 * float64(met) / float64(concluded)
}

func metricFields(ticket *domain.Ticket, metric Metric) (completedAt *time.Time, due time.Time) {
	if metric == MetricResolution {
		return ticket.ResolvedAt, ticket.SLAResolutionDue
	}
	return ticket.FirstResponseAt, ticket.SLAFirstResponseDue
}
