package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskops/support-core/internal/domain"
	"github.com/deskops/support-core/internal/events"
	"github.com/deskops/support-core/internal/observability"
	"github.com/deskops/support-core/internal/repository"
	"github.com/deskops/support-core/internal/sla"
	apperrors "github.com/deskops/support-core/pkg/util"
)

// DispatchService turns lifecycle events and SLA evaluations into
// notification records. SLA notifications are edge-triggered: per (ticket,
// metric) only a strict escalation emits, and "already notified" is a
// normal no-op rather than an error.
type DispatchService struct {
	notifications repository.NotificationRepository
	dispatchState repository.DispatchStateRepository
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// NewDispatchService creates the service.
func NewDispatchService(
	notifications repository.NotificationRepository,
	dispatchState repository.DispatchStateRepository,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *DispatchService {
	return &DispatchService{
		notifications: notifications,
		dispatchState: dispatchState,
		logger:        logger,
		metrics:       metrics,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (d *DispatchService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketAssigned, d.handleTicketAssigned)
	dispatcher.Subscribe(events.EventTicketReplyReceived, d.handleTicketReply)
}

func (d *DispatchService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	// Unassignment produces no notification.
	if payload.NewAssigneeID == nil {
		return nil
	}
	if payload.OldAssigneeID != nil && *payload.OldAssigneeID == *payload.NewAssigneeID {
		return nil
	}
	return d.create(ctx, &domain.Notification{
		RecipientID: *payload.NewAssigneeID,
		Type:        domain.NotificationTicketAssigned,
		Title:       "Ticket assigned to you",
		Message:     fmt.Sprintf("Ticket %s has been assigned to you", event.TicketID),
		Link:        ticketLink(event.TicketID),
	})
}

func (d *DispatchService) handleTicketReply(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketReplyReceivedPayload)
	if !ok {
		return nil
	}
	// Replies on unassigned conversations surface through badges instead.
	if payload.AssigneeID == nil {
		return nil
	}
	return d.create(ctx, &domain.Notification{
		RecipientID: *payload.AssigneeID,
		Type:        domain.NotificationTicketReply,
		Title:       "New customer reply",
		Message:     payload.Preview,
		Link:        ticketLink(event.TicketID),
	})
}

// HandleEvaluation records the evaluated status for both metrics and emits
// at most one notification per strict escalation. De-escalations (a metric
// completing, so rank drops back to zero) are recorded silently so a later
// re-escalation notifies again.
func (d *DispatchService) HandleEvaluation(ctx context.Context, ticket *domain.Ticket, eval sla.Evaluation) error {
	if err := d.recordMetric(ctx, ticket, sla.MetricFirstResponse, eval.FirstResponse); err != nil {
		return err
	}
	return d.recordMetric(ctx, ticket, sla.MetricResolution, eval.Resolution)
}

func (d *DispatchService) recordMetric(ctx context.Context, ticket *domain.Ticket, metric sla.Metric, status sla.MetricStatus) error {
	escalated, err := d.dispatchState.RecordStatus(ctx, ticket.ID, string(metric), string(status), status.Rank())
	if err != nil {
		return apperrors.MapError(err)
	}
	if !escalated {
		return nil
	}
	if ticket.AssigneeID == nil {
		// No recipient; the escalation is still recorded so a later
		// assignment does not re-fire the same transition.
		d.logger.Debug("sla escalation on unassigned ticket",
			zap.String("ticket_id", ticket.ID),
			zap.String("metric", string(metric)),
			zap.String("status", string(status)))
		return nil
	}

	notification := &domain.Notification{
		RecipientID: *ticket.AssigneeID,
		Link:        ticketLink(ticket.ID),
	}
	switch status {
	case sla.StatusAtRisk:
		notification.Type = domain.NotificationSLAWarning
		notification.Title = "SLA at risk"
		notification.Message = fmt.Sprintf("Ticket %s is approaching its %s deadline", ticket.ID, metricLabel(metric))
	case sla.StatusBreached:
		notification.Type = domain.NotificationUrgentTicket
		notification.Title = "SLA breached"
		notification.Message = fmt.Sprintf("Ticket %s missed its %s deadline", ticket.ID, metricLabel(metric))
	default:
		return nil
	}
	return d.create(ctx, notification)
}

func (d *DispatchService) create(ctx context.Context, notification *domain.Notification) error {
	if err := d.notifications.Create(ctx, notification); err != nil {
		d.logger.Error("create notification",
			zap.String("type", string(notification.Type)),
			zap.String("recipient", notification.RecipientID),
			zap.Error(err))
		return apperrors.MapError(err)
	}
	d.metrics.RecordNotification(string(notification.Type))
	d.logger.Info("notification dispatched",
		zap.String("type", string(notification.Type)),
		zap.String("recipient", notification.RecipientID))
	return nil
}

func metricLabel(metric sla.Metric) string {
	if metric == sla.MetricResolution {
		return "resolution"
	}
	return "first response"
}

func ticketLink(ticketID string) *string {
	link := "/tickets/" + ticketID
	return &link
}
