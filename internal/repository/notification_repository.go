package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskops/support-core/internal/domain"
)

// NotificationRepository persists agent-facing notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, recipientID, id string) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	ClearAll(ctx context.Context, recipientID string) (int64, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_agent_id, type, title, message, link)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, is_read, created_at`
	return r.pool.QueryRow(ctx, query,
		notification.RecipientID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.Link,
	).Scan(&notification.ID, &notification.IsRead, &notification.CreatedAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, recipient_agent_id, type, title, message, link, is_read, created_at
        FROM notifications WHERE recipient_agent_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.Link,
			&n.IsRead,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE recipient_agent_id=$1 AND is_read=FALSE`
	var count int
	err := r.pool.QueryRow(ctx, query, recipientID).Scan(&count)
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id string) (bool, error) {
	const query = `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND recipient_agent_id=$2`
	cmd, err := r.pool.Exec(ctx, query, id, recipientID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	const query = `UPDATE notifications SET is_read=TRUE WHERE recipient_agent_id=$1 AND is_read=FALSE`
	cmd, err := r.pool.Exec(ctx, query, recipientID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) ClearAll(ctx context.Context, recipientID string) (int64, error) {
	const query = `DELETE FROM notifications WHERE recipient_agent_id=$1`
	cmd, err := r.pool.Exec(ctx, query, recipientID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
