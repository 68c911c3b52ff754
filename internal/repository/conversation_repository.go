package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskops/support-core/internal/domain"
)

// ConversationRepository reads the inbox collaborator's tables. The core
// never rewrites conversation content; MarkRead and RecordInboundMessage
// mirror the operations the inbox exposes.
type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	CountUnread(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) error
	RecordInboundMessage(ctx context.Context, id string, at time.Time) (*domain.Conversation, error)
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository builds repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	const query = `
        SELECT id, status, assignee_agent_id, unread_count, last_message_at, created_at
        FROM conversations WHERE id=$1`
	var conv domain.Conversation
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&conv.ID,
		&conv.Status,
		&conv.AssigneeID,
		&conv.UnreadCount,
		&conv.LastMessageAt,
		&conv.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) CountUnread(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM conversations WHERE unread_count > 0 AND status <> $1`
	var count int
	err := r.pool.QueryRow(ctx, query, domain.ConversationStatusClosed).Scan(&count)
	return count, err
}

func (r *conversationRepository) MarkRead(ctx context.Context, id string) error {
	const query = `UPDATE conversations SET unread_count=0 WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *conversationRepository) RecordInboundMessage(ctx context.Context, id string, at time.Time) (*domain.Conversation, error) {
	const query = `
        UPDATE conversations SET unread_count=unread_count+1, last_message_at=$2, status=$3
        WHERE id=$1
        RETURNING id, status, assignee_agent_id, unread_count, last_message_at, created_at`
	var conv domain.Conversation
	if err := r.pool.QueryRow(ctx, query, id, at, domain.ConversationStatusOpen).Scan(
		&conv.ID,
		&conv.Status,
		&conv.AssigneeID,
		&conv.UnreadCount,
		&conv.LastMessageAt,
		&conv.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &conv, nil
}
