package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskops/support-core/internal/domain"
)

// ActivityRepository stores the append-only audit trail. Entries are
// immutable once written.
type ActivityRepository interface {
	Create(ctx context.Context, entry *domain.ActivityEntry) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.ActivityEntry, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, entry *domain.ActivityEntry) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal activity detail: %w", err)
	}
	const query = `
        INSERT INTO ticket_activity (ticket_id, actor, kind, detail)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.Actor,
		entry.Detail.Kind(),
		detail,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, actor, kind, detail, created_at
        FROM ticket_activity WHERE ticket_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActivityEntry
	for rows.Next() {
		var entry domain.ActivityEntry
		var kind domain.ActivityKind
		var raw []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Actor,
			&kind,
			&raw,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		detail, err := decodeActivityDetail(kind, raw)
		if err != nil {
			return nil, err
		}
		entry.Detail = detail
		result = append(result, entry)
	}
	return result, rows.Err()
}

// decodeActivityDetail rebuilds the tagged variant for a stored entry.
func decodeActivityDetail(kind domain.ActivityKind, raw []byte) (domain.ActivityDetail, error) {
	var detail domain.ActivityDetail
	switch kind {
	case domain.ActivityKindCreation:
		var d domain.CreationDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		detail = d
	case domain.ActivityKindStatusChange:
		var d domain.StatusChangeDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		detail = d
	case domain.ActivityKindAssignment:
		var d domain.AssignmentDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		detail = d
	case domain.ActivityKindFirstResponse:
		var d domain.FirstResponseDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		detail = d
	case domain.ActivityKindNote:
		var d domain.NoteDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		detail = d
	default:
		return nil, fmt.Errorf("unknown activity kind %q", kind)
	}
	return detail, nil
}
