package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskops/support-core/internal/domain"
)

// ErrVersionConflict signals a lost optimistic-update race. The service
// layer maps it to a ConcurrentModification error for callers.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketSort names the supported list orderings.
type TicketSort string

const (
	SortByCreatedAt        TicketSort = "created_at"
	SortByUpdatedAt        TicketSort = "updated_at"
	SortByFirstResponseDue TicketSort = "sla_first_response_due"
	SortByResolutionDue    TicketSort = "sla_resolution_due"
)

// TicketFilter captures shell search parameters.
type TicketFilter struct {
	ConversationID *string
	AssigneeID     *string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	Category       *string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	SortBy         TicketSort
	SortDesc       bool
	Limit          int
	Offset         int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update applies mutable fields conditionally on the stored version and
	// bumps it. Returns ErrVersionConflict when the row moved underneath the
	// caller; tickets are never deleted so a zero-row update is always a race.
	Update(ctx context.Context, ticket *domain.Ticket) error
	// StampFirstResponse sets first_response_at only when it is still null.
	// The returned flag reports whether this call performed the stamp.
	StampFirstResponse(ctx context.Context, id string, at time.Time) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByConversation(ctx context.Context, conversationID string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ListSweepCandidates returns tickets with at least one incomplete metric.
	ListSweepCandidates(ctx context.Context) ([]domain.Ticket, error)
	ListCreatedSince(ctx context.Context, since time.Time) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error)
	CountUrgentOrBreached(ctx context.Context, now time.Time) (int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, conversation_id, subject, category, priority, status, assignee_agent_id,
               created_at, updated_at, first_response_at, resolved_at, closed_at,
               sla_first_response_due, sla_resolution_due, version`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (conversation_id, subject, category, priority, status, assignee_agent_id,
                             sla_first_response_due, sla_resolution_due)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at, version`
	return r.pool.QueryRow(ctx, query,
		ticket.ConversationID,
		ticket.Subject,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.AssigneeID,
		ticket.SLAFirstResponseDue,
		ticket.SLAResolutionDue,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt, &ticket.Version)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, assignee_agent_id=$2, resolved_at=$3, closed_at=$4,
            version=version+1, updated_at=NOW()
        WHERE id=$5 AND version=$6
        RETURNING version, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.AssigneeID,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	return err
}

func (r *ticketRepository) StampFirstResponse(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET first_response_at=$2, version=version+1, updated_at=NOW()
        WHERE id=$1 AND first_response_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByConversation(ctx context.Context, conversationID string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE conversation_id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, conversationID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	ticket, err := scanTicket(row)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ConversationID != nil {
		args = append(args, *filter.ConversationID)
		clauses = append(clauses, fmt.Sprintf("conversation_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_agent_id=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), sortColumn(filter.SortBy), sortDirection(filter.SortDesc), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListSweepCandidates(ctx context.Context) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE status <> $1 AND (first_response_at IS NULL OR resolved_at IS NULL)
        ORDER BY sla_first_response_due ASC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE created_at >= $1 ORDER BY created_at ASC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	const query = `SELECT status, COUNT(*) FROM tickets GROUP BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int)
	for rows.Next() {
		var status domain.TicketStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) CountUrgentOrBreached(ctx context.Context, now time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM tickets
        WHERE status <> $1 AND (
            priority = $2
            OR (first_response_at IS NULL AND sla_first_response_due < $3)
            OR (resolved_at IS NULL AND sla_resolution_due < $3))`
	var count int
	err := r.pool.QueryRow(ctx, query, domain.TicketStatusClosed, domain.TicketPriorityUrgent, now).Scan(&count)
	return count, err
}

func sortColumn(sort TicketSort) string {
	switch sort {
	case SortByCreatedAt, SortByUpdatedAt, SortByFirstResponseDue, SortByResolutionDue:
		return string(sort)
	default:
		return string(SortByUpdatedAt)
	}
}

func sortDirection(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.ConversationID,
		&ticket.Subject,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.SLAFirstResponseDue,
		&ticket.SLAResolutionDue,
		&ticket.Version,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
