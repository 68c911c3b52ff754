package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DispatchStateRepository tracks, per (ticket, metric), the last SLA status
// the dispatcher notified for. RecordStatus is the atomic dedup check: it
// reports an escalation exactly once per strict rank increase and silently
// records de-escalations so a later re-escalation notifies again.
type DispatchStateRepository interface {
	RecordStatus(ctx context.Context, ticketID, metric, status string, rank int) (escalated bool, err error)
}

type dispatchStateRepository struct {
	pool *pgxpool.Pool
}

// NewDispatchStateRepository builds repository.
func NewDispatchStateRepository(pool *pgxpool.Pool) DispatchStateRepository {
	return &dispatchStateRepository{pool: pool}
}

func (r *dispatchStateRepository) RecordStatus(ctx context.Context, ticketID, metric, status string, rank int) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Seed the row at rank 0 so the row lock below always has a target.
	const seed = `
        INSERT INTO sla_dispatch_state (ticket_id, metric, last_status, last_rank)
        VALUES ($1,$2,'on_track',0)
        ON CONFLICT (ticket_id, metric) DO NOTHING`
	if _, err := tx.Exec(ctx, seed, ticketID, metric); err != nil {
		return false, err
	}

	const lock = `
        SELECT last_rank FROM sla_dispatch_state
        WHERE ticket_id=$1 AND metric=$2 FOR UPDATE`
	var prevRank int
	if err := tx.QueryRow(ctx, lock, ticketID, metric).Scan(&prevRank); err != nil {
		return false, err
	}

	if rank != prevRank {
		const update = `
            UPDATE sla_dispatch_state SET last_status=$3, last_rank=$4, updated_at=NOW()
            WHERE ticket_id=$1 AND metric=$2`
		if _, err := tx.Exec(ctx, update, ticketID, metric, status, rank); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return rank > prevRank, nil
}
