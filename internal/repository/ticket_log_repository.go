package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/compliance-core/internal/domain"
)

// TicketLogRepository encapsulates the append-only ticket audit log.
type TicketLogRepository interface {
	Create(ctx context.Context, entry *domain.TicketLog) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketLog, error)
	RemoveByTicket(ctx context.Context, ticketID string) error
}

type ticketLogRepository struct {
	pool *pgxpool.Pool
}

// NewTicketLogRepository instantiates repository.
func NewTicketLogRepository(pool *pgxpool.Pool) TicketLogRepository {
	return &ticketLogRepository{pool: pool}
}

func (r *ticketLogRepository) Create(ctx context.Context, entry *domain.TicketLog) error {
	const query = `
        INSERT INTO ticket_logs (log_id, ticket_id, message)
        VALUES ($1,$2,$3)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query, entry.ID, entry.TicketID, entry.Message).Scan(&entry.CreatedAt)
}

func (r *ticketLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketLog, error) {
	const query = `
        SELECT log_id, ticket_id, message, created_at
        FROM ticket_logs WHERE ticket_id=$1
        ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.TicketLog{}
	for rows.Next() {
		var entry domain.TicketLog
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *ticketLogRepository) RemoveByTicket(ctx context.Context, ticketID string) error {
	const query = `DELETE FROM ticket_logs WHERE ticket_id=$1`
	_, err := r.pool.Exec(ctx, query, ticketID)
	return err
}
