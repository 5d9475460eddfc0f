package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/compliance-core/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, ticketID string) (*domain.Ticket, error)
	Exists(ctx context.Context, ticketID string) (bool, error)
	UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error
	UpdateTaskList(ctx context.Context, ticketID string, taskIDs []string) error
	Remove(ctx context.Context, ticketID string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_id, dda_id, description, fqdn, ipv4, ipv6, assigned_to, status,
            revoke_time, autoclose_time, report_error_time, tasks, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.DDAID,
		ticket.Description,
		ticket.FQDN,
		ticket.IPv4,
		ticket.IPv6,
		ticket.AssignedTo,
		ticket.Status,
		ticket.Settings.RevokeTime,
		ticket.Settings.AutocloseTime,
		ticket.Settings.ReportErrorTime,
		ticket.Tasks,
		ticket.CreatedBy,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	const query = `
        SELECT ticket_id, dda_id, description, fqdn, ipv4, ipv6, assigned_to, status,
               revoke_time, autoclose_time, report_error_time, tasks, created_at, updated_at, created_by
        FROM tickets WHERE ticket_id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&ticket.ID,
		&ticket.DDAID,
		&ticket.Description,
		&ticket.FQDN,
		&ticket.IPv4,
		&ticket.IPv6,
		&ticket.AssignedTo,
		&ticket.Status,
		&ticket.Settings.RevokeTime,
		&ticket.Settings.AutocloseTime,
		&ticket.Settings.ReportErrorTime,
		&ticket.Tasks,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CreatedBy,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Exists(ctx context.Context, ticketID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM tickets WHERE ticket_id=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE ticket_id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdateTaskList(ctx context.Context, ticketID string, taskIDs []string) error {
	const query = `UPDATE tickets SET tasks=$1, updated_at=$2 WHERE ticket_id=$3`
	cmd, err := r.pool.Exec(ctx, query, taskIDs, time.Now().UTC(), ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Remove(ctx context.Context, ticketID string) error {
	const query = `DELETE FROM tickets WHERE ticket_id=$1`
	cmd, err := r.pool.Exec(ctx, query, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
