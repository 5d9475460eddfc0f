package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/compliance-core/internal/domain"
)

// TicketItemRepository encapsulates per-(value, provider) work item persistence.
type TicketItemRepository interface {
	// CreateBatch inserts all items inside a single transaction: a failure on
	// any row leaves none of the batch visible.
	CreateBatch(ctx context.Context, items []domain.TicketItem) error
	ActiveValuesByGenre(ctx context.Context) (map[domain.Genre][]string, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketItem, error)
	RemoveByTicket(ctx context.Context, ticketID string) error
	SetErrorFlag(ctx context.Context, ticketID, value string, flag bool) error
}

type ticketItemRepository struct {
	pool *pgxpool.Pool
}

// NewTicketItemRepository instantiates repository.
func NewTicketItemRepository(pool *pgxpool.Pool) TicketItemRepository {
	return &ticketItemRepository{pool: pool}
}

func (r *ticketItemRepository) CreateBatch(ctx context.Context, items []domain.TicketItem) error {
	if len(items) == 0 {
		return nil
	}
	const query = `
        INSERT INTO ticket_items (ticket_id, item_id, provider_id, value, genre, status,
            is_active, is_duplicate, is_whitelisted, is_error, update_max_time)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query,
			item.TicketID,
			item.ItemID,
			item.ProviderID,
			item.Value,
			string(item.Genre),
			item.Status,
			item.IsActive,
			item.IsDuplicate,
			item.IsWhitelisted,
			item.IsError,
			item.Settings.UpdateMaxTime,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketItemRepository) ActiveValuesByGenre(ctx context.Context) (map[domain.Genre][]string, error) {
	const query = `SELECT DISTINCT genre, value FROM ticket_items WHERE is_active`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[domain.Genre][]string)
	for rows.Next() {
		var rawGenre, value string
		if err := rows.Scan(&rawGenre, &value); err != nil {
			return nil, err
		}
		genre, err := domain.ParseGenre(rawGenre)
		if err != nil {
			continue
		}
		values[genre] = append(values[genre], value)
	}
	return values, rows.Err()
}

func (r *ticketItemRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketItem, error) {
	const query = `
        SELECT ticket_id, item_id, provider_id, value, genre, status,
               is_active, is_duplicate, is_whitelisted, is_error, update_max_time, created_at, updated_at
        FROM ticket_items WHERE ticket_id=$1
        ORDER BY created_at, item_id`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.TicketItem{}
	for rows.Next() {
		var item domain.TicketItem
		var rawGenre string
		if err := rows.Scan(
			&item.TicketID,
			&item.ItemID,
			&item.ProviderID,
			&item.Value,
			&rawGenre,
			&item.Status,
			&item.IsActive,
			&item.IsDuplicate,
			&item.IsWhitelisted,
			&item.IsError,
			&item.Settings.UpdateMaxTime,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		genre, err := domain.ParseGenre(rawGenre)
		if err != nil {
			return nil, err
		}
		item.Genre = genre
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ticketItemRepository) RemoveByTicket(ctx context.Context, ticketID string) error {
	const query = `DELETE FROM ticket_items WHERE ticket_id=$1`
	_, err := r.pool.Exec(ctx, query, ticketID)
	return err
}

func (r *ticketItemRepository) SetErrorFlag(ctx context.Context, ticketID, value string, flag bool) error {
	const query = `UPDATE ticket_items SET is_error=$1, updated_at=NOW() WHERE ticket_id=$2 AND value=$3`
	cmd, err := r.pool.Exec(ctx, query, flag, ticketID, value)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
