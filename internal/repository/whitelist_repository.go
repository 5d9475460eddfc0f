package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/compliance-core/internal/domain"
)

// WhitelistRepository encapsulates whitelist entry persistence.
type WhitelistRepository interface {
	GetActive(ctx context.Context) ([]domain.WhitelistEntry, error)
}

type whitelistRepository struct {
	pool *pgxpool.Pool
}

// NewWhitelistRepository instantiates repository.
func NewWhitelistRepository(pool *pgxpool.Pool) WhitelistRepository {
	return &whitelistRepository{pool: pool}
}

func (r *whitelistRepository) GetActive(ctx context.Context) ([]domain.WhitelistEntry, error) {
	const query = `
        SELECT entry_id, genre, value, is_cidr, is_active, created_at, created_by
        FROM whitelist_entries WHERE is_active`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.WhitelistEntry{}
	for rows.Next() {
		var entry domain.WhitelistEntry
		var rawGenre string
		if err := rows.Scan(
			&entry.ID,
			&rawGenre,
			&entry.Value,
			&entry.IsCIDR,
			&entry.IsActive,
			&entry.CreatedAt,
			&entry.CreatedBy,
		); err != nil {
			return nil, err
		}
		genre, err := domain.ParseGenre(rawGenre)
		if err != nil {
			continue
		}
		entry.Genre = genre
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
