package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DDARepository encapsulates reporter authorization lookups.
type DDARepository interface {
	IsAssignedToAccount(ctx context.Context, ddaID, accountID string) (bool, error)
}

type ddaRepository struct {
	pool *pgxpool.Pool
}

// NewDDARepository instantiates repository.
func NewDDARepository(pool *pgxpool.Pool) DDARepository {
	return &ddaRepository{pool: pool}
}

func (r *ddaRepository) IsAssignedToAccount(ctx context.Context, ddaID, accountID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM ddas WHERE dda_id=$1 AND account_id=$2 AND is_active)`
	var assigned bool
	if err := r.pool.QueryRow(ctx, query, ddaID, accountID).Scan(&assigned); err != nil {
		return false, err
	}
	return assigned, nil
}
