package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/compliance-core/internal/domain"
)

// ProviderRepository encapsulates provider directory access.
type ProviderRepository interface {
	GetActive(ctx context.Context) ([]domain.Provider, error)
	ExistsByAccountID(ctx context.Context, accountID string) (bool, error)
}

type providerRepository struct {
	pool *pgxpool.Pool
}

// NewProviderRepository instantiates repository.
func NewProviderRepository(pool *pgxpool.Pool) ProviderRepository {
	return &providerRepository{pool: pool}
}

func (r *providerRepository) GetActive(ctx context.Context) ([]domain.Provider, error) {
	const query = `SELECT account_id, name, is_active, created_at FROM providers WHERE is_active ORDER BY account_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	providers := []domain.Provider{}
	for rows.Next() {
		var provider domain.Provider
		if err := rows.Scan(&provider.AccountID, &provider.Name, &provider.IsActive, &provider.CreatedAt); err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	return providers, rows.Err()
}

func (r *providerRepository) ExistsByAccountID(ctx context.Context, accountID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM providers WHERE account_id=$1 AND is_active)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
