package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/compliance-core/internal/domain"
)

// ForensicRepository encapsulates forensic hash record persistence.
type ForensicRepository interface {
	Create(ctx context.Context, hash *domain.ForensicHash) error
	GetByTicket(ctx context.Context, ticketID string) ([]domain.ForensicHash, error)
	RemoveByTicket(ctx context.Context, ticketID string) error
}

type forensicRepository struct {
	pool *pgxpool.Pool
}

// NewForensicRepository instantiates repository.
func NewForensicRepository(pool *pgxpool.Pool) ForensicRepository {
	return &forensicRepository{pool: pool}
}

func (r *forensicRepository) Create(ctx context.Context, hash *domain.ForensicHash) error {
	const query = `
        INSERT INTO forensic_hashes (forensic_id, ticket_id, algorithm, digest, created_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		hash.ID,
		hash.TicketID,
		string(hash.Algorithm),
		hash.Digest,
		hash.CreatedBy,
	).Scan(&hash.CreatedAt)
}

func (r *forensicRepository) GetByTicket(ctx context.Context, ticketID string) ([]domain.ForensicHash, error) {
	const query = `
        SELECT forensic_id, ticket_id, algorithm, digest, created_at, created_by
        FROM forensic_hashes WHERE ticket_id=$1
        ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := []domain.ForensicHash{}
	for rows.Next() {
		var hash domain.ForensicHash
		var algorithm string
		if err := rows.Scan(
			&hash.ID,
			&hash.TicketID,
			&algorithm,
			&hash.Digest,
			&hash.CreatedAt,
			&hash.CreatedBy,
		); err != nil {
			return nil, err
		}
		hash.Algorithm = domain.HashAlgorithm(algorithm)
		hashes = append(hashes, hash)
	}
	return hashes, rows.Err()
}

func (r *forensicRepository) RemoveByTicket(ctx context.Context, ticketID string) error {
	const query = `DELETE FROM forensic_hashes WHERE ticket_id=$1`
	_, err := r.pool.Exec(ctx, query, ticketID)
	return err
}
