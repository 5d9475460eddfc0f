package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/compliance-core/internal/domain"
	"github.com/spec-kit/compliance-core/internal/repository"
	apperrors "github.com/spec-kit/compliance-core/pkg/util"
)

// ForensicService records evidence digests during ticket creation and removes
// them when the ticket is unwound or deleted.
type ForensicService struct {
	hashes repository.ForensicRepository
	logger *zap.Logger
}

// NewForensicService constructs the service.
func NewForensicService(hashes repository.ForensicRepository, logger *zap.Logger) *ForensicService {
	return &ForensicService{hashes: hashes, logger: logger}
}

// CreateHashes validates and stores one digest per algorithm for a ticket.
// Validation of the whole set happens before any insert.
func (s *ForensicService) CreateHashes(ctx context.Context, ticketID string, hashList map[string]string, createdBy string) error {
	if len(hashList) == 0 {
		return apperrors.NewValidationError("at least one forensic hash is required", nil)
	}

	records := make([]domain.ForensicHash, 0, len(hashList))
	for rawAlgorithm, digest := range hashList {
		algorithm := domain.HashAlgorithm(strings.ToLower(strings.TrimSpace(rawAlgorithm)))
		if err := domain.ValidateDigest(algorithm, digest); err != nil {
			return apperrors.NewValidationError(err.Error(), map[string]any{
				"algorithm": rawAlgorithm,
			})
		}
		records = append(records, domain.ForensicHash{
			ID:        uuid.NewString(),
			TicketID:  ticketID,
			Algorithm: algorithm,
			Digest:    strings.ToLower(strings.TrimSpace(digest)),
			CreatedBy: createdBy,
		})
	}

	for i := range records {
		if err := s.hashes.Create(ctx, &records[i]); err != nil {
			s.logger.Error("could not store forensic hash",
				zap.String("ticket_id", ticketID),
				zap.String("algorithm", string(records[i].Algorithm)),
				zap.Error(err))
			return apperrors.NewInfrastructureError("forensic hash", err)
		}
		s.logger.Info("forensic hash recorded",
			zap.String("ticket_id", ticketID),
			zap.String("algorithm", string(records[i].Algorithm)))
	}
	return nil
}

// RemoveByTicket deletes every hash record of a ticket.
func (s *ForensicService) RemoveByTicket(ctx context.Context, ticketID string) error {
	if err := s.hashes.RemoveByTicket(ctx, ticketID); err != nil {
		return apperrors.NewInfrastructureError("forensic hash", err)
	}
	return nil
}
