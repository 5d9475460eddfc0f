package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/compliance-core/internal/domain"
	"github.com/spec-kit/compliance-core/internal/matching"
	"github.com/spec-kit/compliance-core/internal/repository"
	apperrors "github.com/spec-kit/compliance-core/pkg/util"
)

// ClassifiedValue summarizes the classification of one target value.
type ClassifiedValue struct {
	Value         string
	Genre         domain.Genre
	IsDuplicate   bool
	IsWhitelisted bool
}

// RelationResult holds the per-genre classification of one establish run.
type RelationResult struct {
	FQDN []ClassifiedValue
	IPv4 []ClassifiedValue
	IPv6 []ClassifiedValue
}

// RelationService fans a ticket's target values out into per-provider work
// items. Classification happens against a snapshot cache built once per call
// and held privately for that call only.
type RelationService struct {
	items     repository.TicketItemRepository
	whitelist repository.WhitelistRepository
	logger    *zap.Logger
	settings  domain.TicketItemSettings
}

// NewRelationService constructs the service.
func NewRelationService(items repository.TicketItemRepository, whitelist repository.WhitelistRepository, itemSettings domain.TicketItemSettings, logger *zap.Logger) *RelationService {
	return &RelationService{
		items:     items,
		whitelist: whitelist,
		logger:    logger,
		settings:  itemSettings,
	}
}

// Establish classifies every value of every genre and inserts the full
// N values x M providers item batch as one bulk write. Providers must be
// non-empty. No retries: failures propagate to the caller, and a failed bulk
// write leaves no items of this batch visible.
func (s *RelationService) Establish(ctx context.Context, ticketID string, providers []string, fqdn, ipv4, ipv6 []string) (*RelationResult, error) {
	if len(providers) == 0 {
		return nil, apperrors.NewValidationError("at least one provider is required", nil)
	}

	s.logger.Debug("establishing relations", zap.String("ticket_id", ticketID))

	cache, err := matching.BuildCache(ctx, s.items, s.whitelist)
	if err != nil {
		return nil, apperrors.NewInfrastructureError("matching cache", err)
	}

	result := &RelationResult{}
	batch := make([]domain.TicketItem, 0, (len(fqdn)+len(ipv4)+len(ipv6))*len(providers))

	for _, group := range []struct {
		genre  domain.Genre
		values []string
		out    *[]ClassifiedValue
	}{
		{domain.GenreFQDN, fqdn, &result.FQDN},
		{domain.GenreIPv4, ipv4, &result.IPv4},
		{domain.GenreIPv6, ipv6, &result.IPv6},
	} {
		for _, value := range group.values {
			classified := ClassifiedValue{
				Value:         value,
				Genre:         group.genre,
				IsDuplicate:   cache.IsDuplicate(group.genre, value),
				IsWhitelisted: cache.IsWhitelisted(group.genre, value),
			}
			*group.out = append(*group.out, classified)

			itemID := uuid.NewString()
			for _, providerID := range providers {
				batch = append(batch, domain.TicketItem{
					TicketID:      ticketID,
					ItemID:        itemID,
					ProviderID:    providerID,
					Value:         value,
					Genre:         group.genre,
					Status:        domain.TicketItemStatusUnprocessed,
					IsActive:      true,
					IsDuplicate:   classified.IsDuplicate,
					IsWhitelisted: classified.IsWhitelisted,
					IsError:       false,
					Settings:      s.settings,
					CreatedAt:     time.Now().UTC(),
				})
			}
		}
	}

	if err := s.items.CreateBatch(ctx, batch); err != nil {
		s.logger.Error("relation batch insert failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, apperrors.NewInfrastructureError("ticket item", err)
	}

	s.logger.Info("ticket relations completed",
		zap.String("ticket_id", ticketID),
		zap.Int("items", len(batch)))
	return result, nil
}

// Abandon removes every work item of a ticket.
func (s *RelationService) Abandon(ctx context.Context, ticketID string) error {
	s.logger.Debug("removing relations", zap.String("ticket_id", ticketID))

	if err := s.items.RemoveByTicket(ctx, ticketID); err != nil {
		return apperrors.NewInfrastructureError("ticket item", err)
	}

	s.logger.Info("removed all items", zap.String("ticket_id", ticketID))
	return nil
}
