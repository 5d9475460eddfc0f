package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/compliance-core/internal/config"
	"github.com/spec-kit/compliance-core/internal/domain"
	"github.com/spec-kit/compliance-core/internal/events"
	"github.com/spec-kit/compliance-core/internal/observability"
	"github.com/spec-kit/compliance-core/internal/repository"
	"github.com/spec-kit/compliance-core/internal/scheduler"
	apperrors "github.com/spec-kit/compliance-core/pkg/util"
)

const maxDescriptionLength = 255

// TicketService drives the synchronous half of the ticket lifecycle:
// validated creation with compensation, revoke-window removal, and reads.
type TicketService struct {
	tickets    repository.TicketRepository
	logs       repository.TicketLogRepository
	providers  repository.ProviderRepository
	ddas       repository.DDARepository
	relations  *RelationService
	forensic   *ForensicService
	scheduler  scheduler.Scheduler
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.TicketConfig
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	TicketLogRepo repository.TicketLogRepository
	ProviderRepo  repository.ProviderRepository
	DDARepo       repository.DDARepository
	Relations     *RelationService
	Forensic      *ForensicService
	Scheduler     scheduler.Scheduler
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// TicketCreateInput describes a creation request.
type TicketCreateInput struct {
	DDAID            string
	ForensicEvidence map[string]string
	FQDN             []string
	IPv4             []string
	IPv6             []string
	AssignedTo       []string
	CreatedBy        string
	Description      string
}

// TicketCreateOutput is what a successful creation returns to the reporter.
type TicketCreateOutput struct {
	TicketID   string
	RevokeTime int
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.TicketConfig, deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		logs:       deps.TicketLogRepo,
		providers:  deps.ProviderRepo,
		ddas:       deps.DDARepo,
		relations:  deps.Relations,
		forensic:   deps.Forensic,
		scheduler:  deps.Scheduler,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		cfg:        cfg,
	}
}

// CreateTicket validates the request, records the forensic hashes, persists
// the ticket in CREATED and enqueues the deferred relation fan-out. The
// forward sequence is strictly ordered; any failure after the first side
// effect unwinds everything already done and surfaces the triggering error.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*TicketCreateOutput, error) {
	fqdn := dedupe(input.FQDN)
	ipv4 := dedupe(input.IPv4)
	ipv6 := dedupe(input.IPv6)
	assignedTo := dedupe(input.AssignedTo)

	if err := s.validateInput(input.DDAID, input.CreatedBy, input.Description, fqdn, ipv4, ipv6); err != nil {
		return nil, err
	}

	assigned, err := s.ddas.IsAssignedToAccount(ctx, input.DDAID, input.CreatedBy)
	if err != nil {
		return nil, apperrors.NewInfrastructureError("dda", err)
	}
	if !assigned {
		return nil, apperrors.NewConflict("UNKNOWN_DDA_IDENTIFIER",
			"the DDA identifier is not assigned to this account", nil)
	}

	if len(assignedTo) > 0 {
		for _, providerID := range assignedTo {
			exists, err := s.providers.ExistsByAccountID(ctx, providerID)
			if err != nil {
				return nil, apperrors.NewInfrastructureError("provider", err)
			}
			if !exists {
				return nil, apperrors.NewConflict("NON_EXISTENT_ASSIGNED_TO",
					fmt.Sprintf("provider %q does not exist", providerID), nil)
			}
		}
	} else {
		// no explicit assignment: fan out to every active provider
		active, err := s.providers.GetActive(ctx)
		if err != nil {
			return nil, apperrors.NewInfrastructureError("provider", err)
		}
		for _, provider := range active {
			assignedTo = append(assignedTo, provider.AccountID)
		}
		if len(assignedTo) == 0 {
			return nil, apperrors.NewConflict("NO_ACTIVE_PROVIDERS",
				"no active providers available for assignment", nil)
		}
	}

	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		DDAID:       input.DDAID,
		Description: input.Description,
		FQDN:        fqdn,
		IPv4:        ipv4,
		IPv6:        ipv6,
		AssignedTo:  assignedTo,
		Status:      domain.TicketStatusCreated,
		Settings: domain.TicketSettings{
			RevokeTime:      s.cfg.RevokeTimeSeconds,
			AutocloseTime:   s.cfg.AutocloseTimeSeconds,
			ReportErrorTime: s.cfg.ReportErrorTimeSeconds,
		},
		Tasks:     []string{},
		CreatedBy: input.CreatedBy,
	}

	comp := NewCompensation()
	comp.Add("remove forensic hashes", func(ctx context.Context) error {
		return s.forensic.RemoveByTicket(ctx, ticket.ID)
	})

	if err := s.forensic.CreateHashes(ctx, ticket.ID, input.ForensicEvidence, input.CreatedBy); err != nil {
		comp.Unwind(ctx, s.logger)
		s.metrics.RecordOrchestration(false)
		return nil, err
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.logger.Error("could not create the ticket", zap.String("ticket_id", ticket.ID), zap.Error(err))
		comp.Unwind(ctx, s.logger)
		s.metrics.RecordOrchestration(false)
		return nil, apperrors.NewInfrastructureError("ticket", err)
	}
	comp.Add("remove ticket record", func(ctx context.Context) error {
		return s.tickets.Remove(ctx, ticket.ID)
	})

	payload := relationTaskPayload{
		TicketID:      ticket.ID,
		Providers:     assignedTo,
		FQDN:          fqdn,
		IPv4:          ipv4,
		IPv6:          ipv6,
		RevokeTime:    ticket.Settings.RevokeTime,
		AutocloseTime: ticket.Settings.AutocloseTime,
	}
	relationDelay := time.Duration(s.cfg.RelationDelaySeconds) * time.Second
	if _, err := s.scheduler.Schedule(ctx, ActionCreateRelations, relationDelay, payload); err != nil {
		s.logger.Error("could not enqueue relation fan-out", zap.String("ticket_id", ticket.ID), zap.Error(err))
		comp.Unwind(ctx, s.logger)
		s.metrics.RecordOrchestration(false)
		return nil, apperrors.NewInfrastructureError("scheduler", err)
	}

	s.publish(ctx, events.EventTicketCreated, ticket.ID, input.CreatedBy,
		fmt.Sprintf("Initial status set to `%s`.", ticket.Status))
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("created_by", input.CreatedBy))
	s.metrics.RecordOrchestration(true)

	return &TicketCreateOutput{TicketID: ticket.ID, RevokeTime: ticket.Settings.RevokeTime}, nil
}

// RemoveTicket deletes a ticket while it is still inside its revoke window:
// cancel every outstanding task, schedule the deferred log cleanup, drop the
// work items and forensic hashes, then the ticket record itself.
func (s *TicketService) RemoveTicket(ctx context.Context, ticketID string) error {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return err
	}

	if !ticket.Removable(time.Now()) {
		return apperrors.NewConflict("REVOKE_TIME_EXCEEDED",
			"the ticket can no longer be removed", map[string]any{
				"revoke_time": ticket.Settings.RevokeTime,
			})
	}

	for _, taskID := range ticket.Tasks {
		if _, err := s.scheduler.Cancel(ctx, taskID); err != nil {
			s.logger.Error("could not cancel task",
				zap.String("ticket_id", ticketID),
				zap.String("task_id", taskID),
				zap.Error(err))
		}
		s.metrics.RecordCancellation()
	}

	// log cleanup is deferred and best-effort
	logDelay := time.Duration(s.cfg.RelationDelaySeconds) * time.Second
	if _, err := s.scheduler.Schedule(ctx, ActionRemoveLogs, logDelay, ticketTaskPayload{TicketID: ticketID}); err != nil {
		s.logger.Error("could not schedule log removal", zap.String("ticket_id", ticketID), zap.Error(err))
	}

	if err := s.relations.Abandon(ctx, ticketID); err != nil {
		return err
	}

	if err := s.forensic.RemoveByTicket(ctx, ticketID); err != nil {
		return err
	}

	if err := s.tickets.Remove(ctx, ticketID); err != nil {
		s.logger.Error("could not remove ticket", zap.String("ticket_id", ticketID), zap.Error(err))
		return apperrors.NewInfrastructureError("ticket", err)
	}

	s.publish(ctx, events.EventTicketRemoved, ticketID, ticket.CreatedBy, "Ticket removed within the revoke window.")
	s.logger.Info("ticket removed", zap.String("ticket_id", ticketID))
	return nil
}

// GetTicket returns a ticket with its audit log lines.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, []domain.TicketLog, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	logs, err := s.logs.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, apperrors.NewInfrastructureError("ticket log", err)
	}
	return ticket, logs, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewInfrastructureError("ticket", err)
	}
	return ticket, nil
}

func (s *TicketService) validateInput(ddaID, createdBy, description string, fqdn, ipv4, ipv6 []string) error {
	if ddaID == "" {
		return apperrors.NewValidationError("a DDA identifier is required", nil)
	}
	if createdBy == "" {
		return apperrors.NewValidationError("a reporter account is required", nil)
	}
	if len(description) > maxDescriptionLength {
		return apperrors.NewValidationError("description too long", map[string]any{
			"max_length": maxDescriptionLength,
		})
	}
	if len(fqdn) == 0 && len(ipv4) == 0 && len(ipv6) == 0 {
		return apperrors.NewValidationError("at least one target value is required", nil)
	}

	for _, group := range []struct {
		genre  domain.Genre
		values []string
	}{
		{domain.GenreFQDN, fqdn},
		{domain.GenreIPv4, ipv4},
		{domain.GenreIPv6, ipv6},
	} {
		if len(group.values) > s.cfg.MaxValuesPerGenre {
			return apperrors.NewValidationError(
				fmt.Sprintf("too many %s values", group.genre), map[string]any{
					"genre": string(group.genre),
					"max":   s.cfg.MaxValuesPerGenre,
				})
		}
		for _, value := range group.values {
			if err := group.genre.ValidateValue(value); err != nil {
				return apperrors.NewValidationError(err.Error(), map[string]any{
					"genre": string(group.genre),
				})
			}
		}
	}
	return nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID, actor, message string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// dedupe removes duplicate values preserving first-seen order.
func dedupe(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
