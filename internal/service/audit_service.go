package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/compliance-core/internal/domain"
	"github.com/spec-kit/compliance-core/internal/events"
	"github.com/spec-kit/compliance-core/internal/repository"
)

// AuditService appends ticket log lines for lifecycle events. The log is
// fire-and-forget: a failed append never reaches any caller.
type AuditService struct {
	dispatcher events.Dispatcher
	logs       repository.TicketLogRepository
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logs repository.TicketLogRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logs:       logs,
		logger:     logger,
	}
}

// RegisterHandlers subscribes the audit trail to every lifecycle event.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketOpened,
		events.EventTicketClosed,
		events.EventTicketRemoved,
		events.EventTicketFailed,
		events.EventRelationsEstablished,
	} {
		a.dispatcher.Subscribe(eventType, a.handleEvent)
	}
}

func (a *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	a.logger.Info("ticket lifecycle event",
		zap.String("event", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("message", event.Message))

	// removed tickets no longer take log lines
	if event.Type == events.EventTicketRemoved {
		return nil
	}

	entry := &domain.TicketLog{
		ID:       uuid.NewString(),
		TicketID: event.TicketID,
		Message:  event.Message,
	}
	if err := a.logs.Create(ctx, entry); err != nil {
		a.logger.Warn("could not append ticket log",
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
	return nil
}
