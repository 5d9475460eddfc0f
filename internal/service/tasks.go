package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/compliance-core/internal/domain"
	"github.com/spec-kit/compliance-core/internal/events"
	"github.com/spec-kit/compliance-core/internal/repository"
	"github.com/spec-kit/compliance-core/internal/scheduler"
)

// Scheduled task action names.
const (
	ActionCreateRelations = "ticket.create_relations"
	ActionInitialize      = "ticket.initialize"
	ActionAutoclose       = "ticket.autoclose"
	ActionRemoveLogs      = "ticket.remove_logs"
)

// relationTaskPayload carries the ticket data the deferred fan-out needs.
type relationTaskPayload struct {
	TicketID      string   `json:"ticket_id"`
	Providers     []string `json:"providers"`
	FQDN          []string `json:"fqdn,omitempty"`
	IPv4          []string `json:"ipv4,omitempty"`
	IPv6          []string `json:"ipv6,omitempty"`
	RevokeTime    int      `json:"revoke_time"`
	AutocloseTime int      `json:"autoclose_time"`
}

// ticketTaskPayload identifies the ticket a timed transition applies to.
type ticketTaskPayload struct {
	TicketID string `json:"ticket_id"`
}

// TaskHandlers implements the scheduled side of the ticket lifecycle. All
// handlers are idempotent against late or duplicate firings: each one
// re-checks that the ticket still exists before acting.
type TaskHandlers struct {
	tickets    repository.TicketRepository
	logs       repository.TicketLogRepository
	relations  *RelationService
	forensic   *ForensicService
	scheduler  scheduler.Scheduler
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TaskHandlerDependencies bundles collaborators for the handlers.
type TaskHandlerDependencies struct {
	TicketRepo    repository.TicketRepository
	TicketLogRepo repository.TicketLogRepository
	Relations     *RelationService
	Forensic      *ForensicService
	Scheduler     scheduler.Scheduler
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewTaskHandlers constructs the handlers.
func NewTaskHandlers(deps TaskHandlerDependencies) *TaskHandlers {
	return &TaskHandlers{
		tickets:    deps.TicketRepo,
		logs:       deps.TicketLogRepo,
		relations:  deps.Relations,
		forensic:   deps.Forensic,
		scheduler:  deps.Scheduler,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Register binds every handler to its action name.
func (h *TaskHandlers) Register(registry *scheduler.Registry) {
	registry.Register(ActionCreateRelations, h.HandleCreateRelations)
	registry.Register(ActionInitialize, h.HandleInitialize)
	registry.Register(ActionAutoclose, h.HandleAutoclose)
	registry.Register(ActionRemoveLogs, h.HandleRemoveLogs)
}

// HandleCreateRelations performs the deferred fan-out for a freshly created
// ticket: classify and insert the work items, then schedule the initialize
// and autoclose transitions and record their ids on the ticket. Any failure
// unwinds every effect in reverse and marks the ticket FAILED.
func (h *TaskHandlers) HandleCreateRelations(ctx context.Context, task scheduler.Task) error {
	var payload relationTaskPayload
	if err := task.DecodePayload(&payload); err != nil {
		return err
	}

	exists, err := h.tickets.Exists(ctx, payload.TicketID)
	if err != nil {
		return err
	}
	if !exists {
		// removed inside the relation delay; nothing to do
		h.logger.Info("ticket gone before relation fan-out", zap.String("ticket_id", payload.TicketID))
		return nil
	}

	comp := NewCompensation()
	comp.Add("remove forensic hashes", func(ctx context.Context) error {
		return h.forensic.RemoveByTicket(ctx, payload.TicketID)
	})

	if _, err := h.relations.Establish(ctx, payload.TicketID, payload.Providers, payload.FQDN, payload.IPv4, payload.IPv6); err != nil {
		return h.failTicket(ctx, payload.TicketID, comp, err)
	}
	comp.Add("abandon relation items", func(ctx context.Context) error {
		return h.relations.Abandon(ctx, payload.TicketID)
	})

	pendingTasks := make([]string, 0, 2)
	for _, transition := range []struct {
		action string
		delay  time.Duration
	}{
		{ActionInitialize, time.Duration(payload.RevokeTime) * time.Second},
		{ActionAutoclose, time.Duration(payload.AutocloseTime) * time.Second},
	} {
		taskID, err := h.scheduler.Schedule(ctx, transition.action, transition.delay, ticketTaskPayload{TicketID: payload.TicketID})
		if err != nil {
			return h.failTicket(ctx, payload.TicketID, comp, err)
		}
		pendingTasks = append(pendingTasks, taskID)
		comp.Add("cancel task "+transition.action, func(ctx context.Context) error {
			_, cancelErr := h.scheduler.Cancel(ctx, taskID)
			return cancelErr
		})
	}

	if err := h.tickets.UpdateTaskList(ctx, payload.TicketID, pendingTasks); err != nil {
		return h.failTicket(ctx, payload.TicketID, comp, err)
	}

	h.publish(ctx, events.EventRelationsEstablished, payload.TicketID, "Completed the creation of all ticket items.")
	return nil
}

// HandleInitialize moves a ticket from CREATED to OPEN once the revoke window
// elapses. A persist failure is logged only; the ticket stays visible in
// CREATED until reconciliation.
func (h *TaskHandlers) HandleInitialize(ctx context.Context, task scheduler.Task) error {
	var payload ticketTaskPayload
	if err := task.DecodePayload(&payload); err != nil {
		return err
	}

	exists, err := h.tickets.Exists(ctx, payload.TicketID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := h.tickets.UpdateStatus(ctx, payload.TicketID, domain.TicketStatusOpen); err != nil {
		h.logger.Error("could not open ticket", zap.String("ticket_id", payload.TicketID), zap.Error(err))
		return nil
	}

	h.publish(ctx, events.EventTicketOpened, payload.TicketID,
		fmt.Sprintf("Changed status to `%s`.", domain.TicketStatusOpen))
	return nil
}

// HandleAutoclose force-closes a ticket after its autoclose window. When the
// close cannot be persisted the status is reverted to CREATED as a
// compensating write.
func (h *TaskHandlers) HandleAutoclose(ctx context.Context, task scheduler.Task) error {
	var payload ticketTaskPayload
	if err := task.DecodePayload(&payload); err != nil {
		return err
	}

	exists, err := h.tickets.Exists(ctx, payload.TicketID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := h.tickets.UpdateStatus(ctx, payload.TicketID, domain.TicketStatusClosed); err != nil {
		h.logger.Error("could not autoclose ticket", zap.String("ticket_id", payload.TicketID), zap.Error(err))
		if revertErr := h.tickets.UpdateStatus(ctx, payload.TicketID, domain.TicketStatusCreated); revertErr != nil {
			h.logger.Error("could not revert ticket status", zap.String("ticket_id", payload.TicketID), zap.Error(revertErr))
		}
		return nil
	}

	h.publish(ctx, events.EventTicketClosed, payload.TicketID,
		fmt.Sprintf("Changed status to `%s`.", domain.TicketStatusClosed))
	return nil
}

// HandleRemoveLogs deletes the audit lines of a removed ticket. Best-effort.
func (h *TaskHandlers) HandleRemoveLogs(ctx context.Context, task scheduler.Task) error {
	var payload ticketTaskPayload
	if err := task.DecodePayload(&payload); err != nil {
		return err
	}

	if err := h.logs.RemoveByTicket(ctx, payload.TicketID); err != nil {
		h.logger.Error("could not remove ticket logs", zap.String("ticket_id", payload.TicketID), zap.Error(err))
	}
	return nil
}

// failTicket unwinds prior side effects and marks the ticket FAILED. The
// triggering error is returned so the worker records the task as failed.
func (h *TaskHandlers) failTicket(ctx context.Context, ticketID string, comp *Compensation, cause error) error {
	h.logger.Error("relation fan-out failed", zap.String("ticket_id", ticketID), zap.Error(cause))

	comp.Unwind(ctx, h.logger)

	if err := h.tickets.UpdateStatus(ctx, ticketID, domain.TicketStatusFailed); err != nil {
		h.logger.Error("could not mark ticket failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}

	h.publish(ctx, events.EventTicketFailed, ticketID, "Ticket item creation failed.")
	return cause
}

func (h *TaskHandlers) publish(ctx context.Context, eventType events.EventType, ticketID, message string) {
	if h.dispatcher == nil {
		return
	}
	_ = h.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Message:   message,
		Timestamp: time.Now(),
	})
}
