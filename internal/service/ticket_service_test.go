package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/compliance-core/internal/config"
	"github.com/spec-kit/compliance-core/internal/domain"
	"github.com/spec-kit/compliance-core/internal/events"
	"github.com/spec-kit/compliance-core/internal/observability"
	apperrors "github.com/spec-kit/compliance-core/pkg/util"
)

type ticketServiceFixture struct {
	service   *TicketService
	tickets   *fakeTicketRepo
	items     *fakeItemRepo
	forensic  *fakeForensicRepo
	logs      *fakeLogRepo
	scheduler *fakeScheduler
	events    *recordingDispatcher
	cfg       config.TicketConfig
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func newTicketServiceFixture() *ticketServiceFixture {
	logger := zap.NewNop()
	cfg := config.TicketConfig{
		RevokeTimeSeconds:      75,
		AutocloseTimeSeconds:   1800,
		ReportErrorTimeSeconds: 86400,
		ItemUpdateMaxSeconds:   1800,
		MaxValuesPerGenre:      3,
		RelationDelaySeconds:   1,
	}

	tickets := newFakeTicketRepo()
	items := newFakeItemRepo()
	forensic := &fakeForensicRepo{}
	logs := &fakeLogRepo{}
	sched := &fakeScheduler{}
	dispatcher := &recordingDispatcher{}

	relations := NewRelationService(items, &fakeWhitelistRepo{}, domain.TicketItemSettings{UpdateMaxTime: cfg.ItemUpdateMaxSeconds}, logger)
	forensicService := NewForensicService(forensic, logger)

	service := NewTicketService(cfg, TicketDependencies{
		TicketRepo:    tickets,
		TicketLogRepo: logs,
		ProviderRepo: &fakeProviderRepo{providers: []domain.Provider{
			{AccountID: "isp-1", Name: "Provider One", IsActive: true},
			{AccountID: "isp-2", Name: "Provider Two", IsActive: true},
			{AccountID: "isp-idle", Name: "Inactive", IsActive: false},
		}},
		DDARepo:    &fakeDDARepo{assignments: map[string]string{"dda-1": "reporter-1"}},
		Relations:  relations,
		Forensic:   forensicService,
		Scheduler:  sched,
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
		Logger:     logger,
	})

	return &ticketServiceFixture{
		service:   service,
		tickets:   tickets,
		items:     items,
		forensic:  forensic,
		logs:      logs,
		scheduler: sched,
		events:    dispatcher,
		cfg:       cfg,
	}
}

func validCreateInput() TicketCreateInput {
	return TicketCreateInput{
		DDAID:            "dda-1",
		ForensicEvidence: map[string]string{"sha256": strings.Repeat("ab", 32)},
		FQDN:             []string{"pirate.example.com"},
		IPv4:             []string{"192.0.2.10"},
		AssignedTo:       []string{"isp-1"},
		CreatedBy:        "reporter-1",
		Description:      "unauthorized stream",
	}
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	return domainErr.Code
}

func TestCreateTicketSuccess(t *testing.T) {
	fix := newTicketServiceFixture()

	out, err := fix.service.CreateTicket(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if out.TicketID == "" {
		t.Fatal("expected a ticket id")
	}
	if out.RevokeTime != fix.cfg.RevokeTimeSeconds {
		t.Fatalf("revoke time = %d, want %d", out.RevokeTime, fix.cfg.RevokeTimeSeconds)
	}

	ticket := fix.tickets.get(out.TicketID)
	if ticket == nil {
		t.Fatal("ticket not persisted")
	}
	if ticket.Status != domain.TicketStatusCreated {
		t.Fatalf("status = %s, want %s", ticket.Status, domain.TicketStatusCreated)
	}
	if ticket.Settings.AutocloseTime != fix.cfg.AutocloseTimeSeconds {
		t.Fatalf("autoclose time = %d, want %d", ticket.Settings.AutocloseTime, fix.cfg.AutocloseTimeSeconds)
	}
	if fix.forensic.count() != 1 {
		t.Fatalf("forensic hashes = %d, want 1", fix.forensic.count())
	}

	// relation fan-out is deferred, never synchronous
	if fix.items.count() != 0 {
		t.Fatalf("items created synchronously: %d", fix.items.count())
	}
	calls := fix.scheduler.calls(ActionCreateRelations)
	if len(calls) != 1 {
		t.Fatalf("relation tasks scheduled = %d, want 1", len(calls))
	}
	if want := time.Duration(fix.cfg.RelationDelaySeconds) * time.Second; calls[0].delay != want {
		t.Fatalf("relation delay = %v, want %v", calls[0].delay, want)
	}

	if len(fix.events.published) != 1 || fix.events.published[0].Type != events.EventTicketCreated {
		t.Fatalf("expected one ticket_created event, got %+v", fix.events.published)
	}
}

func TestCreateTicketDedupesValues(t *testing.T) {
	fix := newTicketServiceFixture()

	input := validCreateInput()
	input.FQDN = []string{"pirate.example.com", "pirate.example.com", "mirror.example.com"}

	out, err := fix.service.CreateTicket(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	ticket := fix.tickets.get(out.TicketID)
	want := []string{"pirate.example.com", "mirror.example.com"}
	if len(ticket.FQDN) != len(want) {
		t.Fatalf("fqdn values = %v, want %v", ticket.FQDN, want)
	}
	for i, value := range want {
		if ticket.FQDN[i] != value {
			t.Fatalf("fqdn[%d] = %q, want %q (order must be preserved)", i, ticket.FQDN[i], value)
		}
	}
}

func TestCreateTicketRejectsUnknownDDA(t *testing.T) {
	fix := newTicketServiceFixture()

	input := validCreateInput()
	input.DDAID = "dda-unknown"

	_, err := fix.service.CreateTicket(context.Background(), input)
	if code := domainCode(t, err); code != "UNKNOWN_DDA_IDENTIFIER" {
		t.Fatalf("code = %s, want UNKNOWN_DDA_IDENTIFIER", code)
	}
	if fix.forensic.count() != 0 {
		t.Fatal("no side effects expected before authorization passes")
	}
}

func TestCreateTicketRejectsUnknownProvider(t *testing.T) {
	fix := newTicketServiceFixture()

	input := validCreateInput()
	input.AssignedTo = []string{"isp-1", "isp-ghost"}

	_, err := fix.service.CreateTicket(context.Background(), input)
	if code := domainCode(t, err); code != "NON_EXISTENT_ASSIGNED_TO" {
		t.Fatalf("code = %s, want NON_EXISTENT_ASSIGNED_TO", code)
	}
}

func TestCreateTicketFallsBackToActiveProviders(t *testing.T) {
	fix := newTicketServiceFixture()

	input := validCreateInput()
	input.AssignedTo = nil

	out, err := fix.service.CreateTicket(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	ticket := fix.tickets.get(out.TicketID)
	if len(ticket.AssignedTo) != 2 {
		t.Fatalf("assigned providers = %v, want the two active ones", ticket.AssignedTo)
	}
	for _, id := range ticket.AssignedTo {
		if id == "isp-idle" {
			t.Fatal("inactive provider must not be assigned")
		}
	}
}

func TestCreateTicketValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TicketCreateInput)
	}{
		{"missing dda", func(in *TicketCreateInput) { in.DDAID = "" }},
		{"missing reporter", func(in *TicketCreateInput) { in.CreatedBy = "" }},
		{"no values", func(in *TicketCreateInput) { in.FQDN = nil; in.IPv4 = nil; in.IPv6 = nil }},
		{"description too long", func(in *TicketCreateInput) { in.Description = strings.Repeat("x", 256) }},
		{"over genre cap", func(in *TicketCreateInput) {
			in.FQDN = []string{"a.example.com", "b.example.com", "c.example.com", "d.example.com"}
		}},
		{"bad fqdn", func(in *TicketCreateInput) { in.FQDN = []string{"not a domain"} }},
		{"bad ipv4", func(in *TicketCreateInput) { in.IPv4 = []string{"999.0.2.10"} }},
		{"ipv6 in ipv4 slot", func(in *TicketCreateInput) { in.IPv4 = []string{"2001:db8::1"} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fix := newTicketServiceFixture()
			input := validCreateInput()
			tc.mutate(&input)

			_, err := fix.service.CreateTicket(context.Background(), input)
			if code := domainCode(t, err); code != "VALIDATION_FAILED" {
				t.Fatalf("code = %s, want VALIDATION_FAILED", code)
			}
			if fix.forensic.count() != 0 || len(fix.scheduler.scheduled) != 0 {
				t.Fatal("validation failures must leave no side effects")
			}
		})
	}
}

func TestCreateTicketUnwindsOnStorageFailure(t *testing.T) {
	fix := newTicketServiceFixture()
	fix.tickets.failCreate = true

	_, err := fix.service.CreateTicket(context.Background(), validCreateInput())
	if err == nil {
		t.Fatal("expected an error")
	}
	if fix.forensic.count() != 0 {
		t.Fatalf("forensic hashes left behind after unwind: %d", fix.forensic.count())
	}
	if len(fix.scheduler.scheduled) != 0 {
		t.Fatal("no task should have been scheduled")
	}
}

func TestCreateTicketUnwindsOnScheduleFailure(t *testing.T) {
	fix := newTicketServiceFixture()
	fix.scheduler.failAction = ActionCreateRelations

	input := validCreateInput()
	_, err := fix.service.CreateTicket(context.Background(), input)
	if err == nil {
		t.Fatal("expected an error")
	}
	if code := domainCode(t, err); code != "INFRASTRUCTURE_ERROR" {
		t.Fatalf("code = %s, want INFRASTRUCTURE_ERROR", code)
	}
	if len(fix.tickets.tickets) != 0 {
		t.Fatal("ticket record left behind after unwind")
	}
	if fix.forensic.count() != 0 {
		t.Fatal("forensic hashes left behind after unwind")
	}
}

func seedTicket(fix *ticketServiceFixture, createdAt time.Time, tasks []string) *domain.Ticket {
	ticket := &domain.Ticket{
		ID:         "ticket-1",
		DDAID:      "dda-1",
		FQDN:       []string{"pirate.example.com"},
		AssignedTo: []string{"isp-1"},
		Status:     domain.TicketStatusCreated,
		Settings: domain.TicketSettings{
			RevokeTime:      fix.cfg.RevokeTimeSeconds,
			AutocloseTime:   fix.cfg.AutocloseTimeSeconds,
			ReportErrorTime: fix.cfg.ReportErrorTimeSeconds,
		},
		Tasks:     tasks,
		CreatedAt: createdAt,
		CreatedBy: "reporter-1",
	}
	_ = fix.tickets.Create(context.Background(), ticket)
	return ticket
}

func TestRemoveTicketInsideRevokeWindow(t *testing.T) {
	fix := newTicketServiceFixture()
	seedTicket(fix, time.Now(), []string{"task-init", "task-close"})
	_ = fix.forensic.Create(context.Background(), &domain.ForensicHash{ID: "h1", TicketID: "ticket-1"})
	_ = fix.items.CreateBatch(context.Background(), []domain.TicketItem{{TicketID: "ticket-1", ItemID: "i1", ProviderID: "isp-1"}})

	if err := fix.service.RemoveTicket(context.Background(), "ticket-1"); err != nil {
		t.Fatalf("RemoveTicket: %v", err)
	}

	if fix.tickets.get("ticket-1") != nil {
		t.Fatal("ticket record still present")
	}
	if fix.items.count() != 0 {
		t.Fatal("work items still present")
	}
	if fix.forensic.count() != 0 {
		t.Fatal("forensic hashes still present")
	}
	if len(fix.scheduler.cancelled) != 2 {
		t.Fatalf("cancelled tasks = %v, want both outstanding ids", fix.scheduler.cancelled)
	}
	if len(fix.scheduler.calls(ActionRemoveLogs)) != 1 {
		t.Fatal("log cleanup task not scheduled")
	}
}

func TestRemoveTicketAfterRevokeDeadline(t *testing.T) {
	fix := newTicketServiceFixture()
	seedTicket(fix, time.Now().Add(-2*time.Minute), nil)

	err := fix.service.RemoveTicket(context.Background(), "ticket-1")
	if code := domainCode(t, err); code != "REVOKE_TIME_EXCEEDED" {
		t.Fatalf("code = %s, want REVOKE_TIME_EXCEEDED", code)
	}
	if fix.tickets.get("ticket-1") == nil {
		t.Fatal("ticket must remain when removal is rejected")
	}
}

func TestRemoveTicketNotFound(t *testing.T) {
	fix := newTicketServiceFixture()

	err := fix.service.RemoveTicket(context.Background(), "ticket-missing")
	if !apperrors.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestGetTicketReturnsAuditLog(t *testing.T) {
	fix := newTicketServiceFixture()
	seedTicket(fix, time.Now(), nil)
	_ = fix.logs.Create(context.Background(), &domain.TicketLog{ID: "l1", TicketID: "ticket-1", Message: "Initial status set to `CREATED`."})
	_ = fix.logs.Create(context.Background(), &domain.TicketLog{ID: "l2", TicketID: "other", Message: "unrelated"})

	ticket, logs, err := fix.service.GetTicket(context.Background(), "ticket-1")
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if ticket.ID != "ticket-1" {
		t.Fatalf("ticket id = %s", ticket.ID)
	}
	if len(logs) != 1 || logs[0].ID != "l1" {
		t.Fatalf("logs = %+v, want only this ticket's lines", logs)
	}
}
