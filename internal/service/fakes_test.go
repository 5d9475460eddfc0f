package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/compliance-core/internal/domain"
)

// fakeTicketRepo is an in-memory TicketRepository.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket

	failCreate      bool
	failStatusTimes int
	failTaskList    bool

	statusUpdates []domain.TicketStatus
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("insert failed")
	}
	now := time.Now()
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketRepo) Exists(ctx context.Context, ticketID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tickets[ticketID]
	return ok, nil
}

func (f *fakeTicketRepo) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStatusTimes > 0 {
		f.failStatusTimes--
		return errors.New("update failed")
	}
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Status = status
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

func (f *fakeTicketRepo) UpdateTaskList(ctx context.Context, ticketID string, taskIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTaskList {
		return errors.New("update failed")
	}
	ticket, ok := f.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Tasks = append([]string{}, taskIDs...)
	return nil
}

func (f *fakeTicketRepo) Remove(ctx context.Context, ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tickets[ticketID]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.tickets, ticketID)
	return nil
}

func (f *fakeTicketRepo) get(ticketID string) *domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickets[ticketID]
}

// fakeItemRepo is an in-memory TicketItemRepository.
type fakeItemRepo struct {
	mu     sync.Mutex
	items  []domain.TicketItem
	active map[domain.Genre][]string

	failBatch bool
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{active: map[domain.Genre][]string{}}
}

func (f *fakeItemRepo) CreateBatch(ctx context.Context, items []domain.TicketItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBatch {
		return errors.New("batch insert failed")
	}
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeItemRepo) ActiveValuesByGenre(ctx context.Context) (map[domain.Genre][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[domain.Genre][]string{}
	for genre, values := range f.active {
		out[genre] = append([]string{}, values...)
	}
	return out, nil
}

func (f *fakeItemRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.TicketItem{}
	for _, item := range f.items {
		if item.TicketID == ticketID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItemRepo) RemoveByTicket(ctx context.Context, ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	for _, item := range f.items {
		if item.TicketID != ticketID {
			kept = append(kept, item)
		}
	}
	f.items = kept
	return nil
}

func (f *fakeItemRepo) SetErrorFlag(ctx context.Context, ticketID, value string, flag bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	updated := false
	for i := range f.items {
		if f.items[i].TicketID == ticketID && f.items[i].Value == value {
			f.items[i].IsError = flag
			updated = true
		}
	}
	if !updated {
		return pgx.ErrNoRows
	}
	return nil
}

func (f *fakeItemRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// fakeWhitelistRepo is an in-memory WhitelistRepository.
type fakeWhitelistRepo struct {
	entries []domain.WhitelistEntry
}

func (f *fakeWhitelistRepo) GetActive(ctx context.Context) ([]domain.WhitelistEntry, error) {
	return f.entries, nil
}

// fakeForensicRepo is an in-memory ForensicRepository.
type fakeForensicRepo struct {
	mu     sync.Mutex
	hashes []domain.ForensicHash

	failCreate bool
}

func (f *fakeForensicRepo) Create(ctx context.Context, hash *domain.ForensicHash) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("insert failed")
	}
	hash.CreatedAt = time.Now()
	f.hashes = append(f.hashes, *hash)
	return nil
}

func (f *fakeForensicRepo) GetByTicket(ctx context.Context, ticketID string) ([]domain.ForensicHash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.ForensicHash{}
	for _, hash := range f.hashes {
		if hash.TicketID == ticketID {
			out = append(out, hash)
		}
	}
	return out, nil
}

func (f *fakeForensicRepo) RemoveByTicket(ctx context.Context, ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.hashes[:0]
	for _, hash := range f.hashes {
		if hash.TicketID != ticketID {
			kept = append(kept, hash)
		}
	}
	f.hashes = kept
	return nil
}

func (f *fakeForensicRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hashes)
}

// fakeProviderRepo is an in-memory ProviderRepository.
type fakeProviderRepo struct {
	providers []domain.Provider
}

func (f *fakeProviderRepo) GetActive(ctx context.Context) ([]domain.Provider, error) {
	active := []domain.Provider{}
	for _, provider := range f.providers {
		if provider.IsActive {
			active = append(active, provider)
		}
	}
	return active, nil
}

func (f *fakeProviderRepo) ExistsByAccountID(ctx context.Context, accountID string) (bool, error) {
	for _, provider := range f.providers {
		if provider.AccountID == accountID && provider.IsActive {
			return true, nil
		}
	}
	return false, nil
}

// fakeDDARepo is an in-memory DDARepository.
type fakeDDARepo struct {
	assignments map[string]string // dda id -> account id
}

func (f *fakeDDARepo) IsAssignedToAccount(ctx context.Context, ddaID, accountID string) (bool, error) {
	return f.assignments[ddaID] == accountID, nil
}

// fakeLogRepo is an in-memory TicketLogRepository.
type fakeLogRepo struct {
	mu      sync.Mutex
	entries []domain.TicketLog
}

func (f *fakeLogRepo) Create(ctx context.Context, entry *domain.TicketLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLogRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.TicketLog{}
	for _, entry := range f.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeLogRepo) RemoveByTicket(ctx context.Context, ticketID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.entries[:0]
	for _, entry := range f.entries {
		if entry.TicketID != ticketID {
			kept = append(kept, entry)
		}
	}
	f.entries = kept
	return nil
}

// fakeScheduler records schedule and cancel calls without firing anything.
type fakeScheduler struct {
	mu        sync.Mutex
	nextID    int
	scheduled []scheduledCall
	cancelled []string

	failAction string
}

type scheduledCall struct {
	id     string
	action string
	delay  time.Duration
}

func (f *fakeScheduler) Schedule(ctx context.Context, action string, delay time.Duration, payload any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAction != "" && f.failAction == action {
		return "", errors.New("enqueue failed")
	}
	f.nextID++
	id := fmt.Sprintf("task-%d", f.nextID)
	f.scheduled = append(f.scheduled, scheduledCall{id: id, action: action, delay: delay})
	return id, nil
}

func (f *fakeScheduler) Cancel(ctx context.Context, taskID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, taskID)
	return true, nil
}

func (f *fakeScheduler) calls(action string) []scheduledCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []scheduledCall{}
	for _, call := range f.scheduled {
		if call.action == action {
			out = append(out, call)
		}
	}
	return out
}

func (f *fakeScheduler) liveTaskIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cancelled := map[string]struct{}{}
	for _, id := range f.cancelled {
		cancelled[id] = struct{}{}
	}
	live := []string{}
	for _, call := range f.scheduled {
		if _, ok := cancelled[call.id]; !ok {
			live = append(live, call.id)
		}
	}
	return live
}
