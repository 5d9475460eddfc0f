package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryScheduler is an in-process Scheduler with the same contract as the
// Redis-backed one: not-before firing, idempotent cancel-by-id. Used when
// Redis is unreachable in development and throughout the test suite. Tasks do
// not survive a restart.
type MemoryScheduler struct {
	registry *Registry
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewMemoryScheduler constructs the scheduler.
func NewMemoryScheduler(registry *Registry, logger *zap.Logger) *MemoryScheduler {
	return &MemoryScheduler{
		registry: registry,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
	}
}

// Schedule runs the handler on its own goroutine once delay elapses.
func (s *MemoryScheduler) Schedule(ctx context.Context, action string, delay time.Duration, payload any) (string, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return "", err
	}

	task := Task{
		ID:      uuid.NewString(),
		Action:  action,
		Payload: raw,
		RunAt:   time.Now().Add(delay),
	}

	s.mu.Lock()
	s.pending[task.ID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.pending, task.ID)
		s.mu.Unlock()
		s.fire(task)
	})
	s.mu.Unlock()

	return task.ID, nil
}

// Cancel stops a pending task; a fired or unknown id is reported as already
// gone, not an error.
func (s *MemoryScheduler) Cancel(ctx context.Context, taskID string) (bool, error) {
	s.mu.Lock()
	timer, ok := s.pending[taskID]
	if ok {
		delete(s.pending, taskID)
	}
	s.mu.Unlock()

	if ok {
		timer.Stop()
	}
	return true, nil
}

// PendingCount reports how many tasks have not yet fired.
func (s *MemoryScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *MemoryScheduler) fire(task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task handler panicked",
				zap.String("task_id", task.ID),
				zap.String("action", task.Action),
				zap.Any("panic", r))
		}
	}()

	handler, ok := s.registry.Lookup(task.Action)
	if !ok {
		s.logger.Error("no handler registered for task",
			zap.String("task_id", task.ID),
			zap.String("action", task.Action))
		return
	}

	if err := handler(context.Background(), task); err != nil {
		s.logger.Error("task handler failed",
			zap.String("task_id", task.ID),
			zap.String("action", task.Action),
			zap.Error(err))
	}
}
