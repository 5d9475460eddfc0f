// Package scheduler provides the durable delayed-task service the ticket
// lifecycle runs on. Delays are relative and "not before" only: a task may
// fire late, and a task already picked up by a worker when cancellation is
// requested still runs to completion. Handlers must therefore be idempotent.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Task is one pending delayed invocation.
type Task struct {
	ID      string          `json:"id"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
	RunAt   time.Time       `json:"run_at"`
}

// DecodePayload unmarshals the task payload into out.
func (t Task) DecodePayload(out any) error {
	if len(t.Payload) == 0 {
		return fmt.Errorf("task %s has no payload", t.ID)
	}
	return json.Unmarshal(t.Payload, out)
}

// HandlerFunc executes one fired task.
type HandlerFunc func(ctx context.Context, task Task) error

// Scheduler creates and cancels delayed tasks by id.
type Scheduler interface {
	// Schedule enqueues action to run no earlier than delay from now and
	// returns the task id.
	Schedule(ctx context.Context, action string, delay time.Duration, payload any) (string, error)
	// Cancel removes a pending task. Cancelling a task that already fired or
	// was already removed is not an error; the result is true in either case.
	Cancel(ctx context.Context, taskID string) (bool, error)
}

// Registry maps action names to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to an action name, replacing any previous binding.
func (r *Registry) Register(action string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[action] = handler
}

// Lookup returns the handler for an action.
func (r *Registry) Lookup(action string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[action]
	return handler, ok
}

func encodePayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage(`{}`), nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode task payload: %w", err)
	}
	return raw, nil
}
