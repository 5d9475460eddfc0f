package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/compliance-core/internal/observability"
)

const claimBatchSize = 32

// Worker polls the Redis-backed queue and executes due tasks against the
// registry. Handler failures are terminal for the task: they are logged and
// counted, never retried or propagated.
type Worker struct {
	scheduler    *RedisScheduler
	registry     *Registry
	logger       *zap.Logger
	metrics      *observability.Metrics
	pollInterval time.Duration
	concurrency  int

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// NewWorker constructs a worker bound to a scheduler and registry.
func NewWorker(sched *RedisScheduler, registry *Registry, logger *zap.Logger, metrics *observability.Metrics, pollInterval time.Duration, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		scheduler:    sched,
		registry:     registry,
		logger:       logger,
		metrics:      metrics,
		pollInterval: pollInterval,
		concurrency:  concurrency,
		stop:         make(chan struct{}),
	}
}

// Start launches the polling loop.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop halts polling and waits for in-flight handlers to finish.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			tasks, err := w.scheduler.claimDue(ctx, time.Now(), claimBatchSize)
			if err != nil {
				w.logger.Error("claiming due tasks failed", zap.Error(err))
				continue
			}
			for _, task := range tasks {
				sem <- struct{}{}
				w.wg.Add(1)
				go func(task Task) {
					defer w.wg.Done()
					defer func() { <-sem }()
					w.execute(ctx, task)
				}(task)
			}
		}
	}
}

func (w *Worker) execute(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			w.metrics.RecordTask(task.Action, true)
			w.logger.Error("task handler panicked",
				zap.String("task_id", task.ID),
				zap.String("action", task.Action),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	handler, ok := w.registry.Lookup(task.Action)
	if !ok {
		w.metrics.RecordTask(task.Action, true)
		w.logger.Error("no handler registered for task",
			zap.String("task_id", task.ID),
			zap.String("action", task.Action))
		return
	}

	if err := handler(ctx, task); err != nil {
		w.metrics.RecordTask(task.Action, true)
		w.logger.Error("task handler failed",
			zap.String("task_id", task.ID),
			zap.String("action", task.Action),
			zap.Error(err))
		return
	}
	w.metrics.RecordTask(task.Action, false)
}
