package scheduler

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisScheduler stores pending tasks in Redis: a sorted set ordered by due
// time plus one hash per task. Cancellation removes both; either may already
// be gone.
type RedisScheduler struct {
	client    *redis.Client
	keyPrefix string
	retention time.Duration
	logger    *zap.Logger
}

// NewRedisScheduler constructs the scheduler.
func NewRedisScheduler(client *redis.Client, keyPrefix string, retention time.Duration, logger *zap.Logger) *RedisScheduler {
	return &RedisScheduler{
		client:    client,
		keyPrefix: keyPrefix,
		retention: retention,
		logger:    logger,
	}
}

func (s *RedisScheduler) dueKey() string {
	return s.keyPrefix + ":due"
}

func (s *RedisScheduler) taskKey(taskID string) string {
	return s.keyPrefix + ":task:" + taskID
}

// Schedule enqueues a task to fire no earlier than delay from now.
func (s *RedisScheduler) Schedule(ctx context.Context, action string, delay time.Duration, payload any) (string, error) {
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

	encoded, err := json.Marshal(task)
	if err != nil {
		return "", err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.taskKey(task.ID), encoded, s.retention)
	pipe.ZAdd(ctx, s.dueKey(), redis.Z{
		Score:  float64(task.RunAt.UnixMilli()),
		Member: task.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}

	s.logger.Info("task scheduled",
		zap.String("task_id", task.ID),
		zap.String("action", action),
		zap.Duration("delay", delay))
	return task.ID, nil
}

// Cancel removes a pending task. A task that already fired or was already
// removed yields true as well.
func (s *RedisScheduler) Cancel(ctx context.Context, taskID string) (bool, error) {
	pipe := s.client.TxPipeline()
	removed := pipe.ZRem(ctx, s.dueKey(), taskID)
	pipe.Del(ctx, s.taskKey(taskID))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if removed.Val() == 0 {
		s.logger.Debug("task already gone", zap.String("task_id", taskID))
	} else {
		s.logger.Info("task cancelled", zap.String("task_id", taskID))
	}
	return true, nil
}

// claimDue pops tasks whose due time has passed. A task is owned by the
// caller only when its ZREM succeeds, so concurrent workers never run the
// same task twice.
func (s *RedisScheduler) claimDue(ctx context.Context, now time.Time, limit int) ([]Task, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.dueKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   formatScore(now),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(ids))
	for _, id := range ids {
		claimed, err := s.client.ZRem(ctx, s.dueKey(), id).Result()
		if err != nil {
			return tasks, err
		}
		if claimed == 0 {
			// another worker got there first
			continue
		}

		encoded, err := s.client.GetDel(ctx, s.taskKey(id)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return tasks, err
		}

		var task Task
		if err := json.Unmarshal([]byte(encoded), &task); err != nil {
			s.logger.Error("undecodable task dropped", zap.String("task_id", id), zap.Error(err))
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func formatScore(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
