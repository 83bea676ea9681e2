package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/internet-id/verifyq/internal/core"
)

const (
	readyKey   = "verifyq:jobs:ready"
	delayedKey = "verifyq:jobs:delayed"

	// promoteBatchSize bounds how many delayed envelopes are promoted per
	// dequeue cycle.
	promoteBatchSize = 100
)

// RedisQueue implements the QueueBackend port on a Redis list (ready jobs)
// plus a sorted set keyed by ready-time (delayed re-entries). Delivery is
// at-least-once; idempotency is provided by the job repo's atomic Claim.
type RedisQueue struct {
	client       redis.UniversalClient
	timeProvider TimeProvider
}

// RedisQueueConfig holds configuration options for the queue backend.
type RedisQueueConfig struct {
	TimeProvider TimeProvider
}

// NewRedisQueue creates a RedisQueue with the given Redis client and configuration.
func NewRedisQueue(client redis.UniversalClient, cfg RedisQueueConfig) *RedisQueue {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &RedisQueue{
		client:       client,
		timeProvider: tp,
	}
}

// Enqueue pushes an envelope onto the ready list.
func (q *RedisQueue) Enqueue(ctx context.Context, env core.JobEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := q.client.LPush(ctx, readyKey, payload).Err(); err != nil {
		return fmt.Errorf("push envelope: %w", err)
	}
	return nil
}

// EnqueueDelayed schedules an envelope to become ready after the delay.
func (q *RedisQueue) EnqueueDelayed(ctx context.Context, env core.JobEnvelope, delay time.Duration) error {
	if delay <= 0 {
		return q.Enqueue(ctx, env)
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	readyAt := q.timeProvider.Now().Add(delay)
	if err := q.client.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: payload,
	}).Err(); err != nil {
		return fmt.Errorf("schedule delayed envelope: %w", err)
	}
	return nil
}

// Dequeue promotes due delayed envelopes and then blocks up to wait for the
// next ready envelope. Returns (nil, nil) when the wait elapses without work.
func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*core.JobEnvelope, error) {
	if err := q.promoteDue(ctx); err != nil {
		return nil, err
	}

	if wait < time.Second {
		wait = time.Second
	}

	vals, err := q.client.BRPop(ctx, wait, readyKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop envelope: %w", err)
	}
	// BRPOP returns [key, value].
	if len(vals) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length: %d", len(vals))
	}

	var env core.JobEnvelope
	if err := json.Unmarshal([]byte(vals[1]), &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, nil
}

// promoteDue moves delayed envelopes whose ready-time has passed onto the
// ready list. The ZRem guard makes each member's promotion race-free across
// concurrent workers.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := q.timeProvider.Now()
	members, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: promoteBatchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("scan delayed envelopes: %w", err)
	}

	for _, member := range members {
		removed, remErr := q.client.ZRem(ctx, delayedKey, member).Result()
		if remErr != nil {
			return fmt.Errorf("remove delayed envelope: %w", remErr)
		}
		if removed == 0 {
			// another worker promoted it first
			continue
		}
		if pushErr := q.client.LPush(ctx, readyKey, member).Err(); pushErr != nil {
			return fmt.Errorf("promote delayed envelope: %w", pushErr)
		}
	}
	return nil
}

// Depth returns the number of envelopes waiting in the backend, ready plus
// delayed.
func (q *RedisQueue) Depth(ctx context.Context) (int, error) {
	ready, err := q.client.LLen(ctx, readyKey).Result()
	if err != nil {
		return 0, fmt.Errorf("ready depth: %w", err)
	}
	delayed, err := q.client.ZCard(ctx, delayedKey).Result()
	if err != nil {
		return 0, fmt.Errorf("delayed depth: %w", err)
	}
	return int(ready + delayed), nil
}

// Health checks the health of the Redis connection.
func (q *RedisQueue) Health(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

var _ core.QueueBackend = (*RedisQueue)(nil)
