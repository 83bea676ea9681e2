package data_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internet-id/verifyq/internal/core"
	"github.com/internet-id/verifyq/internal/data"
	"github.com/internet-id/verifyq/internal/testutil"
)

func testEnvelope(jobID string) core.JobEnvelope {
	return core.JobEnvelope{
		ID:      "env-" + jobID,
		JobID:   jobID,
		Kind:    "verify",
		Attempt: 1,
	}
}

func TestRedisQueue_EnqueueDequeue(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	q := data.NewRedisQueue(client, data.RedisQueueConfig{})
	ctx := context.Background()

	env := testEnvelope("job-1")
	require.NoError(t, q.Enqueue(ctx, env))

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, env, *got)
}

func TestRedisQueue_DequeueTimeoutReturnsNil(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	q := data.NewRedisQueue(client, data.RedisQueueConfig{})

	got, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisQueue_FIFOOrder(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	q := data.NewRedisQueue(client, data.RedisQueueConfig{})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testEnvelope("job-1")))
	require.NoError(t, q.Enqueue(ctx, testEnvelope("job-2")))

	first, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "job-1", first.JobID)

	second, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "job-2", second.JobID)
}

func TestRedisQueue_EnqueueDelayed(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	clock := data.NewFixedTimeProvider(testutil.TestTime())
	q := data.NewRedisQueue(client, data.RedisQueueConfig{TimeProvider: clock})
	ctx := context.Background()

	require.NoError(t, q.EnqueueDelayed(ctx, testEnvelope("job-1"), time.Minute))

	// Not due yet: the envelope stays in the delayed set.
	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, got)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	// Once the ready-time passes, the next dequeue promotes and delivers it.
	clock.AddTime(2 * time.Minute)
	got, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-1", got.JobID)
}

func TestRedisQueue_EnqueueDelayed_NonPositiveDelayIsImmediate(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	q := data.NewRedisQueue(client, data.RedisQueueConfig{})
	ctx := context.Background()

	require.NoError(t, q.EnqueueDelayed(ctx, testEnvelope("job-1"), 0))

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-1", got.JobID)
}

func TestRedisQueue_Depth(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	q := data.NewRedisQueue(client, data.RedisQueueConfig{})
	ctx := context.Background()

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	require.NoError(t, q.Enqueue(ctx, testEnvelope("job-1")))
	require.NoError(t, q.Enqueue(ctx, testEnvelope("job-2")))
	require.NoError(t, q.EnqueueDelayed(ctx, testEnvelope("job-3"), time.Hour))

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, depth)
}

func TestRedisQueue_Health(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	q := data.NewRedisQueue(client, data.RedisQueueConfig{})
	assert.NoError(t, q.Health(context.Background()))
}
