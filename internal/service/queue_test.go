package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/internet-id/verifyq/internal/core"
	domainjob "github.com/internet-id/verifyq/internal/domain/job"
	"github.com/internet-id/verifyq/internal/domain/model"
	"github.com/internet-id/verifyq/internal/mocks"
)

func validRequest() model.EnqueueRequest {
	return model.EnqueueRequest{
		ContentHash: "0xabc123",
		ManifestURI: "ipfs://QmManifest",
	}
}

func queuedJob(id string, kind model.JobKind) *model.VerificationJob {
	return &model.VerificationJob{
		ID:          id,
		Kind:        kind,
		Status:      model.JobStatusQueued,
		ContentHash: "0xabc123",
		ManifestURI: "ipfs://QmManifest",
		MaxAttempts: 3,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func startedService(t *testing.T, opts QueueServiceOptions) *QueueService {
	t.Helper()
	svc, err := NewQueueService(opts)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	return svc
}

func TestNewQueueService_RequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, err := NewQueueService(QueueServiceOptions{Work: mocks.NewMockUnitOfWork(ctrl)})
	assert.ErrorContains(t, err, "JobRepository is required")

	_, err = NewQueueService(QueueServiceOptions{Repo: mocks.NewMockJobRepository(ctrl)})
	assert.ErrorContains(t, err, "UnitOfWork is required")
}

func TestQueueService_EnqueueVerify_Async(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	work := mocks.NewMockUnitOfWork(ctrl)
	queue := mocks.NewMockQueueBackend(ctrl)

	job := queuedJob("job-1", model.JobKindVerify)

	queue.EXPECT().Health(gomock.Any()).Return(nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params core.CreateJobParams) (*model.VerificationJob, error) {
			assert.Equal(t, model.JobKindVerify, params.Kind)
			assert.Equal(t, 3, params.MaxAttempts)
			return job, nil
		})
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, env core.JobEnvelope) error {
			assert.Equal(t, "job-1", env.JobID)
			assert.Equal(t, model.JobKindVerify, env.Kind)
			assert.NotEmpty(t, env.ID)
			return nil
		})
	repo.EXPECT().SetExternalJobID(gomock.Any(), "job-1", gomock.Any()).Return(nil)

	svc := startedService(t, QueueServiceOptions{Repo: repo, Work: work, Queue: queue})

	res, err := svc.EnqueueVerify(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionModeAsync, res.Mode)
	assert.Equal(t, "job-1", res.JobID)
	assert.Equal(t, model.JobStatusQueued, res.Status)
	assert.Nil(t, res.Result)
}

func TestQueueService_EnqueueVerify_SyncWithoutBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	work := mocks.NewMockUnitOfWork(ctrl)

	work.EXPECT().Verify(gomock.Any(), validRequest(), gomock.Any()).
		Return([]byte(`{"status":"OK"}`), nil)

	svc := startedService(t, QueueServiceOptions{Repo: repo, Work: work})

	res, err := svc.EnqueueVerify(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionModeSync, res.Mode)
	assert.Empty(t, res.JobID)
	assert.JSONEq(t, `{"status":"OK"}`, string(res.Result))
}

func TestQueueService_EnqueueProof_SyncFallbackOnUnhealthyBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	work := mocks.NewMockUnitOfWork(ctrl)
	queue := mocks.NewMockQueueBackend(ctrl)

	// Probe once at Start; the cached result covers the enqueue call.
	queue.EXPECT().Health(gomock.Any()).Return(errors.New("connection refused")).Times(1)
	work.EXPECT().BuildProof(gomock.Any(), validRequest(), gomock.Any()).
		Return([]byte(`{"version":1}`), nil)

	svc := startedService(t, QueueServiceOptions{
		Repo:      repo,
		Work:      work,
		Queue:     queue,
		HealthTTL: time.Minute,
	})

	res, err := svc.EnqueueProof(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionModeSync, res.Mode)
	assert.JSONEq(t, `{"version":1}`, string(res.Result))
}

func TestQueueService_Enqueue_PushFailureDropsOrphanAndRunsInline(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	work := mocks.NewMockUnitOfWork(ctrl)
	queue := mocks.NewMockQueueBackend(ctrl)

	job := queuedJob("job-2", model.JobKindVerify)

	queue.EXPECT().Health(gomock.Any()).Return(nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(errors.New("broken pipe"))
	repo.EXPECT().Delete(gomock.Any(), "job-2").Return(nil)
	work.EXPECT().Verify(gomock.Any(), validRequest(), gomock.Any()).
		Return([]byte(`{"status":"OK"}`), nil)

	svc := startedService(t, QueueServiceOptions{
		Repo:      repo,
		Work:      work,
		Queue:     queue,
		HealthTTL: time.Minute,
	})

	res, err := svc.EnqueueVerify(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionModeSync, res.Mode)
	assert.Empty(t, res.JobID)
}

func TestQueueService_Enqueue_InlineErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	work := mocks.NewMockUnitOfWork(ctrl)

	work.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("manifest fetch failed"))

	svc := startedService(t, QueueServiceOptions{Repo: repo, Work: work})

	_, err := svc.EnqueueVerify(context.Background(), validRequest())
	assert.ErrorContains(t, err, "manifest fetch failed")
}

func TestQueueService_Enqueue_RejectsInvalidRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := startedService(t, QueueServiceOptions{
		Repo: mocks.NewMockJobRepository(ctrl),
		Work: mocks.NewMockUnitOfWork(ctrl),
	})

	_, err := svc.EnqueueVerify(context.Background(), model.EnqueueRequest{ManifestURI: "ipfs://x"})
	assert.ErrorContains(t, err, "content hash is required")

	_, err = svc.EnqueueVerify(context.Background(), model.EnqueueRequest{ContentHash: "0xabc"})
	assert.ErrorContains(t, err, "manifest uri is required")
}

func TestQueueService_Enqueue_RequiresStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, err := NewQueueService(QueueServiceOptions{
		Repo: mocks.NewMockJobRepository(ctrl),
		Work: mocks.NewMockUnitOfWork(ctrl),
	})
	require.NoError(t, err)

	_, err = svc.EnqueueVerify(context.Background(), validRequest())
	assert.ErrorContains(t, err, "not started")
}

func TestQueueService_StartTwiceFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := startedService(t, QueueServiceOptions{
		Repo: mocks.NewMockJobRepository(ctrl),
		Work: mocks.NewMockUnitOfWork(ctrl),
	})

	assert.ErrorContains(t, svc.Start(context.Background()), "already started")
}

func TestQueueService_HealthProbeCachedWithinTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	work := mocks.NewMockUnitOfWork(ctrl)
	queue := mocks.NewMockQueueBackend(ctrl)

	// One probe at Start serves all subsequent enqueues within the TTL.
	queue.EXPECT().Health(gomock.Any()).Return(nil).Times(1)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(queuedJob("job-3", model.JobKindVerify), nil).Times(2)
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	repo.EXPECT().SetExternalJobID(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	svc := startedService(t, QueueServiceOptions{
		Repo:      repo,
		Work:      work,
		Queue:     queue,
		HealthTTL: time.Hour,
	})

	for i := 0; i < 2; i++ {
		_, err := svc.EnqueueVerify(context.Background(), validRequest())
		require.NoError(t, err)
	}
}

func TestQueueService_GetJobStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	job := queuedJob("job-4", model.JobKindProof)
	repo.EXPECT().GetByID(gomock.Any(), "job-4").Return(job, nil)
	repo.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, model.ErrJobNotFound)

	svc := startedService(t, QueueServiceOptions{
		Repo: repo,
		Work: mocks.NewMockUnitOfWork(ctrl),
	})

	got, err := svc.GetJobStatus(context.Background(), "job-4")
	require.NoError(t, err)
	assert.Equal(t, job, got)

	_, err = svc.GetJobStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestQueueService_GetStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	work := mocks.NewMockUnitOfWork(ctrl)
	queue := mocks.NewMockQueueBackend(ctrl)

	queue.EXPECT().Health(gomock.Any()).Return(nil)
	repo.EXPECT().Stats(gomock.Any()).Return(&model.QueueStats{Queued: 2, Completed: 5}, nil)
	queue.EXPECT().Depth(gomock.Any()).Return(7, nil)

	svc := startedService(t, QueueServiceOptions{
		Repo:      repo,
		Work:      work,
		Queue:     queue,
		HealthTTL: time.Minute,
	})

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Queued)
	assert.Equal(t, 5, stats.Completed)
	require.NotNil(t, stats.QueueDepth)
	assert.Equal(t, 7, *stats.QueueDepth)
}

func TestQueueService_GetStats_DepthErrorTolerated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	queue := mocks.NewMockQueueBackend(ctrl)

	queue.EXPECT().Health(gomock.Any()).Return(nil)
	repo.EXPECT().Stats(gomock.Any()).Return(&model.QueueStats{Queued: 1}, nil)
	queue.EXPECT().Depth(gomock.Any()).Return(0, errors.New("timeout"))

	svc := startedService(t, QueueServiceOptions{
		Repo:      repo,
		Work:      mocks.NewMockUnitOfWork(ctrl),
		Queue:     queue,
		HealthTTL: time.Minute,
	})

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stats.QueueDepth)
}

func TestQueueService_RetryPolicySanitized(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, err := NewQueueService(QueueServiceOptions{
		Repo: mocks.NewMockJobRepository(ctrl),
		Work: mocks.NewMockUnitOfWork(ctrl),
	})
	require.NoError(t, err)

	assert.Equal(t, domainjob.DefaultRetryPolicy(), svc.RetryPolicy())
}
