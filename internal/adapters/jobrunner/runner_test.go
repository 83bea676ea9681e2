package jobrunner

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

type runnerFixture struct {
	repo   *mocks.MockJobRepository
	queue  *mocks.MockQueueBackend
	work   *mocks.MockUnitOfWork
	runner *Runner
}

func newRunnerFixture(t *testing.T, ctrl *gomock.Controller) *runnerFixture {
	t.Helper()

	f := &runnerFixture{
		repo:  mocks.NewMockJobRepository(ctrl),
		queue: mocks.NewMockQueueBackend(ctrl),
		work:  mocks.NewMockUnitOfWork(ctrl),
	}

	var err error
	f.runner, err = NewRunner(RunnerOptions{
		Repo:  f.repo,
		Queue: f.queue,
		Work:  f.work,
		RetryPolicy: domainjob.RetryPolicy{
			Base:        5 * time.Second,
			Cap:         time.Minute,
			MaxAttempts: 3,
		},
		Workers:     1,
		DequeueWait: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	return f
}

func processingJob(id string, kind model.JobKind, attempt int) *model.VerificationJob {
	return &model.VerificationJob{
		ID:          id,
		Kind:        kind,
		Status:      model.JobStatusProcessing,
		ContentHash: "0xabc123",
		ManifestURI: "ipfs://QmManifest",
		Attempt:     attempt,
		MaxAttempts: 3,
	}
}

func envelopeFor(job *model.VerificationJob) *core.JobEnvelope {
	return &core.JobEnvelope{ID: "env-" + job.ID, JobID: job.ID, Kind: job.Kind, Attempt: job.Attempt}
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	queue := mocks.NewMockQueueBackend(ctrl)
	work := mocks.NewMockUnitOfWork(ctrl)

	_, err := NewRunner(RunnerOptions{Queue: queue, Work: work})
	assert.ErrorContains(t, err, "JobRepository is required")

	_, err = NewRunner(RunnerOptions{Repo: repo, Work: work})
	assert.ErrorContains(t, err, "QueueBackend is required")

	_, err = NewRunner(RunnerOptions{Repo: repo, Queue: queue})
	assert.ErrorContains(t, err, "UnitOfWork is required")
}

func TestRunner_Process_CompletesJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRunnerFixture(t, ctrl)
	job := processingJob("job-1", model.JobKindVerify, 1)

	f.repo.EXPECT().Claim(gomock.Any(), "job-1").Return(job, nil)
	f.work.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req model.EnqueueRequest, _ core.ProgressFunc) ([]byte, error) {
			assert.Equal(t, "0xabc123", req.ContentHash)
			assert.Equal(t, "ipfs://QmManifest", req.ManifestURI)
			return []byte(`{"status":"OK"}`), nil
		})
	f.repo.EXPECT().Complete(gomock.Any(), "job-1", []byte(`{"status":"OK"}`)).Return(true, nil)

	f.runner.process(context.Background(), 0, envelopeFor(job))
}

func TestRunner_Process_ProofKindUsesBuildProof(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRunnerFixture(t, ctrl)
	job := processingJob("job-2", model.JobKindProof, 1)

	f.repo.EXPECT().Claim(gomock.Any(), "job-2").Return(job, nil)
	f.work.EXPECT().BuildProof(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]byte(`{"version":1}`), nil)
	f.repo.EXPECT().Complete(gomock.Any(), "job-2", []byte(`{"version":1}`)).Return(true, nil)

	f.runner.process(context.Background(), 0, envelopeFor(job))
}

func TestRunner_Process_DropsUnclaimableEnvelope(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRunnerFixture(t, ctrl)

	// Duplicate delivery: the record is no longer queued, nothing executes.
	f.repo.EXPECT().Claim(gomock.Any(), "job-3").Return(nil, model.ErrJobNotFound)

	env := &core.JobEnvelope{ID: "env-dup", JobID: "job-3", Kind: model.JobKindVerify, Attempt: 1}
	f.runner.process(context.Background(), 0, env)
}

func TestRunner_Process_ReportsProgress(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRunnerFixture(t, ctrl)
	job := processingJob("job-4", model.JobKindVerify, 1)

	f.repo.EXPECT().Claim(gomock.Any(), "job-4").Return(job, nil)
	f.work.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ model.EnqueueRequest, progress core.ProgressFunc) ([]byte, error) {
			progress(30)
			progress(90)
			return []byte(`{}`), nil
		})
	gomock.InOrder(
		f.repo.EXPECT().SetProgress(gomock.Any(), "job-4", 30).Return(nil),
		f.repo.EXPECT().SetProgress(gomock.Any(), "job-4", 90).Return(nil),
	)
	f.repo.EXPECT().Complete(gomock.Any(), "job-4", gomock.Any()).Return(true, nil)

	f.runner.process(context.Background(), 0, envelopeFor(job))
}

func TestRunner_Process_RetriesWithBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRunnerFixture(t, ctrl)
	job := processingJob("job-5", model.JobKindVerify, 1)

	requeued := processingJob("job-5", model.JobKindVerify, 1)
	requeued.Status = model.JobStatusQueued

	f.repo.EXPECT().Claim(gomock.Any(), "job-5").Return(job, nil)
	f.work.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("manifest fetch failed"))
	f.repo.EXPECT().FailOrRequeue(gomock.Any(), "job-5", "manifest fetch failed").Return(requeued, nil)
	f.queue.EXPECT().EnqueueDelayed(gomock.Any(), gomock.Any(), 5*time.Second).DoAndReturn(
		func(_ context.Context, env core.JobEnvelope, _ time.Duration) error {
			assert.Equal(t, "job-5", env.JobID)
			return nil
		})

	f.runner.process(context.Background(), 0, envelopeFor(job))
}

func TestRunner_Process_SecondRetryDoublesDelay(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRunnerFixture(t, ctrl)
	job := processingJob("job-6", model.JobKindVerify, 2)

	requeued := processingJob("job-6", model.JobKindVerify, 2)
	requeued.Status = model.JobStatusQueued

	f.repo.EXPECT().Claim(gomock.Any(), "job-6").Return(job, nil)
	f.work.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("chain lookup timeout"))
	f.repo.EXPECT().FailOrRequeue(gomock.Any(), "job-6", "chain lookup timeout").Return(requeued, nil)
	f.queue.EXPECT().EnqueueDelayed(gomock.Any(), gomock.Any(), 10*time.Second).Return(nil)

	f.runner.process(context.Background(), 0, envelopeFor(job))
}

func TestRunner_Process_ExhaustedAttemptsFailPermanently(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRunnerFixture(t, ctrl)
	job := processingJob("job-7", model.JobKindVerify, 3)

	failed := processingJob("job-7", model.JobKindVerify, 3)
	failed.Status = model.JobStatusFailed

	f.repo.EXPECT().Claim(gomock.Any(), "job-7").Return(job, nil)
	f.work.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("manifest fetch failed"))
	// Terminal state: no requeue push.
	f.repo.EXPECT().FailOrRequeue(gomock.Any(), "job-7", "manifest fetch failed").Return(failed, nil)

	f.runner.process(context.Background(), 0, envelopeFor(job))
}

func TestRunner_Process_RecoversFromPanic(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRunnerFixture(t, ctrl)
	job := processingJob("job-8", model.JobKindVerify, 3)

	failed := processingJob("job-8", model.JobKindVerify, 3)
	failed.Status = model.JobStatusFailed

	f.repo.EXPECT().Claim(gomock.Any(), "job-8").Return(job, nil)
	f.work.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, model.EnqueueRequest, core.ProgressFunc) ([]byte, error) {
			panic("nil manifest")
		})
	f.repo.EXPECT().FailOrRequeue(gomock.Any(), "job-8", "job panicked: nil manifest").Return(failed, nil)

	f.runner.process(context.Background(), 0, envelopeFor(job))
}

func TestRunner_Process_DropsResultWhenNoLongerProcessing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRunnerFixture(t, ctrl)
	job := processingJob("job-9", model.JobKindVerify, 1)

	f.repo.EXPECT().Claim(gomock.Any(), "job-9").Return(job, nil)
	f.work.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte(`{}`), nil)
	// Requeued mid-flight; the conditional update misses and the result is dropped.
	f.repo.EXPECT().Complete(gomock.Any(), "job-9", gomock.Any()).Return(false, nil)

	f.runner.process(context.Background(), 0, envelopeFor(job))
}

func TestRunner_Run_StopsOnContextCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRunnerFixture(t, ctrl)

	f.queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- f.runner.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after context cancellation")
	}
}

func TestRunner_Run_ExecutesDeliveredEnvelope(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newRunnerFixture(t, ctrl)
	job := processingJob("job-10", model.JobKindVerify, 1)

	completed := make(chan struct{})

	f.queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).Return(envelopeFor(job), nil)
	f.queue.EXPECT().Dequeue(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	f.repo.EXPECT().Claim(gomock.Any(), "job-10").Return(job, nil)
	f.work.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return([]byte(`{}`), nil)
	f.repo.EXPECT().Complete(gomock.Any(), "job-10", gomock.Any()).DoAndReturn(
		func(context.Context, string, []byte) (bool, error) {
			close(completed)
			return true, nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.runner.Run(ctx)
	}()

	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not completed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after context cancellation")
	}
}
