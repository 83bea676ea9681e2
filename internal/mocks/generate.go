// Package mocks provides mock implementations for testing the verifyq job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// core ports. The mocks are generated using go:generate directives and provide a
// fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

// Generate mock for JobRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/internet-id/verifyq/internal/core JobRepository

// Generate mock for QueueBackend interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=queue_backend_mock.go github.com/internet-id/verifyq/internal/core QueueBackend

// Generate mock for UnitOfWork interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=unit_of_work_mock.go github.com/internet-id/verifyq/internal/core UnitOfWork
