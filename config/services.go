package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker runs the job worker pool.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeReaper runs the stale-job reaper.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeWorker, ServiceModeReaper}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, worker, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains job worker pool configuration.
type WorkerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"WORKER_CONCURRENCY" envDefault:"3"`

	// DequeueWait is the blocking pop timeout per dequeue attempt.
	DequeueWait time.Duration `env:"WORKER_DEQUEUE_WAIT" envDefault:"5s"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.DequeueWait < time.Second {
		w.DequeueWait = time.Second
	}
}

// QueueConfig contains retry and health-probe configuration.
type QueueConfig struct {
	// RetryBase is the backoff delay after the first failed attempt.
	RetryBase time.Duration `env:"QUEUE_RETRY_BASE" envDefault:"5s"`

	// RetryCap is the maximum backoff delay.
	RetryCap time.Duration `env:"QUEUE_RETRY_CAP" envDefault:"5m"`

	// MaxAttempts is the number of attempts before a job fails permanently.
	MaxAttempts int `env:"QUEUE_MAX_ATTEMPTS" envDefault:"3"`

	// HealthTTL is the cache window for queue backend health probes.
	HealthTTL time.Duration `env:"QUEUE_HEALTH_TTL" envDefault:"5s"`
}

// Sanitize applies guardrails to queue configuration values.
func (q *QueueConfig) Sanitize() {
	if q.RetryBase < time.Second {
		q.RetryBase = time.Second
	}
	if q.RetryCap < q.RetryBase {
		q.RetryCap = q.RetryBase
	}
	if q.MaxAttempts < 1 {
		q.MaxAttempts = 1
	}
	if q.HealthTTL < time.Second {
		q.HealthTTL = time.Second
	}
}

// ReaperConfig contains stale-job reaper configuration.
type ReaperConfig struct {
	// Interval is the reaper sweep interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`

	// StaleAge is how long a processing job may go without an update before
	// it counts as stranded.
	StaleAge time.Duration `env:"REAPER_STALE_AGE" envDefault:"10m"`

	// BatchSize is the maximum number of jobs recovered per sweep.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"50"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 10*time.Second {
		r.Interval = 10 * time.Second
	}
	if r.StaleAge < time.Minute {
		r.StaleAge = time.Minute
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 1000 {
		r.BatchSize = 1000
	}
}

// VerifierConfig contains manifest fetch and chain lookup configuration.
type VerifierConfig struct {
	// ChainBaseURL is the base URL of the registry lookup service.
	ChainBaseURL string `env:"CHAIN_BASE_URL" envDefault:"http://localhost:8545"`

	// IPFSGateway is the gateway used to resolve ipfs:// manifest URIs.
	IPFSGateway string `env:"IPFS_GATEWAY" envDefault:"https://ipfs.io"`

	// ManifestMaxBytes caps the size of a fetched manifest document.
	ManifestMaxBytes int64 `env:"MANIFEST_MAX_BYTES" envDefault:"1048576"`

	// RequestTimeout bounds each outbound manifest or chain request.
	RequestTimeout time.Duration `env:"VERIFIER_REQUEST_TIMEOUT" envDefault:"15s"`
}

// Sanitize applies guardrails to verifier configuration values.
func (v *VerifierConfig) Sanitize() {
	if v.ManifestMaxBytes < 1024 {
		v.ManifestMaxBytes = 1024
	}
	if v.RequestTimeout < time.Second {
		v.RequestTimeout = time.Second
	}
}
