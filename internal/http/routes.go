package httpx

import (
	"log/slog"
	"net/http"

	"github.com/internet-id/verifyq/internal/service"
)

// RouterServices holds the services needed by the HTTP router.
type RouterServices struct {
	Jobs    *service.QueueService
	Metrics http.Handler // Optional: Prometheus exposition handler
	Logger  *slog.Logger // Optional: request logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	registerJobRoutes(mux, jobHandlers)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	if services.Metrics != nil {
		mux.Handle("GET /metrics", services.Metrics)
	}

	return RequestLogger(services.Logger)(mux)
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("POST /api/verification-jobs/verify", h.EnqueueVerify)
	mux.HandleFunc("POST /api/verification-jobs/proof", h.EnqueueProof)
	mux.HandleFunc("GET /api/verification-jobs", h.List)
	mux.HandleFunc("GET /api/verification-jobs/stats", h.Stats)
	mux.HandleFunc("GET /api/verification-jobs/{id}", h.GetStatus)
}
