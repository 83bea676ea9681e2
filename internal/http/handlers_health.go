package httpx

import "net/http"

// healthHandler reports process liveness. Backend reachability is reported
// through the stats endpoint instead; an unreachable queue is a degraded
// mode, not an unhealthy process.
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
