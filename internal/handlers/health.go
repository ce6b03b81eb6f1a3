package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/messageplans/api/internal/platform/httpx"
)

var startTime = time.Now()

const readinessTimeout = 1500 * time.Millisecond

// HealthHandlers serves liveness and readiness probes. The readiness check
// pings the document store when a ping function is supplied.
type HealthHandlers struct {
	ping func(context.Context) error
}

// NewHealthHandlers constructs health handlers; ping may be nil.
func NewHealthHandlers(ping func(context.Context) error) *HealthHandlers {
	return &HealthHandlers{ping: ping}
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz reports dependency readiness.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"reason": err.Error(),
			})
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
