package common

import (
	"context"
	"net/http"
	"time"

	"shoplist-go/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	checks map[string]HealthCheck
	log    logger.Logger
}

func New(checks map[string]HealthCheck, log logger.Logger) *Handlers {
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &Handlers{checks: checks, log: log}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.InternalError("common.health: check failed", err, "check", name)
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}
