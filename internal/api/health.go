// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package api

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// healthStatus is the /health payload.
type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health. It probes every registered dependency and
// returns 503 when any fails.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := healthStatus{Status: "ok"}
	if len(h.checks) > 0 {
		status.Checks = make(map[string]string, len(h.checks))
	}
	httpStatus := http.StatusOK
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			status.Checks[c.Name] = err.Error()
			status.Status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			h.logger.Warn().Str("check", c.Name).Err(err).Msg("health check failed")
			continue
		}
		status.Checks[c.Name] = "ok"
	}

	respond(w, r, httpStatus, status)
}
