package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/arcoapp/arco-admin/internal/model"
	"github.com/arcoapp/arco-admin/internal/service"
)

// Pinger is a dependency the readiness check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the health checks and the dashboard counters.
type SystemHandler struct {
	responder
	feedback *service.FeedbackService
	checks   map[string]Pinger
	version  string
}

// NewSystemHandler creates a new SystemHandler. checks maps a dependency
// name, such as "database", to its check.
func NewSystemHandler(feedback *service.FeedbackService, checks map[string]Pinger, version string, logger *slog.Logger, dev bool) *SystemHandler {
	return &SystemHandler{
		responder: newResponder(logger, dev),
		feedback:  feedback,
		checks:    checks,
		version:   version,
	}
}

// Healthz is a liveness check. Returns 200 if the process is running.
// GET /healthz
func (h *SystemHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

// Readyz is a readiness check. Returns 200 when every dependency answers,
// or 503 naming the ones that do not. Error text is only shown in
// development mode.
// GET /readyz
func (h *SystemHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(h.checks))

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name].Ping(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "readiness check failed", "check", name, "error", err)
			checks[name] = "error"
			if h.dev {
				checks[name] = "error: " + err.Error()
			}
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// Stats returns the dashboard counters.
// GET /api/admin/stats
func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.feedback.AdminStats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ActionResponse{Success: true, Message: "Stats retrieved", Data: st})
}
