// Package handler provides HTTP handlers for the Atlas API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/atlastransit/atlas/internal/api/models"
	"github.com/atlastransit/atlas/internal/api/response"
	"github.com/atlastransit/atlas/internal/provider/resilience"
)

// Check is a named readiness probe, such as a database ping.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// OpsConfig holds what the ops endpoints report on.
type OpsConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry
	Checks    []Check

	// LiveSessions, when set, is reported by the health endpoint.
	LiveSessions func() int
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
	now func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg, now: time.Now}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	details := map[string]interface{}{
		"version":   h.cfg.Version,
		"buildTime": h.cfg.BuildTime,
	}
	if h.cfg.LiveSessions != nil {
		details["liveSessions"] = h.cfg.LiveSessions()
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(h.now()),
		Details: details,
	})
}

// ReadinessCheck handles GET /v1/ops/ready. It fails when any probe fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.probe(r.Context())

	status := models.HealthStatusOK
	details := map[string]interface{}{}
	for _, s := range subsystems {
		if s.Status != models.HealthStatusOK {
			status = models.HealthStatusFail
			details[s.Name] = *s.Detail
		}
	}

	code := http.StatusOK
	if status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	health := models.Health{Status: status, Time: models.Timestamp(h.now())}
	if len(details) > 0 {
		health.Details = details
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - subsystem probes and the
// circuit state of every upstream provider.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Subsystems: h.probe(r.Context()),
		Providers:  []models.ProviderStatus{},
	}

	for _, s := range status.Subsystems {
		if s.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusFail
		}
	}

	if h.cfg.Registry != nil {
		for _, p := range h.cfg.Registry.Snapshot() {
			ps := providerStatus(p)
			if ps.Status != models.HealthStatusOK && status.Status == models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) probe(ctx context.Context) []models.SubsystemStatus {
	out := make([]models.SubsystemStatus, 0, len(h.cfg.Checks))
	for _, c := range h.cfg.Checks {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Probe(probeCtx)
		cancel()

		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func providerStatus(p *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            p.Name,
		Status:              models.HealthStatusOK,
		CircuitState:        p.CircuitState.String(),
		ConsecutiveFailures: p.Counts.ConsecutiveFailures,
	}
	switch {
	case p.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case p.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if p.LastSuccessAt != nil {
		t := models.Timestamp(*p.LastSuccessAt)
		ps.LastSuccessAt = &t
	}
	if p.LastFailureAt != nil {
		t := models.Timestamp(*p.LastFailureAt)
		ps.LastFailureAt = &t
	}
	if p.LastError != "" {
		msg := p.LastError
		ps.Message = &msg
	}
	return ps
}
