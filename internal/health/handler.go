// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/insighta/internal/core"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Ping(ctx context.Context) error
}

// Dependency is a named backend consulted by the readiness probe.
type Dependency struct {
	Name    string
	Checker Checker
}

type Handler struct {
	deps     []Dependency
	version  string
	ready    atomic.Bool
	shutdown atomic.Bool
}

func NewHandler(version string, deps ...Dependency) *Handler {
	h := &Handler{
		deps:    deps,
		version: version,
	}
	h.ready.Store(true)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if h.shutdown.Load() {
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status:  "shutting_down",
			Version: h.version,
		})
		return
	}

	writeStatus(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Version: h.version,
	})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	switch {
	case h.shutdown.Load():
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status:  "shutting_down",
			Version: h.version,
		})
		return
	case !h.ready.Load():
		writeStatus(w, http.StatusServiceUnavailable, StatusResponse{
			Status:  "not_ready",
			Version: h.version,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := h.runChecks(ctx)

	status, code := "ok", http.StatusOK
	for _, check := range checks {
		if !check.Healthy {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}

	writeStatus(w, code, ReadinessResponse{
		Status:  status,
		Version: h.version,
		Checks:  checks,
	})
}

func (h *Handler) runChecks(ctx context.Context) []Check {
	var wg sync.WaitGroup
	checks := make([]Check, len(h.deps))

	for i, dep := range h.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checks[i] = runCheck(ctx, dep)
		}()
	}

	wg.Wait()
	return checks
}

func runCheck(ctx context.Context, dep Dependency) Check {
	check := Check{Name: dep.Name, Healthy: true}

	if dep.Checker == nil {
		check.Healthy = false
		check.Message = "not configured"
		return check
	}

	start := time.Now()
	err := dep.Checker.Ping(ctx)
	check.Latency = time.Since(start).String()

	if err != nil {
		check.Healthy = false
		check.Message = "ping failed"
	}

	return check
}

func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

func writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	core.JSON(w, status, data)
}

type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type ReadinessResponse struct {
	Status  string  `json:"status"`
	Version string  `json:"version,omitempty"`
	Checks  []Check `json:"checks"`
}

type Check struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}
