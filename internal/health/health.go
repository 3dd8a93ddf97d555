// Package health provides liveness, readiness and detailed health endpoints.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Status represents the health check response.
type Status struct {
	Status    string           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Version   string           `json:"version,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// Check represents an individual health check.
type Check struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// CheckFunc is a function that performs a health check.
type CheckFunc func(ctx context.Context) (bool, string)

// Registry holds the named checks behind the health endpoints.
type Registry struct {
	version string
	timeout time.Duration
	checks  map[string]CheckFunc
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry. Each endpoint call runs the checks
// under timeout.
func NewRegistry(version string, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Registry{
		version: version,
		timeout: timeout,
		checks:  make(map[string]CheckFunc),
	}
}

// RegisterCheck registers a health check function.
func (r *Registry) RegisterCheck(name string, check CheckFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check
}

// Names returns the registered check names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes every check and aggregates the result.
func (r *Registry) Run(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.mu.RLock()
	checks := make(map[string]CheckFunc, len(r.checks))
	for k, v := range r.checks {
		checks[k] = v
	}
	r.mu.RUnlock()

	status := Status{
		Status:    "ok",
		Checks:    make(map[string]Check, len(checks)),
		Version:   r.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	for name, check := range checks {
		healthy, msg := check(ctx)
		status.Checks[name] = Check{Healthy: healthy, Message: msg}
		if !healthy {
			status.Status = "degraded"
		}
	}
	return status
}

// Mount adds /health, /ready and /live to the router.
func (r *Registry) Mount(router gin.IRoutes) {
	router.GET("/health", r.handleHealth)
	router.GET("/ready", r.handleReady)
	router.GET("/live", handleLive)
}

func (r *Registry) handleHealth(c *gin.Context) {
	status := r.Run(c.Request.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (r *Registry) handleReady(c *gin.Context) {
	if r.Run(c.Request.Context()).Status != "ok" {
		c.String(http.StatusServiceUnavailable, "not ready")
		return
	}
	c.String(http.StatusOK, "ready")
}

func handleLive(c *gin.Context) {
	c.String(http.StatusOK, "alive")
}
