// Package health runs the diagnostics behind `focusgatectl doctor` and the
// demo host's /healthz endpoint: focus backend availability, configuration
// validity and journal writability, aggregated into one status.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Status is the health of one check or of the whole checker.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"

	// StatusUnknown means the check has not run yet.
	StatusUnknown Status = "unknown"
)

// DefaultTimeout bounds a check registered without its own timeout.
const DefaultTimeout = 5 * time.Second

// CheckResult is the outcome of one check run.
type CheckResult struct {
	Status      Status                 `json:"status"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	LastChecked time.Time              `json:"last_checked"`
	Duration    time.Duration          `json:"duration_ns"`
	Error       string                 `json:"error,omitempty"`
}

// Check probes one component.
type Check func(ctx context.Context) CheckResult

// Component is a named check. A failing critical component makes the whole
// checker unhealthy; a failing optional one only degrades it.
type Component struct {
	Name     string
	Critical bool
	Check    Check
	Timeout  time.Duration
}

// Checker runs registered components and remembers their last results.
type Checker struct {
	mu         sync.RWMutex
	components map[string]*Component
	results    map[string]CheckResult
	started    time.Time
	ready      bool
}

// NewChecker creates an empty, not-ready Checker.
func NewChecker() *Checker {
	return &Checker{
		components: make(map[string]*Component),
		results:    make(map[string]CheckResult),
		started:    time.Now(),
	}
}

// Register adds or replaces a component. Its result is unknown until the
// next Check.
func (c *Checker) Register(comp *Component) {
	if comp.Timeout <= 0 {
		comp.Timeout = DefaultTimeout
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[comp.Name] = comp
	c.results[comp.Name] = CheckResult{Status: StatusUnknown}
}

// RegisterFunc registers check under name with the default timeout.
func (c *Checker) RegisterFunc(name string, critical bool, check Check) {
	c.Register(&Component{Name: name, Critical: critical, Check: check})
}

// SetReady sets what the readiness probe reports.
func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *Checker) isReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Check runs every component concurrently and returns the results by name.
func (c *Checker) Check(ctx context.Context) map[string]CheckResult {
	c.mu.RLock()
	comps := make([]*Component, 0, len(c.components))
	for _, comp := range c.components {
		comps = append(comps, comp)
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(comps))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, comp := range comps {
		comp := comp
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, comp.Timeout)
			defer cancel()

			start := time.Now()
			res := runCheck(cctx, comp.Check)
			res.LastChecked = start
			res.Duration = time.Since(start)

			mu.Lock()
			results[comp.Name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	c.mu.Lock()
	for name, res := range results {
		if _, ok := c.components[name]; ok {
			c.results[name] = res
		}
	}
	c.mu.Unlock()
	return results
}

// runCheck runs check with panic recovery, giving up when ctx expires. A
// check that ignores ctx is left to finish on its own goroutine.
func runCheck(ctx context.Context, check Check) CheckResult {
	done := make(chan CheckResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- CheckResult{
					Status:  StatusUnhealthy,
					Message: "check panicked",
					Error:   fmt.Sprint(r),
				}
			}
		}()
		done <- check(ctx)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: "check timed out",
			Error:   ctx.Err().Error(),
		}
	}
}

// OverallStatus folds the last results. An unchecked critical component
// makes the whole status unknown.
func (c *Checker) OverallStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := StatusHealthy
	for name, res := range c.results {
		critical := c.components[name].Critical
		switch {
		case res.Status == StatusUnhealthy && critical:
			return StatusUnhealthy
		case res.Status == StatusUnhealthy, res.Status == StatusDegraded:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		case res.Status == StatusUnknown && critical:
			status = StatusUnknown
		}
	}
	return status
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status     Status                 `json:"status"`
	Ready      bool                   `json:"ready"`
	Uptime     string                 `json:"uptime"`
	Components map[string]CheckResult `json:"components,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// HealthResponse runs every check and reports the folded status, with the
// per-component results when includeComponents is set.
func (c *Checker) HealthResponse(ctx context.Context, includeComponents bool) HealthResponse {
	results := c.Check(ctx)
	resp := HealthResponse{
		Status:    c.OverallStatus(),
		Ready:     c.isReady(),
		Uptime:    time.Since(c.started).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
	if includeComponents {
		resp.Components = results
	}
	return resp
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// HealthHandler serves HealthResponse; ?full=true adds component results.
// Degraded still answers 200.
func (c *Checker) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := c.HealthResponse(r.Context(), r.URL.Query().Get("full") == "true")
		code := http.StatusOK
		if resp.Status != StatusHealthy && resp.Status != StatusDegraded {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	})
}

// ReadinessHandler answers 200 once SetReady(true) was called and the last
// checked status is not unhealthy.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.isReady() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "ready": false})
			return
		}
		status := c.OverallStatus()
		code := http.StatusOK
		if status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{"status": status, "ready": true})
	})
}
