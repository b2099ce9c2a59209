package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"sync"
	"time"
)

// HealthStatus is healthy, degraded or unhealthy, in order of severity.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

func (s HealthStatus) severity() int {
	switch s {
	case HealthStatusUnhealthy:
		return 2
	case HealthStatusDegraded:
		return 1
	default:
		return 0
	}
}

// DefaultCheckTimeout bounds a single check.
const DefaultCheckTimeout = 5 * time.Second

// HealthCheckResult is one component's state.
type HealthCheckResult struct {
	Status    HealthStatus   `json:"status"`
	Message   string         `json:"message,omitempty"`
	Duration  time.Duration  `json:"duration_ns"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// HealthChecker reports a component's state. It should honor ctx.
type HealthChecker func(ctx context.Context) HealthCheckResult

// OverallHealth is the worst status across all checks plus each result.
type OverallHealth struct {
	Status    HealthStatus                 `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Checks    map[string]HealthCheckResult `json:"checks"`
}

func (h OverallHealth) ToJSON() ([]byte, error) {
	return json.Marshal(h)
}

// HealthRegistry runs named checks for the health command, the MCP
// cli.health tool and the sync daemon's /readyz endpoint.
type HealthRegistry struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	timeout  time.Duration
}

func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{checkers: map[string]HealthChecker{}, timeout: DefaultCheckTimeout}
}

// Register adds or replaces the check called name.
func (r *HealthRegistry) Register(name string, checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// GetOverallHealth runs every check concurrently, each under the registry
// timeout. A panicking check counts as unhealthy.
func (r *HealthRegistry) GetOverallHealth(ctx context.Context) OverallHealth {
	r.mu.RLock()
	checkers := maps.Clone(r.checkers)
	timeout := r.timeout
	r.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		overall = OverallHealth{Status: HealthStatusHealthy, Checks: make(map[string]HealthCheckResult, len(checkers))}
	)
	for name, check := range checkers {
		wg.Go(func() {
			result := runCheck(ctx, check, timeout)
			mu.Lock()
			defer mu.Unlock()
			overall.Checks[name] = result
			if result.Status.severity() > overall.Status.severity() {
				overall.Status = result.Status
			}
		})
	}
	wg.Wait()
	overall.Timestamp = time.Now()
	return overall
}

func runCheck(ctx context.Context, check HealthChecker, timeout time.Duration) (result HealthCheckResult) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			result = HealthCheckResult{Status: HealthStatusUnhealthy, Message: fmt.Sprintf("check panicked: %v", p)}
		}
		result.Duration = time.Since(start)
		result.Timestamp = time.Now()
	}()
	return check(ctx)
}

// Handler serves GetOverallHealth as JSON, answering 503 when unhealthy.
func (r *HealthRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		health := r.GetOverallHealth(req.Context())
		body, err := health.ToJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write(body)
	})
}

// PingChecker reports failStatus when ping errors. Optional components such
// as the event broker use degraded.
func PingChecker(component string, ping func(ctx context.Context) error, failStatus HealthStatus) HealthChecker {
	return func(ctx context.Context) HealthCheckResult {
		if err := ping(ctx); err != nil {
			return HealthCheckResult{Status: failStatus, Message: component + " unreachable: " + err.Error()}
		}
		return HealthCheckResult{Status: HealthStatusHealthy, Message: component + " reachable"}
	}
}

// FailureThresholdChecker is degraded after one consecutive failure and
// unhealthy from max on. A max of zero never reports unhealthy.
func FailureThresholdChecker(failures func() int, max int) HealthChecker {
	return func(context.Context) HealthCheckResult {
		n := failures()
		result := HealthCheckResult{
			Status:  HealthStatusHealthy,
			Details: map[string]any{"consecutive_failures": n, "max": max},
		}
		switch {
		case max > 0 && n >= max:
			result.Status, result.Message = HealthStatusUnhealthy, "persistent failures"
		case n > 0:
			result.Status, result.Message = HealthStatusDegraded, "recent failures"
		}
		return result
	}
}
