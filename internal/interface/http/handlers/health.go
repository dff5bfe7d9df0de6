package handlers

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthChecker produces the body of GET /health.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc is one probe; a non-nil error marks it unhealthy.
type HealthCheckFunc func(ctx context.Context) error

type HealthStatus struct {
	Healthy   bool                   `json:"healthy"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// CompositeHealthChecker runs its named probes concurrently, each under
// its own deadline.
type CompositeHealthChecker struct {
	started time.Time
	version string

	mu      sync.RWMutex
	checks  map[string]HealthCheckFunc
	timeout time.Duration
}

// NewCompositeHealthChecker gives every probe five seconds.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		started: time.Now(),
		version: version,
		checks:  make(map[string]HealthCheckFunc),
		timeout: 5 * time.Second,
	}
}

func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	c.timeout = timeout
	c.mu.Unlock()
}

// AddCheck registers a probe, replacing any probe of the same name.
func (c *CompositeHealthChecker) AddCheck(name string, check HealthCheckFunc) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	probes := make([]HealthCheckFunc, len(names))
	for i, name := range names {
		probes[i] = c.checks[name]
	}
	timeout := c.timeout
	c.mu.RUnlock()

	results := make([]CheckResult, len(probes))
	var g errgroup.Group
	for i, probe := range probes {
		g.Go(func() error {
			results[i] = runProbe(ctx, probe, timeout)
			return nil
		})
	}
	_ = g.Wait()

	status := HealthStatus{
		Healthy:   true,
		Message:   "All checks passed",
		Checks:    make(map[string]CheckResult, len(names)),
		Uptime:    time.Since(c.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}
	var failed []string
	for i, name := range names {
		status.Checks[name] = results[i]
		if !results[i].Healthy {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		status.Healthy = false
		status.Message = "Some checks failed: " + strings.Join(failed, ", ")
	}
	return status
}

func runProbe(ctx context.Context, probe HealthCheckFunc, timeout time.Duration) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := probe(ctx)
	r := CheckResult{Healthy: err == nil, Message: "OK", Duration: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		r.Message = err.Error()
	}
	return r
}

// Pinger is implemented by the postgres connection and the redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewPingCheck(p Pinger) HealthCheckFunc { return p.Ping }

// NewLoadCheck probes storage by loading the snapshot.
func NewLoadCheck(load func(ctx context.Context) error) HealthCheckFunc {
	return HealthCheckFunc(load)
}
