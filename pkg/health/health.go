// Package health implements Kubernetes style liveness and readiness probes.
//
// Checks register before Start and are then evaluated on a shared interval.
// A check flips to unhealthy only after three consecutive failures and
// recovers on the first success, so one slow round trip does not take the
// service out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. A nil result means healthy.
type CheckFunc func(ctx context.Context) error

const failureThreshold = 3

// check is one probe target plus its failure streak. The streak fields are
// guarded by the owning probe's mutex.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	fails   int
	healthy bool
	lastErr error
}

// observe folds one probe result into the streak state. Callers hold the
// probe mutex.
func (c *check) observe(err error) {
	c.lastErr = err
	if err != nil {
		c.fails++
		if c.fails >= failureThreshold {
			c.healthy = false
		}
		return
	}
	c.fails = 0
	c.healthy = true
}

// probe is an ordered set of checks sharing one scheduler goroutine.
type probe struct {
	mu     sync.Mutex
	checks []*check
}

func (p *probe) add(name string, timeout time.Duration, fn CheckFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks = append(p.checks, &check{name: name, timeout: timeout, fn: fn, healthy: true})
}

// tick runs every check once. Only the scheduler goroutine calls tick, so
// check functions execute unlocked; the mutex guards just the state update.
func (p *probe) tick(ctx context.Context) {
	p.mu.Lock()
	checks := make([]*check, len(p.checks))
	copy(checks, p.checks)
	p.mu.Unlock()

	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(cctx)
		cancel()

		p.mu.Lock()
		c.observe(err)
		p.mu.Unlock()
	}
}

// failures returns name to message for every currently unhealthy check, or
// nil when all pass.
func (p *probe) failures() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out map[string]string
	for _, c := range p.checks {
		if c.healthy {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		if c.lastErr != nil {
			out[c.name] = c.lastErr.Error()
		} else {
			out[c.name] = "unhealthy"
		}
	}
	return out
}

// Health tracks service liveness and readiness and serves the probe
// endpoints.
type Health struct {
	live  probe
	ready probe

	accepting atomic.Bool

	mu   sync.Mutex
	stop context.CancelFunc
}

// New creates a Health in the not-ready state. Call SetReady(true) once
// startup completes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check answering whether the process should be
// restarted. Keep these cheap: goroutine counts, GC pauses.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.live.add(name, timeout, fn)
}

// AddReadinessCheck registers a check answering whether the service can take
// traffic, such as database connectivity.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.ready.add(name, timeout, fn)
}

// Start evaluates all registered checks immediately and then on every
// interval tick, until ctx is cancelled or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.stop = cancel
	h.mu.Unlock()

	for _, p := range []*probe{&h.live, &h.ready} {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.tick(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.tick(ctx)
				}
			}
		}()
	}
}

// Stop halts the background schedulers. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stop != nil {
		h.stop()
		h.stop = nil
	}
}

// SetReady flips the manual readiness gate. Shutdown calls SetReady(false)
// to drain traffic before the listener closes.
func (h *Health) SetReady(ready bool) {
	h.accepting.Store(ready)
}

// IsReady reports whether the service was marked ready and every readiness
// check currently passes.
func (h *Health) IsReady() bool {
	return h.accepting.Load() && h.ready.failures() == nil
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while all liveness checks pass, otherwise
// 503 with per-check failure messages.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.live.failures())
}

// ReadyEndpoint serves /readyz. Besides the readiness checks it honours the
// manual SetReady gate.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.ready.failures()
	if !h.accepting.Load() {
		if failures == nil {
			failures = make(map[string]string, 1)
		}
		failures["service"] = "not accepting traffic"
	}
	writeStatus(w, failures)
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
