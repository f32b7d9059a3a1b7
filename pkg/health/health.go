// Package health serves liveness and readiness probes backed by periodic
// dependency checks.
//
// A check turns unhealthy after FailureThreshold consecutive failures and
// healthy again on the first success.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects the probe a check contributes to.
type Kind int

const (
	// Liveness checks decide whether the process should be restarted.
	Liveness Kind = iota
	// Readiness checks decide whether the process receives traffic.
	Readiness
)

func (k Kind) String() string {
	if k == Liveness {
		return "liveness"
	}
	return "readiness"
}

// Check describes one registered check.
type Check struct {
	Name    string
	Kind    Kind
	Timeout time.Duration
	Func    CheckFunc
	// FailureThreshold defaults to 3.
	FailureThreshold int
}

type check struct {
	Check

	mu      sync.Mutex
	healthy bool
	fails   int
	lastErr error
}

func (c *check) status() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.healthy, c.lastErr
}

// record applies a result and reports whether the healthy state flipped.
func (c *check) record(err error) (healthy, changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	was := c.healthy
	if err != nil {
		c.fails++
		if c.fails >= c.FailureThreshold {
			c.healthy = false
		}
	} else {
		c.fails = 0
		c.healthy = true
	}
	return c.healthy, was != c.healthy
}

// Service runs registered checks and serves the probe endpoints.
type Service struct {
	lg    *zap.Logger
	ready atomic.Bool

	mu     sync.RWMutex
	checks []*check
	cancel context.CancelFunc
}

// New creates a Service that starts not ready.
func New(lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{lg: lg}
}

// Register adds a check. Checks start healthy.
func (s *Service) Register(c Check) {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, &check{Check: c, healthy: true})
}

func (s *Service) snapshot(kind Kind) []*check {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*check, 0, len(s.checks))
	for _, c := range s.checks {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// RunOnce runs every check concurrently and waits for all of them.
func (s *Service) RunOnce(ctx context.Context) {
	s.mu.RLock()
	checks := append([]*check(nil), s.checks...)
	s.mu.RUnlock()

	var g errgroup.Group
	for _, c := range checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, c.Timeout)
			defer cancel()

			err := c.Func(cctx)
			healthy, changed := c.record(err)
			if changed {
				if healthy {
					s.lg.Info("Check recovered", zap.String("check", c.Name), zap.Stringer("kind", c.Kind))
				} else {
					s.lg.Warn("Check failing", zap.String("check", c.Name), zap.Stringer("kind", c.Kind), zap.Error(err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Start runs all checks immediately and then every interval until Stop or
// ctx cancellation.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		s.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Stop halts background checks. It is safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady marks the service ready (after startup) or not (during drain).
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check is healthy.
func (s *Service) IsReady() bool {
	return s.ready.Load() && len(failures(s.snapshot(Readiness))) == 0
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(s.snapshot(Liveness)))
}

// ReadyEndpoint serves /readyz.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(s.snapshot(Readiness))
	if !s.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func failures(checks []*check) map[string]string {
	out := make(map[string]string)
	for _, c := range checks {
		healthy, err := c.status()
		if healthy {
			continue
		}
		if err != nil {
			out[c.Name] = err.Error()
		} else {
			out[c.Name] = "unhealthy"
		}
	}
	return out
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		resp = statusResponse{Status: "unhealthy", Checks: failed}
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
