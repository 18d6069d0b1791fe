package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// Default interval between availability checks.
	defaultHealthInterval = 30 * time.Second
	// Timeout for a single ping.
	healthCheckTimeout = 5 * time.Second
)

// HealthStatus is a snapshot of the store's availability.
type HealthStatus struct {
	Available    bool      `json:"available"`
	LastChecked  time.Time `json:"last_checked"`
	LastError    string    `json:"last_error,omitempty"`
	FailureCount int       `json:"failure_count"`
}

// HealthChecker periodically pings the store and keeps the last known
// availability in memory for the readiness probe.
type HealthChecker struct {
	pinger   Pinger
	interval time.Duration

	mu     sync.RWMutex
	status HealthStatus

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthChecker creates a checker for p. Call Start to begin checking.
func NewHealthChecker(p Pinger, interval time.Duration) *HealthChecker {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthChecker{
		pinger:   p,
		interval: interval,
		// Unchecked counts as available so the first requests aren't refused.
		status: HealthStatus{Available: true},
		done:   make(chan struct{}),
	}
}

// Start runs an immediate check and then repeats at the configured interval.
func (hc *HealthChecker) Start(ctx context.Context) {
	ctx, hc.cancel = context.WithCancel(ctx)

	go func() {
		defer close(hc.done)

		hc.Check(ctx)

		ticker := time.NewTicker(hc.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hc.Check(ctx)
			}
		}
	}()
}

// Stop ends the check loop and waits for it to finish.
func (hc *HealthChecker) Stop() {
	if hc.cancel != nil {
		hc.cancel()
		<-hc.done
	}
}

// Check pings the store once and records the result.
func (hc *HealthChecker) Check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	hc.record(hc.pinger.Ping(pingCtx))
}

// IsAvailable reports the last known availability.
func (hc *HealthChecker) IsAvailable() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.status.Available
}

// Status returns a copy of the last recorded status.
func (hc *HealthChecker) Status() HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.status
}

// record updates the status. The store is marked unavailable after two
// consecutive failures and available again on the first success.
func (hc *HealthChecker) record(err error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.status.LastChecked = time.Now()

	if err == nil {
		if !hc.status.Available {
			slog.Info("store came back online")
		}
		hc.status.Available = true
		hc.status.FailureCount = 0
		hc.status.LastError = ""
		return
	}

	hc.status.FailureCount++
	hc.status.LastError = err.Error()

	if hc.status.FailureCount >= 2 && hc.status.Available {
		slog.Warn("store marked unavailable",
			"failures", hc.status.FailureCount, "error", err)
		hc.status.Available = false
	}
}
