// Package monitor runs the health-monitor carrier: the third and last
// category of long-running carrier the pool owns, alongside the
// dispatcher and the per-worker carriers (spec.md §5).
package monitor

import (
	"context"
	"time"

	"github.com/mrivas/taskpool/internal/logger"
	"github.com/mrivas/taskpool/internal/pool"
)

// pollInterval is the fine-grained polling period used while waiting up
// to loopSleep between ticks, matching the ~50ms cadence spec.md §4.6
// specifies for early-exit responsiveness.
const pollInterval = 50 * time.Millisecond

// Pool is the subset of *pool.Pool the monitor depends on, kept narrow so
// tests can substitute a fake.
type Pool interface {
	Tick(monitorStart time.Time, loopSleep, initWindow, inactivityThreshold time.Duration) pool.TickResult
	Abort()
}

// Config bounds one monitor instance; fields mirror the pool config
// options that govern heartbeat timing (spec.md §6).
type Config struct {
	WorkerHeartbeat           time.Duration
	HeartbeatInitWindow       time.Duration
	WorkerInactivityThreshold time.Duration
	HeartbeatsMissLimit       int
}

// Monitor ticks a Pool on a schedule derived from Config until its context
// is canceled or the dispatcher carrier it watches has exited.
type Monitor struct {
	p   Pool
	cfg Config
}

// New constructs a Monitor for p. Enabled reports whether
// WorkerHeartbeat is set; callers should not Start a disabled monitor,
// matching spec.md's "monitor runs iff worker_heartbeat is configured".
func New(p Pool, cfg Config) *Monitor {
	return &Monitor{p: p, cfg: cfg}
}

// Enabled reports whether this monitor's configuration calls for running
// at all.
func (m *Monitor) Enabled() bool {
	return m.cfg.WorkerHeartbeat > 0
}

// Start runs the monitor loop until ctx is canceled. dispatcherDone, if
// non-nil, lets the monitor exit early once the dispatcher carrier it is
// watching has already stopped.
func (m *Monitor) Start(ctx context.Context, dispatcherDone <-chan struct{}) {
	if !m.Enabled() {
		return
	}

	log := logger.WithComponent("monitor")
	loopSleep := m.cfg.WorkerHeartbeat * time.Duration(m.cfg.HeartbeatsMissLimit)
	monitorStart := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-dispatcherDone:
			return
		default:
		}

		result := m.p.Tick(monitorStart, loopSleep, m.cfg.HeartbeatInitWindow, m.cfg.WorkerInactivityThreshold)
		if result.AllInactive {
			log.Error().Msg("every worker inactive, aborting pool")
			m.p.Abort()
			return
		}

		if !m.wait(ctx, dispatcherDone, loopSleep) {
			return
		}
	}
}

// wait blocks up to loopSleep, polling every pollInterval so it can exit
// as soon as ctx is canceled or the dispatcher has stopped. Returns false
// when the monitor should stop entirely.
func (m *Monitor) wait(ctx context.Context, dispatcherDone <-chan struct{}, loopSleep time.Duration) bool {
	deadline := time.Now().Add(loopSleep)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-dispatcherDone:
			return false
		case <-time.After(pollInterval):
		}
	}
	return true
}
