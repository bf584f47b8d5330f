package pool

import "time"

// WorkerClass is the health monitor's per-worker classification for one
// tick, per spec.md §4.6.
type WorkerClass int

const (
	ClassActive WorkerClass = iota
	ClassInactive
	ClassUninitialized
)

// TickResult summarizes one monitor tick so the monitor package can decide
// whether to self-abort the pool.
type TickResult struct {
	Classes     map[string]WorkerClass
	AllInactive bool
}

// Tick runs one health-monitor pass under the pool lock: classifies every
// worker, decommissions the ones that have gone silent past their window,
// and runs the defunct-child check. monitorStart anchors the init window;
// loopSleep and initWindow are precomputed by the caller from
// worker_heartbeat × heartbeats_miss_limit and heartbeat_init_window.
func (p *Pool) Tick(monitorStart time.Time, loopSleep, initWindow, inactivityThreshold time.Duration) TickResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	result := TickResult{Classes: make(map[string]WorkerClass, len(p.workers))}

	if len(p.workers) == 0 {
		return result
	}

	allInactive := true
	for _, entry := range p.workers {
		p.checkDefunctChildLocked(entry, now, inactivityThreshold)

		class := p.classifyLocked(entry, now, monitorStart, initWindow, loopSleep)
		result.Classes[entry.w.Index] = class
		if class != ClassInactive {
			allInactive = false
		}
	}

	result.AllInactive = allInactive
	return result
}

func (p *Pool) classifyLocked(entry *workerEntry, now, monitorStart time.Time, initWindow, loopSleep time.Duration) WorkerClass {
	if !entry.w.Active() {
		// The worker's carrier died on its own (transport error, or an
		// operator-initiated stop) without going through decommission;
		// catch up here so its assigned work still drains back to
		// unassigned.
		p.decommissionLocked(entry, "transport inactive")
		return ClassInactive
	}

	lastHeartbeat, has := entry.w.LastHeartbeat()
	if !has {
		if now.Sub(monitorStart) <= initWindow {
			return ClassUninitialized
		}
		p.decommissionLocked(entry, "could not initialize")
		return ClassInactive
	}

	if now.Sub(lastHeartbeat) > loopSleep {
		p.decommissionLocked(entry, "failed to send heartbeats")
		return ClassInactive
	}

	return ClassActive
}

// checkDefunctChildLocked is the carrier-liveness variant of
// testplan.runners.pools.base.Pool._workers_handler_monitoring: Go
// workers run as goroutines rather than OS processes, so "all children
// zombie" becomes "the carrier goroutine has exited while work remains
// assigned and no result has arrived from the worker for longer than the
// inactivity threshold" (see DESIGN.md open questions).
func (p *Pool) checkDefunctChildLocked(entry *workerEntry, now time.Time, inactivityThreshold time.Duration) {
	if len(entry.w.Assigned()) == 0 {
		return
	}
	if now.Sub(entry.lastKilled) < inactivityThreshold {
		return
	}

	handler := entry.w.Handler()
	if handler == nil || handler.Alive() {
		return
	}

	if entry.lastResult.IsZero() || now.Sub(entry.lastResult) <= inactivityThreshold {
		return
	}

	p.log.Error().Str("worker", entry.w.Index).Msg("carrier exited with assigned work outstanding, restarting")

	for _, uid := range entry.w.Assigned() {
		entry.w.Unassign(uid)
		p.unassigned = append(p.unassigned, uid)
	}
	entry.w.Abort()

	restarted, err := p.restartWorkerLocked(entry)
	if err != nil || !restarted {
		p.decommissionLocked(entry, "defunct child process")
		return
	}
	entry.lastKilled = now
}
