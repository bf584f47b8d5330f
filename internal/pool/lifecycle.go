package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mrivas/taskpool/internal/events"
	"github.com/mrivas/taskpool/internal/metrics"
	"github.com/mrivas/taskpool/internal/task"
	"github.com/mrivas/taskpool/internal/transport"
	"github.com/mrivas/taskpool/internal/worker"
)

// Start builds the worker roster, registers it with the connection
// manager, launches every worker carrier and the dispatcher carrier, and
// transitions status to Starting — the main loop itself advances it to
// Started at its first tick, per spec.md §4.5.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.status != Initial && p.status != Stopped {
		p.mu.Unlock()
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidState, p.status)
	}

	p.workers = nil
	p.workersIdx = make(map[string]*workerEntry)
	p.connMgr.Starting()

	started := 0
	for i := 0; i < p.cfg.Size; i++ {
		idx := fmt.Sprintf("%d", i)
		tr := transport.New()
		exec := worker.NewExecutor()
		w := worker.New(idx, uuid.New().String(), tr, exec, worker.Config{MaxActiveLoopSleep: p.cfg.MaxActiveLoopSleep})

		entry := &workerEntry{w: w, lastKilled: time.Now()}
		p.workers = append(p.workers, entry)
		p.workersIdx[idx] = entry
		p.connMgr.Register(idx)
		started++
	}

	if started == 0 && p.cfg.Size > 0 {
		p.connMgr.Aborting()
		p.mu.Unlock()
		return fmt.Errorf("%w: no worker could be started", ErrStartupFailed)
	}

	dispatcherCtx, cancel := context.WithCancel(ctx)
	p.dispatcherCtx = dispatcherCtx
	p.cancelDispatcher = cancel
	p.dispatcherDone = make(chan struct{})

	for _, entry := range p.workers {
		entry.w.Start(dispatcherCtx)
	}

	p.status = Starting
	p.mu.Unlock()

	go p.runDispatcher(dispatcherCtx)
	return nil
}

// Stop drains workers cleanly: each worker's carrier is stopped (its
// transport goes inactive, unblocking its loop), then the connection
// manager is stopped. The dispatcher observes Stopping on its next tick
// and finalizes to Stopped.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != Started && p.status != Starting {
		return
	}

	var wg sync.WaitGroup
	for _, entry := range p.workers {
		entry := entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry.w.Stop()
		}()
	}
	wg.Wait()

	p.connMgr.Stopping()
	p.status = Stopping
}

// Abort aborts every worker in parallel without draining, aborts the
// connection manager, and discards every still-pending task, per
// spec.md §4.7-§4.8.
func (p *Pool) Abort() {
	p.mu.Lock()

	if p.status == Aborted || p.status == Stopped {
		p.mu.Unlock()
		return
	}

	var wg sync.WaitGroup
	for _, entry := range p.workers {
		entry := entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry.w.Abort()
		}()
	}
	wg.Wait()

	p.connMgr.Aborting()
	if p.cancelDispatcher != nil {
		p.cancelDispatcher()
	}

	p.discardPendingTasksLocked("pool aborted")
	p.status = Aborted
	p.mu.Unlock()
}

// discardPendingTasksLocked writes a failing terminal result, naming cause,
// for every uid still in ongoing. Must be called with p.mu held.
func (p *Pool) discardPendingTasksLocked(cause string) {
	reason := fmt.Sprintf("%s abort.", cause)
	pending := make([]string, len(p.ongoing))
	copy(pending, p.ongoing)

	for _, uid := range pending {
		if _, done := p.results[uid]; done {
			continue
		}
		t, ok := p.input[uid]
		if !ok {
			continue
		}
		p.recordResultLocked(uid, &task.Result{Task: t, Status: false, Reason: reason})
	}
}

// decommissionLocked marks a worker inactive, drains its assigned uids back
// to unassigned, and aborts its carrier. The worker is never removed from
// the roster — the health monitor observes the inactive flag afterward.
// Must be called with p.mu held.
func (p *Pool) decommissionLocked(entry *workerEntry, reason string) {
	if entry.decommissioned {
		return
	}
	p.log.Error().Str("worker", entry.w.Index).Str("reason", reason).Str("runpath", p.startupLogPath(entry.w.Index)).Msg("decommissioning worker")

	for _, uid := range entry.w.Assigned() {
		entry.w.Unassign(uid)
		p.unassigned = append(p.unassigned, uid)
	}

	entry.w.Abort()
	entry.decommissioned = true
	metrics.RecordWorkerDecommission(reason)
	p.pub.Publish(events.New(events.WorkerDecommission, events.WorkerEventData(entry.w.Index, reason)))
}

// restartWorkerLocked replaces entry's transport and relaunches its
// carrier in place, used by the defunct-child check's restart attempt.
// Must be called with p.mu held.
func (p *Pool) restartWorkerLocked(entry *workerEntry) (bool, error) {
	if p.dispatcherCtx == nil {
		return false, fmt.Errorf("%w: pool not started", ErrInvalidState)
	}

	tr := transport.New()
	exec := worker.NewExecutor()
	fresh := worker.New(entry.w.Index, uuid.New().String(), tr, exec, worker.Config{MaxActiveLoopSleep: p.cfg.MaxActiveLoopSleep})
	entry.w = fresh
	entry.w.Start(p.dispatcherCtx)
	return true, nil
}

// startupLogPath is the `{runpath}/{index}_startup` file path a worker's
// setup diagnostics are captured into, restoring the distilled spec's
// dropped runpath convention (SPEC_FULL.md §3).
func (p *Pool) startupLogPath(index string) string {
	if p.cfg.Runpath == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s_startup", p.cfg.Runpath, index)
}
