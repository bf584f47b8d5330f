package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/mrivas/taskpool/internal/events"
	"github.com/mrivas/taskpool/internal/metrics"
	"github.com/mrivas/taskpool/internal/protocol"
	"github.com/mrivas/taskpool/internal/task"
)

// runDispatcher is the pool's single dedicated carrier, distinct from every
// worker carrier, per spec.md §4.5's main loop.
func (p *Pool) runDispatcher(ctx context.Context) {
	defer close(p.dispatcherDone)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		stop := p.dispatchTick()
		if stop {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.MaxActiveLoopSleep):
		}
	}
}

// dispatchTick runs one iteration under the pool lock and reports whether
// the dispatcher loop must exit.
func (p *Pool) dispatchTick() (exit bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.status {
	case Starting:
		p.status = Started
	case Stopping:
		p.status = Stopped
		return true
	case Started:
		idx, ok := p.connMgr.Next()
		if !ok {
			return false
		}
		entry, ok := p.workersIdx[idx]
		if !ok {
			return false
		}
		msg, ok := entry.w.Transport.Accept()
		if !ok {
			return false
		}
		p.handleRequestLocked(entry, msg)
		metrics.QueueDepth.Set(float64(len(p.unassigned)))
	case Aborted, Stopped:
		return true
	default:
		p.log.Error().Str("status", p.status.String()).Msg("dispatcher observed invalid state")
		return true
	}
	return false
}

// handleRequestLocked implements spec.md §4.5's request routing. Must be
// called with p.mu held.
func (p *Pool) handleRequestLocked(entry *workerEntry, msg protocol.Message) {
	if !entry.w.Active() {
		p.log.Error().Str("worker", entry.w.Index).Msg("request from inactive worker")
		_ = entry.w.Transport.Respond(protocol.New(msg.Sender, protocol.Ack))
		return
	}

	now := time.Now()
	entry.w.TouchHeartbeat(now)

	if p.status != Started {
		_ = entry.w.Transport.Respond(protocol.New(msg.Sender, protocol.Stop))
		return
	}

	switch msg.Cmd {
	case protocol.ConfigRequest:
		p.handleConfigRequest(entry, msg)
	case protocol.TaskPullRequest:
		p.handleTaskPullRequest(entry, msg)
	case protocol.TaskResults:
		p.handleTaskResults(entry, msg, now)
	case protocol.Heartbeat:
		p.handleHeartbeat(entry, msg, now)
	case protocol.SetupFailed:
		p.handleSetupFailed(entry, msg)
	default:
		p.log.Warn().Str("cmd", msg.Cmd.String()).Msg("unknown command")
		_ = entry.w.Transport.Respond(protocol.New(msg.Sender, protocol.Ack))
	}
}

// handleConfigRequest walks the pool's own configuration into a portable
// snapshot, restoring the distilled spec's dropped ConfigRequest/
// ConfigSending exchange (see SPEC_FULL.md §3).
func (p *Pool) handleConfigRequest(entry *workerEntry, msg protocol.Message) {
	snapshot := map[string]any{
		"name":                p.cfg.Name,
		"size":                p.cfg.Size,
		"worker_heartbeat":    p.cfg.WorkerHeartbeat.String(),
		"task_retries_limit":  p.cfg.TaskRetriesLimit,
		"max_active_loop_sleep": p.cfg.MaxActiveLoopSleep.String(),
	}
	resp := protocol.New(msg.Sender, protocol.ConfigSending)
	resp.ConfigSnapshots = []map[string]any{snapshot}
	_ = entry.w.Transport.Respond(resp)
}

func (p *Pool) handleTaskPullRequest(entry *workerEntry, msg protocol.Message) {
	n := msg.PullCount
	if n <= 0 {
		n = 1
	}

	batch := make([]task.Task, 0, n)
	for i := 0; i < n; i++ {
		if len(p.unassigned) == 0 {
			break
		}
		uid := p.unassigned[0]
		p.unassigned = p.unassigned[1:]

		if p.taskAssignCnt[uid] >= p.cfg.TaskRetriesLimit {
			p.discardLocked(uid, "max retries reached before dispatch")
			continue
		}

		p.taskAssignCnt[uid]++
		entry.w.Assign(uid)
		batch = append(batch, p.input[uid])
	}

	if len(batch) > 0 {
		resp := protocol.New(msg.Sender, protocol.TaskSending)
		resp.Tasks = batch
		_ = entry.w.Transport.Respond(resp)
		entry.w.SetRequesting(n - len(batch))
		return
	}

	_ = entry.w.Transport.Respond(protocol.New(msg.Sender, protocol.Ack))
	entry.w.SetRequesting(n)
}

func (p *Pool) handleTaskResults(entry *workerEntry, msg protocol.Message, now time.Time) {
	for _, result := range msg.Results {
		uid := result.Task.UID()
		entry.w.Unassign(uid)
		if entry.lastResult.IsZero() {
			entry.lastResult = now
		}

		wantsReschedule := p.reschedule != nil && p.reschedule(p, result)
		if wantsReschedule && p.taskAssignCnt[uid] < p.cfg.TaskRetriesLimit {
			p.unassigned = append(p.unassigned, uid)
			metrics.TaskRetries.Inc()
			p.pub.Publish(events.New(events.TaskRetrying, events.TaskEventData(uid, nil)))
			continue
		}

		if wantsReschedule {
			// Assign count already at the cap: retries are exhausted even
			// though the predicate asked for another attempt.
			result = &task.Result{
				Task:   result.Task,
				Status: false,
				Reason: fmt.Sprintf("max retries reached (%d): %s", p.taskAssignCnt[uid], result.Reason),
			}
		}

		p.recordResultLocked(uid, result)
	}
	_ = entry.w.Transport.Respond(protocol.New(msg.Sender, protocol.Ack))
}

func (p *Pool) handleHeartbeat(entry *workerEntry, msg protocol.Message, now time.Time) {
	entry.w.TouchHeartbeat(now)
	resp := protocol.New(msg.Sender, protocol.Ack)
	resp.AckPayload = now
	_ = entry.w.Transport.Respond(resp)
}

func (p *Pool) handleSetupFailed(entry *workerEntry, msg protocol.Message) {
	_ = entry.w.Transport.Respond(protocol.New(msg.Sender, protocol.Ack))
	p.decommissionLocked(entry, fmt.Sprintf("setup failed: %s", msg.Diagnostic))
}

// recordResultLocked feeds result through the sink and writes the terminal
// record. Must be called with p.mu held; writes results[uid] at most once.
func (p *Pool) recordResultLocked(uid string, result *task.Result) {
	if _, already := p.results[uid]; already {
		return
	}
	p.sink.Accept(result)
	p.results[uid] = result
	p.ongoing = removeString(p.ongoing, uid)

	status := "success"
	evtType := events.TaskCompleted
	if !result.Status {
		status = "failure"
		evtType = events.TaskFailed
	}
	metrics.RecordTaskCompletion(status, 0)
	p.pub.Publish(events.New(evtType, events.TaskEventData(uid, map[string]interface{}{"reason": result.Reason})))
}

// discardLocked writes a failing terminal result for uid without ever
// having dispatched it this round, per spec.md §4.5's retry-exhaustion
// path inside TaskPullRequest.
func (p *Pool) discardLocked(uid, reason string) {
	p.log.Error().Str("uid", uid).Str("reason", reason).Msg("discarding task")
	t, ok := p.input[uid]
	if !ok {
		return
	}
	p.recordResultLocked(uid, &task.Result{Task: t, Status: false, Reason: reason})
}
