// Package pool implements the task dispatcher: the component owning all
// submitted tasks, the worker roster, and the single lock that serializes
// every mutation of that state, per spec.md §4.5 and §5.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mrivas/taskpool/internal/connmanager"
	"github.com/mrivas/taskpool/internal/events"
	"github.com/mrivas/taskpool/internal/logger"
	"github.com/mrivas/taskpool/internal/metrics"
	"github.com/mrivas/taskpool/internal/task"
	"github.com/mrivas/taskpool/internal/worker"
	"github.com/rs/zerolog"
)

// Status is the pool's lifecycle state machine.
type Status int

const (
	Initial Status = iota
	Starting
	Started
	Stopping
	Stopped
	Aborted
)

func (s Status) String() string {
	switch s {
	case Initial:
		return "initial"
	case Starting:
		return "starting"
	case Started:
		return "started"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidState is returned when an operation is attempted from a
	// state that does not permit it: Start outside Initial/Stopped, or a
	// worker restart before the pool has started. The dispatcher loop logs
	// an unknown status and exits rather than returning this error.
	ErrInvalidState = errors.New("pool: invalid state")
	// ErrStartupFailed is raised when every worker fails to start.
	ErrStartupFailed = errors.New("pool: startup failed")
	// ErrWrongTaskType is returned by Add when the submitted task is nil.
	ErrWrongTaskType = task.ErrWrongTaskType
)

// RescheduleCheck decides, for a just-produced result, whether the task
// should be re-queued instead of recorded as terminal.
type RescheduleCheck func(p *Pool, result *task.Result) bool

// Config mirrors spec.md §6's configuration surface.
type Config struct {
	Name                      string
	Size                      int
	WorkerHeartbeat           time.Duration
	HeartbeatInitWindow       time.Duration
	WorkerInactivityThreshold time.Duration
	HeartbeatsMissLimit       int
	TaskRetriesLimit          int
	MaxActiveLoopSleep        time.Duration
	Runpath                   string
}

func (c Config) withDefaults() Config {
	if c.Size <= 0 {
		c.Size = 4
	}
	if c.HeartbeatInitWindow <= 0 {
		c.HeartbeatInitWindow = 1800 * time.Second
	}
	if c.WorkerInactivityThreshold <= 0 {
		c.WorkerInactivityThreshold = 300 * time.Second
	}
	if c.HeartbeatsMissLimit <= 0 {
		c.HeartbeatsMissLimit = 3
	}
	if c.TaskRetriesLimit <= 0 {
		c.TaskRetriesLimit = 3
	}
	if c.MaxActiveLoopSleep <= 0 {
		c.MaxActiveLoopSleep = 5 * time.Second
	}
	return c
}

// workerEntry pairs a live worker with the pool-side bookkeeping the
// dispatcher needs (last result time for defunct-child detection, last
// killed time for the monitor's restart throttle).
type workerEntry struct {
	w              *worker.Worker
	lastResult     time.Time
	lastKilled     time.Time
	decommissioned bool
}

// Pool is the dispatcher. The zero value is not usable; use New.
type Pool struct {
	cfg    Config
	connMgr connmanager.ConnectionManager
	sink   ResultSink

	mu sync.Mutex

	status Status

	input         map[string]task.Task
	ongoing       []string
	unassigned    []string
	results       map[string]*task.Result
	taskAssignCnt map[string]int

	workers    []*workerEntry
	workersIdx map[string]*workerEntry

	reschedule RescheduleCheck
	pub        events.Publisher

	dispatcherDone   chan struct{}
	dispatcherCtx    context.Context
	cancelDispatcher func()

	log zerolog.Logger
}

// New constructs a Pool in the Initial state. connMgr defaults to a fresh
// round-robin manager when nil; sink defaults to LogSink when nil.
func New(cfg Config, connMgr connmanager.ConnectionManager, sink ResultSink) *Pool {
	cfg = cfg.withDefaults()
	if connMgr == nil {
		connMgr = connmanager.NewRoundRobin()
	}
	if sink == nil {
		sink = LogSink{}
	}
	return &Pool{
		cfg:           cfg,
		connMgr:       connMgr,
		sink:          sink,
		pub:           events.NopPublisher{},
		status:        Initial,
		input:         make(map[string]task.Task),
		results:       make(map[string]*task.Result),
		taskAssignCnt: make(map[string]int),
		workersIdx:    make(map[string]*workerEntry),
		log:           logger.WithPool(cfg.Name),
	}
}

// SetPublisher installs the event publisher notified of task and worker
// lifecycle transitions. Defaults to a no-op publisher.
func (p *Pool) SetPublisher(pub events.Publisher) {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pub = pub
}

// UID returns the pool's own identifier.
func (p *Pool) UID() string {
	return p.cfg.Name
}

// Config returns a copy of the pool's configuration.
func (p *Pool) Config() Config {
	return p.cfg
}

// Add enqueues task t under uid. Fails if t is nil.
func (p *Pool) Add(t task.Task, uid string) error {
	if t == nil {
		return fmt.Errorf("%w: nil task", ErrWrongTaskType)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.input[uid] = t
	p.ongoing = append(p.ongoing, uid)
	p.unassigned = append(p.unassigned, uid)
	metrics.TasksSubmitted.Inc()
	p.pub.Publish(events.New(events.TaskSubmitted, events.TaskEventData(uid, nil)))
	return nil
}

// SetRescheduleCheck installs the predicate consulted after every task
// result before deciding whether to retry it.
func (p *Pool) SetRescheduleCheck(fn RescheduleCheck) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reschedule = fn
}

// WorkersRequests sums each worker's outstanding "requesting" count.
func (p *Pool) WorkersRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, we := range p.workers {
		total += we.w.Requesting()
	}
	return total
}

// Result returns the terminal result for uid, if present.
func (p *Pool) Result(uid string) (*task.Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.results[uid]
	return r, ok
}

// Results returns a snapshot of all terminal results recorded so far.
func (p *Pool) Results() map[string]*task.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]*task.Result, len(p.results))
	for k, v := range p.results {
		out[k] = v
	}
	return out
}

// Done returns a channel closed once the dispatcher carrier has exited.
func (p *Pool) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dispatcherDone
}

// LastHeartbeat returns the last heartbeat time recorded for the worker at
// index, if any — consumed by the pool's heartbeat-scenario tests (the
// admin worker listing reads WorkerStatuses instead).
func (p *Pool) LastHeartbeat(index string) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.workersIdx[index]
	if !ok {
		return time.Time{}, false
	}
	return entry.w.LastHeartbeat()
}

// WorkerStatus is a snapshot of one worker's bookkeeping, consumed by the
// admin API's worker-listing endpoint.
type WorkerStatus struct {
	Index          string
	Assigned       int
	Requesting     int
	Active         bool
	LastHeartbeat  time.Time
	Decommissioned bool
}

// WorkerStatuses returns a snapshot of every worker currently on the
// roster, in registration order.
func (p *Pool) WorkerStatuses() []WorkerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]WorkerStatus, 0, len(p.workers))
	for _, entry := range p.workers {
		hb, _ := entry.w.LastHeartbeat()
		out = append(out, WorkerStatus{
			Index:          entry.w.Index,
			Assigned:       len(entry.w.Assigned()),
			Requesting:     entry.w.Requesting(),
			Active:         entry.w.Active(),
			LastHeartbeat:  hb,
			Decommissioned: entry.decommissioned,
		})
	}
	return out
}

// Status reports the pool's current lifecycle state.
func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Ongoing returns a snapshot of uids not yet in results.
func (p *Pool) Ongoing() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.ongoing))
	copy(out, p.ongoing)
	return out
}

func removeString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
