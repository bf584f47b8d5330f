// Package worker implements the agent side of the pull-execute-report
// loop: a Worker owns a transport endpoint and a carrier goroutine, asks
// the pool for tasks, runs them through an Executor, and reports results
// back — never holding pool-owned state itself.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/mrivas/taskpool/internal/logger"
	"github.com/mrivas/taskpool/internal/protocol"
	"github.com/mrivas/taskpool/internal/task"
	"github.com/mrivas/taskpool/internal/transport"
	"github.com/rs/zerolog"
)

// Handler is the carrier's notion of what the pool needs to observe for
// health monitoring: a cancellable goroutine plus liveness.
type Handler interface {
	// Alive reports whether the carrier goroutine is still running.
	Alive() bool
}

// Worker is the agent entity described in spec.md §3: index, transport,
// assigned set, requesting count, last heartbeat and active flag, plus a
// carrier handler the monitor inspects. All fields below are owned by the
// worker itself except last_heartbeat/active/assigned tracking, which the
// pool also reads and writes under its own lock while handling requests —
// hence the mutex guards only the fields both sides touch.
type Worker struct {
	Index     string
	CarrierID string
	Transport transport.Transport
	Executor  *Executor

	mu            sync.Mutex
	assigned      map[string]struct{}
	requesting    int
	lastHeartbeat time.Time

	carrier *carrierHandle
	cfg     Config
}

// Config bounds a worker's loop behavior; MaxActiveLoopSleep matches
// spec.md §6's max_active_loop_sleep.
type Config struct {
	MaxActiveLoopSleep time.Duration
}

// New builds a Worker bound to transport t, ready to Start.
func New(index, carrierID string, t transport.Transport, exec *Executor, cfg Config) *Worker {
	if cfg.MaxActiveLoopSleep <= 0 {
		cfg.MaxActiveLoopSleep = 5 * time.Second
	}
	return &Worker{
		Index:     index,
		CarrierID: carrierID,
		Transport: t,
		Executor:  exec,
		assigned:  make(map[string]struct{}),
		cfg:       cfg,
	}
}

// carrierHandle tracks the one goroutine category a Worker may own,
// honoring the "at most one carrier per worker" budget of spec.md §5.
type carrierHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *carrierHandle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Start launches the worker's carrier goroutine running loop(ctx).
func (w *Worker) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	handle := &carrierHandle{cancel: cancel, done: make(chan struct{})}
	w.mu.Lock()
	w.carrier = handle
	w.Transport.SetActive(true)
	w.mu.Unlock()

	go func() {
		defer close(handle.done)
		w.loop(cctx)
	}()
}

// Stop flips the transport inactive, unblocking the loop at its next
// suspension point, and cancels the carrier context. It does not wait for
// the carrier to exit — callers that need a clean join should poll
// Handler.Alive, mirroring spec.md §4.4's "joined interruptibly" note
// without introducing a second blocking primitive.
func (w *Worker) Stop() {
	w.Transport.SetActive(false)
	w.mu.Lock()
	handle := w.carrier
	w.mu.Unlock()
	if handle != nil {
		handle.cancel()
	}
}

// Abort is identical to Stop at the worker level; the pool distinguishes
// stop/abort by whether it drains pending tasks or discards them, per
// spec.md §4.7.
func (w *Worker) Abort() {
	w.Stop()
}

// Handler exposes the carrier's liveness for the health monitor's
// defunct-child check.
func (w *Worker) Handler() Handler {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.carrier == nil {
		return nil
	}
	return w.carrier
}

// Requesting returns the number of tasks most recently asked for but not
// yet received.
func (w *Worker) Requesting() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requesting
}

// SetRequesting updates the outstanding-request count; called by the pool's
// TaskPullRequest handler after batching a response.
func (w *Worker) SetRequesting(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.requesting = n
}

// Active reports the worker's transport liveness flag.
func (w *Worker) Active() bool {
	return w.Transport.Active()
}

// SetActive flips the worker's active flag directly, without touching its
// carrier state (decommission uses Abort instead, which also cancels the
// carrier).
func (w *Worker) SetActive(active bool) {
	w.Transport.SetActive(active)
}

// LastHeartbeat returns the last time any message was received from this
// worker, per spec.md's rule that *any* request refreshes liveness, not
// only an explicit Heartbeat command.
func (w *Worker) LastHeartbeat() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastHeartbeat, !w.lastHeartbeat.IsZero()
}

// TouchHeartbeat records now as the last time a message was received from
// this worker.
func (w *Worker) TouchHeartbeat(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastHeartbeat = now
}

// Assigned returns a snapshot of the uids currently in flight at this
// worker.
func (w *Worker) Assigned() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.assigned))
	for uid := range w.assigned {
		out = append(out, uid)
	}
	return out
}

// Assign records uid as in-flight at this worker.
func (w *Worker) Assign(uid string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.assigned[uid] = struct{}{}
}

// Unassign removes uid from this worker's in-flight set.
func (w *Worker) Unassign(uid string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.assigned, uid)
}

func (w *Worker) sender() protocol.SenderMetadata {
	return protocol.SenderMetadata{Index: w.Index, CarrierID: w.CarrierID}
}

// loop implements spec.md §4.4's pull-execute-report protocol: send
// TaskPullRequest(1), await the response, act on TaskSending/Stop/Ack,
// sleep, repeat.
func (w *Worker) loop(ctx context.Context) {
	log := logger.WithWorker(w.Index)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		req := protocol.New(w.sender(), protocol.TaskPullRequest)
		req.PullCount = 1

		resp, ok, err := transport.SendAndReceive(w.Transport, req, nil)
		if err != nil {
			log.Warn().Err(err).Msg("transport error in pull loop, exiting")
			return
		}
		if !ok {
			return
		}

		switch resp.Cmd {
		case protocol.Stop:
			return
		case protocol.TaskSending:
			w.runBatch(ctx, resp.Tasks, log)
		case protocol.Ack:
			// no-op, nothing assigned this round
		default:
			log.Warn().Str("cmd", resp.Cmd.String()).Msg("unexpected response in pull loop")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.MaxActiveLoopSleep):
		}
	}
}

func (w *Worker) runBatch(ctx context.Context, tasks []task.Task, log zerolog.Logger) {
	results := make([]*task.Result, 0, len(tasks))
	for _, t := range tasks {
		results = append(results, w.Executor.Execute(ctx, t, w))
	}

	resultsMsg := protocol.New(w.sender(), protocol.TaskResults)
	resultsMsg.Results = results

	expect := protocol.Ack
	_, _, err := transport.SendAndReceive(w.Transport, resultsMsg, &expect)
	if err != nil {
		log.Warn().Err(err).Msg("error reporting task results")
	}
}
