// Package connmanager selects which worker a TaskPullRequest is answered
// by whenever more than one worker is eligible, keeping the pool's dispatch
// loop itself free of any scheduling policy beyond FIFO task order.
package connmanager

import "sync"

// ConnectionManager tracks live connections (by index) and decides which one
// to favor next. The pool registers every worker when it starts; it never
// calls Remove, so a decommissioned worker stays in the rotation.
type ConnectionManager interface {
	Register(index string)
	Remove(index string)
	// Next returns the index chosen for the next dispatch, or ok=false if
	// no connection is registered.
	Next() (index string, ok bool)
	// Starting/Stopping/Aborting are lifecycle hooks mirroring the pool's
	// own lifecycle transitions, per spec.md §4.3.
	Starting()
	Stopping()
	Aborting()
}

// RoundRobin cycles through registered indices in registration order,
// grounded on testplan.runners.pools.base.RoundRobinConnManager's
// `self._current % len(self._connections)` cursor — the cursor only ever
// advances, it is never reset by Register/Remove.
type RoundRobin struct {
	mu      sync.Mutex
	order   []string
	present map[string]bool
	cursor  int
	started bool
}

// NewRoundRobin returns an empty round-robin connection manager.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{present: make(map[string]bool)}
}

// Starting marks the manager ready to accept Register calls.
func (r *RoundRobin) Starting() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
}

// Stopping marks the manager no longer accepting new registrations; it
// does not clear the existing roster, so Next keeps returning indices
// until the dispatcher itself stops polling.
func (r *RoundRobin) Stopping() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = false
}

// Aborting immediately drops the entire roster.
func (r *RoundRobin) Aborting() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = false
	r.order = nil
	r.present = make(map[string]bool)
}

// Register adds index to the rotation. Only permitted after Starting; a
// duplicate index is a no-op, per spec.md §4.3.
func (r *RoundRobin) Register(index string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	if r.present[index] {
		return
	}
	r.present[index] = true
	r.order = append(r.order, index)
}

func (r *RoundRobin) Remove(index string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.present[index] {
		return
	}
	delete(r.present, index)
	for i, v := range r.order {
		if v == index {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *RoundRobin) Next() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.order)
	if n == 0 {
		return "", false
	}
	r.cursor++
	idx := (r.cursor % n)
	return r.order[idx], true
}

var _ ConnectionManager = (*RoundRobin)(nil)
