package transport

import (
	"sync"
	"time"

	"github.com/mrivas/taskpool/internal/protocol"
)

// pollInterval is how often Receive checks the response buffer while
// blocked, mirroring the source's recv_sleep=0.05.
const pollInterval = 50 * time.Millisecond

// InProcess is the reference Transport: two ordered buffers guarded by one
// mutex, with no network hop, grounded directly on
// testplan.runners.pools.base.Transport. Zero value is not usable; use New.
type InProcess struct {
	mu        sync.Mutex
	requests  []protocol.Message // worker -> pool, popped by Accept
	responses []protocol.Message // pool -> worker, popped by Receive
	active    bool
}

// New returns an active in-process transport ready for use.
func New() *InProcess {
	return &InProcess{active: true}
}

func (t *InProcess) Send(msg protocol.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, msg)
	return nil
}

func (t *InProcess) Respond(msg protocol.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses = append(t.responses, msg)
	return nil
}

// Accept pops the oldest pending request, never blocking. Pool-side.
func (t *InProcess) Accept() (protocol.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return protocol.Message{}, false
	}
	msg := t.requests[0]
	t.requests = t.requests[1:]
	return msg, true
}

// Receive blocks, polling every pollInterval, until a response is queued or
// the transport is marked inactive.
func (t *InProcess) Receive() (protocol.Message, bool) {
	for {
		t.mu.Lock()
		if !t.active {
			t.mu.Unlock()
			return protocol.Message{}, false
		}
		if len(t.responses) > 0 {
			msg := t.responses[0]
			t.responses = t.responses[1:]
			t.mu.Unlock()
			return msg, true
		}
		t.mu.Unlock()
		time.Sleep(pollInterval)
	}
}

func (t *InProcess) SetActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = active
}

func (t *InProcess) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

var _ Transport = (*InProcess)(nil)
