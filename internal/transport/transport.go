// Package transport defines the abstract duplex channel bound to a single
// worker, and ships the in-process reference implementation. Remote
// transports (gRPC, a message broker, ...) must satisfy the same Transport
// contract, in particular the single-worker response ordering guarantee;
// none is implemented here — only the abstract contract is specified, per
// spec.md's scope (remote transports are out of scope).
package transport

import (
	"errors"
	"fmt"

	"github.com/mrivas/taskpool/internal/protocol"
)

// ErrTransport wraps any failure raised by Send or Receive inside
// SendAndReceive, per spec.md §7's TransportError kind.
var ErrTransport = errors.New("transport error")

// ErrUnexpectedCmd is returned by SendAndReceive when expect is set and the
// received command does not match.
var ErrUnexpectedCmd = errors.New("transport: unexpected response command")

// Transport is a bidirectional message channel bound to exactly one worker.
type Transport interface {
	// Send enqueues msg for the pool to Accept; worker-side, non-blocking.
	Send(msg protocol.Message) error
	// Receive blocks until a response is available or the transport goes
	// inactive, in which case it returns ok=false with no error.
	Receive() (msg protocol.Message, ok bool)
	// Accept returns the next pending request, or ok=false if none is
	// queued. Pool-side, must never block.
	Accept() (msg protocol.Message, ok bool)
	// Respond enqueues msg for the worker to Receive; pool-side, non-blocking.
	Respond(msg protocol.Message) error
	// SetActive flips the liveness flag; clearing it must cause a blocked
	// Receive to return promptly with ok=false.
	SetActive(active bool)
	// Active reports the current liveness flag.
	Active() bool
}

// SendAndReceive is a transport-agnostic helper built only from the
// Transport interface above: send msg, block for the response, and
// optionally assert the response's Cmd. It mirrors
// testplan.runners.pools.base.Transport.send_and_receive exactly,
// including its "no message if inactive at entry" short-circuit.
func SendAndReceive(t Transport, msg protocol.Message, expect *protocol.Cmd) (protocol.Message, bool, error) {
	if !t.Active() {
		return protocol.Message{}, false, nil
	}

	if err := t.Send(msg); err != nil {
		return protocol.Message{}, false, fmt.Errorf("%w: on send: %v", ErrTransport, err)
	}

	received, ok := t.Receive()
	if !ok {
		return protocol.Message{}, false, nil
	}

	if t.Active() && expect != nil {
		if received.Cmd != *expect {
			return received, true, fmt.Errorf("%w: got %s, expected %s", ErrUnexpectedCmd, received.Cmd, *expect)
		}
	}

	return received, true, nil
}
