// Package protocol defines the wire format exchanged between a pool and its
// workers: a closed set of command kinds and the envelope that carries
// each one's payload. The source dispatched on these by string name through
// a Python dict; here the command is a typed enum and the payload fields
// are named per-kind rather than a single untyped `data` attribute, so a
// handler reads a typed field directly instead of type-asserting an
// untyped payload at runtime.
package protocol

import (
	"time"

	"github.com/mrivas/taskpool/internal/task"
)

// Cmd is the tagged variant of a Message.
type Cmd int

const (
	ConfigRequest Cmd = iota
	ConfigSending
	TaskPullRequest
	TaskSending
	TaskResults
	Heartbeat
	SetupFailed
	Ack
	Stop
)

func (c Cmd) String() string {
	switch c {
	case ConfigRequest:
		return "ConfigRequest"
	case ConfigSending:
		return "ConfigSending"
	case TaskPullRequest:
		return "TaskPullRequest"
	case TaskSending:
		return "TaskSending"
	case TaskResults:
		return "TaskResults"
	case Heartbeat:
		return "Heartbeat"
	case SetupFailed:
		return "SetupFailed"
	case Ack:
		return "Ack"
	case Stop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// SenderMetadata identifies which worker a request came from, and is
// echoed back on every pool response. There is no authentication here: the
// in-process transport binds a message to a worker by construction, and a
// remote transport must impose its own binding between connection and
// worker identity (see DESIGN.md open questions).
type SenderMetadata struct {
	Index     string
	CarrierID string
}

// Message is the envelope exchanged over a Transport. Exactly one of the
// payload fields below is populated, selected by Cmd; a handler reads the
// field listed for its own Cmd, and any other field holds its zero value.
type Message struct {
	Cmd    Cmd
	Sender SenderMetadata

	// TaskPullRequest
	PullCount int
	// TaskSending
	Tasks []task.Task
	// TaskResults
	Results []*task.Result
	// Heartbeat (worker->pool) / Ack(Heartbeat) (pool->worker)
	HeartbeatAt time.Time
	// SetupFailed
	Diagnostic string
	// ConfigSending
	ConfigSnapshots []map[string]any
	// Ack, optionally carrying a payload (e.g. the heartbeat ack echo)
	AckPayload any
}

func New(sender SenderMetadata, cmd Cmd) Message {
	return Message{Cmd: cmd, Sender: sender}
}
