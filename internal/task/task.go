// Package task defines the opaque unit of work the pool dispatches and the
// capability set a materialized task must expose to be executed.
package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Task is a user-submitted descriptor identified by a unique uid. The pool
// never inspects a Task's internals beyond UID and Materialize; everything
// else is opaque to the CORE.
type Task interface {
	// UID is the task's unique identifier within a pool.
	UID() string
	// Target is a human-readable diagnostic label only, never used for
	// dispatch decisions (e.g. in log lines when a task is discarded).
	Target() string
	// Materialize turns the descriptor into something the worker can run.
	// Called once per assignment, so a retried task is re-materialized.
	Materialize(ctx context.Context) (Executable, error)
}

// NewUID generates a fresh task identifier.
func NewUID() string {
	return uuid.New().String()
}

// ErrWrongTaskType reports a submission that is not a usable Task; the pool
// returns it (wrapped) from Add when handed a nil task.
var ErrWrongTaskType = errors.New("task: value does not implement task.Task")

// Func adapts a plain function into a Task, the simplest way to submit work
// without defining a type. Target defaults to the supplied label.
type Func struct {
	uid    string
	label  string
	target func(ctx context.Context) (any, error)
}

// NewFunc builds a Func task.
func NewFunc(uid, label string, target func(ctx context.Context) (any, error)) *Func {
	return &Func{uid: uid, label: label, target: target}
}

func (f *Func) UID() string    { return f.uid }
func (f *Func) Target() string { return f.label }

func (f *Func) Materialize(ctx context.Context) (Executable, error) {
	return CallableTask(f.target), nil
}
