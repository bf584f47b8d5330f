package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrivas/taskpool/internal/adminapi/handlers"
	"github.com/mrivas/taskpool/internal/task"
	"github.com/mrivas/taskpool/internal/worker"
)

// demoFactory builds the handful of illustrative task kinds poolctl ships
// with: echo, sleep, compute, fail, flaky and object, mirroring the
// teacher's cmd/worker demo handlers.
func demoFactory(uid, kind string, payload map[string]interface{}) (task.Task, error) {
	switch kind {
	case "echo":
		return task.NewFunc(uid, kind, func(ctx context.Context) (any, error) {
			return payload, nil
		}), nil

	case "sleep":
		d := durationMillis(payload, "duration_ms", 100)
		return task.NewFunc(uid, kind, func(ctx context.Context) (any, error) {
			select {
			case <-time.After(d):
				return map[string]interface{}{"slept_ms": d.Milliseconds()}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}), nil

	case "compute":
		n := intField(payload, "n", 10)
		return task.NewFunc(uid, kind, func(ctx context.Context) (any, error) {
			return map[string]interface{}{"fibonacci": fibonacci(n)}, nil
		}), nil

	case "fail":
		return task.NewFunc(uid, kind, func(ctx context.Context) (any, error) {
			return nil, errors.New("task intentionally failed")
		}), nil

	case "flaky":
		return task.NewFunc(uid, kind, flakyRun), nil

	case "object":
		return &objectTask{uid: uid}, nil

	default:
		return nil, fmt.Errorf("unknown task kind %q", kind)
	}
}

// objectTask is the one demo kind that materializes into an object-style
// Runnable instead of NewFunc's CallableTask, exercising spec.md:190-193's
// worker-adoption branch (internal/worker/executor.go's Execute): a
// Runnable with no parent yet has the worker that runs it set as its
// parent.
type objectTask struct {
	uid string
}

func (o *objectTask) UID() string    { return o.uid }
func (o *objectTask) Target() string { return "object" }

func (o *objectTask) Materialize(ctx context.Context) (task.Executable, error) {
	return &reportingRun{uid: o.uid}, nil
}

var _ task.Task = (*objectTask)(nil)

// reportingRun is adopted by whichever worker executes it, then reports
// that worker's index back in its result, so parent adoption has an
// observable effect instead of being a type assertion nobody reads.
type reportingRun struct {
	task.BaseRunnable
	uid string
}

func (r *reportingRun) Run(ctx context.Context) (any, error) {
	carrier := "unknown"
	if w, ok := r.Parent().(*worker.Worker); ok {
		carrier = w.Index
	}
	return map[string]interface{}{"uid": r.uid, "adopted_by": carrier}, nil
}

var _ task.Runnable = (*reportingRun)(nil)

// flakyRun always fails; serve's reschedule predicate retries any "flaky"
// task up to its retry limit, demonstrating the reschedule path.
func flakyRun(ctx context.Context) (any, error) {
	return nil, errors.New("flaky task failed this attempt")
}

func durationMillis(payload map[string]interface{}, key string, fallback int64) time.Duration {
	if v, ok := payload[key].(float64); ok {
		return time.Duration(v) * time.Millisecond
	}
	return time.Duration(fallback) * time.Millisecond
}

func intField(payload map[string]interface{}, key string, fallback int) int {
	if v, ok := payload[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func fibonacci(n int) int {
	if n <= 1 {
		return n
	}
	a, b := 0, 1
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}

var _ handlers.Factory = demoFactory
