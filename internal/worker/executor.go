package worker

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/mrivas/taskpool/internal/logger"
	"github.com/mrivas/taskpool/internal/task"
	"github.com/rs/zerolog"
)

// Executor runs a materialized task's Executable and converts any
// failure — returned error or recovered panic — into a failing
// task.Result rather than letting it propagate, per spec.md §4.4.
type Executor struct{}

// NewExecutor returns a stateless task executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute materializes t, adopts the worker as parent for a Runnable with
// no parent yet, runs it, and always returns a terminal *task.Result.
func (e *Executor) Execute(ctx context.Context, t task.Task, parent *Worker) *task.Result {
	log := logger.WithTask(t.UID())

	exec, err := t.Materialize(ctx)
	if err != nil {
		log.Warn().Err(err).Str("target", t.Target()).Msg("materialize failed")
		return &task.Result{Task: t, Status: false, Reason: fmt.Sprintf("materialize failed: %v", err)}
	}

	if runnable, ok := exec.(task.Runnable); ok {
		if runnable.Parent() == nil {
			runnable.SetParent(parent)
		}
	}

	return e.run(ctx, t, exec, log)
}

// run invokes exec's Run method — the only operation every Executable
// variant exposes — trapping both a returned error and any panic so
// nothing ever propagates out of task execution, per spec.md's
// TaskExecutionError policy.
func (e *Executor) run(ctx context.Context, t task.Task, exec task.Executable, log zerolog.Logger) (result *task.Result) {
	runner, ok := exec.(interface {
		Run(ctx context.Context) (any, error)
	})
	if !ok {
		return &task.Result{Task: t, Status: false, Reason: "materialized value is not executable"}
	}

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			log.Error().Interface("panic", r).Str("stack", string(stack)).Msg("task panicked")
			result = &task.Result{
				Task:   t,
				Status: false,
				Reason: fmt.Sprintf("panic: %v\n%s", r, stack),
			}
		}
	}()

	value, err := runner.Run(ctx)
	if err != nil {
		log.Warn().Err(err).Str("target", t.Target()).Msg("task failed")
		return &task.Result{Task: t, Status: false, Reason: err.Error()}
	}

	return &task.Result{Task: t, Value: value, Status: true}
}
