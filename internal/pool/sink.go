package pool

import (
	"github.com/mrivas/taskpool/internal/logger"
	"github.com/mrivas/taskpool/internal/task"
)

// ResultSink is the opaque reporting surface spec.md §6 treats as an
// external collaborator: the pool feeds every terminal result through it
// before recording results[uid].
type ResultSink interface {
	Accept(result *task.Result)
}

// LogSink is the default ResultSink, adapted from
// testplan.runners.pools.base._print_test_result: when a result's Value
// exposes the task.Reporter capability, log a pass/fail line using its
// name; otherwise log the bare status.
type LogSink struct{}

func (LogSink) Accept(result *task.Result) {
	log := logger.WithTask(result.Task.UID())

	if reporter, ok := result.Value.(task.Reporter); ok {
		name, passed := reporter.Report()
		if passed {
			log.Info().Str("name", name).Msg("Pass")
		} else {
			log.Warn().Str("name", name).Msg("Fail")
		}
		return
	}

	if result.Status {
		log.Info().Msg("task completed")
	} else {
		log.Warn().Str("reason", result.Reason).Msg("task failed")
	}
}

var _ ResultSink = LogSink{}
