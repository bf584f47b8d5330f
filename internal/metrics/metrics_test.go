package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTaskCompletion_IncrementsCounters(t *testing.T) {
	before := testutil.ToFloat64(TasksCompleted.WithLabelValues("success"))
	RecordTaskCompletion("success", 0.5)
	after := testutil.ToFloat64(TasksCompleted.WithLabelValues("success"))
	assert.Equal(t, before+1, after)
}

func TestRecordWorkerDecommission_IncrementsByReason(t *testing.T) {
	before := testutil.ToFloat64(WorkerDecommissions.WithLabelValues("heartbeat_test"))
	RecordWorkerDecommission("heartbeat_test")
	after := testutil.ToFloat64(WorkerDecommissions.WithLabelValues("heartbeat_test"))
	assert.Equal(t, before+1, after)
}

func TestRecordEventPublished_IncrementsByType(t *testing.T) {
	before := testutil.ToFloat64(EventsPublished.WithLabelValues("task.completed"))
	RecordEventPublished("task.completed")
	after := testutil.ToFloat64(EventsPublished.WithLabelValues("task.completed"))
	assert.Equal(t, before+1, after)
}
