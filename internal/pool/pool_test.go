package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mrivas/taskpool/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForResults(t *testing.T, p *Pool, n int, timeout time.Duration) map[string]*task.Result {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		results := p.Results()
		if len(results) >= n {
			return results
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d results, got %d", n, len(p.Results()))
	return nil
}

func TestPool_S1_HappyPath(t *testing.T) {
	p := New(Config{Name: "s1", Size: 2, TaskRetriesLimit: 3, MaxActiveLoopSleep: 5 * time.Millisecond}, nil, nil)
	require.NoError(t, p.Start(context.Background()))
	defer p.Abort()

	for i := 0; i < 5; i++ {
		uid := task.NewUID()
		f := task.NewFunc(uid, "answer", func(ctx context.Context) (any, error) {
			return 42, nil
		})
		require.NoError(t, p.Add(f, uid))
	}

	results := waitForResults(t, p, 5, 2*time.Second)
	require.Len(t, results, 5)
	for _, r := range results {
		assert.True(t, r.Status)
		assert.Equal(t, 42, r.Value)
	}
	assert.Empty(t, p.Ongoing())
}

func TestPool_S2_RetryExhaustion(t *testing.T) {
	p := New(Config{Name: "s2", Size: 1, TaskRetriesLimit: 2, MaxActiveLoopSleep: 5 * time.Millisecond}, nil, nil)
	p.SetRescheduleCheck(func(pp *Pool, result *task.Result) bool {
		return true
	})
	require.NoError(t, p.Start(context.Background()))
	defer p.Abort()

	uid := task.NewUID()
	f := task.NewFunc(uid, "always-fails", func(ctx context.Context) (any, error) {
		return nil, errors.New("forced failure")
	})
	require.NoError(t, p.Add(f, uid))

	results := waitForResults(t, p, 1, 2*time.Second)
	result := results[uid]
	require.NotNil(t, result)
	assert.False(t, result.Status)
	assert.Contains(t, result.Reason, "max retries")

	p.mu.Lock()
	cnt := p.taskAssignCnt[uid]
	p.mu.Unlock()
	assert.Equal(t, 2, cnt)
}

func TestPool_S5_AbortMidFlight(t *testing.T) {
	p := New(Config{Name: "s5", Size: 4, TaskRetriesLimit: 3, MaxActiveLoopSleep: 5 * time.Millisecond}, nil, nil)
	require.NoError(t, p.Start(context.Background()))

	uids := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		uid := task.NewUID()
		uids = append(uids, uid)
		f := task.NewFunc(uid, "slow", func(ctx context.Context) (any, error) {
			time.Sleep(200 * time.Millisecond)
			return nil, nil
		})
		require.NoError(t, p.Add(f, uid))
	}

	time.Sleep(50 * time.Millisecond)
	p.Abort()

	results := p.Results()
	require.Len(t, results, len(uids))
	for _, uid := range uids {
		r := results[uid]
		require.NotNil(t, r)
		assert.False(t, r.Status)
		assert.Contains(t, r.Reason, "abort")
	}
	assert.Empty(t, p.Ongoing())
}

func TestPool_Add_RecordsUnassigned(t *testing.T) {
	p := New(Config{Name: "add-test", Size: 1}, nil, nil)
	uid := task.NewUID()
	f := task.NewFunc(uid, "noop", func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, p.Add(f, uid))

	assert.Equal(t, []string{uid}, p.unassigned)
	assert.Equal(t, []string{uid}, p.Ongoing())
}

func TestPool_S3_HeartbeatDeath(t *testing.T) {
	p := New(Config{
		Name:                "s3",
		Size:                2,
		TaskRetriesLimit:    3,
		MaxActiveLoopSleep:  5 * time.Millisecond,
		WorkerHeartbeat:     100 * time.Millisecond,
		HeartbeatsMissLimit: 3,
		HeartbeatInitWindow: 0,
	}, nil, nil)
	require.NoError(t, p.Start(context.Background()))
	defer p.Abort()

	uids := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		uid := task.NewUID()
		uids = append(uids, uid)
		f := task.NewFunc(uid, "answer", func(ctx context.Context) (any, error) {
			time.Sleep(50 * time.Millisecond)
			return 1, nil
		})
		require.NoError(t, p.Add(f, uid))
	}

	require.Eventually(t, func() bool {
		_, ok := p.LastHeartbeat("0")
		return ok
	}, time.Second, 5*time.Millisecond)

	p.mu.Lock()
	entry := p.workersIdx["0"]
	entry.w.Stop()
	p.mu.Unlock()

	loopSleep := 100 * time.Millisecond * 3
	monitorStart := time.Now()
	require.Eventually(t, func() bool {
		p.Tick(monitorStart, loopSleep, 0, p.cfg.WorkerInactivityThreshold)
		results := p.Results()
		return len(results) == len(uids)
	}, 2*time.Second, 10*time.Millisecond)

	results := p.Results()
	for _, uid := range uids {
		r := results[uid]
		require.NotNil(t, r)
		assert.True(t, r.Status)
	}
}

func TestPool_S4_AllWorkersDead(t *testing.T) {
	p := New(Config{
		Name:                "s4",
		Size:                2,
		TaskRetriesLimit:    3,
		MaxActiveLoopSleep:  5 * time.Millisecond,
		WorkerHeartbeat:     100 * time.Millisecond,
		HeartbeatsMissLimit: 3,
		HeartbeatInitWindow: 0,
	}, nil, nil)
	require.NoError(t, p.Start(context.Background()))

	uid := task.NewUID()
	f := task.NewFunc(uid, "answer", func(ctx context.Context) (any, error) { return 1, nil })
	require.NoError(t, p.Add(f, uid))

	require.Eventually(t, func() bool {
		_, ok0 := p.LastHeartbeat("0")
		_, ok1 := p.LastHeartbeat("1")
		return ok0 && ok1
	}, time.Second, 5*time.Millisecond)

	p.mu.Lock()
	p.workersIdx["0"].w.Stop()
	p.workersIdx["1"].w.Stop()
	p.mu.Unlock()

	loopSleep := 100 * time.Millisecond * 3
	monitorStart := time.Now()
	require.Eventually(t, func() bool {
		res := p.Tick(monitorStart, loopSleep, 0, p.cfg.WorkerInactivityThreshold)
		return res.AllInactive
	}, 2*time.Second, 10*time.Millisecond)

	p.Abort()
	results := p.Results()
	require.Contains(t, results, uid)
	assert.False(t, results[uid].Status)
}

func TestPool_WorkersRequests(t *testing.T) {
	p := New(Config{Name: "wr", Size: 2, MaxActiveLoopSleep: 5 * time.Millisecond}, nil, nil)
	require.NoError(t, p.Start(context.Background()))
	defer p.Abort()

	require.Eventually(t, func() bool {
		return p.WorkersRequests() == 2
	}, time.Second, 5*time.Millisecond)
}
