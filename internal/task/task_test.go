package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFunc_Materialize(t *testing.T) {
	called := false
	f := NewFunc("uid-1", "demo", func(ctx context.Context) (any, error) {
		called = true
		return 42, nil
	})

	assert.Equal(t, "uid-1", f.UID())
	assert.Equal(t, "demo", f.Target())

	exec, err := f.Materialize(context.Background())
	require.NoError(t, err)

	callable, ok := exec.(CallableTask)
	require.True(t, ok)

	v, err := callable.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 42, v)
}

func TestNewUID_Unique(t *testing.T) {
	a := NewUID()
	b := NewUID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}

type reportingResult struct {
	name   string
	passed bool
}

func (r reportingResult) Report() (string, bool) { return r.name, r.passed }

func TestReporter_Capability(t *testing.T) {
	var v any = reportingResult{name: "suite-a", passed: true}
	reporter, ok := v.(Reporter)
	require.True(t, ok)
	name, passed := reporter.Report()
	assert.Equal(t, "suite-a", name)
	assert.True(t, passed)
}
