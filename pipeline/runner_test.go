package pipeline

import (
	"bytes"
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner() (*Runner, *bytes.Buffer) {
	var out bytes.Buffer
	r := NewRunner()
	r.Stdout = &out
	r.Stderr = &out
	return r, &out
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func TestRun_StepsInOrder(t *testing.T) {
	skipWithoutShell(t)

	r, out := newTestRunner()
	job := &Job{
		Name:  "ordered",
		Steps: []string{"echo first", "echo second", "echo third"},
	}

	result, err := r.Run(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, "first\nsecond\nthird\n", out.String())
	assert.Len(t, result.Steps, 3)
	assert.False(t, result.Failed())
	for i, sr := range result.Steps {
		assert.Equal(t, i, sr.Index)
		assert.NoError(t, sr.Err)
	}
}

func TestRun_AbortsOnFirstFailure(t *testing.T) {
	skipWithoutShell(t)

	r, out := newTestRunner()
	job := &Job{
		Name:  "failing",
		Steps: []string{"echo before", "exit 3", "echo after"},
	}

	result, err := r.Run(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), `job "failing" step 1`)

	// The failing step's successors never ran.
	assert.Equal(t, "before\n", out.String())
	require.Len(t, result.Steps, 2)
	assert.True(t, result.Failed())
	assert.NoError(t, result.Steps[0].Err)
	assert.Error(t, result.Steps[1].Err)
}

func TestRun_JobEnv(t *testing.T) {
	skipWithoutShell(t)

	r, out := newTestRunner()
	job := &Job{
		Name:  "env",
		Env:   map[string]string{"FIXTURE_DIR": "tests/data"},
		Steps: []string{"echo $FIXTURE_DIR"},
	}

	_, err := r.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "tests/data\n", out.String())
}

func TestRun_InvalidJob(t *testing.T) {
	r, _ := newTestRunner()

	_, err := r.Run(context.Background(), &Job{Name: "empty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares no steps")
}

func TestRun_CancelledContext(t *testing.T) {
	skipWithoutShell(t)

	r, _ := newTestRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := r.Run(ctx, &Job{Name: "cancelled", Steps: []string{"echo never"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
	assert.Empty(t, result.Steps)
}
