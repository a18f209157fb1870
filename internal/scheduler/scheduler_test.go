package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskTicks(t *testing.T) {
	var runs atomic.Int64
	task := New("test", 10*time.Millisecond, func() { runs.Add(1) })

	task.Start()
	defer task.Stop()
	require.True(t, task.Running())

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestTaskStopHaltsTicks(t *testing.T) {
	var runs atomic.Int64
	task := New("test", 10*time.Millisecond, func() { runs.Add(1) })

	task.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, 5*time.Millisecond)
	task.Stop()
	assert.False(t, task.Running())

	at := runs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, at, runs.Load())
}

func TestForceRunsImmediately(t *testing.T) {
	var runs atomic.Int64
	task := New("test", time.Hour, func() { runs.Add(1) })

	task.Force()
	assert.Equal(t, int64(1), runs.Load())
}

func TestPanicDoesNotKillLoop(t *testing.T) {
	var runs atomic.Int64
	task := New("test", 10*time.Millisecond, func() {
		runs.Add(1)
		panic("boom")
	})

	task.Start()
	defer task.Stop()
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestDoubleStartIsNoop(t *testing.T) {
	task := New("test", time.Hour, func() {})
	task.Start()
	task.Start()
	task.Stop()
	task.Stop()
	assert.False(t, task.Running())
}
