package concurrency

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecutorRunsSubmittedTasks(t *testing.T) {
	e := NewExecutor(2, -1)
	defer e.Close()

	var n atomic.Int64
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Submit(func() { n.Add(1) }))
	}

	require.Eventually(t, func() bool { return n.Load() == 50 }, time.Second, time.Millisecond)
}

func TestExecutorSubmitAfterCloseFails(t *testing.T) {
	e := NewExecutor(1, -1)
	e.Close()
	require.ErrorIs(t, e.Submit(func() {}), ErrExecutorClosed)
}

func TestExecutorResizeGrowsAndShrinks(t *testing.T) {
	e := NewExecutor(1, -1)
	defer e.Close()

	require.Equal(t, 1, e.NumWorkers())
	e.Resize(4)
	require.Equal(t, 4, e.NumWorkers())
	e.Resize(1)
	require.Equal(t, 1, e.NumWorkers())

	var n atomic.Int64
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Submit(func() { n.Add(1) }))
	}
	require.Eventually(t, func() bool { return n.Load() == 10 }, time.Second, time.Millisecond)
}
