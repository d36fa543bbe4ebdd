// File: adapters/executor_adapter.go
// Package adapters provides glue between internal concurrency and api.Executor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ExecutorAdapter implements the api.Executor interface by delegating to the internal
// concurrency.Executor. It provides asynchronous task submission and dynamic resizing;
// the NUMA node is recorded for bookkeeping only and does not place workers.

package adapters

import (
	"github.com/momentics/nexus-quic/api"
	"github.com/momentics/nexus-quic/internal/concurrency"
)

// ExecutorAdapter wraps an internal concurrency.Executor to satisfy the api.Executor contract.
type ExecutorAdapter struct {
	exec *concurrency.Executor
}

// NewExecutorAdapter constructs an api.Executor with the given number of worker goroutines.
// numaNode is passed through as advisory bookkeeping; workers are not pinned to it.
func NewExecutorAdapter(workers int, numaNode int) *ExecutorAdapter {
	e := concurrency.NewExecutor(workers, numaNode)
	return &ExecutorAdapter{exec: e}
}

// Submit dispatches a task function to be executed asynchronously.
// Returns an error if the executor has been closed.
func (ea *ExecutorAdapter) Submit(task func()) error {
	// Delegates to internal Executor.Submit, which enqueues in a mutex-guarded queue.
	return ea.exec.Submit(task)
}

// NumWorkers returns the current number of active worker goroutines.
// Under the hood, this counts the internal Executor's workers not yet retired by Resize/Close.
func (ea *ExecutorAdapter) NumWorkers() int {
	return ea.exec.NumWorkers()
}

// Resize dynamically adjusts the size of the worker pool.
// Shrinking retires the newest workers; queued tasks are kept.
func (ea *ExecutorAdapter) Resize(newCount int) {
	ea.exec.Resize(newCount)
}

// Close shuts down the executor, signaling all workers to exit once the queue drains.
// It returns without waiting; tasks already submitted still run.
func (ea *ExecutorAdapter) Close() {
	ea.exec.Close()
}
