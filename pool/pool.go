// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pool provides bounded fork-join batches of tasks.
//
// A Pool only fixes the degree of parallelism. Each Batch owns its goroutines,
// so batches may nest (a tuner candidate running an accumulator) without
// starving each other.
package pool

import (
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"github.com/sourcegraph/conc/pool"
)

// Pool schedules batches of at most Workers() concurrent tasks.
type Pool struct {
	workers int
}

// New creates a pool running at most workers tasks at once.
// A non-positive count selects the number of logical cores.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = logicalCores()
	}
	return &Pool{workers: workers}
}

// Default returns the process-wide pool sized to the logical cores.
var Default = sync.OnceValue(func() *Pool { return New(0) })

func logicalCores() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Workers returns the degree of parallelism.
func (p *Pool) Workers() int { return p.workers }

// Batch starts a new group of tasks joined by Batch.Wait.
func (p *Pool) Batch() *Batch {
	return &Batch{tasks: pool.New().WithMaxGoroutines(p.workers)}
}

// ForEach runs body(0) … body(n-1) concurrently and returns when all are done.
// A panic in any body is re-raised in the caller.
func (p *Pool) ForEach(n int, body func(i int)) {
	if n == 1 || p.workers == 1 {
		for i := 0; i < n; i++ {
			body(i)
		}
		return
	}
	b := p.Batch()
	for i := 0; i < n; i++ {
		b.Submit(func() { body(i) })
	}
	b.Wait()
}

// Batch is a single-use group of tasks. Submit must not be called after Wait.
type Batch struct {
	tasks *pool.Pool
}

// Handle tracks one submitted task.
type Handle struct {
	done chan struct{}
}

// Submit enqueues task, blocking while all workers of the batch are busy.
func (b *Batch) Submit(task func()) *Handle {
	h := &Handle{done: make(chan struct{})}
	b.tasks.Go(func() {
		defer close(h.done)
		task()
	})
	return h
}

// Wait joins every task of the batch and re-raises the first panic.
func (b *Batch) Wait() { b.tasks.Wait() }

// Wait blocks until the task has returned.
func (h *Handle) Wait() { <-h.done }

// Done reports whether the task has returned.
func (h *Handle) Done() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
