// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package dispatch

import (
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/metrics"
)

// DefaultIdleTimeout is how long a pool worker waits for work before
// exiting.
const DefaultIdleTimeout = 30 * time.Second

// Pool is a cached worker pool: it grows without bound under load and
// reclaims workers that sit idle past the timeout. Dispatch work runs
// here so packet handling never blocks the ingest path.
type Pool struct {
	tasks chan func()
	quit  chan struct{}
	idle  time.Duration

	mu      sync.Mutex
	workers int
	closed  bool

	wg sync.WaitGroup
}

// NewPool creates a pool with the given idle timeout. A zero timeout
// uses DefaultIdleTimeout.
func NewPool(idle time.Duration) *Pool {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Pool{
		tasks: make(chan func()),
		quit:  make(chan struct{}),
		idle:  idle,
	}
}

// Submit schedules task onto the pool, spawning a worker when no idle
// worker is immediately available. Submitting to a stopped pool drops
// the task.
func (p *Pool) Submit(task func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	metrics.PoolTasksQueued.Inc()

	// The task channel is unbuffered: a send only succeeds into a
	// worker that is actively waiting, so no task is ever stranded.
	select {
	case p.tasks <- task:
		p.mu.Unlock()
		return
	default:
	}

	p.workers++
	metrics.PoolWorkers.Set(float64(p.workers))
	p.wg.Add(1)
	p.mu.Unlock()

	go p.worker(task)
}

func (p *Pool) worker(first func()) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		p.workers--
		metrics.PoolWorkers.Set(float64(p.workers))
		p.mu.Unlock()
	}()

	first()

	timer := time.NewTimer(p.idle)
	defer timer.Stop()

	for {
		select {
		case task := <-p.tasks:
			task()
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(p.idle)
		case <-timer.C:
			return
		case <-p.quit:
			return
		}
	}
}

// Stop prevents further submissions and waits for in-flight tasks to
// finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.quit)
	p.wg.Wait()
}

// Workers returns the current number of live workers.
func (p *Pool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}
