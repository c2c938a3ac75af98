// Package workerpool runs background pipeline tasks on a fixed number of goroutines.
package workerpool

import (
	"context"
	"errors"
	"log"
	"runtime/debug"
	"sync"
)

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("worker pool queue is full")

// ErrStopped is returned by Submit after Stop or StopWait.
var ErrStopped = errors.New("worker pool is stopped")

type WorkerPool struct {
	workers   int
	taskQueue chan func()

	mu        sync.RWMutex
	stopped   bool
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// New starts numberOfWorkers workers reading from a queue of queueSize.
func New(numberOfWorkers, queueSize int) *WorkerPool {
	if numberOfWorkers <= 0 {
		numberOfWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	wp := &WorkerPool{
		workers:   numberOfWorkers,
		taskQueue: make(chan func(), queueSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := 0; i < numberOfWorkers; i++ {
		wp.waitGroup.Add(1)
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.waitGroup.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case task, ok := <-wp.taskQueue:
			if !ok {
				return
			}
			if task != nil {
				task()
			}
		}
	}
}

// Submit queues task without blocking. Errors and panics from task are logged.
func (wp *WorkerPool) Submit(task func() error) error {
	if task == nil {
		return nil
	}

	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[workerpool] task panic: %v\n%s", r, debug.Stack())
			}
		}()
		if err := task(); err != nil {
			log.Printf("[workerpool] task error: %v", err)
		}
	}

	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrStopped
	}

	select {
	case wp.taskQueue <- wrapped:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop lets running tasks finish and drops everything still queued.
func (wp *WorkerPool) Stop() {
	if !wp.markStopped() {
		return
	}
cleanup:
	for {
		select {
		case <-wp.taskQueue:
		default:
			break cleanup
		}
	}

	wp.cancel()
	wp.waitGroup.Wait()
}

// StopWait waits until every queued task has run.
func (wp *WorkerPool) StopWait() {
	if !wp.markStopped() {
		return
	}
	close(wp.taskQueue)
	wp.waitGroup.Wait()
	wp.cancel()
}

// IsRunning reports whether the pool still accepts work.
func (wp *WorkerPool) IsRunning() bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	return !wp.stopped
}

func (wp *WorkerPool) markStopped() bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return false
	}
	wp.stopped = true
	return true
}
