// Package sched provides the deferred-task queue the editor core uses where
// the original design relied on "wait one tick": deletion-listener
// notification and call-site validation run after the synchronous drop
// handling completes, in the order they were deferred. Tests drain the
// queue explicitly instead of sleeping.
package sched

import (
	"context"
	"log"
	"sync"
)

type task struct {
	name string
	fn   func()
}

// Queue is a FIFO of deferred tasks. Safe for concurrent use, though the
// core only touches it from the gesture-handling goroutine.
type Queue struct {
	mu    sync.Mutex
	tasks []task
	wake  chan struct{}
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Defer enqueues fn to run on the next Flush. The name shows up in the
// panic log if the task blows up.
func (q *Queue) Defer(name string, fn func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task{name: name, fn: fn})
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Flush runs pending tasks in FIFO order until the queue is empty,
// including tasks deferred by the tasks themselves. Returns the number of
// tasks run.
func (q *Queue) Flush() int {
	ran := 0
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return ran
		}
		t := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.run(t)
		ran++
	}
}

func (q *Queue) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sched: deferred task %q panicked: %v", t.name, r)
		}
	}()
	t.fn()
}

// Start drains the queue on a background goroutine until ctx is done.
// Embedding applications call this once; tests call Flush directly for
// deterministic ordering.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				q.Flush()
			}
		}
	}()
}
