// Package executor implements the fuzzer's single cooperative serial
// executor (§5): every state mutation — corpus, builder, analyzers,
// evaluator — runs on one owning goroutine, reached either directly
// (the run loop itself) or by enqueueing a block from another thread
// via Async/Sync.
package executor

import (
	"fmt"

	"github.com/petermattis/goid"
	"github.com/sasha-s/go-deadlock"
)

// Executor funnels all fuzz-loop work through one goroutine. It is
// constructed before Run is called and asserts its own single-goroutine
// invariant once Run captures the owning goroutine id.
type Executor struct {
	queue     taskQueue
	ownerID   int64
	ownerSet  bool
	stopped   bool
	stopCh    chan struct{}
	onDrained func()
}

type task struct {
	fn   func()
	done chan struct{}
}

// taskQueue is the one piece of executor state genuinely shared across
// goroutines. deadlock.Mutex subs for sync.Mutex so a queue/executor
// deadlock surfaces as a stack trace instead of a silent hang.
type taskQueue struct {
	mu    deadlock.Mutex
	tasks []task
	wake  chan struct{}
}

func newTaskQueue() taskQueue {
	return taskQueue{wake: make(chan struct{}, 1)}
}

func (q *taskQueue) push(t task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *taskQueue) drain() []task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil
	}
	drained := q.tasks
	q.tasks = nil
	return drained
}

// New constructs an unstarted Executor.
func New() *Executor {
	return &Executor{queue: newTaskQueue(), stopCh: make(chan struct{})}
}

// assertOwner panics if called from any goroutine other than the one
// that called Run, matching §5's "programming error, not silent
// corruption" stance on cross-goroutine state mutation.
func (e *Executor) assertOwner() {
	if !e.ownerSet {
		return
	}
	if id := goid.Get(); id != e.ownerID {
		panic(fmt.Sprintf("executor: called from goroutine %d, owned by %d", id, e.ownerID))
	}
}

// Run captures the calling goroutine as the sole owner and processes
// queued tasks until Stop is called. body runs once per loop
// iteration on the owning goroutine, ahead of any queued tasks picked
// up that tick; it returns false to request the loop exit on its own
// (e.g. the fuzz loop has nothing left to do) without an external Stop.
func (e *Executor) Run(body func() (more bool)) {
	e.ownerID = goid.Get()
	e.ownerSet = true

	for {
		select {
		case <-e.stopCh:
			e.finishDraining()
			return
		default:
		}

		if body != nil && !body() {
			e.finishDraining()
			return
		}

		for _, t := range e.queue.drain() {
			e.assertOwner()
			t.fn()
			if t.done != nil {
				close(t.done)
			}
		}
	}
}

func (e *Executor) finishDraining() {
	for _, t := range e.queue.drain() {
		t.fn()
		if t.done != nil {
			close(t.done)
		}
	}
	e.stopped = true
	if e.onDrained != nil {
		e.onDrained()
	}
}

// Async enqueues fn to run on the executor's goroutine without
// blocking the caller. Once the executor has stopped, fn is dropped.
func (e *Executor) Async(fn func()) {
	if e.stopped {
		return
	}
	e.queue.push(task{fn: fn})
}

// Sync enqueues fn and blocks the caller until it has run. Once the
// executor has stopped, fn is dropped and Sync returns at once.
func (e *Executor) Sync(fn func()) {
	if e.stopped {
		return
	}
	done := make(chan struct{})
	e.queue.push(task{fn: fn, done: done})
	<-done
}

// Stop requests the run loop exit after draining already-queued tasks.
// onDrained, if set, fires once draining completes (ShutdownComplete).
func (e *Executor) Stop(onDrained func()) {
	e.onDrained = onDrained
	close(e.stopCh)
}

// OnOwnerGoroutine reports whether the calling goroutine is the
// executor's owner, for callers that want to choose between a direct
// call and Async/Sync without paying an assertion panic.
func (e *Executor) OnOwnerGoroutine() bool {
	return e.ownerSet && goid.Get() == e.ownerID
}
