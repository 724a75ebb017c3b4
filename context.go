package linmo

import "sync"

// taskContext is a task's saved execution context. On real hardware
// this would be a callee-saved register frame filled in by
// architecture-specific save/restore sequences; here every task is a
// goroutine, which already has a real stack and a real suspended
// continuation whenever it parks on a channel receive, so that is the
// backend.
//
// A taskContext wraps a single-slot token channel. Handing a value to
// resume is restore_context: it makes the parked goroutine's prior
// receive "return" that value. Blocking on a receive from one's own
// context is save_context: the call appears, from the task's point of
// view, to return twice — once when it first suspends, and again with
// whatever value a later restoreContext hands it.
type taskContext struct {
	resume chan int32
}

func newTaskContext() *taskContext {
	// Buffered so restoreContext never blocks the resuming side; the
	// resumer hands off and keeps going (or parks on its own context)
	// without ever waiting for the target to be scheduled.
	return &taskContext{resume: make(chan int32, 1)}
}

// saveContext parks the calling goroutine until another task (or the
// boot sequence) hands it a value via restoreContext. It is always
// called from inside the task whose context this is.
func (c *taskContext) saveContext() int32 {
	return <-c.resume
}

// restoreContext resumes the goroutine parked in a prior saveContext
// call, handing it v (coerced to 1 if 0, so a resumed saveContext is
// always distinguishable from a first suspension).
func (c *taskContext) restoreContext(v int32) {
	if v == 0 {
		v = 1
	}
	c.resume <- v
}

// buildInitialContext seeds a freshly spawned task so its first
// restoreContext lands on entry with a clean stack. In the goroutine
// backend this means: launch the goroutine now, parked immediately at
// the top waiting for its first token, so the real stack it runs on
// is allocated fresh by the Go runtime (the stack region in tcb.stack
// exists to host the canary words, not to back real execution).
//
// A task's very first resumption does not happen inside a switchTo
// call the task made on itself (it is launched directly by Spawn), so
// it has no switchTo frame of its own to release mu when it wakes up.
// mu.Unlock() here supplies that missing half of the handoff: whoever
// called switchTo into this task for the first time is parked inside
// switchTo's own cur.ctx.saveContext(), and only resumes (and only
// then runs its own mu.Unlock()) the next time something switches
// back to *them* — which, for a freshly spawned task, may be never.
// Without this, the kernel lock taken to perform the very first
// switch into any task would never be released.
func buildInitialContext(t *tcb, mu *sync.Mutex, onReturn func(*tcb)) {
	t.ctx = newTaskContext()
	go func() {
		t.ctx.saveContext()
		mu.Unlock()
		t.entry()
		onReturn(t)
	}()
}

// switchTo hands control to next and parks cur. The caller must
// already hold the kernel lock and must have completed every piece of
// wait-set/state bookkeeping before calling this; when cur is next
// resumed (possibly much later, after any number of other tasks have
// run), it is cur's own resumption that releases mu — never cur
// itself, at the point it goes to sleep. The lock is released by
// whichever task's switchTo call returns, not by the one that called
// it, which is what makes block-then-switch effectively atomic.
func switchTo(mu *sync.Mutex, cur, next *tcb) {
	next.ctx.restoreContext(1)
	cur.ctx.saveContext()
	mu.Unlock()
}
