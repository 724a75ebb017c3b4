package linmo

// Semaphore is a counting semaphore over a bounded FIFO of waiters.
// Wakeup is token-passing: on Signal, either count is incremented, or
// a waiter is moved BLOCKED -> READY — never both. Between a Signal
// and the awakened Wait returning, no third party can steal the
// token, because it was never put back into count.
type Semaphore struct {
	k          *Kernel
	waiters    *waitRing
	count      int32
	maxCount   int32
	maxWaiters int // exact ceiling; the ring itself rounds capacity up to a power of two
}

// defaultSemMaxWaiters is the waiter-FIFO capacity used when the
// caller does not size it explicitly.
const defaultSemMaxWaiters = 32

// NewSemaphore creates a semaphore with the given initial count. Zero
// maxWaiters/maxCount select the defaults (defaultSemMaxWaiters and
// math.MaxInt32 respectively).
func (k *Kernel) NewSemaphore(initialCount int32, maxWaiters int, maxCount int32) *Semaphore {
	if maxWaiters <= 0 {
		maxWaiters = defaultSemMaxWaiters
	}
	if maxCount <= 0 {
		maxCount = 1<<31 - 1
	}
	return &Semaphore{
		k:          k,
		waiters:    newWaitRing(maxWaiters),
		count:      initialCount,
		maxCount:   maxCount,
		maxWaiters: maxWaiters,
	}
}

func (k *Kernel) semWait(s *Semaphore) error {
	k.lock()
	if s.count > 0 && s.waiters.len() == 0 {
		s.count--
		k.unlock()
		return nil
	}

	cur := k.current
	if s.waiters.len() >= s.maxWaiters || !s.waiters.pushBack(cur) {
		k.unlock()
		return SemOperation
	}
	t := k.tasks[cur]
	t.state = StateBlocked
	t.waitKind = waitSemaphore
	k.blockCurrentLocked()
	return nil
}

// Wait blocks the calling task until a token is available. Returns
// SemOperation if the bounded waiter FIFO is already full (fail-fast
// rather than blocking anyway).
func (s *Semaphore) Wait() error { return s.k.semWait(s) }

// TryWait succeeds only if count > 0 and no waiters are queued,
// preserving FIFO order under contention.
func (s *Semaphore) TryWait() error {
	k := s.k
	k.lock()
	defer k.unlock()
	if s.count > 0 && s.waiters.len() == 0 {
		s.count--
		return nil
	}
	return SemOperation
}

// Signal releases one token. If a waiter is queued, ownership passes
// directly to it: count is never incremented in that case. Otherwise
// count is incremented, up to maxCount. The woken task is READY and
// is dispatched at the running task's next suspension point; Signal
// itself never suspends the caller, so it is safe to call from tick
// callbacks and other non-task contexts.
func (s *Semaphore) Signal() {
	k := s.k
	k.lock()
	defer k.unlock()
	id, woke := s.waiters.popFront()
	if woke {
		t, ok := k.tasks[id]
		if !ok || t.state != StateBlocked {
			panicKernel(Unknown, "semaphore waiter %d not BLOCKED", id)
		}
		t.wake()
		return
	}
	if s.count < s.maxCount {
		s.count++
	}
}

// Count returns the current token count.
func (s *Semaphore) Count() int32 {
	k := s.k
	k.lock()
	defer k.unlock()
	return s.count
}

// Destroy fails with TaskBusy if any task is still waiting.
func (s *Semaphore) Destroy() error {
	k := s.k
	k.lock()
	defer k.unlock()
	if s.waiters.len() > 0 {
		return TaskBusy
	}
	return nil
}
