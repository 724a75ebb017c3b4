package linmo

// CondVar is a condition variable bound to a mutex at each wait call.
// Waiting requires the caller to already hold the mutex; signaling
// does not — the kernel does not check ownership on Signal/Broadcast,
// but callers are expected to hold the mutex when signaling to avoid
// losing a concurrent waiter's state transition.
type CondVar struct {
	k       *Kernel
	waiters waitList
}

// NewCondVar creates an empty condition variable.
func (k *Kernel) NewCondVar() *CondVar {
	return &CondVar{k: k}
}

// Wait releases m and blocks until signaled, then re-acquires m before
// returning. Returns NotOwner if the caller does not currently hold m.
func (c *CondVar) Wait(m *Mutex) error {
	k := c.k
	k.lock()
	if m.owner != k.current {
		k.unlock()
		return NotOwner
	}

	cur := k.current
	c.waiters.pushBack(cur)
	t := k.tasks[cur]
	t.state = StateBlocked
	t.waitKind = waitCond

	// Within this one critical section: joined the waiters list,
	// marked BLOCKED, and now release the mutex. A signaler acquiring
	// m after Wait entered the critical section is guaranteed to see
	// this task on the wait set.
	if err := m.unlockLocked(k); err != nil {
		// Unreachable: ownership was already confirmed above.
		panicKernel(Unknown, "cond_wait: unexpected unlock error %v", err)
	}

	k.blockCurrentLocked()

	return m.Lock()
}

// TimedWait releases m and waits to be signaled, like Wait, but gives
// up after ticks elapse. The caller joins the wait set immediately,
// then polls-and-yields; being popped off the wait set by Signal or
// Broadcast is the wakeup. On timeout it removes itself from the wait
// set under the lock and returns Timeout. The mutex is re-acquired
// before returning on both outcomes.
func (c *CondVar) TimedWait(m *Mutex, ticks uint16) error {
	k := c.k
	k.lock()
	if m.owner != k.current {
		k.unlock()
		return NotOwner
	}

	cur := k.current
	c.waiters.pushBack(cur)

	if err := m.unlockLocked(k); err != nil {
		// Unreachable: ownership was already confirmed above.
		panicKernel(Unknown, "cond_timedwait: unexpected unlock error %v", err)
	}

	deadline := k.ticks + uint32(ticks)
	for {
		k.unlock()
		k.Yield()
		k.lock()
		if !c.waiters.contains(cur) {
			// Signaled: a wakeup popped us off the wait set.
			k.unlock()
			return m.Lock()
		}
		if k.ticks >= deadline {
			c.waiters.remove(cur)
			k.unlock()
			if err := m.Lock(); err != nil {
				return err
			}
			return Timeout
		}
	}
}

// Signal wakes the oldest waiter, if any.
func (c *CondVar) Signal() {
	k := c.k
	k.lock()
	defer k.unlock()
	c.wakeOneLocked()
}

// Broadcast wakes every waiter.
func (c *CondVar) Broadcast() {
	k := c.k
	k.lock()
	defer k.unlock()
	for c.waiters.len() > 0 {
		c.wakeOneLocked()
	}
}

func (c *CondVar) wakeOneLocked() {
	id, ok := c.waiters.popFront()
	if !ok {
		return
	}
	k := c.k
	t, exists := k.tasks[id]
	if !exists {
		panicKernel(Unknown, "condvar waiter %d missing", id)
	}
	// A Wait waiter is BLOCKED and must be woken; a TimedWait waiter
	// is poll-yielding in READY and observes its removal from the
	// wait set on its next pass.
	if t.state == StateBlocked {
		t.wake()
	}
}

// Destroy fails with TaskBusy if any task is still waiting.
func (c *CondVar) Destroy() error {
	k := c.k
	k.lock()
	defer k.unlock()
	if c.waiters.len() > 0 {
		return TaskBusy
	}
	return nil
}
