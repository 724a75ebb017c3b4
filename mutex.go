package linmo

// Mutex is a non-recursive mutex with ownership handoff on unlock:
// unlocking with waiters present transfers ownership directly to the
// oldest waiter rather than freeing the lock for open contention, so
// waiters acquire in strict FIFO order.
type Mutex struct {
	k       *Kernel
	waiters waitList
	owner   TaskID // 0 == free
}

// NewMutex creates an unlocked mutex.
func (k *Kernel) NewMutex() *Mutex {
	return &Mutex{k: k}
}

// Lock acquires the mutex, blocking if already held. Re-locking by
// the current owner fails with TaskBusy rather than deadlocking or
// recursing.
func (m *Mutex) Lock() error {
	k := m.k
	k.lock()
	if m.owner == 0 {
		m.owner = k.current
		k.unlock()
		return nil
	}
	if m.owner == k.current {
		k.unlock()
		return TaskBusy
	}
	cur := k.current
	m.waiters.pushBack(cur)
	t := k.tasks[cur]
	t.state = StateBlocked
	t.waitKind = waitMutex
	k.blockCurrentLocked()
	return nil
}

// TimedLock attempts to acquire the mutex. The caller joins the
// waiter FIFO immediately — holding its queue position against later
// Lock callers — then polls-and-yields until Unlock hands it
// ownership or ticks elapse. On timeout it removes itself from the
// FIFO under the lock, so a later Unlock can never spuriously hand
// ownership to a caller that has already returned Timeout.
func (m *Mutex) TimedLock(ticks uint16) error {
	k := m.k
	k.lock()
	if m.owner == 0 {
		m.owner = k.current
		k.unlock()
		return nil
	}
	if m.owner == k.current {
		k.unlock()
		return TaskBusy
	}
	cur := k.current
	m.waiters.pushBack(cur)
	deadline := k.ticks + uint32(ticks)
	for {
		k.unlock()
		k.Yield()
		k.lock()
		if m.owner == cur {
			// Unlock popped us and handed ownership over.
			k.unlock()
			return nil
		}
		if k.ticks >= deadline {
			m.waiters.remove(cur)
			k.unlock()
			return Timeout
		}
	}
}

// Unlock releases the mutex. The caller must be the owner (NotOwner
// otherwise). If a waiter is queued, ownership transfers directly to
// it and it moves BLOCKED -> READY; otherwise the mutex becomes free.
func (m *Mutex) Unlock() error {
	k := m.k
	k.lock()
	err := m.unlockLocked(k)
	k.unlock()
	return err
}

// unlockLocked is Unlock's body, callable with the kernel lock already
// held. CondVar.Wait uses this to release the associated mutex inside
// the same critical section it uses to join the condvar's wait set.
func (m *Mutex) unlockLocked(k *Kernel) error {
	if m.owner != k.current {
		return NotOwner
	}
	if id, ok := m.waiters.popFront(); ok {
		t, exists := k.tasks[id]
		if !exists {
			panicKernel(Unknown, "mutex waiter %d missing", id)
		}
		m.owner = id
		// A Lock waiter is BLOCKED and must be woken; a TimedLock
		// waiter is poll-yielding in READY and observes the ownership
		// transfer on its next pass.
		if t.state == StateBlocked {
			t.wake()
		}
	} else {
		m.owner = 0
	}
	return nil
}

// Owner returns the owning task id, or 0 if free.
func (m *Mutex) Owner() TaskID {
	k := m.k
	k.lock()
	defer k.unlock()
	return m.owner
}

// Destroy fails with TaskBusy if the mutex is owned or has waiters.
func (m *Mutex) Destroy() error {
	k := m.k
	k.lock()
	defer k.unlock()
	if m.owner != 0 || m.waiters.len() > 0 {
		return TaskBusy
	}
	return nil
}
