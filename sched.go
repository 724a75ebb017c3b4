package linmo

// schedMaxIterations is the hard safety cap on the ready-selection
// walk. Exceeding it means no task's countdown reached zero across
// hundreds of passes, which is treated as a livelock and is fatal.
const schedMaxIterations = 500

// canaryCheckInterval amortizes the stack canary check over every N
// context switches.
const canaryCheckInterval = 32

// ageDelaysLocked decrements the delay counter of every BLOCKED task
// with delay > 0, waking (transitioning to READY) any that reach
// zero. Called from Tick alone — never from rescheduleLocked or
// blockCurrentLocked, which would otherwise age a task's delay once
// per voluntary yield/block anywhere in the system, independent of
// real elapsed ticks, letting Delay(n) wake after fewer than n ticks.
func (k *Kernel) ageDelaysLocked() {
	for _, id := range k.order {
		t := k.tasks[id]
		if t.state == StateBlocked && t.waitKind == waitDelay && t.delay > 0 {
			t.delay--
			if t.delay == 0 {
				t.wake()
			}
		}
	}
}

// checkCanariesLocked verifies every live task's stack canaries,
// panicking with STACK_CHECK on the first mismatch found.
func (k *Kernel) checkCanariesLocked() {
	for _, id := range k.order {
		t := k.tasks[id]
		if !t.canaryIntact() {
			panicKernel(StackCheck, "task %d stack canary corrupted", t.id)
		}
	}
}

// selectReadyLocked performs the bounded circular ready walk. It must
// be called with the kernel lock held and returns the id of the task
// chosen to run next, transitioning it to RUNNING.
//
// The walk starts at the successor of the cached hint (the task last
// chosen) if that task is still READY and has no RT hook, else at the
// successor of current, so a task that yields is visited last. Each
// visited READY task's countdown is decremented; the first task whose
// countdown reaches zero has it reloaded from the base weight and is
// chosen. A task's base weight therefore sets how many passes it
// takes to become eligible, not its position in any queue.
func (k *Kernel) selectReadyLocked() TaskID {
	if k.rtSched != nil {
		if id, ok := k.rtSched(k); ok {
			if t, exists := k.tasks[id]; exists && t.state == StateReady {
				t.state = StateRunning
				k.lastHint = id
				return id
			}
		}
	}

	if len(k.order) == 0 {
		panicKernel(NoTasks, "no tasks registered")
	}

	start := k.successorLocked(k.current)
	if hint, ok := k.tasks[k.lastHint]; ok && hint.state == StateReady && hint.rtHook == nil {
		start = k.successorLocked(k.lastHint)
	}

	n := len(k.order)
	idx := start
	for i := 0; i < schedMaxIterations; i++ {
		id := k.order[idx%n]
		t := k.tasks[id]
		if t.state == StateReady && t.rtHook == nil {
			if t.priority.tick() {
				t.priority.reload()
				t.state = StateRunning
				k.lastHint = id
				return id
			}
		}
		idx++
	}
	panicKernel(NoTasks, "ready selection exceeded %d iterations", schedMaxIterations)
	return 0 // unreachable
}

// successorLocked returns the order-list index immediately after id
// (or 0 if id is unknown / the list is empty).
func (k *Kernel) successorLocked(id TaskID) int {
	n := len(k.order)
	if n == 0 {
		return 0
	}
	if _, ok := k.tasks[id]; !ok {
		return 0
	}
	idx := k.indexOfLocked(id)
	return (idx + 1) % n
}

func (k *Kernel) indexOfLocked(id TaskID) int {
	for i, v := range k.order {
		if v == id {
			return i
		}
	}
	return 0
}

// rescheduleLocked performs one dispatcher pass: pick the next ready
// task and switch to it if different from cur (delay aging is Tick's
// job, not every pass's — see ageDelaysLocked). Must be called with
// the lock held; it returns with the lock released, either by
// unlocking directly (no switch needed) or by switchTo's hand-over-
// hand discipline (see context.go).
func (k *Kernel) rescheduleLocked(cur *tcb, curGoesReady bool) {
	if curGoesReady {
		cur.state = StateReady
	}

	next := k.selectReadyLocked()
	k.switchCount++
	if k.switchCount%canaryCheckInterval == 0 {
		k.checkCanariesLocked()
	}

	if next == cur.id {
		k.unlock()
		return
	}

	nextTCB := k.tasks[next]
	k.current = next
	switchTo(&k.mu, cur, nextTCB)
}

// blockCurrentLocked is the shared tail of every blocking primitive:
// the caller has already (i) added the current task to the relevant
// wait set and (ii) set its state to BLOCKED and waitKind, all inside
// the same critical section. blockCurrentLocked performs (iii), the
// context switch. Because all three steps happen under one lock
// acquisition there is no window in which the task is
// BLOCKED-but-still-appears-RUNNING, or RUNNING-but-already-on-a-
// waitset.
func (k *Kernel) blockCurrentLocked() {
	cur := k.mustTask(k.current)

	next := k.selectReadyLocked()
	k.switchCount++
	if k.switchCount%canaryCheckInterval == 0 {
		k.checkCanariesLocked()
	}

	nextTCB := k.tasks[next]
	k.current = next
	switchTo(&k.mu, cur, nextTCB)
}

// Tick drives the dispatcher from the (real or simulated) hardware
// tick source. It increments the global tick counter, fires expired
// software timers, and ages delays.
//
// A tick on real hardware also forcibly preempts the running task. A
// goroutine backend cannot interrupt an actively-running goroutine
// that never calls back into the kernel — there is no trap frame to
// save mid-instruction. The actual dispatcher pass is therefore
// deferred to the running task's next suspension point (Yield, Delay,
// or a blocking primitive); Tick keeps delay aging and the timer
// wheel running on real wall-clock cadence regardless of whether the
// running task ever yields.
func (k *Kernel) Tick() {
	k.lock()
	k.ticks++
	k.fireExpiredTimersLocked()
	k.ageDelaysLocked()
	k.unlock()
}

// Ticks returns the number of ticks observed so far.
func (k *Kernel) Ticks() uint32 {
	k.lock()
	defer k.unlock()
	return k.ticks
}

// Uptime returns milliseconds since the HAL's epoch.
func (k *Kernel) Uptime() uint64 {
	return k.hal.ReadMicros() / 1000
}
