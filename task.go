package linmo

import "reflect"

// Spawn creates a new task in state READY, running entry on a stack of
// at least stackSize bytes at the given priority. Exhausting the
// configured task capacity is an allocation failure on the spawn path
// and is fatal.
func (k *Kernel) Spawn(entry func(), stackSize int, prio Priority) (TaskID, error) {
	if !validPriority(prio) {
		return 0, TaskInvalidPrio
	}
	k.lock()
	id := k.spawnLocked(entry, stackSize, prio)
	k.unlock()
	return id, nil
}

func (k *Kernel) spawnLocked(entry func(), stackSize int, prio Priority) TaskID {
	if k.maxTasks > 0 && len(k.tasks) >= k.maxTasks {
		panicKernel(TCBAlloc, "task capacity %d exhausted", k.maxTasks)
	}
	if stackSize < minStackSize {
		stackSize = minStackSize
	}
	stack := k.heap.Alloc(stackSize)
	if stack == nil {
		panicKernel(StackAlloc, "cannot allocate %d-byte stack", stackSize)
	}
	id := k.nextTID
	k.nextTID++
	t := newTCB(id, entry, stack, prio)
	t.entry = k.wrapTaskEntry(entry)
	k.tasks[id] = t
	k.order = append(k.order, id)
	t.state = StateReady
	buildInitialContext(t, &k.mu, k.taskReturned)
	k.log.Infof("task %d spawned, priority=%#x", id, prio)
	return id
}

// taskReturned is invoked (from the task's own goroutine, after its
// entry function returns normally) to retire the task: it is removed
// from the task table exactly as Cancel would, then a reschedule runs
// since the caller's own goroutine is the one that must hand off to
// whichever task runs next.
func (k *Kernel) taskReturned(t *tcb) {
	k.lock()
	k.removeTaskLocked(t.id)
	k.log.Infof("task %d returned", t.id)
	if len(k.order) == 0 {
		// Nothing left to schedule; park forever rather than panic,
		// since an orderly shutdown is not a protocol violation.
		k.unlock()
		select {}
	}
	next := k.selectReadyLocked()
	k.current = next
	nextTCB := k.tasks[next]
	// This goroutine is finished and must not also unlock here: next's
	// own resumption path (its prior switchTo call, or
	// buildInitialContext if this is its first-ever run) performs the
	// matching mu.Unlock() once it wakes, exactly as it would if a
	// live task had switched to it instead of this exiting one. This
	// goroutine hands off and simply returns, never parking on its own
	// context again.
	nextTCB.ctx.restoreContext(1)
}

func (k *Kernel) removeTaskLocked(id TaskID) {
	if t, ok := k.tasks[id]; ok {
		k.heap.Free(t.stack)
	}
	delete(k.tasks, id)
	for i, v := range k.order {
		if v == id {
			k.order = append(k.order[:i], k.order[i+1:]...)
			break
		}
	}
	if k.lastHint == id {
		k.lastHint = 0
	}
}

// Cancel destroys a task. Cancelling a BLOCKED task is forbidden: it
// would otherwise leave a dangling id inside whatever wait set the
// task sits on. Cancelling the running task, or the caller's own id,
// is also forbidden.
func (k *Kernel) Cancel(id TaskID) error {
	k.lock()
	defer k.unlock()
	t, ok := k.tasks[id]
	if !ok {
		return TaskNotFound
	}
	if id == k.current || t.state == StateRunning {
		return TaskCantRemove
	}
	if t.state == StateBlocked {
		return TaskBusy
	}
	k.removeTaskLocked(id)
	k.log.Infof("task %d cancelled", id)
	return nil
}

// Yield voluntarily relinquishes the CPU: the caller goes back to
// READY (not removed, not blocked) and the dispatcher picks the next
// ready task.
func (k *Kernel) Yield() {
	k.lock()
	cur := k.mustTask(k.current)
	k.rescheduleLocked(cur, true)
}

// Delay blocks the calling task for at least n ticks. n == 0 is a
// no-op yield.
func (k *Kernel) Delay(ticks uint16) {
	if ticks == 0 {
		k.Yield()
		return
	}
	k.lock()
	cur := k.mustTask(k.current)
	cur.state = StateBlocked
	cur.waitKind = waitDelay
	cur.delay = ticks
	k.blockCurrentLocked()
}

// WFI ("wait for interrupt") calls the HAL's CPUIdle hook, then yields
// exactly as Yield does: the dispatcher picks the next ready task.
func (k *Kernel) WFI() {
	k.hal.CPUIdle()
	k.Yield()
}

// Suspend moves a task to SUSPENDED. A RUNNING task cannot be
// suspended (TaskCantSuspend). A BLOCKED task stays BLOCKED with a
// pending suspend request: it moves to SUSPENDED when its block
// condition is satisfied, so it runs again only once both the
// suspend is lifted and the original block condition is satisfied.
func (k *Kernel) Suspend(id TaskID) error {
	k.lock()
	defer k.unlock()
	t, ok := k.tasks[id]
	if !ok {
		return TaskNotFound
	}
	if t.state == StateRunning {
		return TaskCantSuspend
	}
	if t.state == StateBlocked {
		t.suspendRequested = true
		return nil
	}
	t.state = StateSuspended
	return nil
}

// Resume lifts a suspension. If the task was BLOCKED when suspended
// (suspendRequested, not actually moved to SUSPENDED), this simply
// clears the flag: the task resumes exactly when its original block
// condition is satisfied.
func (k *Kernel) Resume(id TaskID) error {
	k.lock()
	defer k.unlock()
	t, ok := k.tasks[id]
	if !ok {
		return TaskNotFound
	}
	if t.suspendRequested {
		t.suspendRequested = false
		return nil
	}
	if t.state != StateSuspended {
		return TaskCantResume
	}
	t.state = StateReady
	return nil
}

// SetPriority changes a task's base weight, reloading its live
// countdown.
func (k *Kernel) SetPriority(id TaskID, prio Priority) error {
	if !validPriority(prio) {
		return TaskInvalidPrio
	}
	k.lock()
	defer k.unlock()
	t, ok := k.tasks[id]
	if !ok {
		return TaskNotFound
	}
	t.priority = newPriorityWord(prio)
	return nil
}

// SetRTHook installs or clears the task's real-time hook pointer. A
// non-nil hook removes the task from round-robin consideration; it is
// then chosen only via the kernel's RTScheduler.
func (k *Kernel) SetRTHook(id TaskID, hook any) error {
	k.lock()
	defer k.unlock()
	t, ok := k.tasks[id]
	if !ok {
		return TaskNotFound
	}
	t.rtHook = hook
	return nil
}

// CurrentID returns the running task's id.
func (k *Kernel) CurrentID() TaskID {
	k.lock()
	defer k.unlock()
	return k.current
}

// TaskCount returns the number of live tasks.
func (k *Kernel) TaskCount() int {
	k.lock()
	defer k.unlock()
	return len(k.tasks)
}

// State returns a task's current lifecycle state.
func (k *Kernel) State(id TaskID) (State, error) {
	k.lock()
	defer k.unlock()
	t, ok := k.tasks[id]
	if !ok {
		return 0, TaskNotFound
	}
	return t.state, nil
}

// IDRef looks a task up by its entry function. Go function values are
// not comparable, so identity is compared via reflect's code-pointer
// extraction; as with any function-pointer comparison, two distinct
// closures over the same underlying function literal are considered
// equal.
func (k *Kernel) IDRef(entry func()) (TaskID, error) {
	target := reflect.ValueOf(entry).Pointer()
	k.lock()
	defer k.unlock()
	for _, id := range k.order {
		t := k.tasks[id]
		if t.entryPtr == target {
			return id, nil
		}
	}
	return 0, TaskNotFound
}
