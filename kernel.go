package linmo

// AppMain is the application entry point: it spawns the application's
// initial tasks on the supplied Kernel and returns true to request
// preemptive scheduling, false for cooperative.
type AppMain func(k *Kernel) (preemptive bool)

// Boot runs the boot sequence: hardware init -> app_main -> spawn the
// idle task -> enable the tick source -> hand control to the first
// ready task.
//
// Boot must be called from the goroutine that should permanently
// represent "the boot stack"; it never returns to its caller once a
// task has been launched.
func (k *Kernel) Boot(app AppMain) {
	k.hal.HardwareInit()

	preemptive := app(k)

	k.lock()
	k.preemptive = preemptive

	if len(k.order) == 0 {
		panicKernel(NoTasks, "app_main spawned no tasks")
	}
	k.log.Infof("booting: %d tasks, preemptive=%v", len(k.order), k.preemptive)

	k.idle = k.spawnLocked(k.idleLoop, minStackSize, PriorityNormal)

	k.hal.TimerEnable()

	boot := &tcb{id: 0, ctx: newTaskContext(), state: StateRunning}

	next := k.selectReadyLocked()
	k.current = next
	nextTCB := k.tasks[next]

	switchTo(&k.mu, boot, nextTCB)
	// Unreachable in practice: the boot pseudo-task is never resumed.
	select {}
}

// Preemptive reports the scheduling mode chosen by app_main (or
// WithPreemptive before Boot).
func (k *Kernel) Preemptive() bool {
	k.lock()
	defer k.unlock()
	return k.preemptive
}

// IdleID returns the id of the idle task spawned by Boot, or 0 before
// Boot has run.
func (k *Kernel) IdleID() TaskID {
	k.lock()
	defer k.unlock()
	return k.idle
}

// idleLoop is the body of the idle task spawned by Boot. The idle task
// runs at PriorityNormal, so that when every other task is blocked the
// ready walk reaches it well within schedMaxIterations. Like any other
// task it is picked whenever its countdown reaches zero, including
// while other tasks are ready.
func (k *Kernel) idleLoop() {
	for {
		k.hal.CPUIdle()
		k.Yield()
	}
}
