package linmo

// TimerMode selects one-shot versus auto-reload behavior for a
// SoftwareTimer.
type TimerMode uint8

const (
	TimerDisabled TimerMode = iota
	TimerOneShot
	TimerAutoreload
)

// maxTimerFiresPerTick bounds tick-handler latency by capping how
// many expired timers are drained in a single tick.
const maxTimerFiresPerTick = 8

// TimerCallback is invoked in tick (interrupt) context while the
// expired timer is processed. It is a distinct type precisely so it
// cannot be handed a *Kernel and call a blocking primitive: it must
// be non-blocking and must not allocate.
type TimerCallback func(arg any)

// SoftwareTimer is a one-shot or auto-reload tick-driven timer.
type SoftwareTimer struct {
	k           *Kernel
	id          uint32
	callback    TimerCallback
	arg         any
	periodTicks uint32
	deadline    uint32
	mode        TimerMode
}

// ID returns the timer's stable identifier (master-list key).
func (t *SoftwareTimer) ID() uint32 { return t.id }

// NewTimer creates a disabled timer with the given period in
// milliseconds, converted to ticks via the kernel's configured tick
// duration (WithTickDurationMs).
func (k *Kernel) NewTimer(periodMs uint32, callback TimerCallback, arg any) *SoftwareTimer {
	k.lock()
	defer k.unlock()
	id := k.nextTimerID
	k.nextTimerID++
	t := &SoftwareTimer{
		k:           k,
		id:          id,
		callback:    callback,
		arg:         arg,
		periodTicks: msToTicksLocked(k, periodMs),
		mode:        TimerDisabled,
	}
	k.masterTimers[id] = t
	return t
}

func msToTicksLocked(k *Kernel, ms uint32) uint32 {
	if k.tickMs == 0 {
		return ms
	}
	n := ms / k.tickMs
	if n == 0 {
		n = 1
	}
	return n
}

// Start arms the timer in the given mode (ONESHOT or AUTORELOAD),
// firing for the first time after one period has elapsed.
func (t *SoftwareTimer) Start(mode TimerMode) {
	k := t.k
	k.lock()
	defer k.unlock()
	if t.mode != TimerDisabled {
		t.removeActiveLocked()
	}
	t.mode = mode
	t.deadline = k.ticks + t.periodTicks
	k.insertActiveLocked(t)
}

// Stop disarms the timer; it will not fire again until Start is
// called.
func (t *SoftwareTimer) Stop() {
	k := t.k
	k.lock()
	defer k.unlock()
	if t.mode != TimerDisabled {
		t.removeActiveLocked()
	}
	t.mode = TimerDisabled
}

// Mode reports the timer's current mode.
func (t *SoftwareTimer) Mode() TimerMode {
	k := t.k
	k.lock()
	defer k.unlock()
	return t.mode
}

// insertActiveLocked inserts t into the deadline-sorted active list.
// The list is typically small (a handful of live timers), so a linear
// insertion is the simplest correct choice.
func (k *Kernel) insertActiveLocked(t *SoftwareTimer) {
	i := 0
	for i < len(k.activeTimers) && k.activeTimers[i].deadline <= t.deadline {
		i++
	}
	k.activeTimers = append(k.activeTimers, nil)
	copy(k.activeTimers[i+1:], k.activeTimers[i:])
	k.activeTimers[i] = t
}

func (t *SoftwareTimer) removeActiveLocked() {
	k := t.k
	for i, v := range k.activeTimers {
		if v.id == t.id {
			k.activeTimers = append(k.activeTimers[:i], k.activeTimers[i+1:]...)
			return
		}
	}
}

// fireExpiredTimersLocked drains at most maxTimerFiresPerTick expired
// timers from the head of the active list, then invokes each
// callback, re-arming AUTORELOAD timers relative to the firing moment
// and disabling ONESHOT ones. Must be called with the kernel lock
// held, from Tick.
func (k *Kernel) fireExpiredTimersLocked() {
	var fired []*SoftwareTimer
	for len(k.activeTimers) > 0 && len(fired) < maxTimerFiresPerTick {
		head := k.activeTimers[0]
		if head.deadline > k.ticks {
			break
		}
		k.activeTimers = k.activeTimers[1:]
		fired = append(fired, head)
	}

	for _, t := range fired {
		if t.callback != nil {
			t.callback(t.arg)
		}
		if t.mode == TimerAutoreload {
			t.deadline = k.ticks + t.periodTicks
			k.insertActiveLocked(t)
		} else {
			t.mode = TimerDisabled
		}
	}
}

// Destroy removes the timer from the master list, first stopping it
// if active.
func (t *SoftwareTimer) Destroy() {
	k := t.k
	k.lock()
	defer k.unlock()
	if t.mode != TimerDisabled {
		t.removeActiveLocked()
	}
	delete(k.masterTimers, t.id)
}
