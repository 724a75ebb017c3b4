package linmo

import "reflect"

// State is a task's position in the scheduler state machine.
type State uint8

const (
	StateStopped State = iota
	StateReady
	StateRunning
	StateBlocked
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	case StateSuspended:
		return "SUSPENDED"
	default:
		return "UNKNOWN"
	}
}

// canaryWord is the fixed sentinel written at both ends of a task's
// stack region.
const canaryWord uint32 = 0xC5C5C5C5

const minStackSize = 256 + isrFrameSize

// isrFrameSize is the reserved red zone: bytes at the top of the
// stack that a peak-usage interrupt trap can use without overflowing
// the allocation.
const isrFrameSize = 128

// tcb is a Task Control Block. Wait sets, the ready list, and the
// timer wheel all reference tasks by TaskID, never by *tcb — the
// kernel owns the single id-indexed table of tcb values and
// everything else holds an index into it, so a cancelled task can
// never leave a dangling pointer behind.
type tcb struct {
	id               TaskID
	ctx              *taskContext
	stack            []byte // simulated stack region; canary words live at both ends
	entry            func()
	entryPtr         uintptr // code pointer of the original, unwrapped entry; see IDRef
	priority         priorityWord
	state            State
	delay            uint16 // ticks remaining while BLOCKED on a timed sleep
	rtHook           any    // non-nil: skipped by round robin, chosen only by the RT hook
	suspendRequested bool
	waitKind         waitKind // which wait set, if any, this task is parked on
}

// waitKind records what a BLOCKED task is waiting for. ageDelaysLocked
// ages only tasks whose waitKind is waitDelay; for the other kinds the
// wait set itself is the source of truth.
type waitKind uint8

const (
	waitNone waitKind = iota
	waitDelay
	waitSemaphore
	waitMutex
	waitCond
)

// newTCB builds a tcb around an already-allocated stack region. The
// caller is responsible for sizing the stack (minStackSize or more)
// and for eventually returning it to the heap it came from.
func newTCB(id TaskID, entry func(), stack []byte, prio Priority) *tcb {
	writeCanary(stack)
	return &tcb{
		id:       id,
		stack:    stack,
		entry:    entry,
		entryPtr: reflect.ValueOf(entry).Pointer(),
		priority: newPriorityWord(prio),
		state:    StateStopped,
	}
}

func writeCanary(stack []byte) {
	putU32(stack, 0, canaryWord)
	putU32(stack, len(stack)-4, canaryWord)
}

// wake transitions a BLOCKED task out of its wait. A task that was
// suspended while BLOCKED parks in SUSPENDED instead of READY: it
// runs again only once Resume is also called, so suspension and the
// block condition must both be lifted before it is dispatchable.
func (t *tcb) wake() {
	t.waitKind = waitNone
	if t.suspendRequested {
		t.suspendRequested = false
		t.state = StateSuspended
		return
	}
	t.state = StateReady
}

// canaryIntact checks both ends of the stack for corruption.
func (t *tcb) canaryIntact() bool {
	return getU32(t.stack, 0) == canaryWord && getU32(t.stack, len(t.stack)-4) == canaryWord
}

func putU32(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

func getU32(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}
