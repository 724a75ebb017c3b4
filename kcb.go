package linmo

import (
	"fmt"
	"sync"
)

// RTScheduler is the pluggable real-time scheduling hook. It is
// consulted first on every ready-selection pass; if it returns a
// valid, READY task id, that choice short-circuits the round-robin
// search. Tasks with a non-nil rt_hook are otherwise skipped by the
// round robin entirely (they are only ever chosen through this hook).
type RTScheduler func(k *Kernel) (TaskID, bool)

// Option configures a Kernel at construction time.
type Option interface {
	apply(*Kernel) error
}

type optionFunc func(*Kernel) error

func (f optionFunc) apply(k *Kernel) error { return f(k) }

// WithPreemptive sets the scheduler's preemptive/cooperative mode.
func WithPreemptive(preemptive bool) Option {
	return optionFunc(func(k *Kernel) error {
		k.preemptive = preemptive
		return nil
	})
}

// WithRTScheduler installs the real-time scheduling hook.
func WithRTScheduler(fn RTScheduler) Option {
	return optionFunc(func(k *Kernel) error {
		k.rtSched = fn
		return nil
	})
}

// WithHeap installs a custom Heap; the default is NewSimpleHeap().
func WithHeap(h Heap) Option {
	return optionFunc(func(k *Kernel) error {
		if h == nil {
			return fmt.Errorf("linmo: nil heap")
		}
		k.heap = h
		return nil
	})
}

// WithHAL installs a custom HAL; the default is NewNoopHAL().
func WithHAL(h HAL) Option {
	return optionFunc(func(k *Kernel) error {
		if h == nil {
			return fmt.Errorf("linmo: nil hal")
		}
		k.hal = h
		return nil
	})
}

// WithMaxTasks bounds the number of concurrently live tasks. Zero
// (the default) means unbounded.
func WithMaxTasks(n int) Option {
	return optionFunc(func(k *Kernel) error {
		if n < 0 {
			return fmt.Errorf("linmo: negative max tasks")
		}
		k.maxTasks = n
		return nil
	})
}

// WithTickDurationMs sets the nominal duration of one scheduler tick
// in milliseconds, used to convert software timer periods (specified
// in ms) to ticks. The default is 1ms.
func WithTickDurationMs(ms uint32) Option {
	return optionFunc(func(k *Kernel) error {
		if ms == 0 {
			return fmt.Errorf("linmo: zero tick duration")
		}
		k.tickMs = ms
		return nil
	})
}

// WithLogger installs a logger; see logging.go. The default is a
// no-op logger.
func WithLogger(l Logger) Option {
	return optionFunc(func(k *Kernel) error {
		if l == nil {
			return fmt.Errorf("linmo: nil logger")
		}
		k.log = l
		return nil
	})
}

// Kernel is the process-wide kernel control block. It is created
// explicitly by NewKernel (rather than a package-level global) so
// that tests can run multiple independent kernels in one process;
// applications wanting the conventional single-handle shape store the
// *Kernel returned by NewKernel in exactly one place and thread it no
// further than their own app_main.
type Kernel struct {
	mu sync.Mutex // the one critical-section lock; irq_save/irq_restore collapse to this on a single hardware thread

	tasks   map[TaskID]*tcb
	order   []TaskID // circular list of all TCBs, in the order ready-selection walks them
	current TaskID
	nextTID TaskID

	preemptive  bool
	lastHint    TaskID
	rtSched     RTScheduler
	switchCount int
	maxTasks    int

	ticks uint32

	activeTimers []*SoftwareTimer // deadline-sorted; see timer.go
	masterTimers map[uint32]*SoftwareTimer
	nextTimerID  uint32
	tickMs       uint32

	heap Heap
	hal  HAL
	log  Logger

	idle TaskID
}

// NewKernel constructs a Kernel. It does not spawn any tasks; call
// Spawn for app_main's initial tasks and Boot once to start running.
func NewKernel(opts ...Option) (*Kernel, error) {
	k := &Kernel{
		tasks:        make(map[TaskID]*tcb),
		masterTimers: make(map[uint32]*SoftwareTimer),
		heap:         NewSimpleHeap(),
		hal:          NewNoopHAL(),
		log:          noopLogger{},
		nextTID:      1,
		nextTimerID:  1,
		tickMs:       1,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(k); err != nil {
			return nil, err
		}
	}
	return k, nil
}

// lock enters the kernel's critical section. Paired with either unlock
// (non-blocking paths) or a switchTo call, which releases it from the
// resuming side — see context.go.
func (k *Kernel) lock() { k.mu.Lock() }

func (k *Kernel) unlock() { k.mu.Unlock() }

// mustTask fetches a tcb by id while the lock is held. A missing id
// here is an invariant breach, not a lookup miss callers can handle;
// ordinary lookups return TaskNotFound instead.
func (k *Kernel) mustTask(id TaskID) *tcb {
	t, ok := k.tasks[id]
	if !ok {
		panicKernel(Unknown, "task %d missing from slab", id)
	}
	return t
}
