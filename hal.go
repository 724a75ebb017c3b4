package linmo

import "time"

// Heap is the allocator interface the kernel consumes; it never owns
// allocation itself. Implementations must be safe to call from both
// task and tick-callback context.
type Heap interface {
	Alloc(n int) []byte
	Free(buf []byte)
}

// HAL is the hardware abstraction layer the kernel drives: UART/tick
// bring-up, idle wait, panic halt, and the tick source. This kernel
// is a pure simulation (no real register frame to seed), so the work
// of "launching the first task" that dispatch_init would do on real
// hardware is done by Kernel.Boot via the goroutine context engine in
// context.go.
type HAL interface {
	// HardwareInit brings up the tick source (and, on real hardware,
	// the UART). Called once before app_main.
	HardwareInit()

	// CPUIdle performs a low-power wait for interrupt. Called by WFI
	// and by the idle task each time it runs.
	CPUIdle()

	// PanicHalt is the last step of a fatal panic: disable interrupts
	// and halt forever. Never returns on real hardware.
	PanicHalt(p *KernelPanic)

	// ReadMicros returns microseconds since boot.
	ReadMicros() uint64

	// TimerEnable/TimerDisable gate the hardware tick source.
	TimerEnable()
	TimerDisable()
}

// simpleHeap is a trivial Heap backed by the Go allocator, suitable
// for hosting the kernel on a development machine or in tests. It
// makes no first-fit/coalescing claims since Go's allocator already
// does that job.
type simpleHeap struct{}

// NewSimpleHeap returns a Heap backed directly by Go's allocator.
func NewSimpleHeap() Heap { return simpleHeap{} }

func (simpleHeap) Alloc(n int) []byte { return make([]byte, n) }

func (simpleHeap) Free([]byte) {}

// noopHAL is a minimal HAL used when the caller does not supply one
// (e.g. in unit tests that drive the tick handler directly rather
// than through a real or simulated timer source).
type noopHAL struct{ start time.Time }

// NewNoopHAL returns a HAL with no real hardware behind it: CPUIdle
// returns immediately, the tick source is never actually armed.
func NewNoopHAL() HAL { return &noopHAL{start: time.Now()} }

func (h *noopHAL) HardwareInit() {}

func (h *noopHAL) CPUIdle() {}

func (h *noopHAL) PanicHalt(*KernelPanic) {}

func (h *noopHAL) ReadMicros() uint64 { return uint64(time.Since(h.start).Microseconds()) }

func (h *noopHAL) TimerEnable() {}

func (h *noopHAL) TimerDisable() {}
