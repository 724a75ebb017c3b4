package simhal

import (
	"fmt"
	"os"
	"time"

	"github.com/visitorckw/linmo"
)

// HAL is a development-machine implementation of linmo.HAL: CPUIdle
// sleeps briefly instead of halting the core, PanicHalt prints the
// panic and exits the process instead of spinning forever in a halt
// loop.
type HAL struct {
	start time.Time
}

// New returns a HAL whose ReadMicros clock starts now.
func New() *HAL {
	return &HAL{start: time.Now()}
}

func (h *HAL) HardwareInit() {}

func (h *HAL) CPUIdle() { time.Sleep(time.Millisecond) }

func (h *HAL) PanicHalt(p *linmo.KernelPanic) {
	fmt.Fprintln(os.Stderr, "kernel panic:", p.Error())
	os.Exit(1)
}

func (h *HAL) ReadMicros() uint64 {
	return uint64(time.Since(h.start).Microseconds())
}

func (h *HAL) TimerEnable()  {}
func (h *HAL) TimerDisable() {}
