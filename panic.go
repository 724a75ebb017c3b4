package linmo

import "fmt"

// wrapTaskEntry adapts a task's entry function so that a fatal kernel
// panic raised while it runs is logged and handed to the HAL's
// PanicHalt before the goroutine unwinds. PanicHalt is expected never to return on
// real hardware; on the no-op/test HAL it does return, in which case
// the panic is re-raised so the process still stops rather than
// silently swallowing an invariant breach.
func (k *Kernel) wrapTaskEntry(entry func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				kp, ok := r.(*KernelPanic)
				if !ok {
					kp = &KernelPanic{Code: Unknown, Message: fmt.Sprint(r)}
				}
				k.log.Errorf("kernel panic: %s", kp.Error())
				k.hal.PanicHalt(kp)
				panic(kp)
			}
		}()
		entry()
	}
}
