package linmo

import "fmt"

// Errno is a stable, negative-valued error code returned by recoverable
// kernel API calls. It satisfies the error interface and errors.Is.
type Errno int32

// Stable error codes. Values are part of the public API and must not be
// renumbered; append new codes at the end.
const (
	OK Errno = -iota
	Fail
	TaskBusy
	TaskNotFound
	TaskCantRemove
	TaskCantSuspend
	TaskCantResume
	TaskInvalidPrio
	SemOperation
	NotOwner
	Timeout
	MQNotEmpty
	StackCheck
	StackAlloc
	TCBAlloc
	KCBAlloc
	NoTasks
	Unknown
)

var errnoNames = map[Errno]string{
	OK:              "OK",
	Fail:            "FAIL",
	TaskBusy:        "TASK_BUSY",
	TaskNotFound:    "TASK_NOT_FOUND",
	TaskCantRemove:  "TASK_CANT_REMOVE",
	TaskCantSuspend: "TASK_CANT_SUSPEND",
	TaskCantResume:  "TASK_CANT_RESUME",
	TaskInvalidPrio: "TASK_INVALID_PRIO",
	SemOperation:    "SEM_OPERATION",
	NotOwner:        "NOT_OWNER",
	Timeout:         "TIMEOUT",
	MQNotEmpty:      "MQ_NOTEMPTY",
	StackCheck:      "STACK_CHECK",
	StackAlloc:      "STACK_ALLOC",
	TCBAlloc:        "TCB_ALLOC",
	KCBAlloc:        "KCB_ALLOC",
	NoTasks:         "NO_TASKS",
	Unknown:         "UNKNOWN",
}

// Error implements the error interface. OK never surfaces as an error
// from the public API (callers compare against OK directly) but still
// has a printable form for logging.
func (e Errno) Error() string {
	if name, ok := errnoNames[e]; ok {
		return name
	}
	return fmt.Sprintf("errno(%d)", int32(e))
}

// KernelPanic is the value recovered from a fatal invariant breach. The
// scheduler and synchronization primitives panic with this type rather
// than an arbitrary value so that a recovering supervisor (or a test)
// can distinguish kernel panics from programmer bugs elsewhere.
type KernelPanic struct {
	Code    Errno
	Message string
}

func (p *KernelPanic) Error() string {
	if p.Message == "" {
		return p.Code.Error()
	}
	return fmt.Sprintf("%s: %s", p.Code.Error(), p.Message)
}

// panicKernel raises a fatal invariant breach. Panics are reserved
// for invariant violations, never for recoverable API misuse.
func panicKernel(code Errno, format string, args ...any) {
	panic(&KernelPanic{Code: code, Message: fmt.Sprintf(format, args...)})
}
