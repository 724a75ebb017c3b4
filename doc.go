// Package linmo implements the core of a small preemptive real-time
// kernel: a weighted round-robin scheduler with a pluggable real-time
// hook, a goroutine-backed context-switch engine, and the blocking
// synchronization family tasks use to coordinate — counting
// semaphores, non-recursive mutexes, condition variables, message
// queues, byte pipes, and a tick-driven software timer wheel.
//
// # Architecture
//
// A [Kernel] is the process-wide control block. It owns the task
// table, the ready/blocked/suspended state machine, the active timer
// list, and a single critical-section lock standing in for the
// irq_save+spin_lock discipline a bare-metal kernel would use. Every
// task is a real goroutine, parked on a single-slot channel between
// scheduler-visible suspension points (see context.go); at most one
// task's code is ever "live" in the scheduling sense at a time, since
// control only ever passes from one task to the next via an explicit
// handoff.
//
// # Boot sequence
//
//	k, err := linmo.NewKernel(linmo.WithHAL(myHAL))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	k.Boot(func(k *linmo.Kernel) bool {
//	    k.Spawn(myTaskFn, 2048, linmo.PriorityNormal)
//	    return true // preemptive
//	})
//
// Boot never returns, mirroring dispatch_init on real hardware: once
// the first task is launched, control only flows through task code,
// Tick (driven by a real or simulated timer source), and the
// synchronization primitives.
//
// # Suspension points
//
// Only Yield, Delay, WFI, Semaphore.Wait, Mutex.Lock (slow path),
// Mutex.TimedLock, CondVar.Wait, CondVar.TimedWait, and
// Pipe.Read/Write (blocking variants) ever block the calling task. Message queues and the
// non-blocking pipe endpoints never suspend the caller.
//
// # Errors
//
// Recoverable API misuse returns an [Errno]. Invariant breaches —
// stack canary corruption, an exhausted ready-selection search, use
// of a destroyed or inconsistent object — panic with a [*KernelPanic],
// which every spawned task's entry point recovers from in order to
// hand it to the HAL's PanicHalt before the process stops.
package linmo
