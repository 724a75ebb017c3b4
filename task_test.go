package linmo

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnAssignsMonotonicIDs(t *testing.T) {
	k := newTestKernel(t)

	a, err := k.Spawn(func() {}, minStackSize, PriorityNormal)
	require.NoError(t, err)
	b, err := k.Spawn(func() {}, minStackSize, PriorityNormal)
	require.NoError(t, err)

	assert.Equal(t, TaskID(1), a)
	assert.Equal(t, TaskID(2), b)
	assert.Equal(t, 2, k.TaskCount())
}

func TestSpawnRejectsUnnamedPriority(t *testing.T) {
	k := newTestKernel(t)
	_, err := k.Spawn(func() {}, minStackSize, Priority(0x42))
	assert.Equal(t, TaskInvalidPrio, err)
	assert.Equal(t, 0, k.TaskCount())
}

func TestSpawnClampsUndersizedStack(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.Spawn(func() {}, 16, PriorityNormal)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(k.tasks[id].stack), minStackSize)
	assert.True(t, k.tasks[id].canaryIntact())
}

func TestSpawnPanicsWhenTaskCapacityExhausted(t *testing.T) {
	k, err := NewKernel(WithMaxTasks(1))
	require.NoError(t, err)
	_, err = k.Spawn(func() {}, minStackSize, PriorityNormal)
	require.NoError(t, err)

	assert.PanicsWithError(t, "TCB_ALLOC: task capacity 1 exhausted", func() {
		_, _ = k.Spawn(func() {}, minStackSize, PriorityNormal)
	})
}

func TestCancelErrors(t *testing.T) {
	k := newTestKernel(t)

	assert.Equal(t, TaskNotFound, k.Cancel(99))

	running := addBareTask(k, PriorityNormal, StateRunning)
	k.current = running
	assert.Equal(t, TaskCantRemove, k.Cancel(running))

	blocked := addBareTask(k, PriorityNormal, StateBlocked)
	assert.Equal(t, TaskBusy, k.Cancel(blocked))
}

func TestCancelRemovesReadyTask(t *testing.T) {
	k := newTestKernel(t)
	id, err := k.Spawn(func() {}, minStackSize, PriorityNormal)
	require.NoError(t, err)

	require.NoError(t, k.Cancel(id))
	assert.Equal(t, 0, k.TaskCount())
	_, err = k.State(id)
	assert.Equal(t, TaskNotFound, err)
}

func TestSuspendResumeReadyTask(t *testing.T) {
	k := newTestKernel(t)
	id := addBareTask(k, PriorityNormal, StateReady)

	require.NoError(t, k.Suspend(id))
	st, err := k.State(id)
	require.NoError(t, err)
	assert.Equal(t, StateSuspended, st)

	require.NoError(t, k.Resume(id))
	st, err = k.State(id)
	require.NoError(t, err)
	assert.Equal(t, StateReady, st)
}

func TestSuspendErrors(t *testing.T) {
	k := newTestKernel(t)
	assert.Equal(t, TaskNotFound, k.Suspend(7))

	running := addBareTask(k, PriorityNormal, StateRunning)
	assert.Equal(t, TaskCantSuspend, k.Suspend(running))

	ready := addBareTask(k, PriorityNormal, StateReady)
	assert.Equal(t, TaskCantResume, k.Resume(ready))
}

func TestSuspendOfBlockedTaskDefersResumption(t *testing.T) {
	// Suspending a BLOCKED task does not yank it off its wait set; it
	// parks in SUSPENDED when the block condition is satisfied, and
	// only a Resume after that makes it READY again.
	k := newTestKernel(t)
	id := addBareTask(k, PriorityNormal, StateBlocked)
	tsk := k.tasks[id]
	tsk.waitKind = waitDelay
	tsk.delay = 1

	require.NoError(t, k.Suspend(id))
	assert.Equal(t, StateBlocked, tsk.state, "still blocked until the delay expires")
	assert.True(t, tsk.suspendRequested)

	k.ageDelaysLocked()
	assert.Equal(t, StateSuspended, tsk.state, "delay expired while suspended")

	require.NoError(t, k.Resume(id))
	assert.Equal(t, StateReady, tsk.state)
}

func TestResumeBeforeBlockConditionClearsRequestOnly(t *testing.T) {
	k := newTestKernel(t)
	id := addBareTask(k, PriorityNormal, StateBlocked)
	tsk := k.tasks[id]
	tsk.waitKind = waitDelay
	tsk.delay = 2

	require.NoError(t, k.Suspend(id))
	require.NoError(t, k.Resume(id))
	assert.False(t, tsk.suspendRequested)
	assert.Equal(t, StateBlocked, tsk.state, "resume before expiry leaves the task blocked")

	k.ageDelaysLocked()
	k.ageDelaysLocked()
	assert.Equal(t, StateReady, tsk.state)
}

func TestSetPriorityReloadsCountdown(t *testing.T) {
	k := newTestKernel(t)
	id := addBareTask(k, PriorityNormal, StateReady)

	assert.Equal(t, TaskInvalidPrio, k.SetPriority(id, Priority(0x11)))
	assert.Equal(t, TaskNotFound, k.SetPriority(42, PriorityHigh))

	require.NoError(t, k.SetPriority(id, PriorityHigh))
	assert.Equal(t, PriorityHigh, k.tasks[id].priority.base)
	assert.Equal(t, PriorityHigh, k.tasks[id].priority.counter)
}

func TestSetRTHookExcludesTaskFromRoundRobin(t *testing.T) {
	k := newTestKernel(t)
	hooked := addBareTask(k, PriorityCrit, StateReady)
	fallback := addBareTask(k, PriorityCrit, StateReady)

	require.NoError(t, k.SetRTHook(hooked, struct{}{}))
	assert.Equal(t, fallback, k.selectReadyLocked())
}

func TestIDRefFindsTaskByEntry(t *testing.T) {
	k := newTestKernel(t)
	entryA := func() {}
	entryB := func() {}

	a, err := k.Spawn(entryA, minStackSize, PriorityNormal)
	require.NoError(t, err)
	_, err = k.Spawn(entryB, minStackSize, PriorityNormal)
	require.NoError(t, err)

	got, err := k.IDRef(entryA)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = k.IDRef(func() {})
	assert.Equal(t, TaskNotFound, err)
}

func TestDelayBlocksForAtLeastNTicks(t *testing.T) {
	k := newTestKernel(t)

	started := make(chan struct{})
	woke := make(chan struct{})
	bootInBackground(k, func(k *Kernel) bool {
		k.Spawn(func() {
			close(started)
			k.Delay(3)
			close(woke)
		}, minStackSize, PriorityCrit)
		return false
	})

	<-started
	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 2; i++ {
		k.Tick()
		time.Sleep(10 * time.Millisecond)
		select {
		case <-woke:
			t.Fatalf("woke after only %d ticks", i+1)
		default:
		}
	}

	k.Tick()
	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("never woke after the third tick")
	}
}

func TestWeightedRoundRobinFairness(t *testing.T) {
	// Two READY tasks in a selection loop: the HIGH task (base 0x07)
	// should be chosen roughly 0x1F/0x07 times as often as the NORMAL
	// one (base 0x1F) over a long horizon.
	k := newTestKernel(t)
	normal := addBareTask(k, PriorityNormal, StateReady)
	high := addBareTask(k, PriorityHigh, StateReady)

	counts := map[TaskID]int{}
	for i := 0; i < 2000; i++ {
		id := k.selectReadyLocked()
		counts[id]++
		k.tasks[id].state = StateReady
		k.current = id
	}

	require.Positive(t, counts[normal])
	ratio := float64(counts[high]) / float64(counts[normal])
	assert.Greater(t, ratio, 3.0)
	assert.Less(t, ratio, 6.0)
}

func TestYieldRotatesBetweenEqualPriorityTasks(t *testing.T) {
	k := newTestKernel(t)

	var a, b atomic.Int64
	bootInBackground(k, func(k *Kernel) bool {
		k.Spawn(func() {
			for {
				a.Add(1)
				k.Yield()
			}
		}, minStackSize, PriorityCrit)
		k.Spawn(func() {
			for {
				b.Add(1)
				k.Yield()
			}
		}, minStackSize, PriorityCrit)
		return false
	})

	time.Sleep(100 * time.Millisecond)
	assert.Positive(t, a.Load())
	assert.Positive(t, b.Load())
}

func TestTaskReturnRetiresIt(t *testing.T) {
	k := newTestKernel(t)

	ran := make(chan TaskID, 1)
	bootInBackground(k, func(k *Kernel) bool {
		k.Spawn(func() {
			ran <- k.CurrentID()
		}, minStackSize, PriorityCrit)
		return false
	})

	id := <-ran
	require.Eventually(t, func() bool {
		_, err := k.State(id)
		return err == TaskNotFound
	}, time.Second, 5*time.Millisecond, "a returned task leaves the task table")
}

func TestBootSpawnsIdleTask(t *testing.T) {
	k := newTestKernel(t)

	started := make(chan struct{})
	bootInBackground(k, func(k *Kernel) bool {
		k.Spawn(func() {
			close(started)
			for {
				k.Yield()
			}
		}, minStackSize, PriorityCrit)
		return true
	})

	<-started
	assert.True(t, k.Preemptive())
	idle := k.IdleID()
	require.NotZero(t, idle)
	st, err := k.State(idle)
	require.NoError(t, err)
	assert.Contains(t, []State{StateReady, StateRunning}, st)
}

func TestUptimeAdvances(t *testing.T) {
	k := newTestKernel(t)
	before := k.Uptime()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, k.Uptime(), before)
}
