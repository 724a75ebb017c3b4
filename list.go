package linmo

// TaskID identifies a TCB. 0 means "none"; ids are assigned
// monotonically starting at 1.
//
// Wait sets hold TaskIDs rather than *tcb: the task table is an
// id-indexed slab, so a cancelled task can never leave a dangling
// pointer inside some other object's wait set.
type TaskID uint32

// waitList is a strict FIFO of waiting TaskIDs, used by mutexes and
// condition variables, neither of which has a fixed capacity ceiling.
// It is a thin slice-backed queue; callers always hold the kernel
// lock while touching it.
type waitList struct {
	items []TaskID
}

func (q *waitList) pushBack(id TaskID) {
	q.items = append(q.items, id)
}

func (q *waitList) popFront() (TaskID, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	id := q.items[0]
	q.items = q.items[1:]
	return id, true
}

func (q *waitList) len() int {
	return len(q.items)
}

// remove deletes the first occurrence of id, used by timed waits that
// must self-dequeue on timeout without disturbing FIFO order of the
// remaining waiters.
func (q *waitList) remove(id TaskID) bool {
	for i, v := range q.items {
		if v == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *waitList) contains(id TaskID) bool {
	for _, v := range q.items {
		if v == id {
			return true
		}
	}
	return false
}

// waitRing is a fixed-capacity FIFO of TaskIDs, used where a wait set
// has a hard max_waiters ceiling (semaphores). Capacity is rounded up
// to a power of two so head/tail wrap with a bitmask; the kernel lock
// serializes all access, so no atomics are needed.
type waitRing struct {
	buf  []TaskID
	mask uint32
	head uint32
	tail uint32
}

func newWaitRing(capacity int) *waitRing {
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &waitRing{buf: make([]TaskID, n), mask: uint32(n - 1)}
}

func (r *waitRing) len() int {
	return int(r.tail - r.head)
}

func (r *waitRing) cap() int {
	return len(r.buf)
}

func (r *waitRing) full() bool {
	return r.len() == len(r.buf)
}

func (r *waitRing) pushBack(id TaskID) bool {
	if r.full() {
		return false
	}
	r.buf[r.tail&r.mask] = id
	r.tail++
	return true
}

func (r *waitRing) popFront() (TaskID, bool) {
	if r.head == r.tail {
		return 0, false
	}
	id := r.buf[r.head&r.mask]
	r.head++
	return id, true
}
