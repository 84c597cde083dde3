package sim

import "container/heap"

// timer is a pending wake-up. Exactly one of proc or event is set.
// A process timer only fires if the process is still parked on the same wait token.
type timer struct {
	at       Time
	seq      uint64
	proc     *Process
	token    uint64
	event    *Event
	canceled bool
}

// timerQueue implements heap.Interface and orders timers by (at, seq).
// seq is assigned at scheduling time, so timers due at the same instant
// fire in the order they were set.
type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *timerQueue) Push(x any) {
	*q = append(*q, x.(*timer))
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[0 : n-1]
	return item
}

// schedule pushes t onto the queue.
func (q *timerQueue) schedule(t *timer) {
	heap.Push(q, t)
}

// peek returns the soonest live timer without removing it, discarding canceled ones.
func (q *timerQueue) peek() *timer {
	for q.Len() > 0 {
		head := (*q)[0]
		if !head.canceled {
			return head
		}
		heap.Pop(q)
	}
	return nil
}

// popDue removes and returns the soonest live timer if it is due at instant at.
func (q *timerQueue) popDue(at Time) *timer {
	head := q.peek()
	if head == nil || head.at != at {
		return nil
	}
	return heap.Pop(q).(*timer)
}
