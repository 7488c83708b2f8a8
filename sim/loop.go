// Package sim runs discovery nodes against a shared virtual radio medium.
package sim

import (
	"container/heap"

	"github.com/encodeous/nbrd/state"
)

type event struct {
	at  uint64
	seq uint64
	fn  func()
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Loop is a single-threaded discrete-event scheduler. Time is counted in
// timer ticks. Events due at the same tick run in the order they were scheduled.
type Loop struct {
	now    uint64
	seq    uint64
	events eventQueue
}

func (l *Loop) Now() uint64 {
	return l.now
}

// At schedules fn at the absolute tick at, or immediately after the current
// event if at is in the past.
func (l *Loop) At(at uint64, fn func()) {
	l.seq++
	heap.Push(&l.events, &event{at: max(at, l.now), seq: l.seq, fn: fn})
}

func (l *Loop) After(delay state.Ticks, fn func()) {
	l.At(l.now+uint64(delay), fn)
}

// Schedule implements state.Timer.
func (l *Loop) Schedule(fn func(), delay state.Ticks) {
	l.After(delay, fn)
}

// Step runs the next event. It returns false when nothing is pending.
func (l *Loop) Step() bool {
	if len(l.events) == 0 {
		return false
	}
	e := heap.Pop(&l.events).(*event)
	l.now = e.at
	e.fn()
	return true
}

// Run executes every event due at or before until and leaves the clock at until.
func (l *Loop) Run(until uint64) {
	for len(l.events) > 0 && l.events[0].at <= until {
		l.Step()
	}
	l.now = max(l.now, until)
}

func (l *Loop) Pending() int {
	return len(l.events)
}
