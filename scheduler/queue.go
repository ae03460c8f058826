// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

// microtaskQueueInitCap is the initial capacity of the microtask ring.
const microtaskQueueInitCap = 64

// microtaskQueue is a growable FIFO ring buffer. Cancelled entries stay in
// place and are skipped by pop, so cancellation never reorders the rest.
type microtaskQueue struct {
	buf  []*task
	head int
	// n counts occupied slots, live excludes cancelled entries
	n    int
	live int
}

func (q *microtaskQueue) push(t *task) {
	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)%len(q.buf)] = t
	q.n++
	q.live++
}

func (q *microtaskQueue) grow() {
	size := len(q.buf) * 2
	if size == 0 {
		size = microtaskQueueInitCap
	}
	buf := make([]*task, size)
	for i := 0; i < q.n; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}

// pop removes and returns the oldest live task, or nil.
func (q *microtaskQueue) pop() *task {
	for q.n > 0 {
		t := q.buf[q.head]
		q.buf[q.head] = nil
		q.head = (q.head + 1) % len(q.buf)
		q.n--
		if t.cancelled {
			continue
		}
		q.live--
		return t
	}
	return nil
}

// cancel marks a queued task as removed; the caller guarantees t is queued.
func (q *microtaskQueue) cancel(t *task) {
	t.cancelled = true
	q.live--
}

func (q *microtaskQueue) len() int {
	return q.live
}

// timerHeap is a min-heap of timers, keyed by (deadline, seq).
type timerHeap []*task

// Implement heap.Interface for timerHeap
func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
