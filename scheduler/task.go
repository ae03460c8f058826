// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

import (
	"fmt"
	"time"
)

// TaskKind identifies the queue a task belongs to.
type TaskKind uint8

const (
	// KindMicrotask tasks are drained FIFO, before any timer runs.
	KindMicrotask TaskKind = iota + 1

	// KindTimer tasks run one at a time, once the microtask queue is empty,
	// ordered by deadline then sequence number.
	KindTimer
)

// String returns the string representation of the task kind.
func (k TaskKind) String() string {
	switch k {
	case KindMicrotask:
		return "microtask"
	case KindTimer:
		return "timer"
	default:
		return fmt.Sprintf("TaskKind(%d)", k)
	}
}

// TaskHandle identifies a queued task, see [Scheduler.Cancel].
// The zero value identifies no task.
type TaskHandle struct {
	id   uint64
	kind TaskKind
}

// ID returns the sequence number of the task, unique per [Scheduler],
// shared between both kinds.
func (h TaskHandle) ID() uint64 { return h.id }

// Kind returns the kind of the task.
func (h TaskHandle) Kind() TaskKind { return h.kind }

// IsZero reports whether the handle identifies no task.
func (h TaskHandle) IsZero() bool { return h.id == 0 }

// String returns a short identifier, e.g. "timer#3".
func (h TaskHandle) String() string {
	if h.IsZero() {
		return "task#0"
	}
	return fmt.Sprintf("%s#%d", h.kind, h.id)
}

// TaskOption configures a single deferred task.
type TaskOption func(t *task)

// TaskLabel attaches a diagnostic label to a task, included in logs and in
// any [TaskFailure].
func TaskLabel(label string) TaskOption {
	return func(t *task) {
		t.label = label
	}
}

// task is a deferred unit of work, destroyed once its callback has run.
type task struct {
	fn       func()
	label    string
	delay    time.Duration
	deadline time.Duration
	seq      uint64
	// index within the timer heap, -1 once removed
	index     int
	kind      TaskKind
	cancelled bool
}

func (t *task) handle() TaskHandle {
	return TaskHandle{id: t.seq, kind: t.kind}
}

// ContextKind identifies the kind of an [ExecutionContext].
type ContextKind uint8

const (
	// ContextIdle means nothing is executing.
	ContextIdle ContextKind = iota

	// ContextSynchronous is a [Scheduler.RunSynchronous] call.
	ContextSynchronous

	// ContextMicrotask is a drained microtask.
	ContextMicrotask

	// ContextTimer is a drained timer callback.
	ContextTimer
)

// String returns the string representation of the context kind.
func (k ContextKind) String() string {
	switch k {
	case ContextIdle:
		return "idle"
	case ContextSynchronous:
		return "synchronous"
	case ContextMicrotask:
		return "microtask"
	case ContextTimer:
		return "timer"
	default:
		return fmt.Sprintf("ContextKind(%d)", k)
	}
}

// ExecutionContext describes what the scheduler is executing. Exactly one
// context is active at any instant.
type ExecutionContext struct {
	// Task is zero for synchronous and idle contexts.
	Task TaskHandle
	Kind ContextKind
}

func contextKindOf(kind TaskKind) ContextKind {
	if kind == KindTimer {
		return ContextTimer
	}
	return ContextMicrotask
}
