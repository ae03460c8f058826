// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

import (
	"container/heap"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// Scheduler is a deterministic, single-threaded ordering engine, owning a
// microtask queue and a timer queue. See the package documentation for the
// execution model.
//
// The zero value is not usable, use [New].
type Scheduler struct {
	// Prevent copying
	_ [0]func()

	logger         *logiface.Logger[logiface.Event]
	failureLimiter *catrate.Limiter
	effectSink     EffectSink
	onUnhandled    RejectionHandler
	onTaskFailure  TaskFailureHandler

	// queued tasks by sequence number, for Cancel
	pending    map[uint64]*task
	microtasks microtaskQueue
	timers     timerHeap

	effects   []Effect
	failures  []*TaskFailure
	unhandled []*UnhandledRejection

	// rejected, unhandled, not yet reported
	rejections []*Deferred

	current ExecutionContext

	stepLimit  int
	now        time.Duration
	taskSeq    uint64
	deferredID uint64
	draining   bool
}

// New creates a new Scheduler.
func New(opts ...Option) (*Scheduler, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		logger:         cfg.logger,
		failureLimiter: cfg.failureLimiter,
		effectSink:     cfg.effectSink,
		onUnhandled:    cfg.onUnhandled,
		onTaskFailure:  cfg.onTaskFailure,
		stepLimit:      cfg.stepLimit,
		pending:        make(map[uint64]*task),
	}, nil
}

// RunSynchronous executes fn immediately, to completion. Tasks deferred while
// it runs are queued, but not run, see [Scheduler.Drain].
//
// If fn returns an error, panics, or raises a value via [Throw], the failure
// is returned as a [*SynchronousFailure]. Tasks queued before the failure
// remain queued. Calling RunSynchronous from within an executing callback
// returns [ErrReentrant].
func (s *Scheduler) RunSynchronous(fn func() error) (err error) {
	if s.draining || s.current.Kind != ContextIdle {
		return ErrReentrant
	}
	if fn == nil {
		return nil
	}

	s.current = ExecutionContext{Kind: ContextSynchronous}
	defer func() {
		if r := recover(); r != nil {
			err = &SynchronousFailure{Err: reasonError(recoveredReason(r))}
		}
		s.current = ExecutionContext{}
		if err != nil {
			s.logSynchronousFailure(err)
		}
	}()

	if cause := fn(); cause != nil {
		return &SynchronousFailure{Err: cause}
	}
	return nil
}

// DeferMicrotask appends fn to the microtask queue. A nil fn is ignored, and
// a zero handle returned.
func (s *Scheduler) DeferMicrotask(fn func(), opts ...TaskOption) TaskHandle {
	if fn == nil {
		return TaskHandle{}
	}
	t := s.newTask(KindMicrotask, fn, opts)
	s.microtasks.push(t)
	s.pending[t.seq] = t
	s.logTaskScheduled(t)
	return t.handle()
}

// DeferTimer queues fn to run once delay has elapsed on the virtual clock,
// and all microtasks have drained. Negative delays are treated as zero.
// Timers never run synchronously, regardless of delay. A nil fn is ignored,
// and a zero handle returned.
//
// Timers with equal deadlines run in registration order.
func (s *Scheduler) DeferTimer(fn func(), delay time.Duration, opts ...TaskOption) TaskHandle {
	if fn == nil {
		return TaskHandle{}
	}
	if delay < 0 {
		delay = 0
	}
	t := s.newTask(KindTimer, fn, opts)
	t.delay = delay
	t.deadline = s.now + delay
	if t.deadline < s.now {
		t.deadline = math.MaxInt64
	}
	heap.Push(&s.timers, t)
	s.pending[t.seq] = t
	s.logTaskScheduled(t)
	return t.handle()
}

// Cancel removes a task that has not yet started, from whichever queue it is
// in, returning true if it was removed. The order of the remaining tasks is
// unaffected.
func (s *Scheduler) Cancel(h TaskHandle) bool {
	t, ok := s.pending[h.id]
	if !ok || t.kind != h.kind {
		return false
	}
	delete(s.pending, h.id)
	switch t.kind {
	case KindMicrotask:
		s.microtasks.cancel(t)
	case KindTimer:
		heap.Remove(&s.timers, t.index)
	}
	s.logTaskCancelled(t)
	return true
}

// Drain runs queued tasks until both queues are empty. Each timer is
// preceded by a full drain of the microtask queue, including microtasks
// enqueued by microtasks, followed by a microtask checkpoint at which
// unhandled rejections are reported.
//
// Drain never panics. Callback failures are recorded, see [Report]. Calling
// Drain with nothing queued is a no-op.
func (s *Scheduler) Drain() *Report {
	if s.draining || s.current.Kind != ContextIdle {
		return s.report(0, ErrReentrant)
	}
	s.draining = true
	defer func() { s.draining = false }()

	var (
		executed int
		err      error
	)
	for {
		if s.microtasks.len() != 0 {
			if s.limitReached(executed) {
				err = ErrStepLimitExceeded
				break
			}
			s.runTask(s.microtasks.pop())
			executed++
			continue
		}

		s.checkpoint()
		if s.microtasks.len() != 0 {
			continue
		}

		if s.timers.Len() == 0 {
			break
		}
		if s.limitReached(executed) {
			err = ErrStepLimitExceeded
			break
		}
		t := heap.Pop(&s.timers).(*task)
		if t.deadline > s.now {
			s.now = t.deadline
		}
		s.runTask(t)
		executed++
	}

	s.logDrain(executed, err)
	return s.report(executed, err)
}

// Log records msg in the effect log, attributed to the current execution
// context.
func (s *Scheduler) Log(msg string) {
	e := Effect{
		Seq:     len(s.effects) + 1,
		Message: msg,
		Context: s.current,
	}
	s.effects = append(s.effects, e)
	if s.effectSink != nil {
		s.effectSink(e)
	}
}

// Logf is a formatting variant of [Scheduler.Log].
func (s *Scheduler) Logf(format string, args ...any) {
	s.Log(fmt.Sprintf(format, args...))
}

// Effects returns a copy of the effect log.
func (s *Scheduler) Effects() []Effect {
	return slices.Clone(s.effects)
}

// TaskFailures returns every task failure recorded so far.
func (s *Scheduler) TaskFailures() []*TaskFailure {
	return slices.Clone(s.failures)
}

// UnhandledRejections returns every unhandled rejection reported so far.
func (s *Scheduler) UnhandledRejections() []*UnhandledRejection {
	return slices.Clone(s.unhandled)
}

// Pending returns the number of queued microtasks and timers.
func (s *Scheduler) Pending() (microtasks, timers int) {
	return s.microtasks.len(), s.timers.Len()
}

// Now returns the virtual clock.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Current returns the active execution context.
func (s *Scheduler) Current() ExecutionContext {
	return s.current
}

func (s *Scheduler) newTask(kind TaskKind, fn func(), opts []TaskOption) *task {
	s.taskSeq++
	t := &task{
		fn:    fn,
		seq:   s.taskSeq,
		index: -1,
		kind:  kind,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (s *Scheduler) limitReached(executed int) bool {
	return s.stepLimit > 0 && executed >= s.stepLimit
}

// runTask executes a dequeued task with panic recovery.
func (s *Scheduler) runTask(t *task) {
	delete(s.pending, t.seq)
	s.current = ExecutionContext{Kind: contextKindOf(t.kind), Task: t.handle()}
	defer func() {
		r := recover()
		s.current = ExecutionContext{}
		if r != nil {
			s.recordTaskFailure(t, reasonError(recoveredReason(r)))
		}
	}()
	t.fn()
}

func (s *Scheduler) recordTaskFailure(t *task, err error) {
	f := &TaskFailure{
		Err:   err,
		Label: t.label,
		Task:  t.handle(),
	}
	s.failures = append(s.failures, f)
	s.logTaskFailed(f)
	if s.onTaskFailure != nil {
		s.callHandler(func() { s.onTaskFailure(f) })
	}
}

// callHandler runs a user-supplied handler, discarding any panic.
func (s *Scheduler) callHandler(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Err().
				Str("category", categoryTask).
				Any("panic", r).
				Log("handler panicked")
		}
	}()
	fn()
}

func (s *Scheduler) report(executed int, err error) *Report {
	return &Report{
		Err:                 err,
		Effects:             s.Effects(),
		TaskFailures:        s.TaskFailures(),
		UnhandledRejections: s.UnhandledRejections(),
		Executed:            executed,
		Now:                 s.now,
	}
}
