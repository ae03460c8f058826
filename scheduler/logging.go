// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

// Log categories, attached to every event under the "category" key.
const (
	categoryMicrotask = "microtask"
	categoryTimer     = "timer"
	categoryPromise   = "promise"
	categoryTask      = "task"
	categoryDrain     = "drain"
)

func categoryOf(kind TaskKind) string {
	if kind == KindTimer {
		return categoryTimer
	}
	return categoryMicrotask
}

// failureCategory keys the failure log rate limiter.
type failureCategory struct {
	label string
	kind  TaskKind
}

func (s *Scheduler) logTaskScheduled(t *task) {
	if b := s.logger.Debug(); b.Enabled() {
		b = b.Str("category", categoryOf(t.kind)).
			Uint64("task_id", t.seq)
		if t.kind == KindTimer {
			b = b.Dur("delay", t.delay).Dur("deadline", t.deadline)
		}
		if t.label != "" {
			b = b.Str("label", t.label)
		}
		b.Log("task scheduled")
	}
}

func (s *Scheduler) logTaskCancelled(t *task) {
	s.logger.Debug().
		Str("category", categoryOf(t.kind)).
		Uint64("task_id", t.seq).
		Log("task cancelled")
}

func (s *Scheduler) logTaskFailed(f *TaskFailure) {
	b := s.logger.Warning()
	if !b.Enabled() {
		return
	}
	if _, ok := s.failureLimiter.Allow(failureCategory{label: f.Label, kind: f.Task.Kind()}); !ok {
		b.Release()
		return
	}
	b = b.Str("category", categoryTask).
		Str("kind", f.Task.Kind().String()).
		Uint64("task_id", f.Task.ID()).
		Err(f.Err)
	if f.Label != "" {
		b = b.Str("label", f.Label)
	}
	b.Log("task failed")
}

func (s *Scheduler) logSynchronousFailure(err error) {
	s.logger.Debug().
		Str("category", categoryTask).
		Err(err).
		Log("synchronous run failed")
}

func (s *Scheduler) logSettled(d *Deferred) {
	if b := s.logger.Trace(); b.Enabled() {
		b.Str("category", categoryPromise).
			Uint64("deferred_id", d.id).
			Stringer("state", d.state).
			Log("deferred settled")
	}
}

func (s *Scheduler) logUnhandledRejection(u *UnhandledRejection) {
	if b := s.logger.Warning(); b.Enabled() {
		b = b.Str("category", categoryPromise).
			Uint64("deferred_id", u.DeferredID).
			Any("reason", u.Reason)
		if u.Label != "" {
			b = b.Str("label", u.Label)
		}
		b.Log("unhandled rejection")
	}
}

func (s *Scheduler) logRejectionHandledLate(u *UnhandledRejection) {
	s.logger.Info().
		Str("category", categoryPromise).
		Uint64("deferred_id", u.DeferredID).
		Log("rejection handled late")
}

func (s *Scheduler) logDrain(executed int, err error) {
	if b := s.logger.Debug(); b.Enabled() {
		b = b.Str("category", categoryDrain).
			Int("executed", executed).
			Dur("now", s.now)
		if err != nil {
			b = b.Err(err)
		}
		b.Log("drain finished")
	}
}
