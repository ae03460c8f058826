// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

// Async runs fn synchronously, as the body of an async function, returning
// the deferred value of its result.
//
// The body runs up to its first await. To suspend, return the result of
// [Scheduler.Await] (or [Scheduler.AwaitCatch]); the remainder of the body
// lives in the continuation, which may itself return another await, and so
// on. Awaits chained this way cost exactly one microtask turn each.
// Returning any other [*Deferred] follows it as a JavaScript async function
// returning a promise would. A panic, or [Throw], rejects the result.
func (s *Scheduler) Async(fn func() any) *Deferred {
	d := s.newDeferred()
	d.locked = true
	if fn == nil {
		d.settle(Fulfilled, nil)
		return d
	}
	value, reason, ok := invoke(func(any) any { return fn() }, nil)
	if !ok {
		d.settle(Rejected, reason)
		return d
	}
	d.adopt(value)
	return d
}

// Await registers continuation to run with the fulfilled value of
// Resolve(value), as a microtask, returning a deferred value for the
// continuation's result. A rejection skips the continuation and propagates,
// as an uncaught exception at an await point would. A nil continuation
// passes the value through.
//
// Await is intended to be returned from an [Scheduler.Async] body, or from
// a previous continuation.
func (s *Scheduler) Await(value any, continuation func(any) any) *Deferred {
	return s.await(value, continuation, nil)
}

// AwaitCatch is [Scheduler.Await] wrapped in a try/catch: onRejected runs
// with the rejection reason instead of it propagating.
func (s *Scheduler) AwaitCatch(value any, continuation, onRejected func(any) any) *Deferred {
	return s.await(value, continuation, onRejected)
}

func (s *Scheduler) await(value any, onFulfilled, onRejected func(any) any) *Deferred {
	src := s.Resolve(value)
	next := s.newDeferred()
	next.awaited = true
	src.addReaction(reaction{
		onFulfilled:  onFulfilled,
		onRejected:   onRejected,
		target:       next,
		continuation: true,
	})
	return next
}
