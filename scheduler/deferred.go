// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

import (
	"fmt"
)

// State represents the lifecycle state of a [Deferred].
// A deferred value starts [Pending] and transitions, irreversibly, to either
// [Fulfilled] or [Rejected].
type State int

const (
	// Pending indicates the value has not yet settled.
	Pending State = iota

	// Fulfilled indicates the value settled successfully.
	Fulfilled

	// Rejected indicates the value settled with a failure reason.
	Rejected
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ResolveFunc fulfills a deferred value, or, if passed a [*Deferred], makes it
// follow that value. Only the first call to either the resolve or reject
// function of a pair has any effect.
type ResolveFunc func(value any)

// RejectFunc rejects a deferred value with a reason. Only the first call to
// either the resolve or reject function of a pair has any effect.
type RejectFunc func(reason any)

// Deferred is a placeholder for a result that settles later, the equivalent
// of a JavaScript promise. Reactions are always run as microtasks of the
// owning [Scheduler].
type Deferred struct {
	result    any
	sched     *Scheduler
	reported  *UnhandledRejection
	label     string
	reactions []reaction
	id        uint64
	state     State
	// locked is set once the resolving functions have been used
	locked bool
	// handled is set once any reaction has been attached
	handled bool
	// awaited marks the continuation of an async body, see Scheduler.Await
	awaited bool
}

// reaction is a handler pair registered against a deferred value, feeding
// its outcome into target.
type reaction struct {
	onFulfilled func(any) any
	onRejected  func(any) any
	target      *Deferred
	// continuation reactions adopt awaited results without extra turns
	continuation bool
}

// NewDeferred creates a pending deferred value, along with the functions that
// settle it.
func (s *Scheduler) NewDeferred() (*Deferred, ResolveFunc, RejectFunc) {
	d := s.newDeferred()
	return d, d.resolve, d.reject
}

// NewPromise creates a deferred value, running executor synchronously with
// its resolving functions, like the JavaScript Promise constructor. If the
// executor panics, or calls [Throw], the value is rejected (unless already
// resolved). A nil executor rejects with a [*TypeError].
func (s *Scheduler) NewPromise(executor func(resolve ResolveFunc, reject RejectFunc)) *Deferred {
	d, resolve, reject := s.NewDeferred()
	if executor == nil {
		reject(&TypeError{Message: "promise executor is nil"})
		return d
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				reject(recoveredReason(r))
			}
		}()
		executor(resolve, reject)
	}()
	return d
}

// Resolve returns value if it is a [*Deferred] of this scheduler, otherwise
// a new deferred value resolved with it.
func (s *Scheduler) Resolve(value any) *Deferred {
	if d, ok := value.(*Deferred); ok && d.sched == s {
		return d
	}
	d := s.newDeferred()
	d.locked = true
	d.resolveValue(value)
	return d
}

// Reject returns a new deferred value, rejected with reason.
func (s *Scheduler) Reject(reason any) *Deferred {
	d := s.newDeferred()
	d.locked = true
	d.settle(Rejected, reason)
	return d
}

func (s *Scheduler) newDeferred() *Deferred {
	s.deferredID++
	return &Deferred{
		sched: s,
		id:    s.deferredID,
	}
}

// ID returns an identifier unique per [Scheduler].
func (d *Deferred) ID() uint64 { return d.id }

// State returns the current [State].
func (d *Deferred) State() State { return d.state }

// Value returns the fulfillment value, or nil if not fulfilled.
func (d *Deferred) Value() any {
	if d.state == Fulfilled {
		return d.result
	}
	return nil
}

// Reason returns the rejection reason, or nil if not rejected.
func (d *Deferred) Reason() any {
	if d.state == Rejected {
		return d.result
	}
	return nil
}

// Label returns the diagnostic label, see [Deferred.WithLabel].
func (d *Deferred) Label() string { return d.label }

// WithLabel sets a diagnostic label, included in logs and in any
// [UnhandledRejection], returning d.
func (d *Deferred) WithLabel(label string) *Deferred {
	d.label = label
	return d
}

// Then registers handlers for when d settles, returning a deferred value for
// the handler's result.
//
// Handlers are run as microtasks, scheduled when d settles, or immediately if
// it already has. A nil handler passes the outcome through. If a handler
// panics the returned value is rejected with a [PanicError], or with the
// reason passed to [Throw]. If a handler returns a [*Deferred], the returned
// value follows it.
//
// Attaching any reaction, even with a nil onRejected, marks d as handled: a
// rejection then propagates to the returned value instead.
func (d *Deferred) Then(onFulfilled, onRejected func(any) any) *Deferred {
	child := d.sched.newDeferred()
	d.addReaction(reaction{
		onFulfilled: onFulfilled,
		onRejected:  onRejected,
		target:      child,
	})
	return child
}

// Catch is equivalent to Then(nil, onRejected).
func (d *Deferred) Catch(onRejected func(any) any) *Deferred {
	return d.Then(nil, onRejected)
}

// Finally registers onFinally to run however d settles. The returned value
// settles the same way as d, unless onFinally panics or throws, in which case
// it is rejected with that reason.
func (d *Deferred) Finally(onFinally func()) *Deferred {
	if onFinally == nil {
		return d.Then(nil, nil)
	}
	return d.Then(
		func(value any) any {
			onFinally()
			return value
		},
		func(reason any) any {
			onFinally()
			Throw(reason)
			return nil
		},
	)
}

func (d *Deferred) addReaction(r reaction) {
	d.markHandled()
	if d.state == Pending {
		d.reactions = append(d.reactions, r)
		return
	}
	d.scheduleReaction(r)
}

func (d *Deferred) markHandled() {
	if d.handled {
		return
	}
	d.handled = true
	if d.state == Rejected {
		d.sched.rejectionHandled(d)
	}
}

// resolve and reject implement the resolving functions.
func (d *Deferred) resolve(value any) {
	if d.locked {
		return
	}
	d.locked = true
	d.resolveValue(value)
}

func (d *Deferred) reject(reason any) {
	if d.locked {
		return
	}
	d.locked = true
	d.settle(Rejected, reason)
}

// resolveValue fulfills d, or makes it follow value if that is a deferred.
// Following costs a microtask turn (the thenable job) before the reaction
// on value is even registered, as in JavaScript.
func (d *Deferred) resolveValue(value any) {
	v, ok := value.(*Deferred)
	if !ok {
		d.settle(Fulfilled, value)
		return
	}
	if v == d {
		d.settle(Rejected, &TypeError{Message: fmt.Sprintf("chaining cycle detected for deferred #%d", d.id)})
		return
	}
	d.sched.enqueueJob(func() {
		v.addReaction(reaction{target: d})
	})
}

// adopt resolves d with the result of an async body: awaited continuations
// are followed directly, anything else per resolveValue.
func (d *Deferred) adopt(value any) {
	if v, ok := value.(*Deferred); ok && v.awaited && v.sched == d.sched && v != d {
		v.addReaction(reaction{target: d})
		return
	}
	d.resolveValue(value)
}

func (d *Deferred) settle(state State, result any) {
	if d.state != Pending {
		return
	}
	d.state = state
	d.result = result
	reactions := d.reactions
	d.reactions = nil
	for _, r := range reactions {
		d.scheduleReaction(r)
	}
	d.sched.logSettled(d)
	if state == Rejected && !d.handled {
		d.sched.trackRejection(d)
	}
}

func (d *Deferred) scheduleReaction(r reaction) {
	d.sched.enqueueJob(func() {
		d.runReaction(r)
	})
}

// runReaction executes a single reaction, with panic recovery, feeding the
// outcome into the reaction's target.
func (d *Deferred) runReaction(r reaction) {
	fn := r.onFulfilled
	if d.state == Rejected {
		fn = r.onRejected
	}

	if fn == nil {
		if r.target != nil {
			r.target.settle(d.state, d.result)
		}
		return
	}

	value, reason, ok := invoke(fn, d.result)
	switch {
	case r.target == nil:
	case !ok:
		r.target.settle(Rejected, reason)
	case r.continuation:
		r.target.adopt(value)
	default:
		r.target.resolveValue(value)
	}
}

// invoke calls fn, converting a panic into a rejection reason.
func invoke(fn func(any) any, arg any) (value, reason any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			reason = recoveredReason(r)
			ok = false
		}
	}()
	return fn(arg), nil, true
}

// enqueueJob schedules an internal promise job as a microtask.
func (s *Scheduler) enqueueJob(fn func()) {
	s.DeferMicrotask(fn, TaskLabel(categoryPromise))
}
