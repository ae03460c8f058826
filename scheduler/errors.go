// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrReentrant is returned when RunSynchronous or Drain is called from
	// within a callback the scheduler is already executing.
	ErrReentrant = errors.New("scheduler: reentrant call from within an executing callback")

	// ErrStepLimitExceeded is reported by Drain when the configured step limit
	// was reached with work still queued.
	ErrStepLimitExceeded = errors.New("scheduler: step limit exceeded")

	// ErrInvalidOption is wrapped by errors returned from New for invalid
	// option values.
	ErrInvalidOption = errors.New("scheduler: invalid option")
)

// SynchronousFailure is returned by [Scheduler.RunSynchronous] when the
// function returned an error, panicked, or raised a value via [Throw].
type SynchronousFailure struct {
	Err error
}

// Error implements the error interface.
func (e *SynchronousFailure) Error() string {
	return fmt.Sprintf("scheduler: synchronous failure: %v", e.Err)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *SynchronousFailure) Unwrap() error {
	return e.Err
}

// TaskFailure records a queued microtask or timer callback that panicked.
// The drain continues regardless.
type TaskFailure struct {
	Err   error
	Label string
	Task  TaskHandle
}

// Error implements the error interface.
func (e *TaskFailure) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("scheduler: %s (%s) failed: %v", e.Task, e.Label, e.Err)
	}
	return fmt.Sprintf("scheduler: %s failed: %v", e.Task, e.Err)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *TaskFailure) Unwrap() error {
	return e.Err
}

// UnhandledRejection records a [Deferred] that was rejected, and had no
// reaction attached by the end of the following microtask checkpoint.
type UnhandledRejection struct {
	// Reason is the rejection reason, as passed to reject.
	Reason any
	Label  string
	// DeferredID identifies the rejected value, see [Deferred.ID].
	DeferredID uint64
	// HandledLate is set if a reaction was attached after the rejection was
	// reported.
	HandledLate bool
}

// Error implements the error interface.
func (e *UnhandledRejection) Error() string {
	return fmt.Sprintf("scheduler: unhandled rejection of deferred #%d: %v", e.DeferredID, e.Reason)
}

// Unwrap returns the rejection reason, if it is an error.
func (e *UnhandledRejection) Unwrap() error {
	if err, ok := e.Reason.(error); ok {
		return err
	}
	return nil
}

// PanicError wraps a value recovered from a panicking callback.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("scheduler: callback panicked: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// If the panic Value is not an error, returns nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ThrownError adapts a non-error value raised via [Throw], where an error is
// required, e.g. as the cause of a [SynchronousFailure].
type ThrownError struct {
	Value any
}

// Error implements the error interface.
func (e *ThrownError) Error() string {
	return fmt.Sprintf("scheduler: thrown: %v", e.Value)
}

// TypeError represents a type error, similar to JavaScript's TypeError.
// It is used as the rejection reason of a deferred value resolved with itself.
type TypeError struct {
	Cause   error
	Message string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Message == "" {
		return "type error"
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *TypeError) Unwrap() error {
	return e.Cause
}

// thrown is the panic value used by Throw.
type thrown struct {
	reason any
}

// Throw raises reason from inside a deferred callback, reaction handler,
// promise executor or async body. Unlike a plain panic, the reason is used
// as-is (it is not wrapped in [PanicError]), mirroring a JavaScript throw.
func Throw(reason any) {
	panic(thrown{reason: reason})
}

// recoveredReason converts a recovered panic value into a rejection reason.
func recoveredReason(r any) any {
	if t, ok := r.(thrown); ok {
		return t.reason
	}
	return PanicError{Value: r}
}

// reasonError converts a rejection reason into an error.
func reasonError(reason any) error {
	switch v := reason.(type) {
	case error:
		return v
	default:
		return &ThrownError{Value: v}
	}
}
