// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package scheduler provides a deterministic, single-threaded simulator of
// JavaScript-style task ordering: synchronous execution, a microtask queue,
// and a timer (macrotask) queue, plus deferred values (promises) whose
// reactions are scheduled as microtasks.
//
// # Execution Model
//
// A [Scheduler] owns two queues. [Scheduler.RunSynchronous] executes a
// function to completion immediately; any [Scheduler.DeferMicrotask] or
// [Scheduler.DeferTimer] calls made while it runs only enqueue work.
// [Scheduler.Drain] then processes the queues:
//
//  1. Microtasks, FIFO, including microtasks enqueued by microtasks
//  2. A microtask checkpoint, reporting unhandled rejections
//  3. A single timer, the one with the smallest (deadline, sequence)
//  4. Back to 1, until both queues are empty
//
// Time is virtual. Timer deadlines are computed against a clock that starts
// at zero and advances to the deadline of each timer as it fires, so a drain
// completes instantly and always produces the same order.
//
// # Deferred Values
//
// [Deferred] is the promise equivalent. Reactions registered with
// [Deferred.Then], [Deferred.Catch] and [Deferred.Finally] are scheduled as
// microtasks when the value settles. [Scheduler.Async] and [Scheduler.Await]
// express async function bodies as explicit continuations:
//
//	async1 := func() *scheduler.Deferred {
//	    return s.Async(func() any {
//	        s.Log("async1 start")
//	        return s.Await(async2(), func(any) any {
//	            s.Log("async1 end")
//	            return nil
//	        })
//	    })
//	}
//
// # Failures
//
//   - [SynchronousFailure]: returned by [Scheduler.RunSynchronous]
//   - [TaskFailure]: a panic inside a queued callback, recorded, never fatal
//   - [UnhandledRejection]: a rejected [Deferred] nobody chained to, recorded
//
// [Scheduler.Drain] never panics; it returns a [Report] containing the
// ordered effect log and every recorded failure.
//
// # Thread Safety
//
// A Scheduler is not safe for concurrent use. All methods, including those of
// [Deferred], must be called from the goroutine driving the scheduler.
package scheduler
