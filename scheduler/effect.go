// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

import (
	"time"
)

// Effect is a single callback-observable side effect, recorded in order by
// [Scheduler.Log] in place of writing to a console.
type Effect struct {
	Message string
	// Context is where the effect was produced.
	Context ExecutionContext
	// Seq is the 1-based position of the effect within the log.
	Seq int
}

// Report is the result of [Scheduler.Drain].
type Report struct {
	// Err is ErrReentrant or ErrStepLimitExceeded, nil otherwise. Task
	// failures never surface here.
	Err error

	// Effects is the complete effect log, including effects recorded by
	// earlier synchronous runs and drains.
	Effects []Effect

	TaskFailures        []*TaskFailure
	UnhandledRejections []*UnhandledRejection

	// Executed is the number of tasks this drain ran.
	Executed int

	// Now is the virtual clock after the drain.
	Now time.Duration
}

// Messages returns the effect messages, in order.
func (r *Report) Messages() []string {
	if r == nil {
		return nil
	}
	messages := make([]string, len(r.Effects))
	for i, e := range r.Effects {
		messages[i] = e.Message
	}
	return messages
}
