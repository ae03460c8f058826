// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scenario

import (
	"time"
)

// Scenario is a declarative script, in the style of a JavaScript event loop
// quiz snippet, along with the expected outcome of running it.
type Scenario struct {
	Name        string               `yaml:"name" validate:"required"`
	Description string               `yaml:"description,omitempty"`
	Functions   map[string]*Function `yaml:"functions,omitempty" validate:"dive,keys,required,endkeys,required"`
	// Script is the synchronous top-level code.
	Script []*Step `yaml:"script" validate:"required,min=1,dive,required"`
	Expect *Expect `yaml:"expect,omitempty"`
	// StepLimit bounds the tasks run by the drain, zero meaning unlimited.
	StepLimit int `yaml:"stepLimit,omitempty" validate:"gte=0"`
}

// Function is a named, argument-less function, called via [Step.Call] or
// [Operand.Call].
type Function struct {
	// Async marks an async function, the only kind that may await.
	Async bool    `yaml:"async,omitempty"`
	Body  []*Step `yaml:"body" validate:"dive,required"`
}

// Step is a single statement. Exactly one action field must be set. Chain
// may accompany Call or Promise.
type Step struct {
	// Log records an effect. The text "$value" is replaced by the input of
	// the enclosing reaction handler or await continuation.
	Log *string `yaml:"log,omitempty"`
	// Microtask queues the body as a microtask.
	Microtask []*Step `yaml:"microtask,omitempty" validate:"omitempty,dive,required"`
	// Timeout queues a timer.
	Timeout *Timeout `yaml:"timeout,omitempty"`
	// Cancel cancels the timer with the given name.
	Cancel string `yaml:"cancel,omitempty"`
	// Call calls a function, discarding its result (unless chained).
	Call string `yaml:"call,omitempty"`
	// Await suspends the enclosing async function until the operand
	// settles. The rest of the body runs as the continuation.
	Await *Operand `yaml:"await,omitempty"`
	// Promise constructs a promise, running its executor synchronously.
	Promise *Promise `yaml:"promise,omitempty"`
	// Resolve and Reject settle the promise of the enclosing executor.
	Resolve *Operand `yaml:"resolve,omitempty"`
	Reject  *Operand `yaml:"reject,omitempty"`
	// Throw raises the operand.
	Throw *Operand `yaml:"throw,omitempty"`
	// Return completes the enclosing function or handler with the operand.
	Return *Operand `yaml:"return,omitempty"`

	// Chain registers reactions against the result of Call or Promise,
	// each against the result of the previous.
	Chain []*Reaction `yaml:"chain,omitempty" validate:"omitempty,dive,required"`
}

// Timeout is a timer registration.
type Timeout struct {
	Delay time.Duration `yaml:"delay" validate:"gte=0"`
	// Name identifies the timer for Cancel, and labels it in diagnostics.
	Name string  `yaml:"name,omitempty"`
	Body []*Step `yaml:"body" validate:"dive,required"`
}

// Promise is an explicitly constructed promise.
type Promise struct {
	// Label is attached to the promise, e.g. for unhandled rejections.
	Label    string  `yaml:"label,omitempty"`
	Executor []*Step `yaml:"executor" validate:"dive,required"`
}

// Reaction is a single link of a chain. Then and Catch may be combined (a
// two-argument then). Finally stands alone.
type Reaction struct {
	Then    []*Step `yaml:"then,omitempty" validate:"omitempty,dive,required"`
	Catch   []*Step `yaml:"catch,omitempty" validate:"omitempty,dive,required"`
	Finally []*Step `yaml:"finally,omitempty" validate:"omitempty,dive,required"`
}

// Operand is an expression. At most one field may be set; none evaluates to
// nil (undefined).
type Operand struct {
	// Call evaluates to the result of calling the named function.
	Call string `yaml:"call,omitempty"`
	// Promise evaluates to a newly constructed promise.
	Promise *Promise `yaml:"promise,omitempty"`
	// Rejected evaluates to a promise rejected with the given reason.
	Rejected any `yaml:"rejected,omitempty"`
	// Value is a literal.
	Value any `yaml:"value,omitempty"`
}

// Expect is the expected outcome of a run.
type Expect struct {
	// Effects are the expected effect messages, in order.
	Effects []string `yaml:"effects"`
	// Unhandled are the expected unhandled rejection reasons, formatted as
	// they would be logged, in order.
	Unhandled    []string `yaml:"unhandled,omitempty"`
	TaskFailures int      `yaml:"taskFailures,omitempty" validate:"gte=0"`
	// SyncError expects the script itself to fail.
	SyncError         bool `yaml:"syncError,omitempty"`
	StepLimitExceeded bool `yaml:"stepLimitExceeded,omitempty"`
}

// actions returns the names of the action fields set on s.
func (s *Step) actions() []string {
	var names []string
	add := func(set bool, name string) {
		if set {
			names = append(names, name)
		}
	}
	add(s.Log != nil, "log")
	add(s.Microtask != nil, "microtask")
	add(s.Timeout != nil, "timeout")
	add(s.Cancel != "", "cancel")
	add(s.Call != "", "call")
	add(s.Await != nil, "await")
	add(s.Promise != nil, "promise")
	add(s.Resolve != nil, "resolve")
	add(s.Reject != nil, "reject")
	add(s.Throw != nil, "throw")
	add(s.Return != nil, "return")
	return names
}

// operands returns the names of the fields set on o.
func (o *Operand) operands() []string {
	var names []string
	if o.Call != "" {
		names = append(names, "call")
	}
	if o.Promise != nil {
		names = append(names, "promise")
	}
	if o.Rejected != nil {
		names = append(names, "rejected")
	}
	if o.Value != nil {
		names = append(names, "value")
	}
	return names
}
