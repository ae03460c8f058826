// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scenario

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/joeycumines/go-taskorder/scheduler"
)

// Result is the outcome of [Run].
type Result struct {
	Scenario *Scenario
	Report   *scheduler.Report
	// SyncErr is the failure of the top-level script, if any.
	SyncErr error
}

// ExpectationError describes how a [Result] differs from [Scenario.Expect].
type ExpectationError struct {
	Scenario   string
	Mismatches []string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("scenario %s: %s", e.Scenario, strings.Join(e.Mismatches, "; "))
}

// Run executes sc on a new scheduler, configured with opts: the script runs
// synchronously, then the scheduler is drained.
func Run(sc *Scenario, opts ...scheduler.Option) (*Result, error) {
	if sc == nil {
		return nil, errors.New("scenario: nil scenario")
	}
	if sc.StepLimit > 0 {
		opts = append([]scheduler.Option{scheduler.WithStepLimit(sc.StepLimit)}, opts...)
	}
	s, err := scheduler.New(opts...)
	if err != nil {
		return nil, err
	}

	x := newInterpreter(sc, s)
	syncErr := s.RunSynchronous(func() error {
		x.exec(sc.Script, &frame{})
		return nil
	})

	return &Result{
		Scenario: sc,
		Report:   s.Drain(),
		SyncErr:  syncErr,
	}, nil
}

// Check compares the result against the scenario's expectations, returning
// an [*ExpectationError] on any mismatch. A scenario without expectations
// always passes.
func (r *Result) Check() error {
	expect := r.Scenario.Expect
	if expect == nil {
		return nil
	}

	var mismatches []string
	if got := r.Report.Messages(); !slices.Equal(got, expect.Effects) {
		mismatches = append(mismatches, fmt.Sprintf("effects: got %q, want %q", got, expect.Effects))
	}
	if got := r.UnhandledReasons(); !slices.Equal(got, expect.Unhandled) {
		mismatches = append(mismatches, fmt.Sprintf("unhandled rejections: got %q, want %q", got, expect.Unhandled))
	}
	if got := len(r.Report.TaskFailures); got != expect.TaskFailures {
		mismatches = append(mismatches, fmt.Sprintf("task failures: got %d, want %d", got, expect.TaskFailures))
	}
	if got := r.SyncErr != nil; got != expect.SyncError {
		mismatches = append(mismatches, fmt.Sprintf("synchronous error: got %v, want failure %t", r.SyncErr, expect.SyncError))
	}
	if got := errors.Is(r.Report.Err, scheduler.ErrStepLimitExceeded); got != expect.StepLimitExceeded {
		mismatches = append(mismatches, fmt.Sprintf("step limit exceeded: got %t, want %t", got, expect.StepLimitExceeded))
	}

	if len(mismatches) != 0 {
		return &ExpectationError{Scenario: r.Scenario.Name, Mismatches: mismatches}
	}
	return nil
}

// UnhandledReasons returns the formatted reason of each unhandled rejection,
// in order. It returns nil if there were none.
func (r *Result) UnhandledReasons() []string {
	var reasons []string
	for _, u := range r.Report.UnhandledRejections {
		reasons = append(reasons, FormatValue(u.Reason))
	}
	return reasons
}
