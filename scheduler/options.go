// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// EffectSink receives each [Effect] as it is recorded, e.g. to mirror the
// effect log to a console.
type EffectSink func(effect Effect)

// RejectionHandler is invoked for each [UnhandledRejection], at the microtask
// checkpoint where it is detected.
type RejectionHandler func(rejection *UnhandledRejection)

// TaskFailureHandler is invoked for each [TaskFailure], immediately after the
// failing callback.
type TaskFailureHandler func(failure *TaskFailure)

// schedulerOptions holds configuration options for Scheduler creation.
type schedulerOptions struct {
	logger         *logiface.Logger[logiface.Event]
	failureLimiter *catrate.Limiter
	effectSink     EffectSink
	onUnhandled    RejectionHandler
	onTaskFailure  TaskFailureHandler
	stepLimit      int
}

// Option configures a Scheduler instance.
type Option interface {
	applyScheduler(*schedulerOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applySchedulerFunc func(*schedulerOptions) error
}

func (o *optionImpl) applyScheduler(opts *schedulerOptions) error {
	return o.applySchedulerFunc(opts)
}

// WithLogger sets the structured logger. A nil logger (the default)
// disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithEffectSink mirrors every recorded [Effect] to sink. Effects are
// recorded regardless.
func WithEffectSink(sink EffectSink) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.effectSink = sink
		return nil
	}}
}

// WithUnhandledRejection configures a handler that is invoked when a rejected
// deferred value has no reaction by the end of a microtask checkpoint.
func WithUnhandledRejection(handler RejectionHandler) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.onUnhandled = handler
		return nil
	}}
}

// WithTaskFailureHandler configures a handler that is invoked when a queued
// callback panics.
func WithTaskFailureHandler(handler TaskFailureHandler) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		opts.onTaskFailure = handler
		return nil
	}}
}

// WithStepLimit bounds the number of tasks a single Drain call may execute,
// guarding against microtasks that endlessly requeue themselves. Zero (the
// default) means unlimited.
func WithStepLimit(limit int) Option {
	return &optionImpl{func(opts *schedulerOptions) error {
		if limit < 0 {
			return fmt.Errorf("%w: negative step limit %d", ErrInvalidOption, limit)
		}
		opts.stepLimit = limit
		return nil
	}}
}

// WithFailureLogRates rate limits task failure log events, per task kind and
// label, using the given rates (see catrate.NewLimiter). Failures are always
// recorded, only logging is limited.
func WithFailureLogRates(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *schedulerOptions) (err error) {
		if len(rates) == 0 {
			opts.failureLimiter = nil
			return nil
		}
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: failure log rates: %v", ErrInvalidOption, r)
			}
		}()
		opts.failureLimiter = catrate.NewLimiter(rates)
		return nil
	}}
}

// resolveOptions applies Option instances to schedulerOptions.
func resolveOptions(opts []Option) (*schedulerOptions, error) {
	cfg := &schedulerOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
