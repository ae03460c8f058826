// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(buf)),
		stumpy.L.WithLevel(level),
	).Logger()
}

func logLines(buf *bytes.Buffer) []string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestScheduler_logsTaskFailures(t *testing.T) {
	var buf bytes.Buffer
	s := newTestScheduler(t, WithLogger(newBufferLogger(&buf, logiface.LevelWarning)))
	s.DeferTimer(func() { panic("boom") }, 0, TaskLabel("exploding"))
	s.Drain()

	lines := logLines(&buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"lvl":"warning"`)
	assert.Contains(t, lines[0], `"category":"task"`)
	assert.Contains(t, lines[0], `"kind":"timer"`)
	assert.Contains(t, lines[0], `"label":"exploding"`)
	assert.Contains(t, lines[0], `"msg":"task failed"`)
}

func TestScheduler_failureLogsAreRateLimited(t *testing.T) {
	var buf bytes.Buffer
	s := newTestScheduler(t,
		WithLogger(newBufferLogger(&buf, logiface.LevelWarning)),
		WithFailureLogRates(map[time.Duration]int{time.Hour: 1}),
	)
	for i := 0; i < 3; i++ {
		s.DeferMicrotask(func() { panic("same") }, TaskLabel("repeat"))
	}
	s.DeferMicrotask(func() { panic("other") }, TaskLabel("different"))
	report := s.Drain()

	// recording is never limited
	assert.Len(t, report.TaskFailures, 4)
	lines := logLines(&buf)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"label":"repeat"`)
	assert.Contains(t, lines[1], `"label":"different"`)
}

func TestScheduler_logsUnhandledRejections(t *testing.T) {
	var buf bytes.Buffer
	s := newTestScheduler(t, WithLogger(newBufferLogger(&buf, logiface.LevelInformational)))
	var d *Deferred
	require.NoError(t, s.RunSynchronous(func() error {
		d = s.Reject("nobody listens").WithLabel("orphan")
		return nil
	}))
	s.Drain()
	d.Catch(nil)

	lines := logLines(&buf)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"unhandled rejection"`)
	assert.Contains(t, lines[0], `"label":"orphan"`)
	assert.Contains(t, lines[0], `"reason":"nobody listens"`)
	assert.Contains(t, lines[1], `"msg":"rejection handled late"`)
}

func TestScheduler_debugLogging(t *testing.T) {
	var buf bytes.Buffer
	s := newTestScheduler(t, WithLogger(newBufferLogger(&buf, logiface.LevelDebug)))
	h := s.DeferTimer(func() {}, time.Second, TaskLabel("t"))
	s.DeferMicrotask(func() {})
	s.Cancel(h)
	s.Drain()

	out := buf.String()
	assert.Contains(t, out, `"msg":"task scheduled"`)
	assert.Contains(t, out, `"category":"timer"`)
	assert.Contains(t, out, `"msg":"task cancelled"`)
	assert.Contains(t, out, `"msg":"drain finished"`)
	// trace is below debug
	assert.NotContains(t, out, `"msg":"deferred settled"`)
}

func TestScheduler_nilLoggerIsSilent(t *testing.T) {
	s := newTestScheduler(t, WithLogger(nil))
	assert.NotPanics(t, func() {
		s.DeferMicrotask(func() { panic("unlogged") })
		s.Reject("unlogged")
		s.Drain()
	})
}
