// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scheduler

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()
	s, err := New(opts...)
	require.NoError(t, err)
	return s
}

func TestScheduler_MicrotasksRunFIFO(t *testing.T) {
	for _, n := range []int{1, 2, 3, 17, 64, 65, 300} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			s := newTestScheduler(t)
			want := make([]string, n)
			require.NoError(t, s.RunSynchronous(func() error {
				for i := 0; i < n; i++ {
					msg := fmt.Sprintf("m%d", i)
					want[i] = msg
					s.DeferMicrotask(func() { s.Log(msg) })
				}
				return nil
			}))
			report := s.Drain()
			require.NoError(t, report.Err)
			if diff := cmp.Diff(want, report.Messages()); diff != "" {
				t.Errorf("unexpected order (-want +got):\n%s", diff)
			}
			assert.Equal(t, n, report.Executed)
		})
	}
}

func TestScheduler_TimersWithEqualDelayRunInRegistrationOrder(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.RunSynchronous(func() error {
		for i := 0; i < 10; i++ {
			msg := fmt.Sprintf("t%d", i)
			s.DeferTimer(func() { s.Log(msg) }, 5*time.Millisecond)
		}
		return nil
	}))
	assert.Equal(t, []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9"}, s.Drain().Messages())
}

func TestScheduler_TimersOrderedByDelayThenSequence(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.RunSynchronous(func() error {
		s.DeferTimer(func() { s.Log("30") }, 30*time.Millisecond)
		s.DeferTimer(func() { s.Log("10a") }, 10*time.Millisecond)
		s.DeferTimer(func() { s.Log("0") }, 0)
		s.DeferTimer(func() { s.Log("20") }, 20*time.Millisecond)
		s.DeferTimer(func() { s.Log("10b") }, 10*time.Millisecond)
		s.DeferTimer(func() { s.Log("negative") }, -time.Second)
		return nil
	}))
	report := s.Drain()
	assert.Equal(t, []string{"0", "negative", "10a", "10b", "20", "30"}, report.Messages())
	assert.Equal(t, 30*time.Millisecond, report.Now)
}

func TestScheduler_NoTimerRunsWhileMicrotasksPending(t *testing.T) {
	s := newTestScheduler(t)
	var violations int
	checkTimer := func(name string) func() {
		return func() {
			if micro, _ := s.Pending(); micro != 0 {
				violations++
			}
			s.Log(name)
			s.DeferMicrotask(func() { s.Log(name + ".micro") })
		}
	}
	var requeue func(n int)
	requeue = func(n int) {
		s.Log(fmt.Sprintf("chain%d", n))
		if n < 3 {
			s.DeferMicrotask(func() { requeue(n + 1) })
		}
	}
	require.NoError(t, s.RunSynchronous(func() error {
		s.DeferTimer(checkTimer("a"), 0)
		s.DeferTimer(checkTimer("b"), 0)
		s.DeferMicrotask(func() { requeue(0) })
		return nil
	}))
	report := s.Drain()
	assert.Zero(t, violations)
	assert.Equal(t, []string{
		"chain0", "chain1", "chain2", "chain3",
		"a", "a.micro",
		"b", "b.micro",
	}, report.Messages())
}

func TestScheduler_ZeroDelayTimerNeverRunsSynchronously(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.RunSynchronous(func() error {
		s.DeferTimer(func() { s.Log("timer") }, 0)
		s.Log("sync")
		return nil
	}))
	assert.Equal(t, []string{"sync"}, messages(s.Effects()))
	micro, timers := s.Pending()
	assert.Equal(t, 0, micro)
	assert.Equal(t, 1, timers)
	assert.Equal(t, []string{"sync", "timer"}, s.Drain().Messages())
}

func TestScheduler_DrainIsIdempotent(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.RunSynchronous(func() error {
		s.DeferMicrotask(func() { s.Log("micro") })
		s.DeferTimer(func() { s.Log("timer") }, time.Second)
		return nil
	}))
	first := s.Drain()
	assert.Equal(t, 2, first.Executed)

	second := s.Drain()
	assert.Zero(t, second.Executed)
	assert.NoError(t, second.Err)
	assert.Equal(t, first.Effects, second.Effects)
	assert.Equal(t, first.Now, second.Now)

	// an empty scheduler drains to nothing
	empty := newTestScheduler(t).Drain()
	assert.Zero(t, empty.Executed)
	assert.Empty(t, empty.Effects)
}

func TestScheduler_Cancel(t *testing.T) {
	t.Run("timer", func(t *testing.T) {
		s := newTestScheduler(t)
		var h TaskHandle
		require.NoError(t, s.RunSynchronous(func() error {
			s.DeferTimer(func() { s.Log("a") }, 0)
			h = s.DeferTimer(func() { s.Log("cancelled") }, 0)
			s.DeferTimer(func() { s.Log("b") }, 0)
			return nil
		}))
		assert.Equal(t, KindTimer, h.Kind())
		assert.True(t, s.Cancel(h))
		assert.False(t, s.Cancel(h), "second cancel must fail")
		assert.Equal(t, []string{"a", "b"}, s.Drain().Messages())
	})

	t.Run("microtask", func(t *testing.T) {
		s := newTestScheduler(t)
		var handles []TaskHandle
		require.NoError(t, s.RunSynchronous(func() error {
			for i := 0; i < 5; i++ {
				msg := fmt.Sprint(i)
				handles = append(handles, s.DeferMicrotask(func() { s.Log(msg) }))
			}
			return nil
		}))
		assert.True(t, s.Cancel(handles[1]))
		assert.True(t, s.Cancel(handles[3]))
		micro, _ := s.Pending()
		assert.Equal(t, 3, micro)
		assert.Equal(t, []string{"0", "2", "4"}, s.Drain().Messages())
	})

	t.Run("from an earlier task", func(t *testing.T) {
		s := newTestScheduler(t)
		var later TaskHandle
		require.NoError(t, s.RunSynchronous(func() error {
			s.DeferTimer(func() {
				s.Log("first")
				assert.True(t, s.Cancel(later))
			}, 0)
			later = s.DeferTimer(func() { s.Log("later") }, time.Millisecond)
			return nil
		}))
		assert.Equal(t, []string{"first"}, s.Drain().Messages())
	})

	t.Run("after execution", func(t *testing.T) {
		s := newTestScheduler(t)
		h := s.DeferMicrotask(func() {})
		s.Drain()
		assert.False(t, s.Cancel(h))
	})

	t.Run("invalid handles", func(t *testing.T) {
		s := newTestScheduler(t)
		h := s.DeferMicrotask(func() {})
		assert.False(t, s.Cancel(TaskHandle{}))
		assert.False(t, s.Cancel(TaskHandle{id: h.ID(), kind: KindTimer}), "kind mismatch")
		assert.True(t, s.Cancel(h))
	})
}

func TestScheduler_MicrotaskFromTimerDrainsBeforeNextTimer(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.RunSynchronous(func() error {
		s.DeferTimer(func() {
			s.Log("timer1")
			s.DeferMicrotask(func() {
				s.Log("micro1")
				s.DeferMicrotask(func() { s.Log("micro2") })
			})
		}, 0)
		s.DeferTimer(func() { s.Log("timer2") }, 0)
		return nil
	}))
	assert.Equal(t, []string{"timer1", "micro1", "micro2", "timer2"}, s.Drain().Messages())
}

func TestScheduler_VirtualClock(t *testing.T) {
	s := newTestScheduler(t)
	var at []time.Duration
	require.NoError(t, s.RunSynchronous(func() error {
		s.DeferTimer(func() {
			at = append(at, s.Now())
			s.Log("10")
			// deadline 15, after the timer registered at 0 with delay 12
			s.DeferTimer(func() {
				at = append(at, s.Now())
				s.Log("10+5")
			}, 5*time.Millisecond)
		}, 10*time.Millisecond)
		s.DeferTimer(func() {
			at = append(at, s.Now())
			s.Log("12")
		}, 12*time.Millisecond)
		return nil
	}))
	report := s.Drain()
	assert.Equal(t, []string{"10", "12", "10+5"}, report.Messages())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 12 * time.Millisecond, 15 * time.Millisecond}, at)
	assert.Equal(t, 15*time.Millisecond, s.Now())
}

func TestScheduler_RunSynchronousFailures(t *testing.T) {
	sentinel := errors.New("sentinel")

	t.Run("error", func(t *testing.T) {
		s := newTestScheduler(t)
		err := s.RunSynchronous(func() error {
			s.DeferTimer(func() { s.Log("timer") }, 0)
			return sentinel
		})
		var failure *SynchronousFailure
		require.ErrorAs(t, err, &failure)
		assert.ErrorIs(t, err, sentinel)
		// work queued before the failure is kept
		assert.Equal(t, []string{"timer"}, s.Drain().Messages())
	})

	t.Run("panic", func(t *testing.T) {
		s := newTestScheduler(t)
		err := s.RunSynchronous(func() error { panic(sentinel) })
		var panicErr PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, ContextIdle, s.Current().Kind)
	})

	t.Run("throw", func(t *testing.T) {
		s := newTestScheduler(t)
		err := s.RunSynchronous(func() error {
			Throw("boom")
			return nil
		})
		var thrownErr *ThrownError
		require.ErrorAs(t, err, &thrownErr)
		assert.Equal(t, "boom", thrownErr.Value)
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, newTestScheduler(t).RunSynchronous(nil))
	})
}

func TestScheduler_TaskFailuresAreRecordedNotFatal(t *testing.T) {
	var handled []*TaskFailure
	s := newTestScheduler(t, WithTaskFailureHandler(func(f *TaskFailure) {
		handled = append(handled, f)
	}))
	sentinel := errors.New("sentinel")
	var micro, timer TaskHandle
	require.NoError(t, s.RunSynchronous(func() error {
		micro = s.DeferMicrotask(func() { panic(sentinel) }, TaskLabel("bad micro"))
		s.DeferMicrotask(func() { s.Log("after micro") })
		timer = s.DeferTimer(func() { Throw("bad") }, 0)
		s.DeferTimer(func() { s.Log("after timer") }, 0)
		return nil
	}))

	report := s.Drain()
	assert.Equal(t, []string{"after micro", "after timer"}, report.Messages())
	require.Len(t, report.TaskFailures, 2)
	assert.Equal(t, handled, report.TaskFailures)

	first := report.TaskFailures[0]
	assert.Equal(t, micro, first.Task)
	assert.Equal(t, KindMicrotask, first.Task.Kind())
	assert.Equal(t, "bad micro", first.Label)
	assert.ErrorIs(t, first, sentinel)

	second := report.TaskFailures[1]
	assert.Equal(t, timer, second.Task)
	var thrownErr *ThrownError
	require.ErrorAs(t, second, &thrownErr)
	assert.Equal(t, "bad", thrownErr.Value)
}

func TestScheduler_PanickingHandlerDoesNotEscapeDrain(t *testing.T) {
	s := newTestScheduler(t, WithTaskFailureHandler(func(*TaskFailure) { panic("handler") }))
	s.DeferMicrotask(func() { panic("task") })
	s.DeferMicrotask(func() { s.Log("still running") })
	var report *Report
	require.NotPanics(t, func() { report = s.Drain() })
	assert.Equal(t, []string{"still running"}, report.Messages())
	assert.Len(t, report.TaskFailures, 1)
}

func TestScheduler_Reentrancy(t *testing.T) {
	s := newTestScheduler(t)
	var syncErr error
	var nested *Report
	s.DeferMicrotask(func() {
		syncErr = s.RunSynchronous(func() error { return nil })
		nested = s.Drain()
	})
	report := s.Drain()
	assert.NoError(t, report.Err)
	assert.ErrorIs(t, syncErr, ErrReentrant)
	require.NotNil(t, nested)
	assert.ErrorIs(t, nested.Err, ErrReentrant)

	assert.NoError(t, s.RunSynchronous(func() error {
		assert.ErrorIs(t, s.RunSynchronous(func() error { return nil }), ErrReentrant)
		assert.ErrorIs(t, s.Drain().Err, ErrReentrant)
		return nil
	}))
}

func TestScheduler_StepLimit(t *testing.T) {
	s := newTestScheduler(t, WithStepLimit(10))
	var spin func()
	spin = func() { s.DeferMicrotask(spin) }
	s.DeferMicrotask(spin)
	s.DeferTimer(func() { s.Log("starved") }, 0)

	report := s.Drain()
	assert.ErrorIs(t, report.Err, ErrStepLimitExceeded)
	assert.Equal(t, 10, report.Executed)
	assert.Empty(t, report.Messages())
	micro, timers := s.Pending()
	assert.Equal(t, 1, micro)
	assert.Equal(t, 1, timers)
}

func TestScheduler_EffectContexts(t *testing.T) {
	var sunk []Effect
	s := newTestScheduler(t, WithEffectSink(func(e Effect) { sunk = append(sunk, e) }))
	var micro, timer TaskHandle
	require.NoError(t, s.RunSynchronous(func() error {
		s.Logf("sync %d", 1)
		micro = s.DeferMicrotask(func() { s.Log("micro") })
		timer = s.DeferTimer(func() { s.Log("timer") }, 0)
		return nil
	}))
	report := s.Drain()
	assert.Equal(t, []Effect{
		{Seq: 1, Message: "sync 1", Context: ExecutionContext{Kind: ContextSynchronous}},
		{Seq: 2, Message: "micro", Context: ExecutionContext{Kind: ContextMicrotask, Task: micro}},
		{Seq: 3, Message: "timer", Context: ExecutionContext{Kind: ContextTimer, Task: timer}},
	}, report.Effects)
	assert.Equal(t, report.Effects, sunk)
}

func TestScheduler_NilCallbacksAreIgnored(t *testing.T) {
	s := newTestScheduler(t)
	assert.True(t, s.DeferMicrotask(nil).IsZero())
	assert.True(t, s.DeferTimer(nil, 0).IsZero())
	micro, timers := s.Pending()
	assert.Zero(t, micro)
	assert.Zero(t, timers)
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(WithStepLimit(-1))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = New(WithFailureLogRates(map[time.Duration]int{time.Second: 0}))
	assert.ErrorIs(t, err, ErrInvalidOption)

	s, err := New(nil, WithFailureLogRates(nil), WithStepLimit(0))
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestTaskHandle_String(t *testing.T) {
	assert.Equal(t, "task#0", TaskHandle{}.String())
	assert.Equal(t, "timer#3", TaskHandle{id: 3, kind: KindTimer}.String())
	assert.Equal(t, "microtask#1", TaskHandle{id: 1, kind: KindMicrotask}.String())
	assert.Equal(t, "TaskKind(9)", TaskKind(9).String())
	assert.Equal(t, "synchronous", ContextSynchronous.String())
}

func messages(effects []Effect) []string {
	return (&Report{Effects: effects}).Messages()
}
