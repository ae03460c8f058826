// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeycumines/go-taskorder/scheduler"
)

// maxCallDepth bounds synchronous function call nesting.
const maxCallDepth = 256

// ErrCallDepthExceeded is thrown by a call nested more than maxCallDepth
// deep, e.g. unbounded synchronous recursion.
var ErrCallDepthExceeded = errors.New("scenario: maximum call depth exceeded")

// valuePlaceholder is substituted in log text.
const valuePlaceholder = "$value"

// interpreter maps scenario steps onto a scheduler.
type interpreter struct {
	sc     *Scenario
	sched  *scheduler.Scheduler
	timers map[string]scheduler.TaskHandle
	depth  int
}

// frame is the dynamic context of a running step list.
type frame struct {
	// value is the input of the enclosing handler or continuation
	value   any
	resolve scheduler.ResolveFunc
	reject  scheduler.RejectFunc
}

func (f *frame) withValue(value any) *frame {
	c := *f
	c.value = value
	return &c
}

func newInterpreter(sc *Scenario, sched *scheduler.Scheduler) *interpreter {
	return &interpreter{
		sc:     sc,
		sched:  sched,
		timers: make(map[string]scheduler.TaskHandle),
	}
}

// exec runs steps in order, returning the completion value, and whether the
// list completed early, via return or await. An await completes with the
// deferred continuation, which runs the remaining steps.
func (x *interpreter) exec(steps []*Step, f *frame) (any, bool) {
	for i, st := range steps {
		switch {
		case st.Await != nil:
			rest := steps[i+1:]
			return x.sched.Await(x.operand(st.Await, f), func(value any) any {
				result, _ := x.exec(rest, f.withValue(value))
				return result
			}), true
		case st.Return != nil:
			return x.operand(st.Return, f), true
		default:
			x.step(st, f)
		}
	}
	return nil, false
}

func (x *interpreter) step(st *Step, f *frame) {
	switch {
	case st.Log != nil:
		x.sched.Log(strings.ReplaceAll(*st.Log, valuePlaceholder, FormatValue(f.value)))

	case st.Microtask != nil:
		body := st.Microtask
		x.sched.DeferMicrotask(func() { x.exec(body, f) })

	case st.Timeout != nil:
		t := st.Timeout
		h := x.sched.DeferTimer(func() { x.exec(t.Body, f) }, t.Delay, scheduler.TaskLabel(t.Name))
		if t.Name != "" {
			x.timers[t.Name] = h
		}

	case st.Cancel != "":
		x.sched.Cancel(x.timers[st.Cancel])

	case st.Call != "":
		x.chain(x.call(st.Call), st.Chain, f)

	case st.Promise != nil:
		x.chain(x.promise(st.Promise, f), st.Chain, f)

	case st.Resolve != nil:
		if f.resolve != nil {
			f.resolve(x.operand(st.Resolve, f))
		}

	case st.Reject != nil:
		if f.reject != nil {
			f.reject(x.operand(st.Reject, f))
		}

	case st.Throw != nil:
		scheduler.Throw(x.operand(st.Throw, f))
	}
}

// call invokes a function. Async functions return a deferred value, others
// their return value.
func (x *interpreter) call(name string) any {
	fn := x.sc.Functions[name]
	if fn == nil {
		scheduler.Throw(fmt.Errorf("scenario: %s is not a function", name))
	}
	if fn.Async {
		return x.sched.Async(func() any {
			return x.callBody(fn)
		})
	}
	return x.callBody(fn)
}

func (x *interpreter) callBody(fn *Function) any {
	x.depth++
	defer func() { x.depth-- }()
	if x.depth > maxCallDepth {
		scheduler.Throw(ErrCallDepthExceeded)
	}
	result, _ := x.exec(fn.Body, &frame{})
	return result
}

func (x *interpreter) promise(p *Promise, f *frame) *scheduler.Deferred {
	d := x.sched.NewPromise(func(resolve scheduler.ResolveFunc, reject scheduler.RejectFunc) {
		x.exec(p.Executor, &frame{value: f.value, resolve: resolve, reject: reject})
	})
	if p.Label != "" {
		d.WithLabel(p.Label)
	}
	return d
}

// chain registers reactions against value, each against the result of the
// previous.
func (x *interpreter) chain(value any, reactions []*Reaction, f *frame) {
	if len(reactions) == 0 {
		return
	}
	d := x.sched.Resolve(value)
	for _, r := range reactions {
		if r.Finally != nil {
			body := r.Finally
			d = d.Finally(func() { x.exec(body, f) })
			continue
		}
		d = d.Then(x.handler(r.Then, f), x.handler(r.Catch, f))
	}
}

func (x *interpreter) handler(body []*Step, f *frame) func(any) any {
	if body == nil {
		return nil
	}
	return func(value any) any {
		result, _ := x.exec(body, f.withValue(value))
		return result
	}
}

func (x *interpreter) operand(o *Operand, f *frame) any {
	switch {
	case o == nil:
		return nil
	case o.Call != "":
		return x.call(o.Call)
	case o.Promise != nil:
		return x.promise(o.Promise, f)
	case o.Rejected != nil:
		return x.sched.Reject(o.Rejected)
	default:
		return o.Value
	}
}

// FormatValue formats a value the way it appears in logs and reports, with
// nil as undefined.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "undefined"
	case string:
		return v
	case *scheduler.Deferred:
		return fmt.Sprintf("[deferred #%d %s]", v.ID(), v.State())
	default:
		return fmt.Sprint(v)
	}
}
