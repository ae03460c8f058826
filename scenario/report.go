// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scenario

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/joeycumines/go-utilpkg/jsonenc"
)

// WriteText writes a human-readable rendering of res to w.
func WriteText(w io.Writer, res *Result) error {
	bw := bufio.NewWriter(w)
	report := res.Report

	fmt.Fprintf(bw, "scenario: %s\n", res.Scenario.Name)
	if res.Scenario.Description != "" {
		fmt.Fprintf(bw, "  %s\n", res.Scenario.Description)
	}
	for _, e := range report.Effects {
		fmt.Fprintf(bw, "%4d  %-11s  %s\n", e.Seq, e.Context.Kind, e.Message)
	}
	if res.SyncErr != nil {
		fmt.Fprintf(bw, "synchronous failure: %v\n", res.SyncErr)
	}
	for _, f := range report.TaskFailures {
		fmt.Fprintf(bw, "task failure: %v\n", f)
	}
	for _, u := range report.UnhandledRejections {
		fmt.Fprintf(bw, "unhandled rejection: %s", FormatValue(u.Reason))
		if u.HandledLate {
			bw.WriteString(" (handled late)")
		}
		bw.WriteByte('\n')
	}
	if report.Err != nil {
		fmt.Fprintf(bw, "drain stopped: %v\n", report.Err)
	}
	fmt.Fprintf(bw, "executed %d task(s), virtual time %s\n", report.Executed, report.Now)

	return bw.Flush()
}

// WriteJSONLines writes res to w as newline-delimited JSON objects: one per
// effect, task failure and unhandled rejection, in that order, followed by
// a summary. Every object carries a "type" key.
func WriteJSONLines(w io.Writer, res *Result) error {
	var enc lineEncoder
	report := res.Report

	for _, e := range report.Effects {
		enc.begin("effect")
		enc.intField("seq", int64(e.Seq))
		enc.strField("context", e.Context.Kind.String())
		if !e.Context.Task.IsZero() {
			enc.strField("task", e.Context.Task.String())
		}
		enc.strField("msg", e.Message)
		enc.end()
	}

	for _, f := range report.TaskFailures {
		enc.begin("task_failure")
		enc.strField("task", f.Task.String())
		if f.Label != "" {
			enc.strField("label", f.Label)
		}
		enc.strField("err", f.Err.Error())
		enc.end()
	}

	for _, u := range report.UnhandledRejections {
		enc.begin("unhandled_rejection")
		enc.uintField("deferred_id", u.DeferredID)
		if u.Label != "" {
			enc.strField("label", u.Label)
		}
		enc.strField("reason", FormatValue(u.Reason))
		enc.boolField("handled_late", u.HandledLate)
		enc.end()
	}

	enc.begin("summary")
	enc.strField("scenario", res.Scenario.Name)
	enc.intField("executed", int64(report.Executed))
	enc.floatField("now_ms", float64(report.Now)/float64(time.Millisecond))
	if res.SyncErr != nil {
		enc.strField("sync_err", res.SyncErr.Error())
	}
	if report.Err != nil {
		enc.strField("err", report.Err.Error())
	}
	enc.end()

	_, err := w.Write(enc.buf)
	return err
}

// lineEncoder appends flat JSON objects, one per line.
type lineEncoder struct {
	buf []byte
}

func (x *lineEncoder) begin(typ string) {
	x.buf = append(x.buf, `{"type":`...)
	x.buf = jsonenc.AppendString(x.buf, typ)
}

func (x *lineEncoder) end() {
	x.buf = append(x.buf, '}', '\n')
}

func (x *lineEncoder) key(key string) {
	x.buf = append(x.buf, ',')
	x.buf = jsonenc.AppendString(x.buf, key)
	x.buf = append(x.buf, ':')
}

func (x *lineEncoder) strField(key, val string) {
	x.key(key)
	x.buf = jsonenc.AppendString(x.buf, val)
}

func (x *lineEncoder) intField(key string, val int64) {
	x.key(key)
	x.buf = strconv.AppendInt(x.buf, val, 10)
}

func (x *lineEncoder) uintField(key string, val uint64) {
	x.key(key)
	x.buf = strconv.AppendUint(x.buf, val, 10)
}

func (x *lineEncoder) floatField(key string, val float64) {
	x.key(key)
	x.buf = jsonenc.AppendFloat64(x.buf, val)
}

func (x *lineEncoder) boolField(key string, val bool) {
	x.key(key)
	x.buf = strconv.AppendBool(x.buf, val)
}
