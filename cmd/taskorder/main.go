// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Command taskorder runs event loop ordering scenarios on a deterministic
// scheduler.
//
// Usage:
//
//	taskorder run [-format text|jsonl] [-log-level LEVEL] [-check] [-all] [-builtin NAME]... [FILE]...
//	taskorder list
//	taskorder sum NUMBER...
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/joeycumines/go-taskorder/scenario"
	"github.com/joeycumines/go-taskorder/scheduler"
	"github.com/joeycumines/go-taskorder/sum"
)

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitMismatch = 2
)

const usage = `usage:
  taskorder run [-format text|jsonl] [-log-level LEVEL] [-check] [-all] [-builtin NAME]... [FILE]...
  taskorder list
  taskorder sum NUMBER...
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitError
	}
	switch args[0] {
	case "run":
		return runScenarios(args[1:], stdout, stderr)
	case "list":
		return listBuiltins(stdout, stderr)
	case "sum":
		return sumNumbers(args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "taskorder: unknown command %q\n%s", args[0], usage)
		return exitError
	}
}

func runScenarios(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "text", "output format: text or jsonl")
	check := fs.Bool("check", false, "exit with status 2 if any scenario does not match its expectations")
	all := fs.Bool("all", false, "run every builtin scenario")
	level := levelFlag{level: logiface.LevelWarning}
	fs.Var(&level, "log-level", "scheduler log level, written as JSON to stderr")
	var builtins stringsFlag
	fs.Var(&builtins, "builtin", "builtin scenario to run (repeatable), see taskorder list")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	var write func(io.Writer, *scenario.Result) error
	switch *format {
	case "text":
		write = scenario.WriteText
	case "jsonl":
		write = scenario.WriteJSONLines
	default:
		fmt.Fprintf(stderr, "taskorder: unknown format %q\n", *format)
		return exitError
	}

	scenarios, err := loadScenarios(*all, builtins, fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "taskorder: %v\n", err)
		return exitError
	}
	if len(scenarios) == 0 {
		fmt.Fprintf(stderr, "taskorder: no scenarios, use -all, -builtin or FILE arguments\n")
		return exitError
	}

	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(stderr)),
		stumpy.L.WithLevel(level.level),
	).Logger()

	code := exitOK
	for _, sc := range scenarios {
		res, err := scenario.Run(sc,
			scheduler.WithLogger(logger),
			scheduler.WithFailureLogRates(map[time.Duration]int{time.Second: 5}),
		)
		if err != nil {
			fmt.Fprintf(stderr, "taskorder: %s: %v\n", sc.Name, err)
			return exitError
		}
		if err := write(stdout, res); err != nil {
			fmt.Fprintf(stderr, "taskorder: write: %v\n", err)
			return exitError
		}
		if *check {
			if err := res.Check(); err != nil {
				fmt.Fprintf(stderr, "taskorder: %v\n", err)
				code = exitMismatch
			}
		}
	}
	return code
}

func loadScenarios(all bool, builtins, files []string) ([]*scenario.Scenario, error) {
	var scenarios []*scenario.Scenario
	if all {
		loaded, err := scenario.Builtins()
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, loaded...)
	}
	for _, name := range builtins {
		sc, err := scenario.Builtin(name)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	for _, path := range files {
		sc, err := scenario.LoadFile(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func listBuiltins(stdout, stderr io.Writer) int {
	scenarios, err := scenario.Builtins()
	if err != nil {
		fmt.Fprintf(stderr, "taskorder: %v\n", err)
		return exitError
	}
	for _, sc := range scenarios {
		fmt.Fprintf(stdout, "%-22s %s\n", sc.Name, sc.Description)
	}
	return exitOK
}

func sumNumbers(args []string, stdout, stderr io.Writer) int {
	numbers := make([]float64, 0, len(args))
	for _, arg := range args {
		n, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) {
				err = numErr.Err
			}
			fmt.Fprintf(stderr, "taskorder: sum: %q: %v\n", arg, err)
			return exitError
		}
		numbers = append(numbers, n)
	}
	fmt.Fprintln(stdout, strconv.FormatFloat(sum.Sum(numbers), 'g', -1, 64))
	return exitOK
}
