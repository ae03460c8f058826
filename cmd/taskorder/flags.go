// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package main

import (
	"fmt"
	"strings"

	"github.com/joeycumines/logiface"
)

// stringsFlag is a repeatable string flag.
type stringsFlag []string

func (x *stringsFlag) String() string {
	return strings.Join(*x, ",")
}

func (x *stringsFlag) Set(value string) error {
	*x = append(*x, value)
	return nil
}

// levelFlag parses a logiface.Level by name, e.g. "debug" or "warning".
type levelFlag struct {
	level logiface.Level
}

func (x *levelFlag) String() string {
	return x.level.String()
}

func (x *levelFlag) Set(value string) error {
	for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
		if level.String() == value {
			x.level = level
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", value)
}
