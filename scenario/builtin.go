// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scenario

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
)

// ErrUnknownBuiltin is returned by [Builtin] for an unknown name.
var ErrUnknownBuiltin = errors.New("scenario: unknown builtin")

//go:embed builtin/*.yaml
var builtinFS embed.FS

const builtinExt = ".yaml"

// BuiltinNames returns the names of the embedded scenarios, sorted.
func BuiltinNames() []string {
	entries, _ := builtinFS.ReadDir("builtin")
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if name, ok := strings.CutSuffix(entry.Name(), builtinExt); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Builtin loads the embedded scenario with the given name.
func Builtin(name string) (*Scenario, error) {
	if !slices.Contains(BuiltinNames(), name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBuiltin, name)
	}
	f, err := builtinFS.Open(path.Join("builtin", name+builtinExt))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("builtin %s: %w", name, err)
	}
	if sc.Name != name {
		return nil, fmt.Errorf("builtin %s: name mismatch: %q", name, sc.Name)
	}
	return sc, nil
}

// Builtins loads every embedded scenario, ordered by name.
func Builtins() ([]*Scenario, error) {
	names := BuiltinNames()
	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		sc, err := Builtin(name)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}
