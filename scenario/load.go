// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package scenario

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every error returned for a scenario that decoded
// but failed validation.
var ErrInvalid = errors.New("scenario: invalid")

// ValidationError lists every problem found with a scenario.
type ValidationError struct {
	Scenario string
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	name := e.Scenario
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("scenario %s: %d problem(s): %s", name, len(e.Problems), strings.Join(e.Problems, "; "))
}

// Is matches ErrInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

var (
	validatorOnce  sync.Once
	validate       *validator.Validate
	validatorTrans ut.Translator
)

func initValidator() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		if tag, ok := field.Tag.Lookup("yaml"); ok && tag != "" {
			if name := strings.SplitN(tag, ",", 2)[0]; name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})

	locale := en.New()
	uni := ut.New(locale, locale)
	validatorTrans, _ = uni.GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(validate, validatorTrans)
	_ = validate.RegisterTranslation("required", validatorTrans, func(ut ut.Translator) error {
		return ut.Add("required", "{0} is required", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("required", fieldPath(fe.Namespace()))
		return t
	})
}

// fieldPath trims the root type from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// Load decodes a single YAML scenario from r, then validates it. Unknown
// fields are rejected.
func Load(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("scenario: empty document")
		}
		return nil, fmt.Errorf("scenario: decode: %w", err)
	}
	if err := Validate(&sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile loads the scenario at path, see [Load].
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Validate checks sc, returning a [*ValidationError] describing every
// problem found, or nil.
func Validate(sc *Scenario) error {
	if sc == nil {
		return &ValidationError{Problems: []string{"nil scenario"}}
	}
	validatorOnce.Do(initValidator)

	var problems []string
	if err := validate.Struct(sc); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return err
		}
		for _, fe := range errs {
			problems = append(problems, fe.Translate(validatorTrans))
		}
	}

	c := checker{sc: sc, timers: make(map[string]bool)}
	c.collectTimers(sc.Script)
	for _, name := range sortedKeys(sc.Functions) {
		if fn := sc.Functions[name]; fn != nil {
			c.collectTimers(fn.Body)
		}
	}
	c.steps(sc.Script, "script", scope{})
	for _, name := range sortedKeys(sc.Functions) {
		if fn := sc.Functions[name]; fn != nil {
			c.steps(fn.Body, "functions."+name+".body", scope{async: fn.Async, function: true, top: true})
		}
	}
	problems = append(problems, c.problems...)

	if len(problems) != 0 {
		return &ValidationError{Scenario: sc.Name, Problems: problems}
	}
	return nil
}

// scope is the lexical context of a step list.
type scope struct {
	// async and top are both set for the body of an async function, the
	// only place an await may appear
	async bool
	top   bool
	// function is set where return is allowed
	function bool
	// executor is set within a promise executor, where the promise may be
	// resolved or rejected
	executor bool
}

func (s scope) nested() scope {
	s.top = false
	return s
}

// checker performs the semantic checks that struct tags cannot express.
type checker struct {
	sc       *Scenario
	timers   map[string]bool
	problems []string
}

func (c *checker) errorf(path, format string, args ...any) {
	c.problems = append(c.problems, path+": "+fmt.Sprintf(format, args...))
}

func (c *checker) collectTimers(steps []*Step) {
	for _, st := range steps {
		if st == nil {
			continue
		}
		if st.Timeout != nil {
			if name := st.Timeout.Name; name != "" {
				if c.timers[name] {
					c.problems = append(c.problems, fmt.Sprintf("timeout name %q is not unique", name))
				}
				c.timers[name] = true
			}
			c.collectTimers(st.Timeout.Body)
		}
		c.collectTimers(st.Microtask)
		if st.Promise != nil {
			c.collectTimers(st.Promise.Executor)
		}
		for _, o := range []*Operand{st.Await, st.Resolve, st.Reject, st.Throw, st.Return} {
			if o != nil && o.Promise != nil {
				c.collectTimers(o.Promise.Executor)
			}
		}
		for _, r := range st.Chain {
			if r != nil {
				c.collectTimers(r.Then)
				c.collectTimers(r.Catch)
				c.collectTimers(r.Finally)
			}
		}
	}
}

func (c *checker) steps(steps []*Step, path string, sc scope) {
	for i, st := range steps {
		if st != nil {
			c.step(st, fmt.Sprintf("%s[%d]", path, i), sc)
		}
	}
}

func (c *checker) step(st *Step, path string, sc scope) {
	actions := st.actions()
	switch len(actions) {
	case 0:
		c.errorf(path, "step has no action")
		return
	case 1:
	default:
		c.errorf(path, "step has multiple actions: %s", strings.Join(actions, ", "))
		return
	}

	switch {
	case st.Microtask != nil:
		c.steps(st.Microtask, path+".microtask", scope{executor: sc.executor})
	case st.Timeout != nil:
		c.steps(st.Timeout.Body, path+".timeout.body", scope{executor: sc.executor})
	case st.Cancel != "":
		if !c.timers[st.Cancel] {
			c.errorf(path, "cancel of unknown timeout %q", st.Cancel)
		}
	case st.Call != "":
		c.function(st.Call, path+".call")
	case st.Await != nil:
		if !sc.async || !sc.top {
			c.errorf(path, "await is only allowed at the top level of an async function body")
		}
		c.operand(st.Await, path+".await")
	case st.Promise != nil:
		c.promise(st.Promise, path+".promise")
	case st.Resolve != nil, st.Reject != nil:
		if !sc.executor {
			c.errorf(path, "%s outside of a promise executor", actions[0])
		}
		c.operand(st.Resolve, path+".resolve")
		c.operand(st.Reject, path+".reject")
	case st.Throw != nil:
		c.operand(st.Throw, path+".throw")
	case st.Return != nil:
		if !sc.function {
			c.errorf(path, "return outside of a function or handler")
		}
		c.operand(st.Return, path+".return")
	}

	if len(st.Chain) != 0 {
		if st.Call == "" && st.Promise == nil {
			c.errorf(path, "chain requires call or promise")
		}
		for i, r := range st.Chain {
			if r != nil {
				c.reaction(r, fmt.Sprintf("%s.chain[%d]", path, i), sc)
			}
		}
	}
}

func (c *checker) reaction(r *Reaction, path string, sc scope) {
	handler := scope{function: true, executor: sc.executor}
	switch {
	case r.Then == nil && r.Catch == nil && r.Finally == nil:
		c.errorf(path, "reaction has no handler")
	case r.Finally != nil && (r.Then != nil || r.Catch != nil):
		c.errorf(path, "finally cannot be combined with then or catch")
	}
	c.steps(r.Then, path+".then", handler)
	c.steps(r.Catch, path+".catch", handler)
	// finally cannot change the outcome
	c.steps(r.Finally, path+".finally", scope{executor: sc.executor})
}

func (c *checker) operand(o *Operand, path string) {
	if o == nil {
		return
	}
	if names := o.operands(); len(names) > 1 {
		c.errorf(path, "operand has multiple values: %s", strings.Join(names, ", "))
		return
	}
	if o.Call != "" {
		c.function(o.Call, path+".call")
	}
	if o.Promise != nil {
		c.promise(o.Promise, path+".promise")
	}
}

func (c *checker) promise(p *Promise, path string) {
	c.steps(p.Executor, path+".executor", scope{executor: true, function: true})
}

func (c *checker) function(name, path string) {
	if fn, ok := c.sc.Functions[name]; !ok || fn == nil {
		c.errorf(path, "unknown function %q", name)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
