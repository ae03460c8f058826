// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package scenario runs declarative, YAML-encoded event loop scripts on a
// [scheduler.Scheduler], and checks the results.
//
// A scenario declares named functions, a top-level script, and optionally
// the expected effects. Steps mirror the JavaScript constructs they stand
// in for:
//
//	functions:
//	  async2:
//	    async: true
//	    body:
//	      - log: async2
//	script:
//	  - log: script start
//	  - timeout: {delay: 0s, body: [{log: setTimeout}]}
//	  - call: async2
//	  - promise:
//	      executor: [{log: promise1}, {resolve: {}}]
//	    chain:
//	      - then: [{log: promise2}]
//	expect:
//	  effects: [script start, async2, promise1, promise2, setTimeout]
//
// An await suspends the enclosing async function, the remaining steps of
// its body running as the continuation. Awaits are only permitted at the
// top level of an async function body.
//
// Several scenarios are embedded, see [Builtins].
package scenario
