// Package errors provides structured, actionable error messages for the
// atomstore command line.
//
// Every error has a code (e.g., "E101") that maps to a short message, a
// longer explanation, an optional hint and a documentation anchor. Store
// errors from package reactive carry their code already; FromError turns
// them into a Diagnostic.
//
// # Error Categories
//
//   - store: Errors returned by the reactive engine (E101-E108)
//   - scenario: Scenario file errors (E120-E126)
//   - config: atomstore.yaml errors (E140-E141)
//   - cli: Command errors (E160-E161)
//
// # Usage
//
//	err := errors.New("E125").
//	    WithLocation("scenarios/counter.yaml", 14, 7).
//	    WithDetail(`cell "double" = 11, want 12`)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E125: Expectation failed
//	//
//	//   scenarios/counter.yaml:14:7
//	//
//	//       12 │   - set: {count: 6}
//	//       13 │   - expect:
//	//     → 14 │       double: 12
//	//          │       ^
//	//
//	//   cell "double" = 11, want 12
//	//
//	//   Learn more: docs/errors.md#e125
package errors
