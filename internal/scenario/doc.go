// Package scenario runs scripted store sessions from YAML files.
//
// A scenario declares typed atoms, computeds built from a fixed set of
// operations, and steps that write, undo, batch and check values:
//
//	name: counter
//	cells:
//	  - id: count
//	    type: int        # int | float | string | bool
//	    init: 5
//	    undo: true
//	computed:
//	  - id: double
//	    op: scale        # sum product min max scale div negate not len concat format
//	    inputs: [count]
//	    params: {factor: 2}
//	steps:
//	  - set: {count: 6}
//	  - expect: {double: 12}
//	  - undo: count
//	  - set: {double: 1}
//	    fails: E103
//
// Every store event is recorded; Result.Report renders the trace and final
// values as stable text for golden comparison.
package scenario
