// Package observe provides reactive.Observer implementations for production
// stores.
//
// This package includes:
//   - Prometheus metrics
//   - OpenTelemetry tracing of propagation walks
//   - An in-memory event recorder
//
// Combine them with reactive.Observers:
//
//	rec := observe.NewRecorder()
//	s := reactive.NewStore(reactive.WithObserver(reactive.Observers(
//	    observe.NewMetrics(observe.WithRegistry(reg)),
//	    observe.NewTracer(ctx, observe.WithTracerName("my-app")),
//	    rec,
//	)))
//
// # Prometheus Metrics
//
// Metrics counts cell creation, writes, rebuilds, propagation walks and
// undo calls, and observes walk duration and the number of rebuilds per walk:
//   - atomstore_writes_total: Writes by op (set, update, undo)
//   - atomstore_rebuilds_total: Build function runs by status
//   - atomstore_propagation_duration_seconds: Walk duration histogram
//
// # OpenTelemetry Tracing
//
// Tracer opens a span per propagation walk with a child span per rebuild.
// Failed rebuilds record the error and set the span status to Error.
//
// # Recorder
//
// Recorder keeps every event in order and renders a text trace, one event per
// line indented by propagation depth:
//
//	written count op=update
//	propagate count
//	  rebuild double cause=count
//	  rebuilt double changed=true
//	propagated count rebuilds=1
package observe
