package observe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/atomstore/pkg/reactive"
)

// Default tracer name for atomstore spans.
const defaultTracerName = "atomstore"

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "atomstore").
	TracerName string

	// TracerProvider provides the tracer.
	// Default: the global provider from otel.GetTracerProvider.
	TracerProvider trace.TracerProvider

	// Filter determines which written cells start a trace.
	// Return false to skip the propagation and everything under it.
	// If nil, every propagation is traced.
	Filter func(id string) bool

	// AttributeExtractor adds custom attributes to each propagation span.
	AttributeExtractor func(id string) []attribute.KeyValue

	tracer trace.Tracer
}

// TracingOption configures the OpenTelemetry observer.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.TracerProvider = tp
	}
}

// WithFilter sets a filter on written cell identifiers.
func WithFilter(filter func(id string) bool) TracingOption {
	return func(c *TracingConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(id string) []attribute.KeyValue) TracingOption {
	return func(c *TracingConfig) {
		c.AttributeExtractor = extractor
	}
}

// frame is an open span. A nil span marks a filtered propagation.
type frame struct {
	ctx  context.Context
	span trace.Span
}

// Tracer is a reactive.Observer that traces propagation.
//
// Each propagation walk becomes a span named "atomstore.propagate" with one
// child span per rebuild, nested the way the walk recursed. Writes, cell
// creation and undo calls are recorded as span events on the innermost open
// span. A computed's first build outside any walk gets a span of its own.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main():
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	s := reactive.NewStore(reactive.WithObserver(observe.NewTracer(ctx)))
type Tracer struct {
	config TracingConfig
	base   context.Context
	stack  []frame

	// lastWrite is the most recent write, attached to the propagation it starts.
	lastWrite struct{ id, op string }
}

// NewTracer creates a tracing observer whose root spans are children of ctx.
func NewTracer(ctx context.Context, opts ...TracingOption) *Tracer {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	config.tracer = config.TracerProvider.Tracer(config.TracerName)

	if ctx == nil {
		ctx = context.Background()
	}
	return &Tracer{config: config, base: ctx}
}

// Context returns the context of the innermost open span, for build
// functions that call out to traced services.
func (t *Tracer) Context() context.Context {
	if n := len(t.stack); n > 0 {
		return t.stack[n-1].ctx
	}
	return t.base
}

func (t *Tracer) current() trace.Span {
	if n := len(t.stack); n > 0 {
		return t.stack[n-1].span
	}
	return nil
}

func (t *Tracer) filtered() bool {
	n := len(t.stack)
	return n > 0 && t.stack[n-1].span == nil
}

func (t *Tracer) push(name string, attrs ...attribute.KeyValue) {
	ctx, span := t.config.tracer.Start(t.Context(), name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	t.stack = append(t.stack, frame{ctx: ctx, span: span})
}

func (t *Tracer) pop(err error, attrs ...attribute.KeyValue) {
	n := len(t.stack)
	if n == 0 {
		return
	}
	f := t.stack[n-1]
	t.stack = t.stack[:n-1]
	if f.span == nil {
		return
	}

	f.span.SetAttributes(attrs...)
	if err != nil {
		f.span.RecordError(err)
		f.span.SetStatus(codes.Error, err.Error())
	} else {
		f.span.SetStatus(codes.Ok, "")
	}
	f.span.End()
}

func (t *Tracer) event(name string, attrs ...attribute.KeyValue) {
	if span := t.current(); span != nil {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

func (t *Tracer) CellCreated(id string, kind reactive.Kind) {
	t.event("cell.created",
		attribute.String("atomstore.cell", id),
		attribute.String("atomstore.kind", kind.String()),
	)
}

func (t *Tracer) Written(id, op string) {
	t.lastWrite.id, t.lastWrite.op = id, op
	t.event("cell.written",
		attribute.String("atomstore.cell", id),
		attribute.String("atomstore.op", op),
	)
}

func (t *Tracer) PropagationStarted(id string) {
	if t.filtered() || (t.config.Filter != nil && !t.config.Filter(id)) {
		t.stack = append(t.stack, frame{ctx: t.Context()})
		return
	}

	attrs := []attribute.KeyValue{attribute.String("atomstore.cell", id)}
	if t.lastWrite.id == id {
		attrs = append(attrs, attribute.String("atomstore.op", t.lastWrite.op))
	}
	if t.config.AttributeExtractor != nil {
		attrs = append(attrs, t.config.AttributeExtractor(id)...)
	}
	t.push("atomstore.propagate", attrs...)
}

func (t *Tracer) RebuildStarted(id, cause string, depth int) {
	if t.filtered() {
		t.stack = append(t.stack, frame{ctx: t.Context()})
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("atomstore.cell", id),
		attribute.Int("atomstore.depth", depth),
	}
	if cause != "" {
		attrs = append(attrs, attribute.String("atomstore.cause", cause))
	}
	t.push(fmt.Sprintf("atomstore.rebuild %s", id), attrs...)
}

func (t *Tracer) RebuildFinished(_ string, _ int, changed bool, err error) {
	t.pop(err, attribute.Bool("atomstore.changed", changed))
}

func (t *Tracer) PropagationFinished(_ string, rebuilds int, err error) {
	t.pop(err, attribute.Int("atomstore.rebuilds", rebuilds))
}

func (t *Tracer) Undone(id string, restored bool) {
	t.event("cell.undone",
		attribute.String("atomstore.cell", id),
		attribute.Bool("atomstore.restored", restored),
	)
}
