package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vango-dev/atomstore/pkg/reactive"
)

func newTestTracer(opts ...TracingOption) (*Tracer, *tracetest.InMemoryExporter) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	opts = append([]TracingOption{WithTracerProvider(tp)}, opts...)
	return NewTracer(context.Background(), opts...), exp
}

func spanNamed(spans tracetest.SpanStubs, name string) (tracetest.SpanStub, bool) {
	for _, s := range spans {
		if s.Name == name {
			return s, true
		}
	}
	return tracetest.SpanStub{}, false
}

func hasAttr(attrs []attribute.KeyValue, kv attribute.KeyValue) bool {
	for _, a := range attrs {
		if a == kv {
			return true
		}
	}
	return false
}

func TestTracerNestsRebuildsUnderPropagation(t *testing.T) {
	tr, exp := newTestTracer(WithAttributeExtractor(func(id string) []attribute.KeyValue {
		return []attribute.KeyValue{attribute.String("test.attr", "ok")}
	}))
	s := quietStore(tr)
	defer s.Close()

	a, err := reactive.NewAtom(s, "a", func() int { return 1 })
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reactive.NewComputed(s, "b", func(rc *reactive.Rebuild) (int, error) { return a.Track(rc) }); err != nil {
		t.Fatal(err)
	}
	exp.Reset()

	if err := a.Set(2); err != nil {
		t.Fatal(err)
	}

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	prop, ok := spanNamed(spans, "atomstore.propagate")
	if !ok {
		t.Fatal("missing propagate span")
	}
	rebuild, ok := spanNamed(spans, "atomstore.rebuild b")
	if !ok {
		t.Fatal("missing rebuild span")
	}

	if rebuild.Parent.SpanID() != prop.SpanContext.SpanID() {
		t.Error("rebuild span is not a child of the propagate span")
	}
	if !hasAttr(prop.Attributes, attribute.String("atomstore.op", "set")) {
		t.Errorf("propagate attrs = %v, want op=set", prop.Attributes)
	}
	if !hasAttr(prop.Attributes, attribute.String("test.attr", "ok")) {
		t.Errorf("propagate attrs = %v, want extracted attribute", prop.Attributes)
	}
	if !hasAttr(prop.Attributes, attribute.Int("atomstore.rebuilds", 1)) {
		t.Errorf("propagate attrs = %v, want rebuilds=1", prop.Attributes)
	}
	if !hasAttr(rebuild.Attributes, attribute.String("atomstore.cause", "a")) {
		t.Errorf("rebuild attrs = %v, want cause=a", rebuild.Attributes)
	}
	if prop.Status.Code != codes.Ok {
		t.Errorf("propagate status = %v, want Ok", prop.Status.Code)
	}
	if tr.Context() != context.Background() {
		t.Error("span stack not unwound")
	}
}

func TestTracerRecordsErrors(t *testing.T) {
	tr, exp := newTestTracer()
	s := quietStore(tr)
	defer s.Close()

	a, err := reactive.NewAtom(s, "a", func() int { return 1 })
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	_, err = reactive.NewComputed(s, "b", func(rc *reactive.Rebuild) (int, error) {
		n, err := a.Track(rc)
		if err == nil && n > 1 {
			err = boom
		}
		return n, err
	})
	if err != nil {
		t.Fatal(err)
	}
	exp.Reset()

	if err := a.Set(2); !errors.Is(err, boom) {
		t.Fatalf("Set error = %v", err)
	}
	for _, span := range exp.GetSpans() {
		if span.Status.Code != codes.Error {
			t.Errorf("span %s status = %v, want Error", span.Name, span.Status.Code)
		}
		if len(span.Events) == 0 {
			t.Errorf("span %s has no recorded error event", span.Name)
		}
	}
}

func TestTracerFilter(t *testing.T) {
	tr, exp := newTestTracer(WithFilter(func(id string) bool { return id != "quiet" }))
	s := quietStore(tr)
	defer s.Close()

	q, err := reactive.NewAtom(s, "quiet", func() int { return 0 })
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reactive.NewComputed(s, "echo", func(rc *reactive.Rebuild) (int, error) { return q.Track(rc) }); err != nil {
		t.Fatal(err)
	}
	exp.Reset()

	if err := q.Set(1); err != nil {
		t.Fatal(err)
	}
	if n := len(exp.GetSpans()); n != 0 {
		t.Errorf("filtered propagation produced %d spans", n)
	}
	if tr.Context() != context.Background() {
		t.Error("span stack not unwound")
	}
}
