package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/atomstore/internal/errors"
	"github.com/vango-dev/atomstore/internal/scenario"
	"github.com/vango-dev/atomstore/pkg/observe"
	"github.com/vango-dev/atomstore/pkg/reactive"
)

func runCmd(flags *globalFlags) *cobra.Command {
	var (
		asJSON bool
		spans  bool
	)

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print its trace",
		Long: `Run a scenario file step by step.

Every store event is printed as an indented trace, followed by the final
value of each cell. A failing step stops the run; the trace up to the
failure is still printed.

Examples:
  atomstore run scenarios/counter.yaml
  atomstore run --json scenarios/diamond.yaml
  atomstore run --spans scenarios/diamond.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, flags, args[0], asJSON, spans)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&spans, "spans", false, "Also print the OpenTelemetry spans of each propagation")

	return cmd
}

// jsonResult is the --json output.
type jsonResult struct {
	Name   string             `json:"name"`
	Values map[string]any     `json:"values"`
	Events []observe.Event    `json:"events"`
	Spans  []string           `json:"spans,omitempty"`
	Error  *errors.Diagnostic `json:"error,omitempty"`
}

func runScenario(cmd *cobra.Command, flags *globalFlags, path string, asJSON, spans bool) error {
	cfg, logger, err := flags.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	var (
		exp *tracetest.InMemoryExporter
		obs reactive.Observer
	)
	if spans {
		exp = tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		defer tp.Shutdown(context.Background())
		obs = observe.NewTracer(cmd.Context(), observe.WithTracerProvider(tp))
	}

	sess, err := scenario.Open(sc, obs, cfg.StoreOptions(logger)...)
	if err != nil {
		return err
	}
	defer sess.Close()

	runErr := sess.RunSteps()
	res := sess.Result()
	logger.Debug("scenario finished", "name", res.Name, "events", len(res.Events), "error", runErr)

	var spanLines []string
	if exp != nil {
		spanLines = spanTree(exp.GetSpans())
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonResult{
			Name:   res.Name,
			Values: res.Values,
			Events: res.Events,
			Spans:  spanLines,
			Error:  errors.FromError(runErr, "E160"),
		}); err != nil {
			return err
		}
		return runErr
	}

	io.WriteString(out, res.Report())
	if exp != nil {
		io.WriteString(out, "--- spans\n")
		for _, line := range spanLines {
			fmt.Fprintln(out, line)
		}
	}
	return runErr
}

// spanTree renders spans depth-first from their roots, children indented
// under their parent. Spans end child first, so within one parent the
// exporter order is also the start order.
func spanTree(spans tracetest.SpanStubs) []string {
	known := make(map[trace.SpanID]bool, len(spans))
	for _, s := range spans {
		known[s.SpanContext.SpanID()] = true
	}
	children := make(map[trace.SpanID][]tracetest.SpanStub)
	var roots []tracetest.SpanStub
	for _, s := range spans {
		if p := s.Parent.SpanID(); s.Parent.IsValid() && known[p] {
			children[p] = append(children[p], s)
			continue
		}
		roots = append(roots, s)
	}

	var lines []string
	var walk func(s tracetest.SpanStub, depth int)
	walk = func(s tracetest.SpanStub, depth int) {
		line := strings.Repeat("  ", depth) + s.Name
		if s.Status.Code == codes.Error {
			line += " error=" + fmt.Sprintf("%q", s.Status.Description)
		}
		lines = append(lines, line)
		for _, c := range children[s.SpanContext.SpanID()] {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return lines
}
