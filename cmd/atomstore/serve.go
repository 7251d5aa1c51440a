package main

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/atomstore/internal/errors"
	"github.com/vango-dev/atomstore/internal/inspect"
	"github.com/vango-dev/atomstore/internal/scenario"
	"github.com/vango-dev/atomstore/pkg/observe"
	"github.com/vango-dev/atomstore/pkg/reactive"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		addr      string
		skipSteps bool
	)

	cmd := &cobra.Command{
		Use:   "serve <scenario.yaml>",
		Short: "Serve a scenario's store over HTTP",
		Long: `Build a store from a scenario and serve it on the inspector.

The scenario's steps run first unless --skip-steps is given. The store
then stays live: cells can be read and written over HTTP, and every
event is streamed to WebSocket clients on /watch.

Routes:
  GET  /cells  GET|PUT /cells/{id}  POST /cells/{id}/undo
  GET  /edges  GET /graph  GET /metrics  GET /watch

Examples:
  atomstore serve scenarios/counter.yaml
  atomstore serve --addr=:8080 scenarios/counter.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd, flags, args[0], addr, skipSteps)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from atomstore.yaml)")
	cmd.Flags().BoolVar(&skipSteps, "skip-steps", false, "Serve the initial state without running the steps")

	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, flags *globalFlags, path, addr string, skipSteps bool) error {
	cfg, logger, err := flags.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Inspector.Addr = addr
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	hub := inspect.NewHub(logger)
	defer hub.Close()
	observers := []reactive.Observer{hub.Observer()}
	opts := []inspect.Option{inspect.WithHub(hub), inspect.WithLogger(logger)}

	var metrics *observe.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observe.NewMetrics(
			observe.WithNamespace(cfg.Metrics.Namespace),
			observe.WithRegistry(reg),
		)
		observers = append(observers, metrics)
		opts = append(opts, inspect.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	sess, err := scenario.Open(sc, reactive.Observers(observers...), cfg.StoreOptions(logger)...)
	if err != nil {
		return err
	}
	defer func() {
		sess.Close()
		if metrics != nil {
			metrics.Reset()
		}
	}()

	if !skipSteps {
		if err := sess.RunSteps(); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", cfg.Inspector.Addr)
	if err != nil {
		return errors.New("E161").Wrap(err)
	}

	srv := &http.Server{
		Handler:           inspect.New(sess.Store, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	out := cmd.OutOrStdout()
	success(out, "Serving %s on http://%s", sc.Name, ln.Addr())
	info(out, "%d cells, watch events at ws://%s/watch", len(sess.Store.IDs()), ln.Addr())
	logger.Info("inspector started", "addr", ln.Addr().String(), "scenario", sc.Name)

	select {
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("E161").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	info(out, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New("E161").Wrap(err)
	}
	return nil
}
