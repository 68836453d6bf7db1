// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package demo implements "calltrace demo", which traces a sample
// concurrent workload and prints the resulting event log.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tombee/calltrace/internal/commands/shared"
	"github.com/tombee/calltrace/internal/config"
	internallog "github.com/tombee/calltrace/internal/log"
	"github.com/tombee/calltrace/internal/tracing"
	"github.com/tombee/calltrace/pkg/calltrace"
	cterrors "github.com/tombee/calltrace/pkg/errors"
)

type options struct {
	workers     int
	export      string
	endpoint    string
	metricsAddr string
	linger      time.Duration
	logEvents   bool
}

// NewCommand creates the demo command
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Trace a sample concurrent workload",
		Long: `Demo runs a small order-pricing workload on several goroutines with
every step instrumented, then prints the trace event log.

Each worker makes a failing synchronous call, a nested checkout whose
price lookup suspends and resumes on another goroutine, a lookup that
completes without suspending, and a checkout that fails part way.

With --export the calls are also exported as OpenTelemetry spans. With
--metrics-addr call metrics are served in Prometheus format while the
demo runs.`,
		Example: `  calltrace demo
  calltrace demo --workers 8 --json
  calltrace demo --export console
  calltrace demo --export otlp --endpoint localhost:4317
  calltrace demo --metrics-addr :9464 --linger 30s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := &runner{
				cfg:    cfg,
				opts:   opts,
				out:    cmd.OutOrStdout(),
				json:   shared.GetJSON(),
				logger: internallog.New(&cfg.Log),
			}
			if _, err := r.run(ctx); err != nil {
				return shared.NewExecutionError("demo failed", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Number of concurrent workers (default from config)")
	cmd.Flags().StringVar(&opts.export, "export", "", "Export spans: console, otlp, otlp-http or none")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Collector endpoint for otlp exporters")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&opts.linger, "linger", 0, "Keep serving metrics this long after the workload finishes")
	cmd.Flags().BoolVar(&opts.logEvents, "log-events", false, "Also write every trace event to the structured log")

	_ = cmd.RegisterFlagCompletionFunc("export", cobra.FixedCompletions(
		[]string{"console", "otlp", "otlp-http", "none"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// apply overlays command flags on the loaded configuration.
func (o options) apply(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("workers") {
		cfg.Demo.Workers = o.workers
	}
	if o.export != "" {
		cfg.Tracing.Enabled = o.export != "none"
		cfg.Tracing.Exporters = []tracing.ExporterConfig{{Type: o.export, Endpoint: o.endpoint}}
	}
	if o.linger > 0 && o.metricsAddr == "" {
		return shared.NewUsageError("--linger requires --metrics-addr", nil)
	}
	if err := cfg.Validate(); err != nil {
		return shared.NewUsageError("invalid demo options", err)
	}
	return nil
}

// summary describes one demo run.
type summary struct {
	Workers        int `json:"workers"`
	Events         int `json:"events"`
	Calls          int `json:"calls"`
	Failures       int `json:"failures"`
	CrossGoroutine int `json:"cross_goroutine"`
	Open           int `json:"open"`
	Spans          int `json:"spans"`
}

func summarize(events []calltrace.Event) summary {
	var s summary
	started := make(map[string]calltrace.Event)

	for _, ev := range events {
		s.Events++
		switch ev.Kind {
		case calltrace.KindStarted:
			s.Calls++
			started[ev.CallID] = ev
		case calltrace.KindSuccess, calltrace.KindFailure:
			if ev.Kind == calltrace.KindFailure {
				s.Failures++
			}
			if start, ok := started[ev.CallID]; ok {
				if start.ExecutionName != ev.ExecutionName {
					s.CrossGoroutine++
				}
				delete(started, ev.CallID)
			}
		}
	}
	s.Open = len(started)
	return s
}

type runner struct {
	cfg    *config.Config
	opts   options
	out    io.Writer
	json   bool
	logger *slog.Logger

	// providerOpts are passed to the OpenTelemetry provider, e.g. an
	// in-memory syncer in tests.
	providerOpts []sdktrace.TracerProviderOption
}

func (r *runner) run(ctx context.Context) (summary, error) {
	logger := internallog.WithComponent(r.logger, "demo")

	log := calltrace.NewLog()
	ic := calltrace.NewInterceptor(
		calltrace.WithLog(log),
		calltrace.WithLogger(logger),
	)

	var (
		provider *tracing.OTelProvider
		bridge   *tracing.Bridge
		err      error
	)
	if r.cfg.Tracing.Enabled || r.opts.metricsAddr != "" {
		tcfg := r.cfg.Tracing
		if !tcfg.Enabled {
			tcfg.Exporters = nil
		}
		provider, err = tracing.NewOTelProviderWithConfig(ctx, tcfg, r.providerOpts...)
		if err != nil {
			return summary{}, err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to shut down tracing", internallog.Error(err))
			}
		}()

		redactor, err := tracing.NewRedactor(r.cfg.Tracing.Redaction)
		if err != nil {
			return summary{}, err
		}
		bridge = tracing.NewBridge(log, provider.TracerProvider(),
			tracing.WithMetrics(provider.MetricsCollector()),
			tracing.WithRedactor(redactor),
			tracing.WithLogger(logger),
		)
	}

	var metricsSrv *http.Server
	if r.opts.metricsAddr != "" {
		metricsSrv, err = serveMetrics(r.opts.metricsAddr, provider.MetricsHandler(), logger)
		if err != nil {
			return summary{}, err
		}
		defer metricsSrv.Close()
	}

	var events *internallog.EventLogger
	if r.opts.logEvents {
		events = internallog.NewEventLogger(logger, log)
	}

	start := time.Now()
	if err := r.runWorkload(ctx, ic, bridge); err != nil {
		return summary{}, err
	}
	logger.Info("workload finished",
		"workers", r.cfg.Demo.Workers,
		slog.Int64(internallog.DurationKey, time.Since(start).Milliseconds()))

	s := summarize(log.Snapshot())
	s.Workers = r.cfg.Demo.Workers
	if bridge != nil {
		bridge.Sync(ctx)
		s.Spans = s.Calls - bridge.Open()
	}
	if events != nil {
		events.Flush()
	}

	if err := r.print(log.Snapshot(), s); err != nil {
		return s, err
	}

	if metricsSrv != nil && r.opts.linger > 0 {
		logger.Info("serving metrics until linger expires", "linger", r.opts.linger)
		select {
		case <-time.After(r.opts.linger):
		case <-ctx.Done():
		}
	}

	return s, nil
}

// runWorkload starts one goroutine per worker. The bridge, when present,
// syncs in the background while the workload runs.
func (r *runner) runWorkload(ctx context.Context, ic *calltrace.Interceptor, bridge *tracing.Bridge) error {
	bridgeCtx, stopBridge := context.WithCancel(ctx)
	bridgeDone := make(chan struct{})
	go func() {
		defer close(bridgeDone)
		if bridge != nil {
			bridge.Run(bridgeCtx, r.cfg.Tracing.SyncInterval)
		}
	}()
	defer func() {
		stopBridge()
		<-bridgeDone
	}()

	s := newShop(ic, r.cfg.Demo.ResumeDelay)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Demo.Workers; i++ {
		g.Go(func() error {
			return s.work(gctx, i)
		})
	}
	return g.Wait()
}

func (r *runner) print(events []calltrace.Event, s summary) error {
	if r.json {
		for _, ev := range events {
			if _, err := r.out.Write(calltrace.FormatEvent(ev, calltrace.FormatNDJSON)); err != nil {
				return err
			}
		}
		return nil
	}

	color := shared.ColorEnabled(r.out)
	fmt.Fprintln(r.out, shared.Header.Render("Trace event log"))
	for _, ev := range events {
		if !color {
			if _, err := r.out.Write(calltrace.FormatEvent(ev, calltrace.FormatText)); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(r.out, shared.RenderEvent(ev))
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, shared.RenderOK(fmt.Sprintf(
		"%d workers, %d calls, %d events, %d failed, %d resumed on another goroutine",
		s.Workers, s.Calls, s.Events, s.Failures, s.CrossGoroutine)))
	if s.Open > 0 {
		fmt.Fprintln(r.out, shared.RenderError(fmt.Sprintf("%d calls never completed", s.Open)))
	}
	if s.Spans > 0 {
		fmt.Fprintf(r.out, "%s %d\n", shared.RenderLabel("spans exported:"), s.Spans)
	}
	return nil
}

func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, cterrors.Wrapf(err, "failed to listen on %s", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", internallog.Error(err))
		}
	}()

	logger.Info("serving metrics", "addr", srv.Addr, "path", "/metrics")
	return srv, nil
}
