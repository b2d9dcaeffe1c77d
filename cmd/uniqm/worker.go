package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	uniqm "github.com/UniQw/uniqm-go"
	"github.com/UniQw/uniqm-go/internal/metrics"
	"github.com/UniQw/uniqm-go/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// SleepPayload is the payload of the built-in "sleep" action.
type SleepPayload struct {
	Duration string `json:"duration"`
}

// LogPayload is the payload of the built-in "log" action.
type LogPayload struct {
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "worker",
		Short:   "Run the worker pool until SIGINT/SIGTERM",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runWorker(ctx, a)
		},
	}
	return cmd
}

func runWorker(ctx context.Context, a *app) error {
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", a.cfg.Redis.Addr, err)
	}

	// a typed nil *Registry would enable metrics on the Manager
	var (
		reg    *prometheus.Registry
		regIfc prometheus.Registerer
	)
	if a.cfg.Metrics.Addr != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		regIfc = reg
	}

	mux := uniqm.NewMux()
	mux.Use(middleware.Recover(a.logger), middleware.Logging(a.logger), middleware.Tracing())
	registerDemoActions(mux, a.logger)

	m := a.manager(mux, regIfc)

	var srv *http.Server
	if reg != nil {
		httpMux := http.NewServeMux()
		httpMux.Handle("/metrics", metrics.Handler(reg))
		srv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: httpMux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.logger.Info("metrics listening", "addr", a.cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server", "err", err)
			}
		}()
	}

	m.Start()
	<-ctx.Done()
	a.logger.Info("signal received; stopping worker")
	m.Stop()

	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
	}
	return nil
}

// registerDemoActions installs the actions the CLI worker understands.
func registerDemoActions(mux *uniqm.Mux, logger *slog.Logger) {
	mux.Handle("echo", func(_ context.Context, payload []byte) (any, error) {
		return uniqm.Bind[any](payload)
	})
	mux.Handle("log", func(ctx context.Context, payload []byte) (any, error) {
		p, err := uniqm.Bind[LogPayload](payload)
		if err != nil {
			return nil, err
		}
		attrs := make([]any, 0, 2*len(p.Fields)+2)
		if job, ok := uniqm.JobFromContext(ctx); ok {
			attrs = append(attrs, "job", job.ID)
		}
		for k, v := range p.Fields {
			attrs = append(attrs, k, v)
		}
		logger.Info(p.Message, attrs...)
		return nil, nil
	})
	mux.Handle("sleep", func(ctx context.Context, payload []byte) (any, error) {
		p, err := uniqm.Bind[SleepPayload](payload)
		if err != nil {
			return nil, err
		}
		d, err := time.ParseDuration(p.Duration)
		if err != nil {
			return nil, fmt.Errorf("sleep: %w", err)
		}
		select {
		case <-time.After(d):
			return map[string]string{"slept": d.String()}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}
