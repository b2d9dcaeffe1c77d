package main

import (
	"io"
	"log/slog"
	"strings"

	uniqm "github.com/UniQw/uniqm-go"
	"github.com/UniQw/uniqm-go/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// app bundles what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	rdb    *redis.Client
}

func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(path, envFile)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, rdb: redis.NewClient(cfg.RedisOptions())}, nil
}

func (a *app) Close() error { return a.rdb.Close() }

// manager builds a Manager from the pool section. reg may be nil.
func (a *app) manager(mux *uniqm.Mux, reg prometheus.Registerer) *uniqm.Manager {
	return uniqm.NewManager(a.rdb, managerConfig(a.cfg, uniqm.NewSlogLogger(a.logger), reg), mux)
}

func managerConfig(cfg *config.Config, log uniqm.Logger, reg prometheus.Registerer) uniqm.Config {
	p := cfg.Pool
	return uniqm.Config{
		Prefix:           cfg.Prefix,
		Capacity:         p.Capacity,
		FinishedAge:      p.FinishedAge,
		FailedAge:        p.FailedAge,
		NoCallbackAge:    p.NoCallbackAge,
		InProgressAge:    p.InProgressAge,
		Period:           p.Period,
		MinJitter:        p.MinJitter,
		MaxJitter:        p.MaxJitter,
		AtomicClaim:      p.AtomicClaim,
		ClaimLockTTL:     p.ClaimLockTTL,
		SpawnerID:        p.SpawnerID,
		Logger:           log,
		Registerer:       reg,
		MetricsNamespace: cfg.Metrics.Namespace,
	}
}

func newLogger(lc config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
