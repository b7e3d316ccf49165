package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"wanhealth/internal/agent"
	"wanhealth/internal/config"
	"wanhealth/internal/logging"
	"wanhealth/internal/metrics"
	"wanhealth/internal/observability"
	"wanhealth/internal/pidfile"
	"wanhealth/internal/server"
	"wanhealth/internal/store"
)

func (a *app) runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	log := a.logger(cfg)

	if pid, err := pidfile.Check(cfg.Daemon.PIDFile); err == nil {
		return fmt.Errorf("already running (pid %d)", pid)
	}
	if err := pidfile.Write(cfg.Daemon.PIDFile); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() {
		if err := pidfile.Remove(cfg.Daemon.PIDFile); err != nil {
			log.Warn(context.Background(), "remove pid file", logging.Err(err))
		}
	}()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled: cfg.Tracing.Enabled,
		Output:  a.stderr,
	}, log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := observability.NewMetrics(reg)
	if err != nil {
		return err
	}

	sink := sinks(cfg)
	defer sink.Close()

	ag := agent.New(cfg, agent.Options{Deps: a.deps, Sink: sink, Metrics: m, Log: log})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ag.Run(gctx) })
	g.Go(func() error {
		if err := ag.WatchConfig(gctx, config.ResolvePath(a.configPath)); err != nil {
			log.Warn(gctx, "config hot reload disabled", logging.Err(err))
		}
		return nil
	})
	if cfg.Server.Listen != "" {
		srv := server.New(cfg.Server.Listen, ag, m.Handler(), log)
		g.Go(func() error { return srv.ListenAndServe(gctx) })
	}

	notify(ctx, log, daemon.SdNotifyReady)
	log.Info(ctx, "daemon started",
		logging.Int("interfaces", len(cfg.Interfaces)),
		logging.Duration("interval", cfg.EffectiveInterval()))

	err = g.Wait()
	notify(context.Background(), log, daemon.SdNotifyStopping)
	log.Info(context.Background(), "daemon stopped")
	return err
}

// notify is a no-op outside systemd: SdNotify reports sent=false.
func notify(ctx context.Context, log logging.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn(ctx, "sd_notify failed", logging.String("state", state), logging.Err(err))
		return
	}
	if sent {
		log.Debug(ctx, "sd_notify sent", logging.String("state", state))
	}
}

func (a *app) runTest(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	log := a.logger(cfg)
	// A one-shot run must not overwrite the running daemon's snapshot.
	cfg.Daemon.StateFile = ""

	sink := sinks(cfg)
	defer sink.Close()

	ag := agent.New(cfg, agent.Options{Deps: a.deps, Sink: sink, Log: log})
	cycle, err := ag.RunOnce(cmd.Context())
	if errors.Is(err, agent.ErrInterrupted) {
		return err
	}
	if err != nil {
		log.Error(cmd.Context(), "cycle output failed", logging.Err(err))
	}
	return metrics.WriteCSV(a.stdout, cycle.Records(), cfg.Metrics.Location)
}

func (a *app) statusCmd() *cobra.Command {
	var window time.Duration
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon runs and what it saw last",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runStatus(window)
		},
	}
	cmd.Flags().DurationVar(&window, "window", time.Hour, "summarize today's CSV records newer than this; 0 disables")
	return cmd
}

func (a *app) runStatus(window time.Duration) error {
	cfg, err := a.loadControlConfig()
	if err != nil {
		return err
	}

	pid, err := pidfile.Check(cfg.Daemon.PIDFile)
	if errors.Is(err, pidfile.ErrNotRunning) {
		fmt.Fprintln(a.stdout, "monitor is not running")
		return pidfile.ErrNotRunning
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "monitor running pid=%d\n", pid)

	st, err := store.LoadState(cfg.Daemon.StateFile)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	printState(a, st)

	if window > 0 {
		now := time.Now().UTC()
		items, err := metrics.ReadDay(cfg.Metrics.Dir, now)
		if err != nil {
			return fmt.Errorf("read metrics: %w", err)
		}
		printSummary(a, metrics.Summarize(items, now.Add(-window)), window)
	}
	return nil
}

func printState(a *app, st *store.State) {
	if st == nil {
		fmt.Fprintln(a.stdout, "no cycle completed yet")
		return
	}
	fmt.Fprintf(a.stdout, "last cycle %s at %s (%dms)\n", st.CycleID, st.UpdatedAt.Format(time.RFC3339), st.DurationMs)
	for _, is := range st.Interfaces {
		fmt.Fprintf(a.stdout, "  %-12s %-10s %-24s avail=%.0f%% latency=%.2fms loss=%.2f%% signal=%.0f%% method=%s\n",
			is.ID, is.Class, is.Status, is.Availability, is.LatencyMs, is.PacketLossPct, is.SignalPct, is.Method)
		for _, e := range is.Errors {
			fmt.Fprintf(a.stdout, "    error: %s\n", e)
		}
	}
}

func printSummary(a *app, summaries []metrics.Summary, window time.Duration) {
	if len(summaries) == 0 {
		fmt.Fprintf(a.stdout, "no samples in the last %s\n", window)
		return
	}
	fmt.Fprintf(a.stdout, "last %s:\n", window)
	for _, s := range summaries {
		fmt.Fprintf(a.stdout, "  %-12s samples=%d avail avg=%.2f%% latency avg=%.2fms p95=%.2fms max=%.2fms loss avg=%.2f%% last=%s\n",
			s.InterfaceID, s.Count, s.AvgAvailability, s.AvgLatencyMs, s.P95LatencyMs, s.MaxLatencyMs, s.AvgLossPct, s.LastStatus)
	}
}

func (a *app) runStop(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loadControlConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Daemon.StopTimeout)
	defer cancel()
	pid, err := pidfile.Stop(ctx, cfg.Daemon.PIDFile)
	if errors.Is(err, pidfile.ErrNotRunning) {
		fmt.Fprintln(a.stdout, "monitor is not running")
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "stopped pid=%d\n", pid)
	return nil
}
