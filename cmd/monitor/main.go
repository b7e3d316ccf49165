package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wanhealth/internal/collector"
	"wanhealth/internal/config"
	"wanhealth/internal/logging"
	"wanhealth/internal/metrics"
)

func main() {
	root := newRootCmd(os.Stdout, os.Stderr, collector.Deps{})
	if err := root.Execute(); err != nil {
		fatal(err)
	}
}

// app holds what every subcommand shares: the --config flag, the output
// streams and the host access handed to the collectors.
type app struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
	deps       collector.Deps
}

// newRootCmd builds the command tree. Zero-valued deps mean the real host.
func newRootCmd(stdout, stderr io.Writer, deps collector.Deps) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, deps: deps}

	root := &cobra.Command{
		Use:   "monitor",
		Short: "WAN interface health telemetry",
		Long: `monitor samples the health of every configured WAN interface once per
cycle and appends one CSV record per interface to a day-partitioned file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runDaemon,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to YAML config (default $"+config.EnvPath+" or "+config.DefaultPath+")")

	root.AddCommand(
		&cobra.Command{
			Use:   "daemon",
			Short: "Run collection cycles until stopped",
			Args:  cobra.NoArgs,
			RunE:  a.runDaemon,
		},
		&cobra.Command{
			Use:   "test",
			Short: "Run one cycle, append it and print it as CSV",
			Args:  cobra.NoArgs,
			RunE:  a.runTest,
		},
		a.statusCmd(),
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the running daemon",
			Args:  cobra.NoArgs,
			RunE:  a.runStop,
		},
	)
	return root
}

// loadConfig reads and validates the config for commands that collect.
func (a *app) loadConfig() (config.Config, error) {
	path := config.ResolvePath(a.configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// loadControlConfig is used by status and stop, which only need file
// locations. A missing config file falls back to the defaults.
func (a *app) loadControlConfig() (config.Config, error) {
	path := config.ResolvePath(a.configPath)
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Config{}
		config.ApplyDefaults(&cfg)
		return cfg, nil
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func (a *app) logger(cfg config.Config) logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: a.stderr,
	})
}

// sinks builds the CSV sink plus the InfluxDB sink when configured.
func sinks(cfg config.Config) metrics.Sink {
	out := metrics.Multi{metrics.NewCSVSink(cfg.Metrics.Dir, cfg.Metrics.Location)}
	if cfg.Influx.URL != "" {
		out = append(out, metrics.NewInfluxSink(metrics.InfluxConfig{
			URL:         cfg.Influx.URL,
			Token:       cfg.Influx.Token,
			Org:         cfg.Influx.Org,
			Bucket:      cfg.Influx.Bucket,
			Measurement: cfg.Influx.Measurement,
			Location:    cfg.Metrics.Location,
		}))
	}
	return out
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
