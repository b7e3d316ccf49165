// Package agent runs collection cycles: classify every configured interface,
// run its collector chain, merge the contributions and hand the records to
// the sinks.
package agent

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"wanhealth/internal/classify"
	"wanhealth/internal/collector"
	"wanhealth/internal/config"
	"wanhealth/internal/logging"
	"wanhealth/internal/metrics"
	"wanhealth/internal/model"
	"wanhealth/internal/normalize"
	"wanhealth/internal/observability"
	"wanhealth/internal/store"
)

// ErrInterrupted is returned by RunOnce when the cycle's context ended
// before every interface finished. Nothing is written for such a cycle.
var ErrInterrupted = errors.New("cycle interrupted")

// Options carries the agent's collaborators. Nil fields get working defaults.
type Options struct {
	Deps    collector.Deps
	Sink    metrics.Sink
	Metrics *observability.Metrics
	Log     logging.Logger
	// Build turns a config snapshot into collectors; defaults to collector.Build.
	Build func(config.Config) collector.Set
	Now   func() time.Time
}

// Outcome is the result for one interface in one cycle.
type Outcome struct {
	Record model.InterfaceRecord
	Class  classify.Class
	Info   map[string]string
	Errors []string
}

// Cycle is one finished collection pass, in configuration order.
type Cycle struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Outcomes []Outcome
	// Interrupted is set when ctx ended mid-cycle; Outcomes are then partial.
	Interrupted bool
}

// Records returns the cycle's records in configuration order.
func (c Cycle) Records() []model.InterfaceRecord {
	out := make([]model.InterfaceRecord, 0, len(c.Outcomes))
	for _, o := range c.Outcomes {
		out = append(out, o.Record)
	}
	return out
}

// State converts the cycle into the snapshot `status` reads back.
func (c Cycle) State() *store.State {
	st := &store.State{
		UpdatedAt:  c.Started.Add(c.Duration),
		PID:        os.Getpid(),
		CycleID:    c.ID,
		Started:    c.Started,
		DurationMs: c.Duration.Milliseconds(),
	}
	for _, o := range c.Outcomes {
		is := store.FromRecord(o.Class.String(), o.Record)
		is.Info = o.Info
		is.Errors = o.Errors
		st.Interfaces = append(st.Interfaces, is)
	}
	return st
}

// Agent owns the current config snapshot and its collectors.
type Agent struct {
	mu   sync.RWMutex
	cfg  config.Config
	set  collector.Set
	last *store.State

	build   func(config.Config) collector.Set
	sink    metrics.Sink
	metrics *observability.Metrics
	log     logging.Logger
	now     func() time.Time
}

// New builds an agent around a validated config snapshot.
func New(cfg config.Config, opts Options) *Agent {
	a := &Agent{
		build:   opts.Build,
		sink:    opts.Sink,
		metrics: opts.Metrics,
		log:     opts.Log,
		now:     opts.Now,
	}
	if a.build == nil {
		deps := opts.Deps
		a.build = func(c config.Config) collector.Set { return collector.Build(c, deps) }
	}
	if a.log == nil {
		a.log = logging.Noop()
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.cfg = cfg
	a.set = a.build(cfg)
	return a
}

// Config returns the snapshot the next cycle will use.
func (a *Agent) Config() config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Reload swaps in a new snapshot. A cycle already running keeps the old one.
func (a *Agent) Reload(cfg config.Config) {
	set := a.build(cfg)
	a.mu.Lock()
	a.cfg = cfg
	a.set = set
	a.mu.Unlock()
}

// Last returns the snapshot of the most recent finished cycle, or nil.
func (a *Agent) Last() *store.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Collect runs one cycle without touching the sinks.
func (a *Agent) Collect(ctx context.Context) Cycle {
	a.mu.RLock()
	cfg, set := a.cfg, a.set
	a.mu.RUnlock()

	ctx, id := logging.WithCycleID(ctx)
	started := a.now()
	ts := started.UTC()

	ctx, span := observability.Tracer().Start(ctx, "cycle")
	span.SetAttributes(
		attribute.String("cycle_id", id),
		attribute.Int("interfaces", len(cfg.Interfaces)),
	)
	defer span.End()

	workers := cfg.Daemon.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers
	}

	outcomes := make([]Outcome, len(cfg.Interfaces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ic := range cfg.Interfaces {
		g.Go(func() error {
			outcomes[i] = a.collectInterface(gctx, cfg, set, ic, ts)
			return nil
		})
	}
	_ = g.Wait()

	cycle := Cycle{
		ID:          id,
		Started:     ts,
		Duration:    a.now().Sub(started),
		Outcomes:    outcomes,
		Interrupted: ctx.Err() != nil,
	}
	if cycle.Interrupted {
		a.log.Info(ctx, "cycle interrupted", logging.Duration("duration", cycle.Duration))
		return cycle
	}
	for _, o := range outcomes {
		a.metrics.ObserveRecord(o.Record)
	}
	a.metrics.ObserveCycle(cycle.Duration)
	a.log.Info(ctx, "cycle complete",
		logging.Int("interfaces", len(outcomes)),
		logging.Duration("duration", cycle.Duration))
	return cycle
}

// RunOnce collects one cycle, appends it to the sink and saves the state
// snapshot. Sink and snapshot failures are returned together; the cycle is
// returned either way. An interrupted cycle is dropped and reported as
// ErrInterrupted.
func (a *Agent) RunOnce(ctx context.Context) (Cycle, error) {
	cycle := a.Collect(ctx)
	if cycle.Interrupted {
		return cycle, fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx))
	}
	cfg := a.Config()

	var errs []error
	if a.sink != nil {
		if err := a.sink.Write(ctx, cycle.Records()); err != nil {
			errs = append(errs, fmt.Errorf("write sink: %w", err))
		}
	}
	st := cycle.State()
	if cfg.Daemon.StateFile != "" {
		if err := store.SaveState(cfg.Daemon.StateFile, st); err != nil {
			errs = append(errs, fmt.Errorf("save state: %w", err))
		}
	}

	a.mu.Lock()
	a.last = st
	a.mu.Unlock()
	return cycle, errors.Join(errs...)
}

// Run loops cycle then sleep until ctx is cancelled. The interval is read
// from the current snapshot after every cycle so reloads take effect.
func (a *Agent) Run(ctx context.Context) error {
	for {
		_, err := a.RunOnce(ctx)
		switch {
		case errors.Is(err, ErrInterrupted):
			return nil
		case err != nil:
			a.log.Error(ctx, "cycle output failed", logging.Err(err))
		}

		interval := a.Config().EffectiveInterval()
		if interval <= 0 {
			interval = config.DefaultInterval
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (a *Agent) collectInterface(ctx context.Context, cfg config.Config, set collector.Set, ic config.InterfaceConfig, ts time.Time) Outcome {
	class := classify.Classify(ic.Name, cfg.Satellite.Alias)
	base := model.Baseline(ic.Name, model.ConnectionType(ic.ConnectionType), ts)
	log := a.log.With(logging.String("interface", ic.Name), logging.String("class", class.String()))

	timeout := cfg.Daemon.CollectorTimeout
	if timeout <= 0 {
		timeout = config.DefaultCollectorTimeout
	}

	out := Outcome{Class: class}
	var partials []model.PartialMetrics
	current := base
	for _, c := range set.Chain(class) {
		if ctx.Err() != nil {
			break
		}
		p, err := a.runCollector(ctx, c, timeout, collector.Interface{
			ID:             ic.Name,
			Class:          class,
			ConnectionType: base.ConnectionType,
			Current:        current,
		})

		switch {
		case err == nil:
			partials = append(partials, p)
			current = normalize.Merge(base, partials)
			if len(p.Info) > 0 {
				if out.Info == nil {
					out.Info = make(map[string]string, len(p.Info))
				}
				maps.Copy(out.Info, p.Info)
			}
		case errors.Is(err, collector.ErrGated):
			log.Debug(ctx, "collector skipped", logging.String("collector", c.Name()))
		case errors.Is(err, collector.ErrNoData):
			log.Debug(ctx, "collector returned no data", logging.String("collector", c.Name()), logging.Err(err))
		case ctx.Err() != nil:
			log.Debug(ctx, "collector interrupted", logging.String("collector", c.Name()), logging.Err(err))
		default:
			log.Warn(ctx, "collector failed", logging.String("collector", c.Name()), logging.Err(err))
			a.metrics.CollectorError(c.Name())
			out.Errors = append(out.Errors, c.Name()+": "+err.Error())
		}
	}

	out.Record = normalize.Merge(base, partials)
	log.Debug(ctx, "interface collected",
		logging.String("status", out.Record.Status),
		logging.Any("availability", out.Record.Availability),
		logging.String("method", out.Record.Method))
	return out
}

func (a *Agent) runCollector(parent context.Context, c collector.Collector, timeout time.Duration, iface collector.Interface) (model.PartialMetrics, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cctx, span := observability.Tracer().Start(ctx, "collector."+c.Name())
	span.SetAttributes(attribute.String("interface", iface.ID))
	defer span.End()

	p, err := c.Collect(cctx, iface)
	if err != nil && parent.Err() == nil && !errors.Is(err, collector.ErrGated) && !errors.Is(err, collector.ErrNoData) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return p, err
}
