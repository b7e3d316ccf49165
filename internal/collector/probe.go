package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wanhealth/internal/classify"
	"wanhealth/internal/config"
	"wanhealth/internal/execx"
	"wanhealth/internal/model"
	"wanhealth/internal/stunutil"
)

// degradedAvailability is what an interface that claims to be online gets
// when no probe target answers.
const degradedAvailability = 75

// stunFunc matches stunutil.Probe.
type stunFunc func(ctx context.Context, servers []string, iface string, timeout time.Duration) (stunutil.Result, error)

// Probe measures reachability through the interface. It only runs on
// interfaces the link manager reports online and can only degrade them.
type Probe struct {
	pinger  pinger
	targets []string
	count   map[model.ConnectionType]int
	stun    []string
	stunFn  stunFunc
	timeout time.Duration
}

func NewProbe(r execx.Runner, cfg config.ProbeConfig) *Probe {
	var targets []string
	for _, t := range []string{cfg.Primary, cfg.Secondary} {
		if t != "" {
			targets = append(targets, t)
		}
	}
	return &Probe{
		pinger:  pinger{r: r, timeout: cfg.Timeout},
		targets: targets,
		count: map[model.ConnectionType]int{
			model.ConnectionUnlimited: cfg.CountUnlimited,
			model.ConnectionLimited:   cfg.CountLimited,
		},
		stun:    cfg.STUNServers,
		stunFn:  stunutil.Probe,
		timeout: cfg.Timeout,
	}
}

func (c *Probe) Name() string { return classify.Probe }

func (c *Probe) Collect(ctx context.Context, iface Interface) (model.PartialMetrics, error) {
	p := model.NewPartial(c.Name(), model.PriorityProbe)
	if !iface.Online() {
		return p, ErrGated
	}

	count := c.count[iface.ConnectionType]
	if count == 0 {
		count = c.count[model.ConnectionUnlimited]
	}

	if len(c.targets) == 0 && len(c.stun) == 0 {
		return p, noData(errors.New("no reachability targets configured"))
	}

	// Each target gets an equal share of the deadline so a black-holed
	// first target cannot starve the second or the degrade below.
	var errs []error
	toolAbsent := false
	for i, target := range c.targets {
		tctx, cancel := shareBudget(ctx, len(c.targets)-i)
		res, err := c.pinger.ping(tctx, target, iface.ID, count)
		cancel()
		if err == nil {
			p.SetLatency(res.AvgMs)
			p.SetPacketLoss(res.LossPct)
			p.Method = model.MethodPing
			return p, nil
		}
		if errors.Is(err, execx.ErrToolAbsent) {
			toolAbsent = true
			break
		}
		errs = append(errs, fmt.Errorf("%s: %w", target, err))
		if ctx.Err() != nil {
			break
		}
	}

	if toolAbsent || len(c.targets) == 0 {
		if len(c.stun) == 0 {
			return p, noData(execx.ErrToolAbsent)
		}
		if ctx.Err() != nil {
			return p, ctx.Err()
		}
		res, err := c.stunFn(ctx, c.stun, iface.ID, c.timeout)
		if err == nil {
			p.SetLatency(float64(res.RTT.Microseconds()) / 1000)
			p.Method = model.MethodSTUN
			return p, nil
		}
		errs = append(errs, fmt.Errorf("stun: %w", err))
	}

	p.SetStatus(model.StatusLimited)
	p.SetAvailability(degradedAvailability)
	if err := errors.Join(errs...); err != nil {
		p.Note("probe_errors", err.Error())
	}
	return p, nil
}
