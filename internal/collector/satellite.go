package collector

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"wanhealth/internal/addrutil"
	"wanhealth/internal/classify"
	"wanhealth/internal/config"
	"wanhealth/internal/execx"
	"wanhealth/internal/model"
	"wanhealth/internal/satellite"
)

const (
	obstructedAvailability = 60
	obstructionFloor       = 0.05
	// snrFullScale is the SNR reported by a terminal with a clean sky.
	snrFullScale = 9.0
)

// StatusSource is what the collector needs from the JSON-RPC client.
type StatusSource interface {
	GetStatus(ctx context.Context, endpoints []string) (satellite.DishStatus, string, error)
}

// Satellite reads the terminal's local status API and falls back to pinging
// its management address when no endpoint answers.
type Satellite struct {
	client       StatusSource
	endpoints    []string
	managementIP string
	pinger       pinger
	count        map[model.ConnectionType]int
}

func NewSatellite(client StatusSource, r execx.Runner, cfg config.SatelliteConfig, probe config.ProbeConfig) *Satellite {
	return &Satellite{
		client:       client,
		endpoints:    addrutil.Endpoints(cfg.Endpoints, config.DefaultSatellitePort),
		managementIP: cfg.ManagementIP,
		pinger:       pinger{r: r, timeout: probe.Timeout},
		count: map[model.ConnectionType]int{
			model.ConnectionUnlimited: probe.CountUnlimited,
			model.ConnectionLimited:   probe.CountLimited,
		},
	}
}

func (c *Satellite) Name() string { return classify.Satellite.String() }

func (c *Satellite) Collect(ctx context.Context, iface Interface) (model.PartialMetrics, error) {
	p := model.NewPartial(c.Name(), model.PriorityClass)
	if !iface.Online() {
		return p, ErrGated
	}

	// With a fallback configured the API only gets half the deadline so the
	// management ping still has time to run.
	steps := 1
	if c.managementIP != "" {
		steps = 2
	}
	actx, cancel := shareBudget(ctx, steps)
	st, ep, err := c.client.GetStatus(actx, c.endpoints)
	cancel()
	if err == nil {
		applyDishStatus(&p, st)
		p.Note("endpoint", ep)
		p.Method = model.MethodStarlinkAPI
		return p, nil
	}
	apiErr := err

	if c.managementIP == "" {
		return p, noData(apiErr)
	}
	// No -I here: the management address sits on the LAN side of the terminal.
	res, err := c.pinger.ping(ctx, c.managementIP, "", c.count[iface.ConnectionType])
	if err != nil {
		return p, noData(fmt.Errorf("api: %v; ping %s: %w", apiErr, c.managementIP, err))
	}
	p.SetLatency(res.AvgMs)
	p.Method = model.MethodStarlinkPing
	return p, nil
}

func applyDishStatus(p *model.PartialMetrics, st satellite.DishStatus) {
	if st.PopPingLatencyMs != nil {
		p.SetLatency(*st.PopPingLatencyMs)
	}
	if st.SNR != nil {
		p.SetSNR(*st.SNR)
		p.SetSignal(math.Min(100, math.Max(0, *st.SNR/snrFullScale*100)))
	}
	if st.SecondsToNonemptySlot != nil {
		p.Note("seconds_to_handoff", strconv.FormatFloat(*st.SecondsToNonemptySlot, 'f', -1, 64))
	}
	if st.PopPingDropRate != nil {
		p.SetPacketLoss(*st.PopPingDropRate * 100)
	}

	switch {
	case st.CurrentlyObstructed != nil && *st.CurrentlyObstructed:
		p.SetStatus(model.StatusObstructed)
		p.SetAvailability(obstructedAvailability)
	case st.FractionObstructed != nil && *st.FractionObstructed > obstructionFloor:
		p.SetStatus(model.StatusPartialObstruction)
		p.SetAvailability(100 - math.Round(*st.FractionObstructed*100*100)/100)
	}

	if st.Heating != nil && *st.Heating {
		p.Qualify(model.QualifierHeating)
	}

	if st.DownlinkBps != nil || st.UplinkBps != nil {
		var bps float64
		if st.DownlinkBps != nil {
			bps += *st.DownlinkBps
		}
		if st.UplinkBps != nil {
			bps += *st.UplinkBps
		}
		p.SetThroughput(math.Round(bps/1e6*100) / 100)
	}
}
