package collector

import (
	"wanhealth/internal/classify"
	"wanhealth/internal/config"
	"wanhealth/internal/execx"
	"wanhealth/internal/satellite"
	"wanhealth/internal/wireguard"
)

// Deps are the side-effecting pieces collectors are built on. Zero values
// select the host implementations.
type Deps struct {
	Runner    execx.Runner
	ProcMount string
	Satellite StatusSource
	Tunnels   TunnelReader
}

// Set maps collector names (as returned by classify.Chain) to instances.
type Set map[string]Collector

// Build constructs every collector from one config snapshot.
func Build(cfg config.Config, d Deps) Set {
	if d.Runner == nil {
		d.Runner = execx.NewOSRunner()
	}
	if d.Satellite == nil {
		d.Satellite = satellite.NewClient(cfg.Satellite.Timeout)
	}
	if d.Tunnels == nil {
		d.Tunnels = wireguard.NewManager(d.Runner)
	}

	all := []Collector{
		NewLinkManager(d.Runner),
		NewKernel(d.ProcMount),
		NewProbe(d.Runner, cfg.Probe),
		NewSatellite(d.Satellite, d.Runner, cfg.Satellite, cfg.Probe),
		NewCellular(d.Runner, cfg.Cellular),
		NewWireGuard(d.Tunnels, cfg.WireGuard),
		NewWireless(d.Runner),
	}
	set := make(Set, len(all))
	for _, c := range all {
		set[c.Name()] = c
	}
	return set
}

// Chain resolves the ordered collectors for a class. Names without a
// registered collector are skipped.
func (s Set) Chain(c classify.Class) []Collector {
	names := classify.Chain(c)
	out := make([]Collector, 0, len(names))
	for _, n := range names {
		if col, ok := s[n]; ok {
			out = append(out, col)
		}
	}
	return out
}
