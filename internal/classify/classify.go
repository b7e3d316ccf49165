package classify

import "strings"

// Class is the closed set of interface kinds the engine knows about.
type Class int

const (
	Generic Class = iota
	Satellite
	Cellular
	WireGuard
	Wireless
)

func (c Class) String() string {
	switch c {
	case Satellite:
		return "satellite"
	case Cellular:
		return "cellular"
	case WireGuard:
		return "wireguard"
	case Wireless:
		return "wireless"
	default:
		return "generic"
	}
}

// Collector names in the order they appear in a chain.
const (
	LinkManager = "linkmanager"
	Kernel      = "kernel"
	Probe       = "probe"
)

// Classify maps an interface id to its class. satelliteAlias is the logical
// name the satellite uplink is configured under (usually "wan").
func Classify(id, satelliteAlias string) Class {
	switch {
	case strings.HasPrefix(id, "wg_"):
		return WireGuard
	case strings.HasPrefix(id, "mob"):
		return Cellular
	case strings.HasPrefix(id, "wlan"):
		return Wireless
	case satelliteAlias != "" && id == satelliteAlias:
		return Satellite
	default:
		return Generic
	}
}

// Chain returns the collector names to run for a class, in order. Every
// chain starts with the generic collectors; class collectors come last.
func Chain(c Class) []string {
	chain := []string{LinkManager, Kernel, Probe}
	switch c {
	case Satellite, Cellular, WireGuard, Wireless:
		chain = append(chain, c.String())
	}
	return chain
}
