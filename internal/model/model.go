package model

import "time"

// ConnectionType is the operator-declared metering class of an interface.
type ConnectionType string

const (
	ConnectionUnlimited ConnectionType = "unlimited"
	ConnectionLimited   ConnectionType = "limited"
)

// Base status values. Qualifier prefixes (heating_, thermal_, no_data_) are
// composed on top of these by the normalizer.
const (
	StatusOnline             = "online"
	StatusLimited            = "limited"
	StatusOffline            = "offline"
	StatusDisabled           = "disabled"
	StatusUnknown            = "unknown"
	StatusObstructed         = "obstructed"
	StatusPartialObstruction = "partial_obstruction"
	StatusRegisteredHome     = "registered_home"
	StatusRegisteredRoaming  = "registered_roaming"
	StatusSearching          = "searching"
	StatusDenied             = "denied"
	StatusConnected          = "connected"
	StatusStale              = "stale"
)

const (
	QualifierHeating = "heating_"
	QualifierThermal = "thermal_"
	QualifierNoData  = "no_data_"
)

// Provenance tags, from least to most specific.
const (
	MethodProcDev      = "proc_dev"
	MethodPing         = "mwan3_ping"
	MethodSTUN         = "stun_probe"
	MethodStarlinkAPI  = "starlink_api"
	MethodStarlinkPing = "starlink_ping"
	MethodATModem      = "at_modem"
	MethodWireGuard    = "wireguard"
	MethodIWLink       = "iw_link"
)

// InterfaceRecord is one normalized health sample for one interface in one cycle.
type InterfaceRecord struct {
	Timestamp      time.Time
	InterfaceID    string
	ConnectionType ConnectionType
	Status         string
	LatencyMs      float64
	PacketLossPct  float64
	Throughput     float64
	Availability   float64
	SignalPct      float64
	SNR            float64
	TxPackets      uint64
	RxPackets      uint64
	ErrorCount     uint64
	Method         string
}

// Baseline returns the record every cycle starts from before any collector ran.
func Baseline(id string, ct ConnectionType, ts time.Time) InterfaceRecord {
	if ct == "" {
		ct = ConnectionUnlimited
	}
	return InterfaceRecord{
		Timestamp:      ts.UTC().Truncate(time.Second),
		InterfaceID:    id,
		ConnectionType: ct,
		Status:         StatusOffline,
	}
}
