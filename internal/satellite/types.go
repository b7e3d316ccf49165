package satellite

// DishStatus holds the status fields we consume. Each is nil when the reply
// did not carry it.
type DishStatus struct {
	PopPingLatencyMs      *float64
	SNR                   *float64
	SecondsToNonemptySlot *float64
	PopPingDropRate       *float64
	CurrentlyObstructed   *bool
	FractionObstructed    *float64
	Heating               *bool
	DownlinkBps           *float64
	UplinkBps             *float64
}
