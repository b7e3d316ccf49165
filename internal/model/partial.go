package model

// Priority orders partial contributions during the merge. Higher wins.
type Priority int

const (
	PriorityGeneric Priority = iota
	PriorityProbe
	PriorityClass
)

// Adjustment is a relative change to availability applied after a
// contribution's absolute values.
type Adjustment struct {
	Delta float64
	Scale float64 // 0 means "no scaling"
}

// PartialMetrics is what a single collector contributes. Nil fields were not
// observed and leave the running value untouched.
type PartialMetrics struct {
	Source   string
	Priority Priority

	Status        *string
	LatencyMs     *float64
	PacketLossPct *float64
	Throughput    *float64
	Availability  *float64
	SignalPct     *float64
	SNR           *float64
	TxPackets     *uint64
	RxPackets     *uint64
	ErrorCount    *uint64
	Method        string

	Adjustments []Adjustment
	Qualifiers  []string
	Info        map[string]string
}

// NewPartial starts an empty contribution for the named collector.
func NewPartial(source string, p Priority) PartialMetrics {
	return PartialMetrics{Source: source, Priority: p}
}

func (p *PartialMetrics) SetStatus(s string)           { p.Status = &s }
func (p *PartialMetrics) SetLatency(v float64)         { p.LatencyMs = &v }
func (p *PartialMetrics) SetPacketLoss(v float64)      { p.PacketLossPct = &v }
func (p *PartialMetrics) SetThroughput(v float64)      { p.Throughput = &v }
func (p *PartialMetrics) SetAvailability(v float64)    { p.Availability = &v }
func (p *PartialMetrics) SetSignal(v float64)          { p.SignalPct = &v }
func (p *PartialMetrics) SetSNR(v float64)             { p.SNR = &v }
func (p *PartialMetrics) SetCounters(tx, rx, errs uint64) {
	p.TxPackets = &tx
	p.RxPackets = &rx
	p.ErrorCount = &errs
}

// AddAvailability queues a relative availability change.
func (p *PartialMetrics) AddAvailability(delta float64) {
	p.Adjustments = append(p.Adjustments, Adjustment{Delta: delta})
}

// ScaleAvailability queues a multiplicative availability change.
func (p *PartialMetrics) ScaleAvailability(factor float64) {
	p.Adjustments = append(p.Adjustments, Adjustment{Scale: factor})
}

// Qualify wraps the status with a prefix; later qualifiers wrap earlier ones.
func (p *PartialMetrics) Qualify(prefix string) {
	p.Qualifiers = append(p.Qualifiers, prefix)
}

// Note records an informational value that is logged but not emitted.
func (p *PartialMetrics) Note(key, value string) {
	if p.Info == nil {
		p.Info = make(map[string]string)
	}
	p.Info[key] = value
}

// Empty reports whether the contribution changes nothing.
func (p PartialMetrics) Empty() bool {
	return p.Status == nil && p.LatencyMs == nil && p.PacketLossPct == nil &&
		p.Throughput == nil && p.Availability == nil && p.SignalPct == nil &&
		p.SNR == nil && p.TxPackets == nil && p.RxPackets == nil && p.ErrorCount == nil &&
		p.Method == "" && len(p.Adjustments) == 0 && len(p.Qualifiers) == 0
}
