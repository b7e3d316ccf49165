// Package normalize folds per-collector contributions into one record.
package normalize

import (
	"math"
	"slices"

	"wanhealth/internal/model"
)

// Merge applies partials on top of base in ascending priority order; among
// equal priorities the input order is kept. Within one partial, absolute sets
// land first, then availability adjustments, then status qualifiers. The
// bounded percentages are clamped at the end, so no contribution mix can push
// them out of [0,100].
func Merge(base model.InterfaceRecord, partials []model.PartialMetrics) model.InterfaceRecord {
	ordered := slices.Clone(partials)
	slices.SortStableFunc(ordered, func(a, b model.PartialMetrics) int {
		return int(a.Priority) - int(b.Priority)
	})

	rec := base
	for _, p := range ordered {
		apply(&rec, p)
	}

	rec.Availability = clamp(rec.Availability)
	rec.PacketLossPct = clamp(rec.PacketLossPct)
	rec.SignalPct = clamp(rec.SignalPct)
	if rec.LatencyMs < 0 || math.IsNaN(rec.LatencyMs) {
		rec.LatencyMs = 0
	}
	if rec.Throughput < 0 || math.IsNaN(rec.Throughput) {
		rec.Throughput = 0
	}
	return rec
}

func apply(rec *model.InterfaceRecord, p model.PartialMetrics) {
	if p.Status != nil {
		rec.Status = *p.Status
	}
	setFloat(&rec.LatencyMs, p.LatencyMs)
	setFloat(&rec.PacketLossPct, p.PacketLossPct)
	setFloat(&rec.Throughput, p.Throughput)
	setFloat(&rec.Availability, p.Availability)
	setFloat(&rec.SignalPct, p.SignalPct)
	setFloat(&rec.SNR, p.SNR)
	if p.TxPackets != nil {
		rec.TxPackets = *p.TxPackets
	}
	if p.RxPackets != nil {
		rec.RxPackets = *p.RxPackets
	}
	if p.ErrorCount != nil {
		rec.ErrorCount = *p.ErrorCount
	}

	for _, adj := range p.Adjustments {
		if adj.Scale != 0 {
			rec.Availability *= adj.Scale
		}
		rec.Availability += adj.Delta
		rec.Availability = clamp(rec.Availability)
	}

	for _, q := range p.Qualifiers {
		rec.Status = q + rec.Status
	}

	if p.Method != "" {
		rec.Method = p.Method
	}
}

func setFloat(dst *float64, v *float64) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return
	}
	*dst = *v
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
