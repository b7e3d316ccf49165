package metrics

import (
	"math"
	"sort"
	"time"

	"wanhealth/internal/model"
)

// Summary is a per-interface statistics snapshot over a window.
type Summary struct {
	InterfaceID     string
	Count           int
	From            time.Time
	To              time.Time
	AvgAvailability float64
	AvgLatencyMs    float64
	P95LatencyMs    float64
	MaxLatencyMs    float64
	AvgLossPct      float64
	LastStatus      string
}

// Summarize computes one summary per interface for records at or after
// since, ordered by interface id.
func Summarize(items []model.InterfaceRecord, since time.Time) []Summary {
	groups := map[string][]model.InterfaceRecord{}
	for _, r := range items {
		if r.Timestamp.Before(since) {
			continue
		}
		groups[r.InterfaceID] = append(groups[r.InterfaceID], r)
	}

	out := make([]Summary, 0, len(groups))
	for id, recs := range groups {
		out = append(out, summarize(id, recs))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InterfaceID < out[j].InterfaceID })
	return out
}

func summarize(id string, recs []model.InterfaceRecord) Summary {
	s := Summary{InterfaceID: id, Count: len(recs), From: recs[0].Timestamp, To: recs[0].Timestamp}
	// Unmeasured latency (0) is left out of the latency figures.
	latencies := make([]float64, 0, len(recs))
	var sumAvail, sumLoss float64
	for _, r := range recs {
		sumAvail += r.Availability
		sumLoss += r.PacketLossPct
		if r.LatencyMs > 0 {
			latencies = append(latencies, r.LatencyMs)
		}
		if r.Timestamp.Before(s.From) {
			s.From = r.Timestamp
		}
		if !r.Timestamp.Before(s.To) {
			s.To = r.Timestamp
			s.LastStatus = r.Status
		}
	}
	count := float64(len(recs))
	s.AvgAvailability = sumAvail / count
	s.AvgLossPct = sumLoss / count

	if len(latencies) > 0 {
		sort.Float64s(latencies)
		var sum float64
		for _, v := range latencies {
			sum += v
		}
		s.AvgLatencyMs = sum / float64(len(latencies))
		s.P95LatencyMs = percentile(latencies, 0.95)
		s.MaxLatencyMs = latencies[len(latencies)-1]
	}
	return s
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if p <= 0 {
		return values[0]
	}
	if p >= 1 {
		return values[len(values)-1]
	}
	idx := int(math.Ceil(p*float64(len(values)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}
