package metrics

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"wanhealth/internal/model"
)

// InfluxConfig selects the InfluxDB v2 bucket records are written to.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
	Location    string
}

// InfluxSink writes one point per record with blocking writes, so a failed
// write surfaces in the cycle that produced it.
type InfluxSink struct {
	client      influxdb2.Client
	writer      api.WriteAPIBlocking
	measurement string
	location    string
}

func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = "wan_health"
	}
	return &InfluxSink{
		client:      client,
		writer:      client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: measurement,
		location:    cfg.Location,
	}
}

func (s *InfluxSink) Write(ctx context.Context, items []model.InterfaceRecord) error {
	if len(items) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(items))
	for _, r := range items {
		points = append(points, s.point(r))
	}
	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

func (s *InfluxSink) point(r model.InterfaceRecord) *write.Point {
	tags := map[string]string{
		"interface":       r.InterfaceID,
		"status":          r.Status,
		"connection_type": string(r.ConnectionType),
	}
	if r.Method != "" {
		tags["method"] = r.Method
	}
	if s.location != "" {
		tags["location"] = s.location
	}
	fields := map[string]interface{}{
		"latency_ms":          r.LatencyMs,
		"packet_loss_pct":     r.PacketLossPct,
		"throughput":          r.Throughput,
		"availability_pct":    r.Availability,
		"signal_strength_pct": r.SignalPct,
		"snr":                 r.SNR,
		"tx_packets":          r.TxPackets,
		"rx_packets":          r.RxPackets,
		"error_count":         r.ErrorCount,
	}
	return influxdb2.NewPoint(s.measurement, tags, fields, r.Timestamp)
}

func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}
