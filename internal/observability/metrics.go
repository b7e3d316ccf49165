package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wanhealth/internal/model"
)

// Metrics bundles the daemon's Prometheus series.
type Metrics struct {
	gatherer prometheus.Gatherer

	Availability    *prometheus.GaugeVec
	Latency         *prometheus.GaugeVec
	PacketLoss      *prometheus.GaugeVec
	Signal          *prometheus.GaugeVec
	CollectorErrors *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	Cycles          prometheus.Counter
}

// NewMetrics registers the series against reg, defaulting to the global
// registry when nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	labels := []string{"interface", "connection_type"}
	availability, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wanhealth_availability_pct",
		Help: "Availability of the interface in the last cycle (0-100).",
	}, labels), "wanhealth_availability_pct")
	if err != nil {
		return nil, err
	}
	latency, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wanhealth_latency_ms",
		Help: "Latency of the interface in the last cycle; 0 when unmeasured.",
	}, labels), "wanhealth_latency_ms")
	if err != nil {
		return nil, err
	}
	loss, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wanhealth_packet_loss_pct",
		Help: "Packet loss of the interface in the last cycle (0-100).",
	}, labels), "wanhealth_packet_loss_pct")
	if err != nil {
		return nil, err
	}
	signal, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wanhealth_signal_strength_pct",
		Help: "Radio signal strength of the interface in the last cycle (0-100).",
	}, labels), "wanhealth_signal_strength_pct")
	if err != nil {
		return nil, err
	}
	errs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wanhealth_collector_errors_total",
		Help: "Collector failures, labeled by collector.",
	}, []string{"collector"}), "wanhealth_collector_errors_total")
	if err != nil {
		return nil, err
	}
	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wanhealth_cycle_duration_seconds",
		Help:    "Wall time of one collection cycle.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}), "wanhealth_cycle_duration_seconds")
	if err != nil {
		return nil, err
	}
	cycles, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wanhealth_cycles_total",
		Help: "Completed collection cycles.",
	}), "wanhealth_cycles_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:        gatherer,
		Availability:    availability,
		Latency:         latency,
		PacketLoss:      loss,
		Signal:          signal,
		CollectorErrors: errs,
		CycleDuration:   duration,
		Cycles:          cycles,
	}, nil
}

// ObserveRecord publishes one record's gauges.
func (m *Metrics) ObserveRecord(r model.InterfaceRecord) {
	if m == nil {
		return
	}
	lv := []string{r.InterfaceID, string(r.ConnectionType)}
	m.Availability.WithLabelValues(lv...).Set(r.Availability)
	m.Latency.WithLabelValues(lv...).Set(r.LatencyMs)
	m.PacketLoss.WithLabelValues(lv...).Set(r.PacketLossPct)
	m.Signal.WithLabelValues(lv...).Set(r.SignalPct)
}

// CollectorError counts one failure of the named collector.
func (m *Metrics) CollectorError(collector string) {
	if m == nil {
		return
	}
	m.CollectorErrors.WithLabelValues(collector).Inc()
}

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.Cycles.Inc()
	m.CycleDuration.Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}
