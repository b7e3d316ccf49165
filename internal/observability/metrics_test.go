package observability

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"wanhealth/internal/logging"
	"wanhealth/internal/model"
)

func TestMetrics_ObserveRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.ObserveRecord(model.InterfaceRecord{
		InterfaceID:    "wan",
		ConnectionType: model.ConnectionUnlimited,
		Availability:   92,
		LatencyMs:      31.5,
		PacketLossPct:  2,
		SignalPct:      50,
	})
	if got := testutil.ToFloat64(m.Availability.WithLabelValues("wan", "unlimited")); got != 92 {
		t.Fatalf("availability=%v", got)
	}
	if got := testutil.ToFloat64(m.Latency.WithLabelValues("wan", "unlimited")); got != 31.5 {
		t.Fatalf("latency=%v", got)
	}

	m.CollectorError("cellular")
	m.CollectorError("cellular")
	if got := testutil.ToFloat64(m.CollectorErrors.WithLabelValues("cellular")); got != 2 {
		t.Fatalf("errors=%v", got)
	}

	m.ObserveCycle(1500 * time.Millisecond)
	if got := histogramSampleCount(t, reg, "wanhealth_cycle_duration_seconds"); got != 1 {
		t.Fatalf("cycle samples=%d", got)
	}
}

func TestMetrics_ReRegisterReturnsExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics #1: %v", err)
	}
	second, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics #2: %v", err)
	}
	if first.Availability != second.Availability {
		t.Fatalf("expected shared collectors")
	}
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.CollectorError("probe")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `wanhealth_collector_errors_total{collector="probe"} 1`) {
		t.Fatalf("body=%s", body)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRecord(model.InterfaceRecord{})
	m.CollectorError("x")
	m.ObserveCycle(time.Second)
}

func TestInitTracing_StdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Output: &buf}, logging.Noop())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := Tracer().Start(context.Background(), "cycle")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), `"Name":"cycle"`) {
		t.Fatalf("span not exported: %s", buf.String())
	}

	off, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing disabled: %v", err)
	}
	_, span = Tracer().Start(context.Background(), "dropped")
	span.End()
	ShutdownWithTimeout(context.Background(), off, nil)
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string) uint64 {
	t.Helper()

	mfs, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		if mf.GetType() != dto.MetricType_HISTOGRAM {
			t.Fatalf("%s is %s, not a histogram", name, mf.GetType())
		}
		var total uint64
		for _, m := range mf.Metric {
			total += m.GetHistogram().GetSampleCount()
		}
		return total
	}
	return 0
}
