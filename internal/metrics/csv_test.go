package metrics

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wanhealth/internal/model"
)

func record(id string, ts time.Time) model.InterfaceRecord {
	return model.InterfaceRecord{
		Timestamp:      ts,
		InterfaceID:    id,
		ConnectionType: model.ConnectionUnlimited,
		Status:         model.StatusOnline,
		LatencyMs:      22.45,
		Availability:   100,
		TxPackets:      10,
		RxPackets:      20,
		Method:         model.MethodPing,
	}
}

func TestAppendCSV_WritesHeaderOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := AppendCSV(dir, []model.InterfaceRecord{record("wan", ts)}, "rutos"); err != nil {
		t.Fatalf("AppendCSV #1: %v", err)
	}
	if err := AppendCSV(dir, []model.InterfaceRecord{record("wan", ts.Add(time.Minute))}, "rutos"); err != nil {
		t.Fatalf("AppendCSV #2: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "metrics-2026-03-01.csv"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines=%d\n%s", len(lines), string(data))
	}
	if !strings.HasPrefix(lines[0], "timestamp,interface_id,") {
		t.Fatalf("missing header: %q", lines[0])
	}
	if lines[1] != "2026-03-01T12:00:00Z,wan,online,22.45,0.00,0.00,100.00,0.00,0.00,10,20,0,rutos,mwan3_ping,unlimited" {
		t.Fatalf("row=%q", lines[1])
	}
}

func TestAppendCSV_FifteenFieldsPerLine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := record("mob1s1a1", ts)
	r.Status = "no_data_thermal_registered_home"
	r.Method = ""
	if err := AppendCSV(dir, []model.InterfaceRecord{r, record("wan", ts)}, "rutos"); err != nil {
		t.Fatalf("AppendCSV: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, FileName(ts)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	for i, row := range rows {
		if len(row) != 15 {
			t.Fatalf("row %d has %d fields", i, len(row))
		}
	}
}

func TestAppendCSV_PartitionsByUTCDay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	late := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	early := late.Add(2 * time.Second)
	if err := AppendCSV(dir, []model.InterfaceRecord{record("wan", late), record("wan", early)}, "rutos"); err != nil {
		t.Fatalf("AppendCSV: %v", err)
	}
	for _, name := range []string{"metrics-2026-03-01.csv", "metrics-2026-03-02.csv"} {
		items, err := ReadCSV(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("ReadCSV %s: %v", name, err)
		}
		if len(items) != 1 {
			t.Fatalf("%s items=%d", name, len(items))
		}
	}
}

func TestCSVSink_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sink := NewCSVSink(dir, "rutos")
	if err := sink.Write(context.Background(), []model.InterfaceRecord{record("wan", ts)}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	items, err := ReadDay(dir, ts)
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(items) != 1 || items[0].LatencyMs != 22.45 || items[0].ConnectionType != model.ConnectionUnlimited || items[0].RxPackets != 20 {
		t.Fatalf("items=%+v", items)
	}

	empty, err := ReadDay(dir, ts.Add(48*time.Hour))
	if err != nil || empty != nil {
		t.Fatalf("missing day: %v %v", empty, err)
	}
}

func TestWriteCSV_NoHeader(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := WriteCSV(&b, []model.InterfaceRecord{record("wan", ts), record("wg_home", ts)}, "rutos"); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 2 || strings.HasPrefix(lines[0], "timestamp") {
		t.Fatalf("lines=%q", lines)
	}
}
