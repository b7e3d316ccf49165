package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"wanhealth/internal/model"
)

// Header is the fixed column order of every metrics file.
var Header = []string{
	"timestamp",
	"interface_id",
	"status",
	"latency_ms",
	"packet_loss_pct",
	"throughput",
	"availability_pct",
	"signal_strength_pct",
	"snr",
	"tx_packets",
	"rx_packets",
	"error_count",
	"location",
	"method",
	"connection_type",
}

// FileName is the day-partitioned file a record with timestamp ts lands in.
func FileName(ts time.Time) string {
	return "metrics-" + ts.UTC().Format(time.DateOnly) + ".csv"
}

// Row renders one record in Header order.
func Row(r model.InterfaceRecord, location string) []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.InterfaceID,
		r.Status,
		formatFloat(r.LatencyMs),
		formatFloat(r.PacketLossPct),
		formatFloat(r.Throughput),
		formatFloat(r.Availability),
		formatFloat(r.SignalPct),
		formatFloat(r.SNR),
		strconv.FormatUint(r.TxPackets, 10),
		strconv.FormatUint(r.RxPackets, 10),
		strconv.FormatUint(r.ErrorCount, 10),
		location,
		r.Method,
		string(r.ConnectionType),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteCSV writes records without a header.
func WriteCSV(w io.Writer, items []model.InterfaceRecord, location string) error {
	writer := csv.NewWriter(w)
	for _, r := range items {
		if err := writer.Write(Row(r, location)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// AppendCSV appends records to the day file of each record under dir,
// writing the header only when a file is created.
func AppendCSV(dir string, items []model.InterfaceRecord, location string) error {
	if len(items) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Keep input order within each day file.
	byFile := map[string][]model.InterfaceRecord{}
	var order []string
	for _, r := range items {
		name := FileName(r.Timestamp)
		if _, ok := byFile[name]; !ok {
			order = append(order, name)
		}
		byFile[name] = append(byFile[name], r)
	}

	for _, name := range order {
		if err := appendFile(filepath.Join(dir, name), byFile[name], location); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(path string, items []model.InterfaceRecord, location string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(Header); err != nil {
			return err
		}
	}
	for _, r := range items {
		if err := writer.Write(Row(r, location)); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return file.Close()
}
