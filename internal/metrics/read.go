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

// ReadCSV loads records from a metrics file.
func ReadCSV(path string) ([]model.InterfaceRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readCSV(file)
}

// ReadDay loads the file for the UTC day of ts. A missing file is empty.
func ReadDay(dir string, ts time.Time) ([]model.InterfaceRecord, error) {
	items, err := ReadCSV(filepath.Join(dir, FileName(ts)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return items, err
}

func readCSV(r io.Reader) ([]model.InterfaceRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	start := 0
	if len(records[0]) > 0 && records[0][0] == "timestamp" {
		start = 1
	}

	items := make([]model.InterfaceRecord, 0, len(records)-start)
	for i := start; i < len(records); i++ {
		rec := records[i]
		if len(rec) < len(Header) {
			return nil, fmt.Errorf("invalid record at line %d", i+1)
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp at line %d: %w", i+1, err)
		}
		latency, _ := strconv.ParseFloat(rec[3], 64)
		loss, _ := strconv.ParseFloat(rec[4], 64)
		throughput, _ := strconv.ParseFloat(rec[5], 64)
		avail, _ := strconv.ParseFloat(rec[6], 64)
		signal, _ := strconv.ParseFloat(rec[7], 64)
		snr, _ := strconv.ParseFloat(rec[8], 64)
		tx, _ := strconv.ParseUint(rec[9], 10, 64)
		rx, _ := strconv.ParseUint(rec[10], 10, 64)
		errs, _ := strconv.ParseUint(rec[11], 10, 64)
		items = append(items, model.InterfaceRecord{
			Timestamp:      ts,
			InterfaceID:    rec[1],
			Status:         rec[2],
			LatencyMs:      latency,
			PacketLossPct:  loss,
			Throughput:     throughput,
			Availability:   avail,
			SignalPct:      signal,
			SNR:            snr,
			TxPackets:      tx,
			RxPackets:      rx,
			ErrorCount:     errs,
			Method:         rec[13],
			ConnectionType: model.ConnectionType(rec[14]),
		})
	}

	return items, nil
}
