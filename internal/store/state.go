package store

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"wanhealth/internal/model"
)

// State is the snapshot of the last finished cycle, read back by `status`.
type State struct {
	UpdatedAt  time.Time        `yaml:"updated_at" json:"updated_at"`
	PID        int              `yaml:"pid" json:"pid"`
	CycleID    string           `yaml:"cycle_id" json:"cycle_id"`
	Started    time.Time        `yaml:"started" json:"started"`
	DurationMs int64            `yaml:"duration_ms" json:"duration_ms"`
	Interfaces []InterfaceState `yaml:"interfaces" json:"interfaces"`
}

// InterfaceState is the per-interface part of a snapshot.
type InterfaceState struct {
	ID             string            `yaml:"id" json:"id"`
	Class          string            `yaml:"class" json:"class"`
	ConnectionType string            `yaml:"connection_type" json:"connection_type"`
	Status         string            `yaml:"status" json:"status"`
	Availability   float64           `yaml:"availability_pct" json:"availability_pct"`
	LatencyMs      float64           `yaml:"latency_ms" json:"latency_ms"`
	PacketLossPct  float64           `yaml:"packet_loss_pct" json:"packet_loss_pct"`
	SignalPct      float64           `yaml:"signal_strength_pct" json:"signal_strength_pct"`
	Method         string            `yaml:"method" json:"method"`
	Info           map[string]string `yaml:"info,omitempty" json:"info,omitempty"`
	Errors         []string          `yaml:"errors,omitempty" json:"errors,omitempty"`
}

// FromRecord copies the emitted fields of a record.
func FromRecord(class string, r model.InterfaceRecord) InterfaceState {
	return InterfaceState{
		ID:             r.InterfaceID,
		Class:          class,
		ConnectionType: string(r.ConnectionType),
		Status:         r.Status,
		Availability:   r.Availability,
		LatencyMs:      r.LatencyMs,
		PacketLossPct:  r.PacketLossPct,
		SignalPct:      r.SignalPct,
		Method:         r.Method,
	}
}

// LoadState loads the snapshot from disk. A missing file is a nil state.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, err
	}

	return &st, nil
}

// SaveState replaces the snapshot on disk atomically.
func SaveState(path string, st *State) error {
	if st == nil {
		return nil
	}
	st.UpdatedAt = time.Now().UTC()
	data, err := yaml.Marshal(st)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return atomicWriteFile(path, data, 0o644)
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
