package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wanhealth/internal/model"
)

func TestLoadState_MissingFile_ReturnsNil(t *testing.T) {
	t.Parallel()

	st, err := LoadState(filepath.Join(t.TempDir(), "state.yaml"))
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if st != nil {
		t.Fatalf("state=%+v", st)
	}
}

func TestSaveState_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run", "state.yaml")
	rec := model.InterfaceRecord{
		InterfaceID:    "wan",
		ConnectionType: model.ConnectionUnlimited,
		Status:         "heating_online",
		Availability:   100,
		LatencyMs:      31.5,
		Method:         model.MethodStarlinkAPI,
	}
	is := FromRecord("satellite", rec)
	is.Info = map[string]string{"seconds_to_handoff": "12"}
	in := &State{PID: 42, CycleID: "c1", Started: time.Unix(100, 0).UTC(), Interfaces: []InterfaceState{is}}
	if err := SaveState(path, in); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("mode=%o", info.Mode().Perm())
	}

	out, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if out.PID != 42 || len(out.Interfaces) != 1 {
		t.Fatalf("state=%+v", out)
	}
	got := out.Interfaces[0]
	if got.Status != "heating_online" || got.LatencyMs != 31.5 || got.Class != "satellite" || got.Info["seconds_to_handoff"] != "12" {
		t.Fatalf("iface=%+v", got)
	}
	if out.UpdatedAt.IsZero() {
		t.Fatalf("updated_at not set")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %d entries", len(entries))
	}
}
