package wireguard

import (
	"context"
	"fmt"

	"wanhealth/internal/execx"
)

// Manager reads tunnel state through wg. It is injectable for unit tests.
type Manager struct {
	r execx.Runner
}

func NewManager(r execx.Runner) *Manager {
	if r == nil {
		r = execx.NewOSRunner()
	}
	return &Manager{r: r}
}

// Show returns the parsed human-readable `wg show <iface>` report.
func (m *Manager) Show(ctx context.Context, iface string) (Status, error) {
	if iface == "" {
		return Status{}, fmt.Errorf("wg interface is required")
	}
	out, err := m.output(ctx, "wg", "show", iface)
	if err != nil {
		return Status{}, err
	}
	st := ParseShow(out)
	if !st.HasHandshake && !st.HasTransfer {
		return st, fmt.Errorf("wg show %s: no peer data", iface)
	}
	return st, nil
}

// Dump returns the machine-readable peer table of `wg show <iface> dump`.
func (m *Manager) Dump(ctx context.Context, iface string) ([]Peer, error) {
	if iface == "" {
		return nil, fmt.Errorf("wg interface is required")
	}
	out, err := m.output(ctx, "wg", "show", iface, "dump")
	if err != nil {
		return nil, err
	}
	return ParseDump(out), nil
}

func (m *Manager) output(ctx context.Context, name string, args ...string) (string, error) {
	if m == nil || m.r == nil {
		return "", fmt.Errorf("runner not initialized")
	}
	return m.r.Output(ctx, name, args...)
}
