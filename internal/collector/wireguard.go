package collector

import (
	"context"
	"fmt"
	"time"

	"wanhealth/internal/classify"
	"wanhealth/internal/config"
	"wanhealth/internal/model"
	"wanhealth/internal/wireguard"
)

// minuteThreshold applies when wg printed the age without a seconds unit.
const minuteThreshold = 10 * time.Minute

type TunnelReader interface {
	Show(ctx context.Context, iface string) (wireguard.Status, error)
	Dump(ctx context.Context, iface string) ([]wireguard.Peer, error)
}

// WireGuard grades a tunnel by the age of its freshest handshake.
type WireGuard struct {
	wg      TunnelReader
	timeout time.Duration
	now     func() time.Time
}

func NewWireGuard(wg TunnelReader, cfg config.WireGuardConfig) *WireGuard {
	return &WireGuard{wg: wg, timeout: cfg.HandshakeTimeout, now: time.Now}
}

func (c *WireGuard) Name() string { return classify.WireGuard.String() }

func (c *WireGuard) Collect(ctx context.Context, iface Interface) (model.PartialMetrics, error) {
	p := model.NewPartial(c.Name(), model.PriorityClass)

	st, showErr := c.wg.Show(ctx, iface.ID)
	if showErr == nil && st.HasHandshake {
		c.grade(&p, st.HandshakeAge, st.SecondsUnit)
		if st.HasTransfer {
			p.SetThroughput(wireguard.MegaBytes(st.RxBytes + st.TxBytes))
		}
		p.Method = model.MethodWireGuard
		return p, nil
	}

	peers, dumpErr := c.wg.Dump(ctx, iface.ID)
	if dumpErr != nil {
		if showErr != nil {
			return p, classifyErr(fmt.Errorf("show: %v; dump: %w", showErr, dumpErr))
		}
		return p, classifyErr(dumpErr)
	}

	var rx, tx uint64
	for _, peer := range peers {
		rx += peer.RxBytes
		tx += peer.TxBytes
	}
	p.SetThroughput(wireguard.MegaBytes(float64(rx + tx)))

	newest, ok := wireguard.NewestHandshake(peers)
	if !ok {
		p.SetStatus(model.StatusStale)
		p.SetAvailability(0)
	} else {
		age := c.now().Sub(newest)
		if age < 0 {
			age = 0
		}
		c.grade(&p, age, true)
	}
	p.Method = model.MethodWireGuard
	return p, nil
}

// grade keeps two separate bases: second-resolution ages are compared with
// the configured timeout, coarser ones with a fixed ten minutes.
func (c *WireGuard) grade(p *model.PartialMetrics, age time.Duration, seconds bool) {
	if seconds {
		if age < c.timeout {
			p.SetStatus(model.StatusConnected)
			p.SetAvailability(100)
		} else {
			p.SetStatus(model.StatusStale)
			p.SetAvailability(50)
		}
		return
	}
	if age <= minuteThreshold {
		p.SetStatus(model.StatusConnected)
		p.SetAvailability(75)
	} else {
		p.SetStatus(model.StatusStale)
		p.SetAvailability(25)
	}
}
