package collector

import (
	"context"
	"fmt"

	"github.com/prometheus/procfs"
	"github.com/vishvananda/netlink"

	"wanhealth/internal/classify"
	"wanhealth/internal/model"
)

const mebibyte = 1 << 20

// counters is the subset of interface statistics we emit.
type counters struct {
	RxBytes, TxBytes     uint64
	RxPackets, TxPackets uint64
	RxErrors, TxErrors   uint64
}

// Kernel reads per-interface counters from /proc/net/dev, falling back to
// netlink link statistics when the table does not list the interface.
type Kernel struct {
	procMount string
	linkStats func(name string) (*netlink.LinkStatistics, error)
}

func NewKernel(procMount string) *Kernel {
	if procMount == "" {
		procMount = procfs.DefaultMountPoint
	}
	return &Kernel{procMount: procMount, linkStats: netlinkStats}
}

func (c *Kernel) Name() string { return classify.Kernel }

func (c *Kernel) Collect(ctx context.Context, iface Interface) (model.PartialMetrics, error) {
	p := model.NewPartial(c.Name(), model.PriorityGeneric)
	if err := ctx.Err(); err != nil {
		return p, err
	}

	cnt, procErr := c.fromProc(iface.ID)
	if procErr != nil {
		var linkErr error
		cnt, linkErr = c.fromNetlink(iface.ID)
		if linkErr != nil {
			return p, noData(fmt.Errorf("proc: %v; netlink: %w", procErr, linkErr))
		}
	}

	p.SetThroughput(float64((cnt.RxBytes + cnt.TxBytes) / mebibyte))
	p.SetCounters(cnt.TxPackets, cnt.RxPackets, cnt.RxErrors+cnt.TxErrors)
	p.Method = model.MethodProcDev
	return p, nil
}

func (c *Kernel) fromProc(name string) (counters, error) {
	fs, err := procfs.NewFS(c.procMount)
	if err != nil {
		return counters{}, err
	}
	dev, err := fs.NetDev()
	if err != nil {
		return counters{}, err
	}
	line, ok := dev[name]
	if !ok {
		return counters{}, fmt.Errorf("%s not in net/dev", name)
	}
	return counters{
		RxBytes:   line.RxBytes,
		TxBytes:   line.TxBytes,
		RxPackets: line.RxPackets,
		TxPackets: line.TxPackets,
		RxErrors:  line.RxErrors,
		TxErrors:  line.TxErrors,
	}, nil
}

func (c *Kernel) fromNetlink(name string) (counters, error) {
	if c.linkStats == nil {
		return counters{}, fmt.Errorf("netlink unavailable")
	}
	st, err := c.linkStats(name)
	if err != nil {
		return counters{}, err
	}
	if st == nil {
		return counters{}, fmt.Errorf("%s: no link statistics", name)
	}
	return counters{
		RxBytes:   st.RxBytes,
		TxBytes:   st.TxBytes,
		RxPackets: st.RxPackets,
		TxPackets: st.TxPackets,
		RxErrors:  st.RxErrors,
		TxErrors:  st.TxErrors,
	}, nil
}

func netlinkStats(name string) (*netlink.LinkStatistics, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, err
	}
	return link.Attrs().Statistics, nil
}
