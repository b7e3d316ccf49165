package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"

	"wanhealth/internal/classify"
	"wanhealth/internal/model"
)

const netDevSample = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:    1000      10    0    0    0     0          0         0     1000      10    0    0    0     0       0          0
  wan: 3145728    2000    3    0    0     0          0         0  1048576    1500    2    0    0     0       0          0
mob1s1a1:  524287      40    0    0    0     0          0         0   524288      50    0    0    0     0       0          0
`

func procFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "net"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "net", "dev"), []byte(netDevSample), 0o644))
	return dir
}

func TestKernel_ProcNetDev(t *testing.T) {
	t.Parallel()

	c := NewKernel(procFixture(t))
	p, err := c.Collect(context.Background(), offlineIface("wan", classify.Satellite))
	require.NoError(t, err)
	assert.Equal(t, 4.0, *p.Throughput)
	assert.Equal(t, uint64(1500), *p.TxPackets)
	assert.Equal(t, uint64(2000), *p.RxPackets)
	assert.Equal(t, uint64(5), *p.ErrorCount)
	assert.Equal(t, model.MethodProcDev, p.Method)
}

func TestKernel_UnderOneMebibyteIsZero(t *testing.T) {
	t.Parallel()

	c := NewKernel(procFixture(t))
	p, err := c.Collect(context.Background(), offlineIface("mob1s1a1", classify.Cellular))
	require.NoError(t, err)
	assert.Equal(t, 0.0, *p.Throughput)
}

func TestKernel_NetlinkFallback(t *testing.T) {
	t.Parallel()

	c := NewKernel(procFixture(t))
	c.linkStats = func(name string) (*netlink.LinkStatistics, error) {
		require.Equal(t, "wg_home", name)
		return &netlink.LinkStatistics{RxBytes: 5 << 20, TxBytes: 1 << 20, RxPackets: 7, TxPackets: 8, RxErrors: 1}, nil
	}
	p, err := c.Collect(context.Background(), offlineIface("wg_home", classify.WireGuard))
	require.NoError(t, err)
	assert.Equal(t, 6.0, *p.Throughput)
	assert.Equal(t, uint64(1), *p.ErrorCount)
}

func TestKernel_MissingEverywhereIsNoData(t *testing.T) {
	t.Parallel()

	c := NewKernel(procFixture(t))
	c.linkStats = func(string) (*netlink.LinkStatistics, error) { return nil, errors.New("Link not found") }
	_, err := c.Collect(context.Background(), offlineIface("eth9", classify.Generic))
	assert.ErrorIs(t, err, ErrNoData)
}
