package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanhealth/internal/classify"
	"wanhealth/internal/config"
	"wanhealth/internal/model"
	"wanhealth/internal/normalize"
	"wanhealth/internal/satellite"
)

type fakeDish struct {
	st       satellite.DishStatus
	err      error
	gotEndps []string
}

func (f *fakeDish) GetStatus(_ context.Context, endpoints []string) (satellite.DishStatus, string, error) {
	f.gotEndps = endpoints
	if f.err != nil {
		return satellite.DishStatus{}, "", f.err
	}
	return f.st, endpoints[0], nil
}

func satConfig() config.SatelliteConfig {
	return config.SatelliteConfig{
		Alias:        "wan",
		Endpoints:    []string{"192.168.100.1", "dishy.local:9201"},
		ManagementIP: "192.168.100.1",
	}
}

func TestSatellite_APIFieldMapping(t *testing.T) {
	t.Parallel()

	dish := &fakeDish{st: satellite.DishStatus{
		PopPingLatencyMs:      ptr(28.0),
		SNR:                   ptr(4.5),
		SecondsToNonemptySlot: ptr(12.0),
		PopPingDropRate:       ptr(0.02),
		CurrentlyObstructed:   ptr(false),
		FractionObstructed:    ptr(0.08),
		DownlinkBps:           ptr(25_000_000.0),
		UplinkBps:             ptr(5_000_000.0),
	}}
	c := NewSatellite(dish, newFakeRunner(), satConfig(), probeConfig())
	p, err := c.Collect(context.Background(), onlineIface("wan", classify.Satellite, model.ConnectionUnlimited))
	require.NoError(t, err)

	assert.Equal(t, []string{"192.168.100.1:9200", "dishy.local:9201"}, dish.gotEndps)
	assert.Equal(t, 28.0, *p.LatencyMs)
	assert.Equal(t, 4.5, *p.SNR)
	assert.Equal(t, 50.0, *p.SignalPct)
	assert.Equal(t, 2.0, *p.PacketLossPct)
	assert.Equal(t, model.StatusPartialObstruction, *p.Status)
	assert.Equal(t, 92.0, *p.Availability)
	assert.Equal(t, 30.0, *p.Throughput)
	assert.Equal(t, "12", p.Info["seconds_to_handoff"])
	assert.Equal(t, model.MethodStarlinkAPI, p.Method)
}

func TestSatellite_CurrentlyObstructedWins(t *testing.T) {
	t.Parallel()

	dish := &fakeDish{st: satellite.DishStatus{
		CurrentlyObstructed: ptr(true),
		FractionObstructed:  ptr(0.5),
		Heating:             ptr(true),
		SNR:                 ptr(12.0),
	}}
	c := NewSatellite(dish, newFakeRunner(), satConfig(), probeConfig())
	iface := onlineIface("wan", classify.Satellite, model.ConnectionUnlimited)
	p, err := c.Collect(context.Background(), iface)
	require.NoError(t, err)
	assert.Equal(t, 100.0, *p.SignalPct)

	rec := normalize.Merge(iface.Current, []model.PartialMetrics{p})
	assert.Equal(t, "heating_obstructed", rec.Status)
	assert.Equal(t, 60.0, rec.Availability)
}

func TestSatellite_FallbackPing(t *testing.T) {
	t.Parallel()

	r := newFakeRunner().on("ping -c 5 -W 2 192.168.100.1", pingOK)
	dish := &fakeDish{err: satellite.ErrNoEndpoint}
	p, err := NewSatellite(dish, r, satConfig(), probeConfig()).Collect(context.Background(), onlineIface("wan", classify.Satellite, model.ConnectionUnlimited))
	require.NoError(t, err)
	assert.Equal(t, 22.45, *p.LatencyMs)
	assert.Equal(t, model.MethodStarlinkPing, p.Method)
	assert.Nil(t, p.Status)
}

func TestSatellite_EverythingFails(t *testing.T) {
	t.Parallel()

	dish := &fakeDish{err: errors.New("connection refused")}
	_, err := NewSatellite(dish, newFakeRunner(), satConfig(), probeConfig()).Collect(context.Background(), onlineIface("wan", classify.Satellite, model.ConnectionUnlimited))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSatellite_Gated(t *testing.T) {
	t.Parallel()

	dish := &fakeDish{}
	_, err := NewSatellite(dish, newFakeRunner(), satConfig(), probeConfig()).Collect(context.Background(), offlineIface("wan", classify.Satellite))
	assert.ErrorIs(t, err, ErrGated)
	assert.Nil(t, dish.gotEndps)
}

// stalledDish never answers until its context ends.
type stalledDish struct{}

func (stalledDish) GetStatus(ctx context.Context, _ []string) (satellite.DishStatus, string, error) {
	<-ctx.Done()
	return satellite.DishStatus{}, "", ctx.Err()
}

func TestSatellite_StalledAPILeavesTimeForFallbackPing(t *testing.T) {
	t.Parallel()

	r := newFakeRunner().on("ping -c 5 -W 2 192.168.100.1", pingOK)
	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	p, err := NewSatellite(stalledDish{}, r, satConfig(), probeConfig()).Collect(ctx, onlineIface("wan", classify.Satellite, model.ConnectionUnlimited))
	require.NoError(t, err)
	assert.Equal(t, model.MethodStarlinkPing, p.Method)
	assert.Equal(t, 22.45, *p.LatencyMs)
}
