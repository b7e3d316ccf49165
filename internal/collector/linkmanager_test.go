package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanhealth/internal/classify"
	"wanhealth/internal/model"
)

const mwanSample = `Interface status:
 interface wan is online 00h:12m:03s, uptime 01h:02m:11s and tracking is active
 interface mob1s1a1 is offline and tracking is active
 interface wg_home is disabled
 interface wlan0 is connecting 00h:00m:05s
`

func TestLinkManager_States(t *testing.T) {
	t.Parallel()

	r := newFakeRunner().on("mwan3 interfaces", mwanSample)
	c := NewLinkManager(r)

	cases := []struct {
		id     string
		status string
		avail  *float64
	}{
		{"wan", model.StatusOnline, ptr(100.0)},
		{"mob1s1a1", model.StatusOffline, ptr(0.0)},
		{"wg_home", model.StatusDisabled, ptr(0.0)},
		{"wlan0", model.StatusUnknown, ptr(0.0)},
		{"lan", model.StatusUnknown, nil},
	}
	for _, tc := range cases {
		p, err := c.Collect(context.Background(), offlineIface(tc.id, classify.Generic))
		require.NoError(t, err, tc.id)
		require.NotNil(t, p.Status, tc.id)
		assert.Equal(t, tc.status, *p.Status, tc.id)
		assert.Equal(t, tc.avail, p.Availability, tc.id)
	}
}

func TestLinkManager_ToolAbsentIsNoData(t *testing.T) {
	t.Parallel()

	r := newFakeRunner()
	r.absent["mwan3"] = true
	p, err := NewLinkManager(r).Collect(context.Background(), offlineIface("wan", classify.Satellite))
	assert.True(t, errors.Is(err, ErrNoData), "err=%v", err)
	assert.True(t, p.Empty())
}

func ptr[T any](v T) *T { return &v }
