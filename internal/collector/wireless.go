package collector

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"wanhealth/internal/classify"
	"wanhealth/internal/execx"
	"wanhealth/internal/model"
)

var signalDBmRe = regexp.MustCompile(`(?i)signal:\s*(-?\d+)\s*dBm`)

// Wireless reads the station's signal level via iw, then iwinfo.
type Wireless struct {
	r execx.Runner
}

func NewWireless(r execx.Runner) *Wireless {
	return &Wireless{r: r}
}

func (c *Wireless) Name() string { return classify.Wireless.String() }

func (c *Wireless) Collect(ctx context.Context, iface Interface) (model.PartialMetrics, error) {
	p := model.NewPartial(c.Name(), model.PriorityClass)

	iwOut, iwErr := c.r.Output(ctx, "iw", "dev", iface.ID, "link")
	dbm, ok := ParseSignalDBm(iwOut)
	if iwErr != nil || !ok {
		infoOut, infoErr := c.r.Output(ctx, "iwinfo", iface.ID, "info")
		dbm, ok = ParseSignalDBm(infoOut)
		if infoErr != nil || !ok {
			if infoErr == nil {
				infoErr = fmt.Errorf("iwinfo: no signal reported")
			}
			if iwErr == nil {
				iwErr = fmt.Errorf("iw: no signal reported")
			}
			return p, classifyErr(fmt.Errorf("%v; %w", iwErr, infoErr))
		}
	}

	p.SetSignal(SignalPercent(dbm))
	p.Note("signal_dbm", strconv.Itoa(dbm))
	p.Method = model.MethodIWLink
	return p, nil
}

// ParseSignalDBm finds "signal: -NN dBm" in iw or iwinfo output.
func ParseSignalDBm(out string) (int, bool) {
	m := signalDBmRe.FindStringSubmatch(out)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	return v, err == nil
}

// SignalPercent maps dBm linearly so -100 is 0% and -50 is 100%.
func SignalPercent(dbm int) float64 {
	pct := float64((dbm + 100) * 2)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
