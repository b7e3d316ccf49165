package collector

import (
	"context"
	"regexp"

	"wanhealth/internal/classify"
	"wanhealth/internal/execx"
	"wanhealth/internal/model"
)

var mwanIfaceRe = regexp.MustCompile(`(?m)interface\s+(\S+)\s+is\s+(\w+)`)

// LinkManager reads the failover manager's own view of each interface.
type LinkManager struct {
	r execx.Runner
}

func NewLinkManager(r execx.Runner) *LinkManager {
	return &LinkManager{r: r}
}

func (c *LinkManager) Name() string { return classify.LinkManager }

func (c *LinkManager) Collect(ctx context.Context, iface Interface) (model.PartialMetrics, error) {
	p := model.NewPartial(c.Name(), model.PriorityGeneric)
	out, err := c.r.Output(ctx, "mwan3", "interfaces")
	if err != nil {
		return p, classifyErr(err)
	}

	state, ok := ParseLinkState(out, iface.ID)
	switch {
	case !ok:
		p.SetStatus(model.StatusUnknown)
	case state == "online":
		p.SetStatus(model.StatusOnline)
		p.SetAvailability(100)
	case state == "offline":
		p.SetStatus(model.StatusOffline)
		p.SetAvailability(0)
	case state == "disabled":
		p.SetStatus(model.StatusDisabled)
		p.SetAvailability(0)
	default:
		// connecting, disconnecting, error and similar transient states.
		p.SetStatus(model.StatusUnknown)
		p.SetAvailability(0)
	}
	return p, nil
}

// ParseLinkState finds "interface <id> is <state>" in mwan3 output.
func ParseLinkState(out, id string) (string, bool) {
	for _, m := range mwanIfaceRe.FindAllStringSubmatch(out, -1) {
		if m[1] == id {
			return m[2], true
		}
	}
	return "", false
}
