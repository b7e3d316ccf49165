package collector

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"wanhealth/internal/execx"
)

var (
	pingLossRe = regexp.MustCompile(`([\d.]+)% packet loss`)
	// Matches both "round-trip min/avg/max = a/b/c ms" and
	// "rtt min/avg/max/mdev = a/b/c/d ms".
	pingRTTRe = regexp.MustCompile(`min/avg/max(?:/mdev)?\s*=\s*([\d.]+)/([\d.]+)/([\d.]+)`)
)

// PingResult is the summary block of a ping run.
type PingResult struct {
	AvgMs   float64
	LossPct float64
}

// ParsePing extracts average RTT and loss from ping's summary. A run with no
// RTT line received nothing and is reported as failed.
func ParsePing(out string) (PingResult, error) {
	var res PingResult
	m := pingLossRe.FindStringSubmatch(out)
	if m == nil {
		return res, fmt.Errorf("ping: no summary")
	}
	loss, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return res, fmt.Errorf("ping: bad loss %q", m[1])
	}
	res.LossPct = loss

	rtt := pingRTTRe.FindStringSubmatch(out)
	if rtt == nil {
		return res, fmt.Errorf("ping: no replies (%.0f%% loss)", loss)
	}
	avg, err := strconv.ParseFloat(rtt[2], 64)
	if err != nil {
		return res, fmt.Errorf("ping: bad rtt %q", rtt[2])
	}
	res.AvgMs = avg
	return res, nil
}

// pinger runs `ping -c N -W secs [-I iface] target` through a Runner.
type pinger struct {
	r       execx.Runner
	timeout time.Duration
}

func (p pinger) ping(ctx context.Context, target, iface string, count int) (PingResult, error) {
	if count <= 0 {
		count = 1
	}
	wait := int(math.Ceil(p.timeout.Seconds()))
	if wait < 1 {
		wait = 1
	}
	args := []string{"-c", strconv.Itoa(count), "-W", strconv.Itoa(wait)}
	if iface != "" {
		args = append(args, "-I", iface)
	}
	args = append(args, target)

	out, err := p.r.Output(ctx, "ping", args...)
	if err != nil {
		// ping exits non-zero on total loss; the summary is still on stdout.
		if res, perr := ParsePing(out); perr == nil {
			return res, nil
		}
		return PingResult{}, err
	}
	return ParsePing(out)
}
