package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"wanhealth/internal/classify"
	"wanhealth/internal/config"
	"wanhealth/internal/execx"
	"wanhealth/internal/model"
)

const (
	thermalPenalty = 20
	noDataScale    = 0.5
)

var (
	firstNumberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	quotedRe      = regexp.MustCompile(`"([^"]*)"`)
)

// registration maps +CREG stat codes to status and availability.
var registration = map[int]struct {
	status       string
	availability float64
}{
	1: {model.StatusRegisteredHome, 100},
	5: {model.StatusRegisteredRoaming, 90},
	2: {model.StatusSearching, 50},
	3: {model.StatusDenied, 0},
}

// Cellular queries the modem with AT commands through the router's AT tool.
// Every query is optional; whatever answers contributes.
type Cellular struct {
	r         execx.Runner
	tool      string
	flag      string
	threshold float64
	maxTemp   float64
}

func NewCellular(r execx.Runner, cfg config.CellularConfig) *Cellular {
	return &Cellular{
		r:         r,
		tool:      cfg.ATTool,
		flag:      cfg.ATFlag,
		threshold: cfg.SignalThreshold,
		maxTemp:   cfg.TemperatureThreshold,
	}
}

func (c *Cellular) Name() string { return classify.Cellular.String() }

func (c *Cellular) Collect(ctx context.Context, iface Interface) (model.PartialMetrics, error) {
	p := model.NewPartial(c.Name(), model.PriorityClass)

	var errs []error
	answered := 0
	toolAbsent := false
	at := func(cmd string) (string, bool) {
		if toolAbsent {
			return "", false
		}
		out, err := c.r.Output(ctx, c.tool, c.flag, cmd)
		if err != nil {
			if errors.Is(err, execx.ErrToolAbsent) {
				toolAbsent = true
			}
			errs = append(errs, fmt.Errorf("%s: %w", cmd, err))
			return "", false
		}
		answered++
		return out, true
	}

	signal, haveSignal := -1.0, false
	if out, ok := at("AT+CSQ"); ok {
		if v, ok := ParseCSQ(out); ok {
			signal, haveSignal = v, true
		}
	}

	if out, ok := at("AT+CREG?"); ok {
		if stat, ok := ParseCREG(out); ok {
			reg, known := registration[stat]
			if !known {
				reg.status, reg.availability = model.StatusUnknown, 25
			}
			p.SetStatus(reg.status)
			p.SetAvailability(reg.availability)
		}
	}

	if out, ok := at("AT+COPS?"); ok {
		if op, ok := ParseCOPS(out); ok {
			p.Note("operator", op)
		}
	}

	if out, ok := at("AT+CESQ"); ok {
		if v, ok := ParseCESQ(out); ok {
			signal, haveSignal = v, true
		}
	}

	if out, ok := at("AT+QTEMP"); ok {
		if temp, ok := ParseTemperature(out); ok && temp > c.maxTemp {
			p.AddAvailability(-thermalPenalty)
			p.Qualify(model.QualifierThermal)
			p.Note("temperature_c", strconv.FormatFloat(temp, 'f', -1, 64))
		}
	}

	if out, ok := at("AT+CGACT?"); ok {
		if active, ok := ParseCGACT(out); ok && !active {
			p.ScaleAvailability(noDataScale)
			p.Qualify(model.QualifierNoData)
		}
	}

	if out, ok := at("AT+QNWINFO"); ok {
		if tech, ok := ParseQNWINFO(out); ok {
			p.Note("technology", tech)
		}
	}

	if answered == 0 {
		if toolAbsent {
			return p, noData(errors.Join(errs...))
		}
		return p, fmt.Errorf("modem unresponsive: %w", errors.Join(errs...))
	}

	if haveSignal {
		p.SetSignal(signal)
		if signal < c.threshold {
			p.SetPacketLoss(100 - signal)
		} else {
			p.SetPacketLoss(0)
		}
	}
	p.Method = model.MethodATModem
	return p, nil
}

// respFields returns the comma-separated fields after "<prefix>:".
func respFields(out, prefix string) ([]string, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, prefix))
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		parts := strings.Split(rest, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, true
	}
	return nil, false
}

// ParseCSQ turns "+CSQ: <rssi>,<ber>" into a 0-100 percentage. 99 is unknown.
func ParseCSQ(out string) (float64, bool) {
	f, ok := respFields(out, "+CSQ")
	if !ok || len(f) == 0 {
		return 0, false
	}
	rssi, err := strconv.Atoi(f[0])
	if err != nil || rssi < 0 || rssi > 31 {
		return 0, false
	}
	return math.Round(float64(rssi) * 100 / 31), true
}

// ParseCREG returns the registration stat of "+CREG: <n>,<stat>[,...]".
func ParseCREG(out string) (int, bool) {
	f, ok := respFields(out, "+CREG")
	if !ok || len(f) == 0 {
		return 0, false
	}
	idx := 0
	if len(f) >= 2 {
		idx = 1
	}
	stat, err := strconv.Atoi(f[idx])
	if err != nil {
		return 0, false
	}
	return stat, true
}

// ParseCOPS returns the operator name of "+COPS: <mode>,<format>,"<oper>",<act>".
func ParseCOPS(out string) (string, bool) {
	f, ok := respFields(out, "+COPS")
	if !ok || len(f) < 3 {
		return "", false
	}
	op := strings.Trim(f[2], `"`)
	return op, op != ""
}

// ParseCESQ maps the RSRP index (sixth field, 255 unknown) to a percentage tier.
func ParseCESQ(out string) (float64, bool) {
	f, ok := respFields(out, "+CESQ")
	if !ok || len(f) < 6 {
		return 0, false
	}
	idx, err := strconv.Atoi(f[5])
	if err != nil || idx < 0 || idx == 255 || idx > 97 {
		return 0, false
	}
	dbm := idx - 140
	switch {
	case dbm >= -95:
		return 90, true
	case dbm >= -105:
		return 70, true
	case dbm >= -115:
		return 40, true
	default:
		return 20, true
	}
}

// ParseTemperature returns the first number after "+QTEMP:".
func ParseTemperature(out string) (float64, bool) {
	i := strings.Index(out, "+QTEMP")
	if i < 0 {
		return 0, false
	}
	line := out[i:]
	if j := strings.IndexByte(line, '\n'); j >= 0 {
		line = line[:j]
	}
	m := firstNumberRe.FindString(strings.TrimPrefix(line, "+QTEMP"))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	return v, err == nil
}

// ParseCGACT reports whether any PDP context in "+CGACT: <cid>,<state>" lines is active.
func ParseCGACT(out string) (bool, bool) {
	seen := false
	for _, line := range strings.Split(out, "\n") {
		f, ok := respFields(line, "+CGACT")
		if !ok || len(f) < 2 {
			continue
		}
		seen = true
		if f[1] == "1" {
			return true, true
		}
	}
	return false, seen
}

// ParseQNWINFO returns the access technology from "+QNWINFO: "<act>",...".
func ParseQNWINFO(out string) (string, bool) {
	i := strings.Index(out, "+QNWINFO")
	if i < 0 {
		return "", false
	}
	m := quotedRe.FindStringSubmatch(out[i:])
	if m == nil || m[1] == "" || strings.EqualFold(m[1], "No Service") {
		return "", false
	}
	return m[1], true
}
