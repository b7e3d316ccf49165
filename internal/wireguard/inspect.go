package wireguard

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Status is what the text report tells us about the freshest peer.
type Status struct {
	HasHandshake bool
	// HandshakeAge is the age of the newest handshake across peers.
	HandshakeAge time.Duration
	// SecondsUnit is true when the age text was printed with a seconds
	// component. Coarser text only carries minutes or larger units.
	SecondsUnit bool

	HasTransfer bool
	RxBytes     float64
	TxBytes     float64
}

// Peer is one row of `wg show <iface> dump`.
type Peer struct {
	PublicKey       string
	Endpoint        string
	LatestHandshake time.Time // zero when no handshake happened
	RxBytes         uint64
	TxBytes         uint64
}

// ParseShow extracts handshake age and transfer totals from `wg show` text.
// With several peers the newest handshake wins and transfers are summed.
func ParseShow(out string) Status {
	var st Status
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, "latest handshake:"):
			age, secs, ok := ParseHandshakeAge(strings.TrimSpace(strings.TrimPrefix(line, "latest handshake:")))
			if !ok {
				continue
			}
			if !st.HasHandshake || age < st.HandshakeAge {
				st.HandshakeAge = age
				st.SecondsUnit = secs
			}
			st.HasHandshake = true
		case strings.HasPrefix(line, "transfer:"):
			rx, tx, ok := parseTransfer(strings.TrimSpace(strings.TrimPrefix(line, "transfer:")))
			if !ok {
				continue
			}
			st.RxBytes += rx
			st.TxBytes += tx
			st.HasTransfer = true
		}
	}
	return st
}

// ParseHandshakeAge parses text like "1 minute, 23 seconds ago" or
// "Now". It reports whether a seconds unit was present.
func ParseHandshakeAge(text string) (time.Duration, bool, bool) {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "ago"))
	if strings.EqualFold(text, "now") {
		return 0, true, true
	}
	var total time.Duration
	secs := false
	found := false
	for _, part := range strings.Split(text, ",") {
		fields := strings.Fields(part)
		if len(fields) != 2 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 {
			continue
		}
		unit := strings.TrimSuffix(strings.ToLower(fields[1]), "s")
		var d time.Duration
		switch unit {
		case "second":
			d = time.Second
			secs = true
		case "minute":
			d = time.Minute
		case "hour":
			d = time.Hour
		case "day":
			d = 24 * time.Hour
		case "year":
			d = 365 * 24 * time.Hour
		default:
			continue
		}
		total += time.Duration(n) * d
		found = true
	}
	return total, secs, found
}

// parseTransfer parses "1.23 MiB received, 456 B sent".
func parseTransfer(text string) (float64, float64, bool) {
	var rx, tx float64
	var gotRx, gotTx bool
	for _, part := range strings.Split(text, ",") {
		fields := strings.Fields(part)
		if len(fields) != 3 {
			continue
		}
		n, ok := toBytes(fields[0], fields[1])
		if !ok {
			continue
		}
		switch fields[2] {
		case "received":
			rx, gotRx = n, true
		case "sent":
			tx, gotTx = n, true
		}
	}
	return rx, tx, gotRx || gotTx
}

func toBytes(num, unit string) (float64, bool) {
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	mult := map[string]float64{
		"B":   1,
		"KiB": 1 << 10,
		"MiB": 1 << 20,
		"GiB": 1 << 30,
		"TiB": 1 << 40,
	}[unit]
	if mult == 0 {
		return 0, false
	}
	return v * mult, true
}

// ParseDump parses the tab-separated dump. The first line describes the
// interface itself and is skipped.
func ParseDump(dump string) []Peer {
	lines := strings.Split(strings.TrimSpace(dump), "\n")
	if len(lines) < 2 {
		return nil
	}
	peers := make([]Peer, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 7 {
			continue
		}
		p := Peer{PublicKey: fields[0]}
		if ep := fields[2]; ep != "(none)" {
			p.Endpoint = ep
		}
		if epoch, err := strconv.ParseInt(fields[4], 10, 64); err == nil && epoch > 0 {
			p.LatestHandshake = time.Unix(epoch, 0)
		}
		p.RxBytes, _ = strconv.ParseUint(fields[5], 10, 64)
		p.TxBytes, _ = strconv.ParseUint(fields[6], 10, 64)
		peers = append(peers, p)
	}
	return peers
}

// NewestHandshake returns the most recent handshake across peers.
func NewestHandshake(peers []Peer) (time.Time, bool) {
	var newest time.Time
	for _, p := range peers {
		if p.LatestHandshake.After(newest) {
			newest = p.LatestHandshake
		}
	}
	return newest, !newest.IsZero()
}

// MegaBytes converts a byte total to MiB rounded to two decimals.
func MegaBytes(b float64) float64 {
	return math.Round(b/(1<<20)*100) / 100
}
