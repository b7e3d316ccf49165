package addrutil

import (
	"net"
	"strconv"
	"strings"
)

// Endpoint normalizes "host", "host:port", "[v6]:port" or a bare IPv6
// address into a dialable "host:port", filling in defaultPort when the input
// carries none. A scheme prefix such as "http://" is stripped.
func Endpoint(addr string, defaultPort int) (string, bool) {
	a := strings.TrimSpace(addr)
	if i := strings.Index(a, "://"); i >= 0 {
		a = a[i+3:]
	}
	a = strings.TrimSuffix(a, "/")
	if a == "" {
		return "", false
	}

	host, port := splitHostPort(a)
	if host == "" {
		return "", false
	}
	if port == 0 {
		if defaultPort <= 0 {
			return "", false
		}
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), true
}

// Endpoints normalizes a list, dropping unusable entries and duplicates while
// keeping the configured order.
func Endpoints(addrs []string, defaultPort int) []string {
	out := make([]string, 0, len(addrs))
	seen := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		ep, ok := Endpoint(a, defaultPort)
		if !ok {
			continue
		}
		if _, dup := seen[ep]; dup {
			continue
		}
		seen[ep] = struct{}{}
		out = append(out, ep)
	}
	return out
}

func splitHostPort(a string) (string, int) {
	// Fast path: "host:port" (IPv4 or bracketed IPv6).
	if h, p, err := net.SplitHostPort(a); err == nil {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return "", 0
		}
		return h, port
	}

	// Raw IPv6 without a port.
	if ip := net.ParseIP(strings.Trim(a, "[]")); ip != nil {
		return ip.String(), 0
	}

	// Unbracketed IPv6 "host:port": peel off the last ":port".
	if strings.Count(a, ":") > 1 && !strings.HasPrefix(a, "[") {
		if last := strings.LastIndexByte(a, ':'); last > 0 && last < len(a)-1 {
			if port, err := strconv.Atoi(a[last+1:]); err == nil && net.ParseIP(a[:last]) != nil {
				return a[:last], port
			}
		}
	}

	if strings.Contains(a, ":") {
		return "", 0
	}
	return a, 0
}
