package stunutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/pion/stun/v3"
)

// ErrNoServers is returned when no STUN server is configured.
var ErrNoServers = errors.New("no STUN servers provided")

// Result is a successful binding round trip.
type Result struct {
	Server  string
	RTT     time.Duration
	Mapped  string
	Elapsed time.Duration
}

// Probe sends a binding request to each server in order, bound to iface when
// non-empty, and returns the first server that answers.
func Probe(ctx context.Context, servers []string, iface string, timeout time.Duration) (Result, error) {
	if len(servers) == 0 {
		return Result{}, ErrNoServers
	}

	start := time.Now()
	var lastErr error
	for _, server := range servers {
		res, err := probeServer(ctx, server, iface, timeout)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		res.Elapsed = time.Since(start)
		return res, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("STUN probe failed")
	}
	return Result{}, lastErr
}

func probeServer(ctx context.Context, server, iface string, timeout time.Duration) (Result, error) {
	host := strings.TrimPrefix(strings.TrimSpace(server), "stun:")
	if host == "" {
		return Result{}, fmt.Errorf("empty STUN server")
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "3478")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dialer := net.Dialer{Control: bindControl(iface)}
	conn, err := dialer.DialContext(ctx, "udp", host)
	if err != nil {
		return Result{}, fmt.Errorf("dial %s: %w", host, err)
	}
	client, err := stun.NewClient(conn)
	if err != nil {
		conn.Close()
		return Result{}, err
	}
	defer client.Close()

	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	result := make(chan stun.XORMappedAddress, 1)
	fail := make(chan error, 1)

	sent := time.Now()
	go func() {
		var addr stun.XORMappedAddress
		err := client.Do(msg, func(res stun.Event) {
			if res.Error != nil {
				fail <- res.Error
				return
			}
			if err := addr.GetFrom(res.Message); err != nil {
				fail <- err
				return
			}
			result <- addr
		})
		if err != nil {
			fail <- err
		}
	}()

	select {
	case addr := <-result:
		return Result{Server: host, RTT: time.Since(sent), Mapped: addr.String()}, nil
	case err := <-fail:
		return Result{}, fmt.Errorf("stun %s: %w", host, err)
	case <-ctx.Done():
		return Result{}, fmt.Errorf("stun %s: %w", host, ctx.Err())
	}
}
