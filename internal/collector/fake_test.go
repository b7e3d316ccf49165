package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"wanhealth/internal/classify"
	"wanhealth/internal/execx"
	"wanhealth/internal/model"
)

type reply struct {
	out string
	err error
}

// fakeRunner answers commands from a table. Unlisted commands behave as if
// the binary were not installed.
type fakeRunner struct {
	mu      sync.Mutex
	replies map[string]reply
	absent  map[string]bool
	calls   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{replies: map[string]reply{}, absent: map[string]bool{}}
}

func (f *fakeRunner) on(cmd, out string) *fakeRunner {
	f.replies[cmd] = reply{out: out}
	return f
}

func (f *fakeRunner) fail(cmd, out string, err error) *fakeRunner {
	f.replies[cmd] = reply{out: out, err: err}
	return f
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := f.Output(ctx, name, args...)
	return err
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	cmd := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	if r, ok := f.replies[cmd]; ok {
		return r.out, r.err
	}
	if f.absent[name] {
		return "", fmt.Errorf("%s: %w", name, execx.ErrToolAbsent)
	}
	return "", fmt.Errorf("%s: exit status 1", name)
}

func (f *fakeRunner) called(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

var _ execx.Runner = (*fakeRunner)(nil)

func onlineIface(id string, class classify.Class, ct model.ConnectionType) Interface {
	cur := model.Baseline(id, ct, time.Now())
	cur.Status = model.StatusOnline
	cur.Availability = 100
	return Interface{ID: id, Class: class, ConnectionType: ct, Current: cur}
}

func offlineIface(id string, class classify.Class) Interface {
	return Interface{
		ID:             id,
		Class:          class,
		ConnectionType: model.ConnectionUnlimited,
		Current:        model.Baseline(id, model.ConnectionUnlimited, time.Now()),
	}
}

const pingOK = `PING 8.8.8.8 (8.8.8.8): 56 data bytes
64 bytes from 8.8.8.8: seq=0 ttl=117 time=21.3 ms

--- 8.8.8.8 ping statistics ---
5 packets transmitted, 4 packets received, 20% packet loss
round-trip min/avg/max = 20.1/22.45/25.0 ms`

const pingLost = `PING 1.1.1.1 (1.1.1.1): 56 data bytes

--- 1.1.1.1 ping statistics ---
5 packets transmitted, 0 packets received, 100% packet loss`

// stallingRunner hangs on every command named stall until its context
// ends, the way ping does against a black-holed target. Everything else
// goes to the wrapped table.
type stallingRunner struct {
	*fakeRunner
	stall string
}

func (s stallingRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := s.Output(ctx, name, args...)
	return err
}

func (s stallingRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	if name != s.stall {
		return s.fakeRunner.Output(ctx, name, args...)
	}
	s.mu.Lock()
	s.calls = append(s.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	s.mu.Unlock()
	<-ctx.Done()
	return "", fmt.Errorf("%s: signal: killed", name)
}

var _ execx.Runner = stallingRunner{}
