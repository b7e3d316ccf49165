// Package pidfile manages the daemon's PID file and the signals the CLI sends
// through it.
package pidfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// ErrNotRunning means no live process owns the PID file.
var ErrNotRunning = errors.New("daemon not running")

// Write records the current process id at path.
func Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// Read parses the pid stored at path.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotRunning
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s: malformed contents", path)
	}
	return pid, nil
}

// Alive reports whether pid names a live process. EPERM still means alive:
// the process exists but belongs to someone else.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Check returns the pid of the live daemon. A stale or malformed file is
// removed and reported as ErrNotRunning.
func Check(path string) (int, error) {
	pid, err := Read(path)
	if errors.Is(err, ErrNotRunning) {
		return 0, err
	}
	if err != nil || !Alive(pid) {
		_ = Remove(path)
		return 0, ErrNotRunning
	}
	return pid, nil
}

// Stop sends SIGTERM to the daemon and waits until it exits or ctx expires.
// The file is removed in both cases.
func Stop(ctx context.Context, path string) (int, error) {
	pid, err := Check(path)
	if err != nil {
		return 0, err
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return pid, fmt.Errorf("signal %d: %w", pid, err)
	}

	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for Alive(pid) {
		select {
		case <-ctx.Done():
			_ = Remove(path)
			return pid, fmt.Errorf("pid %d still running: %w", pid, ctx.Err())
		case <-tick.C:
		}
	}
	return pid, Remove(path)
}

// Remove deletes the file, ignoring a missing one.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
