package pidfile

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestWriteRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run", "wanhealth.pid")
	if err := Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	pid, err := Check(path)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid=%d", pid)
	}
}

func TestCheck_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Check(filepath.Join(t.TempDir(), "none.pid")); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("err=%v", err)
	}
}

func TestCheck_StaleFileIsCleared(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot spawn: %v", err)
	}
	dead := cmd.Process.Pid

	path := filepath.Join(t.TempDir(), "wanhealth.pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(dead)), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Check(path); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("err=%v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("stale file kept: %v", err)
	}
}

func TestCheck_MalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "wanhealth.pid")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Check(path); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("err=%v", err)
	}
}

func TestStop_TerminatesProcess(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot spawn: %v", err)
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	path := filepath.Join(t.TempDir(), "wanhealth.pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(cmd.Process.Pid)), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pid, err := Stop(ctx, path)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if pid != cmd.Process.Pid {
		t.Fatalf("pid=%d", pid)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("process not reaped")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("pid file kept: %v", err)
	}
}

func TestStop_NothingRunning(t *testing.T) {
	t.Parallel()

	if _, err := Stop(context.Background(), filepath.Join(t.TempDir(), "none.pid")); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("err=%v", err)
	}
}
